// Package queue provides the bounded channel between the data generator
// and the data receiver.
package queue

// Sends never block: a value offered to a full queue is dropped and the
// caller is told so. Receives block for at most the given timeout.
//
// Producer: generator task
// Consumer: receiver task
