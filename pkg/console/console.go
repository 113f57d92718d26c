// Package console formats and dispatches the task log lines.
//
// Every observable action is one line of the form
//
//	{<owner>} [<MODULE>] <message>
package console

import (
	"fmt"
	"time"

	"github.com/golang/glog"
)

// Module tags a line with the part of the system it comes from.
type Module string

// Modules
const (
	ModGeneration  Module = "GERACAO"
	ModReception   Module = "RECEPCAO"
	ModWarning     Module = "AVISO"
	ModRecovery    Module = "RECUPERACAO"
	ModCritical    Module = "ERRO CRITICO"
	ModSupervision Module = "SUPERVISAO"
	ModSystem      Module = "SISTEMA"
)

// Line is a single log line.
type Line struct {
	Time    time.Time
	Owner   string
	Module  Module
	Message string
}

// String formats the line.
func (l Line) String() string {
	return fmt.Sprintf("{%s} [%s] %s", l.Owner, l.Module, l.Message)
}

// Sink receives log lines.
type Sink interface {
	Emit(Line)
}

// EmitFunc is the func form of Sink.
type EmitFunc func(Line)

// Emit implements Sink.
func (f EmitFunc) Emit(line Line) {
	f(line)
}

// MultiSink dispatches lines to all sinks in order.
type MultiSink []Sink

// Emit implements Sink.
func (s MultiSink) Emit(line Line) {
	for _, sink := range s {
		sink.Emit(line)
	}
}

// GlogSink writes lines through glog.
type GlogSink struct{}

// Emit implements Sink.
func (GlogSink) Emit(line Line) {
	glog.Info(line.String())
}

// Logger stamps lines with the owner id and hands them to a Sink.
type Logger struct {
	Owner string
	Sink  Sink

	now func() time.Time
}

// NewLogger creates a Logger.
func NewLogger(owner string, sink Sink) *Logger {
	if sink == nil {
		sink = GlogSink{}
	}
	return &Logger{Owner: owner, Sink: sink, now: time.Now}
}

// Printf emits a formatted line.
func (l *Logger) Printf(mod Module, format string, args ...interface{}) {
	l.Sink.Emit(Line{
		Time:    l.now(),
		Owner:   l.Owner,
		Module:  mod,
		Message: fmt.Sprintf(format, args...),
	})
}
