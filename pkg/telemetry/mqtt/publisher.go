package mqtt

import (
	"context"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/robowdt/pkg/console"
	"github.com/robotalks/robowdt/pkg/tasks"
	"github.com/robotalks/robowdt/pkg/telemetry/msgs"
)

// Topic suffixes under <prefix><owner>/.
const (
	LogTopic    = "log"
	StatusTopic = "status"
)

// DefaultBacklog is the number of messages waiting for the broker
// before new ones are dropped.
const DefaultBacklog = 256

type outbound struct {
	topic   string
	payload []byte
	qos     byte
	retain  bool
}

// Publisher mirrors console lines and supervisor reports to MQTT.
// Emit and ReportStatus only enqueue; Run talks to the broker. When the
// backlog is full messages are dropped so a slow broker never delays
// the calling task.
type Publisher struct {
	Queue *Queue
	Owner string

	out     chan outbound
	boot    atomic.Int64
	dropped atomic.Uint64
}

// NewPublisher creates a Publisher.
func NewPublisher(brokerURL, owner string) (*Publisher, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if opts.ClientID == "" {
		opts.SetClientID("robowdt:" + TopicName(owner))
	}
	return NewPublisherWith(NewQueue(opts, topicPrefix), owner, DefaultBacklog), nil
}

// NewPublisherWith creates a Publisher on an existing Queue.
func NewPublisherWith(q *Queue, owner string, backlog int) *Publisher {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Publisher{Queue: q, Owner: owner, out: make(chan outbound, backlog)}
}

// Topic returns the topic for a suffix, relative to the prefix.
func (p *Publisher) Topic(suffix string) string {
	return TopicName(p.Owner) + "/" + suffix
}

// SetBoot sets the boot number attached to status reports.
func (p *Publisher) SetBoot(boot int) {
	p.boot.Store(int64(boot))
}

// Dropped returns the number of messages dropped on a full backlog.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Emit implements console.Sink.
func (p *Publisher) Emit(line console.Line) {
	data, err := msgs.Encode(msgs.LogLineFrom(line))
	if err != nil {
		glog.Errorf("encode log line error: %v", err)
		return
	}
	p.enqueue(outbound{topic: p.Topic(LogTopic), payload: data})
}

// ReportStatus implements tasks.StatusReporter.
func (p *Publisher) ReportStatus(st tasks.Status) {
	data, err := msgs.Encode(msgs.StatusReportFrom(p.Owner, int(p.boot.Load()), st))
	if err != nil {
		glog.Errorf("encode status error: %v", err)
		return
	}
	p.enqueue(outbound{topic: p.Topic(StatusTopic), payload: data, qos: 1, retain: true})
}

func (p *Publisher) enqueue(msg outbound) {
	select {
	case p.out <- msg:
	default:
		if n := p.dropped.Add(1); n == 1 || n%100 == 0 {
			glog.Warningf("mqtt backlog full, %d messages dropped", n)
		}
	}
}

// Run implements Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	token := p.Queue.Connect()
	go func() {
		if token.Wait() && token.Error() != nil {
			glog.Warningf("mqtt connect error: %v", token.Error())
		}
	}()
	// publishing may block on a stalled broker, cancel must not wait for it
	go p.drain(ctx)
	<-ctx.Done()
	p.Queue.Close()
	return ctx.Err()
}

func (p *Publisher) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-p.out:
			p.Queue.PubWith(msg.topic, msg.payload, msg.qos, msg.retain)
		}
	}
}
