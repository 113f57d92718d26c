package mqtt

import (
	"context"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/robowdt/pkg/console"
	"github.com/robotalks/robowdt/pkg/tasks"
	"github.com/robotalks/robowdt/pkg/telemetry/msgs"
)

type published struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

// fakeClient records publishes. With stall set, Publish blocks until
// the stall channel is closed, as it does when the broker stops reading.
type fakeClient struct {
	paho.Client

	stall chan struct{}

	lock sync.Mutex
	msgs []published
}

func (c *fakeClient) Connect() paho.Token { return &paho.DummyToken{} }
func (c *fakeClient) Disconnect(uint) {}
func (c *fakeClient) IsConnected() bool { return true }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	if c.stall != nil {
		<-c.stall
	}
	c.lock.Lock()
	c.msgs = append(c.msgs, published{topic: topic, qos: qos, retain: retained, payload: payload.([]byte)})
	c.lock.Unlock()
	return &paho.DummyToken{}
}

func (c *fakeClient) published() []published {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]published(nil), c.msgs...)
}

func newTestPublisher(client *fakeClient, backlog int) *Publisher {
	q := &Queue{Client: client, TopicPrefix: "robo/", subs: make(map[string][]Handler)}
	return NewPublisherWith(q, "dev/1", backlog)
}

func waitFor(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
	return true
}

func TestPublisherEmitsLogAndStatus(t *testing.T) {
	client := &fakeClient{}
	p := newTestPublisher(client, 0)
	p.SetBoot(3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	p.Emit(console.Line{Owner: "dev/1", Module: console.ModReception, Message: "value 4 received and transmitted"})
	p.ReportStatus(tasks.Status{Time: time.Unix(10, 0), Generation: true})
	require.True(t, waitFor(func() bool { return len(client.published()) == 2 }, time.Second))
	cancel()
	assert.Equal(t, context.Canceled, <-done)

	out := client.published()
	assert.Equal(t, "robo/dev_1/log", out[0].topic)
	assert.Equal(t, byte(0), out[0].qos)
	assert.False(t, out[0].retain)
	line, err := msgs.DecodeLogLine(out[0].payload)
	require.NoError(t, err)
	assert.Equal(t, "{dev/1} [RECEPCAO] value 4 received and transmitted", line.Line().String())

	assert.Equal(t, "robo/dev_1/status", out[1].topic)
	assert.Equal(t, byte(1), out[1].qos)
	assert.True(t, out[1].retain)
	st, err := msgs.DecodeStatusReport(out[1].payload)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), st.Boot)
	assert.True(t, st.Generation)
	assert.False(t, st.Reception)
	assert.Equal(t, uint64(0), p.Dropped())
}

func TestPublisherNeverBlocksOnStalledBroker(t *testing.T) {
	client := &fakeClient{stall: make(chan struct{})}
	defer close(client.stall)
	p := newTestPublisher(client, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	emitted := make(chan struct{})
	go func() {
		line := console.Line{Owner: "dev/1", Module: console.ModGeneration, Message: string(make([]byte, 1024))}
		for i := 0; i < 20000; i++ {
			p.Emit(line)
			p.ReportStatus(tasks.Status{})
		}
		close(emitted)
	}()
	select {
	case <-emitted:
	case <-time.After(3 * time.Second):
		t.Fatal("Emit blocked the calling task")
	}
	assert.True(t, p.Dropped() > 0)

	cancel()
	select {
	case err := <-done:
		assert.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop while the broker is stalled")
	}
}
