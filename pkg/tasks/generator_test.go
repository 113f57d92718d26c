package tasks

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/robowdt/pkg/console"
	"github.com/robotalks/robowdt/pkg/queue"
)

func newTestGenerator(tr *trace, out Sender) (*Generator, *console.Recorder) {
	log, rec := testLogger()
	g := NewGenerator(out, &Flag{}, log)
	g.Watchdog = &traceFeeder{tr: tr}
	g.Delayer = noDelay
	return g, rec
}

func runCycles(t *testing.T, g *Generator, n int) {
	ctx := context.Background()
	for i := 0; i < n; i++ {
		require.NoError(t, g.Cycle(ctx))
	}
}

func TestGeneratorSkipsTriggerAndStalls(t *testing.T) {
	tr := &trace{}
	out := &traceSender{tr: tr}
	g, _ := newTestGenerator(tr, out)

	runCycles(t, g, DefaultStallTrigger)
	assert.Equal(t, GeneratorNormal, g.State())
	runCycles(t, g, 1)
	assert.Equal(t, GeneratorStalling, g.State())
	runCycles(t, g, DefaultStallCycles)
	assert.Equal(t, GeneratorNormal, g.State())
	runCycles(t, g, 3)

	var expected []string
	for v := 0; v < DefaultStallTrigger; v++ {
		expected = append(expected, fmt.Sprintf("send %d", v), "feed")
	}
	for i := 0; i < DefaultStallCycles; i++ {
		expected = append(expected, "feed")
	}
	for v := DefaultStallTrigger + 1; v <= DefaultStallTrigger+3; v++ {
		expected = append(expected, fmt.Sprintf("send %d", v), "feed")
	}
	assert.Equal(t, expected, tr.snapshot())

	assert.NotContains(t, out.sent, DefaultStallTrigger)
	for i := 1; i < len(out.sent); i++ {
		if out.sent[i-1] != DefaultStallTrigger-1 {
			assert.Equal(t, out.sent[i-1]+1, out.sent[i])
		}
	}
}

func TestGeneratorFeedsWhileStallingWithoutFlag(t *testing.T) {
	tr := &trace{}
	g, rec := newTestGenerator(tr, &traceSender{tr: tr})
	g.Trigger = 0

	runCycles(t, g, 1)
	require.Equal(t, GeneratorStalling, g.State())
	runCycles(t, g, DefaultStallCycles-1)
	assert.False(t, g.Flag.Peek())
	assert.Equal(t, DefaultStallCycles-1, tr.count("feed"))
	assert.Equal(t, 0, g.Next())

	runCycles(t, g, 1)
	assert.Equal(t, GeneratorNormal, g.State())
	assert.Equal(t, 1, g.Next())
	assert.Equal(t, []string{
		"simulating failure: holding sends for 20 cycles",
		"stall over, resuming sends at 1",
	}, rec.Messages(console.ModGeneration))
}

func TestGeneratorDropsOnFullQueue(t *testing.T) {
	q, err := queue.New(queue.DefaultCapacity)
	require.NoError(t, err)
	tr := &trace{}
	g, rec := newTestGenerator(tr, q)

	runCycles(t, g, 8)
	assert.Equal(t, queue.DefaultCapacity, q.Len())
	assert.Equal(t, 8, g.Next())
	assert.True(t, g.Flag.Peek())
	assert.Equal(t, 8, tr.count("feed"))

	msgs := rec.Messages(console.ModGeneration)
	require.Len(t, msgs, 8)
	assert.Equal(t, "value 4 sent", msgs[4])
	assert.Equal(t, "queue full, value 5 dropped", msgs[5])
	assert.Equal(t, "queue full, value 7 dropped", msgs[7])

	for want := 0; want < queue.DefaultCapacity; want++ {
		got, err := q.Receive(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestGeneratorStarve(t *testing.T) {
	tr := &trace{}
	out := &traceSender{tr: tr}
	g, rec := newTestGenerator(tr, out)

	g.Starve(3)
	runCycles(t, g, 4)
	assert.Equal(t, []int{0}, out.sent)
	assert.Equal(t, 4, tr.count("feed"))
	assert.Equal(t, []string{
		"fault injected: suppressing sends for 3 cycles",
		"fault cleared, resuming sends",
		"value 0 sent",
	}, rec.Messages(console.ModGeneration))
}

func TestGeneratorRunStopsOnCancel(t *testing.T) {
	tr := &trace{}
	g, _ := newTestGenerator(tr, &traceSender{tr: tr})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, g.Run(ctx))
}
