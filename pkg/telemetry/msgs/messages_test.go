package msgs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/robowdt/pkg/console"
	"github.com/robotalks/robowdt/pkg/tasks"
)

func TestLogLineWire(t *testing.T) {
	line := console.Line{
		Time:    time.Unix(0, 1234),
		Owner:   "owner",
		Module:  console.ModCritical,
		Message: "halted (3/3)",
	}
	data, err := Encode(LogLineFrom(line))
	require.NoError(t, err)
	decoded, err := DecodeLogLine(data)
	require.NoError(t, err)
	assert.EqualValues(t, 1234, decoded.TimestampNs)
	assert.Equal(t, "{owner} [ERRO CRITICO] halted (3/3)", decoded.Line().String())
}

func TestStatusReportWire(t *testing.T) {
	data, err := Encode(StatusReportFrom("owner", 2, tasks.Status{Generation: true}))
	require.NoError(t, err)
	decoded, err := DecodeStatusReport(data)
	require.NoError(t, err)
	assert.Equal(t, "owner", decoded.Owner)
	assert.True(t, decoded.Generation)
	assert.False(t, decoded.Reception)
	assert.EqualValues(t, 2, decoded.Boot)
	assert.Zero(t, decoded.TimestampNs)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := DecodeStatusReport([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}
