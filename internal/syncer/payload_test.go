package syncer_test

import (
	"testing"

	"codeberg.org/mutker/divoomctl/internal/hostmon"
	"codeberg.org/mutker/divoomctl/internal/syncer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestFormatPayload(t *testing.T) {
	m := &hostmon.SystemMetrics{
		CPUUsage:       53.7,
		CPUTemperature: floatPtr(61.2),
		GPUTemperature: nil,
		MemoryTotal:    1000,
		MemoryUsed:     500,
		Disks: []hostmon.DiskUsage{
			{UsagePercent: 10.4},
			{UsagePercent: 88.9},
		},
	}

	payload := syncer.FormatPayload(m)

	require.Len(t, payload, 6)
	assert.Equal(t, "54%", payload[0])
	assert.Equal(t, "0%", payload[1])
	assert.Equal(t, "61 C", payload[2])
	assert.Equal(t, "N/A", payload[3])
	assert.Equal(t, "50%", payload[4])
	assert.Equal(t, "89%", payload[5])
}

func TestFormatPayloadEmptyHost(t *testing.T) {
	payload := syncer.FormatPayload(&hostmon.SystemMetrics{})

	require.Len(t, payload, 6)
	assert.Equal(t, "0%", payload[0])
	assert.Equal(t, "N/A", payload[2])
	assert.Equal(t, "N/A", payload[3])
	assert.Equal(t, "0%", payload[4])
	assert.Equal(t, "0%", payload[5])
}

func TestFormatPayloadRoundsHalfUp(t *testing.T) {
	m := &hostmon.SystemMetrics{
		CPUUsage:       49.5,
		CPUTemperature: floatPtr(60.5),
	}

	payload := syncer.FormatPayload(m)

	assert.Equal(t, "50%", payload[0])
	assert.Equal(t, "61 C", payload[2])
}
