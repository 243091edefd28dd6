package docker

import (
	"errors"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertSummary(t *testing.T) {
	s := container.Summary{
		ID:      "4a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d",
		Names:   []string{"/opensearch-node1"},
		Image:   "opensearchproject/opensearch:2",
		State:   "running",
		Status:  "Up 3 hours",
		Created: 1700000000,
		Ports: []container.Port{
			{PrivatePort: 9200, PublicPort: 9200, Type: "tcp"},
			{PrivatePort: 9600, Type: "tcp"},
		},
	}

	got := convertSummary(s)
	assert.Equal(t, "4a1b2c3d4e5f", got.ID)
	assert.Equal(t, "opensearch-node1", got.Name)
	assert.Equal(t, "opensearchproject/opensearch:2", got.Image)
	assert.Equal(t, "running", got.State)
	assert.Equal(t, []string{"9200->9200/tcp", "9600/tcp"}, got.Ports)
	assert.Equal(t, "2023-11-14 22:13", got.Created)
}

func TestConvertSummaryNoNames(t *testing.T) {
	got := convertSummary(container.Summary{ID: "abc"})
	assert.Equal(t, "abc", got.ID)
	assert.Empty(t, got.Name)
	assert.Empty(t, got.Ports)
}

func TestConvertStats(t *testing.T) {
	raw := &container.StatsResponse{
		Name: "/db",
	}
	raw.MemoryStats.Usage = 256 * 1024 * 1024
	raw.MemoryStats.Limit = 1024 * 1024 * 1024
	raw.PreCPUStats.CPUUsage.TotalUsage = 1_000_000
	raw.PreCPUStats.SystemUsage = 10_000_000
	raw.CPUStats.CPUUsage.TotalUsage = 2_000_000
	raw.CPUStats.SystemUsage = 20_000_000
	raw.CPUStats.OnlineCPUs = 4

	got := convertStats(raw)
	assert.Equal(t, "db", got.Name)
	assert.Equal(t, uint64(256*1024*1024), got.MemoryUsage)
	assert.InDelta(t, 25.0, got.MemoryPercent, 0.001)
	assert.InDelta(t, 40.0, got.CPUPercent, 0.001)
}

func TestConvertStatsZeroDeltas(t *testing.T) {
	got := convertStats(&container.StatsResponse{Name: "idle"})
	assert.Zero(t, got.CPUPercent)
	assert.Zero(t, got.MemoryPercent)
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "123456789012", shortID("1234567890123456"))
	assert.Equal(t, "short", shortID("short"))
}

func TestErrorFormatting(t *testing.T) {
	underlying := errors.New("no such container")
	err := opErr("start container web", underlying)

	assert.EqualError(t, err, "docker: start container web: no such container")

	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "start container web", derr.Op)
	assert.ErrorIs(t, err, underlying)
}
