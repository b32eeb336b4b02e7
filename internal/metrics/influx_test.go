package metrics

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixnote/mixnote/internal/model"
	"github.com/mixnote/mixnote/internal/session"
)

func TestSessionStatsPoint(t *testing.T) {
	rec := &model.Recording{Title: "bounce-v3"}
	stats := session.Stats{
		Started:        time.Now().Add(-10 * time.Minute),
		MarkersCreated: 4,
		TasksConverted: 1,
		Seeks:          12,
	}

	point := SessionStatsPoint(rec, stats)
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)

	assert.Contains(t, line, "review_session")
	assert.Contains(t, line, "recording=bounce-v3")
	assert.Contains(t, line, "markers_created=4i")
	assert.Contains(t, line, "tasks_converted=1i")
	assert.Contains(t, line, "seeks=12i")
}

func TestWritePoint_BackupFileWhenInvalid(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "stats.gz")

	file, err := os.OpenFile(backup, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	require.NoError(t, err)

	m := NewManager(zerolog.Nop(), backup)
	m.BackupWriter = gzip.NewWriter(file)

	rec := &model.Recording{Title: "bounce-v3"}
	require.NoError(t, m.WriteSessionStats(context.Background(), rec, session.Stats{Started: time.Now()}))
	m.Close()

	info, err := os.Stat(backup)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestWritePoint_UnknownBucket(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	m.IsValid = true

	err := m.WritePoint(context.Background(), "bogus", SessionStatsPoint(&model.Recording{}, session.Stats{}))
	assert.Error(t, err)
}
