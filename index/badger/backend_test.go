package badger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/chassismatch/core"
	"github.com/poiesic/chassismatch/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("")
	require.NoError(t, err)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FilePath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := OpenBackend(file)
	assert.Error(t, err)
}

func TestBackend_ScanRecords(t *testing.T) {
	backend, err := OpenBackend("")
	require.NoError(t, err)
	defer backend.Close()

	err = backend.WithBatch(func(wb *badger.WriteBatch) error {
		for _, id := range []string{"B", "A", "C"} {
			rec := &core.Record{ID: id, Attributes: map[string]core.Value{}}
			if err := wb.Set(makeRecordKey(id), index.MarshalRecord(rec)); err != nil {
				return err
			}
		}
		// Keys outside the record prefix are never scanned
		return wb.Set([]byte("meta:version"), []byte("1"))
	})
	require.NoError(t, err)

	t.Run("key order", func(t *testing.T) {
		var ids []string
		err := backend.scanRecords(context.Background(), func(rec *core.Record) bool {
			ids = append(ids, rec.ID)
			return true
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C"}, ids)
	})

	t.Run("stops early", func(t *testing.T) {
		seen := 0
		err := backend.scanRecords(context.Background(), func(*core.Record) bool {
			seen++
			return false
		})
		require.NoError(t, err)
		assert.Equal(t, 1, seen)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := backend.scanRecords(ctx, func(*core.Record) bool { return true })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSlogBridge(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	bridge := slogBridge{logger: logger}

	bridge.Debugf("compacting level %d", 1)
	bridge.Infof("opened %s", "snapshot")
	assert.Empty(t, buf.String())

	bridge.Warningf("value log %d is large", 3)
	bridge.Errorf("flush failed: %v", "disk full")
	out := buf.String()
	assert.Contains(t, out, "value log 3 is large")
	assert.Contains(t, out, "flush failed: disk full")
	assert.Contains(t, out, "level=ERROR")
}

func TestOpenBackend_Logger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	backend, err := OpenBackend("", WithBackendLogger(logger), WithBackendLogger(nil))
	require.NoError(t, err)
	defer backend.Close()

	backend.logger.Info("probe")
	assert.Contains(t, buf.String(), "component=badger")
}
