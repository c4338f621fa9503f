package chassismatch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/chassismatch/batch"
	"github.com/poiesic/chassismatch/core"
	"github.com/poiesic/chassismatch/index/badger"
	"github.com/poiesic/chassismatch/match"
)

func openBadgerService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "snapshot")
	svc, err := Open(NewConfig(append([]Option{WithBadgerPath(dir)}, opts...)...))
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	g, ok := svc.Gateway().(*badger.Gateway)
	require.True(t, ok)
	require.NoError(t, g.PutRecords(context.Background(),
		chassis("T", "X", "72in"),
		chassis("A", "X", "72in"),
		chassis("B", "Y", "72in"),
	))
	return svc
}

func chassis(id, dealer, sleeper string) *core.Record {
	return &core.Record{
		ID:          id,
		Description: "chassis " + id,
		Attributes: map[string]core.Value{
			"dealer":  core.String(dealer),
			"sleeper": core.String(sleeper),
		},
	}
}

func TestOpen(t *testing.T) {
	t.Run("badger backend", func(t *testing.T) {
		svc := openBadgerService(t)
		assert.NotNil(t, svc.Matcher())
		assert.Nil(t, svc.Metrics())
	})

	t.Run("elasticsearch backend", func(t *testing.T) {
		svc, err := Open(nil)
		require.NoError(t, err)
		assert.NotNil(t, svc.Gateway())
		assert.NoError(t, svc.Close())
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := Open(&Config{Backend: BackendBadger, NeighborCount: 1})
		assert.Error(t, err)
	})

	t.Run("badger path is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(file, []byte("test"), 0644))

		svc, err := Open(NewConfig(WithBadgerPath(file)))
		assert.Error(t, err)
		assert.Nil(t, svc)
	})
}

func TestService_Find(t *testing.T) {
	svc := openBadgerService(t, WithMetrics())

	got, err := svc.Find(context.Background(), match.Request{TargetID: "T", Count: 5})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Record.ID)
	assert.Equal(t, 1.0, got[0].Score)

	families, err := svc.Metrics().Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	_, err = svc.Find(context.Background(), match.Request{TargetID: "T", Count: 5, Mode: match.ModeNearestNeighbor})
	assert.Error(t, err, "nearest mode needs an embedding service")
}

func TestService_NewBatchRunner(t *testing.T) {
	svc := openBadgerService(t, WithMetrics())

	var progress bytes.Buffer
	runner, err := svc.NewBatchRunner(&batch.Config{PoolSize: 2, Count: 1}, &progress)
	require.NoError(t, err)

	results, err := runner.Run(context.Background(), []string{"T", "A", "B"}, match.Selection{})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, res := range results {
		assert.NoError(t, res.Err)
		assert.Len(t, res.Candidates, 1)
	}
	assert.Contains(t, progress.String(), "3/3")
}
