package badger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/chassismatch/core"
	"github.com/poiesic/chassismatch/index"
)

// Backend owns the Badger database holding a chassis snapshot.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// BackendOption configures OpenBackend.
type BackendOption func(*backendOptions)

type backendOptions struct {
	logger *slog.Logger
}

// WithBackendLogger routes Badger's internal log output to logger.
func WithBackendLogger(logger *slog.Logger) BackendOption {
	return func(o *backendOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// slogBridge satisfies badger.Logger.
type slogBridge struct {
	logger *slog.Logger
}

var _ badger.Logger = slogBridge{}

func (s slogBridge) log(level slog.Level, format string, args []any) {
	if !s.logger.Enabled(context.Background(), level) {
		return
	}
	s.logger.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

func (s slogBridge) Errorf(format string, args ...any)   { s.log(slog.LevelError, format, args) }
func (s slogBridge) Warningf(format string, args ...any) { s.log(slog.LevelWarn, format, args) }
func (s slogBridge) Infof(format string, args ...any)    { s.log(slog.LevelInfo, format, args) }
func (s slogBridge) Debugf(format string, args ...any)   { s.log(slog.LevelDebug, format, args) }

// OpenBackend opens the snapshot stored in dir, creating the directory when
// missing. An empty dir opens an in-memory database.
func OpenBackend(dir string, opts ...BackendOption) (*Backend, error) {
	o := backendOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With("component", "badger")

	badgerOpts := badger.DefaultOptions(dir)
	if dir == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		if info, err := os.Stat(dir); err != nil {
			return nil, err
		} else if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", dir)
		}
	}
	badgerOpts = badgerOpts.
		WithLogger(slogBridge{logger: logger}).
		WithCompression(options.None)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	return &Backend{db: db, logger: logger}, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed reports whether Close has been called.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// view runs fn in a read-only transaction.
func (b *Backend) view(fn func(tx *badger.Txn) error) error {
	return b.db.View(fn)
}

// WithBatch executes fn against a write batch and flushes it.
// Batches are not bounded by the transaction size limit.
func (b *Backend) WithBatch(fn func(wb *badger.WriteBatch) error) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	if err := fn(wb); err != nil {
		return err
	}
	return wb.Flush()
}

// countRecords counts record keys without loading values.
func (b *Backend) countRecords(ctx context.Context) (int, error) {
	n := 0
	err := b.view(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordPrefix)
		opts.PrefetchValues = false
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

// scanRecords decodes every stored record in key order and hands it to fn.
// Returning false from fn stops the scan.
func (b *Backend) scanRecords(ctx context.Context, fn func(rec *core.Record) bool) error {
	return b.view(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordPrefix)
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec *core.Record
			err := it.Item().Value(func(val []byte) (err error) {
				rec, err = index.UnmarshalRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if !fn(rec) {
				return nil
			}
		}
		return nil
	})
}

func dotProduct(a, b []float32) float32 {
	var sum float32
	for i := range min(len(a), len(b)) {
		sum += a[i] * b[i]
	}
	return sum
}

// normalizeVector returns v scaled to unit length so dot products rank by
// cosine similarity. A zero vector stays zero.
func normalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}
	var sq float64
	for _, x := range v {
		sq += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sq == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sq)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}
