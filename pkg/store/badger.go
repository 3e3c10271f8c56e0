package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/leowmjw/go-neurotools/pkg/signals"
	"github.com/leowmjw/go-neurotools/pkg/spikefile"
)

// Config holds configuration for a BadgerStore.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes.
	SyncWrites bool

	// Logger receives BadgerDB's internal logs. If nil they are dropped.
	Logger *slog.Logger
}

// DefaultConfig returns the configuration for a persistent store at path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore implements SpikeStore on BadgerDB. Spike lists are stored in
// the spikefile text format, summaries as given.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens a BadgerStore. The caller must Close it.
func OpenBadger(cfg Config) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}

func (b *BadgerStore) Put(ctx context.Context, key string, sl *signals.SpikeList) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := spikefile.WriteSpikes(&buf, sl); err != nil {
		return fmt.Errorf("encode spike list %q: %w", key, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(spikesKey(key), buf.Bytes())
	})
}

func (b *BadgerStore) Get(ctx context.Context, key string) (*signals.SpikeList, error) {
	raw, err := b.get(ctx, spikesKey(key))
	if err != nil {
		return nil, fmt.Errorf("spike list %q: %w", key, err)
	}
	sl, err := spikefile.ReadSpikes(bytes.NewReader(raw), spikefile.LoadOptions{})
	if err != nil {
		return nil, fmt.Errorf("decode spike list %q: %w", key, err)
	}
	return sl, nil
}

func (b *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(spikesKey(key)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("spike list %q: %w", key, ErrNotFound)
			}
			return err
		}
		return txn.Delete(spikesKey(key))
	})
}

func (b *BadgerStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = spikesKey(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, trimSpikesKey(it.Item().Key()))
		}
		return nil
	})
	return keys, err
}

func (b *BadgerStore) PutSummary(ctx context.Context, key string, summary []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(summaryKey(key), summary)
	})
}

func (b *BadgerStore) GetSummary(ctx context.Context, key string) ([]byte, error) {
	raw, err := b.get(ctx, summaryKey(key))
	if err != nil {
		return nil, fmt.Errorf("summary %q: %w", key, err)
	}
	return raw, nil
}

func (b *BadgerStore) get(ctx context.Context, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var raw []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	return raw, err
}
