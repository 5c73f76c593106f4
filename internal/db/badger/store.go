// Package badger is an embedded key-value store on top of BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vibematch/internal/db"
)

// Store wraps a BadgerDB instance.
type Store struct {
	db *badger.DB
}

// zapAdapter routes badger's printf-style logging into zap.
type zapAdapter struct {
	s *zap.SugaredLogger
}

var _ badger.Logger = (*zapAdapter)(nil)

func (a *zapAdapter) Errorf(msg string, items ...any)   { a.s.Errorf(msg, items...) }
func (a *zapAdapter) Warningf(msg string, items ...any) { a.s.Warnf(msg, items...) }
func (a *zapAdapter) Infof(msg string, items ...any)    { a.s.Debugf(msg, items...) }
func (a *zapAdapter) Debugf(msg string, items ...any)   { a.s.Debugf(msg, items...) }

// Open opens a BadgerDB database at dir, creating the directory if needed.
// An empty dir with inMemory=true opens a purely in-memory database.
func Open(dir string, inMemory bool, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if dir == "" {
			return nil, &db.Error{Op: db.OpBadgerOpen, Err: errors.New("dir is required")}
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &db.Error{Op: db.OpBadgerOpen, Err: err}
		}
		info, err := os.Stat(dir)
		if err != nil {
			return nil, &db.Error{Op: db.OpBadgerOpen, Err: err}
		}
		if !info.IsDir() {
			return nil, &db.Error{Op: db.OpBadgerOpen, Err: fmt.Errorf("%s is not a directory", dir)}
		}
		opts = badger.DefaultOptions(dir)
	}

	opts.Logger = &zapAdapter{s: logger.Named("badger").Sugar()}
	opts.Compression = options.None

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, &db.Error{Op: db.OpBadgerOpen, Err: err}
	}
	return &Store{db: bdb}, nil
}

// Ping reports whether the database is still open.
func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return db.ErrClosed
	}
	return nil
}

// Scan returns every key/value pair under prefix. Returned keys have the
// prefix stripped.
func (s *Store) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[string(item.Key()[len(prefix):])] = val
		}
		return nil
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpBadgerScan, Err: err}
	}
	return out, nil
}

// PutMulti writes all pairs under prefix. Large sets are split across
// transactions by a write batch.
func (s *Store) PutMulti(ctx context.Context, prefix string, items map[string][]byte) error {
	if len(items) == 0 {
		return nil
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for k, v := range items {
		if err := ctx.Err(); err != nil {
			return &db.Error{Op: db.OpBadgerUpdate, Err: err}
		}
		if err := wb.Set([]byte(prefix+k), v); err != nil {
			return &db.Error{Op: db.OpBadgerUpdate, Err: err}
		}
	}
	if err := wb.Flush(); err != nil {
		return &db.Error{Op: db.OpBadgerUpdate, Err: err}
	}
	return nil
}

// Get returns the value at key or db.ErrKeyNotFound.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return val, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// IsClosed reports whether Close has been called.
func (s *Store) IsClosed() bool {
	return s.db.IsClosed()
}
