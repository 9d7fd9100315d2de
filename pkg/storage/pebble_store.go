package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/uhyunpark/matchsim/pkg/history"
	"github.com/uhyunpark/matchsim/pkg/model"
)

// PebbleHistory persists filled orders, ordered by fill time
type PebbleHistory struct {
	mu  sync.Mutex // guards seq
	db  *pebble.DB
	seq uint64
}

// OpenPebbleHistory opens (or creates) a store at path
func OpenPebbleHistory(path string) (*PebbleHistory, error) {
	return openPebble(path, &pebble.Options{})
}

// OpenMemPebbleHistory opens a store on an in-memory filesystem
func OpenMemPebbleHistory() (*PebbleHistory, error) {
	return openPebble("history", &pebble.Options{FS: vfs.NewMem()})
}

func openPebble(path string, opts *pebble.Options) (*PebbleHistory, error) {
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	s := &PebbleHistory{db: db}

	val, closer, err := db.Get([]byte(keySeq))
	switch {
	case err == nil:
		s.seq = decodeSeq(val)
		closer.Close()
	case errors.Is(err, pebble.ErrNotFound):
	default:
		db.Close()
		return nil, fmt.Errorf("read history sequence: %w", err)
	}
	return s, nil
}

func (s *PebbleHistory) Close() error { return s.db.Close() }

// RecordFilled stores the order and its id index in one batch
func (s *PebbleHistory) RecordFilled(o model.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seq + 1
	key := fillKey(o.TimestampInUs, seq)

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(key, data, nil); err != nil {
		return fmt.Errorf("failed to stage order: %w", err)
	}
	if err := b.Set(fillIDKey(o.ClientOrderID), key, nil); err != nil {
		return fmt.Errorf("failed to stage order index: %w", err)
	}
	if err := b.Set([]byte(keySeq), encodeSeq(seq), nil); err != nil {
		return fmt.Errorf("failed to stage sequence: %w", err)
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	s.seq = seq
	return nil
}

// Get loads the latest fill recorded under the id
func (s *PebbleHistory) Get(clientOrderID string) (model.Order, error) {
	key, closer, err := s.db.Get(fillIDKey(clientOrderID))
	if errors.Is(err, pebble.ErrNotFound) {
		return model.Order{}, history.ErrNotFound
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to get order index: %w", err)
	}
	fk := append([]byte(nil), key...)
	closer.Close()

	data, closer, err := s.db.Get(fk)
	if errors.Is(err, pebble.ErrNotFound) {
		return model.Order{}, history.ErrNotFound
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("failed to get order: %w", err)
	}
	defer closer.Close()

	var o model.Order
	if err := json.Unmarshal(data, &o); err != nil {
		return model.Order{}, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return o, nil
}

// List returns up to limit orders, newest fill first
func (s *PebbleHistory) List(limit int) ([]model.Order, error) {
	prefix := []byte(prefixFill)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var orders []model.Order
	for iter.Last(); iter.Valid() && (limit <= 0 || len(orders) < limit); iter.Prev() {
		var o model.Order
		if err := json.Unmarshal(iter.Value(), &o); err != nil {
			return nil, fmt.Errorf("failed to unmarshal order at %q: %w", iter.Key(), err)
		}
		orders = append(orders, o)
	}
	return orders, iter.Error()
}

// Count returns how many fills were recorded
func (s *PebbleHistory) Count() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

var (
	_ history.Sink   = (*PebbleHistory)(nil)
	_ history.Reader = (*PebbleHistory)(nil)
)
