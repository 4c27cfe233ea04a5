package store

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"hiretalk/pkg/logger"
)

var db *pebble.DB

// ready is 1 once Open has succeeded and until Close.
var ready int32

// KV is a key/value pair applied atomically via SetBatch.
type KV struct {
	Key   string
	Value []byte
}

// Open opens (or creates) the Pebble database at path and installs it as
// the process-wide handle.
func Open(path string) error {
	if path == "" {
		return fmt.Errorf("store: empty db path")
	}
	d, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return fmt.Errorf("store: open %s: %w", path, err)
	}
	db = d
	atomic.StoreInt32(&ready, 1)
	logger.Info("store_open", "path", path)
	return nil
}

// Close flushes and closes the database.
func Close() error {
	if db == nil {
		return nil
	}
	atomic.StoreInt32(&ready, 0)
	err := db.Close()
	db = nil
	return err
}

// Ready reports whether the database is open.
func Ready() bool { return atomic.LoadInt32(&ready) == 1 }

// Get returns the value stored at key. The returned slice is a copy owned
// by the caller. A missing key returns pebble.ErrNotFound.
func Get(key string) ([]byte, error) {
	if db == nil {
		return nil, fmt.Errorf("store: not open")
	}
	v, closer, err := db.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(v))
	copy(out, v)
	_ = closer.Close()
	return out, nil
}

// SetKey stores value at key with a synced write.
func SetKey(key string, value []byte) error {
	if db == nil {
		return fmt.Errorf("store: not open")
	}
	return db.Set([]byte(key), value, pebble.Sync)
}

// SetBatch applies all pairs atomically with a synced commit.
func SetBatch(kvs []KV) error {
	if db == nil {
		return fmt.Errorf("store: not open")
	}
	b := db.NewBatch()
	defer b.Close()
	for _, kv := range kvs {
		if err := b.Set([]byte(kv.Key), kv.Value, nil); err != nil {
			return err
		}
	}
	return b.Commit(pebble.Sync)
}

// DeleteKey removes key. Deleting a missing key is not an error.
func DeleteKey(key string) error {
	if db == nil {
		return fmt.Errorf("store: not open")
	}
	return db.Delete([]byte(key), pebble.Sync)
}

// ScanPrefix returns all values whose keys start with prefix, in key
// order.
func ScanPrefix(prefix string) ([][]byte, error) {
	_, vals, err := ScanPrefixKeys(prefix)
	return vals, err
}

// ScanPrefixKeys returns keys and values under prefix, in key order.
func ScanPrefixKeys(prefix string) ([]string, [][]byte, error) {
	if db == nil {
		return nil, nil, fmt.Errorf("store: not open")
	}
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: []byte(prefixEnd(prefix)),
	})
	if err != nil {
		return nil, nil, err
	}
	defer iter.Close()
	var keys []string
	var vals [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		k := string(iter.Key())
		if !strings.HasPrefix(k, prefix) {
			break
		}
		v := make([]byte, len(iter.Value()))
		copy(v, iter.Value())
		keys = append(keys, k)
		vals = append(vals, v)
	}
	return keys, vals, iter.Error()
}

// ScanRange returns keys and values in [start, end), in key order, up to
// limit entries. A limit of 0 means no limit.
func ScanRange(start, end string, limit int) ([]string, [][]byte, error) {
	if db == nil {
		return nil, nil, fmt.Errorf("store: not open")
	}
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(start),
		UpperBound: []byte(end),
	})
	if err != nil {
		return nil, nil, err
	}
	defer iter.Close()
	var keys []string
	var vals [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		if limit > 0 && len(keys) >= limit {
			break
		}
		v := make([]byte, len(iter.Value()))
		copy(v, iter.Value())
		keys = append(keys, string(iter.Key()))
		vals = append(vals, v)
	}
	return keys, vals, iter.Error()
}

// IsNotFound reports whether err is the store's missing-key error.
func IsNotFound(err error) bool { return err == pebble.ErrNotFound }

// prefixEnd returns the smallest key greater than every key with the
// given prefix.
func prefixEnd(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return prefix + "\xff"
}
