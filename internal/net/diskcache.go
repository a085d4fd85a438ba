package net

import (
	"encoding/binary"
	"encoding/json"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
)

// DiskCache persists evaluation results across runs in a BadgerDB store.
// Keys are derived from the position hash and the weight-file digest, so a
// store can be shared between networks without results leaking across
// weight sets.
type DiskCache struct {
	db        *badger.DB
	namespace uint64
}

// OpenDiskCache opens (or creates) a result store at dir, namespaced by the
// given weight digest.
func OpenDiskCache(dir string, weightDigest uint64) (*DiskCache, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &DiskCache{db: db, namespace: weightDigest}, nil
}

// Close closes the underlying store.
func (d *DiskCache) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func (d *DiskCache) key(hash uint64) []byte {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], d.namespace)
	binary.LittleEndian.PutUint64(buf[8:], hash)
	var key [8]byte
	binary.LittleEndian.PutUint64(key[:], xxhash.Sum64(buf[:]))
	return key[:]
}

// Lookup returns the stored result for hash, if present.
func (d *DiskCache) Lookup(hash uint64) (Result, bool) {
	var result Result
	found := false
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(d.key(hash))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &result); err != nil {
				return err
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return Result{}, false
	}
	return result, found
}

// Insert stores a result under hash.
func (d *DiskCache) Insert(hash uint64, result Result) error {
	data, err := json.Marshal(&result)
	if err != nil {
		return err
	}
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(d.key(hash), data)
	})
}
