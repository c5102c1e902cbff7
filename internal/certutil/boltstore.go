// Copyright 2025 Dominik Schlosser
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package certutil

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var crlBucket = []byte("crl")

// BoltCRLStore persists CRL bytes and download timestamps in a bbolt
// database, implementing internal/crl.Store. It is the durable
// keychain-equivalent the external interface section calls for.
type BoltCRLStore struct {
	db *bolt.DB
}

// OpenBoltCRLStore opens (creating if necessary) a bbolt database at path.
func OpenBoltCRLStore(path string) (*BoltCRLStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("certutil: opening %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(crlBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("certutil: initializing bucket in %s: %w", path, err)
	}
	return &BoltCRLStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltCRLStore) Close() error { return s.db.Close() }

// Put implements internal/crl.Store.
func (s *BoltCRLStore) Put(key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(crlBucket).Put([]byte(key), value)
	})
}

// Get implements internal/crl.Store.
func (s *BoltCRLStore) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(crlBucket).Get([]byte(key))
		if v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, value != nil, nil
}
