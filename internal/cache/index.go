package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "Fingerprints"

// Entry records that a fingerprint was imported under a code. Written
// only after the relational store has confirmed the upsert, so a hit is
// always a real duplicate; a stale cache can only miss, never lie.
type Entry struct {
	Code       string    `json:"code"`
	SourceFile string    `json:"source_file"`
	ImportedAt time.Time `json:"imported_at"`
}

// Index is a local bbolt map of payload fingerprint to import entry.
// It is a fast pre-check in front of the relational store's FindByHash
// and the resumption mechanism after a crashed import pass.
type Index struct {
	conn *bbolt.DB
}

// OpenIndex opens or creates the index file. The open timeout guards
// against two processes holding the same file.
func OpenIndex(path string) (*Index, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open fingerprint index: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create fingerprint bucket: %w", err)
	}

	return &Index{conn: db}, nil
}

func (i *Index) Close() error {
	return i.conn.Close()
}

// Get returns the entry for a fingerprint, or nil when unknown.
func (i *Index) Get(hash string) (*Entry, error) {
	var entry *Entry
	err := i.conn.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get([]byte(hash))
		if v == nil {
			return nil
		}
		entry = &Entry{}
		return json.Unmarshal(v, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("read fingerprint %s: %w", hash, err)
	}
	return entry, nil
}

func (i *Index) Put(hash string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode fingerprint entry: %w", err)
	}

	return i.conn.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(hash), data)
	})
}

func (i *Index) Delete(hash string) error {
	return i.conn.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(hash))
	})
}

// Len counts stored fingerprints. Debug helper.
func (i *Index) Len() (int, error) {
	var n int
	err := i.conn.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(bucketName)).Stats().KeyN
		return nil
	})
	return n, err
}
