package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.etcd.io/bbolt"
)

const detailsBucket = "details"

// StrategyManual marks a price corrected by hand. Such entries are reused
// whatever the current recognition settings.
const StrategyManual = "manual"

// Detail is what the batch remembers about one image: the raw OCR text behind
// the saved price, the content hash it was computed from and a fingerprint of
// the recognition settings used.
type Detail struct {
	Hash      string    `json:"hash"`
	Settings  string    `json:"settings,omitempty"`
	Price     string    `json:"price"`
	Text      string    `json:"text"`
	Strategy  string    `json:"strategy,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BoltStore persists Details keyed by file name.
type BoltStore struct {
	db *bbolt.DB
}

// Open creates or opens the cache file at path.
func Open(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(detailsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Get returns the stored detail for name, or nil when there is none.
func (s *BoltStore) Get(name string) (*Detail, error) {
	var d *Detail
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(detailsBucket)).Get([]byte(name))
		if data == nil {
			return nil
		}
		d = &Detail{}
		if err := json.Unmarshal(data, d); err != nil {
			return fmt.Errorf("unmarshaling detail %s: %w", name, err)
		}
		return nil
	})
	return d, err
}

// Put stores d under name, stamping UpdatedAt when unset.
func (s *BoltStore) Put(name string, d Detail) error {
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC()
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("marshaling detail: %w", err)
		}
		return tx.Bucket([]byte(detailsBucket)).Put([]byte(name), data)
	})
}

// Delete removes name from the cache.
func (s *BoltStore) Delete(name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(detailsBucket)).Delete([]byte(name))
	})
}

// All returns every stored detail.
func (s *BoltStore) All() (map[string]Detail, error) {
	out := map[string]Detail{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(detailsBucket)).ForEach(func(k, v []byte) error {
			var d Detail
			if err := json.Unmarshal(v, &d); err != nil {
				return fmt.Errorf("unmarshaling detail %s: %w", k, err)
			}
			out[string(k)] = d
			return nil
		})
	})
	return out, err
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// HashFile returns the hex sha256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
