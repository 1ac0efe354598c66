package record

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// Bolt keeps the record in a bbolt bucket named after the card. The full
// record is mirrored in memory; bolt is written on every Sync.
type Bolt struct {
	*staged
	db     *bbolt.DB
	bucket []byte
}

var _ Store = (*Bolt)(nil)

// OpenBolt opens (or creates) the database at path and loads the bucket.
func OpenBolt(path, bucket string, opts Options) (*Bolt, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bolt bucket name is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create record dir: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open record db: %w", err)
	}

	name := []byte(bucket)
	initial := Record{}
	err = db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(name)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			initial[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load record bucket: %w", err)
	}

	s := &Bolt{db: db, bucket: name}
	s.staged = newStaged(initial, opts, s.commit)
	// Keys loaded past capacity were dropped from the mirror; drop them on
	// disk as well.
	if stale := staleKeys(initial, s.data); len(stale) > 0 {
		if err := s.commit(context.Background(), nil, stale); err != nil {
			db.Close()
			return nil, fmt.Errorf("trim record bucket: %w", err)
		}
	}
	return s, nil
}

func (s *Bolt) commit(ctx context.Context, writes Record, evicted []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return fmt.Errorf("bucket %q missing", s.bucket)
		}
		for k, v := range writes {
			if err := b.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		for _, k := range evicted {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close stops notifications and closes the database.
func (s *Bolt) Close() error {
	if !s.close() {
		return nil
	}
	return s.db.Close()
}

func staleKeys(before, after Record) []string {
	var out []string
	for k := range before {
		if _, ok := after[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}
