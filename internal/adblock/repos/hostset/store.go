package hostset

import (
	"bytes"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"
	bbolt "go.etcd.io/bbolt"
)

// bucketPrefix names one bucket per snapshot generation.
var bucketPrefix = []byte("hosts-")

// Store keeps the exact domain sets of store-backed snapshots in bbolt so
// that only their bloom filters stay in memory.
type Store struct {
	db *bbolt.DB

	mu  sync.Mutex
	gen uint64

	// reads counts bucket lookups, i.e. bloom positives.
	reads atomic.Uint64
}

// Open opens (or creates) the Bolt database at path. Generations left by a
// previous run are dropped; the filter manager rebuilds from its raw cache.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		return dropGenerations(tx, nil)
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Build writes domains into a fresh generation and returns a snapshot over
// it. The previous generation is retained so the snapshot currently being
// served stays readable until it is swapped out; older ones are dropped.
func (s *Store) Build(domains []string) (*Snapshot, error) {
	names := normalize(domains)

	s.mu.Lock()
	defer s.mu.Unlock()
	gen := s.gen + 1
	bucket := generationBucket(gen)
	keep := [][]byte{bucket}
	if s.gen > 0 {
		keep = append(keep, generationBucket(s.gen))
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := dropGenerations(tx, keep); err != nil {
			return err
		}
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}
		for _, d := range names {
			if err := b.Put([]byte(d), []byte{1}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("writing hosts generation %d: %w", gen, err)
	}
	s.gen = gen

	m, k := size(uint64(len(names)), DefaultFalsePositiveRate)
	bf := bitsbloom.New(uint(m), k)
	for _, d := range names {
		bf.AddString(d)
	}
	return &Snapshot{n: len(names), bf: bf, store: s, bucket: bucket}, nil
}

// exists reports whether name is a key of bucket. A missing bucket or a
// closed database reads as absent.
func (s *Store) exists(bucket []byte, name string) bool {
	s.reads.Add(1)
	var present bool
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucket); b != nil {
			present = b.Get([]byte(name)) != nil
		}
		return nil
	})
	return present
}

func (s *Store) keys(bucket []byte) []string {
	var out []string
	_ = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	return out
}

func generationBucket(gen uint64) []byte {
	return strconv.AppendUint(append([]byte(nil), bucketPrefix...), gen, 10)
}

// dropGenerations deletes every generation bucket not listed in keep.
func dropGenerations(tx *bbolt.Tx, keep [][]byte) error {
	var stale [][]byte
	err := tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
		if !bytes.HasPrefix(name, bucketPrefix) {
			return nil
		}
		for _, k := range keep {
			if bytes.Equal(name, k) {
				return nil
			}
		}
		stale = append(stale, append([]byte(nil), name...))
		return nil
	})
	if err != nil {
		return err
	}
	for _, name := range stale {
		if err := tx.DeleteBucket(name); err != nil {
			return err
		}
	}
	return nil
}
