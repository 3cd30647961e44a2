package bench

import (
	"github.com/fxamacker/cbor"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// runsBucket is the bbolt bucket holding benchmark summaries, keyed by run ID.
var runsBucket = []byte("runs")

// Store persists benchmark summaries in a bbolt database so detection rates can be compared across runs.
type Store struct {
	db *bolt.DB
}

// OpenStore opens (or creates) a benchmark store at the provided path.
func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open benchmark store at %v", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, bucketErr := tx.CreateBucketIfNotExists(runsBucket)
		return bucketErr
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "could not initialize benchmark store")
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return errors.WithStack(s.db.Close())
}

// SaveSummary persists one benchmark summary under its run ID.
func (s *Store) SaveSummary(summary *Summary) error {
	encoded, err := cbor.Marshal(summary, cbor.EncOptions{})
	if err != nil {
		return errors.Wrap(err, "could not encode benchmark summary")
	}
	return errors.WithStack(s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).Put([]byte(summary.RunID), encoded)
	}))
}

// LoadSummary retrieves a benchmark summary by run ID.
func (s *Store) LoadSummary(runID string) (*Summary, error) {
	var encoded []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if value := tx.Bucket(runsBucket).Get([]byte(runID)); value != nil {
			encoded = append([]byte(nil), value...)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if encoded == nil {
		return nil, errors.Errorf("no benchmark run %v in store", runID)
	}

	var summary Summary
	if err = cbor.Unmarshal(encoded, &summary); err != nil {
		return nil, errors.Wrapf(err, "could not decode benchmark run %v", runID)
	}
	return &summary, nil
}

// ListRunIDs returns the run IDs of every persisted summary.
func (s *Store) ListRunIDs() ([]string, error) {
	var runIDs []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(k, _ []byte) error {
			runIDs = append(runIDs, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return runIDs, nil
}
