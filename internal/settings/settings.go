package settings

import (
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

const (
	P1SelectedCarID = "P1SelectedCarID"
	P2SelectedCarID = "P2SelectedCarID"
)

var bucketName = []byte("settings")

// Store holds integer settings. Writes are buffered until Save commits them
// in a single transaction.
type Store struct {
	db *bbolt.DB

	mutex   sync.Mutex
	pending map[string]int
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0644, &bbolt.Options{Timeout: time.Second})

	if err != nil {
		return nil, errors.Wrapf(err, "could not open settings database at %s", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})

	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "could not create settings bucket")
	}

	return &Store{
		db:      db,
		pending: make(map[string]int),
	}, nil
}

func (s *Store) SetInt(key string, value int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.pending[key] = value
}

// Int returns the value for key, including unsaved writes.
func (s *Store) Int(key string) (int, bool, error) {
	s.mutex.Lock()
	value, ok := s.pending[key]
	s.mutex.Unlock()

	if ok {
		return value, true, nil
	}

	var raw []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketName).Get([]byte(key)); v != nil {
			raw = append([]byte(nil), v...)
		}

		return nil
	})

	if err != nil {
		return 0, false, errors.Wrapf(err, "could not read setting %s", key)
	}

	if raw == nil {
		return 0, false, nil
	}

	value, err = strconv.Atoi(string(raw))

	if err != nil {
		return 0, false, errors.Wrapf(err, "setting %s is not an integer", key)
	}

	return value, true, nil
}

func (s *Store) Save() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.pending) == 0 {
		return nil
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(bucketName)

		for key, value := range s.pending {
			if err := bkt.Put([]byte(key), []byte(strconv.Itoa(value))); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return errors.Wrap(err, "could not save settings")
	}

	s.pending = make(map[string]int)

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
