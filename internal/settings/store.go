package settings

import (
	"encoding/json"
	"strings"

	"codeberg.org/mutker/divoomctl/internal/errors"
	"codeberg.org/mutker/divoomctl/internal/logger"
	"github.com/dgraph-io/badger/v4"
)

// keyPrefix namespaces per-device records so the database can hold other
// record kinds later without a schema migration.
const keyPrefix = "pcmon:"

// Settings is the persisted sync intent for one device address.
type Settings struct {
	LcdIndex int  `json:"lcdIndex"`
	Enabled  bool `json:"enabled"`
}

// Store persists device settings in an embedded Badger database. Safe for
// concurrent use.
type Store struct {
	db *badger.DB
}

// NewStore opens (or creates) the settings database under dir.
func NewStore(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.New().Wrap(ErrOpenFailed, err)
	}

	return &Store{db: db}, nil
}

// Save overwrites the settings for a device address.
func (s *Store) Save(address string, settings Settings) error {
	value, err := json.Marshal(settings)
	if err != nil {
		return errors.New().Wrap(ErrSaveFailed, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+address), value)
	})
	if err != nil {
		return errors.New().Wrap(ErrSaveFailed, err)
	}

	return nil
}

// Load returns the settings for a device address, or nil when the address
// is unknown. A record that no longer parses is treated the same as a
// missing one so a damaged database never blocks startup.
func (s *Store) Load(address string) (*Settings, error) {
	var settings *Settings

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + address))
		if err != nil {
			return err
		}

		return item.Value(func(value []byte) error {
			var parsed Settings
			if err := json.Unmarshal(value, &parsed); err != nil {
				logger.Warn().Str("address", address).Err(err).
					Msg("Discarding unreadable device settings record")
				return nil
			}
			settings = &parsed

			return nil
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}

		return nil, errors.New().Wrap(ErrLoadFailed, err)
	}

	return settings, nil
}

// All returns the settings of every known device keyed by address.
// Unreadable records are skipped.
func (s *Store) All() (map[string]Settings, error) {
	all := make(map[string]Settings)
	prefix := []byte(keyPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			address := strings.TrimPrefix(string(item.Key()), keyPrefix)

			err := item.Value(func(value []byte) error {
				var parsed Settings
				if err := json.Unmarshal(value, &parsed); err != nil {
					logger.Warn().Str("address", address).Err(err).
						Msg("Skipping unreadable device settings record")
					return nil
				}
				all[address] = parsed

				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, errors.New().Wrap(ErrLoadFailed, err)
	}

	return all, nil
}

// Delete removes the settings for a device address. Deleting an unknown
// address is not an error.
func (s *Store) Delete(address string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + address))
	})
	if err != nil {
		return errors.New().Wrap(ErrSaveFailed, err)
	}

	return nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}

	return nil
}
