// Package storage persists wallet state in a key-value store. Accounts are stored as full snapshots keyed by their
// index, the sealed seed of the software secret store lives under a dedicated realm.
package storage

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/kvstore"

	"github.com/iotaledger/wallet.go/packages/account"
)

var (
	// ErrAccountNotFound is returned when the requested account snapshot does not exist in the store.
	ErrAccountNotFound = errors.New("account not found in storage")

	// ErrSealedSeedNotFound is returned when no sealed seed has been stored yet.
	ErrSealedSeedNotFound = errors.New("sealed seed not found in storage")
)

var (
	realmAccounts = kvstore.Realm("a")
	realmSecrets  = kvstore.Realm("s")
	keySealedSeed = kvstore.Key("sealedSeed")
)

// Storage provides persistence for accounts and the sealed seed on top of a KVStore.
type Storage struct {
	accountsStore kvstore.KVStore
	secretsStore  kvstore.KVStore
}

// New creates a Storage on top of the given KVStore.
func New(store kvstore.KVStore) (storage *Storage, err error) {
	accountsStore, err := store.WithRealm(realmAccounts)
	if err != nil {
		return nil, errors.Errorf("failed to open accounts realm: %w", err)
	}
	secretsStore, err := store.WithRealm(realmSecrets)
	if err != nil {
		return nil, errors.Errorf("failed to open secrets realm: %w", err)
	}

	return &Storage{
		accountsStore: accountsStore,
		secretsStore:  secretsStore,
	}, nil
}

// SaveAccount persists a snapshot of the given account, replacing any previous snapshot.
func (s *Storage) SaveAccount(acc *account.Account) error {
	if err := s.accountsStore.Set(accountKey(acc.Index()), acc.Bytes()); err != nil {
		return errors.Errorf("failed to persist account %d: %w", acc.Index(), err)
	}

	return nil
}

// LoadAccount restores the account snapshot with the given index.
func (s *Storage) LoadAccount(index uint32) (acc *account.Account, err error) {
	accountBytes, err := s.accountsStore.Get(accountKey(index))
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, errors.Wrapf(ErrAccountNotFound, "account %d", index)
		}

		return nil, errors.Errorf("failed to load account %d: %w", index, err)
	}

	return account.FromBytes(accountBytes)
}

// LoadAccounts restores all persisted account snapshots.
func (s *Storage) LoadAccounts() (accounts []*account.Account, err error) {
	if iterationErr := s.accountsStore.Iterate(kvstore.EmptyPrefix, func(key kvstore.Key, value kvstore.Value) bool {
		acc, accountErr := account.FromBytes(value)
		if accountErr != nil {
			err = accountErr

			return false
		}
		accounts = append(accounts, acc)

		return true
	}); iterationErr != nil {
		return nil, errors.Errorf("failed to iterate accounts: %w", iterationErr)
	}
	if err != nil {
		return nil, errors.Errorf("failed to restore account snapshot: %w", err)
	}

	return
}

// DeleteAccount removes the snapshot of the account with the given index.
func (s *Storage) DeleteAccount(index uint32) error {
	if err := s.accountsStore.Delete(accountKey(index)); err != nil {
		return errors.Errorf("failed to delete account %d: %w", index, err)
	}

	return nil
}

// SaveSealedSeed persists the password-sealed seed blob of the software secret store.
func (s *Storage) SaveSealedSeed(sealedSeed []byte) error {
	if err := s.secretsStore.Set(keySealedSeed, sealedSeed); err != nil {
		return errors.Errorf("failed to persist sealed seed: %w", err)
	}

	return nil
}

// LoadSealedSeed returns the persisted sealed seed blob.
func (s *Storage) LoadSealedSeed() (sealedSeed []byte, err error) {
	sealedSeed, err = s.secretsStore.Get(keySealedSeed)
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, ErrSealedSeedNotFound
		}

		return nil, errors.Errorf("failed to load sealed seed: %w", err)
	}

	return
}

// HasSealedSeed returns true if a sealed seed has been stored.
func (s *Storage) HasSealedSeed() (bool, error) {
	has, err := s.secretsStore.Has(keySealedSeed)
	if err != nil {
		return false, errors.Errorf("failed to check for sealed seed: %w", err)
	}

	return has, nil
}

func accountKey(index uint32) kvstore.Key {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, index)

	return key
}
