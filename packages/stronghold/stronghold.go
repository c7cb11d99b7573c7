// Package stronghold guards the wallet seed. The seed only exists in memory while the store is unlocked with the
// wallet password; at rest it is sealed with a password derived key and persisted through the storage layer.
// Signing requests check the lock state on every call, so a password that was cleared mid-operation aborts the
// operation instead of racing it.
package stronghold

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/crypto/ed25519"

	"github.com/iotaledger/wallet.go/packages/address"
	"github.com/iotaledger/wallet.go/packages/secretmanager"
	"github.com/iotaledger/wallet.go/packages/seed"
	"github.com/iotaledger/wallet.go/packages/storage"
)

var (
	// ErrStoreLocked is returned when an operation requires the unsealed seed while the store is locked.
	ErrStoreLocked = errors.New("secret store is locked")

	// ErrNotInitialized is returned when the store holds no sealed seed yet.
	ErrNotInitialized = errors.New("secret store is not initialized")

	// ErrAlreadyInitialized is returned when Init is called on a store that already holds a sealed seed.
	ErrAlreadyInitialized = errors.New("secret store is already initialized")
)

// Signer produces public keys and signatures for seed derived key pairs without exposing the seed.
type Signer interface {
	// PublicKey returns the public key of the address with the given derivation index.
	PublicKey(index uint64, internal bool) (ed25519.PublicKey, error)

	// Sign signs the message with the private key of the address with the given derivation index.
	Sign(index uint64, internal bool, message []byte) (ed25519.Signature, error)
}

// AddressProvider derives addresses from the guarded seed.
type AddressProvider interface {
	// Address returns the address with the given derivation index.
	Address(index uint64, internal bool) (address.Address, error)
}

// SoftwareStore is a Signer and AddressProvider backed by a password sealed seed in local storage. Unlocking
// unseals the seed into memory; clearing the password (explicitly or through the secret manager's inactivity
// timer) wipes it again.
type SoftwareStore struct {
	secrets *secretmanager.SecretManager
	storage *storage.Storage

	mu           sync.Mutex
	unsealedSeed *seed.Seed
}

// NewSoftwareStore creates a SoftwareStore that seals its seed with passwords managed by the given SecretManager
// and persists it through the given Storage.
func NewSoftwareStore(secrets *secretmanager.SecretManager, walletStorage *storage.Storage) (store *SoftwareStore) {
	store = &SoftwareStore{
		secrets: secrets,
		storage: walletStorage,
	}
	secrets.OnClear(store.lockSeed)

	return
}

// IsInitialized returns true if the store holds a sealed seed.
func (s *SoftwareStore) IsInitialized() (bool, error) {
	return s.storage.HasSealedSeed()
}

// IsUnlocked returns true if the seed is currently unsealed in memory.
func (s *SoftwareStore) IsUnlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.unsealedSeed != nil
}

// Init seals the given seed with the password, persists it and leaves the store unlocked.
func (s *SoftwareStore) Init(walletSeed *seed.Seed, password []byte) error {
	initialized, err := s.IsInitialized()
	if err != nil {
		return err
	}
	if initialized {
		return ErrAlreadyInitialized
	}

	sealedSeed, err := seal(walletSeed.Bytes(), password)
	if err != nil {
		return err
	}
	if err = s.storage.SaveSealedSeed(sealedSeed); err != nil {
		return err
	}

	s.secrets.SetPassword(password)
	s.mu.Lock()
	s.unsealedSeed = walletSeed
	s.mu.Unlock()

	return nil
}

// Unlock unseals the persisted seed with the given password and caches the password in the secret manager. It
// fails with ErrWrongPassword if the password does not open the sealed seed.
func (s *SoftwareStore) Unlock(password []byte) error {
	sealedSeed, err := s.storage.LoadSealedSeed()
	if err != nil {
		if errors.Is(err, storage.ErrSealedSeedNotFound) {
			return ErrNotInitialized
		}

		return err
	}

	seedBytes, err := unseal(sealedSeed, password)
	if err != nil {
		return err
	}

	s.secrets.SetPassword(password)
	s.setSeed(seedBytes)

	return nil
}

// Lock wipes the unsealed seed and the cached password.
func (s *SoftwareStore) Lock() {
	s.secrets.ClearPassword()
}

// ChangePassword re-seals the seed with a new password. The current password must still be able to open the
// sealed seed.
func (s *SoftwareStore) ChangePassword(currentPassword, newPassword []byte) error {
	sealedSeed, err := s.storage.LoadSealedSeed()
	if err != nil {
		if errors.Is(err, storage.ErrSealedSeedNotFound) {
			return ErrNotInitialized
		}

		return err
	}

	seedBytes, err := unseal(sealedSeed, currentPassword)
	if err != nil {
		return err
	}

	resealedSeed, err := seal(seedBytes, newPassword)
	if err != nil {
		wipe(seedBytes)

		return err
	}
	if err = s.storage.SaveSealedSeed(resealedSeed); err != nil {
		wipe(seedBytes)

		return err
	}

	s.secrets.SetPassword(newPassword)
	s.setSeed(seedBytes)

	return nil
}

// SealedSeed exports the sealed seed blob for backups. The blob stays sealed, exporting it does not require the
// store to be unlocked.
func (s *SoftwareStore) SealedSeed() ([]byte, error) {
	sealedSeed, err := s.storage.LoadSealedSeed()
	if err != nil {
		if errors.Is(err, storage.ErrSealedSeedNotFound) {
			return nil, ErrNotInitialized
		}

		return nil, err
	}

	return sealedSeed, nil
}

// RestoreSealedSeed imports a sealed seed blob from a backup. The password must open the blob, which leaves the
// store unlocked with the restored seed.
func (s *SoftwareStore) RestoreSealedSeed(sealedSeed, password []byte) error {
	seedBytes, err := unseal(sealedSeed, password)
	if err != nil {
		return err
	}

	if err = s.storage.SaveSealedSeed(sealedSeed); err != nil {
		wipe(seedBytes)

		return err
	}

	s.secrets.SetPassword(password)
	s.setSeed(seedBytes)

	return nil
}

// Address returns the address with the given derivation index.
func (s *SoftwareStore) Address(index uint64, internal bool) (address.Address, error) {
	walletSeed, err := s.checkedSeed()
	if err != nil {
		return address.AddressEmpty, err
	}

	return walletSeed.Address(index, internal), nil
}

// PublicKey returns the public key of the address with the given derivation index.
func (s *SoftwareStore) PublicKey(index uint64, internal bool) (ed25519.PublicKey, error) {
	walletSeed, err := s.checkedSeed()
	if err != nil {
		return ed25519.PublicKey{}, err
	}

	return walletSeed.KeyPair(index, internal).PublicKey, nil
}

// Sign signs the message with the private key of the address with the given derivation index. It fails with
// ErrStoreLocked if the password was cleared since the operation started.
func (s *SoftwareStore) Sign(index uint64, internal bool, message []byte) (ed25519.Signature, error) {
	walletSeed, err := s.checkedSeed()
	if err != nil {
		return ed25519.Signature{}, err
	}
	keyPair := walletSeed.KeyPair(index, internal)

	return keyPair.PrivateKey.Sign(message), nil
}

// checkedSeed returns the unsealed seed if the store is unlocked and re-arms the secret manager's clear timer.
func (s *SoftwareStore) checkedSeed() (*seed.Seed, error) {
	if !s.secrets.IsUnlocked() {
		return nil, ErrStoreLocked
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsealedSeed == nil {
		return nil, ErrStoreLocked
	}
	s.secrets.Touch()

	return s.unsealedSeed, nil
}

// setSeed takes ownership of the unsealed seed bytes and caches the seed. A previously cached seed is wiped.
func (s *SoftwareStore) setSeed(seedBytes []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsealedSeed != nil {
		s.unsealedSeed.Zero()
	}
	s.unsealedSeed = seed.NewSeed(seedBytes)
}

// lockSeed wipes the unsealed seed. It runs whenever the secret manager clears the password.
func (s *SoftwareStore) lockSeed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsealedSeed != nil {
		s.unsealedSeed.Zero()
		s.unsealedSeed = nil
	}
}

func wipe(bytes []byte) {
	for i := range bytes {
		bytes[i] = 0
	}
}
