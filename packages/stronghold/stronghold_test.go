package stronghold

import (
	"testing"
	"time"

	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotaledger/wallet.go/packages/secretmanager"
	"github.com/iotaledger/wallet.go/packages/seed"
	"github.com/iotaledger/wallet.go/packages/storage"
)

func TestInitAndUnlock(t *testing.T) {
	store, walletStorage := testStore(t, 0)

	initialized, err := store.IsInitialized()
	require.NoError(t, err)
	assert.False(t, initialized)
	assert.ErrorIs(t, store.Unlock([]byte("password")), ErrNotInitialized)

	walletSeed := seed.NewSeed()
	expectedAddress := walletSeed.Address(0, false)
	require.NoError(t, store.Init(walletSeed, []byte("password")))
	assert.ErrorIs(t, store.Init(seed.NewSeed(), []byte("password")), ErrAlreadyInitialized)

	initialized, err = store.IsInitialized()
	require.NoError(t, err)
	assert.True(t, initialized)
	assert.True(t, store.IsUnlocked())

	// a fresh store on the same storage unseals the same seed
	restartedStore := NewSoftwareStore(secretmanager.New(0), walletStorage)
	assert.ErrorIs(t, restartedStore.Unlock([]byte("wrong password")), ErrWrongPassword)
	assert.False(t, restartedStore.IsUnlocked())

	require.NoError(t, restartedStore.Unlock([]byte("password")))
	restoredAddress, err := restartedStore.Address(0, false)
	require.NoError(t, err)
	assert.True(t, expectedAddress.Equals(restoredAddress))
}

func TestSigningAbortsWhenLocked(t *testing.T) {
	store, _ := testStore(t, 0)
	require.NoError(t, store.Init(seed.NewSeed(), []byte("password")))

	signature, err := store.Sign(0, false, []byte("message"))
	require.NoError(t, err)
	publicKey, err := store.PublicKey(0, false)
	require.NoError(t, err)
	assert.True(t, publicKey.VerifySignature([]byte("message"), signature))

	store.Lock()
	assert.False(t, store.IsUnlocked())

	_, err = store.Sign(0, false, []byte("message"))
	assert.ErrorIs(t, err, ErrStoreLocked)
	_, err = store.PublicKey(0, false)
	assert.ErrorIs(t, err, ErrStoreLocked)
	_, err = store.Address(0, false)
	assert.ErrorIs(t, err, ErrStoreLocked)
}

func TestInactivityTimerLocksSeed(t *testing.T) {
	store, _ := testStore(t, 50*time.Millisecond)
	require.NoError(t, store.Init(seed.NewSeed(), []byte("password")))
	assert.True(t, store.IsUnlocked())

	assert.Eventually(t, func() bool {
		return !store.IsUnlocked()
	}, time.Second, 10*time.Millisecond)

	_, err := store.Sign(0, false, []byte("message"))
	assert.ErrorIs(t, err, ErrStoreLocked)
}

func TestChangePassword(t *testing.T) {
	store, walletStorage := testStore(t, 0)

	walletSeed := seed.NewSeed()
	expectedAddress := walletSeed.Address(3, true)
	require.NoError(t, store.Init(walletSeed, []byte("old password")))

	assert.ErrorIs(t, store.ChangePassword([]byte("wrong password"), []byte("new password")), ErrWrongPassword)
	require.NoError(t, store.ChangePassword([]byte("old password"), []byte("new password")))

	restartedStore := NewSoftwareStore(secretmanager.New(0), walletStorage)
	assert.ErrorIs(t, restartedStore.Unlock([]byte("old password")), ErrWrongPassword)
	require.NoError(t, restartedStore.Unlock([]byte("new password")))

	restoredAddress, err := restartedStore.Address(3, true)
	require.NoError(t, err)
	assert.True(t, expectedAddress.Equals(restoredAddress))
}

func TestSealedSeedBackup(t *testing.T) {
	store, _ := testStore(t, 0)
	walletSeed := seed.NewSeed()
	expectedAddress := walletSeed.Address(0, false)
	require.NoError(t, store.Init(walletSeed, []byte("password")))

	sealedSeed, err := store.SealedSeed()
	require.NoError(t, err)

	restoredStore, _ := testStore(t, 0)
	assert.ErrorIs(t, restoredStore.RestoreSealedSeed(sealedSeed, []byte("wrong password")), ErrWrongPassword)
	require.NoError(t, restoredStore.RestoreSealedSeed(sealedSeed, []byte("password")))

	restoredAddress, err := restoredStore.Address(0, false)
	require.NoError(t, err)
	assert.True(t, expectedAddress.Equals(restoredAddress))
}

func testStore(t *testing.T, clearInterval time.Duration) (*SoftwareStore, *storage.Storage) {
	t.Helper()

	walletStorage, err := storage.New(mapdb.NewMapDB())
	require.NoError(t, err)

	return NewSoftwareStore(secretmanager.New(clearInterval), walletStorage), walletStorage
}
