// Package wallet implements the account management core of a client wallet: deterministic accounts on top of a
// guarded seed, transfers with automatic input selection, reconciliation of the local state with a node and a
// background sync loop. The seed never leaves the secret store and the wallet password is cleared automatically
// after a period of inactivity.
package wallet

import (
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/logger"
	"github.com/iotaledger/hive.go/marshalutil"

	"github.com/iotaledger/wallet.go/packages/account"
	"github.com/iotaledger/wallet.go/packages/address"
	"github.com/iotaledger/wallet.go/packages/connector"
	"github.com/iotaledger/wallet.go/packages/consolidateoptions"
	"github.com/iotaledger/wallet.go/packages/ledger"
	"github.com/iotaledger/wallet.go/packages/mnemonic"
	"github.com/iotaledger/wallet.go/packages/scheduler"
	"github.com/iotaledger/wallet.go/packages/secretmanager"
	"github.com/iotaledger/wallet.go/packages/seed"
	"github.com/iotaledger/wallet.go/packages/sendoptions"
	"github.com/iotaledger/wallet.go/packages/storage"
	"github.com/iotaledger/wallet.go/packages/stronghold"
	"github.com/iotaledger/wallet.go/packages/syncmanager"
	"github.com/iotaledger/wallet.go/packages/transfer"
)

var (
	// ErrAccountNotFound is returned when an operation refers to an account the wallet does not manage.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAliasInUse is returned when an account with the requested alias already exists.
	ErrAliasInUse = errors.New("account alias is already in use")
)

// Wallet manages a set of accounts that share one guarded seed and one node connection.
type Wallet struct {
	events          *Events
	log             *logger.Logger
	connector       connector.Connector
	storage         *storage.Storage
	secretManager   *secretmanager.SecretManager
	secretStore     *stronghold.SoftwareStore
	transferManager *transfer.Manager
	syncer          *syncmanager.Syncer
	scheduler       *scheduler.Scheduler

	mu       sync.RWMutex
	accounts map[uint32]*account.Account
}

// New is the factory method of the Wallet. It restores previously persisted accounts from the configured store.
func New(options ...Option) (wallet *Wallet, err error) {
	builtOptions := buildOptions(options...)

	walletStorage, err := storage.New(builtOptions.store)
	if err != nil {
		return nil, err
	}

	wallet = &Wallet{
		events:        newEvents(),
		log:           builtOptions.log,
		connector:     builtOptions.connector,
		storage:       walletStorage,
		secretManager: secretmanager.New(builtOptions.passwordClearInterval),
		accounts:      make(map[uint32]*account.Account),
	}
	wallet.secretStore = stronghold.NewSoftwareStore(wallet.secretManager, walletStorage)
	wallet.secretManager.OnClear(func() {
		wallet.events.PasswordCleared.Trigger()
	})
	wallet.transferManager = transfer.NewManager(builtOptions.connector, builtOptions.log)
	wallet.syncer = syncmanager.NewSyncer(builtOptions.connector, builtOptions.log, syncmanager.GapLimit(builtOptions.gapLimit))
	wallet.scheduler = scheduler.New(wallet.syncer, builtOptions.log, builtOptions.syncInterval, wallet.Accounts, wallet.addressProvider, wallet.consumeSyncResult)

	persistedAccounts, err := walletStorage.LoadAccounts()
	if err != nil {
		return nil, err
	}
	for _, persistedAccount := range persistedAccounts {
		wallet.accounts[persistedAccount.Index()] = persistedAccount
	}

	return wallet, nil
}

// Events returns the notifications the wallet emits while its state changes.
func (w *Wallet) Events() *Events {
	return w.events
}

// region mnemonic and secret store ////////////////////////////////////////////////////////////////////////////////////

// GenerateMnemonic creates a fresh mnemonic sentence. The caller is responsible for writing it down, the wallet
// does not keep it.
func (w *Wallet) GenerateMnemonic() (string, error) {
	return mnemonic.Generate()
}

// VerifyMnemonic checks that the given sentence is a valid mnemonic.
func (w *Wallet) VerifyMnemonic(sentence string) error {
	return mnemonic.Verify(sentence)
}

// StoreMnemonic derives the wallet seed from the mnemonic and seals it in the secret store under the given
// password. The store ends up initialized and unlocked.
func (w *Wallet) StoreMnemonic(sentence string, password []byte) error {
	seedBytes, err := mnemonic.Seed(sentence)
	if err != nil {
		return err
	}

	return w.secretStore.Init(seed.NewSeed(seedBytes), password)
}

// SetStrongholdPassword unlocks the secret store with the given password.
func (w *Wallet) SetStrongholdPassword(password []byte) error {
	return w.secretStore.Unlock(password)
}

// IsStrongholdPasswordAvailable returns true if the password is currently cached.
func (w *Wallet) IsStrongholdPasswordAvailable() bool {
	return w.secretManager.IsUnlocked()
}

// ClearStrongholdPassword wipes the cached password and locks the secret store.
func (w *Wallet) ClearStrongholdPassword() {
	w.secretManager.ClearPassword()
}

// ChangeStrongholdPassword re-seals the seed under a new password.
func (w *Wallet) ChangeStrongholdPassword(currentPassword, newPassword []byte) error {
	return w.secretStore.ChangePassword(currentPassword, newPassword)
}

// SetStrongholdPasswordClearInterval changes the period of inactivity after which the cached password is wiped.
func (w *Wallet) SetStrongholdPasswordClearInterval(clearInterval time.Duration) {
	w.secretManager.SetClearInterval(clearInterval)
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region accounts /////////////////////////////////////////////////////////////////////////////////////////////////////

// CreateAccount creates a new account with the given alias. The secret store needs to be unlocked because the
// account's first receive and remainder addresses are derived right away.
func (w *Wallet) CreateAccount(alias string) (acc *account.Account, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	nextIndex := uint32(0)
	for index, existingAccount := range w.accounts {
		if existingAccount.Alias() == alias {
			return nil, errors.Wrapf(ErrAliasInUse, "alias %q", alias)
		}
		if index >= nextIndex {
			nextIndex = index + 1
		}
	}

	baseIndex := accountBaseIndex(nextIndex)
	receiveAddress, err := w.secretStore.Address(baseIndex, false)
	if err != nil {
		return nil, err
	}
	remainderAddress, err := w.secretStore.Address(baseIndex, true)
	if err != nil {
		return nil, err
	}

	acc = account.New(nextIndex, alias)
	acc.AddAddress(receiveAddress)
	acc.AddAddress(remainderAddress)

	if err = w.storage.SaveAccount(acc); err != nil {
		return nil, err
	}
	w.accounts[nextIndex] = acc

	return acc, nil
}

// Account returns the account with the given index.
func (w *Wallet) Account(index uint32) (acc *account.Account, err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	acc, exists := w.accounts[index]
	if !exists {
		return nil, errors.Wrapf(ErrAccountNotFound, "index %d", index)
	}

	return acc, nil
}

// AccountByAlias returns the account with the given alias.
func (w *Wallet) AccountByAlias(alias string) (acc *account.Account, err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, existingAccount := range w.accounts {
		if existingAccount.Alias() == alias {
			return existingAccount, nil
		}
	}

	return nil, errors.Wrapf(ErrAccountNotFound, "alias %q", alias)
}

// Accounts returns all accounts of the wallet, sorted by their index.
func (w *Wallet) Accounts() (accounts []*account.Account) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	accounts = make([]*account.Account, 0, len(w.accounts))
	for _, acc := range w.accounts {
		accounts = append(accounts, acc)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Index() < accounts[j].Index()
	})

	return
}

// RemoveAccount drops the account with the given index from the wallet and its persisted snapshot from the store.
// The funds on its addresses are untouched and reappear when the account is recreated from the same seed.
func (w *Wallet) RemoveAccount(index uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.accounts[index]; !exists {
		return errors.Wrapf(ErrAccountNotFound, "index %d", index)
	}
	if err := w.storage.DeleteAccount(index); err != nil {
		return err
	}
	delete(w.accounts, index)

	return nil
}

// GenerateAddresses derives the next count receive addresses of the account. The secret store needs to be
// unlocked.
func (w *Wallet) GenerateAddresses(accountIndex uint32, count int) (addresses []address.Address, err error) {
	acc, err := w.Account(accountIndex)
	if err != nil {
		return nil, err
	}

	nextIndex := accountBaseIndex(accountIndex)
	if lastIndex, exists := acc.LastAddressIndex(false); exists {
		nextIndex = lastIndex + 1
	}

	for i := 0; i < count; i++ {
		addr, addrErr := w.secretStore.Address(nextIndex+uint64(i), false)
		if addrErr != nil {
			return nil, addrErr
		}
		acc.AddAddress(addr)
		addresses = append(addresses, addr)
	}

	w.persistAccount(acc)

	return
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region queries //////////////////////////////////////////////////////////////////////////////////////////////////////

// Balance returns the spendable balance of the account with the given index.
func (w *Wallet) Balance(accountIndex uint32) (balance ledger.Balances, err error) {
	acc, err := w.Account(accountIndex)
	if err != nil {
		return nil, err
	}

	return acc.Balance(), nil
}

// TotalBalance returns the spendable balance across all accounts.
func (w *Wallet) TotalBalance() (balance ledger.Balances) {
	balance = make(ledger.Balances)
	for _, acc := range w.Accounts() {
		balance.Add(acc.Balance())
	}

	return
}

// NodeInfo returns the identity and health information of the connected node.
func (w *Wallet) NodeInfo() (*connector.NodeInfo, error) {
	return w.connector.NodeInfo()
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region sync /////////////////////////////////////////////////////////////////////////////////////////////////////////

// SyncAccount reconciles the account with the node and returns a summary of the changes.
func (w *Wallet) SyncAccount(accountIndex uint32) (result *syncmanager.Result, err error) {
	acc, err := w.Account(accountIndex)
	if err != nil {
		return nil, err
	}

	result, err = w.syncer.SyncAccount(acc, w.addressProvider())
	if err != nil {
		return nil, err
	}
	w.consumeSyncResult(acc, result)

	return result, nil
}

// SyncAccounts reconciles every account with the node. A failing account does not keep the remaining accounts from
// syncing, the first error is returned after all accounts were attempted.
func (w *Wallet) SyncAccounts() (results map[uint32]*syncmanager.Result, err error) {
	results = make(map[uint32]*syncmanager.Result)
	for _, acc := range w.Accounts() {
		result, syncErr := w.syncer.SyncAccount(acc, w.addressProvider())
		if syncErr != nil {
			if err == nil {
				err = syncErr
			}

			continue
		}
		w.consumeSyncResult(acc, result)
		results[acc.Index()] = result
	}

	return
}

// StartBackgroundSync launches the periodic background sync of all accounts.
func (w *Wallet) StartBackgroundSync() {
	w.scheduler.Start()
}

// StopBackgroundSync terminates the periodic background sync.
func (w *Wallet) StopBackgroundSync() {
	w.scheduler.Stop()
}

// IsBackgroundSyncRunning returns true if the background sync loop is active.
func (w *Wallet) IsBackgroundSyncRunning() bool {
	return w.scheduler.IsRunning()
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region transfers ////////////////////////////////////////////////////////////////////////////////////////////////////

// SendFunds moves funds from the account to the destinations given in the options. The returned transaction is
// recorded as pending until the next sync observes its confirmation.
func (w *Wallet) SendFunds(accountIndex uint32, options ...sendoptions.SendFundsOption) (transaction *ledger.Transaction, err error) {
	acc, err := w.Account(accountIndex)
	if err != nil {
		return nil, err
	}

	transaction, err = w.transferManager.SendFunds(acc, w.secretStore, options...)
	if err != nil {
		return nil, err
	}

	w.persistAccount(acc)
	w.events.TransferSent.Trigger(&TransferSentEvent{
		AccountIndex: accountIndex,
		Transaction:  transaction,
	})

	return transaction, nil
}

// PrepareTransfer builds the unsigned essence of a transfer without locking inputs, signing or submitting. The
// essence can be inspected and later handed to SignTransfer.
func (w *Wallet) PrepareTransfer(accountIndex uint32, options ...sendoptions.SendFundsOption) (essence *ledger.TransactionEssence, err error) {
	acc, err := w.Account(accountIndex)
	if err != nil {
		return nil, err
	}

	return w.transferManager.PrepareTransfer(acc, options...)
}

// SignTransfer signs a prepared essence through the secret store and returns the signed transaction without
// submitting it.
func (w *Wallet) SignTransfer(accountIndex uint32, essence *ledger.TransactionEssence) (transaction *ledger.Transaction, err error) {
	acc, err := w.Account(accountIndex)
	if err != nil {
		return nil, err
	}

	return w.transferManager.SignTransfer(acc, w.secretStore, essence)
}

// ConsolidateFunds merges the spendable outputs of the account into a single output.
func (w *Wallet) ConsolidateFunds(accountIndex uint32, options ...consolidateoptions.ConsolidateFundsOption) (transaction *ledger.Transaction, err error) {
	acc, err := w.Account(accountIndex)
	if err != nil {
		return nil, err
	}

	transaction, err = w.transferManager.ConsolidateFunds(acc, w.secretStore, options...)
	if err != nil {
		return nil, err
	}

	w.persistAccount(acc)
	w.events.TransferSent.Trigger(&TransferSentEvent{
		AccountIndex: accountIndex,
		Transaction:  transaction,
	})

	return transaction, nil
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region backup ///////////////////////////////////////////////////////////////////////////////////////////////////////

// Backup exports the sealed seed and the account snapshots as one blob. The seed stays sealed under the wallet
// password, so the backup can be written to untrusted storage.
func (w *Wallet) Backup() ([]byte, error) {
	sealedSeed, err := w.secretStore.SealedSeed()
	if err != nil {
		return nil, err
	}

	accounts := w.Accounts()
	backup := marshalutil.New().
		WriteUint32(uint32(len(sealedSeed))).
		WriteBytes(sealedSeed).
		WriteUint32(uint32(len(accounts)))
	for _, acc := range accounts {
		accountBytes := acc.Bytes()
		backup.WriteUint32(uint32(len(accountBytes)))
		backup.WriteBytes(accountBytes)
	}

	return backup.Bytes(), nil
}

// RestoreBackup imports a backup blob. The password must open the sealed seed it contains, which leaves the secret
// store unlocked with the restored seed.
func (w *Wallet) RestoreBackup(backup, password []byte) error {
	backupUtil := marshalutil.New(backup)

	sealedSeedLength, err := backupUtil.ReadUint32()
	if err != nil {
		return errors.Errorf("failed to parse backup: %w", err)
	}
	sealedSeed, err := backupUtil.ReadBytes(int(sealedSeedLength))
	if err != nil {
		return errors.Errorf("failed to parse backup: %w", err)
	}
	if err = w.secretStore.RestoreSealedSeed(sealedSeed, password); err != nil {
		return err
	}

	accountCount, err := backupUtil.ReadUint32()
	if err != nil {
		return errors.Errorf("failed to parse backup: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for i := uint32(0); i < accountCount; i++ {
		accountLength, lengthErr := backupUtil.ReadUint32()
		if lengthErr != nil {
			return errors.Errorf("failed to parse backup: %w", lengthErr)
		}
		accountBytes, bytesErr := backupUtil.ReadBytes(int(accountLength))
		if bytesErr != nil {
			return errors.Errorf("failed to parse backup: %w", bytesErr)
		}
		restoredAccount, accountErr := account.FromBytes(accountBytes)
		if accountErr != nil {
			return accountErr
		}
		if err = w.storage.SaveAccount(restoredAccount); err != nil {
			return err
		}
		w.accounts[restoredAccount.Index()] = restoredAccount
	}

	return nil
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// accountBaseIndex returns the start of the derivation index range reserved for the account. Each account derives
// its addresses from its own slice of the index space, so accounts never share addresses.
func accountBaseIndex(accountIndex uint32) uint64 {
	return uint64(accountIndex) << 32
}

// Shutdown stops the background sync and locks the secret store.
func (w *Wallet) Shutdown() {
	w.scheduler.Stop()
	w.secretManager.ClearPassword()
}

// addressProvider exposes the secret store for address derivation while it is unlocked. A locked store yields nil,
// which degrades syncs to partial runs without address range probing.
func (w *Wallet) addressProvider() stronghold.AddressProvider {
	if !w.secretStore.IsUnlocked() {
		return nil
	}

	return w.secretStore
}

// consumeSyncResult persists the synced account and translates the sync summary into events.
func (w *Wallet) consumeSyncResult(acc *account.Account, result *syncmanager.Result) {
	w.persistAccount(acc)

	if result.NewOutputCount > 0 || result.SpentOutputCount > 0 {
		w.events.BalanceChanged.Trigger(&BalanceChangedEvent{
			AccountIndex: acc.Index(),
			Balance:      result.Balance,
		})
	}
	for _, transactionID := range result.ConfirmedTransactions {
		w.events.TransactionConfirmed.Trigger(&TransactionEvent{
			AccountIndex:  acc.Index(),
			TransactionID: transactionID,
		})
	}
	for _, transactionID := range result.InvalidatedTransactions {
		w.events.TransactionInvalidated.Trigger(&TransactionEvent{
			AccountIndex:  acc.Index(),
			TransactionID: transactionID,
		})
	}
}

// persistAccount writes the account snapshot to the store. Persistence failures are logged but do not fail the
// triggering operation, the snapshot is rewritten on the next state change.
func (w *Wallet) persistAccount(acc *account.Account) {
	if err := w.storage.SaveAccount(acc); err != nil {
		w.log.Warnf("failed to persist account %d: %s", acc.Index(), err)
	}
}
