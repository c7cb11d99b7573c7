package account

import (
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/bitmask"
	"github.com/iotaledger/hive.go/marshalutil"
	"github.com/iotaledger/hive.go/stringify"

	"github.com/iotaledger/wallet.go/packages/address"
	"github.com/iotaledger/wallet.go/packages/ledger"
)

// region errors ///////////////////////////////////////////////////////////////////////////////////////////////////////

var (
	// ErrOutputNotFound is returned when an operation refers to an output the account does not track.
	ErrOutputNotFound = errors.New("output not found in account")

	// ErrOutputLocked is returned when an output can not be locked because it is already locked or spent.
	ErrOutputLocked = errors.New("output is already locked or spent")

	// ErrOutputNotLocked is returned when a transaction result refers to inputs that were not locked beforehand.
	ErrOutputNotLocked = errors.New("output is not locked")

	// ErrTransactionNotFound is returned when an operation refers to a transaction the account does not track.
	ErrTransactionNotFound = errors.New("transaction not found in account")
)

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region Address //////////////////////////////////////////////////////////////////////////////////////////////////////

// Address is an address tracked by an account together with its cached funding state.
type Address struct {
	address.Address

	// HasUnspentOutputs caches whether the address currently holds unspent outputs. It is refreshed by every state
	// mutation of the account.
	HasUnspentOutputs bool
}

// AddressFromMarshalUtil unmarshals an Address using a MarshalUtil (for easier unmarshaling).
func AddressFromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (addr Address, err error) {
	if addr.Address, err = address.FromMarshalUtil(marshalUtil); err != nil {
		return
	}
	if addr.HasUnspentOutputs, err = marshalUtil.ReadBool(); err != nil {
		err = errors.Errorf("failed to parse unspent outputs flag: %w", err)
		return
	}

	return
}

// Bytes returns a marshaled version of the Address.
func (a Address) Bytes() []byte {
	return marshalutil.New().
		WriteBytes(a.Address.Bytes()).
		WriteBool(a.HasUnspentOutputs).
		Bytes()
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region SyncDiff /////////////////////////////////////////////////////////////////////////////////////////////////////

// SyncDiff describes the delta between the node's view of the account's addresses and the locally tracked state. It
// is produced by the sync engine and applied atomically to the account.
type SyncDiff struct {
	// NewOutputs are unspent outputs reported by the node that the account does not track yet.
	NewOutputs []*ledger.Output

	// SpentOutputs maps tracked outputs that are no longer reported as unspent to the transaction that consumed
	// them. The spender is the EmptyTransactionID if the node could not name it. Outputs locked by a pending
	// transaction may only appear here after the node denied knowing that transaction, otherwise a fresh
	// submission would race its own confirmation.
	SpentOutputs map[ledger.OutputID]ledger.TransactionID

	// ConfirmedTransactions are pending transactions of the account that the node reports as confirmed.
	ConfirmedTransactions []ledger.TransactionID

	// DiscoveredAddresses are addresses beyond the account's known range that turned out to hold outputs.
	DiscoveredAddresses []Address
}

// IsEmpty returns true if applying the diff would not change the account state.
func (s *SyncDiff) IsEmpty() bool {
	return len(s.NewOutputs) == 0 && len(s.SpentOutputs) == 0 && len(s.ConfirmedTransactions) == 0 && len(s.DiscoveredAddresses) == 0
}

// SyncResult summarizes the state changes caused by applying a SyncDiff.
type SyncResult struct {
	// NewOutputCount is the number of outputs that entered the account as unspent.
	NewOutputCount int

	// SpentOutputCount is the number of outputs that transitioned to spent.
	SpentOutputCount int

	// ConfirmedTransactions are the pending transactions that transitioned to confirmed.
	ConfirmedTransactions []ledger.TransactionID

	// InvalidatedTransactions are the pending transactions that were invalidated because another transaction
	// consumed one of their inputs.
	InvalidatedTransactions []ledger.TransactionID

	// Balance is the spendable balance of the account after the diff was applied.
	Balance ledger.Balances
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region Account //////////////////////////////////////////////////////////////////////////////////////////////////////

// Account tracks the addresses, outputs and transactions that belong to one seed-derived address range. All state
// mutations run under a single writer lock, which makes the account the serialization point for concurrent
// transfers.
type Account struct {
	index uint32
	alias string

	mu               sync.RWMutex
	addresses        []Address
	spentAddresses   []bitmask.BitMask
	outputs          map[ledger.OutputID]*Output
	transactions     map[ledger.TransactionID]*Transaction
	lastAddressIndex map[bool]uint64
}

// New creates an empty Account with the given index and alias.
func New(index uint32, alias string) *Account {
	return &Account{
		index:            index,
		alias:            alias,
		outputs:          make(map[ledger.OutputID]*Output),
		transactions:     make(map[ledger.TransactionID]*Transaction),
		lastAddressIndex: make(map[bool]uint64),
	}
}

// FromMarshalUtil unmarshals an Account snapshot using a MarshalUtil (for easier unmarshaling).
func FromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (account *Account, err error) {
	account = &Account{
		outputs:          make(map[ledger.OutputID]*Output),
		transactions:     make(map[ledger.TransactionID]*Transaction),
		lastAddressIndex: make(map[bool]uint64),
	}
	if account.index, err = marshalUtil.ReadUint32(); err != nil {
		err = errors.Errorf("failed to parse account index: %w", err)
		return
	}
	aliasLength, err := marshalUtil.ReadUint16()
	if err != nil {
		err = errors.Errorf("failed to parse alias length: %w", err)
		return
	}
	aliasBytes, err := marshalUtil.ReadBytes(int(aliasLength))
	if err != nil {
		err = errors.Errorf("failed to parse alias: %w", err)
		return
	}
	account.alias = string(aliasBytes)

	addressCount, err := marshalUtil.ReadUint32()
	if err != nil {
		err = errors.Errorf("failed to parse address count: %w", err)
		return
	}
	for i := uint32(0); i < addressCount; i++ {
		addr, addrErr := AddressFromMarshalUtil(marshalUtil)
		if addrErr != nil {
			err = addrErr
			return
		}
		account.addresses = append(account.addresses, addr)
		account.trackAddressIndex(addr.Address)
	}

	spentAddressesLength, err := marshalUtil.ReadUint32()
	if err != nil {
		err = errors.Errorf("failed to parse spent address bitmask length: %w", err)
		return
	}
	spentAddressesBytes, err := marshalUtil.ReadBytes(int(spentAddressesLength))
	if err != nil {
		err = errors.Errorf("failed to parse spent address bitmask: %w", err)
		return
	}
	account.spentAddresses = make([]bitmask.BitMask, spentAddressesLength)
	for i, spentAddressesByte := range spentAddressesBytes {
		account.spentAddresses[i] = bitmask.BitMask(spentAddressesByte)
	}

	outputCount, err := marshalUtil.ReadUint32()
	if err != nil {
		err = errors.Errorf("failed to parse output count: %w", err)
		return
	}
	for i := uint32(0); i < outputCount; i++ {
		output, outputErr := OutputFromMarshalUtil(marshalUtil)
		if outputErr != nil {
			err = outputErr
			return
		}
		account.outputs[output.Object.ID] = output
	}

	transactionCount, err := marshalUtil.ReadUint32()
	if err != nil {
		err = errors.Errorf("failed to parse transaction count: %w", err)
		return
	}
	for i := uint32(0); i < transactionCount; i++ {
		transaction, transactionErr := TransactionFromMarshalUtil(marshalUtil)
		if transactionErr != nil {
			err = transactionErr
			return
		}
		account.transactions[transaction.ID()] = transaction
	}

	return
}

// FromBytes unmarshals an Account snapshot from a sequence of bytes.
func FromBytes(bytes []byte) (account *Account, err error) {
	return FromMarshalUtil(marshalutil.New(bytes))
}

// Index returns the index of the account within the wallet.
func (a *Account) Index() uint32 {
	return a.index
}

// Alias returns the human readable name of the account.
func (a *Account) Alias() string {
	return a.alias
}

// SetAlias renames the account.
func (a *Account) SetAlias(alias string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.alias = alias
}

// AddAddress registers a newly derived address with the account. Adding the same address twice is a no-op.
func (a *Account) AddAddress(addr address.Address) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.addAddress(addr)
}

// Addresses returns a copy of all addresses tracked by the account.
func (a *Account) Addresses() (addresses []Address) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	addresses = make([]Address, len(a.addresses))
	copy(addresses, a.addresses)

	return
}

// AddressesWithUnspentOutputs returns the addresses that currently hold unspent outputs.
func (a *Account) AddressesWithUnspentOutputs() (addresses []Address) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, addr := range a.addresses {
		if addr.HasUnspentOutputs {
			addresses = append(addresses, addr)
		}
	}

	return
}

// ReceiveAddress returns the most recently derived external address of the account.
func (a *Account) ReceiveAddress() (addr address.Address, exists bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for i := len(a.addresses) - 1; i >= 0; i-- {
		if !a.addresses[i].Internal {
			return a.addresses[i].Address, true
		}
	}

	return
}

// RemainderAddress returns the most recently derived internal address, falling back to the receive address if the
// account never derived an internal one.
func (a *Account) RemainderAddress() (addr address.Address, exists bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for i := len(a.addresses) - 1; i >= 0; i-- {
		if a.addresses[i].Internal {
			return a.addresses[i].Address, true
		}
	}
	for i := len(a.addresses) - 1; i >= 0; i-- {
		if !a.addresses[i].Internal {
			return a.addresses[i].Address, true
		}
	}

	return
}

// LastAddressIndex returns the highest derived address index of the given chain and whether any address of that
// chain exists at all.
func (a *Account) LastAddressIndex(internal bool) (index uint64, exists bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	index, exists = a.lastAddressIndex[internal]

	return
}

// MarkAddressSpent remembers that the address with the given index has been used as a transaction input.
func (a *Account) MarkAddressSpent(addressIndex uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.markAddressSpent(addressIndex)
}

// IsAddressSpent returns true if the address with the given index was ever used as a transaction input.
func (a *Account) IsAddressSpent(addressIndex uint64) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	sliceIndex := int(addressIndex / 8)
	if sliceIndex >= len(a.spentAddresses) {
		return false
	}

	return a.spentAddresses[sliceIndex].HasBit(uint(addressIndex % 8))
}

// Output returns a copy of the tracked output with the given ID.
func (a *Account) Output(outputID ledger.OutputID) (output *Output, exists bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	trackedOutput, exists := a.outputs[outputID]
	if !exists {
		return
	}

	return trackedOutput.Clone(), true
}

// Outputs returns copies of all tracked outputs, sorted by their ID.
func (a *Account) Outputs() (outputs []*Output) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	outputs = make([]*Output, 0, len(a.outputs))
	for _, output := range a.outputs {
		outputs = append(outputs, output.Clone())
	}
	sortOutputs(outputs)

	return
}

// UnspentOutputs returns copies of the outputs that are available to fund transfers, sorted by their ID. Locked
// outputs are excluded.
func (a *Account) UnspentOutputs() (outputs []*Output) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, output := range a.outputs {
		if output.State == OutputStateUnspent {
			outputs = append(outputs, output.Clone())
		}
	}
	sortOutputs(outputs)

	return
}

// Balance returns the total spendable balance of the account per token class. Locked and spent outputs do not
// contribute.
func (a *Account) Balance() (balance ledger.Balances) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.balance()
}

// Transaction returns a copy of the tracked transaction with the given ID.
func (a *Account) Transaction(transactionID ledger.TransactionID) (transaction *Transaction, exists bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	trackedTransaction, exists := a.transactions[transactionID]
	if !exists {
		return nil, false
	}

	return trackedTransaction.Clone(), true
}

// Transactions returns copies of all tracked transactions, sorted by their timestamp.
func (a *Account) Transactions() (transactions []*Transaction) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	transactions = make([]*Transaction, 0, len(a.transactions))
	for _, transaction := range a.transactions {
		transactions = append(transactions, transaction.Clone())
	}
	sort.Slice(transactions, func(i, j int) bool {
		if transactions[i].Timestamp.Equal(transactions[j].Timestamp) {
			return transactions[i].ID().Base58() < transactions[j].ID().Base58()
		}

		return transactions[i].Timestamp.Before(transactions[j].Timestamp)
	})

	return
}

// PendingTransactions returns the transactions that were submitted but not yet confirmed.
func (a *Account) PendingTransactions() (transactions []*Transaction) {
	for _, transaction := range a.Transactions() {
		if transaction.State == TransactionStatePending {
			transactions = append(transactions, transaction)
		}
	}

	return
}

// LockOutputs atomically reserves the given outputs for the given transaction. Either all outputs are locked or, if
// a single one is unavailable, none are and an error is returned. This is the mechanism that keeps concurrent
// transfers from double spending each other's inputs.
func (a *Account) LockOutputs(outputIDs []ledger.OutputID, transactionID ledger.TransactionID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, outputID := range outputIDs {
		output, exists := a.outputs[outputID]
		if !exists {
			return errors.Wrapf(ErrOutputNotFound, "output %s", outputID.Base58())
		}
		if output.State != OutputStateUnspent {
			return errors.Wrapf(ErrOutputLocked, "output %s is %s", outputID.Base58(), output.State)
		}
	}

	for _, outputID := range outputIDs {
		output := a.outputs[outputID]
		output.State = OutputStateLocked
		output.PendingTransactionID = transactionID
	}
	a.refreshAddressStates()

	return nil
}

// ReleaseOutputs reverts the locks held by the given transaction, returning its inputs to the spendable set. Outputs
// that already transitioned to spent stay spent.
func (a *Account) ReleaseOutputs(transactionID ledger.TransactionID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.releaseOutputs(transactionID)
	a.refreshAddressStates()
}

// RecordPendingTransaction registers a successfully submitted transaction. Its inputs must have been locked through
// LockOutputs beforehand and remain locked until the transaction confirms or is invalidated.
func (a *Account) RecordPendingTransaction(transaction *ledger.Transaction) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	transactionID := transaction.ID()
	for _, inputID := range transaction.Essence().Inputs() {
		output, exists := a.outputs[inputID]
		if !exists {
			return errors.Wrapf(ErrOutputNotFound, "input %s", inputID.Base58())
		}
		if output.State != OutputStateLocked || output.PendingTransactionID != transactionID {
			return errors.Wrapf(ErrOutputNotLocked, "input %s is not locked by transaction %s", inputID.Base58(), transactionID.Base58())
		}
	}

	a.transactions[transactionID] = &Transaction{
		Transaction: transaction,
		State:       TransactionStatePending,
		Timestamp:   time.Now(),
	}
	for _, inputID := range transaction.Essence().Inputs() {
		a.markAddressSpent(a.outputs[inputID].Object.Address.Index)
	}

	return nil
}

// ConfirmTransaction transitions a pending transaction to confirmed: its inputs become spent and the created
// outputs that belong to the account's addresses enter the spendable set. Confirming an already confirmed
// transaction is a no-op.
func (a *Account) ConfirmTransaction(transactionID ledger.TransactionID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.confirmTransaction(transactionID); err != nil {
		return err
	}
	a.refreshAddressStates()

	return nil
}

// FailTransaction marks a submitted transaction as failed and releases the locks it held.
func (a *Account) FailTransaction(transactionID ledger.TransactionID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	transaction, exists := a.transactions[transactionID]
	if !exists {
		return errors.Wrapf(ErrTransactionNotFound, "transaction %s", transactionID.Base58())
	}
	if transaction.State == TransactionStatePending {
		transaction.State = TransactionStateFailed
		a.releaseOutputs(transactionID)
		a.refreshAddressStates()
	}

	return nil
}

// ApplySyncDiff folds the node reported delta into the account state. The application is atomic and idempotent:
// applying the same diff twice yields the same state as applying it once.
//
// An output that vanished from the node's unspent set while being locked by one of our pending transactions means
// the pending transaction lost a double spend: it is invalidated, which releases its remaining locks. The sync
// engine makes sure our own pending spends never show up in SpentOutputs while the node still tracks them.
func (a *Account) ApplySyncDiff(diff *SyncDiff) (result *SyncResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	result = &SyncResult{}

	for _, addr := range diff.DiscoveredAddresses {
		a.addAddress(addr.Address)
	}

	for _, newOutput := range diff.NewOutputs {
		if _, exists := a.outputs[newOutput.ID]; exists {
			continue
		}
		a.outputs[newOutput.ID] = &Output{
			Object: newOutput.Clone(),
			State:  OutputStateUnspent,
		}
		result.NewOutputCount++
	}

	for _, transactionID := range diff.ConfirmedTransactions {
		if transaction, exists := a.transactions[transactionID]; exists && transaction.State == TransactionStatePending {
			if err := a.confirmTransaction(transactionID); err == nil {
				result.ConfirmedTransactions = append(result.ConfirmedTransactions, transactionID)
			}
		}
	}

	for _, outputID := range sortedOutputIDs(diff.SpentOutputs) {
		spender := diff.SpentOutputs[outputID]
		output, exists := a.outputs[outputID]
		if !exists {
			continue
		}

		switch output.State {
		case OutputStateSpent:
			// already folded in by an earlier sync

		case OutputStateUnspent:
			output.State = OutputStateSpent
			output.SpendingTransactionID = spender
			result.SpentOutputCount++

		case OutputStateLocked:
			if spender == output.PendingTransactionID {
				// consumed by our own pending transaction, which the confirmation check resolves
				continue
			}
			invalidatedID := output.PendingTransactionID
			if transaction, transactionExists := a.transactions[invalidatedID]; transactionExists && transaction.State == TransactionStatePending {
				transaction.State = TransactionStateInvalidated
				result.InvalidatedTransactions = append(result.InvalidatedTransactions, invalidatedID)
			}
			output.State = OutputStateSpent
			output.SpendingTransactionID = spender
			output.PendingTransactionID = ledger.EmptyTransactionID
			a.releaseOutputs(invalidatedID)
			result.SpentOutputCount++
		}
	}

	a.refreshAddressStates()
	result.Balance = a.balance()

	return
}

// Bytes returns a marshaled snapshot of the complete account state.
func (a *Account) Bytes() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()

	marshalUtil := marshalutil.New().
		WriteUint32(a.index).
		WriteUint16(uint16(len(a.alias))).
		WriteBytes([]byte(a.alias))

	marshalUtil.WriteUint32(uint32(len(a.addresses)))
	for _, addr := range a.addresses {
		marshalUtil.WriteBytes(addr.Bytes())
	}

	marshalUtil.WriteUint32(uint32(len(a.spentAddresses)))
	for _, spentAddresses := range a.spentAddresses {
		marshalUtil.WriteByte(byte(spentAddresses))
	}

	outputs := make([]*Output, 0, len(a.outputs))
	for _, output := range a.outputs {
		outputs = append(outputs, output)
	}
	sortOutputs(outputs)
	marshalUtil.WriteUint32(uint32(len(outputs)))
	for _, output := range outputs {
		marshalUtil.WriteBytes(output.Bytes())
	}

	transactions := make([]*Transaction, 0, len(a.transactions))
	for _, transaction := range a.transactions {
		transactions = append(transactions, transaction)
	}
	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].ID().Base58() < transactions[j].ID().Base58()
	})
	marshalUtil.WriteUint32(uint32(len(transactions)))
	for _, transaction := range transactions {
		marshalUtil.WriteBytes(transaction.Bytes())
	}

	return marshalUtil.Bytes()
}

// String returns a human-readable representation of the Account.
func (a *Account) String() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return stringify.Struct("Account",
		stringify.StructField("index", a.index),
		stringify.StructField("alias", a.alias),
		stringify.StructField("addressCount", len(a.addresses)),
		stringify.StructField("outputCount", len(a.outputs)),
		stringify.StructField("transactionCount", len(a.transactions)),
	)
}

// addAddress registers an address without acquiring the lock.
func (a *Account) addAddress(addr address.Address) {
	for _, existing := range a.addresses {
		if existing.Address.Equals(addr) {
			return
		}
	}
	a.addresses = append(a.addresses, Address{Address: addr})
	a.trackAddressIndex(addr)
}

func (a *Account) trackAddressIndex(addr address.Address) {
	if last, exists := a.lastAddressIndex[addr.Internal]; !exists || addr.Index > last {
		a.lastAddressIndex[addr.Internal] = addr.Index
	}
}

// markAddressSpent sets the spent bit of the given address index without acquiring the lock.
func (a *Account) markAddressSpent(addressIndex uint64) {
	sliceIndex := int(addressIndex / 8)
	for sliceIndex >= len(a.spentAddresses) {
		a.spentAddresses = append(a.spentAddresses, bitmask.BitMask(0))
	}
	a.spentAddresses[sliceIndex] = a.spentAddresses[sliceIndex].SetBit(uint(addressIndex % 8))
}

// confirmTransaction transitions a pending transaction to confirmed without acquiring the lock.
func (a *Account) confirmTransaction(transactionID ledger.TransactionID) error {
	transaction, exists := a.transactions[transactionID]
	if !exists {
		return errors.Wrapf(ErrTransactionNotFound, "transaction %s", transactionID.Base58())
	}
	if transaction.State == TransactionStateConfirmed {
		return nil
	}
	transaction.State = TransactionStateConfirmed

	for _, inputID := range transaction.Transaction.Essence().Inputs() {
		input, inputExists := a.outputs[inputID]
		if !inputExists {
			continue
		}
		input.State = OutputStateSpent
		input.SpendingTransactionID = transactionID
		input.PendingTransactionID = ledger.EmptyTransactionID
	}

	for _, createdOutput := range transaction.Transaction.Essence().Outputs() {
		if !a.ownsAddress(createdOutput.Address) {
			continue
		}
		if _, outputExists := a.outputs[createdOutput.ID]; outputExists {
			continue
		}
		a.outputs[createdOutput.ID] = &Output{
			Object: createdOutput.Clone(),
			State:  OutputStateUnspent,
		}
	}

	return nil
}

// releaseOutputs reverts the locks of the given transaction without acquiring the lock.
func (a *Account) releaseOutputs(transactionID ledger.TransactionID) {
	for _, output := range a.outputs {
		if output.State == OutputStateLocked && output.PendingTransactionID == transactionID {
			output.State = OutputStateUnspent
			output.PendingTransactionID = ledger.EmptyTransactionID
		}
	}
}

// balance sums the unspent outputs without acquiring the lock.
func (a *Account) balance() (balance ledger.Balances) {
	balance = make(ledger.Balances)
	for _, output := range a.outputs {
		if output.State == OutputStateUnspent {
			balance.Add(output.Object.Balances)
		}
	}

	return
}

// ownsAddress reports whether the given address belongs to the account, without acquiring the lock.
func (a *Account) ownsAddress(addr address.Address) bool {
	for _, existing := range a.addresses {
		if existing.Address.Equals(addr) {
			return true
		}
	}

	return false
}

// refreshAddressStates recomputes the cached unspent outputs flags without acquiring the lock.
func (a *Account) refreshAddressStates() {
	unspentAddresses := make(map[[address.Length]byte]bool)
	for _, output := range a.outputs {
		if output.State != OutputStateSpent {
			unspentAddresses[output.Object.Address.AddressBytes] = true
		}
	}
	for i := range a.addresses {
		a.addresses[i].HasUnspentOutputs = unspentAddresses[a.addresses[i].AddressBytes]
	}
}

func sortOutputs(outputs []*Output) {
	sort.Slice(outputs, func(i, j int) bool {
		return outputs[i].Object.ID.Base58() < outputs[j].Object.ID.Base58()
	})
}

func sortedOutputIDs(outputs map[ledger.OutputID]ledger.TransactionID) (outputIDs []ledger.OutputID) {
	outputIDs = make([]ledger.OutputID, 0, len(outputs))
	for outputID := range outputs {
		outputIDs = append(outputIDs, outputID)
	}
	sort.Slice(outputIDs, func(i, j int) bool {
		return outputIDs[i].Base58() < outputIDs[j].Base58()
	})

	return
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////
