package account

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotaledger/hive.go/crypto/ed25519"

	"github.com/iotaledger/wallet.go/packages/ledger"
	"github.com/iotaledger/wallet.go/packages/seed"
)

func TestLockOutputsIsAtomic(t *testing.T) {
	acc, outputs := testAccount(t, 3)

	lockingTransactionID := testTransactionID(1)
	require.NoError(t, acc.LockOutputs([]ledger.OutputID{outputs[0].ID, outputs[1].ID}, lockingTransactionID))

	// a second lock attempt that overlaps the first one must fail without locking anything
	err := acc.LockOutputs([]ledger.OutputID{outputs[1].ID, outputs[2].ID}, testTransactionID(2))
	assert.ErrorIs(t, err, ErrOutputLocked)
	remainingOutput, exists := acc.Output(outputs[2].ID)
	require.True(t, exists)
	assert.Equal(t, OutputStateUnspent, remainingOutput.State)

	// locked outputs do not contribute to the spendable balance
	assert.EqualValues(t, 100, acc.Balance()[ledger.BaseToken])

	acc.ReleaseOutputs(lockingTransactionID)
	assert.EqualValues(t, 300, acc.Balance()[ledger.BaseToken])
}

func TestConcurrentLocking(t *testing.T) {
	acc, outputs := testAccount(t, 1)

	// many transfers race for the same output, exactly one wins
	var successCount int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if acc.LockOutputs([]ledger.OutputID{outputs[0].ID}, testTransactionID(byte(i+1))) == nil {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, successCount)
}

func TestBalanceInvariant(t *testing.T) {
	acc, outputs := testAccount(t, 4)

	expectedBalance := func() (balance uint64) {
		for _, output := range acc.Outputs() {
			if output.State == OutputStateUnspent {
				balance += output.Object.Amount(ledger.BaseToken)
			}
		}

		return
	}

	assert.Equal(t, expectedBalance(), acc.Balance()[ledger.BaseToken])

	require.NoError(t, acc.LockOutputs([]ledger.OutputID{outputs[0].ID}, testTransactionID(1)))
	assert.Equal(t, expectedBalance(), acc.Balance()[ledger.BaseToken])

	acc.ApplySyncDiff(&SyncDiff{
		SpentOutputs: map[ledger.OutputID]ledger.TransactionID{outputs[1].ID: testTransactionID(9)},
	})
	assert.Equal(t, expectedBalance(), acc.Balance()[ledger.BaseToken])
}

func TestApplySyncDiffIsIdempotent(t *testing.T) {
	acc, _ := testAccount(t, 2)
	walletSeed := seed.NewSeed()

	newOutput := ledger.NewOutput(walletSeed.Address(5, false), ledger.Balances{ledger.BaseToken: 500})
	newOutput.ID = ledger.NewOutputID(testTransactionID(7), 0)

	diff := &SyncDiff{
		NewOutputs:          []*ledger.Output{newOutput},
		SpentOutputs:        map[ledger.OutputID]ledger.TransactionID{},
		DiscoveredAddresses: []Address{{Address: newOutput.Address}},
	}

	firstResult := acc.ApplySyncDiff(diff)
	assert.Equal(t, 1, firstResult.NewOutputCount)

	secondResult := acc.ApplySyncDiff(diff)
	assert.Equal(t, 0, secondResult.NewOutputCount)
	assert.Equal(t, firstResult.Balance, secondResult.Balance)
}

func TestDoubleSpendInvalidatesPendingTransaction(t *testing.T) {
	acc, outputs := testAccount(t, 2)

	pendingTransaction := testTransaction(acc, outputs[0], outputs[1])
	pendingTransactionID := pendingTransaction.ID()
	require.NoError(t, acc.LockOutputs(pendingTransaction.Essence().Inputs(), pendingTransactionID))
	require.NoError(t, acc.RecordPendingTransaction(pendingTransaction))

	// the node reports the first input as consumed by a different transaction
	result := acc.ApplySyncDiff(&SyncDiff{
		SpentOutputs: map[ledger.OutputID]ledger.TransactionID{outputs[0].ID: testTransactionID(200)},
	})

	assert.Equal(t, []ledger.TransactionID{pendingTransactionID}, result.InvalidatedTransactions)

	invalidatedTransaction, exists := acc.Transaction(pendingTransactionID)
	require.True(t, exists)
	assert.Equal(t, TransactionStateInvalidated, invalidatedTransaction.State)

	// the lost input is spent, the other input is spendable again
	spentOutput, _ := acc.Output(outputs[0].ID)
	assert.Equal(t, OutputStateSpent, spentOutput.State)
	releasedOutput, _ := acc.Output(outputs[1].ID)
	assert.Equal(t, OutputStateUnspent, releasedOutput.State)
}

func TestConfirmTransaction(t *testing.T) {
	acc, outputs := testAccount(t, 2)

	pendingTransaction := testTransaction(acc, outputs[0], outputs[1])
	pendingTransactionID := pendingTransaction.ID()
	require.NoError(t, acc.LockOutputs(pendingTransaction.Essence().Inputs(), pendingTransactionID))
	require.NoError(t, acc.RecordPendingTransaction(pendingTransaction))

	result := acc.ApplySyncDiff(&SyncDiff{
		ConfirmedTransactions: []ledger.TransactionID{pendingTransactionID},
		SpentOutputs:          map[ledger.OutputID]ledger.TransactionID{},
	})
	assert.Equal(t, []ledger.TransactionID{pendingTransactionID}, result.ConfirmedTransactions)

	confirmedTransaction, _ := acc.Transaction(pendingTransactionID)
	assert.Equal(t, TransactionStateConfirmed, confirmedTransaction.State)

	for _, consumedOutput := range outputs {
		trackedOutput, _ := acc.Output(consumedOutput.ID)
		assert.Equal(t, OutputStateSpent, trackedOutput.State)
		assert.Equal(t, pendingTransactionID, trackedOutput.SpendingTransactionID)
	}

	// the created output lands on one of our addresses and becomes spendable
	assert.EqualValues(t, 200, acc.Balance()[ledger.BaseToken])
}

func TestTransactionAccessorsReturnCopies(t *testing.T) {
	acc, outputs := testAccount(t, 2)

	pendingTransaction := testTransaction(acc, outputs[0], outputs[1])
	pendingTransactionID := pendingTransaction.ID()
	require.NoError(t, acc.LockOutputs(pendingTransaction.Essence().Inputs(), pendingTransactionID))
	require.NoError(t, acc.RecordPendingTransaction(pendingTransaction))

	// readers hold snapshots, confirming the transaction must not reach into them
	snapshot, exists := acc.Transaction(pendingTransactionID)
	require.True(t, exists)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			for _, transaction := range acc.Transactions() {
				_ = transaction.State
			}
			for _, transaction := range acc.PendingTransactions() {
				_ = transaction.State
			}
		}
	}()

	acc.ApplySyncDiff(&SyncDiff{
		ConfirmedTransactions: []ledger.TransactionID{pendingTransactionID},
		SpentOutputs:          map[ledger.OutputID]ledger.TransactionID{},
	})
	close(stop)
	wg.Wait()

	assert.Equal(t, TransactionStatePending, snapshot.State)
	confirmedTransaction, _ := acc.Transaction(pendingTransactionID)
	assert.Equal(t, TransactionStateConfirmed, confirmedTransaction.State)
}

func TestRecordPendingTransactionRequiresLocks(t *testing.T) {
	acc, outputs := testAccount(t, 2)

	pendingTransaction := testTransaction(acc, outputs[0], outputs[1])
	assert.ErrorIs(t, acc.RecordPendingTransaction(pendingTransaction), ErrOutputNotLocked)
}

func TestSnapshotRoundTrip(t *testing.T) {
	acc, outputs := testAccount(t, 3)

	pendingTransaction := testTransaction(acc, outputs[0], outputs[1])
	require.NoError(t, acc.LockOutputs(pendingTransaction.Essence().Inputs(), pendingTransaction.ID()))
	require.NoError(t, acc.RecordPendingTransaction(pendingTransaction))
	acc.MarkAddressSpent(0)

	restoredAccount, err := FromBytes(acc.Bytes())
	require.NoError(t, err)

	assert.Equal(t, acc.Index(), restoredAccount.Index())
	assert.Equal(t, acc.Alias(), restoredAccount.Alias())
	assert.Equal(t, acc.Balance(), restoredAccount.Balance())
	assert.Len(t, restoredAccount.Outputs(), len(acc.Outputs()))
	assert.Len(t, restoredAccount.Transactions(), 1)
	assert.True(t, restoredAccount.IsAddressSpent(0))
	assert.False(t, restoredAccount.IsAddressSpent(5))

	restoredTransaction, exists := restoredAccount.Transaction(pendingTransaction.ID())
	require.True(t, exists)
	assert.Equal(t, TransactionStatePending, restoredTransaction.State)
}

// testAccount creates an account tracking outputCount unspent outputs of 100 base tokens each.
func testAccount(t *testing.T, outputCount int) (acc *Account, outputs []*ledger.Output) {
	t.Helper()

	walletSeed := seed.NewSeed()
	acc = New(0, "test")

	diff := &SyncDiff{SpentOutputs: map[ledger.OutputID]ledger.TransactionID{}}
	for i := 0; i < outputCount; i++ {
		addr := walletSeed.Address(uint64(i), false)
		acc.AddAddress(addr)

		output := ledger.NewOutput(addr, ledger.Balances{ledger.BaseToken: 100})
		output.ID = ledger.NewOutputID(testTransactionID(byte(100+i)), 0)
		output.Timestamp = time.Now()
		diff.NewOutputs = append(diff.NewOutputs, output)
	}
	acc.ApplySyncDiff(diff)

	outputs = diff.NewOutputs

	return
}

// testTransaction builds an unsigned transaction that merges the two outputs onto the account's first address.
func testTransaction(acc *Account, input1, input2 *ledger.Output) *ledger.Transaction {
	destination := acc.Addresses()[0]
	essence := ledger.NewTransactionEssence(
		[]ledger.OutputID{input1.ID, input2.ID},
		[]*ledger.Output{ledger.NewOutput(destination.Address, ledger.Balances{ledger.BaseToken: 200})},
	)

	// the account state does not verify signatures, empty unlock blocks are good enough here
	return ledger.NewTransaction(essence, []ledger.UnlockBlock{
		ledger.NewSignatureUnlockBlock(ed25519.PublicKey{}, ed25519.Signature{}),
		ledger.NewReferenceUnlockBlock(0),
	})
}

func testTransactionID(firstByte byte) (transactionID ledger.TransactionID) {
	transactionID[0] = firstByte

	return
}
