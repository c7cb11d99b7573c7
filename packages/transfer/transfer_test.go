package transfer

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/crypto/ed25519"
	"github.com/iotaledger/hive.go/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotaledger/wallet.go/packages/account"
	"github.com/iotaledger/wallet.go/packages/connector"
	"github.com/iotaledger/wallet.go/packages/consolidateoptions"
	"github.com/iotaledger/wallet.go/packages/ledger"
	"github.com/iotaledger/wallet.go/packages/seed"
	"github.com/iotaledger/wallet.go/packages/sendoptions"
)

func TestSelectOutputs(t *testing.T) {
	outputs := []*account.Output{
		testOutput(1, ledger.Balances{ledger.BaseToken: 1000}),
		testOutput(2, ledger.Balances{ledger.BaseToken: 500}),
		testOutput(3, ledger.Balances{ledger.BaseToken: 300}),
	}

	// a single output holding the exact amount wins over the greedy pick
	selectedOutputs, err := SelectOutputs(outputs, ledger.Balances{ledger.BaseToken: 500})
	require.NoError(t, err)
	require.Len(t, selectedOutputs, 1)
	assert.Equal(t, outputs[1].Object.ID, selectedOutputs[0].Object.ID)

	// without an exact match the largest outputs are consumed first
	selectedOutputs, err = SelectOutputs(outputs, ledger.Balances{ledger.BaseToken: 1200})
	require.NoError(t, err)
	require.Len(t, selectedOutputs, 2)
	assert.Equal(t, outputs[0].Object.ID, selectedOutputs[0].Object.ID)
	assert.Equal(t, outputs[1].Object.ID, selectedOutputs[1].Object.ID)

	_, err = SelectOutputs(outputs, ledger.Balances{ledger.BaseToken: 2000})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestSelectOutputsIsDeterministic(t *testing.T) {
	outputs := []*account.Output{
		testOutput(5, ledger.Balances{ledger.BaseToken: 400}),
		testOutput(4, ledger.Balances{ledger.BaseToken: 400}),
		testOutput(6, ledger.Balances{ledger.BaseToken: 400}),
	}
	reversedOutputs := []*account.Output{outputs[2], outputs[1], outputs[0]}

	firstSelection, err := SelectOutputs(outputs, ledger.Balances{ledger.BaseToken: 700})
	require.NoError(t, err)
	secondSelection, err := SelectOutputs(reversedOutputs, ledger.Balances{ledger.BaseToken: 700})
	require.NoError(t, err)

	require.Equal(t, len(firstSelection), len(secondSelection))
	for index := range firstSelection {
		assert.Equal(t, firstSelection[index].Object.ID, secondSelection[index].Object.ID)
	}
}

func TestSendFunds(t *testing.T) {
	conn := connector.NewInMemoryConnector()
	manager := NewManager(conn, logger.NewExampleLogger("transfer"))
	acc, walletSeed := testFundedAccount(t, conn, 1000, 500)

	destinationSeed := seed.NewSeed()
	destinationAddress := destinationSeed.Address(0, false)

	transaction, err := manager.SendFunds(acc, &seedSigner{seed: walletSeed}, sendoptions.Destination(destinationAddress, 600))
	require.NoError(t, err)

	pendingTransaction, exists := acc.Transaction(transaction.ID())
	require.True(t, exists)
	assert.Equal(t, account.TransactionStatePending, pendingTransaction.State)

	// the largest output funds the transfer and stays locked until the ledger confirms the transaction
	assert.EqualValues(t, 500, acc.Balance()[ledger.BaseToken])

	unspentOutputs, err := conn.UnspentOutputs(destinationAddress)
	require.NoError(t, err)
	require.Len(t, unspentOutputs[destinationAddress], 1)
	assert.EqualValues(t, 600, unspentOutputs[destinationAddress][0].Amount(ledger.BaseToken))

	// the remainder lands on the account's internal address
	remainderAddress, exists := acc.RemainderAddress()
	require.True(t, exists)
	remainderOutputs, err := conn.UnspentOutputs(remainderAddress)
	require.NoError(t, err)
	require.Len(t, remainderOutputs[remainderAddress], 1)
	assert.EqualValues(t, 400, remainderOutputs[remainderAddress][0].Amount(ledger.BaseToken))
}

func TestSendFundsExactMatchCreatesNoRemainder(t *testing.T) {
	conn := connector.NewInMemoryConnector()
	manager := NewManager(conn, logger.NewExampleLogger("transfer"))
	acc, walletSeed := testFundedAccount(t, conn, 1000, 500)
	destinationAddress := seed.NewSeed().Address(0, false)

	// the output holding exactly 500 funds the transfer alone, no remainder output is created
	transaction, err := manager.SendFunds(acc, &seedSigner{seed: walletSeed}, sendoptions.Destination(destinationAddress, 500))
	require.NoError(t, err)
	require.Len(t, transaction.Essence().Inputs(), 1)
	require.Len(t, transaction.Essence().Outputs(), 1)
	assert.True(t, destinationAddress.Equals(transaction.Essence().Outputs()[0].Address))
	assert.EqualValues(t, 500, transaction.Essence().Outputs()[0].Amount(ledger.BaseToken))

	remainderAddress, exists := acc.RemainderAddress()
	require.True(t, exists)
	remainderOutputs, err := conn.UnspentOutputs(remainderAddress)
	require.NoError(t, err)
	assert.Empty(t, remainderOutputs[remainderAddress])
}

func TestSendFundsDustChecks(t *testing.T) {
	conn := connector.NewInMemoryConnector()
	manager := NewManager(conn, logger.NewExampleLogger("transfer"))
	acc, walletSeed := testFundedAccount(t, conn, 100, 100)
	destinationAddress := seed.NewSeed().Address(0, false)

	_, err := manager.SendFunds(acc, &seedSigner{seed: walletSeed}, sendoptions.Destination(destinationAddress, 50))
	assert.ErrorIs(t, err, ErrDustOutput)

	// covering 150 consumes both outputs and would leave a remainder of 50
	_, err = manager.SendFunds(acc, &seedSigner{seed: walletSeed}, sendoptions.Destination(destinationAddress, 150))
	assert.ErrorIs(t, err, ErrNotEnoughFundsForDust)

	// the failed attempts must not leave anything locked
	assert.EqualValues(t, 200, acc.Balance()[ledger.BaseToken])

	// micro amounts go through when explicitly allowed
	transaction, err := manager.SendFunds(acc, &seedSigner{seed: walletSeed},
		sendoptions.Destination(destinationAddress, 50), sendoptions.AllowMicroAmounts())
	require.NoError(t, err)
	assert.Len(t, transaction.Essence().Outputs(), 2)
}

func TestPrepareAndSignTransfer(t *testing.T) {
	conn := connector.NewInMemoryConnector()
	manager := NewManager(conn, logger.NewExampleLogger("transfer"))
	acc, walletSeed := testFundedAccount(t, conn, 1000)
	destinationAddress := seed.NewSeed().Address(0, false)

	essence, err := manager.PrepareTransfer(acc, sendoptions.Destination(destinationAddress, 600))
	require.NoError(t, err)
	require.Len(t, essence.Inputs(), 1)
	require.Len(t, essence.Outputs(), 2)

	// preparing neither locks inputs nor records anything on the account
	assert.EqualValues(t, 1000, acc.Balance()[ledger.BaseToken])
	assert.Empty(t, acc.PendingTransactions())

	transaction, err := manager.SignTransfer(acc, &seedSigner{seed: walletSeed}, essence)
	require.NoError(t, err)
	assert.Equal(t, essence.TransactionID(), transaction.ID())

	// signing does not submit, the ledger only changes once the caller hands the transaction in
	unspentOutputs, err := conn.UnspentOutputs(destinationAddress)
	require.NoError(t, err)
	assert.Empty(t, unspentOutputs[destinationAddress])

	require.NoError(t, conn.SubmitTransaction(transaction))
	unspentOutputs, err = conn.UnspentOutputs(destinationAddress)
	require.NoError(t, err)
	require.Len(t, unspentOutputs[destinationAddress], 1)
	assert.EqualValues(t, 600, unspentOutputs[destinationAddress][0].Amount(ledger.BaseToken))
}

func TestSignTransferRejectsUnknownInputs(t *testing.T) {
	conn := connector.NewInMemoryConnector()
	manager := NewManager(conn, logger.NewExampleLogger("transfer"))
	acc, walletSeed := testFundedAccount(t, conn, 1000)

	foreignInput := testOutput(9, ledger.Balances{ledger.BaseToken: 100})
	essence := ledger.NewTransactionEssence(
		[]ledger.OutputID{foreignInput.Object.ID},
		[]*ledger.Output{ledger.NewOutput(seed.NewSeed().Address(0, false), ledger.Balances{ledger.BaseToken: 100})},
	)

	_, err := manager.SignTransfer(acc, &seedSigner{seed: walletSeed}, essence)
	assert.ErrorIs(t, err, account.ErrOutputNotFound)
}

func TestSendNFT(t *testing.T) {
	conn := connector.NewInMemoryConnector()
	manager := NewManager(conn, logger.NewExampleLogger("transfer"))
	acc, walletSeed := testFundedAccount(t, conn, 1000)

	var nftID ledger.NFTID
	nftID[0] = 7
	carrier := conn.CreateNFTOutput(walletSeed.Address(0, false), ledger.Balances{ledger.BaseToken: 200}, nftID)
	acc.ApplySyncDiff(&account.SyncDiff{NewOutputs: []*ledger.Output{carrier}})

	var unknownNFTID ledger.NFTID
	unknownNFTID[0] = 8
	destinationAddress := seed.NewSeed().Address(0, false)
	_, err := manager.SendFunds(acc, &seedSigner{seed: walletSeed}, sendoptions.NFTDestination(destinationAddress, unknownNFTID))
	assert.ErrorIs(t, err, ErrNFTNotFound)

	// the token moves together with the balances of its carrier output
	transaction, err := manager.SendFunds(acc, &seedSigner{seed: walletSeed}, sendoptions.NFTDestination(destinationAddress, nftID))
	require.NoError(t, err)
	require.Len(t, transaction.Essence().Inputs(), 1)
	require.Len(t, transaction.Essence().Outputs(), 1)

	unspentOutputs, err := conn.UnspentOutputs(destinationAddress)
	require.NoError(t, err)
	require.Len(t, unspentOutputs[destinationAddress], 1)
	assert.Equal(t, nftID, unspentOutputs[destinationAddress][0].NFT)
	assert.EqualValues(t, 200, unspentOutputs[destinationAddress][0].Amount(ledger.BaseToken))

	// the fungible output was not touched
	assert.EqualValues(t, 1000, acc.Balance()[ledger.BaseToken])
}

func TestSendFundsDoesNotConsumeNFTOutputs(t *testing.T) {
	conn := connector.NewInMemoryConnector()
	manager := NewManager(conn, logger.NewExampleLogger("transfer"))
	acc, walletSeed := testFundedAccount(t, conn, 500)

	var nftID ledger.NFTID
	nftID[0] = 3
	carrier := conn.CreateNFTOutput(walletSeed.Address(0, false), ledger.Balances{ledger.BaseToken: 1000}, nftID)
	acc.ApplySyncDiff(&account.SyncDiff{NewOutputs: []*ledger.Output{carrier}})

	// the carrier holds enough funds but a plain transfer must not destroy the token
	destinationAddress := seed.NewSeed().Address(0, false)
	_, err := manager.SendFunds(acc, &seedSigner{seed: walletSeed}, sendoptions.Destination(destinationAddress, 800))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	transaction, err := manager.SendFunds(acc, &seedSigner{seed: walletSeed}, sendoptions.Destination(destinationAddress, 500))
	require.NoError(t, err)
	require.Len(t, transaction.Essence().Inputs(), 1)
}

func TestConsolidateFundsSkipsNFTOutputs(t *testing.T) {
	conn := connector.NewInMemoryConnector()
	manager := NewManager(conn, logger.NewExampleLogger("transfer"))
	acc, walletSeed := testFundedAccount(t, conn, 300, 400)

	var nftID ledger.NFTID
	nftID[0] = 5
	carrier := conn.CreateNFTOutput(walletSeed.Address(0, false), ledger.Balances{ledger.BaseToken: 100}, nftID)
	acc.ApplySyncDiff(&account.SyncDiff{NewOutputs: []*ledger.Output{carrier}})

	transaction, err := manager.ConsolidateFunds(acc, &seedSigner{seed: walletSeed})
	require.NoError(t, err)
	require.Len(t, transaction.Essence().Inputs(), 2)
	assert.EqualValues(t, 700, transaction.Essence().Outputs()[0].Amount(ledger.BaseToken))
}

func TestFailedSigningReleasesLocks(t *testing.T) {
	conn := connector.NewInMemoryConnector()
	manager := NewManager(conn, logger.NewExampleLogger("transfer"))
	acc, walletSeed := testFundedAccount(t, conn, 1000)
	destinationAddress := seed.NewSeed().Address(0, false)

	_, err := manager.SendFunds(acc, &seedSigner{seed: walletSeed, failSigning: true}, sendoptions.Destination(destinationAddress, 600))
	require.Error(t, err)
	assert.EqualValues(t, 1000, acc.Balance()[ledger.BaseToken])

	// with a working signer the same outputs go through
	_, err = manager.SendFunds(acc, &seedSigner{seed: walletSeed}, sendoptions.Destination(destinationAddress, 600))
	require.NoError(t, err)
}

func TestRejectedSubmissionReleasesLocks(t *testing.T) {
	conn := connector.NewInMemoryConnector()
	manager := NewManager(conn, logger.NewExampleLogger("transfer"))
	acc, walletSeed := testFundedAccount(t, conn, 1000)
	destinationAddress := seed.NewSeed().Address(0, false)

	conn.SetFailure(errors.New("node rejected the transaction"))
	_, err := manager.SendFunds(acc, &seedSigner{seed: walletSeed}, sendoptions.Destination(destinationAddress, 600))
	require.Error(t, err)
	assert.EqualValues(t, 1000, acc.Balance()[ledger.BaseToken])
	assert.Empty(t, acc.PendingTransactions())

	conn.SetFailure(nil)
	_, err = manager.SendFunds(acc, &seedSigner{seed: walletSeed}, sendoptions.Destination(destinationAddress, 600))
	require.NoError(t, err)
}

func TestConsolidateFunds(t *testing.T) {
	conn := connector.NewInMemoryConnector()
	manager := NewManager(conn, logger.NewExampleLogger("transfer"))
	acc, walletSeed := testFundedAccount(t, conn, 300, 300, 400)

	transaction, err := manager.ConsolidateFunds(acc, &seedSigner{seed: walletSeed})
	require.NoError(t, err)
	require.Len(t, transaction.Essence().Inputs(), 3)
	require.Len(t, transaction.Essence().Outputs(), 1)

	remainderAddress, _ := acc.RemainderAddress()
	assert.True(t, remainderAddress.Equals(transaction.Essence().Outputs()[0].Address))
	assert.EqualValues(t, 1000, transaction.Essence().Outputs()[0].Amount(ledger.BaseToken))
}

func TestConsolidateFundsRequiresMultipleOutputs(t *testing.T) {
	conn := connector.NewInMemoryConnector()
	manager := NewManager(conn, logger.NewExampleLogger("transfer"))
	acc, walletSeed := testFundedAccount(t, conn, 1000)

	_, err := manager.ConsolidateFunds(acc, &seedSigner{seed: walletSeed}, consolidateoptions.Destination(acc.Addresses()[0].Address))
	assert.ErrorIs(t, err, ErrNothingToConsolidate)
}

// seedSigner signs directly with a seed, standing in for the software secret store.
type seedSigner struct {
	seed        *seed.Seed
	failSigning bool
}

func (s *seedSigner) PublicKey(index uint64, internal bool) (ed25519.PublicKey, error) {
	return s.seed.KeyPair(index, internal).PublicKey, nil
}

func (s *seedSigner) Sign(index uint64, internal bool, message []byte) (ed25519.Signature, error) {
	if s.failSigning {
		return ed25519.Signature{}, errors.New("signer unavailable")
	}

	return s.seed.KeyPair(index, internal).PrivateKey.Sign(message), nil
}

// testOutput creates an unspent output with a deterministic ID for the selection tests.
func testOutput(firstByte byte, balances ledger.Balances) *account.Output {
	var transactionID ledger.TransactionID
	transactionID[0] = firstByte

	output := ledger.NewOutput(seed.NewSeed().Address(0, false), balances)
	output.ID = ledger.NewOutputID(transactionID, 0)

	return &account.Output{
		Object: output,
		State:  account.OutputStateUnspent,
	}
}

// testFundedAccount creates an account with one funded external address per amount plus an empty internal address
// for the remainder. The outputs exist both on the connector's ledger and in the account's tracked state.
func testFundedAccount(t *testing.T, conn *connector.InMemoryConnector, amounts ...uint64) (*account.Account, *seed.Seed) {
	t.Helper()

	walletSeed := seed.NewSeed()
	acc := account.New(0, "test")

	diff := &account.SyncDiff{SpentOutputs: map[ledger.OutputID]ledger.TransactionID{}}
	for index, amount := range amounts {
		addr := walletSeed.Address(uint64(index), false)
		acc.AddAddress(addr)

		output := conn.CreateOutput(addr, ledger.Balances{ledger.BaseToken: amount})
		output.Timestamp = time.Now()
		diff.NewOutputs = append(diff.NewOutputs, output)
	}
	acc.AddAddress(walletSeed.Address(0, true))
	acc.ApplySyncDiff(diff)

	return acc, walletSeed
}
