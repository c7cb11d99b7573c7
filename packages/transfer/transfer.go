// Package transfer builds, signs and submits transactions on behalf of an account. A transfer walks through a
// fixed pipeline: select inputs, build the essence, lock the inputs, collect signatures, validate and submit. Any
// failure after the inputs were locked releases them again, so a failed transfer never strands funds.
package transfer

import (
	"bytes"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/logger"
	"golang.org/x/crypto/blake2b"

	"github.com/iotaledger/wallet.go/packages/account"
	"github.com/iotaledger/wallet.go/packages/address"
	"github.com/iotaledger/wallet.go/packages/connector"
	"github.com/iotaledger/wallet.go/packages/consolidateoptions"
	"github.com/iotaledger/wallet.go/packages/ledger"
	"github.com/iotaledger/wallet.go/packages/sendoptions"
	"github.com/iotaledger/wallet.go/packages/stronghold"
)

var (
	// ErrDustOutput is returned when a destination would receive less than the dust minimum of the base token.
	ErrDustOutput = errors.New("output amount is below the dust minimum")

	// ErrNotEnoughFundsForDust is returned when a transfer would leave a remainder below the dust minimum.
	ErrNotEnoughFundsForDust = errors.New("remainder would be below the dust minimum")

	// ErrNothingToConsolidate is returned when an account holds fewer than two spendable outputs.
	ErrNothingToConsolidate = errors.New("account holds fewer than two spendable outputs")

	// ErrNFTNotFound is returned when the account holds no spendable output carrying the requested non-fungible
	// token.
	ErrNFTNotFound = errors.New("non-fungible token not found among the spendable outputs")

	// ErrKeyAddressMismatch is returned when the secret store derives a key that does not belong to the address
	// being unlocked.
	ErrKeyAddressMismatch = errors.New("derived public key does not match the address")
)

// Manager executes transfers against a node on behalf of accounts.
type Manager struct {
	connector connector.Connector
	log       *logger.Logger
}

// NewManager is the constructor for the transfer Manager.
func NewManager(conn connector.Connector, log *logger.Logger) *Manager {
	return &Manager{
		connector: conn,
		log:       log,
	}
}

// SendFunds builds, signs and submits a transaction that moves funds from the account to the destinations given in
// the options. On success the transaction is recorded as pending on the account and its inputs stay locked until
// the ledger confirms it.
func (m *Manager) SendFunds(acc *account.Account, signer stronghold.Signer, options ...sendoptions.SendFundsOption) (transaction *ledger.Transaction, err error) {
	sendOptions, err := sendoptions.Build(options...)
	if err != nil {
		return nil, err
	}

	inputs, outputs, err := m.assembleTransfer(acc, sendOptions)
	if err != nil {
		return nil, err
	}

	return m.executeTransfer(acc, signer, inputs, outputs)
}

// PrepareTransfer runs the selection and output construction of a transfer and returns the resulting unsigned
// essence without locking inputs, signing or submitting anything.
func (m *Manager) PrepareTransfer(acc *account.Account, options ...sendoptions.SendFundsOption) (essence *ledger.TransactionEssence, err error) {
	sendOptions, err := sendoptions.Build(options...)
	if err != nil {
		return nil, err
	}

	inputs, outputs, err := m.assembleTransfer(acc, sendOptions)
	if err != nil {
		return nil, err
	}

	inputIDs := make([]ledger.OutputID, len(inputs))
	for index, input := range inputs {
		inputIDs[index] = input.Object.ID
	}

	return ledger.NewTransactionEssence(inputIDs, outputs), nil
}

// SignTransfer collects the unlock blocks for a prepared essence and returns the signed transaction. The essence's
// inputs must still be spendable on the account. Nothing is locked, submitted or recorded; submission stays with
// the caller.
func (m *Manager) SignTransfer(acc *account.Account, signer stronghold.Signer, essence *ledger.TransactionEssence) (transaction *ledger.Transaction, err error) {
	inputsByID := make(map[ledger.OutputID]*account.Output, len(essence.Inputs()))
	orderedInputs := make([]*ledger.Output, len(essence.Inputs()))
	for index, inputID := range essence.Inputs() {
		input, exists := acc.Output(inputID)
		if !exists {
			return nil, errors.Wrapf(account.ErrOutputNotFound, "input %s", inputID.Base58())
		}
		if input.State != account.OutputStateUnspent {
			return nil, errors.Wrapf(account.ErrOutputLocked, "input %s is %s", inputID.Base58(), input.State)
		}
		inputsByID[inputID] = input
		orderedInputs[index] = input.Object
	}

	unlockBlocks, err := m.signEssence(signer, essence, inputsByID)
	if err != nil {
		return nil, err
	}
	transaction = ledger.NewTransaction(essence, unlockBlocks)

	if !ledger.TransactionBalancesValid(orderedInputs, essence.Outputs()) {
		return nil, errors.New("sum of consumed and created token amounts does not match")
	}
	if valid, validationErr := ledger.UnlockBlocksValidWithError(orderedInputs, transaction); !valid {
		if validationErr != nil {
			return nil, validationErr
		}

		return nil, errors.New("transaction contains invalid unlock blocks")
	}

	return transaction, nil
}

// assembleTransfer turns a built transfer intent into the inputs and outputs of the transaction.
func (m *Manager) assembleTransfer(acc *account.Account, sendOptions *sendoptions.SendFundsOptions) (inputs []*account.Output, outputs []*ledger.Output, err error) {
	spendableOutputs := acc.UnspentOutputs()
	nftInputs, nftOutputs, err := collectNFTTransfers(spendableOutputs, sendOptions)
	if err != nil {
		return nil, nil, err
	}

	// outputs carrying a non-fungible token only move through an explicit NFT destination
	selectedOutputs, err := SelectOutputs(fungibleOutputs(spendableOutputs, nftInputs), sendOptions.RequiredFunds())
	if err != nil {
		return nil, nil, err
	}

	inputs = append(nftInputs, selectedOutputs...)
	remainderAddress := chooseRemainderAddress(acc, sendOptions.RemainderAddress, inputs)
	if outputs, err = buildOutputs(sendOptions, consumedFunds(selectedOutputs), remainderAddress); err != nil {
		return nil, nil, err
	}
	outputs = append(nftOutputs, outputs...)

	if len(inputs) > ledger.MaxInputCount {
		return nil, nil, errors.Wrapf(ErrTooManyOutputs, "transfer consumes %d inputs but a transaction can carry at most %d", len(inputs), ledger.MaxInputCount)
	}
	if len(outputs) > ledger.MaxOutputCount {
		return nil, nil, errors.Errorf("transfer creates %d outputs but a transaction can carry at most %d", len(outputs), ledger.MaxOutputCount)
	}

	return
}

// ConsolidateFunds merges the spendable outputs of the account into a single output. The destination defaults to
// the account's remainder address.
func (m *Manager) ConsolidateFunds(acc *account.Account, signer stronghold.Signer, options ...consolidateoptions.ConsolidateFundsOption) (transaction *ledger.Transaction, err error) {
	consolidateOptions, err := consolidateoptions.Build(options...)
	if err != nil {
		return nil, err
	}

	// consolidation never consumes outputs carrying a non-fungible token
	spendableOutputs := fungibleOutputs(acc.UnspentOutputs(), nil)
	if len(spendableOutputs) < 2 {
		return nil, ErrNothingToConsolidate
	}
	if len(spendableOutputs) > ledger.MaxInputCount {
		spendableOutputs = spendableOutputs[:ledger.MaxInputCount]
	}

	destinationAddress := consolidateOptions.DestinationAddress
	if !consolidateOptions.DestinationAddressSet {
		var exists bool
		if destinationAddress, exists = acc.RemainderAddress(); !exists {
			return nil, errors.New("account has no address to consolidate to")
		}
	}

	consolidatedOutput := ledger.NewOutput(destinationAddress, consumedFunds(spendableOutputs))

	return m.executeTransfer(acc, signer, spendableOutputs, []*ledger.Output{consolidatedOutput})
}

// executeTransfer runs the common tail of the transfer pipeline: lock the inputs, sign, validate, submit and record
// the pending transaction. The locks are released on every failure past the lock step.
func (m *Manager) executeTransfer(acc *account.Account, signer stronghold.Signer, inputs []*account.Output, outputs []*ledger.Output) (transaction *ledger.Transaction, err error) {
	inputIDs := make([]ledger.OutputID, len(inputs))
	inputsByID := make(map[ledger.OutputID]*account.Output, len(inputs))
	for index, input := range inputs {
		inputIDs[index] = input.Object.ID
		inputsByID[input.Object.ID] = input
	}

	essence := ledger.NewTransactionEssence(inputIDs, outputs)
	transactionID := essence.TransactionID()

	if err = acc.LockOutputs(essence.Inputs(), transactionID); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			acc.ReleaseOutputs(transactionID)
		}
	}()

	unlockBlocks, err := m.signEssence(signer, essence, inputsByID)
	if err != nil {
		return nil, err
	}
	transaction = ledger.NewTransaction(essence, unlockBlocks)

	orderedInputs := make([]*ledger.Output, len(essence.Inputs()))
	for index, inputID := range essence.Inputs() {
		orderedInputs[index] = inputsByID[inputID].Object
	}
	if !ledger.TransactionBalancesValid(orderedInputs, essence.Outputs()) {
		return nil, errors.New("sum of consumed and created token amounts does not match")
	}
	if valid, validationErr := ledger.UnlockBlocksValidWithError(orderedInputs, transaction); !valid {
		if validationErr != nil {
			return nil, validationErr
		}

		return nil, errors.New("transaction contains invalid unlock blocks")
	}

	if err = m.connector.SubmitTransaction(transaction); err != nil {
		return nil, errors.Errorf("failed to submit transaction %s: %w", transactionID.Base58(), err)
	}
	if err = acc.RecordPendingTransaction(transaction); err != nil {
		return nil, err
	}

	m.log.Infof("submitted transaction %s (%d inputs, %d outputs)", transactionID.Base58(), len(essence.Inputs()), len(essence.Outputs()))

	return transaction, nil
}

// signEssence collects the unlock blocks for the essence. Inputs on the same address share one signature through a
// reference unlock block. The signer is consulted for every signature, so a secret store that locked itself in the
// meantime aborts the transfer.
func (m *Manager) signEssence(signer stronghold.Signer, essence *ledger.TransactionEssence, inputsByID map[ledger.OutputID]*account.Output) (unlockBlocks []ledger.UnlockBlock, err error) {
	essenceBytes := essence.Bytes()
	unlockBlocks = make([]ledger.UnlockBlock, len(essence.Inputs()))
	signatureIndexes := make(map[[address.Length]byte]uint16)

	for index, inputID := range essence.Inputs() {
		inputAddress := inputsByID[inputID].Object.Address
		if signatureIndex, alreadySigned := signatureIndexes[inputAddress.AddressBytes]; alreadySigned {
			unlockBlocks[index] = ledger.NewReferenceUnlockBlock(signatureIndex)

			continue
		}

		publicKey, signerErr := signer.PublicKey(inputAddress.Index, inputAddress.Internal)
		if signerErr != nil {
			return nil, errors.Errorf("failed to retrieve public key for input %s: %w", inputID.Base58(), signerErr)
		}
		if blake2b.Sum256(publicKey.Bytes()) != inputAddress.AddressBytes {
			return nil, errors.Wrapf(ErrKeyAddressMismatch, "input %s", inputID.Base58())
		}
		signature, signerErr := signer.Sign(inputAddress.Index, inputAddress.Internal, essenceBytes)
		if signerErr != nil {
			return nil, errors.Errorf("failed to sign input %s: %w", inputID.Base58(), signerErr)
		}

		unlockBlocks[index] = ledger.NewSignatureUnlockBlock(publicKey, signature)
		signatureIndexes[inputAddress.AddressBytes] = uint16(index)
	}

	return
}

// buildOutputs assembles the created outputs of a transfer: one output per destination plus a remainder output for
// the funds the inputs provide beyond the requirement.
func buildOutputs(sendOptions *sendoptions.SendFundsOptions, consumedFunds ledger.Balances, remainderAddress address.Address) (outputs []*ledger.Output, err error) {
	destinationAddresses := make([]address.Address, 0, len(sendOptions.Destinations))
	for destinationAddress := range sendOptions.Destinations {
		destinationAddresses = append(destinationAddresses, destinationAddress)
	}
	sort.Slice(destinationAddresses, func(i, j int) bool {
		return bytes.Compare(destinationAddresses[i].Bytes(), destinationAddresses[j].Bytes()) < 0
	})

	for _, destinationAddress := range destinationAddresses {
		balances := sendOptions.Destinations[destinationAddress]
		if baseAmount := balances[ledger.BaseToken]; !sendOptions.AllowMicroAmounts && baseAmount > 0 && baseAmount < ledger.DustMinimum {
			return nil, errors.Wrapf(ErrDustOutput, "destination %s receives %d of the base token but the dust minimum is %d", destinationAddress.Base58(), baseAmount, ledger.DustMinimum)
		}
		outputs = append(outputs, ledger.NewOutput(destinationAddress, balances))
	}

	remainder := consumedFunds.Clone()
	for _, balances := range sendOptions.Destinations {
		for tokenID, amount := range balances {
			remainder[tokenID] -= amount
			if remainder[tokenID] == 0 {
				delete(remainder, tokenID)
			}
		}
	}
	if len(remainder) > 0 {
		if baseAmount := remainder[ledger.BaseToken]; !sendOptions.AllowMicroAmounts && baseAmount > 0 && baseAmount < ledger.DustMinimum {
			return nil, errors.Wrapf(ErrNotEnoughFundsForDust, "remainder of %d is below the dust minimum of %d", baseAmount, ledger.DustMinimum)
		}
		outputs = append(outputs, ledger.NewOutput(remainderAddress, remainder))
	}

	if len(outputs) > ledger.MaxOutputCount {
		return nil, errors.Errorf("transfer creates %d outputs but a transaction can carry at most %d", len(outputs), ledger.MaxOutputCount)
	}

	return
}

// chooseRemainderAddress determines where change goes: an explicitly provided address wins, then the account's
// latest internal address, then the address of the first consumed output.
func chooseRemainderAddress(acc *account.Account, explicitAddress address.Address, inputs []*account.Output) address.Address {
	if explicitAddress != address.AddressEmpty {
		return explicitAddress
	}
	if remainderAddress, exists := acc.RemainderAddress(); exists {
		return remainderAddress
	}

	return inputs[0].Object.Address
}

// collectNFTTransfers resolves the requested non-fungible token moves: the spendable output carrying each token
// becomes an input and its full balances travel to the token's destination.
func collectNFTTransfers(spendableOutputs []*account.Output, sendOptions *sendoptions.SendFundsOptions) (inputs []*account.Output, outputs []*ledger.Output, err error) {
	for _, nftID := range sortedNFTIDs(sendOptions.NFTDestinations) {
		var carrier *account.Output
		for _, output := range spendableOutputs {
			if output.Object.NFT == nftID {
				carrier = output

				break
			}
		}
		if carrier == nil {
			return nil, nil, errors.Wrapf(ErrNFTNotFound, "token %s", nftID.Base58())
		}

		inputs = append(inputs, carrier)
		outputs = append(outputs, ledger.NewNFTOutput(sendOptions.NFTDestinations[nftID], carrier.Object.Balances, nftID))
	}

	return
}

// fungibleOutputs filters the spendable outputs down to the ones that carry no non-fungible token and are not part
// of the excluded set.
func fungibleOutputs(spendableOutputs, excludedOutputs []*account.Output) (remainingOutputs []*account.Output) {
	excludedIDs := make(map[ledger.OutputID]bool, len(excludedOutputs))
	for _, output := range excludedOutputs {
		excludedIDs[output.Object.ID] = true
	}

	for _, output := range spendableOutputs {
		if output.Object.NFT.IsEmpty() && !excludedIDs[output.Object.ID] {
			remainingOutputs = append(remainingOutputs, output)
		}
	}

	return
}

func sortedNFTIDs(nftDestinations map[ledger.NFTID]address.Address) (nftIDs []ledger.NFTID) {
	nftIDs = make([]ledger.NFTID, 0, len(nftDestinations))
	for nftID := range nftDestinations {
		nftIDs = append(nftIDs, nftID)
	}
	sort.Slice(nftIDs, func(i, j int) bool {
		return bytes.Compare(nftIDs[i].Bytes(), nftIDs[j].Bytes()) < 0
	})

	return
}

// consumedFunds sums the balances of the given outputs.
func consumedFunds(outputs []*account.Output) (funds ledger.Balances) {
	funds = make(ledger.Balances)
	for _, output := range outputs {
		funds.Add(output.Object.Balances)
	}

	return
}
