package connector

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/iotaledger/wallet.go/packages/address"
	"github.com/iotaledger/wallet.go/packages/ledger"
)

// InMemoryConnector is a Connector backed by a minimal in-process ledger. It validates and applies submitted
// transactions immediately, which makes it suitable for tests and local experiments.
type InMemoryConnector struct {
	mu             sync.RWMutex
	unspentOutputs map[ledger.OutputID]*ledger.Output
	consumers      map[ledger.OutputID]ledger.TransactionID
	transactions   map[ledger.TransactionID]*ledger.Transaction
	failure        error
}

// NewInMemoryConnector creates an InMemoryConnector with an empty ledger.
func NewInMemoryConnector() *InMemoryConnector {
	return &InMemoryConnector{
		unspentOutputs: make(map[ledger.OutputID]*ledger.Output),
		consumers:      make(map[ledger.OutputID]ledger.TransactionID),
		transactions:   make(map[ledger.TransactionID]*ledger.Transaction),
	}
}

// CreateOutput mints an unspent output on the given address, outside of any transaction. It stands in for a faucet
// or a deposit from another wallet.
func (i *InMemoryConnector) CreateOutput(addr address.Address, balances ledger.Balances) *ledger.Output {
	return i.mintOutput(ledger.NewOutput(addr, balances))
}

// CreateNFTOutput mints an unspent output on the given address that carries the given non-fungible token.
func (i *InMemoryConnector) CreateNFTOutput(addr address.Address, balances ledger.Balances, nftID ledger.NFTID) *ledger.Output {
	return i.mintOutput(ledger.NewNFTOutput(addr, balances, nftID))
}

func (i *InMemoryConnector) mintOutput(output *ledger.Output) *ledger.Output {
	i.mu.Lock()
	defer i.mu.Unlock()

	var genesisTransactionID ledger.TransactionID
	if _, err := rand.Read(genesisTransactionID[:]); err != nil {
		panic(err)
	}

	output.ID = ledger.NewOutputID(genesisTransactionID, 0)
	output.Timestamp = time.Now()
	i.unspentOutputs[output.ID] = output

	return output.Clone()
}

// SetFailure makes every subsequent connector call fail with the given error until it is reset with nil. Wrap the
// error with ErrTransient to simulate an unreachable node.
func (i *InMemoryConnector) SetFailure(failure error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.failure = failure
}

// UnspentOutputs returns the unspent outputs currently held by the given addresses.
func (i *InMemoryConnector) UnspentOutputs(addresses ...address.Address) (unspentOutputs map[address.Address][]*ledger.Output, err error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.failure != nil {
		return nil, i.failure
	}

	unspentOutputs = make(map[address.Address][]*ledger.Output)
	for _, addr := range addresses {
		for _, output := range i.unspentOutputs {
			if output.Address.Equals(addr) {
				unspentOutputs[addr] = append(unspentOutputs[addr], output.Clone())
			}
		}
	}

	return
}

// SubmitTransaction validates the transaction against the current ledger state and applies it. Transactions that
// consume unknown or already spent outputs, that unbalance token amounts or that carry invalid unlock blocks are
// rejected.
func (i *InMemoryConnector) SubmitTransaction(transaction *ledger.Transaction) (err error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.failure != nil {
		return i.failure
	}

	transactionID := transaction.ID()
	if _, exists := i.transactions[transactionID]; exists {
		return nil
	}

	inputs := make([]*ledger.Output, len(transaction.Essence().Inputs()))
	for index, inputID := range transaction.Essence().Inputs() {
		input, inputExists := i.unspentOutputs[inputID]
		if !inputExists {
			if consumer, spent := i.consumers[inputID]; spent {
				return errors.Errorf("input %s was already spent by transaction %s", inputID.Base58(), consumer.Base58())
			}

			return errors.Errorf("input %s does not exist", inputID.Base58())
		}
		inputs[index] = input
	}

	if !ledger.TransactionBalancesValid(inputs, transaction.Essence().Outputs()) {
		return errors.New("sum of consumed and created token amounts does not match")
	}
	if valid, validationErr := ledger.UnlockBlocksValidWithError(inputs, transaction); !valid {
		if validationErr != nil {
			return validationErr
		}

		return errors.New("transaction contains invalid unlock blocks")
	}

	for _, inputID := range transaction.Essence().Inputs() {
		delete(i.unspentOutputs, inputID)
		i.consumers[inputID] = transactionID
	}
	for _, output := range transaction.Essence().Outputs() {
		clonedOutput := output.Clone()
		clonedOutput.Timestamp = time.Now()
		i.unspentOutputs[clonedOutput.ID] = clonedOutput
	}
	i.transactions[transactionID] = transaction

	return nil
}

// TransactionInclusionState reports a submitted transaction as confirmed, everything else as unknown.
func (i *InMemoryConnector) TransactionInclusionState(transactionID ledger.TransactionID) (inclusionState InclusionState, err error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.failure != nil {
		return InclusionStateUnknown, i.failure
	}

	if _, exists := i.transactions[transactionID]; exists {
		return InclusionStateConfirmed, nil
	}

	return InclusionStateUnknown, nil
}

// NodeInfo returns static information about the in-memory ledger.
func (i *InMemoryConnector) NodeInfo() (nodeInfo *NodeInfo, err error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.failure != nil {
		return nil, i.failure
	}

	return &NodeInfo{
		Version:   "inmemory/1.0",
		NetworkID: "inmemory",
		Synced:    true,
	}, nil
}

// Consumer returns the transaction that spent the given output, if any.
func (i *InMemoryConnector) Consumer(outputID ledger.OutputID) (transactionID ledger.TransactionID, exists bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	transactionID, exists = i.consumers[outputID]

	return
}
