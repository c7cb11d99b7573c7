// Package connector defines how the wallet talks to a node. A wallet can connect remotely through the web API or,
// for tests and local setups, run against an in-memory ledger.
package connector

import (
	"github.com/cockroachdb/errors"

	"github.com/iotaledger/wallet.go/packages/address"
	"github.com/iotaledger/wallet.go/packages/ledger"
)

// ErrTransient marks connector failures that are worth retrying, like timeouts or an unreachable node. Permanent
// failures, like a rejected transaction, are returned without this marker.
var ErrTransient = errors.New("transient connector failure")

// InclusionState describes what the node knows about a transaction.
type InclusionState uint8

const (
	// InclusionStateUnknown means the node has never seen the transaction.
	InclusionStateUnknown InclusionState = iota

	// InclusionStatePending means the transaction is known but not yet confirmed.
	InclusionStatePending

	// InclusionStateConfirmed means the transaction is confirmed by the ledger.
	InclusionStateConfirmed

	// InclusionStateRejected means the transaction was rejected, usually because it lost a conflict.
	InclusionStateRejected
)

// String returns a human readable representation of the InclusionState.
func (i InclusionState) String() string {
	return [...]string{
		"InclusionStateUnknown",
		"InclusionStatePending",
		"InclusionStateConfirmed",
		"InclusionStateRejected",
	}[i]
}

// NodeInfo bundles the identity and health information of the connected node.
type NodeInfo struct {
	Version   string
	NetworkID string
	Synced    bool
}

// Connector represents an interface that defines how the wallet interacts with the network.
type Connector interface {
	// UnspentOutputs returns the unspent outputs currently held by the given addresses.
	UnspentOutputs(addresses ...address.Address) (unspentOutputs map[address.Address][]*ledger.Output, err error)

	// SubmitTransaction hands a signed transaction to the node.
	SubmitTransaction(transaction *ledger.Transaction) (err error)

	// TransactionInclusionState queries what the node knows about the given transaction.
	TransactionInclusionState(transactionID ledger.TransactionID) (inclusionState InclusionState, err error)

	// NodeInfo returns the identity and health information of the node.
	NodeInfo() (nodeInfo *NodeInfo, err error)
}
