package account

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/marshalutil"
	"github.com/iotaledger/hive.go/stringify"

	"github.com/iotaledger/wallet.go/packages/ledger"
)

// region TransactionState /////////////////////////////////////////////////////////////////////////////////////////////

// TransactionState represents the lifecycle state of a transaction record of an account.
type TransactionState uint8

const (
	// TransactionStatePending marks a transaction that was submitted but not yet confirmed by the ledger.
	TransactionStatePending TransactionState = iota

	// TransactionStateConfirmed marks a transaction that the ledger has confirmed.
	TransactionStateConfirmed

	// TransactionStateFailed marks a transaction whose submission failed.
	TransactionStateFailed

	// TransactionStateInvalidated marks a pending transaction that became invalid because one of its inputs was
	// consumed by a different transaction (a double spend resolved against us).
	TransactionStateInvalidated
)

// String returns a human readable representation of the TransactionState.
func (t TransactionState) String() string {
	return [...]string{
		"TransactionStatePending",
		"TransactionStateConfirmed",
		"TransactionStateFailed",
		"TransactionStateInvalidated",
	}[t]
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region Transaction //////////////////////////////////////////////////////////////////////////////////////////////////

// Transaction is the record an account keeps about one of its own transactions.
type Transaction struct {
	Transaction *ledger.Transaction
	State       TransactionState
	Timestamp   time.Time
}

// TransactionFromMarshalUtil unmarshals a Transaction using a MarshalUtil (for easier unmarshaling).
func TransactionFromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (transaction *Transaction, err error) {
	transaction = &Transaction{}
	if transaction.Transaction, err = ledger.TransactionFromMarshalUtil(marshalUtil); err != nil {
		return
	}
	state, err := marshalUtil.ReadByte()
	if err != nil {
		err = errors.Errorf("failed to parse transaction state: %w", err)
		return
	}
	transaction.State = TransactionState(state)
	if transaction.Timestamp, err = marshalUtil.ReadTime(); err != nil {
		err = errors.Errorf("failed to parse transaction timestamp: %w", err)
		return
	}

	return
}

// ID returns the identifier of the recorded transaction.
func (t *Transaction) ID() ledger.TransactionID {
	return t.Transaction.ID()
}

// Clone returns a copy of the Transaction. The wrapped ledger transaction is immutable and shared.
func (t *Transaction) Clone() *Transaction {
	return &Transaction{
		Transaction: t.Transaction,
		State:       t.State,
		Timestamp:   t.Timestamp,
	}
}

// Bytes returns a marshaled version of the Transaction.
func (t *Transaction) Bytes() []byte {
	return marshalutil.New().
		WriteBytes(t.Transaction.Bytes()).
		WriteByte(byte(t.State)).
		WriteTime(t.Timestamp).
		Bytes()
}

// String returns a human-readable representation of the Transaction.
func (t *Transaction) String() string {
	return stringify.Struct("Transaction",
		stringify.StructField("id", t.ID().Base58()),
		stringify.StructField("state", t.State),
		stringify.StructField("timestamp", t.Timestamp),
	)
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////
