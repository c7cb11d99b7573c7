package account

import (
	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/marshalutil"
	"github.com/iotaledger/hive.go/stringify"

	"github.com/iotaledger/wallet.go/packages/ledger"
)

// region OutputState //////////////////////////////////////////////////////////////////////////////////////////////////

// OutputState represents the spend state of an output tracked by an account. An output moves
// unspent -> locked -> spent and never backwards, except for the locked -> unspent transition of a failed transfer.
type OutputState uint8

const (
	// OutputStateUnspent marks an output that is available to fund transfers.
	OutputStateUnspent OutputState = iota

	// OutputStateLocked marks an output that is reserved by a pending local transaction.
	OutputStateLocked

	// OutputStateSpent marks an output that has been consumed.
	OutputStateSpent
)

// String returns a human readable representation of the OutputState.
func (o OutputState) String() string {
	return [...]string{
		"OutputStateUnspent",
		"OutputStateLocked",
		"OutputStateSpent",
	}[o]
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region Output ///////////////////////////////////////////////////////////////////////////////////////////////////////

// Output is the account's view of a ledger output: the ledger object plus the locally tracked spend state.
type Output struct {
	Object *ledger.Output
	State  OutputState

	// PendingTransactionID is the local pending transaction that currently locks the output.
	PendingTransactionID ledger.TransactionID

	// SpendingTransactionID is the transaction that consumed the output, once known.
	SpendingTransactionID ledger.TransactionID
}

// OutputFromMarshalUtil unmarshals an Output using a MarshalUtil (for easier unmarshaling).
func OutputFromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (output *Output, err error) {
	output = &Output{}
	if output.Object, err = ledger.OutputFromMarshalUtil(marshalUtil); err != nil {
		return
	}
	state, err := marshalUtil.ReadByte()
	if err != nil {
		err = errors.Errorf("failed to parse output state: %w", err)
		return
	}
	output.State = OutputState(state)
	if output.PendingTransactionID, err = ledger.TransactionIDFromMarshalUtil(marshalUtil); err != nil {
		return
	}
	if output.SpendingTransactionID, err = ledger.TransactionIDFromMarshalUtil(marshalUtil); err != nil {
		return
	}

	return
}

// Bytes returns a marshaled version of the Output.
func (o *Output) Bytes() []byte {
	return marshalutil.New().
		WriteBytes(o.Object.Bytes()).
		WriteByte(byte(o.State)).
		WriteBytes(o.PendingTransactionID.Bytes()).
		WriteBytes(o.SpendingTransactionID.Bytes()).
		Bytes()
}

// Clone returns a deep copy of the Output.
func (o *Output) Clone() *Output {
	return &Output{
		Object:                o.Object.Clone(),
		State:                 o.State,
		PendingTransactionID:  o.PendingTransactionID,
		SpendingTransactionID: o.SpendingTransactionID,
	}
}

// String returns a human-readable representation of the Output.
func (o *Output) String() string {
	return stringify.Struct("Output",
		stringify.StructField("object", o.Object),
		stringify.StructField("state", o.State),
		stringify.StructField("pendingTransactionID", o.PendingTransactionID),
	)
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////
