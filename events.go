package wallet

import (
	"github.com/iotaledger/hive.go/events"

	"github.com/iotaledger/wallet.go/packages/ledger"
)

// Events represents the notifications a Wallet emits while its state changes.
type Events struct {
	// Fired when a sync changed the spendable balance of an account.
	BalanceChanged *events.Event

	// Fired when a transfer was submitted to the node.
	TransferSent *events.Event

	// Fired when the node confirmed one of our pending transactions.
	TransactionConfirmed *events.Event

	// Fired when a pending transaction was invalidated because it lost a double spend.
	TransactionInvalidated *events.Event

	// Fired when the cached password was cleared, either explicitly or by the inactivity timer.
	PasswordCleared *events.Event
}

func newEvents() *Events {
	return &Events{
		BalanceChanged:         events.NewEvent(balanceChangedEventCaller),
		TransferSent:           events.NewEvent(transferSentEventCaller),
		TransactionConfirmed:   events.NewEvent(transactionEventCaller),
		TransactionInvalidated: events.NewEvent(transactionEventCaller),
		PasswordCleared:        events.NewEvent(plainEventCaller),
	}
}

// BalanceChangedEvent is the struct that is passed along with triggering a BalanceChanged event.
type BalanceChangedEvent struct {
	AccountIndex uint32
	Balance      ledger.Balances
}

// TransferSentEvent is the struct that is passed along with triggering a TransferSent event.
type TransferSentEvent struct {
	AccountIndex uint32
	Transaction  *ledger.Transaction
}

// TransactionEvent is the struct that is passed along with triggering a TransactionConfirmed or a
// TransactionInvalidated event.
type TransactionEvent struct {
	AccountIndex  uint32
	TransactionID ledger.TransactionID
}

func balanceChangedEventCaller(handler interface{}, params ...interface{}) {
	handler.(func(*BalanceChangedEvent))(params[0].(*BalanceChangedEvent))
}

func transferSentEventCaller(handler interface{}, params ...interface{}) {
	handler.(func(*TransferSentEvent))(params[0].(*TransferSentEvent))
}

func transactionEventCaller(handler interface{}, params ...interface{}) {
	handler.(func(*TransactionEvent))(params[0].(*TransactionEvent))
}

func plainEventCaller(handler interface{}, params ...interface{}) {
	handler.(func())()
}
