package messageinterface

import (
	"time"
)

// Response is the closed set of messages the Dispatcher produces. Failures travel as ErrorResponse, a panicking
// handler as PanicResponse; secret material never appears in any response except the deliberately returned
// mnemonic of GeneratedMnemonicResponse.
type Response interface {
	isResponse()
}

// AccountInfo describes one account of the wallet.
type AccountInfo struct {
	Index   uint32            `json:"index"`
	Alias   string            `json:"alias"`
	Balance map[string]uint64 `json:"balance"`
}

// OutputInfo describes one output tracked by an account.
type OutputInfo struct {
	OutputID  string            `json:"outputID"`
	Address   string            `json:"address"`
	Balances  map[string]uint64 `json:"balances"`
	State     string            `json:"state"`
	Timestamp time.Time         `json:"timestamp"`
}

// TransactionInfo describes one transaction recorded by an account.
type TransactionInfo struct {
	TransactionID string    `json:"transactionID"`
	State         string    `json:"state"`
	Timestamp     time.Time `json:"timestamp"`
}

// AccountResponse carries a single account.
type AccountResponse struct {
	Account AccountInfo `json:"account"`
}

// AccountsResponse carries all accounts of the wallet.
type AccountsResponse struct {
	Accounts []AccountInfo `json:"accounts"`
}

// BalanceResponse carries the spendable balance of an account per token class.
type BalanceResponse struct {
	Balance map[string]uint64 `json:"balance"`
}

// AddressesResponse carries the addresses of an account.
type AddressesResponse struct {
	Addresses []string `json:"addresses"`
}

// OutputsResponse carries outputs of an account.
type OutputsResponse struct {
	Outputs []OutputInfo `json:"outputs"`
}

// TransactionsResponse carries transactions of an account.
type TransactionsResponse struct {
	Transactions []TransactionInfo `json:"transactions"`
}

// SentTransferResponse carries the identifier of a submitted transaction.
type SentTransferResponse struct {
	TransactionID string `json:"transactionID"`
}

// PreparedTransactionResponse carries the unsigned essence of a prepared transfer.
type PreparedTransactionResponse struct {
	TransactionID string `json:"transactionID"`
	Essence       []byte `json:"essence"`
}

// SignedTransactionDataResponse carries a signed but not yet submitted transaction.
type SignedTransactionDataResponse struct {
	TransactionID string `json:"transactionID"`
	Transaction   []byte `json:"transaction"`
}

// SyncResponse summarizes a sync run.
type SyncResponse struct {
	Balance                 map[string]uint64 `json:"balance"`
	NewOutputCount          int               `json:"newOutputCount"`
	SpentOutputCount        int               `json:"spentOutputCount"`
	ConfirmedTransactions   []string          `json:"confirmedTransactions,omitempty"`
	InvalidatedTransactions []string          `json:"invalidatedTransactions,omitempty"`
	DiscoveredAddresses     []string          `json:"discoveredAddresses,omitempty"`
	FailedAddresses         []string          `json:"failedAddresses,omitempty"`
	Partial                 bool              `json:"partial"`
}

// GeneratedAddressesResponse carries freshly derived addresses.
type GeneratedAddressesResponse struct {
	Addresses []string `json:"addresses"`
}

// GeneratedMnemonicResponse carries a freshly generated mnemonic. Its textual rendering is redacted so the
// mnemonic does not leak through logs that print responses.
type GeneratedMnemonicResponse struct {
	Mnemonic string `json:"mnemonic"`
}

// String returns a redacted representation of the response.
func (GeneratedMnemonicResponse) String() string {
	return "GeneratedMnemonicResponse(<redacted>)"
}

// StrongholdPasswordIsAvailableResponse reports whether the password is currently cached.
type StrongholdPasswordIsAvailableResponse struct {
	Available bool `json:"available"`
}

// NodeInfoResponse carries the identity and health information of the node.
type NodeInfoResponse struct {
	Version   string `json:"version"`
	NetworkID string `json:"networkID"`
	Synced    bool   `json:"synced"`
}

// BackupResponse carries an exported backup blob. The seed inside stays sealed under the wallet password.
type BackupResponse struct {
	Backup []byte `json:"backup"`
}

// OkResponse reports the success of an operation that yields no data.
type OkResponse struct{}

// ErrorResponse carries the failure of an operation.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PanicResponse reports that a handler panicked while processing a request.
type PanicResponse struct {
	Message string `json:"message"`
}

func (AccountResponse) isResponse()                       {}
func (AccountsResponse) isResponse()                      {}
func (BalanceResponse) isResponse()                       {}
func (AddressesResponse) isResponse()                     {}
func (OutputsResponse) isResponse()                       {}
func (TransactionsResponse) isResponse()                  {}
func (SentTransferResponse) isResponse()                  {}
func (PreparedTransactionResponse) isResponse()           {}
func (SignedTransactionDataResponse) isResponse()         {}
func (SyncResponse) isResponse()                          {}
func (GeneratedAddressesResponse) isResponse()            {}
func (GeneratedMnemonicResponse) isResponse()             {}
func (StrongholdPasswordIsAvailableResponse) isResponse() {}
func (NodeInfoResponse) isResponse()                      {}
func (BackupResponse) isResponse()                        {}
func (OkResponse) isResponse()                            {}
func (ErrorResponse) isResponse()                         {}
func (PanicResponse) isResponse()                         {}
