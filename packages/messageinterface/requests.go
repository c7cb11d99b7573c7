package messageinterface

// Request is the closed set of messages the Dispatcher accepts. Every request type maps to exactly one wallet
// operation; unknown message types are rejected with an ErrorResponse instead of being interpreted loosely.
type Request interface {
	isRequest()
}

// CreateAccountRequest creates a new account with the given alias.
type CreateAccountRequest struct {
	Alias string `json:"alias"`
}

// RemoveAccountRequest drops the account with the given index.
type RemoveAccountRequest struct {
	AccountIndex uint32 `json:"accountIndex"`
}

// GetAccountRequest returns the account with the given index.
type GetAccountRequest struct {
	AccountIndex uint32 `json:"accountIndex"`
}

// GetAccountsRequest returns all accounts of the wallet.
type GetAccountsRequest struct{}

// GetBalanceRequest returns the spendable balance of an account.
type GetBalanceRequest struct {
	AccountIndex uint32 `json:"accountIndex"`
}

// GetAddressesRequest returns the addresses of an account.
type GetAddressesRequest struct {
	AccountIndex uint32 `json:"accountIndex"`
}

// GetAddressesWithUnspentOutputsRequest returns the addresses of an account that hold unspent outputs.
type GetAddressesWithUnspentOutputsRequest struct {
	AccountIndex uint32 `json:"accountIndex"`
}

// GetOutputsRequest returns all outputs tracked by an account.
type GetOutputsRequest struct {
	AccountIndex uint32 `json:"accountIndex"`
}

// GetUnspentOutputsRequest returns the spendable outputs of an account.
type GetUnspentOutputsRequest struct {
	AccountIndex uint32 `json:"accountIndex"`
}

// GetTransactionsRequest returns all transactions recorded by an account.
type GetTransactionsRequest struct {
	AccountIndex uint32 `json:"accountIndex"`
}

// GetPendingTransactionsRequest returns the submitted but unconfirmed transactions of an account.
type GetPendingTransactionsRequest struct {
	AccountIndex uint32 `json:"accountIndex"`
}

// SyncAccountRequest reconciles an account with the node.
type SyncAccountRequest struct {
	AccountIndex uint32 `json:"accountIndex"`
}

// GenerateAddressesRequest derives the next receive addresses of an account.
type GenerateAddressesRequest struct {
	AccountIndex uint32 `json:"accountIndex"`
	Count        int    `json:"count"`
}

// DestinationParameters describes one destination of a transfer.
type DestinationParameters struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`

	// Token is the base58 encoded token class to send, the base token if empty.
	Token string `json:"token,omitempty"`
}

// NFTParameters moves the non-fungible token with the given ID to an address.
type NFTParameters struct {
	NFTID   string `json:"nftId"`
	Address string `json:"address"`
}

// SendFundsRequest moves funds from an account to one or more destinations.
type SendFundsRequest struct {
	AccountIndex     uint32                  `json:"accountIndex"`
	Destinations     []DestinationParameters `json:"destinations"`
	NFTs             []NFTParameters         `json:"nfts,omitempty"`
	RemainderAddress string                  `json:"remainderAddress,omitempty"`

	// AllowMicroAmount permits destinations below the dust minimum.
	AllowMicroAmount bool `json:"allowMicroAmount,omitempty"`
}

// PrepareTransactionRequest builds the unsigned essence of a transfer without signing or submitting it.
type PrepareTransactionRequest struct {
	AccountIndex     uint32                  `json:"accountIndex"`
	Destinations     []DestinationParameters `json:"destinations"`
	NFTs             []NFTParameters         `json:"nfts,omitempty"`
	RemainderAddress string                  `json:"remainderAddress,omitempty"`

	// AllowMicroAmount permits destinations below the dust minimum.
	AllowMicroAmount bool `json:"allowMicroAmount,omitempty"`
}

// SignTransactionRequest signs a prepared essence without submitting the transaction.
type SignTransactionRequest struct {
	AccountIndex uint32 `json:"accountIndex"`
	Essence      []byte `json:"essence"`
}

// ConsolidateFundsRequest merges the spendable outputs of an account into a single output.
type ConsolidateFundsRequest struct {
	AccountIndex uint32 `json:"accountIndex"`
}

// GenerateMnemonicRequest creates a fresh mnemonic sentence without storing it.
type GenerateMnemonicRequest struct{}

// VerifyMnemonicRequest checks that a sentence is a valid mnemonic.
type VerifyMnemonicRequest struct {
	Mnemonic string `json:"mnemonic"`
}

// StoreMnemonicRequest derives the wallet seed from the mnemonic and seals it under the password.
type StoreMnemonicRequest struct {
	Mnemonic string `json:"mnemonic"`
	Password string `json:"password"`
}

// SetStrongholdPasswordRequest unlocks the secret store.
type SetStrongholdPasswordRequest struct {
	Password string `json:"password"`
}

// ClearStrongholdPasswordRequest wipes the cached password and locks the secret store.
type ClearStrongholdPasswordRequest struct{}

// IsStrongholdPasswordAvailableRequest checks whether the password is currently cached.
type IsStrongholdPasswordAvailableRequest struct{}

// ChangeStrongholdPasswordRequest re-seals the seed under a new password.
type ChangeStrongholdPasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// SetStrongholdPasswordClearIntervalRequest changes the inactivity period after which the password is wiped.
type SetStrongholdPasswordClearIntervalRequest struct {
	IntervalSeconds uint64 `json:"intervalSeconds"`
}

// StartBackgroundSyncRequest launches the periodic background sync.
type StartBackgroundSyncRequest struct{}

// StopBackgroundSyncRequest terminates the periodic background sync.
type StopBackgroundSyncRequest struct{}

// GetNodeInfoRequest returns the identity and health information of the node.
type GetNodeInfoRequest struct{}

// BackupRequest exports the sealed seed and the account snapshots.
type BackupRequest struct{}

// RestoreBackupRequest imports a backup blob.
type RestoreBackupRequest struct {
	Backup   []byte `json:"backup"`
	Password string `json:"password"`
}

func (CreateAccountRequest) isRequest()                      {}
func (RemoveAccountRequest) isRequest()                      {}
func (GetAccountRequest) isRequest()                         {}
func (GetAccountsRequest) isRequest()                        {}
func (GetBalanceRequest) isRequest()                         {}
func (GetAddressesRequest) isRequest()                       {}
func (GetAddressesWithUnspentOutputsRequest) isRequest()     {}
func (GetOutputsRequest) isRequest()                         {}
func (GetUnspentOutputsRequest) isRequest()                  {}
func (GetTransactionsRequest) isRequest()                    {}
func (GetPendingTransactionsRequest) isRequest()             {}
func (SyncAccountRequest) isRequest()                        {}
func (GenerateAddressesRequest) isRequest()                  {}
func (SendFundsRequest) isRequest()                          {}
func (PrepareTransactionRequest) isRequest()                 {}
func (SignTransactionRequest) isRequest()                    {}
func (ConsolidateFundsRequest) isRequest()                   {}
func (GenerateMnemonicRequest) isRequest()                   {}
func (VerifyMnemonicRequest) isRequest()                     {}
func (StoreMnemonicRequest) isRequest()                      {}
func (SetStrongholdPasswordRequest) isRequest()              {}
func (ClearStrongholdPasswordRequest) isRequest()            {}
func (IsStrongholdPasswordAvailableRequest) isRequest()      {}
func (ChangeStrongholdPasswordRequest) isRequest()           {}
func (SetStrongholdPasswordClearIntervalRequest) isRequest() {}
func (StartBackgroundSyncRequest) isRequest()                {}
func (StopBackgroundSyncRequest) isRequest()                 {}
func (GetNodeInfoRequest) isRequest()                        {}
func (BackupRequest) isRequest()                             {}
func (RestoreBackupRequest) isRequest()                      {}
