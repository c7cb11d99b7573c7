// Package messageinterface exposes the wallet through a message based interface: a closed set of request types
// goes in, a closed set of response types comes out. Requests are processed by a worker pool, failures are
// returned as ErrorResponse values and a panicking handler is captured and returned as a PanicResponse instead of
// taking the process down.
package messageinterface

import (
	"fmt"
	"time"

	"github.com/iotaledger/hive.go/logger"
	"github.com/iotaledger/hive.go/marshalutil"
	"github.com/iotaledger/hive.go/workerpool"

	wallet "github.com/iotaledger/wallet.go"
	"github.com/iotaledger/wallet.go/packages/account"
	"github.com/iotaledger/wallet.go/packages/address"
	"github.com/iotaledger/wallet.go/packages/ledger"
	"github.com/iotaledger/wallet.go/packages/sendoptions"
	"github.com/iotaledger/wallet.go/packages/syncmanager"
)

const (
	defaultWorkerCount = 1
	defaultQueueSize   = 64
)

// Dispatcher routes requests to the wallet and wraps the outcomes into responses.
type Dispatcher struct {
	wallet *wallet.Wallet
	log    *logger.Logger
	pool   *workerpool.WorkerPool
}

// NewDispatcher is the constructor for the Dispatcher. By default requests are processed by a single worker, which
// serializes them in arrival order.
func NewDispatcher(walletInstance *wallet.Wallet, log *logger.Logger, optionalWorkerCount ...int) (dispatcher *Dispatcher) {
	workerCount := defaultWorkerCount
	if len(optionalWorkerCount) >= 1 {
		workerCount = optionalWorkerCount[0]
	}

	dispatcher = &Dispatcher{
		wallet: walletInstance,
		log:    log,
	}
	dispatcher.pool = workerpool.New(func(task workerpool.Task) {
		task.Return(dispatcher.handleSafely(task.Param(0).(Request)))
	}, workerpool.WorkerCount(workerCount), workerpool.QueueSize(defaultQueueSize))

	return
}

// Start launches the worker pool of the Dispatcher.
func (d *Dispatcher) Start() {
	d.pool.Start()
}

// Stop terminates the worker pool of the Dispatcher.
func (d *Dispatcher) Stop() {
	d.pool.Stop()
}

// Dispatch hands a request to the worker pool and blocks until its response is available. A full queue is reported
// as an ErrorResponse.
func (d *Dispatcher) Dispatch(request Request) Response {
	resultChan, submitted := d.pool.TrySubmit(request)
	if !submitted {
		return ErrorResponse{Error: "dispatcher queue is full"}
	}

	return (<-resultChan).(Response)
}

// handleSafely processes a request and converts a panicking handler into a PanicResponse.
func (d *Dispatcher) handleSafely(request Request) (response Response) {
	defer func() {
		if recovered := recover(); recovered != nil {
			d.log.Errorf("request handler panicked: %v", recovered)
			response = PanicResponse{Message: fmt.Sprintf("%v", recovered)}
		}
	}()

	return d.handle(request)
}

// handle maps every request type to its wallet operation.
func (d *Dispatcher) handle(request Request) Response {
	switch typedRequest := request.(type) {
	case CreateAccountRequest:
		acc, err := d.wallet.CreateAccount(typedRequest.Alias)
		if err != nil {
			return errorResponse(err)
		}

		return AccountResponse{Account: accountInfo(acc)}

	case RemoveAccountRequest:
		if err := d.wallet.RemoveAccount(typedRequest.AccountIndex); err != nil {
			return errorResponse(err)
		}

		return OkResponse{}

	case GetAccountRequest:
		acc, err := d.wallet.Account(typedRequest.AccountIndex)
		if err != nil {
			return errorResponse(err)
		}

		return AccountResponse{Account: accountInfo(acc)}

	case GetAccountsRequest:
		accounts := d.wallet.Accounts()
		accountInfos := make([]AccountInfo, len(accounts))
		for i, acc := range accounts {
			accountInfos[i] = accountInfo(acc)
		}

		return AccountsResponse{Accounts: accountInfos}

	case GetBalanceRequest:
		balance, err := d.wallet.Balance(typedRequest.AccountIndex)
		if err != nil {
			return errorResponse(err)
		}

		return BalanceResponse{Balance: balancesMap(balance)}

	case GetAddressesRequest:
		acc, err := d.wallet.Account(typedRequest.AccountIndex)
		if err != nil {
			return errorResponse(err)
		}

		return AddressesResponse{Addresses: addressList(acc.Addresses())}

	case GetAddressesWithUnspentOutputsRequest:
		acc, err := d.wallet.Account(typedRequest.AccountIndex)
		if err != nil {
			return errorResponse(err)
		}

		return AddressesResponse{Addresses: addressList(acc.AddressesWithUnspentOutputs())}

	case GetOutputsRequest:
		acc, err := d.wallet.Account(typedRequest.AccountIndex)
		if err != nil {
			return errorResponse(err)
		}

		return OutputsResponse{Outputs: outputList(acc.Outputs())}

	case GetUnspentOutputsRequest:
		acc, err := d.wallet.Account(typedRequest.AccountIndex)
		if err != nil {
			return errorResponse(err)
		}

		return OutputsResponse{Outputs: outputList(acc.UnspentOutputs())}

	case GetTransactionsRequest:
		acc, err := d.wallet.Account(typedRequest.AccountIndex)
		if err != nil {
			return errorResponse(err)
		}

		return TransactionsResponse{Transactions: transactionList(acc.Transactions())}

	case GetPendingTransactionsRequest:
		acc, err := d.wallet.Account(typedRequest.AccountIndex)
		if err != nil {
			return errorResponse(err)
		}

		return TransactionsResponse{Transactions: transactionList(acc.PendingTransactions())}

	case SyncAccountRequest:
		result, err := d.wallet.SyncAccount(typedRequest.AccountIndex)
		if err != nil {
			return errorResponse(err)
		}

		return syncResponse(result)

	case GenerateAddressesRequest:
		addresses, err := d.wallet.GenerateAddresses(typedRequest.AccountIndex, typedRequest.Count)
		if err != nil {
			return errorResponse(err)
		}

		encodedAddresses := make([]string, len(addresses))
		for i, addr := range addresses {
			encodedAddresses[i] = addr.Base58()
		}

		return GeneratedAddressesResponse{Addresses: encodedAddresses}

	case SendFundsRequest:
		options, err := sendFundsOptions(typedRequest)
		if err != nil {
			return errorResponse(err)
		}
		transaction, err := d.wallet.SendFunds(typedRequest.AccountIndex, options...)
		if err != nil {
			return errorResponse(err)
		}

		return SentTransferResponse{TransactionID: transaction.ID().Base58()}

	case PrepareTransactionRequest:
		options, err := sendFundsOptions(SendFundsRequest{
			Destinations:     typedRequest.Destinations,
			NFTs:             typedRequest.NFTs,
			RemainderAddress: typedRequest.RemainderAddress,
			AllowMicroAmount: typedRequest.AllowMicroAmount,
		})
		if err != nil {
			return errorResponse(err)
		}
		essence, err := d.wallet.PrepareTransfer(typedRequest.AccountIndex, options...)
		if err != nil {
			return errorResponse(err)
		}

		return PreparedTransactionResponse{
			TransactionID: essence.TransactionID().Base58(),
			Essence:       essence.Bytes(),
		}

	case SignTransactionRequest:
		essence, err := ledger.TransactionEssenceFromMarshalUtil(marshalutil.New(typedRequest.Essence))
		if err != nil {
			return errorResponse(err)
		}
		transaction, err := d.wallet.SignTransfer(typedRequest.AccountIndex, essence)
		if err != nil {
			return errorResponse(err)
		}

		return SignedTransactionDataResponse{
			TransactionID: transaction.ID().Base58(),
			Transaction:   transaction.Bytes(),
		}

	case ConsolidateFundsRequest:
		transaction, err := d.wallet.ConsolidateFunds(typedRequest.AccountIndex)
		if err != nil {
			return errorResponse(err)
		}

		return SentTransferResponse{TransactionID: transaction.ID().Base58()}

	case GenerateMnemonicRequest:
		mnemonic, err := d.wallet.GenerateMnemonic()
		if err != nil {
			return errorResponse(err)
		}

		return GeneratedMnemonicResponse{Mnemonic: mnemonic}

	case VerifyMnemonicRequest:
		if err := d.wallet.VerifyMnemonic(typedRequest.Mnemonic); err != nil {
			return errorResponse(err)
		}

		return OkResponse{}

	case StoreMnemonicRequest:
		if err := d.wallet.StoreMnemonic(typedRequest.Mnemonic, []byte(typedRequest.Password)); err != nil {
			return errorResponse(err)
		}

		return OkResponse{}

	case SetStrongholdPasswordRequest:
		if err := d.wallet.SetStrongholdPassword([]byte(typedRequest.Password)); err != nil {
			return errorResponse(err)
		}

		return OkResponse{}

	case ClearStrongholdPasswordRequest:
		d.wallet.ClearStrongholdPassword()

		return OkResponse{}

	case IsStrongholdPasswordAvailableRequest:
		return StrongholdPasswordIsAvailableResponse{Available: d.wallet.IsStrongholdPasswordAvailable()}

	case ChangeStrongholdPasswordRequest:
		if err := d.wallet.ChangeStrongholdPassword([]byte(typedRequest.CurrentPassword), []byte(typedRequest.NewPassword)); err != nil {
			return errorResponse(err)
		}

		return OkResponse{}

	case SetStrongholdPasswordClearIntervalRequest:
		d.wallet.SetStrongholdPasswordClearInterval(time.Duration(typedRequest.IntervalSeconds) * time.Second)

		return OkResponse{}

	case StartBackgroundSyncRequest:
		d.wallet.StartBackgroundSync()

		return OkResponse{}

	case StopBackgroundSyncRequest:
		d.wallet.StopBackgroundSync()

		return OkResponse{}

	case GetNodeInfoRequest:
		nodeInfo, err := d.wallet.NodeInfo()
		if err != nil {
			return errorResponse(err)
		}

		return NodeInfoResponse{
			Version:   nodeInfo.Version,
			NetworkID: nodeInfo.NetworkID,
			Synced:    nodeInfo.Synced,
		}

	case BackupRequest:
		backup, err := d.wallet.Backup()
		if err != nil {
			return errorResponse(err)
		}

		return BackupResponse{Backup: backup}

	case RestoreBackupRequest:
		if err := d.wallet.RestoreBackup(typedRequest.Backup, []byte(typedRequest.Password)); err != nil {
			return errorResponse(err)
		}

		return OkResponse{}

	default:
		return ErrorResponse{Error: fmt.Sprintf("unknown request type %T", request)}
	}
}

// region conversion helpers ///////////////////////////////////////////////////////////////////////////////////////////

func errorResponse(err error) ErrorResponse {
	return ErrorResponse{Error: err.Error()}
}

func accountInfo(acc *account.Account) AccountInfo {
	return AccountInfo{
		Index:   acc.Index(),
		Alias:   acc.Alias(),
		Balance: balancesMap(acc.Balance()),
	}
}

func balancesMap(balances ledger.Balances) (result map[string]uint64) {
	result = make(map[string]uint64, len(balances))
	for tokenID, amount := range balances {
		result[tokenID.Base58()] = amount
	}

	return
}

func addressList(addresses []account.Address) (result []string) {
	result = make([]string, len(addresses))
	for i, addr := range addresses {
		result[i] = addr.Base58()
	}

	return
}

func outputList(outputs []*account.Output) (result []OutputInfo) {
	result = make([]OutputInfo, len(outputs))
	for i, output := range outputs {
		result[i] = OutputInfo{
			OutputID:  output.Object.ID.Base58(),
			Address:   output.Object.Address.Base58(),
			Balances:  balancesMap(output.Object.Balances),
			State:     output.State.String(),
			Timestamp: output.Object.Timestamp,
		}
	}

	return
}

func transactionList(transactions []*account.Transaction) (result []TransactionInfo) {
	result = make([]TransactionInfo, len(transactions))
	for i, transaction := range transactions {
		result[i] = TransactionInfo{
			TransactionID: transaction.ID().Base58(),
			State:         transaction.State.String(),
			Timestamp:     transaction.Timestamp,
		}
	}

	return
}

func syncResponse(result *syncmanager.Result) SyncResponse {
	response := SyncResponse{
		Balance:          balancesMap(result.Balance),
		NewOutputCount:   result.NewOutputCount,
		SpentOutputCount: result.SpentOutputCount,
		Partial:          result.Partial,
	}
	for _, transactionID := range result.ConfirmedTransactions {
		response.ConfirmedTransactions = append(response.ConfirmedTransactions, transactionID.Base58())
	}
	for _, transactionID := range result.InvalidatedTransactions {
		response.InvalidatedTransactions = append(response.InvalidatedTransactions, transactionID.Base58())
	}
	for _, addr := range result.DiscoveredAddresses {
		response.DiscoveredAddresses = append(response.DiscoveredAddresses, addr.Base58())
	}
	for _, addr := range result.FailedAddresses {
		response.FailedAddresses = append(response.FailedAddresses, addr.Base58())
	}

	return response
}

func sendFundsOptions(request SendFundsRequest) (options []sendoptions.SendFundsOption, err error) {
	for _, destination := range request.Destinations {
		destinationAddress, addressErr := address.FromBase58(destination.Address)
		if addressErr != nil {
			return nil, addressErr
		}

		if destination.Token == "" {
			options = append(options, sendoptions.Destination(destinationAddress, destination.Amount))

			continue
		}
		tokenID, tokenErr := ledger.TokenIDFromBase58(destination.Token)
		if tokenErr != nil {
			return nil, tokenErr
		}
		options = append(options, sendoptions.Destination(destinationAddress, destination.Amount, tokenID))
	}

	for _, nftTransfer := range request.NFTs {
		destinationAddress, addressErr := address.FromBase58(nftTransfer.Address)
		if addressErr != nil {
			return nil, addressErr
		}
		nftID, nftErr := ledger.NFTIDFromBase58(nftTransfer.NFTID)
		if nftErr != nil {
			return nil, nftErr
		}
		options = append(options, sendoptions.NFTDestination(destinationAddress, nftID))
	}

	if request.RemainderAddress != "" {
		remainderAddress, addressErr := address.FromBase58(request.RemainderAddress)
		if addressErr != nil {
			return nil, addressErr
		}
		options = append(options, sendoptions.Remainder(remainderAddress))
	}
	if request.AllowMicroAmount {
		options = append(options, sendoptions.AllowMicroAmounts())
	}

	return
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////
