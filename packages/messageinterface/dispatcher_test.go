package messageinterface

import (
	"fmt"
	"testing"

	"github.com/iotaledger/hive.go/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wallet "github.com/iotaledger/wallet.go"
	"github.com/iotaledger/wallet.go/packages/connector"
	"github.com/iotaledger/wallet.go/packages/ledger"
	"github.com/iotaledger/wallet.go/packages/seed"
)

func TestDispatchAccountLifecycle(t *testing.T) {
	conn := connector.NewInMemoryConnector()
	dispatcher, walletInstance := testDispatcher(t, conn)

	mnemonicResponse, ok := dispatcher.Dispatch(GenerateMnemonicRequest{}).(GeneratedMnemonicResponse)
	require.True(t, ok)
	assert.IsType(t, OkResponse{}, dispatcher.Dispatch(VerifyMnemonicRequest{Mnemonic: mnemonicResponse.Mnemonic}))
	assert.IsType(t, OkResponse{}, dispatcher.Dispatch(StoreMnemonicRequest{
		Mnemonic: mnemonicResponse.Mnemonic,
		Password: "password",
	}))

	accountResponse, ok := dispatcher.Dispatch(CreateAccountRequest{Alias: "main"}).(AccountResponse)
	require.True(t, ok)
	assert.Equal(t, "main", accountResponse.Account.Alias)

	accountsResponse, ok := dispatcher.Dispatch(GetAccountsRequest{}).(AccountsResponse)
	require.True(t, ok)
	assert.Len(t, accountsResponse.Accounts, 1)

	// fund the account's receive address and let the dispatcher sync it
	acc, err := walletInstance.Account(accountResponse.Account.Index)
	require.NoError(t, err)
	conn.CreateOutput(acc.Addresses()[0].Address, ledger.Balances{ledger.BaseToken: 1000})

	syncResponse, ok := dispatcher.Dispatch(SyncAccountRequest{AccountIndex: accountResponse.Account.Index}).(SyncResponse)
	require.True(t, ok)
	assert.Equal(t, 1, syncResponse.NewOutputCount)

	balanceResponse, ok := dispatcher.Dispatch(GetBalanceRequest{AccountIndex: accountResponse.Account.Index}).(BalanceResponse)
	require.True(t, ok)
	assert.EqualValues(t, 1000, balanceResponse.Balance[ledger.BaseToken.Base58()])

	sentResponse, ok := dispatcher.Dispatch(SendFundsRequest{
		AccountIndex: accountResponse.Account.Index,
		Destinations: []DestinationParameters{{
			Address: seed.NewSeed().Address(0, false).Base58(),
			Amount:  400,
		}},
	}).(SentTransferResponse)
	require.True(t, ok)
	assert.NotEmpty(t, sentResponse.TransactionID)

	assert.IsType(t, OkResponse{}, dispatcher.Dispatch(RemoveAccountRequest{AccountIndex: accountResponse.Account.Index}))
	assert.IsType(t, ErrorResponse{}, dispatcher.Dispatch(GetAccountRequest{AccountIndex: accountResponse.Account.Index}))
}

func TestDispatchPrepareAndSignTransaction(t *testing.T) {
	conn := connector.NewInMemoryConnector()
	dispatcher, walletInstance := testDispatcher(t, conn)

	mnemonicResponse := dispatcher.Dispatch(GenerateMnemonicRequest{}).(GeneratedMnemonicResponse)
	require.IsType(t, OkResponse{}, dispatcher.Dispatch(StoreMnemonicRequest{
		Mnemonic: mnemonicResponse.Mnemonic,
		Password: "password",
	}))
	accountResponse := dispatcher.Dispatch(CreateAccountRequest{Alias: "main"}).(AccountResponse)

	acc, err := walletInstance.Account(accountResponse.Account.Index)
	require.NoError(t, err)
	conn.CreateOutput(acc.Addresses()[0].Address, ledger.Balances{ledger.BaseToken: 1000})
	require.IsType(t, SyncResponse{}, dispatcher.Dispatch(SyncAccountRequest{AccountIndex: accountResponse.Account.Index}))

	destinationAddress := seed.NewSeed().Address(0, false)
	preparedResponse, ok := dispatcher.Dispatch(PrepareTransactionRequest{
		AccountIndex: accountResponse.Account.Index,
		Destinations: []DestinationParameters{{Address: destinationAddress.Base58(), Amount: 400}},
	}).(PreparedTransactionResponse)
	require.True(t, ok)
	require.NotEmpty(t, preparedResponse.Essence)

	signedResponse, ok := dispatcher.Dispatch(SignTransactionRequest{
		AccountIndex: accountResponse.Account.Index,
		Essence:      preparedResponse.Essence,
	}).(SignedTransactionDataResponse)
	require.True(t, ok)
	assert.Equal(t, preparedResponse.TransactionID, signedResponse.TransactionID)
	assert.NotEmpty(t, signedResponse.Transaction)

	// neither preparing nor signing submits anything
	unspentOutputs, err := conn.UnspentOutputs(destinationAddress)
	require.NoError(t, err)
	assert.Empty(t, unspentOutputs[destinationAddress])
	balanceResponse := dispatcher.Dispatch(GetBalanceRequest{AccountIndex: accountResponse.Account.Index}).(BalanceResponse)
	assert.EqualValues(t, 1000, balanceResponse.Balance[ledger.BaseToken.Base58()])
}

func TestDispatchSendNFT(t *testing.T) {
	conn := connector.NewInMemoryConnector()
	dispatcher, walletInstance := testDispatcher(t, conn)

	mnemonicResponse := dispatcher.Dispatch(GenerateMnemonicRequest{}).(GeneratedMnemonicResponse)
	require.IsType(t, OkResponse{}, dispatcher.Dispatch(StoreMnemonicRequest{
		Mnemonic: mnemonicResponse.Mnemonic,
		Password: "password",
	}))
	accountResponse := dispatcher.Dispatch(CreateAccountRequest{Alias: "main"}).(AccountResponse)

	acc, err := walletInstance.Account(accountResponse.Account.Index)
	require.NoError(t, err)
	var nftID ledger.NFTID
	nftID[0] = 42
	conn.CreateNFTOutput(acc.Addresses()[0].Address, ledger.Balances{ledger.BaseToken: 500}, nftID)
	require.IsType(t, SyncResponse{}, dispatcher.Dispatch(SyncAccountRequest{AccountIndex: accountResponse.Account.Index}))

	assert.IsType(t, ErrorResponse{}, dispatcher.Dispatch(SendFundsRequest{
		AccountIndex: accountResponse.Account.Index,
		NFTs:         []NFTParameters{{NFTID: "not-base58-0OIl", Address: seed.NewSeed().Address(0, false).Base58()}},
	}))

	destinationAddress := seed.NewSeed().Address(0, false)
	sentResponse, ok := dispatcher.Dispatch(SendFundsRequest{
		AccountIndex: accountResponse.Account.Index,
		NFTs:         []NFTParameters{{NFTID: nftID.Base58(), Address: destinationAddress.Base58()}},
	}).(SentTransferResponse)
	require.True(t, ok)
	assert.NotEmpty(t, sentResponse.TransactionID)

	unspentOutputs, err := conn.UnspentOutputs(destinationAddress)
	require.NoError(t, err)
	require.Len(t, unspentOutputs[destinationAddress], 1)
	assert.Equal(t, nftID, unspentOutputs[destinationAddress][0].NFT)
}

func TestDispatchRejectsLockedStore(t *testing.T) {
	dispatcher, _ := testDispatcher(t, connector.NewInMemoryConnector())

	// without a stored mnemonic the secret store cannot derive addresses
	assert.IsType(t, ErrorResponse{}, dispatcher.Dispatch(CreateAccountRequest{Alias: "main"}))
}

func TestGeneratedMnemonicRenderingIsRedacted(t *testing.T) {
	dispatcher, _ := testDispatcher(t, connector.NewInMemoryConnector())

	response, ok := dispatcher.Dispatch(GenerateMnemonicRequest{}).(GeneratedMnemonicResponse)
	require.True(t, ok)
	require.NotEmpty(t, response.Mnemonic)

	rendered := fmt.Sprintf("%v %s", response, response)
	assert.NotContains(t, rendered, response.Mnemonic)
	assert.Contains(t, rendered, "<redacted>")
}

func TestPanickingHandlerIsCaptured(t *testing.T) {
	// a nil wallet makes every handler dereference nil
	dispatcher := NewDispatcher(nil, logger.NewExampleLogger("dispatcher"))
	dispatcher.Start()
	defer dispatcher.Stop()

	response := dispatcher.Dispatch(GetAccountsRequest{})
	assert.IsType(t, PanicResponse{}, response)
}

func testDispatcher(t *testing.T, conn connector.Connector) (*Dispatcher, *wallet.Wallet) {
	t.Helper()

	walletInstance, err := wallet.New(wallet.GenericConnector(conn), wallet.GapLimit(1))
	require.NoError(t, err)

	dispatcher := NewDispatcher(walletInstance, logger.NewExampleLogger("dispatcher"))
	dispatcher.Start()
	t.Cleanup(func() {
		dispatcher.Stop()
		walletInstance.Shutdown()
	})

	return dispatcher, walletInstance
}
