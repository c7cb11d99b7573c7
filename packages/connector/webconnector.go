package connector

import (
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"
	"github.com/mr-tron/base58"

	"github.com/iotaledger/wallet.go/packages/address"
	"github.com/iotaledger/wallet.go/packages/ledger"
)

const (
	routeInfo           = "api/info"
	routeUnspentOutputs = "api/outputs/unspent"
	routeTransactions   = "api/transactions"
	routeInclusionState = "api/transactions/{transactionID}/inclusionState"
)

// WebConnector implements a Connector that talks to a node through its web API.
type WebConnector struct {
	client *resty.Client
}

// NewWebConnector is the constructor for the WebConnector.
func NewWebConnector(baseURL string, timeout ...time.Duration) *WebConnector {
	client := resty.New().SetHostURL(baseURL)
	if len(timeout) > 0 {
		client.SetTimeout(timeout[0])
	}

	return &WebConnector{
		client: client,
	}
}

// UnspentOutputs returns the unspent outputs currently held by the given addresses.
func (w *WebConnector) UnspentOutputs(addresses ...address.Address) (unspentOutputs map[address.Address][]*ledger.Output, err error) {
	addressReverseLookupTable := make(map[string]address.Address)
	base58EncodedAddresses := make([]string, len(addresses))
	for index, addr := range addresses {
		base58EncodedAddresses[index] = addr.Base58()
		addressReverseLookupTable[addr.Base58()] = addr
	}

	result := &unspentOutputsResponse{}
	response, err := w.client.R().
		SetBody(&unspentOutputsRequest{Addresses: base58EncodedAddresses}).
		SetResult(result).
		Post(routeUnspentOutputs)
	if apiErr := checkResponse(response, err, result.Error); apiErr != nil {
		return nil, apiErr
	}

	unspentOutputs = make(map[address.Address][]*ledger.Output)
	for _, addressOutputs := range result.UnspentOutputs {
		addr, addressRequested := addressReverseLookupTable[addressOutputs.Address]
		if !addressRequested {
			return nil, errors.Errorf("the node returned outputs for unrequested address %s", addressOutputs.Address)
		}

		for _, outputModel := range addressOutputs.Outputs {
			output, outputErr := outputFromModel(addr, outputModel)
			if outputErr != nil {
				return nil, outputErr
			}
			unspentOutputs[addr] = append(unspentOutputs[addr], output)
		}
	}

	return
}

// SubmitTransaction hands a signed transaction to the node.
func (w *WebConnector) SubmitTransaction(transaction *ledger.Transaction) (err error) {
	result := &submitTransactionResponse{}
	response, err := w.client.R().
		SetBody(&submitTransactionRequest{TransactionBytes: base58.Encode(transaction.Bytes())}).
		SetResult(result).
		Post(routeTransactions)

	return checkResponse(response, err, result.Error)
}

// TransactionInclusionState queries what the node knows about the given transaction.
func (w *WebConnector) TransactionInclusionState(transactionID ledger.TransactionID) (inclusionState InclusionState, err error) {
	result := &inclusionStateResponse{}
	response, err := w.client.R().
		SetPathParam("transactionID", transactionID.Base58()).
		SetResult(result).
		Get(routeInclusionState)
	if apiErr := checkResponse(response, err, result.Error); apiErr != nil {
		return InclusionStateUnknown, apiErr
	}

	switch result.State {
	case "pending":
		return InclusionStatePending, nil
	case "confirmed":
		return InclusionStateConfirmed, nil
	case "rejected":
		return InclusionStateRejected, nil
	default:
		return InclusionStateUnknown, nil
	}
}

// NodeInfo returns the identity and health information of the node.
func (w *WebConnector) NodeInfo() (nodeInfo *NodeInfo, err error) {
	result := &nodeInfoResponse{}
	response, err := w.client.R().
		SetResult(result).
		Get(routeInfo)
	if apiErr := checkResponse(response, err, result.Error); apiErr != nil {
		return nil, apiErr
	}

	return &NodeInfo{
		Version:   result.Version,
		NetworkID: result.NetworkID,
		Synced:    result.Synced,
	}, nil
}

// checkResponse folds the transport error, the HTTP status and the API level error message into a single error.
// Unreachable nodes and server side failures are marked as transient.
func checkResponse(response *resty.Response, err error, apiError string) error {
	if err != nil {
		return errors.Wrapf(ErrTransient, "request failed: %s", err.Error())
	}
	if response.StatusCode() >= http.StatusInternalServerError {
		return errors.Wrapf(ErrTransient, "node returned status %d", response.StatusCode())
	}
	if response.StatusCode() >= http.StatusBadRequest {
		if apiError != "" {
			return errors.Errorf("node rejected request: %s", apiError)
		}

		return errors.Errorf("node returned status %d", response.StatusCode())
	}
	if apiError != "" {
		return errors.Errorf("node reported error: %s", apiError)
	}

	return nil
}

func outputFromModel(addr address.Address, model outputModel) (output *ledger.Output, err error) {
	outputID, err := ledger.OutputIDFromBase58(model.OutputID)
	if err != nil {
		return nil, err
	}

	balances := make(ledger.Balances)
	for encodedTokenID, amount := range model.Balances {
		tokenID, tokenErr := ledger.TokenIDFromBase58(encodedTokenID)
		if tokenErr != nil {
			return nil, tokenErr
		}
		balances[tokenID] = amount
	}

	nftID := ledger.EmptyNFTID
	if model.NFTID != "" {
		if nftID, err = ledger.NFTIDFromBase58(model.NFTID); err != nil {
			return nil, err
		}
	}

	output = ledger.NewNFTOutput(addr, balances, nftID)
	output.ID = outputID
	output.Timestamp = time.Unix(model.Timestamp, 0)

	return
}

// region API models ///////////////////////////////////////////////////////////////////////////////////////////////////

type unspentOutputsRequest struct {
	Addresses []string `json:"addresses"`
}

type unspentOutputsResponse struct {
	UnspentOutputs []addressOutputsModel `json:"unspentOutputs"`
	Error          string                `json:"error,omitempty"`
}

type addressOutputsModel struct {
	Address string        `json:"address"`
	Outputs []outputModel `json:"outputs"`
}

type outputModel struct {
	OutputID  string            `json:"outputID"`
	Balances  map[string]uint64 `json:"balances"`
	NFTID     string            `json:"nftID,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

type submitTransactionRequest struct {
	TransactionBytes string `json:"transactionBytes"`
}

type submitTransactionResponse struct {
	TransactionID string `json:"transactionID,omitempty"`
	Error         string `json:"error,omitempty"`
}

type inclusionStateResponse struct {
	State string `json:"state,omitempty"`
	Error string `json:"error,omitempty"`
}

type nodeInfoResponse struct {
	Version   string `json:"version,omitempty"`
	NetworkID string `json:"networkID,omitempty"`
	Synced    bool   `json:"synced"`
	Error     string `json:"error,omitempty"`
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////
