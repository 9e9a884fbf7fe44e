package rpcclient

import "github.com/qubickit/sdk-go/internal/wireformat"

// TickInfo is the response shape of GET /live/v1/tick-info (spec.md §6.2).
type TickInfo struct {
	Tick                  wireformat.Uint64 `json:"tick"`
	Epoch                 wireformat.Uint64 `json:"epoch"`
	InitialTick           wireformat.Uint64 `json:"initialTick"`
	InitialTickTimestamp  wireformat.Uint64 `json:"initialTickTimestamp"`
}

// Balance is the response shape of GET /live/v1/balances/{id}.
type Balance struct {
	ID      string             `json:"id"`
	Balance wireformat.BigUint `json:"balance"`
	Tick    wireformat.Uint64  `json:"validForTick"`
}

// BroadcastRequest is the body of POST /live/v1/broadcast-transaction.
type BroadcastRequest struct {
	EncodedTransaction string `json:"encodedTransaction"`
}

// BroadcastResponse is the result of a broadcast call. spec.md §3:
// "networkTxId is authoritative for confirmation even when it equals
// txId" — the field is named TransactionId on the wire per §6.2.
type BroadcastResponse struct {
	PeersBroadcasted   int32  `json:"peersBroadcasted"`
	EncodedTransaction string `json:"encodedTransaction"`
	TransactionId      string `json:"transactionId"`
}

// QuerySmartContractRequest is the body of POST /live/v1/querySmartContract.
type QuerySmartContractRequest struct {
	ContractIndex uint32 `json:"contractIndex"`
	InputType     uint16 `json:"inputType"`
	InputSize     uint16 `json:"inputSize"`
	RequestData   string `json:"requestData"`
}

// QuerySmartContractResponse is the result of a contract query call.
type QuerySmartContractResponse struct {
	ResponseData string `json:"responseData"`
}

// LastProcessedTick is the response of GET /query/v1/getLastProcessedTick.
type LastProcessedTick struct {
	LastProcessedTick wireformat.Uint64 `json:"lastProcessedTick"`
}

// QueryTransaction is the confirmed archive record described in spec.md
// §3.
type QueryTransaction struct {
	Hash        string             `json:"hash"`
	Amount      wireformat.BigUint `json:"amount"`
	Source      string             `json:"source"`
	Destination string             `json:"destination"`
	TickNumber  wireformat.Uint64  `json:"tickNumber"`
	Timestamp   wireformat.Uint64  `json:"timestamp"`
	InputType   uint16             `json:"inputType"`
	InputSize   uint32             `json:"inputSize"`
	InputData   string             `json:"inputData"`
	Signature   string             `json:"signature"`
	MoneyFlew   *bool              `json:"moneyFlew,omitempty"`
}

// GetTransactionByHashRequest is the body of
// POST /query/v1/getTransactionByHash.
type GetTransactionByHashRequest struct {
	Hash string `json:"hash"`
}

// IdentityTransactionsFilter and Range narrow
// GetTransactionsForIdentity per spec.md §4.A.
type IdentityTransactionsFilter struct {
	InputTypes []uint16 `json:"inputTypes,omitempty"`
}

type TickRange struct {
	StartTick wireformat.Uint64 `json:"startTick"`
	EndTick   wireformat.Uint64 `json:"endTick"`
}

type Pagination struct {
	Offset int `json:"offset,omitempty"`
	Limit  int `json:"limit,omitempty"`
}

// GetTransactionsForIdentityRequest is the body of
// POST /query/v1/getTransactionsForIdentity.
type GetTransactionsForIdentityRequest struct {
	Identity   string                     `json:"identity"`
	Filters    IdentityTransactionsFilter `json:"filters,omitempty"`
	Ranges     []TickRange                `json:"ranges,omitempty"`
	Pagination Pagination                 `json:"pagination,omitempty"`
}

// GetTransactionsForIdentityResponse wraps the matching transactions.
type GetTransactionsForIdentityResponse struct {
	Transactions []QueryTransaction `json:"transactions"`
}

// TickData is the response of POST /query/v1/getTickData.
type TickData struct {
	TickNumber   wireformat.Uint64 `json:"tickNumber"`
	Epoch        wireformat.Uint64 `json:"epoch"`
	Timestamp    wireformat.Uint64 `json:"timestamp"`
	Transactions []string          `json:"transactions"`
}

// ProcessedTickInterval is one element of GetProcessedTickIntervals.
type ProcessedTickInterval struct {
	Epoch       wireformat.Uint64 `json:"epoch"`
	InitialTick wireformat.Uint64 `json:"initialProcessedTick"`
	LastTick    wireformat.Uint64 `json:"lastProcessedTick"`
}

// ProcessedTickIntervalsResponse wraps the interval list.
type ProcessedTickIntervalsResponse struct {
	Intervals []ProcessedTickInterval `json:"intervals"`
}

// GetComputorListsForEpochRequest is the body of
// POST /query/v1/getComputorListsForEpoch.
type GetComputorListsForEpochRequest struct {
	Epoch uint32 `json:"epoch"`
}

// ComputorList is one returned computor list for an epoch.
type ComputorList struct {
	Epoch      wireformat.Uint64 `json:"epoch"`
	Identities []string          `json:"identities"`
}

// GetComputorListsForEpochResponse wraps the returned lists.
type GetComputorListsForEpochResponse struct {
	ComputorLists []ComputorList `json:"computorLists"`
}
