// Package registry is the in-memory index of contract interface files
// (spec.md §4.H): it resolves function/procedure entries, validates
// optional typed codecs at construction, and drives contract queries and
// procedure transactions.
package registry

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/qubickit/sdk-go/internal/cancel"
	"github.com/qubickit/sdk-go/internal/contractquery"
	"github.com/qubickit/sdk-go/internal/qcrypto"
	"github.com/qubickit/sdk-go/internal/retry"
	"github.com/qubickit/sdk-go/internal/rpcclient"
	"github.com/qubickit/sdk-go/internal/sdkerr"
	"github.com/qubickit/sdk-go/internal/txbuilder"
)

// EntryKind distinguishes read (function) from write (procedure) entries.
type EntryKind string

const (
	KindFunction  EntryKind = "function"
	KindProcedure EntryKind = "procedure"
)

// Entry is the InterfaceEntry record from spec.md §3.
type Entry struct {
	Kind        EntryKind
	Name        string
	InputType   uint16
	InputSize   *uint32
	OutputSize  *uint32
}

// ContractRef identifies a contract: by numeric index for queries, and by
// identity (directly or via a public key) for procedure transactions.
type ContractRef struct {
	Name                 string
	ContractIndex        *uint32
	ContractPublicKeyHex string
	ContractId           string
}

// File is the InterfaceFile record from spec.md §3.
type File struct {
	Contract ContractRef
	Entries  []Entry
}

// Codec is the user-supplied encode/decode pair for one interface entry.
type Codec interface {
	Encode(entry Entry, value any) ([]byte, error)
	Decode(entry Entry, data []byte) (any, error)
}

// CodecKey names a codec registration: contract name, entry kind, entry
// name.
type CodecKey struct {
	Contract string
	Kind     EntryKind
	Entry    string
}

// ErrEntryNotFound is returned by GetEntry when no entry of the
// requested kind and name exists.
var ErrEntryNotFound = sdkerr.NewError(sdkerr.ErrKindQbiEntryNotFound, "registry: entry not found", nil)

// Registry is the constructed, immutable interface index.
type Registry struct {
	byName  map[string]*File
	byIndex map[uint32]*File
	codecs  map[CodecKey]Codec
}

// New constructs a Registry from files, validating uniqueness of
// contract.name and contractIndex, and validating that every codec
// registration names an existing entry (spec.md §4.H).
func New(files []File, codecs map[CodecKey]Codec) (*Registry, error) {
	r := &Registry{
		byName:  make(map[string]*File),
		byIndex: make(map[uint32]*File),
		codecs:  make(map[CodecKey]Codec),
	}

	for i := range files {
		f := &files[i]
		if _, exists := r.byName[f.Contract.Name]; exists {
			return nil, fmt.Errorf("registry: duplicate contract name %q", f.Contract.Name)
		}
		r.byName[f.Contract.Name] = f

		if f.Contract.ContractIndex != nil {
			idx := *f.Contract.ContractIndex
			if _, exists := r.byIndex[idx]; exists {
				return nil, fmt.Errorf("registry: duplicate contract index %d", idx)
			}
			r.byIndex[idx] = f
		}
	}

	for key := range codecs {
		file, ok := r.byName[key.Contract]
		if !ok {
			return nil, sdkerr.NewError(sdkerr.ErrKindQbiCodecValidation, fmt.Sprintf("registry: codec references unknown contract %q", key.Contract), nil)
		}
		found := false
		for _, e := range file.Entries {
			if e.Kind == key.Kind && e.Name == key.Entry {
				found = true
				break
			}
		}
		if !found {
			return nil, sdkerr.NewError(sdkerr.ErrKindQbiCodecValidation, fmt.Sprintf("registry: codec references unknown %s entry %q on contract %q", key.Kind, key.Entry, key.Contract), nil)
		}
		r.codecs[key] = codecs[key]
	}

	return r, nil
}

// Contract resolves a per-contract handle by name.
func (r *Registry) Contract(client *rpcclient.Client, builder *txbuilder.Builder, name string) (*Handle, error) {
	file, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: contract %q", ErrEntryNotFound, name)
	}
	return &Handle{registry: r, file: file, client: client, builder: builder}, nil
}

// Handle is a bound, per-contract view used to drive queries and
// procedure transactions.
type Handle struct {
	registry *Registry
	file     *File
	client   *rpcclient.Client
	builder  *txbuilder.Builder
}

// GetEntry performs the linear scan described in spec.md §4.H.
func (h *Handle) GetEntry(kind EntryKind, name string) (Entry, error) {
	for _, e := range h.file.Entries {
		if e.Kind == kind && e.Name == name {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s %q on contract %q", ErrEntryNotFound, kind, name, h.file.Contract.Name)
}

// QueryInput parameterizes Query.
type QueryInput struct {
	InputBytes        []byte
	InputValue        any
	Codec             Codec
	ExpectedOutputSize *uint32
	AllowSizeMismatch bool
	Retries           int
	RetryDelay        retry.Backoff
	CancelToken       cancel.Token
}

// QueryResult is returned by Query.
type QueryResult struct {
	ResponseBytes []byte
	Decoded       any
	Attempts      int
}

func (h *Handle) resolveCodec(kind EntryKind, name string, explicit Codec) Codec {
	if explicit != nil {
		return explicit
	}
	return h.registry.codecs[CodecKey{Contract: h.file.Contract.Name, Kind: kind, Entry: name}]
}

func materializeBytes(entry Entry, input QueryInput, codec Codec) ([]byte, error) {
	if input.InputBytes != nil {
		return input.InputBytes, nil
	}
	if codec != nil {
		encoded, err := codec.Encode(entry, input.InputValue)
		if err != nil {
			return nil, sdkerr.NewError(sdkerr.ErrKindQbiCodec, "registry: codec encode", err)
		}
		return encoded, nil
	}
	return nil, nil
}

// Query implements spec.md §4.H's query: choose codec, materialize bytes,
// validate declared input size, delegate to contractquery, and decode the
// response if a codec is available.
func (h *Handle) Query(ctx context.Context, name string, input QueryInput) (*QueryResult, error) {
	entry, err := h.GetEntry(KindFunction, name)
	if err != nil {
		return nil, err
	}
	codec := h.resolveCodec(KindFunction, name, input.Codec)

	inputBytes, err := materializeBytes(entry, input, codec)
	if err != nil {
		return nil, err
	}

	if entry.InputSize != nil && uint32(len(inputBytes)) != *entry.InputSize && !input.AllowSizeMismatch {
		return nil, sdkerr.NewError(sdkerr.ErrKindInputSizeMismatch, fmt.Sprintf("registry: input size %d does not match declared size %d for %q", len(inputBytes), *entry.InputSize, name), nil)
	}

	expected := 0
	if input.ExpectedOutputSize != nil {
		expected = int(*input.ExpectedOutputSize)
	} else if entry.OutputSize != nil {
		expected = int(*entry.OutputSize)
	}

	contractIndex := uint32(0)
	if h.file.Contract.ContractIndex != nil {
		contractIndex = *h.file.Contract.ContractIndex
	}

	result, err := contractquery.QueryRaw(ctx, h.client, contractquery.Request{
		ContractIndex:      contractIndex,
		InputType:          entry.InputType,
		InputBytes:         inputBytes,
		ExpectedOutputSize: expected,
		Retries:            input.Retries,
		RetryDelay:         input.RetryDelay,
		CancelToken:        input.CancelToken,
	})
	if err != nil {
		return nil, err
	}

	out := &QueryResult{ResponseBytes: result.ResponseBytes, Attempts: result.Attempts}
	if codec != nil {
		decoded, err := codec.Decode(entry, result.ResponseBytes)
		if err != nil {
			return nil, sdkerr.NewError(sdkerr.ErrKindQbiCodec, "registry: codec decode", err)
		}
		out.Decoded = decoded
	}
	return out, nil
}

// QueryValue is Query, but requires a codec and returns only the decoded
// value.
func (h *Handle) QueryValue(ctx context.Context, name string, input QueryInput) (any, error) {
	if h.resolveCodec(KindFunction, name, input.Codec) == nil {
		return nil, sdkerr.NewError(sdkerr.ErrKindQbiCodecMissing, fmt.Sprintf("registry: queryValue requires a codec for %q", name), nil)
	}
	result, err := h.Query(ctx, name, input)
	if err != nil {
		return nil, err
	}
	return result.Decoded, nil
}

func (h *Handle) resolveContractIdentity() (string, error) {
	if h.file.Contract.ContractId != "" {
		return h.file.Contract.ContractId, nil
	}
	if h.file.Contract.ContractPublicKeyHex == "" {
		return "", fmt.Errorf("registry: contract %q has neither contractId nor contractPublicKeyHex", h.file.Contract.Name)
	}
	decoded, err := hex.DecodeString(h.file.Contract.ContractPublicKeyHex)
	if err != nil {
		return "", sdkerr.NewError(sdkerr.ErrKindInvalidHex, "registry: decode contractPublicKeyHex", err)
	}
	if len(decoded) != 32 {
		return "", sdkerr.NewError(sdkerr.ErrKindInvalidHex, fmt.Sprintf("registry: contractPublicKeyHex must decode to 32 bytes, got %d", len(decoded)), nil)
	}
	var pub [32]byte
	copy(pub[:], decoded)
	return qcrypto.IdentityFromPublicKey(pub), nil
}

// ProcedureInput parameterizes BuildProcedureTransaction / SendProcedure*.
type ProcedureInput struct {
	Source     txbuilder.SeedSource
	InputBytes []byte
	InputValue any
	Codec      Codec
	TargetTick *uint64
}

// resolveProcedureRequest resolves the procedure entry, materializes its
// payload, validates its declared size with no allowSizeMismatch escape,
// and resolves the contract identity — the one validated path shared by
// BuildProcedureTransaction, SendProcedure, and SendProcedureAndConfirm*,
// so malformed-size procedure input is rejected identically on every one
// of them.
func (h *Handle) resolveProcedureRequest(name string, input ProcedureInput) (txbuilder.BuildRequest, error) {
	entry, err := h.GetEntry(KindProcedure, name)
	if err != nil {
		return txbuilder.BuildRequest{}, err
	}
	codec := h.resolveCodec(KindProcedure, name, input.Codec)

	inputBytes, err := materializeBytes(entry, QueryInput{InputBytes: input.InputBytes, InputValue: input.InputValue}, codec)
	if err != nil {
		return txbuilder.BuildRequest{}, err
	}
	if entry.InputSize != nil && uint32(len(inputBytes)) != *entry.InputSize {
		return txbuilder.BuildRequest{}, sdkerr.NewError(sdkerr.ErrKindInputSizeMismatch, fmt.Sprintf("registry: input size %d does not match declared size %d for procedure %q", len(inputBytes), *entry.InputSize, name), nil)
	}

	contractIdentity, err := h.resolveContractIdentity()
	if err != nil {
		return txbuilder.BuildRequest{}, err
	}

	return txbuilder.BuildRequest{
		Source:     input.Source,
		ToIdentity: contractIdentity,
		Amount:     0,
		TargetTick: input.TargetTick,
		InputType:  entry.InputType,
		InputBytes: inputBytes,
	}, nil
}

// BuildProcedureTransaction resolves the contract identity, materializes
// the procedure payload, validates its size with no allowSizeMismatch
// escape, and delegates to the transaction builder.
func (h *Handle) BuildProcedureTransaction(ctx context.Context, name string, input ProcedureInput) (*txbuilder.SignedTransaction, error) {
	req, err := h.resolveProcedureRequest(name, input)
	if err != nil {
		return nil, err
	}
	return h.builder.BuildSigned(ctx, req)
}

// SendProcedure builds and broadcasts a procedure transaction without
// waiting for confirmation, through the same validated build as
// BuildProcedureTransaction.
func (h *Handle) SendProcedure(ctx context.Context, name string, input ProcedureInput) (*rpcclient.BroadcastResponse, error) {
	req, err := h.resolveProcedureRequest(name, input)
	if err != nil {
		return nil, err
	}
	result, err := h.builder.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	return result.Broadcast, nil
}

// SendProcedureAndConfirm builds, broadcasts, and waits for tick-bounded
// confirmation of a procedure transaction (spec.md §4.H), the same
// build+broadcast+wait coverage SendAndConfirm gives top-level sends.
func (h *Handle) SendProcedureAndConfirm(ctx context.Context, name string, input ProcedureInput, timeout, pollInterval time.Duration, token cancel.Token) (*txbuilder.ConfirmResult, error) {
	return h.SendProcedureAndConfirmWithReceipt(ctx, name, input, timeout, pollInterval, token)
}

// SendProcedureAndConfirmWithReceipt is SendProcedureAndConfirm's
// full-detail form: the same ConfirmResult, named explicitly for callers
// reaching for the ledger record.
func (h *Handle) SendProcedureAndConfirmWithReceipt(ctx context.Context, name string, input ProcedureInput, timeout, pollInterval time.Duration, token cancel.Token) (*txbuilder.ConfirmResult, error) {
	req, err := h.resolveProcedureRequest(name, input)
	if err != nil {
		return nil, err
	}
	return h.builder.SendAndConfirm(ctx, req, timeout, pollInterval, token)
}
