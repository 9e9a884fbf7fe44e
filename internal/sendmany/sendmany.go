// Package sendmany encodes and decodes the fixed-layout send-many
// procedure payload described in spec.md §6.5.
package sendmany

import (
	"encoding/binary"
	"fmt"

	"github.com/qubickit/sdk-go/internal/sdkerr"
)

const (
	maxTransfers  = 25
	pubKeySize    = 32
	amountsOffset = 800
	payloadSize   = 1000
)

// Transfer is one destination/amount pair.
type Transfer struct {
	Destination [32]byte
	Amount      int64
}

// Encode packs up to 25 transfers into the fixed 1000-byte buffer,
// zero-filling unused slots. Encoders reject more than 25 transfers.
func Encode(transfers []Transfer) ([]byte, error) {
	if len(transfers) > maxTransfers {
		return nil, sdkerr.NewError(sdkerr.ErrKindSendManyTooLarge, fmt.Sprintf("sendmany: %d transfers exceeds maximum of %d", len(transfers), maxTransfers), nil)
	}

	buf := make([]byte, payloadSize)
	for i, tr := range transfers {
		copy(buf[i*pubKeySize:(i+1)*pubKeySize], tr.Destination[:])
		binary.LittleEndian.PutUint64(buf[amountsOffset+i*8:amountsOffset+(i+1)*8], uint64(tr.Amount))
	}
	return buf, nil
}

// Decode unpacks a 1000-byte send-many buffer into its non-zero
// transfers. A slot is considered empty when its public key is all
// zero bytes.
func Decode(buf []byte) ([]Transfer, error) {
	if len(buf) != payloadSize {
		return nil, sdkerr.NewError(sdkerr.ErrKindInputSizeMismatch, fmt.Sprintf("sendmany: payload must be %d bytes, got %d", payloadSize, len(buf)), nil)
	}

	var transfers []Transfer
	for i := 0; i < maxTransfers; i++ {
		var pk [32]byte
		copy(pk[:], buf[i*pubKeySize:(i+1)*pubKeySize])
		if pk == ([32]byte{}) {
			continue
		}
		amount := int64(binary.LittleEndian.Uint64(buf[amountsOffset+i*8 : amountsOffset+(i+1)*8]))
		transfers = append(transfers, Transfer{Destination: pk, Amount: amount})
	}
	return transfers, nil
}
