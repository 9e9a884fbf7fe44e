package qcrypto

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// TransactionRequest mirrors the signer input described in spec.md §6.1:
// buildSignedTransaction({srcPK, dstPK, amount:u64, tick:u32,
// inputType:u16, inputBytes:[]byte}, privateKey).
type TransactionRequest struct {
	SourcePublicKey      [PublicKeySize]byte
	DestinationPublicKey [PublicKeySize]byte
	Amount               uint64
	Tick                 uint32
	InputType            uint16
	InputBytes           []byte
}

// BuildSignedTransaction composes the wire layout
// (srcPK || dstPK || amount(LE64) || tick(LE32) || inputType(LE16) ||
// inputSize(LE16) || inputBytes) and appends a 64-byte signature over that
// layout, producing the immutable signed bytes spec.md §3/§4.D calls for.
func BuildSignedTransaction(req TransactionRequest, priv [PrivateKeySize]byte) ([]byte, error) {
	if len(req.InputBytes) > 0xFFFF {
		return nil, fmt.Errorf("qcrypto: input payload too large (%d bytes)", len(req.InputBytes))
	}

	header := make([]byte, 32+32+8+4+2+2+len(req.InputBytes))
	offset := 0
	copy(header[offset:], req.SourcePublicKey[:])
	offset += 32
	copy(header[offset:], req.DestinationPublicKey[:])
	offset += 32
	binary.LittleEndian.PutUint64(header[offset:], req.Amount)
	offset += 8
	binary.LittleEndian.PutUint32(header[offset:], req.Tick)
	offset += 4
	binary.LittleEndian.PutUint16(header[offset:], req.InputType)
	offset += 2
	binary.LittleEndian.PutUint16(header[offset:], uint16(len(req.InputBytes)))
	offset += 2
	copy(header[offset:], req.InputBytes)

	sig, err := sign(priv, header)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(header)+SignatureSize)
	out = append(out, header...)
	out = append(out, sig[:]...)
	return out, nil
}

// VerifyTransaction checks the trailing signature of signed transaction
// bytes against the embedded source public key. Not required by spec.md's
// external-interface list but useful for tests and for callers who want to
// validate a transaction they did not build themselves.
func VerifyTransaction(signedBytes []byte) (bool, error) {
	if len(signedBytes) < 32+32+8+4+2+2+SignatureSize {
		return false, fmt.Errorf("qcrypto: signed transaction too short")
	}
	body := signedBytes[:len(signedBytes)-SignatureSize]
	var sig [SignatureSize]byte
	copy(sig[:], signedBytes[len(signedBytes)-SignatureSize:])
	var srcPK [PublicKeySize]byte
	copy(srcPK[:], signedBytes[:32])
	return verify(srcPK, body, sig)
}

// TransactionId computes the deterministic transaction identifier for
// signed transaction bytes: a SHA3-256 digest of the bytes, re-encoded
// through the same fixed-width textual codec used for identities (spec.md
// §3: "txId is a deterministic hash of bytes").
func TransactionId(signedBytes []byte) string {
	digest := sha3.Sum256(signedBytes)
	var asPubKey [PublicKeySize]byte
	copy(asPubKey[:], digest[:])
	return IdentityFromPublicKey(asPubKey)
}
