package qcrypto

import (
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"
)

const (
	identityBodyLength     = 55
	identityChecksumLength = 5
	base58ZeroRune         = '1' // mr-tron/base58 encodes a leading zero byte as '1'
)

// IdentityFromPublicKey encodes a 32-byte public key into the opaque
// 60-character textual identity described in spec.md §3: a fixed-width
// base58 body (left-padded with the base58 zero rune so every identity is
// exactly 55 characters regardless of leading zero bytes) followed by a
// 5-character checksum derived from the key.
func IdentityFromPublicKey(pub [PublicKeySize]byte) string {
	body := leftPad(base58.Encode(pub[:]), identityBodyLength)
	checksum := identityChecksum(pub)
	return body + checksum
}

// PublicKeyFromIdentity decodes a 60-character identity back into its
// 32-byte public key, verifying the trailing checksum.
func PublicKeyFromIdentity(identity string) ([PublicKeySize]byte, error) {
	var pub [PublicKeySize]byte
	if len(identity) != IdentityLength {
		return pub, fmt.Errorf("qcrypto: identity must be %d characters, got %d", IdentityLength, len(identity))
	}
	body := identity[:identityBodyLength]
	checksumPart := identity[identityBodyLength:]

	decoded, err := base58.Decode(strings.TrimLeft(body, string(base58ZeroRune)))
	if err != nil {
		return pub, fmt.Errorf("qcrypto: invalid identity encoding: %w", err)
	}
	if len(decoded) > PublicKeySize {
		decoded = decoded[len(decoded)-PublicKeySize:]
	}
	copy(pub[PublicKeySize-len(decoded):], decoded)

	if want := identityChecksum(pub); want != checksumPart {
		return pub, fmt.Errorf("qcrypto: identity checksum mismatch")
	}
	return pub, nil
}

// identityChecksum derives the 5-character trailing checksum from the
// public key bytes, via a SHA3-256 digest re-encoded through the same
// fixed-width base58 scheme as the body.
func identityChecksum(pub [PublicKeySize]byte) string {
	h := sha3.Sum256(pub[:])
	return leftPad(base58.Encode(h[:4]), identityChecksumLength)[:identityChecksumLength]
}

// leftPad pads s on the left with the base58 zero rune until it reaches
// width, or keeps only the last width characters if s is already longer
// (never the case for the 32-byte body; the base58 form of the 4-byte
// checksum digest can be 6 characters and is cut to 5).
func leftPad(s string, width int) string {
	if len(s) >= width {
		return s[len(s)-width:]
	}
	return strings.Repeat(string(base58ZeroRune), width-len(s)) + s
}
