// Package qcrypto is the concrete implementation of the crypto collaborator
// described in spec.md §6.1. The specification treats seed→keypair
// derivation, transaction signing, transaction-id hashing, and the
// identity↔public-key codec as a trusted external dependency whose
// internals are out of scope (§1); this package is *a* conforming
// implementation of that contract, built from vetted primitives
// (filippo.io/edwards25519, golang.org/x/crypto/sha3, mr-tron/base58)
// rather than a bit-exact reproduction of the real ledger's proprietary
// signature scheme.
package qcrypto

import (
	"fmt"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/sha3"
)

// PublicKeySize and PrivateKeySize are both 32 bytes, per spec.md §3/§6.1.
const (
	PublicKeySize  = 32
	PrivateKeySize = 32
	SignatureSize  = 64
	IdentityLength = 60
)

// scalarFromUniform reduces an arbitrary-length byte string to a scalar
// modulo the edwards25519 group order, via a wide (64-byte) hash so the
// reduction has no meaningful bias.
func scalarFromUniform(data []byte) *edwards25519.Scalar {
	h := sha3.Sum512(data)
	s, err := edwards25519.NewScalar().SetUniformBytes(h[:])
	if err != nil {
		// SetUniformBytes only fails on a wrong-length input; h is always 64
		// bytes, so this is unreachable.
		panic(fmt.Sprintf("qcrypto: unreachable scalar reduction failure: %v", err))
	}
	return s
}

// derivePrivateKey derives the private scalar for (seed, seedIndex). Index 0
// is what PrivateKeyFromSeed and PublicKeyFromSeed use implicitly; other
// indices are reachable only through IdentityFromSeed, matching the
// asymmetry in spec.md §6.1's function signatures.
func derivePrivateKey(seed string, seedIndex uint32) [PrivateKeySize]byte {
	buf := make([]byte, 0, len(seed)+4)
	buf = append(buf, seed...)
	buf = append(buf,
		byte(seedIndex),
		byte(seedIndex>>8),
		byte(seedIndex>>16),
		byte(seedIndex>>24),
	)
	scalar := scalarFromUniform(buf)
	var out [PrivateKeySize]byte
	copy(out[:], scalar.Bytes())
	return out
}

// PrivateKeyFromSeed derives the private key for seed index 0.
func PrivateKeyFromSeed(seed string) [PrivateKeySize]byte {
	return derivePrivateKey(seed, 0)
}

// PublicKeyFromPrivateKey derives the public key (curve point) for a
// previously derived private scalar.
func PublicKeyFromPrivateKey(priv [PrivateKeySize]byte) ([PublicKeySize]byte, error) {
	scalar, err := edwards25519.NewScalar().SetCanonicalBytes(priv[:])
	if err != nil {
		return [PublicKeySize]byte{}, fmt.Errorf("qcrypto: invalid private key: %w", err)
	}
	point := new(edwards25519.Point).ScalarBaseMult(scalar)
	var out [PublicKeySize]byte
	copy(out[:], point.Bytes())
	return out, nil
}

// PublicKeyFromSeed derives the public key for seed index 0.
func PublicKeyFromSeed(seed string) ([PublicKeySize]byte, error) {
	priv := PrivateKeyFromSeed(seed)
	return PublicKeyFromPrivateKey(priv)
}

// IdentityFromSeed derives the 60-character identity for (seed, seedIndex),
// allowing multiple accounts to be addressed from a single seed.
func IdentityFromSeed(seed string, seedIndex uint32) (string, error) {
	priv := derivePrivateKey(seed, seedIndex)
	pub, err := PublicKeyFromPrivateKey(priv)
	if err != nil {
		return "", err
	}
	return IdentityFromPublicKey(pub), nil
}
