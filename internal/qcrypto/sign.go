package qcrypto

import (
	"fmt"

	"filippo.io/edwards25519"
)

// sign produces a 64-byte Schnorr-over-edwards25519 signature of message
// under the scalar encoded by priv: a standard commit/challenge/response
// construction (R = r*B, e = H(R || A || m), s = r + e*priv), with the
// nonce r derived deterministically from the private key and message so
// signing never touches a system RNG.
func sign(priv [PrivateKeySize]byte, message []byte) ([SignatureSize]byte, error) {
	var sig [SignatureSize]byte

	a, err := edwards25519.NewScalar().SetCanonicalBytes(priv[:])
	if err != nil {
		return sig, fmt.Errorf("qcrypto: invalid private key: %w", err)
	}
	pub := new(edwards25519.Point).ScalarBaseMult(a)

	nonceInput := make([]byte, 0, len(priv)+len(message))
	nonceInput = append(nonceInput, priv[:]...)
	nonceInput = append(nonceInput, message...)
	r := scalarFromUniform(nonceInput)
	R := new(edwards25519.Point).ScalarBaseMult(r)

	challengeInput := make([]byte, 0, 64+len(message))
	challengeInput = append(challengeInput, R.Bytes()...)
	challengeInput = append(challengeInput, pub.Bytes()...)
	challengeInput = append(challengeInput, message...)
	e := scalarFromUniform(challengeInput)

	s := edwards25519.NewScalar().MultiplyAdd(e, a, r)

	copy(sig[:32], R.Bytes())
	copy(sig[32:], s.Bytes())
	return sig, nil
}

// verify checks a signature produced by sign against the given public key
// and message.
func verify(pub [PublicKeySize]byte, message []byte, sig [SignatureSize]byte) (bool, error) {
	A, err := new(edwards25519.Point).SetBytes(pub[:])
	if err != nil {
		return false, fmt.Errorf("qcrypto: invalid public key: %w", err)
	}
	R, err := new(edwards25519.Point).SetBytes(sig[:32])
	if err != nil {
		return false, fmt.Errorf("qcrypto: invalid signature (R): %w", err)
	}
	s, err := edwards25519.NewScalar().SetCanonicalBytes(sig[32:])
	if err != nil {
		return false, fmt.Errorf("qcrypto: invalid signature (s): %w", err)
	}

	challengeInput := make([]byte, 0, 64+len(message))
	challengeInput = append(challengeInput, sig[:32]...)
	challengeInput = append(challengeInput, pub[:]...)
	challengeInput = append(challengeInput, message...)
	e := scalarFromUniform(challengeInput)

	lhs := new(edwards25519.Point).ScalarBaseMult(s)
	rhs := new(edwards25519.Point).Add(R, new(edwards25519.Point).ScalarMult(e, A))

	return lhs.Equal(rhs) == 1, nil
}
