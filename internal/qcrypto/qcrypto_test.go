package qcrypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityRoundTrip(t *testing.T) {
	pub, err := PublicKeyFromSeed("jvhbfscfygscfygscfygscfygscfygscfygscfygscfygscfygbcfyg")
	require.NoError(t, err)

	identity := IdentityFromPublicKey(pub)
	assert.Len(t, identity, IdentityLength)

	decoded, err := PublicKeyFromIdentity(identity)
	require.NoError(t, err)
	assert.Equal(t, pub, decoded, "identity -> publicKey -> identity must be the identity function")

	reencoded := IdentityFromPublicKey(decoded)
	assert.Equal(t, identity, reencoded)
}

func TestIdentityChecksumRejectsCorruption(t *testing.T) {
	pub, err := PublicKeyFromSeed("someseedsomeseedsomeseedsomeseedsomeseedsomeseedsomeseedx")
	require.NoError(t, err)
	identity := IdentityFromPublicKey(pub)

	corrupted := []byte(identity)
	if corrupted[0] == 'A' {
		corrupted[0] = 'B'
	} else {
		corrupted[0] = 'A'
	}

	_, err = PublicKeyFromIdentity(string(corrupted))
	assert.Error(t, err)
}

func TestBuildSignedTransactionDeterministic(t *testing.T) {
	seed := "jvhbfscfygscfygscfygscfygscfygscfygscfygscfygscfygbcfyg"
	priv := PrivateKeyFromSeed(seed)
	srcPK, err := PublicKeyFromPrivateKey(priv)
	require.NoError(t, err)

	dstIdentity, err := IdentityFromSeed("otherseedotherseedotherseedotherseedotherseedotherseedab", 0)
	require.NoError(t, err)
	dstPK, err := PublicKeyFromIdentity(dstIdentity)
	require.NoError(t, err)

	req := TransactionRequest{
		SourcePublicKey:      srcPK,
		DestinationPublicKey: dstPK,
		Amount:               1,
		Tick:                 12345,
		InputType:            0,
		InputBytes:           nil,
	}

	bytes1, err := BuildSignedTransaction(req, priv)
	require.NoError(t, err)
	bytes2, err := BuildSignedTransaction(req, priv)
	require.NoError(t, err)

	// The signature nonce is derived deterministically from (priv, message),
	// so two builds of the same request produce byte-identical output.
	assert.Equal(t, bytes1, bytes2)

	ok, err := VerifyTransaction(bytes1)
	require.NoError(t, err)
	assert.True(t, ok)

	id1 := TransactionId(bytes1)
	id2 := TransactionId(bytes2)
	assert.Equal(t, id1, id2)
	assert.Len(t, id1, IdentityLength)
}

func TestBuildSignedTransactionRejectsOversizedInput(t *testing.T) {
	priv := PrivateKeyFromSeed("seedseedseedseedseedseedseedseedseedseedseedseedseedseed")
	pub, _ := PublicKeyFromPrivateKey(priv)
	req := TransactionRequest{
		SourcePublicKey:      pub,
		DestinationPublicKey: pub,
		InputBytes:           make([]byte, 0x10000),
	}
	_, err := BuildSignedTransaction(req, priv)
	assert.Error(t, err)
}
