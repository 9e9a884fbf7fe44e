package sendmany

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qubickit/sdk-go/internal/qcrypto"
)

func TestEncodeSingleTransferLayout(t *testing.T) {
	pub, err := qcrypto.PublicKeyFromSeed("someseedsomeseedsomeseedsomeseedsomeseedsomeseedsomeseedx")
	require.NoError(t, err)

	buf, err := Encode([]Transfer{{Destination: pub, Amount: 1}})
	require.NoError(t, err)
	require.Len(t, buf, 1000)

	assert.Equal(t, pub[:], buf[0:32])
	assert.Equal(t, []byte{0x01, 0, 0, 0, 0, 0, 0, 0}, buf[800:808])
	for _, b := range buf[32:800] {
		assert.Zero(t, b)
	}
	for _, b := range buf[808:] {
		assert.Zero(t, b)
	}
}

func TestEncodeRejectsTooManyTransfers(t *testing.T) {
	transfers := make([]Transfer, 26)
	_, err := Encode(transfers)
	assert.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	pub1, _ := qcrypto.PublicKeyFromSeed("someseedsomeseedsomeseedsomeseedsomeseedsomeseedsomeseedx")
	pub2, _ := qcrypto.PublicKeyFromSeed("otherseedotherseedotherseedotherseedotherseedotherseedab")

	transfers := []Transfer{
		{Destination: pub1, Amount: 42},
		{Destination: pub2, Amount: -7},
	}
	buf, err := Encode(transfers)
	require.NoError(t, err)

	decoded, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, transfers, decoded)
}
