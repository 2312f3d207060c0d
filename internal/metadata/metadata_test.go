package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURI(t *testing.T) {
	valid := []string{
		"ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		"ipfs://QmSomeCID/track.json",
		"ar://tx-id-here",
		"https://cdn.example.com/meta/track.json",
	}
	for _, uri := range valid {
		assert.NoError(t, ValidateURI(uri), uri)
	}

	invalid := []string{
		"",
		"   ",
		"not a uri",
		"ipfs://",
		"https://",
		"ftp://example.com/meta.json",
	}
	for _, uri := range invalid {
		assert.Error(t, ValidateURI(uri), uri)
	}
}

func TestGatewayURL(t *testing.T) {
	assert.Equal(t,
		"https://ipfs.io/ipfs/QmCID",
		GatewayURL("ipfs://QmCID", ""))

	assert.Equal(t,
		"https://gw.example.com/ipfs/QmCID/track.json",
		GatewayURL("ipfs://QmCID/track.json", "https://gw.example.com/"))

	assert.Equal(t,
		"https://arweave.net/tx123",
		GatewayURL("ar://tx123", ""))

	assert.Equal(t,
		"https://cdn.example.com/meta.json",
		GatewayURL("https://cdn.example.com/meta.json", ""))
}
