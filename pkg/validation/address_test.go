package validation

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/stretchr/testify/assert"
)

func TestValidateAddress(t *testing.T) {
	hash := make([]byte, 20)
	for i := range hash {
		hash[i] = byte(i + 1)
	}
	rAddress := base58.CheckEncode(hash, versionTransparent)
	iAddress := base58.CheckEncode(hash, versionIdentity)
	btcAddress := base58.CheckEncode(hash, 0)

	assert.NoError(t, ValidateAddress(rAddress))
	assert.NoError(t, ValidateAddress(iAddress))
	assert.NoError(t, ValidateAddress("alice@"))

	assert.Error(t, ValidateAddress(""))
	assert.Error(t, ValidateAddress("@"))
	assert.Error(t, ValidateAddress(btcAddress))
	tampered := []byte(rAddress)
	if tampered[len(tampered)-1] == 'z' {
		tampered[len(tampered)-1] = 'y'
	} else {
		tampered[len(tampered)-1] = 'z'
	}
	assert.Error(t, ValidateAddress(string(tampered)))
	assert.Error(t, ValidateAddress(base58.CheckEncode(hash[:10], versionTransparent)))
}
