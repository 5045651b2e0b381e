package validation

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// Verus base58check version bytes.
const (
	versionTransparent = 60  // R-addresses
	versionIdentity    = 102 // i-addresses
)

// ValidateAddress checks that addr is a transparent (R...) or identity (i...) VRSC address.
// Friendly names ending in "@" are accepted as identities too, the node resolves them.
func ValidateAddress(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if strings.HasSuffix(addr, "@") {
		if len(addr) < 2 {
			return fmt.Errorf("identity name cannot be empty")
		}
		return nil
	}

	payload, version, err := base58.CheckDecode(addr)
	if err != nil {
		return fmt.Errorf("invalid base58 address: %w", err)
	}
	if len(payload) != 20 {
		return fmt.Errorf("invalid address length: expected 20 bytes, got %d", len(payload))
	}
	if version != versionTransparent && version != versionIdentity {
		return fmt.Errorf("unsupported address version %d", version)
	}
	return nil
}
