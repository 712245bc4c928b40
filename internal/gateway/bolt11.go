package gateway

import (
	"errors"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// CheckBolt11 sanity-checks a payment request string before it is handed to a
// caller: bech32 checksum must verify and the human-readable part must be a
// Lightning prefix. This is not a full BOLT11 decode; the gateway remains the
// authority on invoice contents.
func CheckBolt11(inv string) error {
	inv = strings.TrimSpace(inv)
	if inv == "" {
		return errors.New("empty payment request")
	}
	hrp, _, err := bech32.DecodeNoLimit(strings.ToLower(inv))
	if err != nil {
		return err
	}
	if !strings.HasPrefix(hrp, "ln") {
		return errors.New("payment request is not a lightning invoice")
	}
	return nil
}
