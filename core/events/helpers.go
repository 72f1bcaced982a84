package events

import (
	"math/big"
	"strconv"

	"devtoken/crypto"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func zeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

func formatAddress(addr [20]byte) string {
	return crypto.FromArray(addr).String()
}
