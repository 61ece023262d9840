package events

import (
	"math/big"
	"strconv"
)

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
