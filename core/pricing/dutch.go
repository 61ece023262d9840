package pricing

import "math/big"

// MinBid returns the lowest acceptable insurance bid for a Dutch auction that
// opened at start with the supplied schedule. The price decays linearly from
// amount down to lowest over timespan seconds and stays clamped at lowest
// afterwards. Integer division truncates toward the floor so the quoted price
// never rounds above the true decay line.
//
// The function is pure: it never inspects order state and may be called for
// auctions that are logically dead. Callers gate on status themselves. A now
// before start is clipped to start, quoting the opening price.
func MinBid(amount, lowest *big.Int, start int64, timespan uint64, now int64) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	if lowest == nil {
		lowest = big.NewInt(0)
	}
	if now < start {
		now = start
	}
	elapsed := uint64(now - start)
	if timespan == 0 || elapsed >= timespan {
		return new(big.Int).Set(lowest)
	}
	decay := new(big.Int).Sub(amount, lowest)
	if decay.Sign() <= 0 {
		return new(big.Int).Set(lowest)
	}
	// Floor the price itself, not the decay step: amount - floor(step)
	// would quote above the true line at every non-exact point.
	span := new(big.Int).SetUint64(timespan)
	price := new(big.Int).Mul(amount, span)
	price.Sub(price, decay.Mul(decay, new(big.Int).SetUint64(elapsed)))
	return price.Quo(price, span)
}
