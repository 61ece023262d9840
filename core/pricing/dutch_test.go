package pricing

import (
	"math/big"
	"testing"
)

func TestMinBidLinearDecay(t *testing.T) {
	amount := big.NewInt(300)
	lowest := big.NewInt(200)
	const start = int64(1_700_000_000)
	const timespan = uint64(10)

	cases := []struct {
		name    string
		elapsed int64
		want    int64
	}{
		{"opening price", 0, 300},
		{"two seconds in", 2, 280},
		{"nine seconds in", 9, 210},
		{"at timespan", 10, 200},
		{"well past timespan", 110, 200},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MinBid(amount, lowest, start, timespan, start+tc.elapsed)
			if got.Cmp(big.NewInt(tc.want)) != 0 {
				t.Fatalf("elapsed %d: got %s, want %d", tc.elapsed, got, tc.want)
			}
		})
	}
}

func TestMinBidTruncatesTowardFloor(t *testing.T) {
	// 100 units of decay over 7 seconds: the exact line at 1s is
	// 300 - 14.28... = 285.71..., which must truncate to 285, never 286.
	got := MinBid(big.NewInt(300), big.NewInt(200), 0, 7, 1)
	if got.Cmp(big.NewInt(285)) != 0 {
		t.Fatalf("got %s, want 285", got)
	}
	// At 6s the line is 214.28...; truncating the decay step instead of
	// the price would quote 215.
	got = MinBid(big.NewInt(300), big.NewInt(200), 0, 7, 6)
	if got.Cmp(big.NewInt(214)) != 0 {
		t.Fatalf("got %s, want 214", got)
	}
}

func TestMinBidNeverQuotesAboveTrueLine(t *testing.T) {
	amount := big.NewInt(300)
	lowest := big.NewInt(200)
	const timespan = uint64(7)

	for elapsed := int64(0); elapsed <= int64(timespan); elapsed++ {
		got := MinBid(amount, lowest, 0, timespan, elapsed)
		// price * timespan <= amount * timespan - decay * elapsed
		lhs := new(big.Int).Mul(got, big.NewInt(int64(timespan)))
		rhs := new(big.Int).Mul(amount, big.NewInt(int64(timespan)))
		rhs.Sub(rhs, new(big.Int).Mul(big.NewInt(100), big.NewInt(elapsed)))
		if lhs.Cmp(rhs) > 0 {
			t.Fatalf("quote %s at elapsed %d sits above the true line", got, elapsed)
		}
		// Flooring may only shave less than one unit off the line.
		if new(big.Int).Sub(rhs, lhs).Cmp(big.NewInt(int64(timespan))) >= 0 {
			t.Fatalf("quote %s at elapsed %d more than one unit below the line", got, elapsed)
		}
	}
}

func TestMinBidMonotonicNonIncreasing(t *testing.T) {
	amount := big.NewInt(1_000_003)
	lowest := big.NewInt(17)
	const start = int64(42)
	const timespan = uint64(3600)

	prev := MinBid(amount, lowest, start, timespan, start)
	if prev.Cmp(amount) != 0 {
		t.Fatalf("opening price %s, want %s", prev, amount)
	}
	for now := start + 1; now <= start+int64(timespan)+10; now += 7 {
		cur := MinBid(amount, lowest, start, timespan, now)
		if cur.Cmp(prev) > 0 {
			t.Fatalf("price increased from %s to %s at now=%d", prev, cur, now)
		}
		if cur.Cmp(lowest) < 0 {
			t.Fatalf("price %s fell below floor %s at now=%d", cur, lowest, now)
		}
		prev = cur
	}
	if prev.Cmp(lowest) != 0 {
		t.Fatalf("final price %s, want floor %s", prev, lowest)
	}
}

func TestMinBidClipsEarlyClock(t *testing.T) {
	got := MinBid(big.NewInt(300), big.NewInt(200), 100, 10, 95)
	if got.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("pre-start quote %s, want opening price 300", got)
	}
}

func TestMinBidDegenerateSchedules(t *testing.T) {
	if got := MinBid(big.NewInt(300), big.NewInt(200), 0, 0, 5); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("zero timespan: got %s, want floor", got)
	}
	if got := MinBid(nil, big.NewInt(200), 0, 10, 5); got.Sign() != 0 {
		t.Fatalf("nil amount: got %s, want 0", got)
	}
	if got := MinBid(big.NewInt(300), nil, 0, 10, 20); got.Sign() != 0 {
		t.Fatalf("nil lowest past timespan: got %s, want 0", got)
	}
}
