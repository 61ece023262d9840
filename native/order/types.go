package order

import "math/big"

// Status represents the lifecycle states of a protected order.
type Status uint8

const (
	StatusCreated Status = iota
	StatusCancelled
	StatusInsured
	StatusResolved
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusCancelled, StatusInsured, StatusResolved:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusCancelled:
		return "cancelled"
	case StatusInsured:
		return "insured"
	case StatusResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusResolved
}

// Order captures a single buyer-seller escrow agreement. Identifiers are
// assigned monotonically at creation; Buyer, Seller, Amount and Deposit never
// change afterwards. Insurer and BidAmount are set together, exactly when the
// order is insured.
type Order struct {
	ID        uint64
	Buyer     [20]byte
	Seller    [20]byte
	Amount    *big.Int
	Deposit   *big.Int
	Insurer   [20]byte
	BidAmount *big.Int
	Status    Status
}

// Clone returns a deep copy of the order so callers can safely mutate the
// copy without affecting the stored instance.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Amount = cloneBigInt(o.Amount)
	clone.Deposit = cloneBigInt(o.Deposit)
	if o.BidAmount != nil {
		clone.BidAmount = new(big.Int).Set(o.BidAmount)
	}
	return &clone
}

// Insured reports whether an insurer has accepted the order's auction.
func (o *Order) Insured() bool {
	if o == nil {
		return false
	}
	return o.Status == StatusInsured || o.Status == StatusResolved
}

// Auction fixes the declining price schedule for an order's insurance
// coverage. It shares the order's identifier, is written once at creation and
// is read-only thereafter; once the order leaves Created the schedule is
// logically dead.
type Auction struct {
	ID             uint64
	StartTimestamp int64
	Timespan       uint64
	LowestAmount   *big.Int
}

// Clone returns a deep copy of the auction schedule.
func (a *Auction) Clone() *Auction {
	if a == nil {
		return nil
	}
	clone := *a
	clone.LowestAmount = cloneBigInt(a.LowestAmount)
	return &clone
}

// FloorPrice computes the auction floor 2*amount - deposit. The result is
// only meaningful when deposit lies strictly between amount and 2*amount,
// which CheckDeposit enforces at creation.
func FloorPrice(amount, deposit *big.Int) *big.Int {
	floor := new(big.Int).Lsh(cloneBigInt(amount), 1)
	return floor.Sub(floor, cloneBigInt(deposit))
}

// CheckDeposit validates the creation guard: amount must be positive and the
// escrowed deposit strictly between amount and 2*amount, so the auction floor
// stays positive and below the sale price.
func CheckDeposit(amount, deposit *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if deposit == nil || deposit.Cmp(amount) <= 0 {
		return ErrInvalidAmount
	}
	twice := new(big.Int).Lsh(amount, 1)
	if deposit.Cmp(twice) >= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// SanitizeOrder validates the supplied order and returns a cloned instance
// with non-nil amount fields. The original value is not mutated.
func SanitizeOrder(o *Order) (*Order, error) {
	if o == nil {
		return nil, ErrInvalidAmount
	}
	clone := o.Clone()
	if clone.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if clone.Deposit.Cmp(clone.Amount) < 0 {
		return nil, ErrInvalidAmount
	}
	if !clone.Status.Valid() {
		return nil, ErrInvalidState
	}
	if clone.Insured() {
		if clone.BidAmount == nil || clone.BidAmount.Sign() <= 0 {
			return nil, ErrInvalidAmount
		}
	} else if clone.BidAmount != nil || clone.Insurer != ([20]byte{}) {
		return nil, ErrInvalidState
	}
	return clone, nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
