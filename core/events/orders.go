package events

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"payprotector/core/types"
)

const (
	TypeOrderCreated        = "order.created"
	TypeDutchAuctionCreated = "order.auction.created"
	TypeOrderCancelled      = "order.cancelled"
	TypeOrderInsured        = "order.insured"
	TypeOrderResolved       = "order.resolved"
)

// OrderCreated is emitted when a buyer funds a new order.
type OrderCreated struct {
	ID     uint64
	Buyer  [20]byte
	Seller [20]byte
	Amount *big.Int
}

func (OrderCreated) EventType() string { return TypeOrderCreated }

func (e OrderCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeOrderCreated,
		Attributes: map[string]string{
			"id":     formatID(e.ID),
			"buyer":  hex.EncodeToString(e.Buyer[:]),
			"seller": hex.EncodeToString(e.Seller[:]),
			"amount": formatAmount(e.Amount),
		},
	}
}

// DutchAuctionCreated is emitted alongside OrderCreated and fixes the pricing
// schedule of the order's insurance auction.
type DutchAuctionCreated struct {
	ID             uint64
	StartTimestamp int64
	Timespan       uint64
	LowestAmount   *big.Int
}

func (DutchAuctionCreated) EventType() string { return TypeDutchAuctionCreated }

func (e DutchAuctionCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeDutchAuctionCreated,
		Attributes: map[string]string{
			"id":             formatID(e.ID),
			"startTimestamp": strconv.FormatInt(e.StartTimestamp, 10),
			"timespan":       strconv.FormatUint(e.Timespan, 10),
			"lowestAmount":   formatAmount(e.LowestAmount),
		},
	}
}

// OrderCancelled is emitted when the buyer withdraws an uninsured order.
type OrderCancelled struct {
	ID uint64
}

func (OrderCancelled) EventType() string { return TypeOrderCancelled }

func (e OrderCancelled) Event() *types.Event {
	return &types.Event{
		Type:       TypeOrderCancelled,
		Attributes: map[string]string{"id": formatID(e.ID)},
	}
}

// OrderInsured is emitted when an insurer accepts the auction. Amount carries
// the accepted bid, not the sale price.
type OrderInsured struct {
	ID      uint64
	Insurer [20]byte
	Amount  *big.Int
}

func (OrderInsured) EventType() string { return TypeOrderInsured }

func (e OrderInsured) Event() *types.Event {
	return &types.Event{
		Type: TypeOrderInsured,
		Attributes: map[string]string{
			"id":      formatID(e.ID),
			"insurer": hex.EncodeToString(e.Insurer[:]),
			"amount":  formatAmount(e.Amount),
		},
	}
}

// OrderResolved is emitted when the buyer settles an insured order.
type OrderResolved struct {
	ID      uint64
	Claimed bool
}

func (OrderResolved) EventType() string { return TypeOrderResolved }

func (e OrderResolved) Event() *types.Event {
	return &types.Event{
		Type: TypeOrderResolved,
		Attributes: map[string]string{
			"id":      formatID(e.ID),
			"claimed": strconv.FormatBool(e.Claimed),
		},
	}
}
