package state

import (
	"encoding/binary"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"payprotector/native/order"
)

func orderStorageKey(id uint64) []byte {
	return recordKey(orderRecordPrefix, id)
}

func auctionStorageKey(id uint64) []byte {
	return recordKey(auctionRecordPrefix, id)
}

func custodyStorageKey(id uint64) []byte {
	return recordKey(custodyRecordPrefix, id)
}

func recordKey(prefix []byte, id uint64) []byte {
	buf := make([]byte, len(prefix)+8)
	copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[len(prefix):], id)
	return ethcrypto.Keccak256(buf)
}

func accountStorageKey(addr []byte) []byte {
	buf := make([]byte, len(accountRecordPrefix)+len(addr))
	copy(buf, accountRecordPrefix)
	copy(buf[len(accountRecordPrefix):], addr)
	return ethcrypto.Keccak256(buf)
}

// storedOrder is the RLP shape of an order record. RLP has no signed integer
// support, so nil big.Ints are normalised before encoding.
type storedOrder struct {
	ID        uint64
	Buyer     [20]byte
	Seller    [20]byte
	Amount    *big.Int
	Deposit   *big.Int
	Insurer   [20]byte
	BidAmount *big.Int
	Status    uint8
}

func newStoredOrder(o *order.Order) *storedOrder {
	if o == nil {
		return nil
	}
	rec := &storedOrder{
		ID:      o.ID,
		Buyer:   o.Buyer,
		Seller:  o.Seller,
		Amount:  big.NewInt(0),
		Deposit: big.NewInt(0),
		Insurer: o.Insurer,
		// An uninsured order stores a zero bid; the status field
		// disambiguates on load.
		BidAmount: big.NewInt(0),
		Status:    uint8(o.Status),
	}
	if o.Amount != nil {
		rec.Amount = new(big.Int).Set(o.Amount)
	}
	if o.Deposit != nil {
		rec.Deposit = new(big.Int).Set(o.Deposit)
	}
	if o.BidAmount != nil {
		rec.BidAmount = new(big.Int).Set(o.BidAmount)
	}
	return rec
}

func (s *storedOrder) toOrder() (*order.Order, error) {
	if s == nil {
		return nil, order.ErrNotFound
	}
	out := &order.Order{
		ID:      s.ID,
		Buyer:   s.Buyer,
		Seller:  s.Seller,
		Amount:  big.NewInt(0),
		Deposit: big.NewInt(0),
		Status:  order.Status(s.Status),
	}
	if s.Amount != nil {
		out.Amount = new(big.Int).Set(s.Amount)
	}
	if s.Deposit != nil {
		out.Deposit = new(big.Int).Set(s.Deposit)
	}
	if out.Insured() {
		out.Insurer = s.Insurer
		out.BidAmount = big.NewInt(0)
		if s.BidAmount != nil {
			out.BidAmount = new(big.Int).Set(s.BidAmount)
		}
	}
	return order.SanitizeOrder(out)
}

type storedAuction struct {
	ID             uint64
	StartTimestamp *big.Int
	Timespan       uint64
	LowestAmount   *big.Int
}

func newStoredAuction(a *order.Auction) *storedAuction {
	if a == nil {
		return nil
	}
	rec := &storedAuction{
		ID:             a.ID,
		StartTimestamp: big.NewInt(a.StartTimestamp),
		Timespan:       a.Timespan,
		LowestAmount:   big.NewInt(0),
	}
	if a.LowestAmount != nil {
		rec.LowestAmount = new(big.Int).Set(a.LowestAmount)
	}
	return rec
}

func (s *storedAuction) toAuction() (*order.Auction, error) {
	if s == nil {
		return nil, order.ErrNotFound
	}
	out := &order.Auction{
		ID:           s.ID,
		Timespan:     s.Timespan,
		LowestAmount: big.NewInt(0),
	}
	if s.StartTimestamp != nil {
		out.StartTimestamp = s.StartTimestamp.Int64()
	}
	if s.LowestAmount != nil {
		out.LowestAmount = new(big.Int).Set(s.LowestAmount)
	}
	return out, nil
}
