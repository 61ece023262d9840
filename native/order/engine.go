package order

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"payprotector/core/events"
	"payprotector/core/pricing"
	"payprotector/core/types"
	nativecommon "payprotector/native/common"
)

var (
	errNilState = errors.New("order engine: state not configured")
)

const moduleName = "order"

// engineState is the ledger and escrow backend the engine mutates. The state
// owns every Order/Auction record; the engine only ever passes identifiers
// back to callers.
type engineState interface {
	OrderPut(*Order) error
	OrderGet(id uint64) (*Order, bool)
	AuctionPut(*Auction) error
	AuctionGet(id uint64) (*Auction, bool)
	NextOrderID() (uint64, error)
	OrderCredit(id uint64, amt *big.Int) error
	OrderDebit(id uint64, amt *big.Int) error
	OrderEscrowBalance(id uint64) (*big.Int, error)
	EscrowVaultAddress() [20]byte
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Engine implements the settlement state machine: order creation with an
// embedded Dutch auction, buyer cancellation, insurer acceptance and final
// resolution. Every public method validates authorization, status, price and
// balances before the first mutation, so a rejected call leaves state and
// funds untouched.
type Engine struct {
	state    engineState
	emitter  events.Emitter
	timespan uint64
	nowFn    func() int64
	pauses   nativecommon.PauseView
}

// NewEngine creates a settlement engine whose auctions all share the supplied
// timespan (seconds). The emitter defaults to a no-op implementation.
func NewEngine(timespan uint64) *Engine {
	return &Engine{
		emitter:  events.NoopEmitter{},
		timespan: timespan,
		nowFn:    func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for auction pricing. Primarily
// intended for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetPauses configures the administrative pause view consulted by mutating
// calls.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// Timespan returns the auction duration shared by all orders.
func (e *Engine) Timespan() uint64 { return e.timespan }

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) loadOrder(id uint64) (*Order, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	ord, ok := e.state.OrderGet(id)
	if !ok {
		return nil, ErrNotFound
	}
	return ord, nil
}

func (e *Engine) loadAuction(id uint64) (*Auction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	auc, ok := e.state.AuctionGet(id)
	if !ok {
		return nil, ErrNotFound
	}
	return auc, nil
}

func (e *Engine) balanceOf(addr [20]byte) (*big.Int, error) {
	acc, err := e.state.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	if acc == nil || acc.Balance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(acc.Balance), nil
}

func (e *Engine) transfer(from, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("order: negative transfer amount")
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	toAcc = ensureAccount(toAcc)
	if fromAcc.Balance.Cmp(amt) < 0 {
		return ErrInsufficientFunds
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

// Create escrows valueSent from the buyer as the order deposit and opens the
// insurance auction. The deposit must lie strictly between amount and
// 2*amount so the auction floor 2*amount-deposit stays positive and below the
// sale price.
func (e *Engine) Create(buyer, seller [20]byte, amount, valueSent *big.Int) (*Order, *Auction, error) {
	if e == nil || e.state == nil {
		return nil, nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, nil, err
	}
	if err := CheckDeposit(amount, valueSent); err != nil {
		return nil, nil, err
	}
	deposit := cloneBigInt(valueSent)
	balance, err := e.balanceOf(buyer)
	if err != nil {
		return nil, nil, err
	}
	if balance.Cmp(deposit) < 0 {
		return nil, nil, ErrInsufficientFunds
	}
	id, err := e.state.NextOrderID()
	if err != nil {
		return nil, nil, err
	}
	now := e.now()
	ord := &Order{
		ID:      id,
		Buyer:   buyer,
		Seller:  seller,
		Amount:  cloneBigInt(amount),
		Deposit: deposit,
		Status:  StatusCreated,
	}
	auc := &Auction{
		ID:             id,
		StartTimestamp: now,
		Timespan:       e.timespan,
		LowestAmount:   FloorPrice(amount, deposit),
	}
	if err := e.transfer(buyer, e.state.EscrowVaultAddress(), deposit); err != nil {
		return nil, nil, err
	}
	if err := e.state.OrderCredit(id, deposit); err != nil {
		return nil, nil, err
	}
	if err := e.state.OrderPut(ord); err != nil {
		return nil, nil, err
	}
	if err := e.state.AuctionPut(auc); err != nil {
		return nil, nil, err
	}
	e.emit(events.OrderCreated{ID: id, Buyer: buyer, Seller: seller, Amount: cloneBigInt(ord.Amount)})
	e.emit(events.DutchAuctionCreated{
		ID:             id,
		StartTimestamp: auc.StartTimestamp,
		Timespan:       auc.Timespan,
		LowestAmount:   cloneBigInt(auc.LowestAmount),
	})
	return ord.Clone(), auc.Clone(), nil
}

// MinBid quotes the current minimum acceptable insurance bid using the
// engine's clock. The quote is computed even for orders that already left
// Created; it is then stale but deterministic.
func (e *Engine) MinBid(id uint64) (*big.Int, error) {
	ord, err := e.loadOrder(id)
	if err != nil {
		return nil, err
	}
	auc, err := e.loadAuction(id)
	if err != nil {
		return nil, err
	}
	return pricing.MinBid(ord.Amount, auc.LowestAmount, auc.StartTimestamp, auc.Timespan, e.now()), nil
}

// Cancel refunds the full deposit to the buyer and terminates an uninsured
// order. Only the buyer may cancel.
func (e *Engine) Cancel(id uint64, caller [20]byte) (*Order, error) {
	ord, err := e.loadOrder(id)
	if err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if ord.Status != StatusCreated {
		return nil, ErrInvalidState
	}
	if caller != ord.Buyer {
		return nil, ErrUnauthorized
	}
	if err := e.transfer(e.state.EscrowVaultAddress(), ord.Buyer, ord.Deposit); err != nil {
		return nil, err
	}
	if err := e.state.OrderDebit(id, ord.Deposit); err != nil {
		return nil, err
	}
	ord.Status = StatusCancelled
	if err := e.state.OrderPut(ord); err != nil {
		return nil, err
	}
	e.emit(events.OrderCancelled{ID: id})
	return ord.Clone(), nil
}

// Insure accepts the order's auction at the current price. The bid moves into
// custody, the seller is paid the sale price immediately, and the caller
// becomes the insurer bearing settlement risk. Buyers cannot insure their own
// orders.
func (e *Engine) Insure(id uint64, caller [20]byte, valueSent *big.Int) (*Order, error) {
	ord, err := e.loadOrder(id)
	if err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if ord.Status != StatusCreated {
		return nil, ErrInvalidState
	}
	if caller == ord.Buyer {
		return nil, ErrUnauthorized
	}
	auc, err := e.loadAuction(id)
	if err != nil {
		return nil, err
	}
	min := pricing.MinBid(ord.Amount, auc.LowestAmount, auc.StartTimestamp, auc.Timespan, e.now())
	bid := cloneBigInt(valueSent)
	if bid.Cmp(min) < 0 {
		return nil, ErrBidTooLow
	}
	balance, err := e.balanceOf(caller)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(bid) < 0 {
		return nil, ErrInsufficientFunds
	}
	vault := e.state.EscrowVaultAddress()
	if err := e.transfer(caller, vault, bid); err != nil {
		return nil, err
	}
	if err := e.state.OrderCredit(id, bid); err != nil {
		return nil, err
	}
	if err := e.transfer(vault, ord.Seller, ord.Amount); err != nil {
		return nil, err
	}
	if err := e.state.OrderDebit(id, ord.Amount); err != nil {
		return nil, err
	}
	ord.Insurer = caller
	ord.BidAmount = bid
	ord.Status = StatusInsured
	if err := e.state.OrderPut(ord); err != nil {
		return nil, err
	}
	e.emit(events.OrderInsured{ID: id, Insurer: caller, Amount: cloneBigInt(bid)})
	return ord.Clone(), nil
}

// Resolve settles an insured order according to the buyer's binary claim
// decision and drains the order's custody to exactly zero. The primary
// beneficiary (buyer on claim, insurer otherwise) receives the sale price;
// the counterparty receives the remainder of the residual, which equals the
// portion of the bid above the auction floor.
func (e *Engine) Resolve(id uint64, caller [20]byte, claim bool) (*Order, error) {
	ord, err := e.loadOrder(id)
	if err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if ord.Status != StatusInsured {
		return nil, ErrInvalidState
	}
	if caller != ord.Buyer {
		return nil, ErrUnauthorized
	}
	residual, err := e.state.OrderEscrowBalance(id)
	if err != nil {
		return nil, err
	}
	// The floor-price guard at insure time keeps the residual at or above
	// the sale price: deposit + bid - amount >= amount.
	if residual.Cmp(ord.Amount) < 0 {
		return nil, fmt.Errorf("order: custody %s below sale price %s", residual, ord.Amount)
	}
	primary, counterparty := ord.Insurer, ord.Buyer
	if claim {
		primary, counterparty = ord.Buyer, ord.Insurer
	}
	remainder := new(big.Int).Sub(residual, ord.Amount)
	vault := e.state.EscrowVaultAddress()
	if err := e.transfer(vault, primary, ord.Amount); err != nil {
		return nil, err
	}
	if remainder.Sign() > 0 {
		if err := e.transfer(vault, counterparty, remainder); err != nil {
			return nil, err
		}
	}
	if err := e.state.OrderDebit(id, residual); err != nil {
		return nil, err
	}
	ord.Status = StatusResolved
	if err := e.state.OrderPut(ord); err != nil {
		return nil, err
	}
	e.emit(events.OrderResolved{ID: id, Claimed: claim})
	return ord.Clone(), nil
}
