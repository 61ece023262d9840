package core

import (
	"math/big"
	"sync"

	"payprotector/core/events"
	"payprotector/core/state"
	"payprotector/core/types"
	"payprotector/native/order"
)

// Node is the serialized call surface over the settlement engine. Every
// state-mutating operation runs to completion under a single mutex, so no
// call can observe another call's half-applied effects; the engine itself
// guarantees that rejected calls mutate nothing.
type Node struct {
	mu       sync.Mutex
	state    *state.Manager
	engine   *order.Engine
	recorder *events.Recorder
}

// NewNode wires the state manager and engine together with a bounded event
// recorder serving the best-effort notification side channel.
func NewNode(mgr *state.Manager, engine *order.Engine) *Node {
	recorder := events.NewRecorder(256)
	engine.SetState(mgr)
	engine.SetEmitter(recorder)
	return &Node{
		state:    mgr,
		engine:   engine,
		recorder: recorder,
	}
}

// CreateOrder escrows valueSent from the buyer and opens the insurance
// auction, returning the new order and its schedule.
func (n *Node) CreateOrder(buyer, seller [20]byte, amount, valueSent *big.Int) (*order.Order, *order.Auction, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Create(buyer, seller, amount, valueSent)
}

// CancelOrder refunds the deposit to the buyer and terminates the order.
func (n *Node) CancelOrder(id uint64, caller [20]byte) (*order.Order, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Cancel(id, caller)
}

// InsureOrder accepts the order's auction at the current price on behalf of
// the caller.
func (n *Node) InsureOrder(id uint64, caller [20]byte, valueSent *big.Int) (*order.Order, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Insure(id, caller, valueSent)
}

// ResolveOrder settles an insured order per the buyer's claim decision.
func (n *Node) ResolveOrder(id uint64, caller [20]byte, claim bool) (*order.Order, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Resolve(id, caller, claim)
}

// MinBid quotes the current minimum acceptable insurance bid.
func (n *Node) MinBid(id uint64) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.MinBid(id)
}

// GetOrder returns the order and its auction schedule by identifier.
func (n *Node) GetOrder(id uint64) (*order.Order, *order.Auction, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ord, ok := n.state.OrderGet(id)
	if !ok {
		return nil, nil, order.ErrNotFound
	}
	auc, ok := n.state.AuctionGet(id)
	if !ok {
		return nil, nil, order.ErrNotFound
	}
	return ord, auc, nil
}

// GetAccount returns the account record for an address.
func (n *Node) GetAccount(addr [20]byte) (*types.Account, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.GetAccount(addr[:])
}

// RecentEvents returns the retained lifecycle events, oldest first.
func (n *Node) RecentEvents() []events.Event {
	return n.recorder.Events()
}
