package core

import (
	"errors"
	"math/big"
	"sync"
	"testing"

	"payprotector/core/state"
	"payprotector/core/types"
	"payprotector/native/order"
	"payprotector/storage"
)

func newTestNode(t *testing.T) (*Node, [20]byte, [20]byte, [20]byte) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	mgr := state.NewManager(db)

	var buyer, seller, insurer [20]byte
	buyer[0], seller[0], insurer[0] = 0x01, 0x02, 0x03
	for _, addr := range [][20]byte{buyer, insurer} {
		if err := mgr.PutAccount(addr[:], &types.Account{Balance: big.NewInt(10_000)}); err != nil {
			t.Fatalf("fund account: %v", err)
		}
	}
	return NewNode(mgr, order.NewEngine(10)), buyer, seller, insurer
}

func TestNodeLifecycle(t *testing.T) {
	node, buyer, seller, insurer := newTestNode(t)

	ord, auc, err := node.CreateOrder(buyer, seller, big.NewInt(300), big.NewInt(400))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if auc.ID != ord.ID {
		t.Fatalf("auction id mismatch")
	}
	min, err := node.MinBid(ord.ID)
	if err != nil {
		t.Fatalf("min bid: %v", err)
	}
	if min.Cmp(big.NewInt(200)) < 0 || min.Cmp(big.NewInt(300)) > 0 {
		t.Fatalf("min bid %s outside auction bounds", min)
	}
	if _, err := node.InsureOrder(ord.ID, insurer, big.NewInt(300)); err != nil {
		t.Fatalf("insure: %v", err)
	}
	if _, err := node.ResolveOrder(ord.ID, buyer, false); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	stored, _, err := node.GetOrder(ord.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if stored.Status != order.StatusResolved {
		t.Fatalf("status %s, want resolved", stored.Status)
	}
	if got := len(node.RecentEvents()); got != 4 {
		t.Fatalf("recorded %d events, want 4", got)
	}
}

func TestNodeGetOrderUnknown(t *testing.T) {
	node, _, _, _ := newTestNode(t)
	if _, _, err := node.GetOrder(42); !errors.Is(err, order.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestNodeSerializesConcurrentCalls(t *testing.T) {
	node, buyer, seller, _ := newTestNode(t)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := node.CreateOrder(buyer, seller, big.NewInt(100), big.NewInt(150))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent create: %v", err)
		}
	}

	// All n identifiers must have been assigned without gaps or reuse.
	seen := make(map[uint64]bool)
	for id := uint64(0); id < n; id++ {
		ord, _, err := node.GetOrder(id)
		if err != nil {
			t.Fatalf("get order %d: %v", id, err)
		}
		if seen[ord.ID] {
			t.Fatalf("order id %d assigned twice", ord.ID)
		}
		seen[ord.ID] = true
	}
}
