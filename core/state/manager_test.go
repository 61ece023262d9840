package state

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"payprotector/core/types"
	"payprotector/native/order"
	"payprotector/storage"
)

func newTestManager(t *testing.T) (*Manager, storage.Database) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewManager(db), db
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func TestManagerOrderRoundTrip(t *testing.T) {
	mgr, _ := newTestManager(t)

	ord := &order.Order{
		ID:        7,
		Buyer:     testAddr(0x01),
		Seller:    testAddr(0x02),
		Amount:    big.NewInt(300),
		Deposit:   big.NewInt(400),
		Insurer:   testAddr(0x03),
		BidAmount: big.NewInt(250),
		Status:    order.StatusInsured,
	}
	require.NoError(t, mgr.OrderPut(ord))

	loaded, ok := mgr.OrderGet(7)
	require.True(t, ok)
	require.Equal(t, ord.ID, loaded.ID)
	require.Equal(t, ord.Buyer, loaded.Buyer)
	require.Equal(t, ord.Seller, loaded.Seller)
	require.Zero(t, loaded.Amount.Cmp(ord.Amount))
	require.Zero(t, loaded.Deposit.Cmp(ord.Deposit))
	require.Equal(t, ord.Insurer, loaded.Insurer)
	require.Zero(t, loaded.BidAmount.Cmp(ord.BidAmount))
	require.Equal(t, order.StatusInsured, loaded.Status)
}

func TestManagerOrderGetUnknown(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, ok := mgr.OrderGet(99)
	require.False(t, ok)
}

func TestManagerDropsBidForUninsuredRecord(t *testing.T) {
	mgr, _ := newTestManager(t)

	ord := &order.Order{
		ID:      1,
		Buyer:   testAddr(0x01),
		Seller:  testAddr(0x02),
		Amount:  big.NewInt(100),
		Deposit: big.NewInt(150),
		Status:  order.StatusCreated,
	}
	require.NoError(t, mgr.OrderPut(ord))

	loaded, ok := mgr.OrderGet(1)
	require.True(t, ok)
	require.Nil(t, loaded.BidAmount)
	require.Equal(t, [20]byte{}, loaded.Insurer)
}

func TestManagerAuctionRoundTrip(t *testing.T) {
	mgr, _ := newTestManager(t)

	auc := &order.Auction{
		ID:             3,
		StartTimestamp: 1_700_000_000,
		Timespan:       10,
		LowestAmount:   big.NewInt(200),
	}
	require.NoError(t, mgr.AuctionPut(auc))

	loaded, ok := mgr.AuctionGet(3)
	require.True(t, ok)
	require.Equal(t, auc.ID, loaded.ID)
	require.Equal(t, auc.StartTimestamp, loaded.StartTimestamp)
	require.Equal(t, auc.Timespan, loaded.Timespan)
	require.Zero(t, loaded.LowestAmount.Cmp(auc.LowestAmount))
}

func TestManagerSequenceIsMonotonicAndPersistent(t *testing.T) {
	db := storage.NewMemDB()
	t.Cleanup(db.Close)

	mgr := NewManager(db)
	for want := uint64(0); want < 5; want++ {
		id, err := mgr.NextOrderID()
		require.NoError(t, err)
		require.Equal(t, want, id)
	}

	// A manager reopened over the same database continues the sequence.
	reopened := NewManager(db)
	id, err := reopened.NextOrderID()
	require.NoError(t, err)
	require.Equal(t, uint64(5), id)
}

func TestManagerCustodyLedger(t *testing.T) {
	mgr, _ := newTestManager(t)

	balance, err := mgr.OrderEscrowBalance(1)
	require.NoError(t, err)
	require.Zero(t, balance.Sign())

	require.NoError(t, mgr.OrderCredit(1, big.NewInt(400)))
	require.NoError(t, mgr.OrderCredit(1, big.NewInt(200)))
	balance, err = mgr.OrderEscrowBalance(1)
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(big.NewInt(600)))

	require.NoError(t, mgr.OrderDebit(1, big.NewInt(600)))
	balance, err = mgr.OrderEscrowBalance(1)
	require.NoError(t, err)
	require.Zero(t, balance.Sign())

	require.Error(t, mgr.OrderDebit(1, big.NewInt(1)))
}

func TestManagerAccounts(t *testing.T) {
	mgr, _ := newTestManager(t)
	addr := testAddr(0x05)

	acc, err := mgr.GetAccount(addr[:])
	require.NoError(t, err)
	require.Zero(t, acc.Balance.Sign())

	acc.Balance = big.NewInt(1_000)
	acc.Nonce = 3
	require.NoError(t, mgr.PutAccount(addr[:], acc))

	loaded, err := mgr.GetAccount(addr[:])
	require.NoError(t, err)
	require.Equal(t, uint64(3), loaded.Nonce)
	require.Zero(t, loaded.Balance.Cmp(big.NewInt(1_000)))
}

func TestManagerAllocationsApplyOnce(t *testing.T) {
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	mgr := NewManager(db)

	addr := testAddr(0x06)
	allocs := map[[20]byte]*big.Int{addr: big.NewInt(500)}
	require.NoError(t, mgr.ApplyAllocations(allocs))
	require.NoError(t, mgr.ApplyAllocations(allocs))
	require.NoError(t, NewManager(db).ApplyAllocations(allocs))

	acc, err := mgr.GetAccount(addr[:])
	require.NoError(t, err)
	require.Zero(t, acc.Balance.Cmp(big.NewInt(500)))
}

func TestManagerVaultAddressStable(t *testing.T) {
	mgr, _ := newTestManager(t)
	other, _ := newTestManager(t)
	vault := mgr.EscrowVaultAddress()
	require.Equal(t, vault, other.EscrowVaultAddress())
	require.NotEqual(t, [20]byte{}, vault)
}

func TestManagerSatisfiesEngineState(t *testing.T) {
	mgr, _ := newTestManager(t)

	engine := order.NewEngine(10)
	engine.SetState(mgr)

	buyer := testAddr(0x01)
	require.NoError(t, mgr.PutAccount(buyer[:], &types.Account{Balance: big.NewInt(1_000)}))

	ord, auc, err := engine.Create(buyer, testAddr(0x02), big.NewInt(300), big.NewInt(400))
	require.NoError(t, err)
	require.Equal(t, uint64(0), ord.ID)
	require.Zero(t, auc.LowestAmount.Cmp(big.NewInt(200)))

	balance, err := mgr.OrderEscrowBalance(ord.ID)
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(big.NewInt(400)))
}
