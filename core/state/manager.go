package state

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"payprotector/core/types"
	"payprotector/native/order"
	"payprotector/storage"
)

// Manager owns every Order/Auction record, the per-order custody ledger and
// all participant accounts, persisted as RLP records under keccak-hashed keys
// in a key-value store. External callers only ever hold order identifiers.
type Manager struct {
	db storage.Database
}

// NewManager wraps the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) write(key []byte, record interface{}) error {
	encoded, err := rlp.EncodeToBytes(record)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

func (m *Manager) read(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

// OrderPut persists the sanitized order record.
func (m *Manager) OrderPut(o *order.Order) error {
	sanitized, err := order.SanitizeOrder(o)
	if err != nil {
		return err
	}
	return m.write(orderStorageKey(sanitized.ID), newStoredOrder(sanitized))
}

// OrderGet loads an order by identifier.
func (m *Manager) OrderGet(id uint64) (*order.Order, bool) {
	var rec storedOrder
	ok, err := m.read(orderStorageKey(id), &rec)
	if err != nil || !ok {
		return nil, false
	}
	ord, err := rec.toOrder()
	if err != nil {
		return nil, false
	}
	return ord, true
}

// AuctionPut persists the auction schedule record.
func (m *Manager) AuctionPut(a *order.Auction) error {
	if a == nil {
		return fmt.Errorf("state: nil auction")
	}
	return m.write(auctionStorageKey(a.ID), newStoredAuction(a))
}

// AuctionGet loads an auction schedule by identifier.
func (m *Manager) AuctionGet(id uint64) (*order.Auction, bool) {
	var rec storedAuction
	ok, err := m.read(auctionStorageKey(id), &rec)
	if err != nil || !ok {
		return nil, false
	}
	auc, err := rec.toAuction()
	if err != nil {
		return nil, false
	}
	return auc, true
}

// NextOrderID returns the next identifier in the monotonic sequence and
// advances the persisted counter.
func (m *Manager) NextOrderID() (uint64, error) {
	key := ethcrypto.Keccak256(orderSequenceKey)
	var next uint64
	if _, err := m.read(key, &next); err != nil {
		return 0, err
	}
	if err := m.write(key, next+1); err != nil {
		return 0, err
	}
	return next, nil
}

// OrderCredit adds value to the custody balance held for an order.
func (m *Manager) OrderCredit(id uint64, amt *big.Int) error {
	if amt == nil || amt.Sign() < 0 {
		return fmt.Errorf("state: invalid custody credit")
	}
	current, err := m.OrderEscrowBalance(id)
	if err != nil {
		return err
	}
	return m.write(custodyStorageKey(id), current.Add(current, amt))
}

// OrderDebit removes value from the custody balance held for an order.
func (m *Manager) OrderDebit(id uint64, amt *big.Int) error {
	if amt == nil || amt.Sign() < 0 {
		return fmt.Errorf("state: invalid custody debit")
	}
	current, err := m.OrderEscrowBalance(id)
	if err != nil {
		return err
	}
	if current.Cmp(amt) < 0 {
		return fmt.Errorf("state: custody balance underflow for order %d", id)
	}
	return m.write(custodyStorageKey(id), current.Sub(current, amt))
}

// OrderEscrowBalance reports the value currently held in custody for an
// order. Unknown orders hold zero.
func (m *Manager) OrderEscrowBalance(id uint64) (*big.Int, error) {
	balance := new(big.Int)
	if _, err := m.read(custodyStorageKey(id), balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// EscrowVaultAddress returns the module account holding all escrowed value.
// The address is derived from a fixed seed so it can never collide with a
// participant key.
func (m *Manager) EscrowVaultAddress() [20]byte {
	var addr [20]byte
	digest := ethcrypto.Keccak256(vaultSeed)
	copy(addr[:], digest[12:])
	return addr
}

type storedAccount struct {
	Nonce   uint64
	Balance *big.Int
}

// GetAccount loads the account for an address, returning an empty account for
// addresses never seen before.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	var rec storedAccount
	ok, err := m.read(accountStorageKey(addr), &rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	acc := &types.Account{Nonce: rec.Nonce, Balance: big.NewInt(0)}
	if rec.Balance != nil {
		acc.Balance = new(big.Int).Set(rec.Balance)
	}
	return acc, nil
}

// PutAccount persists the account for an address.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	rec := storedAccount{Nonce: account.Nonce, Balance: big.NewInt(0)}
	if account.Balance != nil {
		rec.Balance = new(big.Int).Set(account.Balance)
	}
	return m.write(accountStorageKey(addr), rec)
}

// ApplyAllocations credits the supplied genesis balances exactly once per
// database; reopening an initialised store is a no-op.
func (m *Manager) ApplyAllocations(allocs map[[20]byte]*big.Int) error {
	key := ethcrypto.Keccak256(genesisAppliedKey)
	var applied uint64
	ok, err := m.read(key, &applied)
	if err != nil {
		return err
	}
	if ok && applied == 1 {
		return nil
	}
	for addr, amount := range allocs {
		if amount == nil || amount.Sign() < 0 {
			return fmt.Errorf("state: invalid allocation for %x", addr)
		}
		acc, err := m.GetAccount(addr[:])
		if err != nil {
			return err
		}
		acc.Balance = new(big.Int).Add(acc.Balance, amount)
		if err := m.PutAccount(addr[:], acc); err != nil {
			return err
		}
	}
	return m.write(key, uint64(1))
}
