// Package memory is an in-process store for local runs and engine tests.
// All state lives behind one mutex; WithinTx holds it for the whole
// transaction and restores a snapshot when fn fails.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"rigrent-backend/internal/domain"
	"rigrent-backend/internal/repository"
)

type dataset struct {
	users     map[int64]domain.User
	plans     map[int64]domain.Plan
	machines  map[int64]domain.Machine
	leases    map[int64]domain.Lease
	accounts  map[int64]domain.LedgerAccount // keyed by user id
	ledgerTxs []domain.LedgerTransaction
	wallets   map[int64]domain.Wallet
	walletTxs []domain.WalletTransaction
	seq       map[string]int64
}

func newDataset() *dataset {
	return &dataset{
		users:    map[int64]domain.User{},
		plans:    map[int64]domain.Plan{},
		machines: map[int64]domain.Machine{},
		leases:   map[int64]domain.Lease{},
		accounts: map[int64]domain.LedgerAccount{},
		wallets:  map[int64]domain.Wallet{},
		seq:      map[string]int64{},
	}
}

// Entities are stored by value and replaced on write, never mutated in place,
// so a shallow copy of the maps is a consistent snapshot.
func (d *dataset) clone() *dataset {
	return &dataset{
		users:     maps.Clone(d.users),
		plans:     maps.Clone(d.plans),
		machines:  maps.Clone(d.machines),
		leases:    maps.Clone(d.leases),
		accounts:  maps.Clone(d.accounts),
		ledgerTxs: slices.Clone(d.ledgerTxs),
		wallets:   maps.Clone(d.wallets),
		walletTxs: slices.Clone(d.walletTxs),
		seq:       maps.Clone(d.seq),
	}
}

func (d *dataset) nextID(kind string) int64 {
	d.seq[kind]++
	return d.seq[kind]
}

type Store struct {
	mu   sync.Mutex
	data *dataset
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{data: newDataset()}
}

// Repos returns auto-commit repositories. They must not be used from inside
// a WithinTx callback; use the Repositories passed to the callback instead.
func (s *Store) Repos() repository.Repositories {
	return newRepositories(&view{store: s})
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	committed := false
	defer func() {
		if !committed {
			s.data = snapshot
		}
	}()

	if err := fn(ctx, newRepositories(&view{data: s.data})); err != nil {
		return err
	}
	committed = true
	return nil
}

func newRepositories(v *view) repository.Repositories {
	return repository.Repositories{
		Users:    &userRepository{v},
		Plans:    &planRepository{v},
		Machines: &machineRepository{v},
		Leases:   &leaseRepository{v},
		Ledger:   &ledgerRepository{v},
		Wallets:  &walletRepository{v},
	}
}

// view runs repository calls either against a transaction's dataset or,
// outside a transaction, under the store lock.
type view struct {
	store *Store
	data  *dataset
}

func (v *view) do(ctx context.Context, fn func(d *dataset) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if v.data != nil {
		return fn(v.data)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.data)
}
