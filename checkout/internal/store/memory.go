package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

type memoryState struct {
	lineCoupons      map[string]decimal.Decimal
	shippingDiscount *ShippingDiscount
	selected         []string
}

// MemoryStore is the in-process DiscountStore and SelectionStore, used in
// tests and single-node deployments without a cache.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*memoryState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: map[string]*memoryState{}}
}

func (s *MemoryStore) state(userId string) *memoryState {
	state, ok := s.users[userId]
	if !ok {
		state = &memoryState{lineCoupons: map[string]decimal.Decimal{}}
		s.users[userId] = state
	}
	return state
}

func (s *MemoryStore) SetLineCoupon(c context.Context, userId string, coupon LineCoupon) error {
	if err := validateCoupon(coupon); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(userId).lineCoupons[coupon.LineId] = coupon.NewPrice
	return nil
}

func (s *MemoryStore) ClearLineCoupon(c context.Context, userId string, lineId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state(userId).lineCoupons, lineId)
	return nil
}

func (s *MemoryStore) SetShippingDiscount(
	c context.Context,
	userId string,
	discount ShippingDiscount,
) error {
	if err := validateShippingDiscount(discount); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(userId).shippingDiscount = &discount
	return nil
}

func (s *MemoryStore) ClearShippingDiscount(c context.Context, userId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(userId).shippingDiscount = nil
	return nil
}

func (s *MemoryStore) Snapshot(c context.Context, userId string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state(userId)
	snapshot := Snapshot{LineCoupons: map[string]decimal.Decimal{}}
	for lineId, newPrice := range state.lineCoupons {
		snapshot.LineCoupons[lineId] = newPrice
	}
	if state.shippingDiscount != nil {
		discount := *state.shippingDiscount
		snapshot.ShippingDiscount = &discount
	}
	return snapshot, nil
}

func (s *MemoryStore) Clear(c context.Context, userId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state(userId)
	state.lineCoupons = map[string]decimal.Decimal{}
	state.shippingDiscount = nil
	return nil
}

func (s *MemoryStore) Select(c context.Context, userId string, lineIds []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	selected := make([]string, len(lineIds))
	copy(selected, lineIds)
	s.state(userId).selected = selected
	return nil
}

func (s *MemoryStore) Selected(c context.Context, userId string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state(userId)
	selected := make([]string, len(state.selected))
	copy(selected, state.selected)
	return selected, nil
}

// ClearSelection empties the selection snapshot for the user.
func (s *MemoryStore) ClearSelection(c context.Context, userId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(userId).selected = nil
	return nil
}
