// Package repository stores orders for the lifetime of the process.
// Orders are session-scoped by design and never persisted.
package repository

import (
	"context"
	"sync"

	"github.com/you-humble/mockpay/internal/model"
)

type repository struct {
	mu     sync.RWMutex
	orders map[string]model.Order
}

func NewOrderRepository() *repository {
	return &repository{orders: make(map[string]model.Order)}
}

func (r *repository) Create(_ context.Context, ord *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[ord.ID]; ok {
		return model.ErrOrderConflict
	}
	r.orders[ord.ID] = *ord

	return nil
}

func (r *repository) OrderByID(_ context.Context, id string) (*model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ord, ok := r.orders[id]
	if !ok {
		return nil, model.ErrOrderNotFound
	}

	out := ord
	return &out, nil
}
