package service

import (
	"context"
	"sort"
	"strings"

	"smartline/internal/model"
	"smartline/internal/storage"
)

// LedgerService owns the durable set of orders. Orders are immutable after
// creation except for status, flag and deletion; there are no item-level
// edits.
type LedgerService struct {
	store storage.Gateway
}

func NewLedgerService(store storage.Gateway) *LedgerService {
	return &LedgerService{store: store}
}

// Filter narrows List results. Actor is mandatory: members only ever see
// their own orders, admins see everything. Search matches the owner name or
// address as a case-insensitive substring. Empty Status means any status.
type Filter struct {
	Actor  model.UserProfile
	Search string
	Status model.OrderStatus
}

func (s *LedgerService) Create(ctx context.Context, order model.Order) error {
	doc, err := storage.ToRecord(order)
	if err != nil {
		return err
	}
	return s.store.Write(ctx, storage.Insert{Kind: storage.EntityOrders, Record: doc})
}

// List returns matching orders, most recent first.
func (s *LedgerService) List(ctx context.Context, f Filter) ([]model.Order, error) {
	records, err := s.store.Read(ctx, storage.EntityOrders)
	if err != nil {
		return nil, err
	}
	orders, err := storage.Decode[model.Order](records)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(f.Search)
	kept := orders[:0]
	for _, o := range orders {
		if !f.Actor.Role.SeesAllOrders() && o.UserName != f.Actor.Username {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(o.UserName), search) &&
			!strings.Contains(strings.ToLower(o.Address), search) {
			continue
		}
		kept = append(kept, o)
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Timestamp > kept[j].Timestamp })
	return kept, nil
}

func (s *LedgerService) SetStatus(ctx context.Context, id string, status model.OrderStatus) error {
	return s.store.Write(ctx, storage.Update{
		Kind:   storage.EntityOrders,
		ID:     id,
		Fields: map[string]any{"status": string(status)},
	})
}

func (s *LedgerService) SetFlag(ctx context.Context, id string, flagged bool) error {
	return s.store.Write(ctx, storage.Update{
		Kind:   storage.EntityOrders,
		ID:     id,
		Fields: map[string]any{"isFlagged": flagged},
	})
}

func (s *LedgerService) Delete(ctx context.Context, id string) error {
	return s.store.Write(ctx, storage.Delete{Kind: storage.EntityOrders, ID: id})
}
