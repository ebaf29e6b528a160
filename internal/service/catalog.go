package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"smartline/internal/model"
	"smartline/internal/storage"
)

// CatalogService maintains the price catalog: at most one record per
// (itemName, region) pair. Catalog mutations never touch existing orders;
// order totals are frozen at creation.
type CatalogService struct {
	store storage.Gateway
	now   func() time.Time
}

func NewCatalogService(store storage.Gateway) *CatalogService {
	return &CatalogService{store: store, now: time.Now}
}

func (s *CatalogService) List(ctx context.Context) ([]model.PriceRecord, error) {
	records, err := s.store.Read(ctx, storage.EntityPrices)
	if err != nil {
		return nil, err
	}
	prices, err := storage.Decode[model.PriceRecord](records)
	if err != nil {
		return nil, err
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].ItemName < prices[j].ItemName })
	return prices, nil
}

// Available returns the records currently offered for sale.
func (s *CatalogService) Available(ctx context.Context) ([]model.PriceRecord, error) {
	prices, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	kept := prices[:0]
	for _, p := range prices {
		if p.IsAvailable {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

// ResolvePrice returns the unit price for the item in the region: the
// exact-region record if one exists, else the wildcard-region record, else
// the zero sentinel meaning "needs manual pricing". It never fails.
func ResolvePrice(prices []model.PriceRecord, itemName, region string) float64 {
	for _, p := range prices {
		if p.ItemName == itemName && p.Region == region {
			return p.Price
		}
	}
	for _, p := range prices {
		if p.ItemName == itemName && p.Region == model.RegionAll {
			return p.Price
		}
	}
	return 0
}

// Upsert sets the authoritative price for (itemName, region). An existing
// record keeps its id and availability and gets the new price; otherwise a
// new record is inserted, unavailable until an operator offers it.
func (s *CatalogService) Upsert(ctx context.Context, itemName, region string, price float64) (model.PriceRecord, error) {
	if region == "" {
		region = model.RegionAll
	}

	prices, err := s.List(ctx)
	if err != nil {
		return model.PriceRecord{}, err
	}

	now := s.now().UnixMilli()
	for _, p := range prices {
		if p.ItemName == itemName && p.Region == region {
			err := s.store.Write(ctx, storage.Update{
				Kind:   storage.EntityPrices,
				ID:     p.ID,
				Fields: map[string]any{"price": price, "updatedAt": now},
			})
			if err != nil {
				return model.PriceRecord{}, err
			}
			p.Price = price
			p.UpdatedAt = now
			return p, nil
		}
	}

	record := model.PriceRecord{
		ID:          uuid.NewString(),
		ItemName:    itemName,
		Region:      region,
		Price:       price,
		UpdatedAt:   now,
		IsAvailable: false,
	}
	doc, err := storage.ToRecord(record)
	if err != nil {
		return model.PriceRecord{}, err
	}
	if err := s.store.Write(ctx, storage.Insert{Kind: storage.EntityPrices, Record: doc}); err != nil {
		return model.PriceRecord{}, err
	}
	return record, nil
}

func (s *CatalogService) SetAvailability(ctx context.Context, id string, available bool) error {
	return s.store.Write(ctx, storage.Update{
		Kind:   storage.EntityPrices,
		ID:     id,
		Fields: map[string]any{"isAvailable": available},
	})
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	return s.store.Write(ctx, storage.Delete{Kind: storage.EntityPrices, ID: id})
}

// IngestText runs the catalog-maintenance batch boundary: the parser
// extracts (item, price, region?) entries from free text and each entry is
// applied through Upsert. Region defaults to the wildcard region.
func (s *CatalogService) IngestText(ctx context.Context, parser TextParser, text string) ([]model.PriceRecord, error) {
	entries, err := parser.ParsePrices(ctx, text)
	if err != nil {
		return nil, err
	}

	applied := make([]model.PriceRecord, 0, len(entries))
	for _, e := range entries {
		record, err := s.Upsert(ctx, e.ItemName, e.Region, e.Price)
		if err != nil {
			return applied, err
		}
		applied = append(applied, record)
	}
	return applied, nil
}
