package model

// RegionAll is the catalog's wildcard region, used as the fallback scope
// when no region-specific price exists.
const RegionAll = "ALL"

// PriceRecord maps (ItemName, Region) to a unit price. At most one record
// exists per pair. IsAvailable toggles independently of Price; newly learned
// items start unavailable until an operator offers them for sale.
type PriceRecord struct {
	ID          string  `json:"id"`
	ItemName    string  `json:"itemName"`
	Region      string  `json:"region"`
	Price       float64 `json:"price"`
	UpdatedAt   int64   `json:"updatedAt"`
	IsAvailable bool    `json:"isAvailable"`
}
