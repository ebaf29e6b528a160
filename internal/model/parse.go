package model

// ParsedOrder is one order block extracted from a free-text message by the
// text-understanding service. Name and quantity are mandatory per item; an
// item price of zero means the source text carried no explicit price.
type ParsedOrder struct {
	UserName string      `json:"userName"`
	Address  string      `json:"address"`
	Region   string      `json:"region"`
	Items    []OrderItem `json:"items"`
}

// ParsedPrice is one catalog entry extracted from maintenance text. Region
// defaults to the wildcard region when the text names none.
type ParsedPrice struct {
	ItemName string  `json:"itemName"`
	Price    float64 `json:"price"`
	Region   string  `json:"region,omitempty"`
}
