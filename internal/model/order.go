package model

// OrderStatus is the lifecycle state of an order. Orders only ever move
// between these two states; there is no cancellation state.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusCompleted OrderStatus = "completed"
)

// OrderItem is one line of an order. Price is the resolved unit price;
// zero means the item still needs manual pricing.
type OrderItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Order is price-frozen at creation: TotalAmount is computed once from the
// item prices observed at ingestion time and never recomputed afterwards,
// regardless of later catalog changes.
type Order struct {
	ID          string      `json:"id"`
	UserName    string      `json:"userName"`
	Address     string      `json:"address"`
	Region      string      `json:"region"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
	RawText     string      `json:"rawText"`
	Timestamp   int64       `json:"timestamp"`
	Status      OrderStatus `json:"status"`
	IsFlagged   bool        `json:"isFlagged"`
}
