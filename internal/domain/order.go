package domain

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderBuy  OrderSide = "BUY"
	OrderSell OrderSide = "SELL"
)

// OrderType selects market or limit execution.
type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

// OrderRequest is a single order against one outcome token.
type OrderRequest struct {
	TokenID string
	Side    OrderSide
	Price   float64 // limit price; advisory for market orders
	Size    float64 // shares
	Type    OrderType
}

// OrderAck is the venue's confirmation of a placed order.
type OrderAck struct {
	OrderID    string
	FilledSize float64
	AvgPrice   float64
	DryRun     bool
}
