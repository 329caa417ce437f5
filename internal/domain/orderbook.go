package domain

// BookLevel is one price level of an order book side.
type BookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// BookSnapshot is a point-in-time order book for one outcome token, both
// sides sorted best-first (bids descending, asks ascending).
type BookSnapshot struct {
	TokenID string      `json:"token_id"`
	Bids    []BookLevel `json:"bids"`
	Asks    []BookLevel `json:"asks"`
}

// BestBid is the highest bid price, 0 when the side is empty.
func (b *BookSnapshot) BestBid() float64 {
	if len(b.Bids) == 0 {
		return 0
	}
	return b.Bids[0].Price
}

// BestAsk is the lowest ask price, 0 when the side is empty.
func (b *BookSnapshot) BestAsk() float64 {
	if len(b.Asks) == 0 {
		return 0
	}
	return b.Asks[0].Price
}

// MidPrice is the midpoint of best bid and ask, or whichever side exists.
func (b *BookSnapshot) MidPrice() float64 {
	bid, ask := b.BestBid(), b.BestAsk()
	switch {
	case bid > 0 && ask > 0:
		return (bid + ask) / 2
	case bid > 0:
		return bid
	default:
		return ask
	}
}

// AskDepth sums ask size at or below the given price limit.
func (b *BookSnapshot) AskDepth(limit float64) float64 {
	var depth float64
	for _, lvl := range b.Asks {
		if lvl.Price > limit {
			break
		}
		depth += lvl.Size
	}
	return depth
}
