package domain

import "time"

// Tick is a single spot trade event from the exchange stream.
type Tick struct {
	Price float64
	At    time.Time
}

// FeedStatus is the feed's published view of the latest price.
type FeedStatus struct {
	Price    float64   `json:"price"`
	LastTick time.Time `json:"last_tick"`
	Live     bool      `json:"live"`
}
