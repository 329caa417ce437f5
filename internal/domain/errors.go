package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrRateLimited           = errors.New("rate limited")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidOrder          = errors.New("invalid order parameters")
	ErrWSDisconnect          = errors.New("websocket disconnected")
	ErrFeedUnavailable       = errors.New("price feed unavailable")
	ErrRegistryStale         = errors.New("market registry stale")
	ErrBookRepriced          = errors.New("book already repriced")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrDuplicatePosition     = errors.New("position already open for window")
	ErrWindowClosing         = errors.New("window too close to resolution")
	ErrSellStuck             = errors.New("sell order stuck")
	ErrVenueGone             = errors.New("venue unreachable")
	ErrRiskPaused            = errors.New("entries paused by risk guard")
)
