package storage

import "time"

// User is a chat known to the bot, recorded on first contact
type User struct {
	ChatID   int64
	Username string
	Language string
	JoinedAt time.Time
}

// Order is one accepted payment, recorded by the storefront notifier
type Order struct {
	ID          int64
	Username    string
	StarsAmount int64
	TonAmount   float64
	Wallet      string
	CreatedAt   time.Time
}

// OrderStats aggregates orders over a time window
type OrderStats struct {
	Count      int64
	TotalStars int64
	TotalTON   float64
}
