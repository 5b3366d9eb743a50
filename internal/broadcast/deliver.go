package broadcast

import (
	"context"
	"log/slog"
	"time"
)

// Sender delivers broadcast content to a single chat
type Sender interface {
	Send(ctx context.Context, chatID int64, content Content) error
}

// Result summarizes a completed fan-out
type Result struct {
	Delivered int
	Blocked   int
}

// Deliver fans content out to every recipient sequentially. A failed send
// (typically the user blocked the bot) is tallied and never aborts the loop.
// The delay between sends keeps the bot under outbound rate limits.
func Deliver(ctx context.Context, sender Sender, recipients []int64, content Content, delay time.Duration, log *slog.Logger) Result {
	var res Result

	for i, chatID := range recipients {
		if i > 0 && delay > 0 {
			time.Sleep(delay)
		}

		if err := sender.Send(ctx, chatID, content); err != nil {
			log.Debug("broadcast send failed", "chat_id", chatID, "error", err)
			res.Blocked++
			continue
		}
		res.Delivered++
	}

	return res
}
