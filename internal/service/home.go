package service

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/atinyakov/FitKeeper/internal/gate"
)

// QuoteInterval is how often the home screen shows a new quote.
const QuoteInterval = 5 * time.Second

// Quotes shown on the home screen.
var Quotes = []string{
	"Push yourself, because no one else is going to do it for you.",
	"Success is the sum of small efforts, repeated day in and day out.",
	"Don't stop when you're tired, stop when you're done.",
	"The only bad workout is the one that didn't happen.",
	"Hard work beats talent when talent doesn't work hard.",
}

// Greeting is the home screen title for a visitor.
func Greeting(c gate.Classification, name string) string {
	if _, ok := c.(gate.Guest); ok {
		return "Welcome, Guest!"
	}
	if name == "" {
		name = "Athlete"
	}
	return "Welcome, " + name + "!"
}

// RandomQuote picks one of Quotes.
func RandomQuote() string {
	return Quotes[rand.IntN(len(Quotes))]
}

// RotateQuotes calls show with a random quote every interval until ctx is
// done. The ticker is stopped on return.
func RotateQuotes(ctx context.Context, interval time.Duration, show func(string)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			show(RandomQuote())
		}
	}
}
