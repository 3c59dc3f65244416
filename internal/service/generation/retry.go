package generation

import (
	"context"
	"log"
)

// DefaultAttempts bounds retries for every generation capability, counting
// the first call.
const DefaultAttempts = 3

// Do invokes fn up to attempts times, retrying immediately while classify
// reports the failure as transient. A non-transient failure is returned as
// is; exhausting the bound yields a *TerminalError carrying the last
// underlying error and the attempt count.
func Do(ctx context.Context, capability string, attempts int, classify func(error) bool, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !classify(lastErr) {
			return lastErr
		}
		log.Printf("[generation] transient %s failure (attempt %d/%d): %v", capability, attempt, attempts, lastErr)
	}

	return &TerminalError{Capability: capability, Attempts: attempts, Err: lastErr}
}
