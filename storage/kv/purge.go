package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/gradebook/core"
)

// Purger is implemented by the storages that do not drop expired values by themselves.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// RunPurge purges the expired values of s every interval until ctx is done.
// It returns at once when s is not a Purger or interval <= 0.
func RunPurge(ctx context.Context, s core.Storage, interval time.Duration, logger core.Logger) {
	p, ok := s.(Purger)
	if !ok || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.Purge(ctx)
			if err != nil {
				logger.Error("purging expired values", err)
				continue
			}
			if n > 0 {
				logger.Debug(fmt.Sprintf("purged %d expired values", n))
			}
		}
	}
}
