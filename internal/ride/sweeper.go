package ride

import (
	"context"
	"log"
	"time"

	"github.com/SilentFURY-x/RideAlong/internal/stream"
)

// Sweep marks past-dated active rides completed. It is the explicit
// trigger for the expiry policy (date < today means terminal) and is
// idempotent: a second pass over already-swept rides affects zero rows.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE rides SET status='completed' WHERE status='active' AND date < $1
	`, today())
	if err != nil {
		return 0, err
	}

	n := tag.RowsAffected()
	if n > 0 {
		s.notify(Event{Type: "ride.completed"}, stream.TopicExplore)
	}
	return n, nil
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.Sweep(ctx)
				if err != nil {
					log.Printf("ride sweep error: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("ride sweep completed %d expired rides", n)
				}
			}
		}
	}()
}
