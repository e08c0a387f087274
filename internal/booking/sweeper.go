package booking

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// DefaultSweepInterval is how often the background sweeper scans for lapsed
// holds when no interval is configured.
const DefaultSweepInterval = 45 * time.Second

// Sweeper runs the coordinator's expiry sweep on a fixed interval.  It is
// the active half of hold expiry; the lazy half runs inside HoldSeats and
// the payment operations.  Running several sweepers against the same stores
// is safe: every expiry is a compare-and-swap.
type Sweeper struct {
	coord     *Coordinator
	interval  time.Duration
	scheduler gocron.Scheduler
}

// NewSweeper builds a sweeper for the coordinator.  A non-positive interval
// falls back to DefaultSweepInterval.
func NewSweeper(coord *Coordinator, interval time.Duration) (*Sweeper, error) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Sweeper{coord: coord, interval: interval, scheduler: sched}, nil
}

// Start schedules the periodic sweep and begins running it.  The job keeps
// going until Stop is called; individual sweep failures are logged and the
// next tick proceeds normally.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			expired, err := s.coord.SweepExpired(ctx)
			if err != nil {
				log.Printf("sweeper: sweep failed: %v", err)
				return
			}
			if expired > 0 {
				log.Printf("sweeper: released %d expired hold(s)", expired)
			}
		}),
	)
	if err != nil {
		return err
	}
	s.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for a running sweep to finish.
func (s *Sweeper) Stop() error {
	return s.scheduler.Shutdown()
}
