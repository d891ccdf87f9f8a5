package loadgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/uhyunpark/ordercache/pkg/app/core/cache"
	"github.com/uhyunpark/ordercache/pkg/util"
)

// Config controls a load run
type Config struct {
	Iterations    int     // number of batches
	BatchSize     int     // actions per batch
	Profile       Profile // reference or random
	CancelPercent int     // share of actions that cancel a live order
	Securities    int     // random profile only
	Companies     int
	Users         int
	MaxQty        uint64
	Seed          int64
}

// DefaultConfig replays the reference batch without cancels
func DefaultConfig() Config {
	return Config{
		Iterations:    10000,
		BatchSize:     len(referenceBatch),
		Profile:       ProfileReference,
		CancelPercent: 0,
		Securities:    3,
		Companies:     5,
		Users:         8,
		MaxQty:        5000,
		Seed:          1,
	}
}

// HighLoadConfig returns config for stress testing
func HighLoadConfig() Config {
	return Config{
		Iterations:    10000,
		BatchSize:     100,
		Profile:       ProfileRandom,
		CancelPercent: 10,
		Securities:    20,
		Companies:     10,
		Users:         200,
		MaxQty:        10000,
		Seed:          1,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Iterations <= 0 {
		errs = append(errs, fmt.Errorf("iterations must be positive, got %d", c.Iterations))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", c.BatchSize))
	}
	if c.CancelPercent < 0 || c.CancelPercent > 100 {
		errs = append(errs, fmt.Errorf("cancel percent must be within [0, 100], got %d", c.CancelPercent))
	}
	if _, err := ParseProfile(string(c.Profile)); err != nil {
		errs = append(errs, err)
	}
	if c.Profile == ProfileRandom && (c.Securities <= 0 || c.Companies <= 0 || c.Users <= 0 || c.MaxQty == 0) {
		errs = append(errs, errors.New("random profile needs securities, companies, users and max qty"))
	}
	return errors.Join(errs...)
}

// Report summarizes a load run
type Report struct {
	Profile      Profile
	Orders       int
	Cancels      int
	Rejected     int
	Elapsed      time.Duration
	OrdersPerSec float64
	Matching     map[string]uint64 // security -> matched quantity at the end
	Securities   []string          // first-seen order
}

// Format writes a human readable report
func (r Report) Format(w io.Writer) error {
	_, err := fmt.Fprintf(w, "profile:   %s\norders:    %s\ncancels:   %s\nrejected:  %s\nelapsed:   %s\nthroughput: %s ops/sec\n",
		r.Profile,
		humanize.Comma(int64(r.Orders)),
		humanize.Comma(int64(r.Cancels)),
		humanize.Comma(int64(r.Rejected)),
		r.Elapsed.Round(time.Microsecond),
		humanize.FormatFloat("#,###.#", r.OrdersPerSec),
	)
	if err != nil {
		return err
	}
	for _, sec := range r.Securities {
		if _, err := fmt.Fprintf(w, "  %-10s matched %s\n", sec, humanize.Comma(int64(r.Matching[sec]))); err != nil {
			return err
		}
	}
	return nil
}

// Runner feeds generated actions into a cache
type Runner struct {
	cache *cache.Cache
	cfg   Config
	log   *zap.Logger
	clock util.Clock
}

func NewRunner(c *cache.Cache, cfg Config, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{cache: c, cfg: cfg, log: log, clock: util.RealClock{}}
}

// WithClock replaces the clock used to time the run
func (r *Runner) WithClock(clock util.Clock) *Runner {
	r.clock = clock
	return r
}

// Run applies cfg.Iterations batches, checking ctx between batches.
// On cancellation it returns the partial report and ctx.Err().
func (r *Runner) Run(ctx context.Context) (Report, error) {
	if err := r.cfg.Validate(); err != nil {
		return Report{}, fmt.Errorf("load config: %w", err)
	}

	gen := NewGenerator(r.cfg)
	rep := Report{Profile: r.cfg.Profile}
	start := r.clock.Now()

	r.log.Info("load_started",
		zap.String("profile", string(r.cfg.Profile)),
		zap.Int("iterations", r.cfg.Iterations),
		zap.Int("batch_size", r.cfg.BatchSize),
		zap.Int("cancel_percent", r.cfg.CancelPercent),
	)

	var runErr error
	for i := 0; i < r.cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		for _, a := range gen.GenerateBatch(r.cfg.BatchSize) {
			switch a.Kind {
			case ActionAdd:
				if err := r.cache.AddOrder(a.Order); err != nil {
					rep.Rejected++
					r.log.Warn("load_order_rejected", zap.String("id", a.Order.ID), zap.Error(err))
					continue
				}
				rep.Orders++
			case ActionCancel:
				r.cache.CancelOrder(a.CancelID)
				rep.Cancels++
			}
		}
	}

	rep.Elapsed = r.clock.Since(start)
	if secs := rep.Elapsed.Seconds(); secs > 0 {
		rep.OrdersPerSec = float64(rep.Orders+rep.Cancels) / secs
	}
	rep.Securities = r.cache.Securities()
	rep.Matching = make(map[string]uint64, len(rep.Securities))
	for _, sec := range rep.Securities {
		rep.Matching[sec] = r.cache.MatchingSizeForSecurity(sec)
	}

	r.log.Info("load_finished",
		zap.Int("orders", rep.Orders),
		zap.Int("cancels", rep.Cancels),
		zap.Int("rejected", rep.Rejected),
		zap.Duration("elapsed", rep.Elapsed),
		zap.Float64("ops_per_sec", rep.OrdersPerSec),
	)
	return rep, runErr
}
