package jobs

import (
	"context"
	"log"
	"time"

	domain "duck-presale.backend/internal/domain/blockchain"
	"duck-presale.backend/internal/metrics"
	"duck-presale.backend/internal/pricing"
)

const (
	rolloverHourUTC   = 0
	rolloverMinuteUTC = 5
)

// rolloverChain is the slice of the chain surface the job needs.
type rolloverChain interface {
	GetConfig(ctx context.Context) (*domain.ConfigSnapshot, error)
	UpdateDailyConfig(ctx context.Context, priceUSD uint64, tge uint8, dailyCap uint64) (string, error)
}

// DailyRolloverJob pushes each day's price, TGE percent and cap on-chain
// shortly after the UTC day flips. It catches up on start, so a restarted
// server converges to the schedule without manual help.
type DailyRolloverJob struct {
	chain         rolloverChain
	startDate     time.Time
	retryInterval time.Duration
	now           func() time.Time
	stop          chan struct{}
}

func NewDailyRolloverJob(chain rolloverChain, startDate time.Time) *DailyRolloverJob {
	return &DailyRolloverJob{
		chain:         chain,
		startDate:     startDate,
		retryInterval: 15 * time.Minute,
		now:           time.Now,
		stop:          make(chan struct{}),
	}
}

func (j *DailyRolloverJob) Start(ctx context.Context) {
	log.Println("🕐 Starting daily price rollover job...")

	// catch up immediately: the process may have been down across a day flip
	j.runWithRetryDelay(ctx)

	for {
		wait := time.Until(j.nextRunAt())
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Println("⏹️ Daily rollover job stopped (context cancelled)")
			return
		case <-j.stop:
			timer.Stop()
			log.Println("⏹️ Daily rollover job stopped")
			return
		case <-timer.C:
			j.runWithRetryDelay(ctx)
		}
	}
}

func (j *DailyRolloverJob) Stop() {
	close(j.stop)
}

// runWithRetryDelay runs one rollover attempt and, on failure, retries on a
// backoff until it succeeds or the next scheduled run would take over.
func (j *DailyRolloverJob) runWithRetryDelay(ctx context.Context) {
	for {
		err := j.RunOnce(ctx)
		if err == nil {
			metrics.RolloverRuns.WithLabelValues("success").Inc()
			return
		}
		metrics.RolloverRuns.WithLabelValues("failure").Inc()
		log.Printf("❌ Daily rollover failed, retrying in %s: %v", j.retryInterval, err)

		next := j.nextRunAt()
		if j.now().Add(j.retryInterval).After(next) {
			return
		}
		timer := time.NewTimer(j.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-j.stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// RunOnce reconciles the on-chain daily config with today's schedule entry.
func (j *DailyRolloverJob) RunOnce(ctx context.Context) error {
	day := pricing.CurrentDay(j.startDate, j.now())
	if day < 1 {
		log.Printf("⏭️ Rollover skipped: sale starts %s", j.startDate.Format("2006-01-02"))
		return nil
	}

	target := pricing.ForDay(day)
	if day > pricing.TotalDays {
		// schedule exhausted: zero out price and cap so purchases stop
		target = pricing.DayConfig{}
	}

	cfg, err := j.chain.GetConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Status != domain.StatusPresaleActive {
		log.Printf("⏭️ Rollover skipped: contract status is %s", cfg.Status)
		return nil
	}
	if cfg.DailyCap == 0 {
		// a zeroed cap means the sale was closed out; the schedule must not
		// reopen it
		log.Println("⏭️ Rollover skipped: sale is closed")
		return nil
	}
	if cfg.PriceUSD == target.PriceUSD && cfg.TGE == target.TGE && cfg.DailyCap == target.DailyCap {
		return nil
	}

	tx, err := j.chain.UpdateDailyConfig(ctx, target.PriceUSD, target.TGE, target.DailyCap)
	if err != nil {
		return err
	}
	log.Printf("✅ Rolled over to day %d: price=%d tge=%d cap=%d tx=%s", day, target.PriceUSD, target.TGE, target.DailyCap, tx)
	return nil
}

// nextRunAt returns the next 00:05 UTC strictly after now.
func (j *DailyRolloverJob) nextRunAt() time.Time {
	now := j.now().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), rolloverHourUTC, rolloverMinuteUTC, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
