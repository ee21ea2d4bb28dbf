package background

import (
	"context"
	"time"

	"shopcatalog/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// JobScheduler runs the periodic cache-warming work.
type JobScheduler struct {
	scheduler gocron.Scheduler
	views     services.CatalogViewService
	logger    zerolog.Logger
}

// NewJobScheduler creates the scheduler and registers its jobs.
func NewJobScheduler(views services.CatalogViewService, logger zerolog.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler: scheduler,
		views:     views,
		logger:    logger.With().Str("component", "jobs").Logger(),
	}

	// Category counts view refresh - every 5 minutes. Singleton mode so a
	// slow refresh never stacks.
	_, err = scheduler.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(js.refreshCategoryCounts),
		gocron.WithName("category-counts-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	return js, nil
}

// Start starts the job scheduler.
func (js *JobScheduler) Start() {
	js.logger.Info().Msg("starting background job scheduler")
	js.scheduler.Start()
}

// Stop stops the job scheduler.
func (js *JobScheduler) Stop() error {
	js.logger.Info().Msg("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) refreshCategoryCounts() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	counts, err := js.views.RefreshCategoryCounts(ctx)
	if err != nil {
		js.logger.Warn().Err(err).Msg("category counts refresh failed")
		return
	}
	js.logger.Debug().Int("categories", len(counts)).Msg("category counts refreshed")
}
