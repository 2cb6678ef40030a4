package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/logger"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// PenaltyAccruer runs one batch penalty accrual
type PenaltyAccruer interface {
	AccruePenalties(ctx context.Context, request *domain.AccrualRequest) (*domain.AccrualResult, error)
}

// Scheduler runs the daily penalty accrual on a cron expression
type Scheduler struct {
	cron    *cron.Cron
	accruer PenaltyAccruer
	loc     *time.Location
	Clock   func() time.Time
	log     zerolog.Logger
}

func New(cfg *config.Config, accruer PenaltyAccruer) (*Scheduler, error) {
	loc := cfg.GetSchedulerLocation()
	log := logger.WithComponent("scheduler")

	s := &Scheduler{
		accruer: accruer,
		loc:     loc,
		Clock:   time.Now,
		log:     log,
	}

	cronLog := cronLogger{log: log}
	s.cron = cron.New(
		cron.WithSeconds(),
		cron.WithLocation(loc),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	if _, err := s.cron.AddFunc(cfg.Scheduler.PenaltyCron, func() {
		if _, err := s.RunPenaltyAccrual(context.Background()); err != nil {
			s.log.Error().Err(err).Msg("penalty accrual job failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule penalty accrual %q: %w", cfg.Scheduler.PenaltyCron, err)
	}

	return s, nil
}

// RunPenaltyAccrual accrues penalties as of today's date in the scheduler timezone
func (s *Scheduler) RunPenaltyAccrual(ctx context.Context) (*domain.AccrualResult, error) {
	asOf := s.Clock().In(s.loc).Format("2006-01-02")
	s.log.Info().Str("as_of", asOf).Msg("running penalty accrual")

	return s.accruer.AccruePenalties(ctx, &domain.AccrualRequest{AsOf: asOf})
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Str("timezone", s.loc.String()).Msg("scheduler started")
}

// Stop waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// cronLogger routes cron's own logging through zerolog
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
