package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/feedwatch/pkg/logger"
)

// Job is a unit of scheduled work. The context is the scheduler's run
// context; jobs must return promptly once it is cancelled.
type Job func(ctx context.Context)

// Scheduler triggers registered jobs until Stop is called. The two
// implementations differ only in how the next firing time is derived.
type Scheduler interface {
	// Add registers a named job. Must be called before Start.
	Add(name string, job Job) error
	// Start begins triggering jobs. Non-blocking.
	Start(ctx context.Context)
	// Stop halts triggering and waits for running jobs to finish.
	Stop()
}

// New picks a scheduler implementation by mode: "cron" uses the cron
// expression, "interval" uses the fixed duration.
func New(mode, cronSpec string, interval time.Duration, log *logger.Logger) (Scheduler, error) {
	switch mode {
	case "cron":
		return NewCron(cronSpec, log)
	case "interval":
		return NewInterval(interval, log)
	default:
		return nil, fmt.Errorf("invalid scheduler mode %q: must be cron or interval", mode)
	}
}

// cronLogger adapts our logger for cron
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info().Msgf(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Msgf(msg, keysAndValues...)
}

// CronScheduler fires jobs on a cron expression. All jobs added to one
// scheduler share the same expression.
type CronScheduler struct {
	spec string
	cron *cron.Cron
	log  *logger.Logger

	mu     sync.Mutex
	ctx    context.Context
	jobs   []namedJob
	wg     sync.WaitGroup
	active bool
}

type namedJob struct {
	name string
	job  Job
}

// NewCron validates the cron expression and returns a scheduler for it.
func NewCron(spec string, log *logger.Logger) (*CronScheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return &CronScheduler{
		spec: spec,
		cron: cron.New(cron.WithLogger(cronLogger{log.WithComponent("schedule")})),
		log:  log.WithComponent("schedule"),
	}, nil
}

func (s *CronScheduler) Add(name string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return fmt.Errorf("cannot add job %q to a running scheduler", name)
	}
	s.jobs = append(s.jobs, namedJob{name: name, job: job})
	return nil
}

func (s *CronScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.ctx = ctx
	for _, nj := range s.jobs {
		nj := nj
		// Expression already validated in NewCron.
		s.cron.AddFunc(s.spec, func() {
			if s.ctx.Err() != nil {
				return
			}
			s.wg.Add(1)
			defer s.wg.Done()
			s.log.Info().Str("job", nj.name).Msg("Running scheduled job")
			nj.job(s.ctx)
		})
	}
	s.cron.Start()
	s.active = true
	s.log.Info().Str("cron", s.spec).Int("jobs", len(s.jobs)).Msg("Cron scheduler started")
}

func (s *CronScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.active = false
	s.log.Info().Msg("Cron scheduler stopped")
}

// IntervalScheduler fires jobs on a fixed ticker. The first run happens
// one interval after Start, not immediately.
type IntervalScheduler struct {
	interval time.Duration
	log      *logger.Logger

	mu     sync.Mutex
	jobs   []namedJob
	cancel context.CancelFunc
	done   chan struct{}
	active bool
}

// NewInterval returns a ticker-driven scheduler. The interval must be
// positive.
func NewInterval(interval time.Duration, log *logger.Logger) (*IntervalScheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid interval %v: must be positive", interval)
	}
	return &IntervalScheduler{
		interval: interval,
		log:      log.WithComponent("schedule"),
	}, nil
}

func (s *IntervalScheduler) Add(name string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return fmt.Errorf("cannot add job %q to a running scheduler", name)
	}
	s.jobs = append(s.jobs, namedJob{name: name, job: job})
	return nil
}

func (s *IntervalScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.active = true

	go s.loop(runCtx)
	s.log.Info().Dur("interval", s.interval).Int("jobs", len(s.jobs)).Msg("Interval scheduler started")
}

func (s *IntervalScheduler) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, nj := range s.jobs {
				if ctx.Err() != nil {
					return
				}
				s.log.Info().Str("job", nj.name).Msg("Running scheduled job")
				nj.job(ctx)
			}
		}
	}
}

func (s *IntervalScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.cancel()
	<-s.done
	s.active = false
	s.log.Info().Msg("Interval scheduler stopped")
}
