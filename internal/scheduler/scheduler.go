// Package scheduler runs named recurring jobs from a persistent job table
// and dispatches outbox events to registered handlers. Schedules live in
// storage, so restarts pick up where the previous process stopped; handlers
// live in code and are registered at startup.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/Rico-project-final/FinalProject-RicoServer/internal/adapters/observability"
	"github.com/Rico-project-final/FinalProject-RicoServer/internal/domain"
)

// HandlerFunc runs one job occurrence. businessID is empty for global jobs.
type HandlerFunc func(ctx context.Context, businessID string) error

// EventHandlerFunc consumes one outbox event. A nil return marks the event
// consumed; an error leaves it in the outbox for redelivery.
type EventHandlerFunc func(ctx context.Context, e domain.Event) error

const (
	defaultPoll    = 30 * time.Second
	defaultWorkers = 3
	eventBatch     = 100
)

type trigger struct {
	name       string
	businessID string
}

// Scheduler owns the poll loop. Construct one per process; the API process
// does not run one and reaches the worker through the outbox instead.
type Scheduler struct {
	jobs   domain.JobStore
	events domain.EventStore
	poll   time.Duration
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	now    func() time.Time

	mu        sync.Mutex
	handlers  map[string]HandlerFunc
	consumers map[string]EventHandlerFunc
	pending   []trigger
}

type Option func(*Scheduler)

func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.poll = d
		}
	}
}

func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(jobs domain.JobStore, events domain.EventStore, opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:      jobs,
		events:    events,
		poll:      defaultPoll,
		sem:       semaphore.NewWeighted(defaultWorkers),
		now:       time.Now,
		handlers:  map[string]HandlerFunc{},
		consumers: map[string]EventHandlerFunc{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handle registers the code for a job name. Call before Run.
func (s *Scheduler) Handle(name string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = fn
}

// OnEvent registers the consumer for an outbox event type. Call before Run.
func (s *Scheduler) OnEvent(typ string, fn EventHandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumers[typ] = fn
}

// Schedule registers (or re-registers) a recurring job. spec takes standard
// five-field cron or "@every <duration>". businessID nil means a single
// global occurrence per tick. Scheduling an existing job replaces its spec
// and recomputes the next run; it never duplicates.
func (s *Scheduler) Schedule(ctx context.Context, name string, businessID *string, spec string) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return s.jobs.UpsertJob(ctx, domain.JobRecord{
		Name:       name,
		BusinessID: businessID,
		Spec:       spec,
		NextRunAt:  sched.Next(s.now()),
	})
}

// Cancel removes every occurrence of a job name, including triggers already
// queued via TriggerNow. In-flight runs finish.
func (s *Scheduler) Cancel(ctx context.Context, name string) error {
	s.mu.Lock()
	kept := s.pending[:0]
	for _, tr := range s.pending {
		if tr.name != name {
			kept = append(kept, tr)
		}
	}
	s.pending = kept
	s.mu.Unlock()
	return s.jobs.DeleteJobs(ctx, name)
}

// TriggerNow queues one immediate out-of-schedule run, executed on the next
// poll tick. The recurring schedule is untouched. Non-blocking.
func (s *Scheduler) TriggerNow(name, businessID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, trigger{name: name, businessID: businessID})
}

// Run polls until ctx is canceled, then waits for in-flight runs.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().Dur("poll", s.poll).Msg("scheduler running")
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			log.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.runTriggers(ctx)
	s.runDue(ctx)
	s.dispatchEvents(ctx)
}

func (s *Scheduler) runTriggers(ctx context.Context) {
	s.mu.Lock()
	queued := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, tr := range queued {
		fn := s.handler(tr.name)
		if fn == nil {
			log.Warn().Str("job", tr.name).Msg("trigger for unregistered job dropped")
			continue
		}
		s.launch(ctx, tr.name, tr.businessID, fn)
	}
}

func (s *Scheduler) runDue(ctx context.Context) {
	due, err := s.jobs.DueJobs(ctx, s.now())
	if err != nil {
		log.Error().Err(err).Msg("due-job query failed")
		return
	}

	for _, j := range due {
		fn := s.handler(j.Name)
		if fn == nil {
			log.Warn().Str("job", j.Name).Msg("due job has no handler")
			continue
		}

		sched, err := cron.ParseStandard(j.Spec)
		if err != nil {
			log.Error().Err(err).Str("job", j.Name).Str("spec", j.Spec).Msg("stored spec unparsable")
			continue
		}

		// advance the schedule before running: a crash mid-run costs one
		// occurrence, never the registration
		ranAt := s.now()
		if err := s.jobs.CompleteJobRun(ctx, j.Name, j.BusinessID, sched.Next(ranAt), ranAt); err != nil {
			log.Error().Err(err).Str("job", j.Name).Msg("advancing schedule failed")
			continue
		}

		businessID := ""
		if j.BusinessID != nil {
			businessID = *j.BusinessID
		}
		s.launch(ctx, j.Name, businessID, fn)
	}
}

func (s *Scheduler) launch(ctx context.Context, name, businessID string, fn HandlerFunc) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				observability.ObserveJobRun(name, "panic")
				log.Error().Str("job", name).Str("business", businessID).Interface("panic", r).Msg("job panicked")
			}
		}()

		start := time.Now()
		if err := fn(ctx, businessID); err != nil {
			observability.ObserveJobRun(name, "error")
			log.Warn().Err(err).Str("job", name).Str("business", businessID).Msg("job failed")
			return
		}
		observability.ObserveJobRun(name, "ok")
		log.Info().Str("job", name).Str("business", businessID).Dur("took", time.Since(start)).Msg("job done")
	}()
}

// dispatchEvents drains the outbox. Delivery is at least once: an event is
// marked consumed only after its handler returned nil, so consumers must
// tolerate replays.
func (s *Scheduler) dispatchEvents(ctx context.Context) {
	evs, err := s.events.UnconsumedEvents(ctx, eventBatch)
	if err != nil {
		log.Error().Err(err).Msg("outbox query failed")
		return
	}

	for _, e := range evs {
		fn := s.consumer(e.Type)
		if fn == nil {
			observability.ObserveEvent(e.Type, "unhandled")
			continue
		}
		if err := fn(ctx, e); err != nil {
			observability.ObserveEvent(e.Type, "error")
			log.Warn().Err(err).Str("event", e.ID).Str("type", e.Type).Msg("event handler failed, will redeliver")
			continue
		}
		if err := s.events.MarkEventConsumed(ctx, e.ID); err != nil {
			log.Error().Err(err).Str("event", e.ID).Msg("marking event consumed failed")
			continue
		}
		observability.ObserveEvent(e.Type, "ok")
	}
}

func (s *Scheduler) handler(name string) HandlerFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers[name]
}

func (s *Scheduler) consumer(typ string) EventHandlerFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumers[typ]
}
