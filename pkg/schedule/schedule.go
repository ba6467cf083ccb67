// Package schedule triggers the daily analysis run at a wall-clock time in
// a given time zone.
package schedule

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // zone data for hosts without a system database

	"github.com/robfig/cron/v3"
)

// Defaults of the daily trigger.
const (
	DefaultTime     = "07:30"
	DefaultTimezone = "Asia/Seoul"
)

// Job receives the date to analyze, formatted YYYYMMDD.
type Job func(ctx context.Context, targetDate string)

// Scheduler runs a Job once a day.
type Scheduler struct {
	cron     *cron.Cron
	mu       sync.Mutex
	entryID  cron.EntryID
	location *time.Location
	log      *slog.Logger
	baseCtx  context.Context
	cancel   context.CancelFunc
}

// New creates a Scheduler in the given timezone. An empty timezone selects
// DefaultTimezone.
func New(timezone string, logger *slog.Logger) (*Scheduler, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("component", "scheduler")

	cl := cronLogger{logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		location: loc,
		log:      logger,
		baseCtx:  ctx,
		cancel:   cancel,
	}, nil
}

// Location returns the scheduler's time zone.
func (s *Scheduler) Location() *time.Location { return s.location }

// Daily runs job every day at clock (HH:MM) with the previous day as
// target date. A previous schedule is replaced.
func (s *Scheduler) Daily(clock string, job Job) error {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
	}

	expr := fmt.Sprintf("%d %d * * *", minute, hour)
	id, err := s.cron.AddFunc(expr, func() {
		date := TargetDate(time.Now(), s.location)
		s.log.Info("scheduled run starting", slog.String("target_date", date))
		job(s.baseCtx, date)
	})
	if err != nil {
		return fmt.Errorf("adding cron entry: %w", err)
	}
	s.entryID = id
	s.log.Info("daily run scheduled", slog.String("time", clock), slog.String("cron", expr), slog.String("timezone", s.location.String()))
	return nil
}

// Next returns the next activation time, or the zero time when nothing is
// scheduled or the scheduler is not running.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// Run starts the scheduler and blocks until ctx is done. A job in progress
// sees its context canceled and Run waits for it to return.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// TargetDate returns the day before now in loc, formatted YYYYMMDD.
func TargetDate(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).AddDate(0, 0, -1).Format("20060102")
}

// ParseClock extracts hour and minute from HH:MM.
func ParseClock(clock string) (int, int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(clock), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, 0, fmt.Errorf("invalid time format %q: must be HH:MM", clock)
	}
	hour, err1 := strconv.Atoi(hh)
	minute, err2 := strconv.Atoi(mm)
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time %q: hour 0-23, minute 0-59", clock)
	}
	return hour, minute, nil
}

// cronLogger routes cron's internal logging to slog.
type cronLogger struct{ log *slog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
