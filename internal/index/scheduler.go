package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Schedule triggers r on a standard five-field cron expression until ctx is
// cancelled. An empty spec disables scheduling and returns immediately.
func Schedule(ctx context.Context, spec string, r *Reindexer, logger *slog.Logger) error {
	if spec == "" {
		return nil
	}
	sched, err := scheduleParser.Parse(spec)
	if err != nil {
		return fmt.Errorf("index: parse reindex schedule %q: %w", spec, err)
	}

	c := cron.New(cron.WithParser(scheduleParser))
	c.Schedule(sched, cron.FuncJob(func() {
		logger.Debug("scheduler: periodic reindex")
		r.Trigger()
	}))
	c.Start()
	logger.Info("scheduler: started", slog.String("schedule", spec))

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("scheduler: stopped")
	return nil
}

// ValidateSchedule reports whether spec is an acceptable reindex schedule.
func ValidateSchedule(spec string) error {
	if spec == "" {
		return nil
	}
	_, err := scheduleParser.Parse(spec)
	return err
}
