package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// RunScheduled runs the pipeline once immediately and then on every tick of
// the cron spec until ctx is cancelled. Runs never overlap: a tick that
// fires while a run is in progress is skipped.
func (p *Pipeline) RunScheduled(ctx context.Context, spec string) error {
	settings, err := p.builder.Settings(p.clock.Now())
	if err != nil {
		return err
	}

	logger := cronLogger{p.logger}
	job := cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(func() {
		p.RunOnce(ctx) //nolint:errcheck // outcome is logged and counted by RunOnce
	}))

	c := cron.New(cron.WithLocation(settings.Location), cron.WithLogger(logger))
	if _, err := c.AddJob(spec, job); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}

	p.logger.Info("scheduler started", "schedule", spec, "timezone", settings.Location.String())
	c.Start()
	go job.Run()

	<-ctx.Done()
	p.logger.Info("scheduler stopping", "reason", ctx.Err())
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
