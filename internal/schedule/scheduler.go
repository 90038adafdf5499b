// Package schedule fires periodic connection restarts from a cron expression.
//
// Expressions carry a leading seconds field ("0 0 4 * * *" restarts daily at
// 04:00:00). Descriptors such as "@daily" or "@every 6h" are also accepted.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	robfigcron "github.com/robfig/cron/v3"

	"github.com/crystaldolphin/wadash/internal/schema"
)

// Source is the origin reported to the gateway for scheduled restarts.
const Source = "schedule"

var parser = robfigcron.NewParser(
	robfigcron.Second | robfigcron.Minute | robfigcron.Hour |
		robfigcron.Dom | robfigcron.Month | robfigcron.Dow | robfigcron.Descriptor,
)

// Validate reports whether expr parses. An empty expression is valid and
// means no scheduled restarts.
func Validate(expr string) error {
	if expr == "" {
		return nil
	}
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Scheduler requests a restart through the gateway each time expr fires.
type Scheduler struct {
	expr    string
	gateway schema.CommandGateway
	robfig  *robfigcron.Cron
	entry   robfigcron.EntryID
}

// New creates a Scheduler. An empty expr yields a Scheduler whose Start only
// waits for cancellation.
func New(expr string, gw schema.CommandGateway) (*Scheduler, error) {
	s := &Scheduler{
		expr:    expr,
		gateway: gw,
		robfig:  robfigcron.New(robfigcron.WithParser(parser)),
	}
	if expr == "" {
		return s, nil
	}
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	s.entry = s.robfig.Schedule(sched, robfigcron.FuncJob(s.fire))
	return s, nil
}

func (s *Scheduler) fire() {
	slog.Info("schedule: restart due", "expr", s.expr)
	s.gateway.RequestRestart(Source)
}

// Enabled reports whether an expression was configured.
func (s *Scheduler) Enabled() bool { return s.expr != "" }

// Start runs the cron loop. Blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.Enabled() {
		<-ctx.Done()
		return ctx.Err()
	}

	s.robfig.Start()
	slog.Info("schedule: started", "expr", s.expr, "next", s.Next())

	<-ctx.Done()

	<-s.robfig.Stop().Done()
	return ctx.Err()
}

// Next returns the next time a restart will be requested, or the zero time
// when no schedule is configured or the loop has not started.
func (s *Scheduler) Next() time.Time {
	if !s.Enabled() {
		return time.Time{}
	}
	return s.robfig.Entry(s.entry).Next
}
