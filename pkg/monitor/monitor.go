// Package monitor re-evaluates the device on a cron schedule and reports
// verdict transitions, e.g. su being granted mid-session.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/sipeed/devguard/pkg/detect"
	"github.com/sipeed/devguard/pkg/logger"
)

// Evaluator is satisfied by *detect.Checker.
type Evaluator interface {
	Evaluate(ctx context.Context) detect.Report
}

// Change describes a verdict that differs from the previous evaluation.
type Change struct {
	Field string
	From  string
	To    string
}

func (c Change) String() string {
	return fmt.Sprintf("%s: %s -> %s", c.Field, c.From, c.To)
}

type Monitor struct {
	eval     Evaluator
	schedule string
	onReport func(r detect.Report, changes []Change)

	now   func() time.Time
	after func(d time.Duration) <-chan time.Time
}

// Validate reports whether schedule is a usable cron expression.
func Validate(schedule string) error {
	g := gronx.New()
	if !g.IsValid(schedule) {
		return fmt.Errorf("invalid cron schedule %q", schedule)
	}
	return nil
}

// New returns a monitor for schedule. onReport, if non-nil, is called after
// every evaluation with the transitions since the previous one.
func New(eval Evaluator, schedule string, onReport func(detect.Report, []Change)) (*Monitor, error) {
	if err := Validate(schedule); err != nil {
		return nil, err
	}
	return &Monitor{
		eval:     eval,
		schedule: schedule,
		onReport: onReport,
		now:      time.Now,
		after:    time.After,
	}, nil
}

// Run evaluates immediately, then at every tick of the schedule until ctx
// is done. Evaluations never overlap.
func (m *Monitor) Run(ctx context.Context) error {
	logger.InfoCF("monitor", "Monitor started", map[string]interface{}{"schedule": m.schedule})

	prev := m.evaluate(ctx, nil)
	for {
		if ctx.Err() != nil {
			logger.InfoC("monitor", "Monitor stopped")
			return nil
		}

		next, err := gronx.NextTickAfter(m.schedule, m.now(), false)
		if err != nil {
			return fmt.Errorf("next tick for %q: %w", m.schedule, err)
		}

		select {
		case <-ctx.Done():
			logger.InfoC("monitor", "Monitor stopped")
			return nil
		case <-m.after(next.Sub(m.now())):
		}

		prev = m.evaluate(ctx, prev)
	}
}

func (m *Monitor) evaluate(ctx context.Context, prev *detect.Report) *detect.Report {
	r := m.eval.Evaluate(ctx)
	if ctx.Err() != nil {
		// Checks fail on a cancelled context, so this report is not
		// comparable with the previous one.
		return prev
	}

	var changes []Change
	if prev != nil {
		changes = Diff(*prev, r)
	}
	for _, c := range changes {
		logger.WarnCF("monitor", "Device verdict changed",
			map[string]interface{}{
				"field":          c.Field,
				"from":           c.From,
				"to":             c.To,
				"correlation_id": r.ID,
			})
	}
	if m.onReport != nil {
		m.onReport(r, changes)
	}
	return &r
}

// Diff lists the verdict fields that differ between two reports.
func Diff(prev, cur detect.Report) []Change {
	var out []Change
	add := func(field string, from, to interface{}) {
		f, t := fmt.Sprint(from), fmt.Sprint(to)
		if f != t {
			out = append(out, Change{Field: field, From: f, To: t})
		}
	}
	add("platform", prev.Platform, cur.Platform)
	add("rooted", prev.Root.Rooted, cur.Root.Rooted)
	add("root_reason", prev.Root.Reason, cur.Root.Reason)
	add("emulator", prev.Emulator.Emulator, cur.Emulator.Emulator)
	add("restrict", prev.Policy.Restrict, cur.Policy.Restrict)
	return out
}
