package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/spf13/pflag"
)

const dateLayout = "2006-01-02"

// dateValue is a YYYY-MM-DD flag. It stays unset until the flag is given.
type dateValue struct {
	t   time.Time
	set bool
}

var _ pflag.Value = (*dateValue)(nil)

func (d *dateValue) String() string {
	if !d.set {
		return ""
	}
	return d.t.Format(dateLayout)
}

func (d *dateValue) Set(s string) error {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("expected YYYY-MM-DD")
	}
	d.t, d.set = t, true
	return nil
}

func (d *dateValue) Type() string { return "date" }

// Time returns the zero time when unset.
func (d *dateValue) Time() time.Time { return d.t }

func (d *dateValue) Ptr() *time.Time {
	if !d.set {
		return nil
	}
	t := d.t
	return &t
}

// ScheduleLookup is the read access the CLI needs to label schedules.
type ScheduleLookup interface {
	GetByID(ctx context.Context, id string) (*domain.FeeSchedule, error)
}

func (a *App) scheduleLabel(ctx context.Context, id string) string {
	if a.Schedules == nil {
		return id
	}
	s, err := a.Schedules.GetByID(ctx, id)
	if err != nil {
		return id
	}
	return s.Label
}
