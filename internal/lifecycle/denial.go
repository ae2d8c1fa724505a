// AngelaMos | 2026
// denial.go

package lifecycle

import (
	"math"
	"time"
)

// Denial is a business refusal. Kind is one of the core sentinel errors and
// Reason is shown to the user as-is. The numeric fields are filled in only
// for the kinds they describe.
type Denial struct {
	Kind      error
	Reason    string
	Limit     int
	Current   int
	Remaining time.Duration
	Required  int
	Available int
}

func (d *Denial) Error() string {
	return d.Reason
}

func (d *Denial) Unwrap() error {
	return d.Kind
}

// RemainingMinutes rounds up, so a cooldown with 30s left reads as 1.
func (d *Denial) RemainingMinutes() int {
	return int(math.Ceil(d.Remaining.Minutes()))
}

func (d *Denial) ErrorDetails() any {
	details := map[string]int{}
	if d.Limit != 0 || d.Current != 0 {
		details["limit"] = d.Limit
		details["current"] = d.Current
	}
	if d.Remaining > 0 {
		details["remaining_minutes"] = d.RemainingMinutes()
	}
	if d.Required != 0 {
		details["required"] = d.Required
		details["available"] = d.Available
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// Decision is the result of a decide step. Cost is the coin price the
// apply step will charge.
type Decision struct {
	Cost   int
	Denial *Denial
}

func (d Decision) Allowed() bool {
	return d.Denial == nil
}

// Err returns the denial as an error, or nil when allowed.
func (d Decision) Err() error {
	if d.Denial == nil {
		return nil
	}
	return d.Denial
}

func allow(cost int) Decision {
	return Decision{Cost: cost}
}

func deny(d *Denial) Decision {
	return Decision{Denial: d}
}
