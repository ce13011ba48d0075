// Package availability decides whether the request form is open at a given
// instant. Resolve is pure: it has no side effects and no clock of its own,
// so it is safe to call from any request path without coordination.
package availability

import (
	"time"

	"github.com/pantrybridge/api/internal/enum"
)

// Settings is the resolver's view of the stored configuration. Schedule
// bounds arrive as the raw RFC3339 text persisted by the admin save path;
// Resolve owns parsing so that malformed stored values can never open the
// form by accident.
type Settings struct {
	ManualOverride string
	ScheduledOpen  string
	ScheduledClose string
}

// Reason codes for the structured status message. Callers localize; the
// resolver never emits display strings.
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonClosesAt Reason = "closes_at"
	ReasonOpensAt  Reason = "opens_at"
	ReasonClosedAt Reason = "closed_at"
)

type Decision struct {
	Open   bool
	Reason Reason
	At     *time.Time
}

// Resolve computes the open/closed state. Priority, first match wins:
// manual OPEN, manual CLOSED (absolute, ignores any schedule), then the
// scheduled window with inclusive bounds. A missing, half-configured, or
// unparseable schedule resolves to closed.
func Resolve(s Settings, now time.Time) Decision {
	switch s.ManualOverride {
	case enum.OverrideOpen:
		d := Decision{Open: true}
		// Courtesy message: a manually opened form still shows the
		// upcoming scheduled close when one is configured.
		if closeAt, ok := parseBound(s.ScheduledClose); ok && now.Before(closeAt) {
			d.Reason = ReasonClosesAt
			d.At = &closeAt
		}
		return d

	case enum.OverrideClosed:
		return Decision{Open: false}
	}

	// Follow schedule. Both bounds must be present and valid.
	openAt, okOpen := parseBound(s.ScheduledOpen)
	closeAt, okClose := parseBound(s.ScheduledClose)
	if !okOpen || !okClose {
		return Decision{Open: false}
	}

	switch {
	case now.Before(openAt):
		return Decision{Open: false, Reason: ReasonOpensAt, At: &openAt}
	case !now.After(closeAt):
		return Decision{Open: true, Reason: ReasonClosesAt, At: &closeAt}
	default:
		return Decision{Open: false, Reason: ReasonClosedAt, At: &closeAt}
	}
}

func parseBound(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
