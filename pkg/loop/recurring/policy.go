package recurring

import (
	"fmt"
	"strings"
	"time"

	"github.com/fitsarchive/calassoc/pkg/loop"
)

// Policy decides what a loop does after each cycle of a Task.
//
// While a cycle reports it did something, the next cycle starts at once.
// Otherwise, the loop waits for the cooldown, or stops when it drains.
type Policy struct {
	cooldown   time.Duration
	drain      bool
	untilError bool
}

// Forever keeps cycling, waiting cooldown between idle cycles.
func Forever(cooldown time.Duration) Policy {
	return Policy{cooldown: cooldown}
}

// Backlog cycles while there is something to do, then stops without error.
//
// Workers with this policy drain the refresh queue and exit.
func Backlog() Policy {
	return Policy{drain: true}
}

// UntilError makes p stop the loop at the first error a cycle reports.
func UntilError(p Policy) Policy {
	p.untilError = true
	return p
}

func (p Policy) String() string {
	s := "backlog"
	if !p.drain {
		s = "forever:" + p.cooldown.String()
	}
	if p.untilError {
		s += " (until error)"
	}
	return s
}

func (p Policy) Next(updated bool, err error) loop.Next {
	switch {
	case err != nil && p.untilError:
		return loop.Break(err)
	case updated:
		return loop.Continue(0)
	case p.drain:
		return loop.Break(nil)
	}
	return loop.Continue(p.cooldown)
}

// ParsePolicy parses "forever[:COOLDOWN]" or "backlog".
func ParsePolicy(s string) (Policy, error) {
	name, param, hasParam := strings.Cut(s, ":")
	switch name {
	case "backlog":
		if hasParam {
			return Policy{}, fmt.Errorf("backlog takes no parameter: %s", s)
		}
		return Backlog(), nil
	case "forever":
		if param == "" {
			return Forever(0), nil
		}
		cooldown, err := time.ParseDuration(param)
		if err != nil {
			return Policy{}, fmt.Errorf(`%s is not "forever:COOLDOWN": %w`, s, err)
		}
		if cooldown < 0 {
			return Policy{}, fmt.Errorf("negative cooldown: %s", s)
		}
		return Forever(cooldown), nil
	}
	return Policy{}, fmt.Errorf("unknown policy: %q (forever[:COOLDOWN] or backlog)", name)
}
