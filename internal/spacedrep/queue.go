package spacedrep

import (
	"fmt"
	"sort"
	"time"
)

// Unbounded disables a queue limit.
const Unbounded = -1

// Candidate is a reviewable entity offered to the queue builder.
type Candidate struct {
	ID    string
	State *ScheduleState
	// Scope is the owning application id, empty for unscoped material.
	Scope string
	// Kind is the entity kind (answer, story, flashcard), used by scope filters.
	Kind string
}

// ScopeFilter restricts the candidate pool before partitioning.
type ScopeFilter interface {
	Match(c Candidate) bool
}

// ScopeFunc adapts a plain function to ScopeFilter.
type ScopeFunc func(c Candidate) bool

// Match implements ScopeFilter.
func (f ScopeFunc) Match(c Candidate) bool { return f(c) }

// ScopeApplication matches candidates owned by a single application.
func ScopeApplication(applicationID string) ScopeFilter {
	return ScopeFunc(func(c Candidate) bool { return c.Scope == applicationID })
}

// QueueConfig bounds and scopes a queue. A nil Scope means unscoped.
type QueueConfig struct {
	MaxNew    int
	MaxReview int
	Scope     ScopeFilter
}

// Mode names a preset queue configuration.
type Mode string

const (
	ModeDaily       Mode = "daily"
	ModeQuick       Mode = "quick"
	ModeAllDue      Mode = "all-due"
	ModeApplication Mode = "application"
)

// AllModes returns the preset modes in display order.
func AllModes() []Mode {
	return []Mode{ModeDaily, ModeQuick, ModeAllDue, ModeApplication}
}

// Limits holds the new/review limits for the daily and application modes,
// which are configurable.
type Limits struct {
	DailyNew    int
	DailyReview int
}

// DefaultLimits returns the standard daily limits.
func DefaultLimits() Limits {
	return Limits{DailyNew: 10, DailyReview: 50}
}

// ConfigForMode returns the queue configuration for a preset mode using the
// default daily limits.
func ConfigForMode(mode Mode, scope string) (QueueConfig, error) {
	return DefaultLimits().ConfigForMode(mode, scope)
}

// ConfigForMode returns the queue configuration for a preset mode.
// The application mode requires a non-empty scope.
func (l Limits) ConfigForMode(mode Mode, scope string) (QueueConfig, error) {
	switch mode {
	case ModeDaily:
		return QueueConfig{MaxNew: l.DailyNew, MaxReview: l.DailyReview}, nil
	case ModeQuick:
		return QueueConfig{MaxNew: 3, MaxReview: 10}, nil
	case ModeAllDue:
		return QueueConfig{MaxNew: 0, MaxReview: Unbounded}, nil
	case ModeApplication:
		if scope == "" {
			return QueueConfig{}, ErrMissingScope
		}
		return QueueConfig{
			MaxNew:    l.DailyNew,
			MaxReview: l.DailyReview,
			Scope:     ScopeApplication(scope),
		}, nil
	default:
		return QueueConfig{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// BuildQueue selects and orders the entities to review now. Overdue cards come
// first, most overdue first, followed by never-reviewed cards in pool order.
// Cards that are not yet due are excluded. An empty pool, or a scope with no
// matching entities, yields an empty queue.
func BuildQueue(pool []Candidate, now time.Time, cfg QueueConfig) []string {
	type dueCard struct {
		id      string
		overdue time.Duration
	}
	var due []dueCard
	var fresh []string

	for _, c := range pool {
		if cfg.Scope != nil && !cfg.Scope.Match(c) {
			continue
		}
		switch {
		case c.State.IsNew():
			fresh = append(fresh, c.ID)
		case c.State.IsDue(now):
			due = append(due, dueCard{id: c.ID, overdue: c.State.overdueBy(now)})
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].overdue != due[j].overdue {
			return due[i].overdue > due[j].overdue
		}
		return due[i].id < due[j].id
	})

	due = due[:capAt(len(due), cfg.MaxReview)]
	fresh = fresh[:capAt(len(fresh), cfg.MaxNew)]

	ids := make([]string, 0, len(due)+len(fresh))
	for _, d := range due {
		ids = append(ids, d.id)
	}
	return append(ids, fresh...)
}

func capAt(n, limit int) int {
	if limit == Unbounded || limit > n {
		return n
	}
	if limit < 0 {
		return 0
	}
	return limit
}

// Forecast returns how many cards fall due on each of the next days,
// starting with today. Index 0 also counts everything already overdue.
func Forecast(pool []Candidate, now time.Time, days int) []int {
	if days <= 0 {
		return nil
	}
	counts := make([]int, days)
	today := startOfDay(now)
	for _, c := range pool {
		if c.State.IsNew() {
			continue
		}
		day := 0
		if c.State.NextReviewAt != nil {
			day = int(startOfDay(c.State.NextReviewAt.In(now.Location())).Sub(today).Hours() / 24)
		}
		if day < 0 {
			day = 0
		}
		if day < days {
			counts[day]++
		}
	}
	return counts
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
