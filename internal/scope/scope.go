// Package scope compiles CEL expressions into queue scope filters.
//
// Expressions see one card at a time through these variables:
//
//	id           string  card id
//	application  string  owning application id ("" when unscoped)
//	kind         string  flashcard, answer or story
//	level        string  mastery level: new, learning, reviewing, mastered
//	reps         int     consecutive passing reviews
//	ef           double  easiness factor (0 for new cards)
//	due          bool    whether the card is due now
//	overdue_days double  days past the review date (0 when not due)
//
// Example: application == "acme" && kind != "flashcard" && level != "mastered".
package scope

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/abhisek/rehearse/internal/mastery"
	"github.com/abhisek/rehearse/internal/spacedrep"
)

// ErrInvalidExpression is returned for expressions that fail to parse,
// type-check or yield a boolean.
var ErrInvalidExpression = errors.New("scope: invalid expression")

// Filter is a compiled scope expression. It implements spacedrep.ScopeFilter.
type Filter struct {
	expr    string
	program cel.Program
	policy  mastery.Policy
	now     time.Time
}

var _ spacedrep.ScopeFilter = (*Filter)(nil)

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("application", cel.StringType),
		cel.Variable("kind", cel.StringType),
		cel.Variable("level", cel.StringType),
		cel.Variable("reps", cel.IntType),
		cel.Variable("ef", cel.DoubleType),
		cel.Variable("due", cel.BoolType),
		cel.Variable("overdue_days", cel.DoubleType),
		cel.CrossTypeNumericComparisons(true),
	)
}

// Compile parses and type-checks expr. Levels are derived with policy and
// due-ness is evaluated at now.
func Compile(expr string, policy mastery.Policy, now time.Time) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidExpression)
	}

	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("build cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: %q yields %s, want bool", ErrInvalidExpression, expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	return &Filter{expr: expr, program: prg, policy: policy, now: now}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.expr
}

// Match evaluates the expression for one candidate. Evaluation errors count
// as no match.
func (f *Filter) Match(c spacedrep.Candidate) bool {
	ok, err := f.Eval(c)
	return err == nil && ok
}

// Eval evaluates the expression for one candidate.
func (f *Filter) Eval(c spacedrep.Candidate) (bool, error) {
	out, _, err := f.program.Eval(f.vars(c))
	if err != nil {
		return false, fmt.Errorf("evaluate %q for %s: %w", f.expr, c.ID, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q yields %T", ErrInvalidExpression, f.expr, out.Value())
	}
	return b, nil
}

func (f *Filter) vars(c spacedrep.Candidate) map[string]any {
	var (
		reps int64
		ef   float64
	)
	if c.State != nil {
		reps = int64(c.State.RepetitionCount)
		ef = c.State.EasinessFactor
	}
	return map[string]any{
		"id":           c.ID,
		"application":  c.Scope,
		"kind":         c.Kind,
		"level":        string(f.policy.Classify(c.State)),
		"reps":         reps,
		"ef":           ef,
		"due":          c.State.IsDue(f.now),
		"overdue_days": c.State.OverdueDays(f.now),
	}
}
