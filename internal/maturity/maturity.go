// Package maturity defines the agent trust ladder and the action policy table.
package maturity

import "fmt"

// Level is an agent's trust tier. Levels are ordered: an agent climbs the
// ladder one level at a time and may only perform actions whose complexity
// the policy table permits for its current level.
type Level string

const (
	Student    Level = "student"
	Intern     Level = "intern"
	Supervised Level = "supervised"
	Autonomous Level = "autonomous"
)

// Ladder lists all levels in promotion order.
var Ladder = []Level{Student, Intern, Supervised, Autonomous}

var levelRank = map[Level]int{
	Student:    0,
	Intern:     1,
	Supervised: 2,
	Autonomous: 3,
}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// Rank returns the level's position on the ladder, 0 for Student.
// Unknown levels rank below Student.
func (l Level) Rank() int {
	if r, ok := levelRank[l]; ok {
		return r
	}
	return -1
}

// Next returns the level one step up the ladder, or the same level
// when already at the top.
func (l Level) Next() Level {
	r := l.Rank()
	if r < 0 || r >= len(Ladder)-1 {
		return l
	}
	return Ladder[r+1]
}

// ParseLevel converts a stored string into a Level.
func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown maturity level: %q", s)
	}
	return l, nil
}

// Complexity classifies how consequential an action is.
type Complexity int

const (
	ComplexityLow      Complexity = 1
	ComplexityModerate Complexity = 2
	ComplexityHigh     Complexity = 3
)

// Valid reports whether c is one of the defined complexity values.
func (c Complexity) Valid() bool {
	return c >= ComplexityLow && c <= ComplexityHigh
}

// PolicyTable maps each maturity level to the action complexity it may
// perform, plus levels whose high-complexity actions need a human sign-off.
// Supplied by configuration; the zero value permits nothing.
type PolicyTable struct {
	// MaxComplexity is the highest complexity each level may perform.
	MaxComplexity map[Level]Complexity
	// ApprovalRequired marks levels that may perform ComplexityHigh
	// only after interactive human approval.
	ApprovalRequired map[Level]bool
}

// DefaultPolicyTable returns the stock ladder policy: students handle
// low-complexity actions only, interns add moderate, supervised and
// autonomous agents add high, with supervised agents gated behind approval.
func DefaultPolicyTable() PolicyTable {
	return PolicyTable{
		MaxComplexity: map[Level]Complexity{
			Student:    ComplexityLow,
			Intern:     ComplexityModerate,
			Supervised: ComplexityHigh,
			Autonomous: ComplexityHigh,
		},
		ApprovalRequired: map[Level]bool{
			Supervised: true,
		},
	}
}

// Permits reports whether an agent at level l may perform an action of
// complexity c without approval. needsApproval is set when the action is
// within reach but gated behind a human sign-off.
func (t PolicyTable) Permits(l Level, c Complexity) (allowed, needsApproval bool) {
	max, ok := t.MaxComplexity[l]
	if !ok || c > max {
		return false, false
	}
	if c == ComplexityHigh && t.ApprovalRequired[l] {
		return false, true
	}
	return true, false
}
