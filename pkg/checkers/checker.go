// Package checkers implements the pluggable validator framework: checkers
// inspect a graph read-only and produce severity-leveled reports, which the
// suite folds into an overall status with worst-wins precedence.
package checkers

import (
	"github.com/neuralogix/core/pkg/ir"
)

// Status is the outcome severity of a checker run.
// Precedence (worst wins): HARD_FAIL > ABSTAIN > SOFT_FAIL > OK.
type Status string

const (
	StatusOK       Status = "OK"
	StatusSoftFail Status = "SOFT_FAIL"
	StatusHardFail Status = "HARD_FAIL"
	StatusAbstain  Status = "ABSTAIN"
)

var severity = map[Status]int{
	StatusOK:       0,
	StatusSoftFail: 1,
	StatusAbstain:  2,
	StatusHardFail: 3,
}

// Worse returns the more severe of two statuses.
func Worse(a, b Status) Status {
	if severity[b] > severity[a] {
		return b
	}
	return a
}

// Issue is a single finding from a checker.
type Issue struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  Status         `json:"status"`
	NodeIDs []string       `json:"node_ids"`
	EdgeIDs []string       `json:"edge_ids"`
	Details map[string]any `json:"details"`
}

// Report aggregates the issues from one checker plus its overall status.
type Report struct {
	Checker string  `json:"checker"`
	Status  Status  `json:"status"`
	Issues  []Issue `json:"issues"`
}

// Checker validates a graph. Implementations must treat the graph as
// read-only.
type Checker interface {
	Name() string
	Check(g *ir.Graph) Report
}

// Combine folds checker reports into the overall status. An empty report set
// is OK.
func Combine(reports []Report) Status {
	overall := StatusOK
	for _, r := range reports {
		overall = Worse(overall, r.Status)
	}
	return overall
}

// Suite runs a fixed set of checkers over a graph.
type Suite struct {
	checkers []Checker
}

// NewSuite creates a suite running the given checkers in order.
func NewSuite(checkers ...Checker) *Suite {
	return &Suite{checkers: checkers}
}

// DefaultSuite returns the structural baseline: type constraints plus global
// consistency invariants.
func DefaultSuite() *Suite {
	return NewSuite(NewTypeChecker(), NewConsistencyChecker())
}

// Validate runs every checker and returns the combined status alongside the
// individual reports.
func (s *Suite) Validate(g *ir.Graph) (Status, []Report) {
	reports := make([]Report, 0, len(s.checkers))
	for _, c := range s.checkers {
		reports = append(reports, c.Check(g))
	}
	return Combine(reports), reports
}

// Len returns the number of registered checkers.
func (s *Suite) Len() int { return len(s.checkers) }

// reportFor computes a checker report whose status is the worst issue status,
// or OK when no issues were found.
func reportFor(name string, issues []Issue) Report {
	status := StatusOK
	for _, issue := range issues {
		status = Worse(status, issue.Status)
	}
	return Report{Checker: name, Status: status, Issues: issues}
}
