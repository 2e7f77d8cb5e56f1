package checkers

import (
	"fmt"

	"github.com/neuralogix/core/pkg/ir"
)

// AntiTautologyChecker enforces the separation-of-duties rule: tests authored
// by the proposer cannot be the only verifier of their own code.
//
// For every Code node with at least one passing execution result, at least
// one passing result must come from a Test with origin "system". If every
// passing result is proposer-authored (or of unknown origin), the code is
// self-certified and the checker HARD_FAILs.
type AntiTautologyChecker struct{}

// NewAntiTautologyChecker creates an AntiTautologyChecker.
func NewAntiTautologyChecker() *AntiTautologyChecker { return &AntiTautologyChecker{} }

func (*AntiTautologyChecker) Name() string { return "AntiTautologyChecker" }

func (c *AntiTautologyChecker) Check(g *ir.Graph) Report {
	var issues []Issue

	for _, codeID := range g.NodeIDs() {
		node, err := g.GetNode(codeID)
		if err != nil || node.Type != ir.NodeCode {
			continue
		}

		// Tests verifying this code: TEST --verifies--> CODE.
		var verifyingTests []string
		for _, edge := range g.FindEdges(ir.EdgeFilter{Type: ir.EdgeVerifies, Target: codeID}) {
			verifyingTests = append(verifyingTests, edge.Source)
		}
		if len(verifyingTests) == 0 {
			continue
		}

		// Passing results for those tests: EXECUTION_RESULT --results_from--> TEST.
		type passing struct {
			testID string
			origin string
		}
		var passingResults []passing
		for _, testID := range verifyingTests {
			for _, edge := range g.FindEdges(ir.EdgeFilter{Type: ir.EdgeResultsFrom, Target: testID}) {
				resNode, err := g.GetNode(edge.Source)
				if err != nil {
					continue
				}
				if valueField(resNode.Value, "status") != "PASS" {
					continue
				}
				origin := "unknown"
				if testNode, err := g.GetNode(testID); err == nil {
					if o := valueField(testNode.Value, "origin"); o != "" {
						origin = o
					}
				}
				passingResults = append(passingResults, passing{testID: testID, origin: origin})
			}
		}

		// Unproven code is not self-certified, just unproven.
		if len(passingResults) == 0 {
			continue
		}

		hasSystemProof := false
		for _, r := range passingResults {
			if r.origin == "system" {
				hasSystemProof = true
				break
			}
		}
		if hasSystemProof {
			continue
		}

		testIDs := make([]string, 0, len(passingResults))
		origins := make([]string, 0, len(passingResults))
		for _, r := range passingResults {
			testIDs = append(testIDs, r.testID)
			origins = append(origins, r.origin)
		}

		issues = append(issues, Issue{
			Code: "TAUTOLOGY_DETECTED",
			Message: fmt.Sprintf(
				"Code %q verified ONLY by proposer-authored tests; self-certification detected. "+
					"Must include at least one independent verifier signal (origin=\"system\").", codeID),
			Status:  StatusHardFail,
			NodeIDs: append([]string{codeID}, testIDs...),
			Details: map[string]any{
				"code_id":       codeID,
				"passing_tests": testIDs,
				"origins":       origins,
			},
		})
	}

	return reportFor(c.Name(), issues)
}

func valueField(value any, key string) string {
	dict, ok := value.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := dict[key].(string)
	return s
}
