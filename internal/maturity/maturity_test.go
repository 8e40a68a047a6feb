package maturity

import "testing"

func TestLadderOrder(t *testing.T) {
	if Student.Rank() >= Intern.Rank() || Intern.Rank() >= Supervised.Rank() || Supervised.Rank() >= Autonomous.Rank() {
		t.Fatal("ladder ranks are not strictly increasing")
	}
}

func TestNextStopsAtTop(t *testing.T) {
	if Student.Next() != Intern {
		t.Fatalf("student should promote to intern, got %s", Student.Next())
	}
	if Autonomous.Next() != Autonomous {
		t.Fatalf("autonomous should have no next level, got %s", Autonomous.Next())
	}
}

func TestParseLevelRejectsUnknown(t *testing.T) {
	if _, err := ParseLevel("wizard"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	l, err := ParseLevel("supervised")
	if err != nil {
		t.Fatalf("parse supervised: %v", err)
	}
	if l != Supervised {
		t.Fatalf("unexpected level: %s", l)
	}
}

func TestStudentLowOnly(t *testing.T) {
	tbl := DefaultPolicyTable()
	allowed, _ := tbl.Permits(Student, ComplexityLow)
	if !allowed {
		t.Fatal("student should perform low-complexity actions")
	}
	allowed, _ = tbl.Permits(Student, ComplexityModerate)
	if allowed {
		t.Fatal("student should not perform moderate-complexity actions")
	}
}

func TestSupervisedHighNeedsApproval(t *testing.T) {
	tbl := DefaultPolicyTable()
	allowed, needsApproval := tbl.Permits(Supervised, ComplexityHigh)
	if allowed {
		t.Fatal("supervised high-complexity should not be auto-approved")
	}
	if !needsApproval {
		t.Fatal("supervised high-complexity should request approval")
	}
}

func TestAutonomousHighAllowed(t *testing.T) {
	tbl := DefaultPolicyTable()
	allowed, needsApproval := tbl.Permits(Autonomous, ComplexityHigh)
	if !allowed || needsApproval {
		t.Fatalf("autonomous high-complexity should be allowed outright, got allowed=%v approval=%v", allowed, needsApproval)
	}
}

func TestZeroTablePermitsNothing(t *testing.T) {
	var tbl PolicyTable
	allowed, needsApproval := tbl.Permits(Autonomous, ComplexityLow)
	if allowed || needsApproval {
		t.Fatal("zero policy table should deny everything")
	}
}
