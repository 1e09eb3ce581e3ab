package constellation

import (
	"errors"
	"math"
	"strings"
	"testing"

	"tachyon/constellation/internal/placement"
)

func descriptor(model string, plan PlanType, score float64) ScenarioDescriptor {
	return ScenarioDescriptor{
		Name:            model + " plan",
		Title:           "Balanced " + string(plan) + " option",
		Description:     "Fits the monthly budget.",
		PlanType:        plan,
		DownPayment:     3000,
		MonthlyPayment:  389,
		TermMonths:      60,
		InterestRate:    5.9,
		PositivityScore: score,
		Recommendations: "Keep an emergency fund.",
		SuggestedModel:  model,
	}
}

func threeRoots() []ScenarioDescriptor {
	return []ScenarioDescriptor{
		descriptor("Camry", PlanFinance, 85),
		descriptor("RAV4", PlanLease, 65),
		descriptor("Corolla", PlanFinance, 40),
	}
}

// draft builds a child draft placed at an arbitrary offset from its parent
func draft(parent Node, i int) Node {
	n := FromDescriptor(descriptor("Child", PlanFinance, 70))
	n.Position = parent.Position.Add(placement.Vec3{X: 50 * float64(i+1)})
	return n
}

func newStore(t *testing.T) (*Store, []Node) {
	t.Helper()
	s := NewStore(placement.DefaultLayout())
	roots, err := s.LoadRoots(threeRoots())
	if err != nil {
		t.Fatalf("LoadRoots: %v", err)
	}
	return s, roots
}

func TestLoadRoots(t *testing.T) {
	s, roots := newStore(t)
	if len(roots) != 3 || s.Len() != 3 {
		t.Fatalf("expected 3 roots, got %d (store len %d)", len(roots), s.Len())
	}
	for i, r := range roots {
		if r.ID != i+1 {
			t.Errorf("root %d: id=%d, want %d", i, r.ID, i+1)
		}
		if r.Level != 0 || r.BranchType != BranchRoot || r.ParentID != nil {
			t.Errorf("root %d: level=%d branch=%s parent=%v", i, r.Level, r.BranchType, r.ParentID)
		}
		if math.Abs(r.Position.HorizontalDist()-120) > 1e-9 {
			t.Errorf("root %d not on the ring: %v", i, r.Position)
		}
	}
	if roots[0].Affordability != AffordabilityExcellent || roots[1].Affordability != AffordabilityGood || roots[2].Affordability != AffordabilityStretch {
		t.Errorf("affordability grades wrong: %s %s %s", roots[0].Affordability, roots[1].Affordability, roots[2].Affordability)
	}
	if roots[1].Color != "#10B981" || roots[0].Color != "#4A90E2" {
		t.Errorf("colors wrong: %s %s", roots[0].Color, roots[1].Color)
	}
	if s.Occupied().Len() != 3 {
		t.Errorf("occupied index should hold the 3 roots, got %d", s.Occupied().Len())
	}
}

func TestLoadRoots_EmptyFails(t *testing.T) {
	s, _ := newStore(t)
	if _, err := s.LoadRoots(nil); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
	if s.Len() != 3 {
		t.Errorf("failed load must not clear the tree, len=%d", s.Len())
	}
}

func TestLoadRoots_ReplacesTree(t *testing.T) {
	s, roots := newStore(t)
	if _, err := s.MarkExpanded(roots[0].ID, []Node{draft(roots[0], 0)}); err != nil {
		t.Fatal(err)
	}
	again, err := s.LoadRoots(threeRoots()[:2])
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 || again[0].ID != 1 {
		t.Errorf("reload should start fresh: len=%d first id=%d", s.Len(), again[0].ID)
	}
}

func TestGet_NotFound(t *testing.T) {
	s, _ := newStore(t)
	if _, err := s.Get(99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	s, roots := newStore(t)
	n, _ := s.Get(roots[0].ID)
	n.Label = "mutated"
	n.IsExpanded = true
	again, _ := s.Get(roots[0].ID)
	if again.Label == "mutated" || again.IsExpanded {
		t.Error("Get must return a copy")
	}
}

func TestMarkExpanded_AssignsTreeFields(t *testing.T) {
	s, roots := newStore(t)
	parent := roots[1]
	children, err := s.MarkExpanded(parent.ID, []Node{draft(parent, 0), draft(parent, 1), draft(parent, 2)})
	if err != nil {
		t.Fatalf("MarkExpanded: %v", err)
	}
	if len(children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(children))
	}
	for i, c := range children {
		if c.ID != 4+i {
			t.Errorf("child %d id=%d, want %d", i, c.ID, 4+i)
		}
		if c.ParentID == nil || *c.ParentID != parent.ID {
			t.Errorf("child %d parent=%v, want %d", i, c.ParentID, parent.ID)
		}
		if c.Level != 1 || c.BranchType != BranchFinancing {
			t.Errorf("child %d level=%d branch=%s", i, c.Level, c.BranchType)
		}
	}
	got, _ := s.Get(parent.ID)
	if !got.IsExpanded {
		t.Error("parent should be expanded")
	}
	if len(got.Children) != 3 || got.Children[0] != 4 {
		t.Errorf("parent children = %v", got.Children)
	}
	kids, err := s.Children(parent.ID)
	if err != nil || len(kids) != 3 {
		t.Errorf("Children() = %d, %v", len(kids), err)
	}
	if s.Occupied().Len() != 6 {
		t.Errorf("occupied should include children, got %d", s.Occupied().Len())
	}
}

func TestMarkExpanded_Idempotence(t *testing.T) {
	s, roots := newStore(t)
	if _, err := s.MarkExpanded(roots[0].ID, []Node{draft(roots[0], 0), draft(roots[0], 1)}); err != nil {
		t.Fatal(err)
	}
	count := s.Len()
	_, err := s.MarkExpanded(roots[0].ID, []Node{draft(roots[0], 2)})
	if !errors.Is(err, ErrAlreadyExpanded) {
		t.Fatalf("second expansion: expected ErrAlreadyExpanded, got %v", err)
	}
	if s.Len() != count {
		t.Errorf("node count changed after rejected expansion: %d -> %d", count, s.Len())
	}
}

func TestMarkExpanded_Rejections(t *testing.T) {
	s, roots := newStore(t)
	if _, err := s.MarkExpanded(42, []Node{draft(roots[0], 0)}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown parent: expected ErrNotFound, got %v", err)
	}
	if _, err := s.MarkExpanded(roots[0].ID, nil); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("no children: expected ErrEmptyBatch, got %v", err)
	}
	n, _ := s.Get(roots[0].ID)
	if n.IsExpanded || s.Len() != 3 {
		t.Error("rejected expansions must leave the store untouched")
	}
}

func TestMarkExpanded_DepthBound(t *testing.T) {
	s, roots := newStore(t)
	current := roots[0]
	for level := 1; level <= MaxLevel; level++ {
		kids, err := s.MarkExpanded(current.ID, []Node{draft(current, 0)})
		if err != nil {
			t.Fatalf("expansion to level %d failed: %v", level, err)
		}
		if kids[0].Level != level {
			t.Fatalf("child level %d, want %d", kids[0].Level, level)
		}
		want, _ := BranchFor(level)
		if kids[0].BranchType != want {
			t.Errorf("level %d branch %s, want %s", level, kids[0].BranchType, want)
		}
		current = kids[0]
	}
	if current.Level != 10 || current.BranchType != BranchAlternatives {
		t.Fatalf("deepest node: level=%d branch=%s", current.Level, current.BranchType)
	}
	if current.CanExpand() {
		t.Error("a level-10 node should not be expandable")
	}
	count := s.Len()
	if _, err := s.MarkExpanded(current.ID, []Node{draft(current, 0)}); !errors.Is(err, ErrDepthExceeded) {
		t.Fatalf("11th expansion: expected ErrDepthExceeded, got %v", err)
	}
	if s.Len() != count {
		t.Error("depth rejection must not insert nodes")
	}
}

func TestReset(t *testing.T) {
	s, roots := newStore(t)
	_, _ = s.MarkExpanded(roots[0].ID, []Node{draft(roots[0], 0)})
	s.Reset()
	if s.Len() != 0 || s.Occupied().Len() != 0 {
		t.Errorf("reset left %d nodes and %d positions", s.Len(), s.Occupied().Len())
	}
	again, _ := s.LoadRoots(threeRoots())
	if again[0].ID != 1 {
		t.Errorf("ids should restart at 1 after reset, got %d", again[0].ID)
	}
}

func TestMarkExpandedAt_Generation(t *testing.T) {
	s, roots := newStore(t)
	parent, gen, err := s.Lookup(roots[0].ID)
	if err != nil || gen != s.Generation() {
		t.Fatalf("Lookup: gen=%d current=%d err=%v", gen, s.Generation(), err)
	}

	tests := []struct {
		name    string
		replace func()
	}{
		{"reset", s.Reset},
		{"reload", func() { _, _ = s.LoadRoots(threeRoots()) }},
		{"restore", func() { _ = s.Restore(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.LoadRoots(threeRoots()); err != nil {
				t.Fatal(err)
			}
			parent, gen, _ = s.Lookup(1)
			tt.replace()
			if _, err := s.MarkExpandedAt(gen, parent.ID, []Node{draft(parent, 0)}); !errors.Is(err, ErrStaleSession) {
				t.Errorf("expected ErrStaleSession, got %v", err)
			}
		})
	}

	if _, err := s.LoadRoots(threeRoots()); err != nil {
		t.Fatal(err)
	}
	parent, gen, _ = s.Lookup(1)
	kids, err := s.MarkExpandedAt(gen, parent.ID, []Node{draft(parent, 0)})
	if err != nil || len(kids) != 1 {
		t.Errorf("current generation rejected: %v", err)
	}
}

func TestOccupied_IsSnapshot(t *testing.T) {
	s, _ := newStore(t)
	snap := s.Occupied()
	snap.Insert(placement.Vec3{X: 1})
	if s.Occupied().Len() != 3 {
		t.Error("mutating the snapshot must not touch the store index")
	}
}

func TestRestore_RoundTrip(t *testing.T) {
	s, roots := newStore(t)
	kids, _ := s.MarkExpanded(roots[2].ID, []Node{draft(roots[2], 0), draft(roots[2], 1)})
	_, _ = s.MarkExpanded(kids[1].ID, []Node{draft(kids[1], 0)})
	saved := s.Nodes()

	fresh := NewStore(placement.DefaultLayout())
	if err := fresh.Restore(saved); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if fresh.Len() != len(saved) {
		t.Fatalf("restored %d nodes, want %d", fresh.Len(), len(saved))
	}
	p, _ := fresh.Get(roots[2].ID)
	if !p.IsExpanded || len(p.Children) != 2 {
		t.Errorf("restored parent: expanded=%v children=%v", p.IsExpanded, p.Children)
	}
	next, err := fresh.MarkExpanded(roots[0].ID, []Node{draft(roots[0], 0)})
	if err != nil {
		t.Fatal(err)
	}
	if next[0].ID != len(saved)+1 {
		t.Errorf("id counter after restore: got %d, want %d", next[0].ID, len(saved)+1)
	}
	if len(fresh.Roots()) != 3 {
		t.Errorf("Roots() = %d, want 3", len(fresh.Roots()))
	}
}

func TestRestore_Invalid(t *testing.T) {
	missing := 77
	tests := []struct {
		name  string
		nodes []Node
	}{
		{"zero id", []Node{{ID: 0}}},
		{"duplicate id", []Node{{ID: 1}, {ID: 1}}},
		{"missing parent", []Node{{ID: 1}, {ID: 2, ParentID: &missing, Level: 1}}},
		{"root with level", []Node{{ID: 1, Level: 2}}},
		{"level skip", []Node{{ID: 1}, {ID: 2, ParentID: intPtr(1), Level: 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newStore(t)
			if err := s.Restore(tt.nodes); !errors.Is(err, ErrInvalidSnapshot) {
				t.Errorf("expected ErrInvalidSnapshot, got %v", err)
			}
			if s.Len() != 3 {
				t.Error("failed restore must keep the previous tree")
			}
		})
	}
}

func intPtr(v int) *int { return &v }

func TestBranchFor(t *testing.T) {
	want := []BranchType{
		BranchRoot, BranchFinancing, BranchTrimLevels, BranchAddOns, BranchInsurance,
		BranchMaintenance, BranchTradeIn, BranchLeaseVsBuy, BranchRefinancing,
		BranchEarlyPayoff, BranchAlternatives,
	}
	for level, w := range want {
		got, err := BranchFor(level)
		if err != nil || got != w {
			t.Errorf("BranchFor(%d) = %s, %v; want %s", level, got, err, w)
		}
	}
	for _, bad := range []int{-1, 11, 25} {
		if _, err := BranchFor(bad); !errors.Is(err, ErrDepthExceeded) {
			t.Errorf("BranchFor(%d): expected ErrDepthExceeded, got %v", bad, err)
		}
	}
	if BranchTradeIn.DisplayName() != "Trade-In Scenarios" {
		t.Errorf("display name = %q", BranchTradeIn.DisplayName())
	}
}

func TestFromDescriptor(t *testing.T) {
	d := descriptor("Highlander", PlanLease, 92)
	n := FromDescriptor(d)
	if n.Label != "Highlander" || n.PlanType != PlanLease || n.Color != "#10B981" {
		t.Errorf("unexpected node: %+v", n)
	}
	if n.Size != 6+0.92*6 {
		t.Errorf("size = %v", n.Size)
	}
	if n.PriceRange != "$389/mo for 60 months" {
		t.Errorf("price range = %q", n.PriceRange)
	}
	if !strings.HasPrefix(n.Narrative, d.Title+"\n\n"+d.Description) || !strings.HasSuffix(n.Narrative, "💡 "+d.Recommendations) {
		t.Errorf("narrative = %q", n.Narrative)
	}

	blank := FromDescriptor(ScenarioDescriptor{PositivityScore: 150})
	if blank.Label != "Toyota Vehicle" || blank.PlanType != PlanFinance || blank.SizeScore != 100 {
		t.Errorf("defaults not applied: %+v", blank)
	}
	named := FromDescriptor(ScenarioDescriptor{Name: "Standard Plan", PlanType: PlanFinance})
	if named.Label != "Standard Plan" {
		t.Errorf("label should fall back to name, got %q", named.Label)
	}
}

func TestAffordabilityFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Affordability
	}{
		{100, AffordabilityExcellent},
		{80, AffordabilityExcellent},
		{79.9, AffordabilityGood},
		{60, AffordabilityGood},
		{59.99, AffordabilityStretch},
		{0, AffordabilityStretch},
	}
	for _, tt := range tests {
		if got := AffordabilityFor(tt.score); got != tt.want {
			t.Errorf("AffordabilityFor(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestDescriptorValidate(t *testing.T) {
	ok := descriptor("Prius", PlanFinance, 50)
	if err := ok.Validate(); err != nil {
		t.Errorf("valid descriptor rejected: %v", err)
	}
	bad := []ScenarioDescriptor{
		{PlanType: "rent", PositivityScore: 50},
		{PlanType: PlanLease, PositivityScore: 101},
		{PlanType: PlanLease, PositivityScore: -1},
		{PlanType: PlanLease, MonthlyPayment: -10},
		{PlanType: PlanFinance, TermMonths: -1},
	}
	for i, d := range bad {
		if err := d.Validate(); err == nil {
			t.Errorf("descriptor %d should be rejected: %+v", i, d)
		}
	}
}

func TestDetails(t *testing.T) {
	_, roots := newStore(t)
	text := Details(roots[0])
	for _, want := range []string{"🚗 Camry", "Down Payment: $3,000", "Monthly Payment: $389", "Term: 60 months (5 years)", "Interest Rate: 5.90%", "🏦 Financing", "Match Score: 85/100", "Expert Recommendation"} {
		if !strings.Contains(text, want) {
			t.Errorf("details missing %q:\n%s", want, text)
		}
	}

	n := roots[1]
	n.Financing = &FinancingDetail{PlanName: "Short Term", DownPayment: 3600, LoanTermMonths: 36, InterestRatePct: 4, TotalCost: 25282, Outcome: "Save $1,873 over standard plan"}
	text = Details(n)
	for _, want := range []string{"Total Cost: $25,282", "Save $1,873", "Interest Rate: 4%", "📄 Lease"} {
		if !strings.Contains(text, want) {
			t.Errorf("financing details missing %q:\n%s", want, text)
		}
	}
}
