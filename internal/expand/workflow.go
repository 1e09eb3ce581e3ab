package expand

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"

	"tachyon/constellation/internal/backend"
	"tachyon/constellation/internal/constellation"
	"tachyon/constellation/internal/financing"
	"tachyon/constellation/internal/placement"
)

// ErrInFlight is returned when a node is already being expanded.
// The second request is rejected, not queued.
var ErrInFlight = errors.New("expansion already in progress")

// ScenarioSource produces child scenarios for a parent. *backend.Client implements it.
type ScenarioSource interface {
	ExpandNode(ctx context.Context, req backend.ExpandRequest) (backend.ExpandResponse, error)
}

// PlanTypePolicy decides which plan type a generated child carries
type PlanTypePolicy string

const (
	// InheritParent gives every child the parent's plan type and colour
	InheritParent PlanTypePolicy = "inherit_parent"
	// FromDescriptor keeps the plan type each child scenario came back with
	FromDescriptor PlanTypePolicy = "from_descriptor"
)

// Valid reports whether p is one of the known policies
func (p PlanTypePolicy) Valid() bool { return p == InheritParent || p == FromDescriptor }

// Options configures a Workflow; zero fields fall back to defaults
type Options struct {
	Policy PlanTypePolicy
	// Defaults fills fields missing from the profile passed to Expand
	Defaults financing.Profile
	Plans    []financing.Plan
	// Rand drives placement jitter; nil seeds from the clock
	Rand *rand.Rand
	Log  *slog.Logger
}

// Workflow turns a selected node into a placed, stored batch of children
type Workflow struct {
	store    *constellation.Store
	source   ScenarioSource
	policy   PlanTypePolicy
	defaults financing.Profile
	plans    []financing.Plan
	log      *slog.Logger

	// commit serializes snapshot → place → MarkExpanded so concurrent batches
	// always see each other's positions
	commit sync.Mutex

	mu       sync.Mutex
	rng      *rand.Rand
	inFlight map[int]struct{}
}

// New creates a Workflow over store. A nil source limits it to ExpandFinancing.
func New(store *constellation.Store, source ScenarioSource, opts Options) *Workflow {
	w := &Workflow{
		store:    store,
		source:   source,
		policy:   opts.Policy,
		defaults: opts.Defaults,
		plans:    opts.Plans,
		log:      opts.Log,
		rng:      opts.Rand,
		inFlight: make(map[int]struct{}),
	}
	if !w.policy.Valid() {
		w.policy = InheritParent
	}
	if len(w.plans) == 0 {
		w.plans = financing.DefaultPlans()
	}
	if w.rng == nil {
		w.rng = placement.NewTimeRand()
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	return w
}

// Expand asks the scenario source for the next level below id and attaches the
// result. On any error the store is left as it was.
func (w *Workflow) Expand(ctx context.Context, id int, profile financing.Profile) ([]constellation.Node, error) {
	parent, gen, level, err := w.check(id)
	if err != nil {
		return nil, err
	}
	if err := w.begin(id); err != nil {
		return nil, err
	}
	defer w.end(id)

	if w.source == nil {
		return nil, &backend.Error{Kind: backend.KindUnavailable, Op: "expand node", Body: "no scenario source configured"}
	}

	branch, _ := constellation.BranchFor(level)
	w.log.Info("expanding node", "id", id, "label", parent.Label, "level", level, "branch", branch.DisplayName())

	resp, err := w.source.ExpandNode(ctx, backend.ExpandRequest{
		ParentScenario: parent.Scenario,
		UserProfile:    profile.Merge(w.defaults),
		BranchLevel:    level,
	})
	if err != nil {
		return nil, fmt.Errorf("expanding node %d: %w", id, err)
	}
	if len(resp.Children) == 0 {
		return nil, &backend.Error{Kind: backend.KindMalformed, Op: "expand node", Body: "response contains no children"}
	}

	drafts := make([]constellation.Node, 0, len(resp.Children))
	for i, d := range resp.Children {
		if err := d.Validate(); err != nil {
			return nil, &backend.Error{Kind: backend.KindMalformed, Op: "expand node", Body: fmt.Sprintf("child %d: %v", i, err)}
		}
		child := constellation.FromDescriptor(d)
		if w.policy == InheritParent {
			child.PlanType = parent.PlanType
			child.Color = constellation.ColorFor(parent.PlanType)
		}
		drafts = append(drafts, child)
	}
	return w.attach(parent, gen, drafts)
}

// ExpandFinancing attaches the five financing-plan variants of a node without
// calling the scenario source. The base price is derived from the node's payment.
func (w *Workflow) ExpandFinancing(id int) ([]constellation.Node, error) {
	parent, gen, _, err := w.check(id)
	if err != nil {
		return nil, err
	}
	if err := w.begin(id); err != nil {
		return nil, err
	}
	defer w.end(id)

	scenarios, err := financing.Scenarios(financing.BasePrice(parent.MonthlyPayment), w.plans)
	if err != nil {
		return nil, fmt.Errorf("financing plans for node %d: %w", id, err)
	}
	drafts := make([]constellation.Node, 0, len(scenarios))
	for _, s := range scenarios {
		drafts = append(drafts, planNode(parent, s))
	}
	return w.attach(parent, gen, drafts)
}

func planNode(parent constellation.Node, s financing.Scenario) constellation.Node {
	afford := constellation.Affordability(s.Affordability)
	monthly := math.Round(s.MonthlyPayment)
	label := parent.Label + " - " + s.Plan.Name
	return constellation.Node{
		Label:          label,
		SizeScore:      planScore(afford),
		Size:           6,
		MonthlyPayment: monthly,
		PlanType:       constellation.PlanFinance,
		Color:          constellation.ColorForAffordability(afford),
		Affordability:  afford,
		PriceRange:     fmt.Sprintf("%s/mo for %d months", financing.Dollars(monthly), s.Plan.TermMonths),
		Narrative:      s.Outcome,
		TermMonths:     s.Plan.TermMonths,
		Scenario: constellation.ScenarioDescriptor{
			Name:            s.Plan.Name,
			Title:           label,
			Description:     s.Outcome,
			PlanType:        constellation.PlanFinance,
			DownPayment:     math.Round(s.DownPayment),
			MonthlyPayment:  monthly,
			TermMonths:      s.Plan.TermMonths,
			InterestRate:    s.Plan.InterestRate,
			PositivityScore: planScore(afford),
			SuggestedModel:  parent.Scenario.SuggestedModel,
		},
		Financing: &constellation.FinancingDetail{
			PlanName:        s.Plan.Name,
			DownPayment:     math.Round(s.DownPayment),
			LoanTermMonths:  s.Plan.TermMonths,
			InterestRatePct: s.Plan.InterestRate,
			TotalCost:       math.Round(s.TotalCost),
			SavingsVsBase:   math.Round(s.SavingsVsBase),
			Outcome:         s.Outcome,
		},
	}
}

func planScore(a constellation.Affordability) float64 {
	switch a {
	case constellation.AffordabilityExcellent:
		return 90
	case constellation.AffordabilityGood:
		return 70
	default:
		return 45
	}
}

// check runs the preconditions shared by both expansion paths and returns the
// parent, the store generation it was read at and the level its children would get
func (w *Workflow) check(id int) (constellation.Node, uint64, int, error) {
	parent, gen, err := w.store.Lookup(id)
	if err != nil {
		return constellation.Node{}, 0, 0, err
	}
	if parent.IsExpanded {
		return constellation.Node{}, 0, 0, fmt.Errorf("%w: %d", constellation.ErrAlreadyExpanded, id)
	}
	level := parent.Level + 1
	if _, err := constellation.BranchFor(level); err != nil {
		return constellation.Node{}, 0, 0, err
	}
	return parent, gen, level, nil
}

// attach places drafts around parent and commits them, unless the tree was
// replaced after gen
func (w *Workflow) attach(parent constellation.Node, gen uint64, drafts []constellation.Node) ([]constellation.Node, error) {
	w.commit.Lock()
	defer w.commit.Unlock()

	occupied := w.store.Occupied()
	w.mu.Lock()
	spots := placement.Children(parent.Position, len(drafts), occupied, w.rng, w.store.Layout())
	w.mu.Unlock()

	crowded := 0
	for i := range drafts {
		drafts[i].Position = spots[i].Pos
		drafts[i].Crowded = spots[i].Exhausted
		if spots[i].Exhausted {
			crowded++
		}
	}
	children, err := w.store.MarkExpandedAt(gen, parent.ID, drafts)
	if err != nil {
		if errors.Is(err, constellation.ErrStaleSession) {
			w.log.Warn("dropping expansion for a replaced constellation", "id", parent.ID, "label", parent.Label)
		}
		return nil, err
	}
	w.log.Info("node expanded", "id", parent.ID, "children", len(children), "crowded", crowded)
	return children, nil
}

func (w *Workflow) begin(id int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.inFlight[id]; busy {
		return fmt.Errorf("%w: node %d", ErrInFlight, id)
	}
	w.inFlight[id] = struct{}{}
	return nil
}

func (w *Workflow) end(id int) {
	w.mu.Lock()
	delete(w.inFlight, id)
	w.mu.Unlock()
}
