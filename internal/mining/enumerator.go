// Package mining enumerates class association rules from a transaction table
// under item-role constraints: antecedent attributes only on the left-hand
// side, a single target attribute on the right-hand side.
package mining

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/model"
	"github.com/bits-and-blooms/bitset"
	"golang.org/x/sync/errgroup"
)

const epsilon = 1e-9

// Schedule is the AutoSearch relaxation schedule. Every value is supplied by
// the caller; the enumerator has no defaults of its own.
type Schedule struct {
	InitialSupport    float64
	InitialConfidence float64
	ConfidenceStep    float64
	SupportStep       float64
	MinSupport        float64
	MinLength         int
	InitialMaxLength  int
	MaxIterations     int
	Timeout           time.Duration
}

// Iteration describes one AutoSearch round.
type Iteration struct {
	Number     int
	Support    float64
	Confidence float64
	MaxLength  int
	Rules      int
}

// Config drives one enumeration.
type Config struct {
	OnIteration     func(Iteration)
	Schedule        Schedule
	Thresholds      model.Thresholds
	MinRuleLength   int
	TargetRuleCount int
}

// Outcome carries the mined rules and AutoSearch bookkeeping.
type Outcome struct {
	Target          string
	Rules           []model.CandidateRule
	Warnings        []model.Warning
	Final           Iteration
	Iterations      int
	BudgetExhausted bool
}

// Enumerator mines candidate rules restricted to resolved attributes.
type Enumerator interface {
	Enumerate(ctx context.Context, table *model.Table, antecedentAttrs, consequentAttrs []string, cfg Config) (*Outcome, error)
}

// Apriori is a level-wise enumerator. Support counting within a level is
// spread over Workers goroutines; output order does not depend on Workers.
type Apriori struct {
	Workers int
}

// NewApriori creates an enumerator; workers <= 0 means GOMAXPROCS.
func NewApriori(workers int) *Apriori {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Apriori{Workers: workers}
}

// pass holds the thresholds of a single mining pass.
type pass struct {
	lift       *float64
	aad        *float64
	support    float64
	confidence float64
	minLen     int
	maxLen     int
}

// Enumerate implements Enumerator.
func (a *Apriori) Enumerate(ctx context.Context, table *model.Table, antecedentAttrs, consequentAttrs []string, cfg Config) (*Outcome, error) {
	if table == nil || table.Len() == 0 {
		return nil, common.ErrEmptyTable
	}
	if len(consequentAttrs) == 0 {
		return nil, fmt.Errorf("%w: no consequent attribute", common.ErrTaskSpecInvalid)
	}

	out := &Outcome{Target: consequentAttrs[0]}
	if len(consequentAttrs) > 1 {
		out.Warnings = append(out.Warnings, model.Warning{
			Kind:    model.WarnIgnoredConsequent,
			Ref:     out.Target,
			Message: fmt.Sprintf("%d consequent attributes resolved; mining with %q only", len(consequentAttrs), out.Target),
		})
	}
	if !table.HasColumn(out.Target) {
		return nil, fmt.Errorf("%w: %q", common.ErrTargetNotInTable, out.Target)
	}

	inputs := make([]string, 0, len(antecedentAttrs))
	for _, attr := range antecedentAttrs {
		switch {
		case attr == out.Target:
			common.LogDebug("target attribute dropped from antecedent", common.Fields{"attribute": attr})
		case !table.HasColumn(attr):
			out.Warnings = append(out.Warnings, model.Warning{
				Kind:    model.WarnMissingColumn,
				Ref:     attr,
				Message: fmt.Sprintf("antecedent attribute %q is not a column of the table", attr),
			})
		default:
			inputs = append(inputs, attr)
		}
	}

	columns := append(append([]string(nil), inputs...), out.Target)
	ix := NewIndex(table, columns)

	maxAllowed := len(inputs) + 1
	if ml := cfg.Thresholds.MaxRuleLength; ml != nil && *ml < maxAllowed {
		maxAllowed = *ml
	}
	minLen := cfg.MinRuleLength
	if minLen < 1 {
		minLen = 1
	}

	switch cfg.Thresholds.Mode {
	case model.ModeFixed, "":
		p := pass{
			support:    cfg.Thresholds.SupportMin,
			confidence: cfg.Thresholds.ConfidenceMin,
			minLen:     minLen,
			maxLen:     maxAllowed,
			lift:       cfg.Thresholds.LiftMin,
			aad:        cfg.Thresholds.AADMin,
		}
		rules, err := a.mine(ctx, ix, inputs, out.Target, p)
		if err != nil {
			return nil, err
		}
		out.Rules = rules
		out.Iterations = 1
		out.Final = Iteration{Number: 1, Support: p.support, Confidence: p.confidence, MaxLength: p.maxLen, Rules: len(rules)}
	case model.ModeAutoSearch:
		if err := a.autoSearch(ctx, ix, inputs, out, cfg, maxAllowed); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownMiningMode, cfg.Thresholds.Mode)
	}

	common.LogInfo("rule enumeration finished", common.Fields{
		"mode":       string(cfg.Thresholds.Mode),
		"target":     out.Target,
		"rules":      len(out.Rules),
		"iterations": out.Iterations,
	})

	return out, nil
}

// frequent is an antecedent itemset whose support clears the threshold.
type frequent struct {
	rows  *bitset.BitSet
	items []model.Item
}

// mine runs one level-wise pass and returns rules in generation order:
// by antecedent length, then item order, then class value.
func (a *Apriori) mine(ctx context.Context, ix *Index, inputs []string, target string, p pass) ([]model.CandidateRule, error) {
	n := float64(ix.Len())
	classes := ix.Items(target)
	classCount := make([]float64, len(classes))
	for i, c := range classes {
		classCount[i] = float64(ix.Rows(c).Count())
	}

	var rules []model.CandidateRule
	emit := func(f frequent) {
		anteCount := f.rows.Count()
		if anteCount == 0 {
			return
		}
		for ci, class := range classes {
			co := f.rows.IntersectionCardinality(ix.Rows(class))
			support := float64(co) / n
			if co == 0 || support+epsilon < p.support {
				continue
			}
			confidence := float64(co) / float64(anteCount)
			if confidence+epsilon < p.confidence {
				continue
			}
			lift := confidence / (classCount[ci] / n)
			if p.lift != nil && lift+epsilon < *p.lift {
				continue
			}
			if p.aad != nil && lift-1+epsilon < *p.aad {
				continue
			}
			l := lift
			rules = append(rules, model.CandidateRule{
				Antecedent:      append(make([]model.Item, 0, len(f.items)), f.items...),
				Consequent:      class,
				Support:         support,
				Confidence:      confidence,
				Lift:            &l,
				SupportCount:    int(co),
				AntecedentCount: int(anteCount),
			})
		}
	}

	maxAnte := p.maxLen - 1
	if p.minLen <= 1 && maxAnte >= 0 {
		emit(frequent{rows: ix.All()})
	}
	if maxAnte < 1 {
		return rules, nil
	}

	var level []frequent
	for _, attr := range inputs {
		for _, item := range ix.Items(attr) {
			rows := ix.Rows(item)
			if float64(rows.Count())/n+epsilon >= p.support {
				level = append(level, frequent{rows: rows, items: []model.Item{item}})
			}
		}
	}

	for size := 1; size <= maxAnte && len(level) > 0; size++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if size+1 >= p.minLen {
			for _, f := range level {
				emit(f)
			}
		}
		if size == maxAnte {
			break
		}
		next, err := a.extend(ctx, level, n, p.support)
		if err != nil {
			return nil, err
		}
		level = next
	}

	return rules, nil
}

// extend joins itemsets sharing all but their last item and keeps the
// frequent ones. Candidate counting runs in parallel; results keep join order.
func (a *Apriori) extend(ctx context.Context, level []frequent, n, minSupport float64) ([]frequent, error) {
	known := make(map[string]struct{}, len(level))
	for _, f := range level {
		known[itemsKey(f.items)] = struct{}{}
	}

	var candidates [][]model.Item
	var parents []int
	for i := 0; i < len(level); i++ {
		for j := i + 1; j < len(level); j++ {
			left, right := level[i].items, level[j].items
			k := len(left)
			if !samePrefix(left, right, k-1) {
				continue
			}
			last, other := left[k-1], right[k-1]
			if last.Attribute == other.Attribute {
				continue
			}
			cand := make([]model.Item, 0, k+1)
			cand = append(cand, left...)
			cand = append(cand, other)
			if !subsetsKnown(cand, known) {
				continue
			}
			candidates = append(candidates, cand)
			parents = append(parents, i, j)
		}
	}

	counted := make([]*bitset.BitSet, len(candidates))
	workers := a.Workers
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for ci := range candidates {
		ci := ci
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			left, right := level[parents[2*ci]], level[parents[2*ci+1]]
			counted[ci] = left.rows.Intersection(right.rows)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	next := make([]frequent, 0, len(candidates))
	for ci, rows := range counted {
		if float64(rows.Count())/n+epsilon >= minSupport {
			next = append(next, frequent{rows: rows, items: candidates[ci]})
		}
	}
	return next, nil
}

func samePrefix(a, b []model.Item, k int) bool {
	for i := 0; i < k; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// subsetsKnown checks the apriori property for every subset one item smaller.
func subsetsKnown(items []model.Item, known map[string]struct{}) bool {
	if len(items) <= 2 {
		return true
	}
	sub := make([]model.Item, 0, len(items)-1)
	for skip := range items {
		sub = sub[:0]
		for i, item := range items {
			if i != skip {
				sub = append(sub, item)
			}
		}
		if _, ok := known[itemsKey(sub)]; !ok {
			return false
		}
	}
	return true
}

func itemsKey(items []model.Item) string {
	key := make([]byte, 0, 16*len(items))
	for _, item := range items {
		key = append(key, item.Attribute...)
		key = append(key, 0)
		key = append(key, item.Value...)
		key = append(key, 1)
	}
	return string(key)
}
