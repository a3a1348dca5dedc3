// Package cba builds first-match rule-list classifiers from mined class
// association rules and applies them to new rows.
package cba

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/mining"
	"github.com/Veraticus/rulecart/internal/model"
	"github.com/bits-and-blooms/bitset"
	"golang.org/x/sync/errgroup"
)

// Options controls classifier construction.
type Options struct {
	// Prune enables database-coverage (M1) and error-based (M2) pruning.
	Prune bool
	// Workers bounds the goroutines computing rule coverage; <= 0 means GOMAXPROCS.
	Workers int
}

// Covered is a rule with the rows it claims during a coverage pass.
type Covered struct {
	Rows      *bitset.BitSet
	Rule      model.CandidateRule
	Rank      int
	Correct   int
	Incorrect int
}

// M1Result is the outcome of the database-coverage pass.
type M1Result struct {
	Remaining    *bitset.BitSet
	DefaultClass string
	Rules        []Covered
}

// SortRules returns a copy ordered by confidence desc, support desc and
// length asc. Ties keep their input order.
func SortRules(rules []model.CandidateRule) []model.CandidateRule {
	out := append([]model.CandidateRule(nil), rules...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Support != b.Support {
			return a.Support > b.Support
		}
		return a.Length() < b.Length()
	})
	return out
}

// CoverM1 walks the sorted rules over rows. A rule is kept when it correctly
// covers at least one row still under consideration; every row a kept rule
// matches is then removed, so each kept rule first-matches its covered rows.
// covers holds the full antecedent cover of each rule.
func CoverM1(rules []model.CandidateRule, covers []*bitset.BitSet, ix *mining.Index, target string, rows *bitset.BitSet) M1Result {
	remaining := rows.Clone()
	var kept []Covered

	for i, rule := range rules {
		if remaining.None() {
			break
		}
		matched := covers[i].Intersection(remaining)
		correct := matched.IntersectionCardinality(ix.Rows(rule.Consequent))
		if correct == 0 {
			continue
		}
		kept = append(kept, Covered{
			Rule:      rule,
			Rank:      i + 1,
			Rows:      matched,
			Correct:   int(correct),
			Incorrect: int(matched.Count() - correct),
		})
		remaining.InPlaceDifference(matched)
	}

	return M1Result{
		Rules:        kept,
		Remaining:    remaining,
		DefaultClass: defaultFor(ix, target, remaining, rows),
	}
}

// PruneM2 replays the M1 rules and cuts the list at the earliest prefix with
// the fewest total errors, counting rule errors plus the errors of the
// majority class on rows no retained rule covers. The empty prefix competes
// too. It returns the retained prefix length and the default class.
func PruneM2(covered []Covered, ix *mining.Index, target string, rows *bitset.BitSet) (int, string) {
	uncovered := rows.Clone()
	_, hits := majority(ix, target, uncovered)
	bestLen, bestErr := 0, int(uncovered.Count())-hits
	ruleErr := 0

	for i, c := range covered {
		ruleErr += c.Incorrect
		uncovered.InPlaceDifference(c.Rows)
		_, hits = majority(ix, target, uncovered)
		if total := ruleErr + int(uncovered.Count()) - hits; total < bestErr {
			bestLen, bestErr = i+1, total
		}
	}

	left := rows.Clone()
	for _, c := range covered[:bestLen] {
		left.InPlaceDifference(c.Rows)
	}
	return bestLen, defaultFor(ix, target, left, rows)
}

// Build sorts the candidates and turns them into a classifier over table.
// Without pruning every candidate is kept in sorted order.
func Build(ctx context.Context, candidates []model.CandidateRule, table *model.Table, target string, opts Options) (*model.Classifier, model.BuildStats, error) {
	var stats model.BuildStats
	if table.Len() == 0 {
		return nil, stats, common.ErrEmptyTable
	}
	if !table.HasColumn(target) {
		return nil, stats, fmt.Errorf("%w: %q", common.ErrTargetNotInTable, target)
	}
	for _, r := range candidates {
		if r.Consequent.Attribute != target {
			return nil, stats, fmt.Errorf("%w: rule %s does not predict %q", common.ErrTaskSpecInvalid, r, target)
		}
	}

	sorted := SortRules(candidates)
	ix := mining.NewIndex(table, ruleColumns(sorted, target))
	labels := ix.Items(target)
	if len(labels) == 0 {
		return nil, stats, fmt.Errorf("%w: %q has no values", common.ErrTargetNotInTable, target)
	}

	covers, err := coverAll(ctx, sorted, ix, opts.Workers)
	if err != nil {
		return nil, stats, err
	}

	all := ix.All()
	clf := &model.Classifier{
		Target:       target,
		Labels:       make([]string, len(labels)),
		Distribution: make(map[string]float64, len(labels)),
	}
	for i, l := range labels {
		clf.Labels[i] = l.Value
		clf.Distribution[l.Value] = float64(ix.Rows(l).Count()) / float64(ix.Len())
	}

	stats.Presented = len(sorted)
	stats.Pruned = opts.Prune
	if opts.Prune {
		m1 := CoverM1(sorted, covers, ix, target, all)
		keep, def := PruneM2(m1.Rules, ix, target, all)
		clf.Rules = classifierRules(m1.Rules[:keep])
		clf.DefaultClass = def
		stats.AfterM1 = len(m1.Rules)
		stats.AfterM2 = keep
		common.LogDebug("cba pruning finished", common.Fields{
			"presented":     stats.Presented,
			"after_m1":      stats.AfterM1,
			"after_m2":      stats.AfterM2,
			"m1_default":    m1.DefaultClass,
			"default_class": def,
		})
	} else {
		matches := firstMatches(sorted, covers, ix, all)
		clf.Rules = classifierRules(matches)
		left := all.Clone()
		for _, c := range matches {
			left.InPlaceDifference(c.Rows)
		}
		clf.DefaultClass = defaultFor(ix, target, left, all)
		stats.AfterM1 = len(sorted)
		stats.AfterM2 = len(sorted)
	}

	stats.Accuracy = Evaluate(clf, table)
	return clf, stats, nil
}

// firstMatches assigns each row to the first rule matching it, keeping every rule.
func firstMatches(rules []model.CandidateRule, covers []*bitset.BitSet, ix *mining.Index, rows *bitset.BitSet) []Covered {
	remaining := rows.Clone()
	out := make([]Covered, len(rules))
	for i, rule := range rules {
		matched := covers[i].Intersection(remaining)
		correct := matched.IntersectionCardinality(ix.Rows(rule.Consequent))
		out[i] = Covered{
			Rule:      rule,
			Rank:      i + 1,
			Rows:      matched,
			Correct:   int(correct),
			Incorrect: int(matched.Count() - correct),
		}
		remaining.InPlaceDifference(matched)
	}
	return out
}

// coverAll computes each rule's antecedent cover in parallel; order follows rules.
func coverAll(ctx context.Context, rules []model.CandidateRule, ix *mining.Index, workers int) ([]*bitset.BitSet, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	covers := make([]*bitset.BitSet, len(rules))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range rules {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			covers[i] = ix.Cover(rules[i].Antecedent)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return covers, nil
}

func classifierRules(covered []Covered) []model.ClassifierRule {
	out := make([]model.ClassifierRule, len(covered))
	for i, c := range covered {
		out[i] = model.ClassifierRule{
			CandidateRule: c.Rule,
			Rank:          c.Rank,
			Correct:       c.Correct,
			Incorrect:     c.Incorrect,
		}
	}
	return out
}

func ruleColumns(rules []model.CandidateRule, target string) []string {
	seen := map[string]struct{}{target: {}}
	cols := []string{target}
	for _, r := range rules {
		for _, item := range r.Antecedent {
			if _, ok := seen[item.Attribute]; !ok {
				seen[item.Attribute] = struct{}{}
				cols = append(cols, item.Attribute)
			}
		}
	}
	return cols
}

// majority returns the most frequent target value within rows and its count.
// Ties go to the lexicographically smallest value.
func majority(ix *mining.Index, target string, rows *bitset.BitSet) (string, int) {
	best, bestCount := "", 0
	for i, item := range ix.Items(target) {
		n := int(rows.IntersectionCardinality(ix.Rows(item)))
		if i == 0 || n > bestCount {
			best, bestCount = item.Value, n
		}
	}
	return best, bestCount
}

// defaultFor picks the majority of rows, falling back to the majority of all
// when no row in rows carries a target value.
func defaultFor(ix *mining.Index, target string, rows, all *bitset.BitSet) string {
	if class, n := majority(ix, target, rows); n > 0 {
		return class
	}
	class, _ := majority(ix, target, all)
	return class
}
