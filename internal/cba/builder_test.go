package cba

import (
	"context"
	"testing"

	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/mining"
	"github.com/Veraticus/rulecart/internal/model"
	"github.com/Veraticus/rulecart/internal/testutil/tables"
	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mine(t *testing.T, table *model.Table, attrs []string, target string, conf, supp float64, maxLen int) []model.CandidateRule {
	t.Helper()
	out, err := mining.NewApriori(2).Enumerate(context.Background(), table, attrs, []string{target}, mining.Config{
		Thresholds: model.Thresholds{
			Mode:          model.ModeFixed,
			ConfidenceMin: conf,
			SupportMin:    supp,
			MaxRuleLength: &maxLen,
		},
		MinRuleLength: 1,
	})
	require.NoError(t, err)
	return out.Rules
}

func ruleStrings(rules []model.ClassifierRule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.String()
	}
	return out
}

func rule(conf, supp float64, consequent string, antecedent ...string) model.CandidateRule {
	r := model.CandidateRule{
		Confidence: conf,
		Support:    supp,
		Consequent: model.Item{Attribute: "class", Value: consequent},
		Antecedent: []model.Item{},
	}
	for _, a := range antecedent {
		r.Antecedent = append(r.Antecedent, model.Item{Attribute: a, Value: "1"})
	}
	return r
}

func TestSortRules(t *testing.T) {
	in := []model.CandidateRule{
		rule(0.8, 0.2, "a", "x"),
		rule(0.9, 0.1, "a", "x", "y"),
		rule(0.9, 0.1, "b", "x"),
		rule(0.9, 0.3, "a", "z"),
		rule(0.8, 0.2, "b", "y"),
	}

	got := SortRules(in)

	want := []model.CandidateRule{in[3], in[2], in[1], in[0], in[4]}
	assert.Equal(t, want, got)
	assert.Equal(t, 0.8, in[0].Confidence, "input is not reordered")
}

func TestBuild_LoansPruned(t *testing.T) {
	table := tables.Loans(t)
	candidates := mine(t, table, []string{"district", "age"}, "salary", 0.8, 0.05, 3)

	sorted := SortRules(candidates)
	praha, brno := -1, -1
	for i, r := range sorted {
		switch r.String() {
		case "{district=Praha} => {salary=high}":
			praha = i
		case "{district=Brno, age=young} => {salary=low}":
			brno = i
		}
	}
	require.GreaterOrEqual(t, praha, 0)
	require.GreaterOrEqual(t, brno, 0)
	assert.Less(t, praha, brno)

	clf, stats, err := Build(context.Background(), candidates, table, "salary", Options{Prune: true, Workers: 2})
	require.NoError(t, err)

	assert.Equal(t, len(candidates), stats.Presented)
	assert.Equal(t, 2, stats.AfterM1)
	assert.Equal(t, 1, stats.AfterM2)
	assert.True(t, stats.Pruned)
	assert.Equal(t, []string{"{district=Praha} => {salary=high}"}, ruleStrings(clf.Rules))
	assert.Equal(t, "low", clf.DefaultClass)
	assert.Equal(t, []string{"high", "low"}, clf.Labels)
	assert.InDelta(t, 97.0/190.0, clf.Distribution["high"], 1e-9)
	assert.InDelta(t, 111.0/190.0, stats.Accuracy, 1e-9)
	assert.Equal(t, 19, clf.Rules[0].Correct)
	assert.Equal(t, 1, clf.Rules[0].Incorrect)
	assert.Equal(t, 1, clf.Rules[0].Rank)
}

func TestBuild_Unpruned(t *testing.T) {
	table := tables.Loans(t)
	candidates := mine(t, table, []string{"district", "age"}, "salary", 0.8, 0.05, 3)

	clf, stats, err := Build(context.Background(), candidates, table, "salary", Options{})
	require.NoError(t, err)

	assert.Len(t, clf.Rules, len(candidates))
	assert.Equal(t, stats.Presented, stats.AfterM1)
	assert.Equal(t, stats.Presented, stats.AfterM2)
	assert.False(t, stats.Pruned)
	assert.Equal(t, "high", clf.DefaultClass, "uncovered rows tie and the smaller label wins")
	for i, r := range clf.Rules {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestBuild_Weather(t *testing.T) {
	table := tables.Weather(t)
	candidates := mine(t, table, []string{"outlook", "windy"}, "play", 0.6, 0.1, 2)

	clf, stats, err := Build(context.Background(), candidates, table, "play", Options{Prune: true})
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Presented)
	assert.Equal(t, 4, stats.AfterM1)
	assert.Equal(t, 3, stats.AfterM2)
	assert.Equal(t, []string{
		"{outlook=sunny} => {play=yes}",
		"{outlook=rainy} => {play=no}",
		"{windy=no} => {play=yes}",
	}, ruleStrings(clf.Rules))
	assert.Equal(t, "no", clf.DefaultClass)
	assert.InDelta(t, 1.0, stats.Accuracy, 1e-9)
}

func TestCoverM1AndPruneM2(t *testing.T) {
	table := tables.Weather(t)
	sorted := SortRules(mine(t, table, []string{"outlook", "windy"}, "play", 0.6, 0.1, 2))
	ix := mining.NewIndex(table, []string{"outlook", "windy", "play"})
	covers := make([]*bitset.BitSet, len(sorted))
	for i, r := range sorted {
		covers[i] = ix.Cover(r.Antecedent)
	}

	m1 := CoverM1(sorted, covers, ix, "play", ix.All())
	require.Len(t, m1.Rules, 4)
	assert.True(t, m1.Remaining.None())
	assert.Equal(t, "yes", m1.DefaultClass)
	assert.Equal(t, []int{6, 5, 2, 1}, []int{m1.Rules[0].Correct, m1.Rules[1].Correct, m1.Rules[2].Correct, m1.Rules[3].Correct})

	keep, def := PruneM2(m1.Rules, ix, "play", ix.All())
	assert.Equal(t, 3, keep)
	assert.Equal(t, "no", def)

	keep, def = PruneM2(nil, ix, "play", ix.All())
	assert.Equal(t, 0, keep)
	assert.Equal(t, "yes", def)
}

func TestBuild_Properties(t *testing.T) {
	cases := []struct {
		table  *model.Table
		name   string
		target string
		attrs  []string
	}{
		{name: "loans", table: tables.Loans(t), attrs: []string{"district", "age"}, target: "salary"},
		{name: "weather", table: tables.Weather(t), attrs: []string{"outlook", "windy"}, target: "play"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			candidates := mine(t, tc.table, tc.attrs, tc.target, 0.3, 0.01, 3)

			first, stats, err := Build(context.Background(), candidates, tc.table, tc.target, Options{Prune: true, Workers: 1})
			require.NoError(t, err)
			second, _, err := Build(context.Background(), candidates, tc.table, tc.target, Options{Prune: true, Workers: 8})
			require.NoError(t, err)

			assert.Equal(t, first, second, "rebuild is deterministic")
			assert.LessOrEqual(t, stats.AfterM2, stats.AfterM1)
			assert.LessOrEqual(t, stats.AfterM1, stats.Presented)
			assert.NotEmpty(t, first.DefaultClass)

			for i, r := range first.Rules {
				live := false
				for _, row := range tc.table.Rows {
					if Match(first, row) == i && row[tc.target] == r.Consequent.Value {
						live = true
						break
					}
				}
				assert.True(t, live, "rule %s never first-matches a row correctly", r)
			}
		})
	}
}

func TestBuild_NoCandidates(t *testing.T) {
	table := tables.Loans(t)

	for _, prune := range []bool{true, false} {
		clf, stats, err := Build(context.Background(), nil, table, "salary", Options{Prune: prune})
		require.NoError(t, err)

		assert.Empty(t, clf.Rules)
		assert.Equal(t, "high", clf.DefaultClass)
		assert.Equal(t, "high", Predict(clf, model.TransactionRow{"district": "Brno"}))
		assert.InDelta(t, 97.0/190.0, Evaluate(clf, table), 1e-9)
		assert.InDelta(t, 97.0/190.0, stats.Accuracy, 1e-9)
	}
}

func TestBuild_Errors(t *testing.T) {
	table := tables.Loans(t)

	_, _, err := Build(context.Background(), nil, model.NewTable(nil, nil), "salary", Options{})
	assert.ErrorIs(t, err, common.ErrEmptyTable)

	_, _, err = Build(context.Background(), nil, table, "income", Options{})
	assert.ErrorIs(t, err, common.ErrTargetNotInTable)

	wrong := model.CandidateRule{Consequent: model.Item{Attribute: "age", Value: "old"}}
	_, _, err = Build(context.Background(), []model.CandidateRule{wrong}, table, "salary", Options{})
	assert.ErrorIs(t, err, common.ErrTaskSpecInvalid)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = Build(ctx, mine(t, table, []string{"district"}, "salary", 0.5, 0.01, 2), table, "salary", Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
