package mining

import (
	"context"
	"testing"

	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/model"
	"github.com/Veraticus/rulecart/internal/testutil/tables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(conf, supp float64, maxLen int) Config {
	return Config{
		Thresholds: model.Thresholds{
			Mode:          model.ModeFixed,
			ConfidenceMin: conf,
			SupportMin:    supp,
			MaxRuleLength: &maxLen,
		},
		MinRuleLength: 1,
	}
}

func findRule(rules []model.CandidateRule, s string) *model.CandidateRule {
	for i := range rules {
		if rules[i].String() == s {
			return &rules[i]
		}
	}
	return nil
}

func floatPtr(f float64) *float64 { return &f }

func TestEnumerate_Fixed(t *testing.T) {
	table := tables.Loans(t)
	out, err := NewApriori(2).Enumerate(context.Background(), table, []string{"district", "age"}, []string{"salary"}, fixed(0.8, 0.05, 3))
	require.NoError(t, err)

	assert.Equal(t, "salary", out.Target)
	assert.Equal(t, 1, out.Iterations)
	assert.False(t, out.BudgetExhausted)

	praha := findRule(out.Rules, "{district=Praha} => {salary=high}")
	require.NotNil(t, praha)
	assert.InDelta(t, 0.95, praha.Confidence, 1e-9)
	assert.InDelta(t, 0.1, praha.Support, 1e-9)
	assert.Equal(t, 19, praha.SupportCount)
	assert.Equal(t, 20, praha.AntecedentCount)
	require.NotNil(t, praha.Lift)
	assert.InDelta(t, 0.95/(97.0/190.0), *praha.Lift, 1e-9)

	brno := findRule(out.Rules, "{district=Brno, age=young} => {salary=low}")
	require.NotNil(t, brno)
	assert.InDelta(t, 0.85, brno.Confidence, 1e-9)

	assert.Nil(t, findRule(out.Rules, "{district=Ostrava} => {salary=high}"), "confidence 0.5 is below the threshold")
	assert.Nil(t, findRule(out.Rules, "{} => {salary=high}"))
}

func TestEnumerate_RoleConstraints(t *testing.T) {
	table := tables.Loans(t)
	out, err := NewApriori(1).Enumerate(context.Background(), table, []string{"district", "salary"}, []string{"salary"}, fixed(0.5, 0.01, 3))
	require.NoError(t, err)
	require.NotEmpty(t, out.Rules)

	for _, r := range out.Rules {
		assert.Equal(t, "salary", r.Consequent.Attribute)
		for _, item := range r.Antecedent {
			assert.Equal(t, "district", item.Attribute, "rule %s", r)
		}
	}
}

func TestEnumerate_LengthBounds(t *testing.T) {
	table := tables.Loans(t)

	out, err := NewApriori(1).Enumerate(context.Background(), table, []string{"district", "age"}, []string{"salary"}, fixed(0.5, 0.01, 2))
	require.NoError(t, err)
	for _, r := range out.Rules {
		assert.LessOrEqual(t, r.Length(), 2)
	}

	cfg := fixed(0.5, 0.01, 3)
	cfg.MinRuleLength = 2
	out, err = NewApriori(1).Enumerate(context.Background(), table, []string{"district", "age"}, []string{"salary"}, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, out.Rules)
	for _, r := range out.Rules {
		assert.NotEmpty(t, r.Antecedent)
	}
}

func TestEnumerate_EmptyAntecedent(t *testing.T) {
	table := tables.Loans(t)
	out, err := NewApriori(1).Enumerate(context.Background(), table, []string{"district"}, []string{"salary"}, fixed(0.5, 0.01, 1))
	require.NoError(t, err)

	require.Len(t, out.Rules, 1)
	assert.Empty(t, out.Rules[0].Antecedent)
	assert.NotNil(t, out.Rules[0].Antecedent)
	assert.Equal(t, model.Item{Attribute: "salary", Value: "high"}, out.Rules[0].Consequent)
	assert.InDelta(t, 97.0/190.0, out.Rules[0].Confidence, 1e-9)
}

func TestEnumerate_LiftAndAAD(t *testing.T) {
	table := tables.Loans(t)

	tests := []struct {
		name string
		lift *float64
		aad  *float64
	}{
		{name: "lift", lift: floatPtr(1.8)},
		{name: "aad", aad: floatPtr(0.8)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fixed(0.8, 0.05, 2)
			cfg.Thresholds.LiftMin = tt.lift
			cfg.Thresholds.AADMin = tt.aad

			out, err := NewApriori(1).Enumerate(context.Background(), table, []string{"district"}, []string{"salary"}, cfg)
			require.NoError(t, err)
			require.Len(t, out.Rules, 1)
			assert.Equal(t, "{district=Praha} => {salary=high}", out.Rules[0].String())
		})
	}
}

func TestEnumerate_Warnings(t *testing.T) {
	table := tables.Loans(t)
	out, err := NewApriori(1).Enumerate(context.Background(), table, []string{"district", "income"}, []string{"salary", "age"}, fixed(0.8, 0.05, 2))
	require.NoError(t, err)

	kinds := make(map[model.WarningKind]string)
	for _, w := range out.Warnings {
		kinds[w.Kind] = w.Ref
	}
	assert.Equal(t, "income", kinds[model.WarnMissingColumn])
	assert.Equal(t, "salary", kinds[model.WarnIgnoredConsequent])
}

func TestEnumerate_Errors(t *testing.T) {
	table := tables.Loans(t)

	tests := []struct {
		name       string
		table      *model.Table
		consequent []string
		cfg        Config
		wantErr    error
	}{
		{name: "empty table", table: model.NewTable(nil, nil), consequent: []string{"salary"}, cfg: fixed(0.5, 0.1, 2), wantErr: common.ErrEmptyTable},
		{name: "no consequent", table: table, cfg: fixed(0.5, 0.1, 2), wantErr: common.ErrTaskSpecInvalid},
		{name: "target not in table", table: table, consequent: []string{"income"}, cfg: fixed(0.5, 0.1, 2), wantErr: common.ErrTargetNotInTable},
		{name: "unknown mode", table: table, consequent: []string{"salary"}, cfg: Config{Thresholds: model.Thresholds{Mode: "greedy"}}, wantErr: common.ErrUnknownMiningMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewApriori(1).Enumerate(context.Background(), tt.table, []string{"district"}, tt.consequent, tt.cfg)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEnumerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewApriori(1).Enumerate(ctx, tables.Loans(t), []string{"district", "age"}, []string{"salary"}, fixed(0.5, 0.01, 3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnumerate_WorkerCountIndependent(t *testing.T) {
	table := tables.Loans(t)
	attrs := []string{"district", "age"}

	one, err := NewApriori(1).Enumerate(context.Background(), table, attrs, []string{"salary"}, fixed(0.3, 0.01, 3))
	require.NoError(t, err)
	many, err := NewApriori(8).Enumerate(context.Background(), table, attrs, []string{"salary"}, fixed(0.3, 0.01, 3))
	require.NoError(t, err)

	assert.Equal(t, one.Rules, many.Rules)
}

func TestIndex_FourFold(t *testing.T) {
	table := tables.Loans(t)
	ix := NewIndex(table, []string{"district", "salary"})

	rule := model.CandidateRule{
		Antecedent: []model.Item{{Attribute: "district", Value: "Praha"}},
		Consequent: model.Item{Attribute: "salary", Value: "high"},
	}
	ff := ix.FourFold(rule)
	assert.Equal(t, FourFold{A: 19, B: 1, C: 78, D: 92}, ff)
	assert.Equal(t, table.Len(), ff.A+ff.B+ff.C+ff.D)
}

func TestIndex_MissingValues(t *testing.T) {
	table := tables.NewBuilder(t).
		WithColumns("a", "class").
		WithRows(2, "x", "yes").
		WithRows(1, tables.Missing, "no").
		Build()
	ix := NewIndex(table, []string{"a", "class"})

	assert.Equal(t, []model.Item{{Attribute: "a", Value: "x"}}, ix.Items("a"))
	assert.Equal(t, uint(3), ix.Cover(nil).Count())
	assert.Equal(t, uint(2), ix.Cover([]model.Item{{Attribute: "a", Value: "x"}}).Count())
	assert.Equal(t, uint(0), ix.Rows(model.Item{Attribute: "a", Value: "z"}).Count())
}
