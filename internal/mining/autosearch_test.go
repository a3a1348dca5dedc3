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

func autoConfig(target, maxIterations int) Config {
	maxLen := 3
	return Config{
		Thresholds: model.Thresholds{
			Mode:          model.ModeAutoSearch,
			ConfidenceMin: 0.5,
			SupportMin:    0.01,
			MaxRuleLength: &maxLen,
		},
		Schedule: Schedule{
			InitialSupport:    0.01,
			InitialConfidence: 0.5,
			ConfidenceStep:    0.05,
			SupportStep:       0.005,
			MinSupport:        0.001,
			MinLength:         1,
			InitialMaxLength:  1,
			MaxIterations:     maxIterations,
		},
		MinRuleLength:   1,
		TargetRuleCount: target,
	}
}

func TestAutoSearch_StopsAtTarget(t *testing.T) {
	var seen []Iteration
	cfg := autoConfig(1, 20)
	cfg.OnIteration = func(it Iteration) { seen = append(seen, it) }

	out, err := NewApriori(1).Enumerate(context.Background(), tables.Loans(t), []string{"district", "age"}, []string{"salary"}, cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Iterations)
	assert.False(t, out.BudgetExhausted)
	require.Len(t, out.Rules, 1)
	assert.Equal(t, "{} => {salary=high}", out.Rules[0].String())
	require.Len(t, seen, 1)
	assert.Equal(t, 1, seen[0].MaxLength)
}

func TestAutoSearch_IterationCap(t *testing.T) {
	var seen []Iteration
	cfg := autoConfig(1000, 3)
	cfg.OnIteration = func(it Iteration) { seen = append(seen, it) }

	out, err := NewApriori(1).Enumerate(context.Background(), tables.Loans(t), []string{"district", "age"}, []string{"salary"}, cfg)
	require.NoError(t, err)

	assert.Equal(t, 3, out.Iterations)
	assert.True(t, out.BudgetExhausted)
	assert.NotEmpty(t, out.Rules)
	require.Len(t, seen, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{seen[0].MaxLength, seen[1].MaxLength, seen[2].MaxLength})

	var budget bool
	for _, w := range out.Warnings {
		budget = budget || w.Kind == model.WarnBudgetExceeded
	}
	assert.True(t, budget)
}

func TestAutoSearch_RelaxesUntilExhausted(t *testing.T) {
	var seen []Iteration
	cfg := autoConfig(1000, 100)
	cfg.OnIteration = func(it Iteration) { seen = append(seen, it) }

	out, err := NewApriori(1).Enumerate(context.Background(), tables.Loans(t), []string{"district", "age"}, []string{"salary"}, cfg)
	require.NoError(t, err)

	assert.False(t, out.BudgetExhausted, "running out of options is not a budget stop")
	assert.Less(t, out.Iterations, 100)
	require.NotEmpty(t, seen)

	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i].Rules, seen[i-1].Rules, "relaxing never loses rules")
		assert.LessOrEqual(t, seen[i].Confidence, seen[i-1].Confidence+epsilon)
		assert.LessOrEqual(t, seen[i].Support, seen[i-1].Support+epsilon)
	}
	last := seen[len(seen)-1]
	assert.GreaterOrEqual(t, last.Support, cfg.Schedule.MinSupport-epsilon)
	assert.Equal(t, len(out.Rules), last.Rules)
}

func TestAutoSearch_Deterministic(t *testing.T) {
	table := tables.Loans(t)
	attrs := []string{"district", "age"}

	first, err := NewApriori(4).Enumerate(context.Background(), table, attrs, []string{"salary"}, autoConfig(10, 20))
	require.NoError(t, err)
	second, err := NewApriori(4).Enumerate(context.Background(), table, attrs, []string{"salary"}, autoConfig(10, 20))
	require.NoError(t, err)

	assert.Equal(t, first.Rules, second.Rules)
	assert.Equal(t, first.Final, second.Final)
}

func TestSchedule_Validate(t *testing.T) {
	valid := autoConfig(10, 5).Schedule

	tests := []struct {
		name   string
		mutate func(*Schedule)
	}{
		{name: "no iterations", mutate: func(s *Schedule) { s.MaxIterations = 0 }},
		{name: "zero confidence step", mutate: func(s *Schedule) { s.ConfidenceStep = 0 }},
		{name: "negative support step", mutate: func(s *Schedule) { s.SupportStep = -0.1 }},
		{name: "zero initial length", mutate: func(s *Schedule) { s.InitialMaxLength = 0 }},
		{name: "support above one", mutate: func(s *Schedule) { s.InitialSupport = 1.5 }},
		{name: "zero confidence", mutate: func(s *Schedule) { s.InitialConfidence = 0 }},
	}

	require.NoError(t, valid.Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), common.ErrInvalidConfig)
		})
	}
}
