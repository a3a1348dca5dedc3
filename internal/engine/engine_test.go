package engine

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/mining"
	"github.com/Veraticus/rulecart/internal/model"
	"github.com/Veraticus/rulecart/internal/testutil/tables"
	"github.com/Veraticus/rulecart/internal/testutil/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Schedule: mining.Schedule{
			InitialSupport:    0.01,
			InitialConfidence: 0.5,
			ConfidenceStep:    0.05,
			SupportStep:       0.005,
			MinSupport:        0.001,
			MinLength:         1,
			InitialMaxLength:  1,
			MaxIterations:     20,
			Timeout:           10 * time.Second,
		},
		TargetRuleCount: 1000,
		Workers:         2,
	}
}

func newEngine() *MiningEngine {
	return New(mining.NewApriori(2), testConfig())
}

func warningKinds(ws []model.Warning) map[model.WarningKind]int {
	out := make(map[model.WarningKind]int)
	for _, w := range ws {
		out[w.Kind]++
	}
	return out
}

func TestMine_FixedWithCBA(t *testing.T) {
	task := tasks.Loans(
		tasks.Measure("CONF", 0.8),
		tasks.Measure("SUPP", 0.05),
		tasks.Measure("RULE_LENGTH", 3),
		tasks.Measure("CBA", 0),
	)

	result, err := newEngine().Mine(context.Background(), task, tables.Loans(t))
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "loans", result.Dataset)
	assert.Equal(t, "loans-task", result.TaskName)
	assert.Equal(t, 190, result.Rows)
	assert.Equal(t, []string{"age", "district"}, result.AntecedentAttrs)
	assert.Equal(t, []string{"salary"}, result.ConsequentAttrs)
	assert.Equal(t, model.ModeFixed, result.Thresholds.Mode)
	assert.True(t, result.Thresholds.CBAPruningEnabled)
	assert.False(t, result.BudgetExhausted)
	assert.Empty(t, result.Warnings)

	assert.Equal(t, 5, result.Stats.Presented)
	assert.Equal(t, 2, result.Stats.AfterM1)
	assert.Equal(t, 1, result.Stats.AfterM2)

	clf := result.Classifier
	require.Len(t, clf.Rules, 1)
	assert.Equal(t, "{district=Praha} => {salary=high}", clf.Rules[0].String())
	assert.InDelta(t, 0.95, clf.Rules[0].Confidence, 1e-9)
	assert.InDelta(t, 0.1, clf.Rules[0].Support, 1e-9)
	assert.Equal(t, "low", clf.DefaultClass)
}

func TestMine_FixedWithoutCBA(t *testing.T) {
	task := tasks.Loans(tasks.Measure("CONF", 0.8), tasks.Measure("SUPP", 0.05), tasks.Measure("RULE_LENGTH", 3))

	result, err := newEngine().Mine(context.Background(), task, tables.Loans(t))
	require.NoError(t, err)

	assert.False(t, result.Stats.Pruned)
	assert.Len(t, result.Classifier.Rules, 5)
	assert.Empty(t, result.Warnings)
}

func TestMine_HypothesesCap(t *testing.T) {
	task := tasks.Loans(tasks.Measure("CONF", 0.8), tasks.Measure("SUPP", 0.05), tasks.Measure("RULE_LENGTH", 3))
	limit := 2
	task.Setting.HypothesesMax = &limit

	result, err := newEngine().Mine(context.Background(), task, tables.Loans(t))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.Presented)
	require.Len(t, result.Classifier.Rules, 2)
	assert.Equal(t, "{district=Praha} => {salary=high}", result.Classifier.Rules[0].String())
}

func TestMine_AutoSearch(t *testing.T) {
	task := tasks.Loans(tasks.Measure("AUTO_CONF_SUPP", 0), tasks.Measure("RULE_LENGTH", 3), tasks.Measure("CBA", 0))
	limit := 5
	task.Setting.HypothesesMax = &limit

	var rounds int
	cfg := testConfig()
	cfg.OnIteration = func(mining.Iteration) { rounds++ }

	result, err := New(mining.NewApriori(1), cfg).Mine(context.Background(), task, tables.Loans(t))
	require.NoError(t, err)

	assert.Equal(t, model.ModeAutoSearch, result.Thresholds.Mode)
	assert.Equal(t, 2, result.Iterations)
	assert.Equal(t, 2, rounds)
	assert.Equal(t, 5, result.Stats.Presented)
	assert.LessOrEqual(t, result.Stats.AfterM2, result.Stats.AfterM1)
	assert.NotEmpty(t, result.Classifier.DefaultClass)
}

func TestMine_AutoSearchKeepsTargetCount(t *testing.T) {
	task := tasks.Loans(tasks.Measure("AUTO_CONF_SUPP", 0), tasks.Measure("RULE_LENGTH", 3))
	cfg := testConfig()
	cfg.TargetRuleCount = 2

	result, err := New(mining.NewApriori(1), cfg).Mine(context.Background(), task, tables.Loans(t))
	require.NoError(t, err)

	assert.Equal(t, model.ModeAutoSearch, result.Thresholds.Mode)
	assert.False(t, result.Stats.Pruned)
	assert.Equal(t, 2, result.Stats.Presented)
	require.Len(t, result.Classifier.Rules, 2)
	assert.GreaterOrEqual(t, result.Classifier.Rules[0].Confidence, result.Classifier.Rules[1].Confidence)
}

func TestMine_FixedIgnoresTargetCount(t *testing.T) {
	task := tasks.Loans(tasks.Measure("CONF", 0.8), tasks.Measure("SUPP", 0.05), tasks.Measure("RULE_LENGTH", 3))
	cfg := testConfig()
	cfg.TargetRuleCount = 2

	result, err := New(mining.NewApriori(1), cfg).Mine(context.Background(), task, tables.Loans(t))
	require.NoError(t, err)
	assert.Equal(t, 5, result.Stats.Presented)
}

func TestMine_EmptyResult(t *testing.T) {
	task := tasks.Loans(tasks.Measure("CONF", 1.0), tasks.Measure("SUPP", 1.0), tasks.Measure("RULE_LENGTH", 3), tasks.Measure("CBA", 0))

	result, err := newEngine().Mine(context.Background(), task, tables.Loans(t))
	require.NoError(t, err)

	assert.Empty(t, result.Classifier.Rules)
	assert.Equal(t, "high", result.Classifier.DefaultClass)
	assert.InDelta(t, 97.0/190.0, result.Stats.Accuracy, 1e-9)
	assert.Equal(t, 1, warningKinds(result.Warnings)[model.WarnEmptyResult])
}

func TestMine_ResolutionWarnings(t *testing.T) {
	task := tasks.Loans(tasks.Measure("CONF", 0.8), tasks.Measure("SUPP", 0.05), tasks.Measure("RULE_LENGTH", 3))
	task.Setting.DBAs[0].Children = append(task.Setting.DBAs[0].Children, "ghost")

	result, err := newEngine().Mine(context.Background(), task, tables.Loans(t))
	require.NoError(t, err)

	assert.Equal(t, 1, warningKinds(result.Warnings)[model.WarnUnmatchedReference])
	assert.Equal(t, []string{"age", "district"}, result.AntecedentAttrs)
}

func TestMine_Errors(t *testing.T) {
	valid := func() *model.MiningTask {
		return tasks.Loans(tasks.Measure("CONF", 0.8), tasks.Measure("SUPP", 0.05), tasks.Measure("RULE_LENGTH", 3))
	}

	tests := []struct {
		table   *model.Table
		task    func() *model.MiningTask
		wantErr error
		name    string
	}{
		{
			name:    "nil task",
			task:    func() *model.MiningTask { return nil },
			wantErr: common.ErrTaskSpecInvalid,
		},
		{
			name: "invalid thresholds rejected before the table is read",
			task: func() *model.MiningTask {
				return tasks.Loans(tasks.Measure("SUPP", 0.05), tasks.Measure("RULE_LENGTH", 3))
			},
			wantErr: common.ErrTaskSpecInvalid,
		},
		{
			name: "unresolvable root",
			task: func() *model.MiningTask {
				task := valid()
				task.Setting.AntecedentID = "missing"
				return task
			},
			wantErr: common.ErrUnresolvableRoot,
		},
		{
			name:    "empty table",
			task:    valid,
			table:   model.NewTable(nil, nil),
			wantErr: common.ErrEmptyTable,
		},
		{
			name: "target not in table",
			task: func() *model.MiningTask {
				task := valid()
				task.Setting.BBAs[2] = tasks.BBA("3", "income")
				return task
			},
			table:   tables.Loans(t),
			wantErr: common.ErrTargetNotInTable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newEngine().Mine(context.Background(), tt.task(), tt.table)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
