// Package engine runs a mining task end to end: attribute resolution,
// threshold validation, rule enumeration and classifier construction.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/rulecart/internal/cba"
	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/mining"
	"github.com/Veraticus/rulecart/internal/model"
	"github.com/Veraticus/rulecart/internal/resolver"
	"github.com/Veraticus/rulecart/internal/threshold"
	"github.com/google/uuid"
)

// MiningEngine orchestrates one mining request. It holds no per-request
// state and may serve concurrent requests over distinct or shared tables.
type MiningEngine struct {
	enumerator mining.Enumerator
	config     Config
}

// Config holds the explicit inputs of the pipeline.
type Config struct {
	// OnIteration, when set, observes every AutoSearch round.
	OnIteration func(mining.Iteration)
	// Schedule drives AutoSearch relaxation.
	Schedule mining.Schedule
	// TargetRuleCount is the AutoSearch goal when the task sets no hypotheses cap.
	TargetRuleCount int
	// Workers bounds parallel coverage counting in the builder.
	Workers int
}

// New creates a mining engine.
func New(enumerator mining.Enumerator, config Config) *MiningEngine {
	return &MiningEngine{
		enumerator: enumerator,
		config:     config,
	}
}

// Prepared is a validated task ready to be mined.
type Prepared struct {
	Antecedent resolver.Resolution
	Consequent resolver.Resolution
	Normalized threshold.Normalized
}

// Prepare resolves both roots and validates the thresholds. It never touches
// the transaction table, so callers can reject a bad task before loading data.
func (e *MiningEngine) Prepare(task *model.MiningTask) (*Prepared, error) {
	if task == nil {
		return nil, common.NewValidationError("task", "no mining task given")
	}
	ts := &task.Setting

	ante, err := resolver.Resolve(ts.AntecedentID, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve antecedent: %w", err)
	}
	cons, err := resolver.Resolve(ts.ConsequentID, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve consequent: %w", err)
	}
	if err := threshold.Validate(ts, cons.Attributes); err != nil {
		return nil, err
	}
	if len(cons.Attributes) == 0 {
		return nil, common.NewValidationError("consequent", "consequent resolves to no attribute")
	}

	n := threshold.Normalize(ts)
	common.LogDebug("task prepared", common.Fields{
		"antecedent":     ante.Attributes,
		"consequent":     cons.Attributes,
		"mode":           string(n.Thresholds.Mode),
		"confidence_min": n.Thresholds.ConfidenceMin,
		"support_min":    n.Thresholds.SupportMin,
		"cba":            n.Thresholds.CBAPruningEnabled,
	})

	return &Prepared{Antecedent: ante, Consequent: cons, Normalized: n}, nil
}

// Mine runs the full pipeline for task over table. Validation failures are
// returned before the table is read; every other condition is reported as a
// warning on a usable result.
func (e *MiningEngine) Mine(ctx context.Context, task *model.MiningTask, table *model.Table) (*model.Result, error) {
	prep, err := e.Prepare(task)
	if err != nil {
		return nil, err
	}
	if table.Len() == 0 {
		return nil, common.ErrEmptyTable
	}

	th := prep.Normalized.Thresholds
	target := prep.Consequent.Attributes[0]
	if !table.HasColumn(target) {
		return nil, fmt.Errorf("%w: %q", common.ErrTargetNotInTable, target)
	}

	limit := 0
	if hm := task.Setting.HypothesesMax; hm != nil && *hm > 0 {
		limit = *hm
	}
	goal := limit
	if goal == 0 {
		goal = e.config.TargetRuleCount
	}

	schedule := e.config.Schedule
	if th.Mode == model.ModeAutoSearch {
		schedule.InitialSupport = th.SupportMin
		schedule.InitialConfidence = th.ConfidenceMin
	}

	common.LogInfo("mining started", common.Fields{
		"task":   task.ModelName,
		"mode":   string(th.Mode),
		"target": target,
		"rows":   table.Len(),
	})

	outcome, err := e.enumerator.Enumerate(ctx, table, prep.Antecedent.Attributes, prep.Consequent.Attributes, mining.Config{
		Thresholds:      th,
		Schedule:        schedule,
		MinRuleLength:   threshold.MinRuleLength,
		TargetRuleCount: goal,
		OnIteration:     e.config.OnIteration,
	})
	if err != nil {
		return nil, fmt.Errorf("rule enumeration failed: %w", err)
	}

	// AutoSearch keeps at most the target count; Fixed mode only honours an
	// explicit hypotheses cap.
	keep := limit
	if th.Mode == model.ModeAutoSearch {
		keep = goal
	}
	candidates := cba.SortRules(outcome.Rules)
	if keep > 0 && len(candidates) > keep {
		common.LogDebug("candidate list truncated", common.Fields{"from": len(candidates), "to": keep})
		candidates = candidates[:keep]
	}

	clf, stats, err := cba.Build(ctx, candidates, table, target, cba.Options{
		Prune:   th.CBAPruningEnabled,
		Workers: e.config.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}

	var warnings []model.Warning
	warnings = append(warnings, prep.Antecedent.Warnings...)
	warnings = append(warnings, prep.Consequent.Warnings...)
	warnings = append(warnings, prep.Normalized.Warnings...)
	warnings = append(warnings, outcome.Warnings...)
	if len(candidates) == 0 {
		warnings = append(warnings, model.Warning{
			Kind:    model.WarnEmptyResult,
			Ref:     target,
			Message: fmt.Sprintf("no rule passed the thresholds; always predicting %q", clf.DefaultClass),
		})
	}
	for _, w := range warnings {
		common.LogWarn("mining warning", common.Fields{"kind": string(w.Kind), "ref": w.Ref, "message": w.Message})
	}

	result := &model.Result{
		ID:              uuid.NewString(),
		CreatedAt:       time.Now().UTC(),
		Dataset:         task.Header.Dataset(),
		TaskName:        task.ModelName,
		Thresholds:      th,
		AntecedentAttrs: prep.Antecedent.Attributes,
		ConsequentAttrs: prep.Consequent.Attributes,
		Classifier:      clf,
		Stats:           stats,
		Warnings:        warnings,
		Rows:            table.Len(),
		Iterations:      outcome.Iterations,
		BudgetExhausted: outcome.BudgetExhausted,
	}

	common.LogInfo("mining finished", common.Fields{
		"result_id": result.ID,
		"rules":     len(clf.Rules),
		"presented": stats.Presented,
		"accuracy":  stats.Accuracy,
		"warnings":  len(warnings),
	})

	return result, nil
}
