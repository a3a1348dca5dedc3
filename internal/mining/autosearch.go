package mining

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/model"
)

// Validate reports schedule values that would stall the relaxation loop.
func (s Schedule) Validate() error {
	switch {
	case s.MaxIterations <= 0:
		return fmt.Errorf("%w: autosearch max iterations must be positive", common.ErrInvalidConfig)
	case s.ConfidenceStep <= 0:
		return fmt.Errorf("%w: autosearch confidence step must be positive", common.ErrInvalidConfig)
	case s.SupportStep < 0:
		return fmt.Errorf("%w: autosearch support step must not be negative", common.ErrInvalidConfig)
	case s.InitialMaxLength < 1:
		return fmt.Errorf("%w: autosearch initial max length must be at least 1", common.ErrInvalidConfig)
	case s.InitialSupport <= 0 || s.InitialSupport > 1:
		return fmt.Errorf("%w: autosearch initial support must be in (0, 1]", common.ErrInvalidConfig)
	case s.InitialConfidence <= 0 || s.InitialConfidence > 1:
		return fmt.Errorf("%w: autosearch initial confidence must be in (0, 1]", common.ErrInvalidConfig)
	}
	return nil
}

// autoSearch relaxes thresholds until the rule count reaches the target, the
// options run out, or the iteration cap or timeout is hit. Each round first
// grows the maximal rule length while that changes the rule count, then lowers
// confidence by ConfidenceStep, then lowers support by SupportStep down to
// MinSupport. The last discovered rule set is kept.
func (a *Apriori) autoSearch(ctx context.Context, ix *Index, inputs []string, out *Outcome, cfg Config, maxAllowed int) error {
	s := cfg.Schedule
	if err := s.Validate(); err != nil {
		return err
	}

	target := cfg.TargetRuleCount
	if target <= 0 {
		return fmt.Errorf("%w: autosearch target rule count must be positive", common.ErrInvalidConfig)
	}

	p := pass{
		support:    s.InitialSupport,
		confidence: s.InitialConfidence,
		minLen:     max(s.MinLength, cfg.MinRuleLength, 1),
		maxLen:     min(s.InitialMaxLength, maxAllowed),
		lift:       cfg.Thresholds.LiftMin,
		aad:        cfg.Thresholds.AADMin,
	}

	var deadline time.Time
	if s.Timeout > 0 {
		deadline = time.Now().Add(s.Timeout)
	}
	runCtx := ctx
	if !deadline.IsZero() {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	lastCount := -1
	for iter := 1; ; iter++ {
		if iter > s.MaxIterations {
			out.BudgetExhausted = true
			out.Warnings = append(out.Warnings, model.Warning{
				Kind:    model.WarnBudgetExceeded,
				Message: fmt.Sprintf("autosearch stopped after %d iterations with %d rules", s.MaxIterations, len(out.Rules)),
			})
			break
		}

		rules, err := a.mine(runCtx, ix, inputs, out.Target, p)
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				out.BudgetExhausted = true
				out.Warnings = append(out.Warnings, model.Warning{
					Kind:    model.WarnBudgetExceeded,
					Message: fmt.Sprintf("autosearch timed out after %s; keeping %d rules from iteration %d", s.Timeout, len(out.Rules), out.Iterations),
				})
				break
			}
			return err
		}

		out.Rules = rules
		out.Iterations = iter
		out.Final = Iteration{Number: iter, Support: p.support, Confidence: p.confidence, MaxLength: p.maxLen, Rules: len(rules)}
		if cfg.OnIteration != nil {
			cfg.OnIteration(out.Final)
		}
		common.LogDebug("autosearch iteration", common.Fields{
			"iteration":  iter,
			"support":    p.support,
			"confidence": p.confidence,
			"max_length": p.maxLen,
			"rules":      len(rules),
		})

		if len(rules) >= target {
			break
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			out.BudgetExhausted = true
			out.Warnings = append(out.Warnings, model.Warning{
				Kind:    model.WarnBudgetExceeded,
				Message: fmt.Sprintf("autosearch timed out after %s with %d rules", s.Timeout, len(rules)),
			})
			break
		}

		switch {
		case p.maxLen < maxAllowed && len(rules) != lastCount:
			p.maxLen++
			lastCount = len(rules)
		case p.confidence-s.ConfidenceStep > epsilon:
			p.confidence -= s.ConfidenceStep
		case s.SupportStep > 0 && p.support-s.SupportStep+epsilon >= s.MinSupport:
			p.support -= s.SupportStep
		default:
			common.LogDebug("autosearch options exhausted", common.Fields{"rules": len(rules)})
			return nil
		}
	}

	return nil
}
