// Package threshold validates interest-measure thresholds and turns them into
// the canonical mining configuration.
package threshold

import (
	"fmt"
	"strings"

	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/model"
)

// Seeds used by AutoSearch when the task carries no explicit CONF/SUPP.
const (
	AutoSeedConfidence = 0.5
	AutoSeedSupport    = 0.01
)

// Validity bounds for relative thresholds: (MinRelative, 1].
const (
	MinRelative   = 0.001
	MinRuleLength = 1
)

// Normalized is the canonical form of a task's thresholds.
type Normalized struct {
	Measures   []model.InterestMeasureThreshold
	Warnings   []model.Warning
	Thresholds model.Thresholds
}

// ModeOf selects the mining mode from the measures present.
func ModeOf(ts *model.TaskSetting) model.MiningMode {
	if ts.HasMeasure(model.MeasureAutoConfSupp) {
		return model.ModeAutoSearch
	}
	return model.ModeFixed
}

// NormalizeValue maps a relative threshold onto [0,1]. Values above 1.0 are
// read as percentages and divided by 100; the second result reports that.
func NormalizeValue(value float64, kind model.ThresholdKind) (float64, bool) {
	if value > 1.0 {
		if kind == model.ThresholdAbsolute {
			common.LogDebug("absolute threshold read as a percentage", common.Fields{"value": value})
		}
		return value / 100.0, true
	}
	return value, false
}

// Canonicalize returns a copy of the thresholds with defaults filled in and
// RULE_LENGTH forced to an absolute count.
func Canonicalize(thresholds []model.InterestMeasureThreshold) []model.InterestMeasureThreshold {
	out := make([]model.InterestMeasureThreshold, len(thresholds))
	for i, t := range thresholds {
		t.Measure = strings.ToUpper(strings.TrimSpace(t.Measure))
		if t.Kind == "" {
			t.Kind = model.ThresholdPercentOfAll
		}
		if t.Compare == "" {
			t.Compare = model.DefaultCompare(t.Measure)
		}
		if t.Is(model.MeasureRuleLength) {
			t.Kind = model.ThresholdAbsolute
		}
		out[i] = t
	}
	return out
}

// Validate checks the task's thresholds against the resolved consequent
// attributes. It runs before mode selection and before any data is read.
func Validate(ts *model.TaskSetting, consequentAttrs []string) error {
	if ts == nil {
		return common.NewValidationError("task_setting", "task setting is required")
	}

	if err := validateCompare(ts.Thresholds); err != nil {
		return err
	}

	auto := ts.HasMeasure(model.MeasureAutoConfSupp)
	cba := ts.HasMeasure(model.MeasureCBA)

	conf, hasConf := confidenceMeasure(ts)
	supp, hasSupp := first(ts, model.MeasureSupp)

	if !auto {
		if !hasConf {
			return common.NewValidationError(model.MeasureConf, "Confidence is required.")
		}
		if !hasSupp {
			return common.NewValidationError(model.MeasureSupp, "Support is required.")
		}
	}

	ruleLength, hasRuleLength := first(ts, model.MeasureRuleLength)
	if !hasRuleLength {
		return common.NewValidationError(model.MeasureRuleLength, "Max rule length is required.")
	}

	if hasConf && !inRelativeRange(conf.Threshold) {
		return common.NewValidationError(conf.Measure,
			fmt.Sprintf("Confidence must be greater than %g and at most 1, got %g.", MinRelative, conf.Threshold))
	}
	if hasSupp && !inRelativeRange(supp.Threshold) {
		return common.NewValidationError(model.MeasureSupp,
			fmt.Sprintf("Support must be greater than %g and at most 1, got %g.", MinRelative, supp.Threshold))
	}

	if ruleLength.Threshold <= 0 {
		return common.NewValidationError(model.MeasureRuleLength, "Max rule length must be greater than 0.")
	}
	if ruleLength.Threshold < MinRuleLength {
		return common.NewValidationError(model.MeasureRuleLength,
			"Max rule length must equal to or be greater than min rule length.")
	}

	if (auto || cba) && len(consequentAttrs) != 1 {
		reason := "the CBA pruning is turned on"
		if auto {
			reason = "the AUTO_CONF_SUPP parameter is turned on"
		}
		return common.NewValidationError("consequent",
			fmt.Sprintf("You may use only one attribute as the consequent if %s (resolved %d: %v).",
				reason, len(consequentAttrs), consequentAttrs))
	}

	return nil
}

// compareRequired lists the only comparison each bounded measure may use.
var compareRequired = map[string]model.CompareKind{
	model.MeasureConf:         model.CompareGreaterOrEqual,
	model.MeasureFUI:          model.CompareGreaterOrEqual,
	model.MeasureSupp:         model.CompareGreaterOrEqual,
	model.MeasureBase:         model.CompareGreaterOrEqual,
	model.MeasureLift:         model.CompareGreaterOrEqual,
	model.MeasureRuleLength:   model.CompareLessOrEqual,
	model.MeasureAutoConfSupp: model.CompareEqual,
}

func validateCompare(thresholds []model.InterestMeasureThreshold) error {
	for _, t := range thresholds {
		measure := strings.ToUpper(strings.TrimSpace(t.Measure))
		want, ok := compareRequired[measure]
		if !ok || t.Compare == "" || t.Compare == want {
			continue
		}
		return common.NewValidationError(measure,
			fmt.Sprintf("%s must use CompareType=%q, got %q.", measure, want, t.Compare))
	}
	return nil
}

// Normalize converts validated thresholds into the canonical configuration.
func Normalize(ts *model.TaskSetting) Normalized {
	n := Normalized{Measures: Canonicalize(ts.Thresholds)}
	n.Thresholds.Mode = ModeOf(ts)
	n.Thresholds.CBAPruningEnabled = ts.HasMeasure(model.MeasureCBA)

	for _, measure := range []string{
		model.MeasureConf, model.MeasureFUI, model.MeasureSupp, model.MeasureBase,
		model.MeasureLift, model.MeasureAAD, model.MeasureRuleLength,
	} {
		if c := len(ts.Measures(measure)); c > 1 {
			n.warn(model.WarnDuplicateMeasure, measure, "%d thresholds for %s; using the first", c, measure)
		}
	}

	confSet, suppSet := false, false
	if conf, ok := confidenceMeasure(ts); ok {
		n.Thresholds.ConfidenceMin = n.relative(conf)
		confSet = true
	}

	base, hasBase := first(ts, model.MeasureBase)
	supp, hasSupp := first(ts, model.MeasureSupp)
	switch {
	case hasBase:
		if hasSupp {
			n.warn(model.WarnDuplicateMeasure, model.MeasureBase, "BASE and SUPP both set; BASE takes precedence")
		}
		n.Thresholds.SupportMin = n.relative(base)
		suppSet = true
	case hasSupp:
		n.Thresholds.SupportMin = n.relative(supp)
		suppSet = true
	}

	if lift, ok := first(ts, model.MeasureLift); ok {
		v := n.relative(lift)
		n.Thresholds.LiftMin = &v
	}
	if aad, ok := first(ts, model.MeasureAAD); ok {
		v := n.relative(aad)
		n.Thresholds.AADMin = &v
	}
	if rl, ok := first(ts, model.MeasureRuleLength); ok {
		v := int(rl.Threshold)
		n.Thresholds.MaxRuleLength = &v
	}

	if !confSet {
		n.Thresholds.ConfidenceMin = AutoSeedConfidence
	}
	if !suppSet {
		n.Thresholds.SupportMin = AutoSeedSupport
	}

	common.LogDebug("normalized thresholds", common.Fields{
		"mode":       string(n.Thresholds.Mode),
		"confidence": n.Thresholds.ConfidenceMin,
		"support":    n.Thresholds.SupportMin,
		"cba":        n.Thresholds.CBAPruningEnabled,
	})

	return n
}

func (n *Normalized) relative(t model.InterestMeasureThreshold) float64 {
	kind := t.Kind
	if kind == "" {
		kind = model.ThresholdPercentOfAll
	}
	v, rescaled := NormalizeValue(t.Threshold, kind)
	if rescaled {
		n.warn(model.WarnThresholdRescaled, strings.ToUpper(t.Measure),
			"threshold %g marked %q is above 1.0; divided by 100", t.Threshold, kind)
	}
	return v
}

func (n *Normalized) warn(kind model.WarningKind, ref, format string, args ...any) {
	n.Warnings = append(n.Warnings, model.Warning{Kind: kind, Ref: ref, Message: fmt.Sprintf(format, args...)})
}

// confidenceMeasure returns CONF, falling back to its FUI alias.
func confidenceMeasure(ts *model.TaskSetting) (model.InterestMeasureThreshold, bool) {
	if c, ok := first(ts, model.MeasureConf); ok {
		return c, true
	}
	return first(ts, model.MeasureFUI)
}

func first(ts *model.TaskSetting, measure string) (model.InterestMeasureThreshold, bool) {
	m := ts.Measures(measure)
	if len(m) == 0 {
		return model.InterestMeasureThreshold{}, false
	}
	return m[0], true
}

func inRelativeRange(v float64) bool {
	return v > MinRelative && v <= 1.0
}
