package model

import (
	"fmt"
	"strings"
)

// Interest measure names, compared case-insensitively.
const (
	MeasureConf         = "CONF"
	MeasureFUI          = "FUI"
	MeasureSupp         = "SUPP"
	MeasureLift         = "LIFT"
	MeasureRuleLength   = "RULE_LENGTH"
	MeasureBase         = "BASE"
	MeasureAAD          = "AAD"
	MeasureAutoConfSupp = "AUTO_CONF_SUPP"
	MeasureCBA          = "CBA"
)

// ThresholdKind says whether a threshold is relative or an absolute count.
type ThresholdKind string

// Threshold kinds.
const (
	ThresholdPercentOfAll ThresholdKind = "% of all"
	ThresholdAbsolute     ThresholdKind = "Abs"
)

// ParseThresholdKind defaults to ThresholdPercentOfAll for empty input.
func ParseThresholdKind(s string) (ThresholdKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "% of all", "percentofall", "percent":
		return ThresholdPercentOfAll, nil
	case "abs", "absolute":
		return ThresholdAbsolute, nil
	default:
		return "", fmt.Errorf("unknown threshold type %q", s)
	}
}

// CompareKind is the comparison applied between a rule measure and its threshold.
type CompareKind string

// Compare kinds.
const (
	CompareGreaterOrEqual CompareKind = "Greater than or equal"
	CompareLessOrEqual    CompareKind = "Less than or equal"
	CompareEqual          CompareKind = "Equal"
)

// DefaultCompare is the comparison a measure uses when none is given:
// RULE_LENGTH is an upper bound, AUTO_CONF_SUPP a flag, the rest lower bounds.
func DefaultCompare(measure string) CompareKind {
	switch strings.ToUpper(strings.TrimSpace(measure)) {
	case MeasureRuleLength:
		return CompareLessOrEqual
	case MeasureAutoConfSupp:
		return CompareEqual
	default:
		return CompareGreaterOrEqual
	}
}

// ParseCompareKind reads the comparison of a threshold on measure. Empty
// input yields DefaultCompare(measure).
func ParseCompareKind(measure, s string) (CompareKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultCompare(measure), nil
	case "greater than or equal", ">=", "gte":
		return CompareGreaterOrEqual, nil
	case "less than or equal", "<=", "lte":
		return CompareLessOrEqual, nil
	case "equal", "=", "eq":
		return CompareEqual, nil
	default:
		return "", fmt.Errorf("unknown compare type %q", s)
	}
}

// InterestMeasureThreshold is one quantifier of a mining task.
type InterestMeasureThreshold struct {
	ID        string        `json:"id,omitempty" yaml:"id,omitempty"`
	Measure   string        `json:"measure" yaml:"measure"`
	Kind      ThresholdKind `json:"threshold_type" yaml:"threshold_type"`
	Compare   CompareKind   `json:"compare_type" yaml:"compare_type"`
	Threshold float64       `json:"threshold" yaml:"threshold"`
}

// Is reports whether the threshold names the given measure.
func (t InterestMeasureThreshold) Is(measure string) bool {
	return strings.EqualFold(strings.TrimSpace(t.Measure), measure)
}

// TaskSetting is the parsed, immutable description of a mining task.
type TaskSetting struct {
	HypothesesMax *int                       `json:"hypotheses_max,omitempty" yaml:"hypotheses_max,omitempty"`
	AntecedentID  string                     `json:"antecedent" yaml:"antecedent"`
	ConsequentID  string                     `json:"consequent" yaml:"consequent"`
	BBAs          []BBA                      `json:"bbas" yaml:"bbas"`
	DBAs          []DBA                      `json:"dbas" yaml:"dbas"`
	Thresholds    []InterestMeasureThreshold `json:"thresholds" yaml:"thresholds"`
}

// Measures returns every threshold naming the measure, in document order.
func (ts *TaskSetting) Measures(measure string) []InterestMeasureThreshold {
	var out []InterestMeasureThreshold
	for _, t := range ts.Thresholds {
		if t.Is(measure) {
			out = append(out, t)
		}
	}
	return out
}

// HasMeasure reports whether any threshold names the measure.
func (ts *TaskSetting) HasMeasure(measure string) bool {
	return len(ts.Measures(measure)) > 0
}

// Extension is a free-form header key/value pair.
type Extension struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Header carries the data-source identifier and document metadata.
type Header struct {
	Copyright          string      `json:"copyright,omitempty" yaml:"copyright,omitempty"`
	ApplicationName    string      `json:"application_name,omitempty" yaml:"application_name,omitempty"`
	ApplicationVersion string      `json:"application_version,omitempty" yaml:"application_version,omitempty"`
	Annotation         string      `json:"annotation,omitempty" yaml:"annotation,omitempty"`
	Timestamp          string      `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Extensions         []Extension `json:"extensions" yaml:"extensions"`
}

// Extension looks up a header extension by case-insensitive name.
func (h Header) Extension(name string) (string, bool) {
	for _, ext := range h.Extensions {
		if strings.EqualFold(ext.Name, name) {
			return ext.Value, true
		}
	}
	return "", false
}

// Dataset returns the data-source identifier named by the "dataset" extension.
func (h Header) Dataset() string {
	v, _ := h.Extension("dataset")
	return strings.TrimSpace(v)
}

// MiningTask is a complete task document: header plus task setting.
type MiningTask struct {
	Header    Header      `json:"header" yaml:"header"`
	ModelName string      `json:"model_name,omitempty" yaml:"model_name,omitempty"`
	Algorithm string      `json:"algorithm,omitempty" yaml:"algorithm,omitempty"`
	Setting   TaskSetting `json:"task_setting" yaml:"task_setting"`
}
