// Package tasks builds mining task documents for tests.
package tasks

import "github.com/Veraticus/rulecart/internal/model"

// Measure returns a relative threshold for the named measure with its usual
// comparison.
func Measure(name string, value float64) model.InterestMeasureThreshold {
	return model.InterestMeasureThreshold{
		Measure:   name,
		Threshold: value,
		Kind:      model.ThresholdPercentOfAll,
		Compare:   model.DefaultCompare(name),
	}
}

// BBA returns a one-category attribute over a field of the same name.
func BBA(id, field string) model.BBA {
	return model.BBA{
		ID:          id,
		Name:        field,
		Text:        field,
		FieldRef:    field,
		Coefficient: model.Coefficient{Type: model.CoefficientSubset, MinimalLength: 1, MaximalLength: 1},
	}
}

// Literal returns a positive literal node over one child.
func Literal(id, child string) model.DBA {
	return model.DBA{ID: id, Kind: model.NodeLiteral, Sign: model.SignPositive, Children: []string{child}}
}

// Conjunction returns a conjunction node.
func Conjunction(id string, children ...string) model.DBA {
	return model.DBA{ID: id, Kind: model.NodeConjunction, Children: children}
}

// Loans returns a task mining salary from district and age over the loans
// fixture, with the given thresholds.
func Loans(thresholds ...model.InterestMeasureThreshold) *model.MiningTask {
	return &model.MiningTask{
		Header: model.Header{
			ApplicationName: "rulecart",
			Extensions:      []model.Extension{{Name: "dataset", Value: "loans"}},
		},
		ModelName: "loans-task",
		Algorithm: "cba",
		Setting: model.TaskSetting{
			AntecedentID: "ante",
			ConsequentID: "cons",
			BBAs: []model.BBA{
				BBA("1", "district"),
				BBA("2", "age"),
				BBA("3", "salary"),
			},
			DBAs: []model.DBA{
				Conjunction("ante", "ante_district", "ante_age"),
				Literal("ante_district", "1"),
				Literal("ante_age", "2"),
				Conjunction("cons", "cons_salary"),
				Literal("cons_salary", "3"),
			},
			Thresholds: thresholds,
		},
	}
}
