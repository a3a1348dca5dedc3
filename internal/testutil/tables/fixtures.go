package tables

import (
	"testing"

	"github.com/Veraticus/rulecart/internal/model"
)

// Group is a block of identical rows within a fixture.
type Group struct {
	Values []string
	Count  int
}

// Fixture is a predefined table.
type Fixture interface {
	Name() string
	Columns() []string
	Groups() []Group
}

type fixture struct {
	name    string
	columns []string
	groups  []Group
}

func (f *fixture) Name() string      { return f.name }
func (f *fixture) Columns() []string { return f.columns }
func (f *fixture) Groups() []Group   { return f.groups }

var (
	// FixtureLoans has 190 rows over district, age and salary.
	// {district=Praha} => {salary=high} holds with confidence 0.95 and support 0.1;
	// {district=Brno, age=young} => {salary=low} holds with confidence 0.85.
	FixtureLoans = &fixture{
		name:    "loans",
		columns: []string{"district", "age", "salary"},
		groups: []Group{
			{Values: []string{"Praha", "old", "high"}, Count: 19},
			{Values: []string{"Praha", "old", "low"}, Count: 1},
			{Values: []string{"Brno", "young", "low"}, Count: 17},
			{Values: []string{"Brno", "young", "high"}, Count: 3},
			{Values: []string{"Ostrava", "old", "high"}, Count: 75},
			{Values: []string{"Ostrava", "old", "low"}, Count: 75},
		},
	}

	// FixtureWeather is a small table with a clean split on outlook.
	FixtureWeather = &fixture{
		name:    "weather",
		columns: []string{"outlook", "windy", "play"},
		groups: []Group{
			{Values: []string{"sunny", "no", "yes"}, Count: 4},
			{Values: []string{"sunny", "yes", "yes"}, Count: 2},
			{Values: []string{"rainy", "yes", "no"}, Count: 4},
			{Values: []string{"rainy", "no", "no"}, Count: 1},
			{Values: []string{"overcast", "no", "yes"}, Count: 2},
			{Values: []string{"overcast", "yes", "no"}, Count: 1},
		},
	}
)

// Loans builds FixtureLoans.
func Loans(t *testing.T) *model.Table {
	t.Helper()
	return NewBuilder(t).WithFixture(FixtureLoans).Build()
}

// Weather builds FixtureWeather.
func Weather(t *testing.T) *model.Table {
	t.Helper()
	return NewBuilder(t).WithFixture(FixtureWeather).Build()
}
