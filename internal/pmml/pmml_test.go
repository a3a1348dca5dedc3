package pmml

import (
	"bytes"
	"context"
	"encoding/xml"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/engine"
	"github.com/Veraticus/rulecart/internal/mining"
	"github.com/Veraticus/rulecart/internal/model"
	"github.com/Veraticus/rulecart/internal/testutil/tables"
	"github.com/Veraticus/rulecart/internal/threshold"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTask(t *testing.T) *model.MiningTask {
	t.Helper()
	f, err := os.Open("testdata/loans_task.xml")
	require.NoError(t, err)
	defer f.Close()

	task, err := ParseTask(f)
	require.NoError(t, err)
	return task
}

func TestParseTask(t *testing.T) {
	task := loadTask(t)

	assert.Equal(t, "loans-task", task.ModelName)
	assert.Equal(t, "4ft", task.Algorithm)
	assert.Equal(t, "Copyright (c) rulecart", task.Header.Copyright)
	assert.Equal(t, "EasyMiner", task.Header.ApplicationName)
	assert.Equal(t, "2.0", task.Header.ApplicationVersion)
	assert.Equal(t, "salary by district and age", task.Header.Annotation)
	assert.Equal(t, "2025-01-15 12:00:00 GMT +01:00", task.Header.Timestamp)
	assert.Equal(t, "loans", task.Header.Dataset())
	author, ok := task.Header.Extension("AUTHOR")
	assert.True(t, ok)
	assert.Equal(t, "analyst", author)

	ts := task.Setting
	require.NotNil(t, ts.HypothesesMax)
	assert.Equal(t, 1000, *ts.HypothesesMax)
	assert.Equal(t, "10", ts.AntecedentID)
	assert.Equal(t, "20", ts.ConsequentID)

	require.Len(t, ts.BBAs, 3)
	assert.Equal(t, model.CoefficientOneCategory, ts.BBAs[2].Coefficient.Type)
	assert.Equal(t, "high", ts.BBAs[2].Coefficient.Category)
	assert.Equal(t, 1, ts.BBAs[2].Coefficient.MinimalLength)

	require.Len(t, ts.DBAs, 5)
	assert.Equal(t, model.NodeConjunction, ts.DBAs[0].Kind)
	assert.Equal(t, []string{"11", "12"}, ts.DBAs[0].Children)
	assert.Equal(t, model.NodeLiteral, ts.DBAs[1].Kind)
	assert.Equal(t, model.SignPositive, ts.DBAs[1].Sign)
	assert.Equal(t, 0, ts.DBAs[3].MinimalLength)

	require.Len(t, ts.Thresholds, 4)
	assert.Equal(t, "CONF", ts.Thresholds[0].Measure)
	assert.InDelta(t, 0.8, ts.Thresholds[0].Threshold, 1e-12)
	assert.InDelta(t, 0.05, ts.Thresholds[1].Threshold, 1e-12)
	assert.Equal(t, model.ThresholdPercentOfAll, ts.Thresholds[1].Kind)
	assert.Equal(t, model.ThresholdAbsolute, ts.Thresholds[2].Kind)
	assert.Equal(t, model.CompareLessOrEqual, ts.Thresholds[2].Compare)
	assert.Equal(t, model.CompareGreaterOrEqual, ts.Thresholds[3].Compare)

	require.NoError(t, threshold.Validate(&ts, []string{"salary"}))
}

func TestParseTask_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not xml", doc: "this is not a document"},
		{name: "wrong root", doc: `<Task/>`},
		{name: "no association model", doc: `<PMML version="4.0"><Header/></PMML>`},
		{
			name: "bad threshold",
			doc: `<PMML><AssociationModel><TaskSetting><InterestMeasureSetting>
				<InterestMeasureThreshold id="1"><InterestMeasure>CONF</InterestMeasure><Threshold>high</Threshold></InterestMeasureThreshold>
				</InterestMeasureSetting></TaskSetting></AssociationModel></PMML>`,
		},
		{
			name: "bad dba type",
			doc: `<PMML><AssociationModel><TaskSetting><DBASettings>
				<DBASetting id="1" type="Negation"><BASettingRef>2</BASettingRef></DBASetting>
				</DBASettings></TaskSetting></AssociationModel></PMML>`,
		},
		{
			name: "bad hypotheses count",
			doc: `<PMML><AssociationModel><TaskSetting>
				<Extension name="LISp-Miner"><HypothesesCountMax>many</HypothesesCountMax></Extension>
				</TaskSetting></AssociationModel></PMML>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTask(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, common.ErrMalformedDocument)
		})
	}
}

type parsedResult struct {
	Header struct {
		Extensions []extension `xml:"Extension"`
	} `xml:"Header"`
	Model struct {
		NumberOfTransactions int         `xml:"numberOfTransactions,attr"`
		NumberOfCategories   int         `xml:"numberOfCategories,attr"`
		NumberOfRules        int         `xml:"numberOfRules,attr"`
		Rules                resultRules `xml:"AssociationRules"`
	} `xml:"AssociationModel"`
}

func mineLoans(t *testing.T) *model.Result {
	t.Helper()
	eng := engine.New(mining.NewApriori(2), engine.Config{
		Schedule: mining.Schedule{
			InitialSupport:    0.01,
			InitialConfidence: 0.5,
			ConfidenceStep:    0.05,
			SupportStep:       0.005,
			MinSupport:        0.001,
			MinLength:         1,
			InitialMaxLength:  3,
			MaxIterations:     10,
			Timeout:           5 * time.Second,
		},
		TargetRuleCount: 100,
	})
	result, err := eng.Mine(context.Background(), loadTask(t), tables.Loans(t))
	require.NoError(t, err)
	return result
}

func TestWriteResult(t *testing.T) {
	result := mineLoans(t)
	require.Len(t, result.Classifier.Rules, 1)

	var buf bytes.Buffer
	require.NoError(t, WriteResult(&buf, result, tables.Loans(t)))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, xml.Header))
	assert.Contains(t, out, `xmlns:guha="`+NamespaceGUHA+`"`)
	assert.Contains(t, out, "<guha:AssociationModel")

	var doc parsedResult
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, 190, doc.Model.NumberOfTransactions)
	assert.Equal(t, 1, doc.Model.NumberOfRules)
	assert.Equal(t, 7, doc.Model.NumberOfCategories)

	rules := doc.Model.Rules
	require.Len(t, rules.BBAs, 2)
	assert.Equal(t, "district(Praha)", rules.BBAs[0].Text)
	assert.Equal(t, "salary", rules.BBAs[1].FieldRef)
	assert.Equal(t, "high", rules.BBAs[1].CatRef)
	require.Len(t, rules.DBAs, 2)
	assert.Equal(t, []string{"1"}, rules.DBAs[0].Refs)
	require.Len(t, rules.Rules, 1)
	assert.Equal(t, "district(Praha) => salary(high)", rules.Rules[0].Text)
	assert.Equal(t, "3", rules.Rules[0].Antecedent)
	assert.Equal(t, "4", rules.Rules[0].Consequent)
	assert.Equal(t, fourFtTable{A: 19, B: 1, C: 78, D: 92}, rules.Rules[0].FourFt)

	exts := make(map[string]string)
	for _, e := range doc.Header.Extensions {
		exts[e.Name] = e.Value
	}
	assert.Equal(t, "fixed", exts["mining_mode"])
	assert.Equal(t, "true", exts["cba_applied"])
	assert.Equal(t, "1", exts["cba_m2_rules_count"])
	assert.Equal(t, "salary", exts["cba_target_attribute"])
	assert.Equal(t, "low", exts["default_class"])
	assert.Equal(t, "loans", exts["dataset"])
	assert.Equal(t, result.ID, exts["result_id"])
}

func TestWriteResult_WithoutTable(t *testing.T) {
	result := mineLoans(t)

	var withTable, withoutTable bytes.Buffer
	require.NoError(t, WriteResult(&withTable, result, tables.Loans(t)))
	require.NoError(t, WriteResult(&withoutTable, result, nil))

	var a, b parsedResult
	require.NoError(t, xml.Unmarshal(withTable.Bytes(), &a))
	require.NoError(t, xml.Unmarshal(withoutTable.Bytes(), &b))
	assert.Equal(t, a.Model.Rules.Rules, b.Model.Rules.Rules)
}

func TestWriteResult_NoClassifier(t *testing.T) {
	assert.Error(t, WriteResult(&bytes.Buffer{}, &model.Result{}, nil))
}
