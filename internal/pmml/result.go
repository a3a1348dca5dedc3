package pmml

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Veraticus/rulecart/internal/mining"
	"github.com/Veraticus/rulecart/internal/model"
)

const schemaLocation = NamespacePMML + " http://sewebar.vse.cz/schemas/PMML4.0+GUHA0.1.xsd"

type resultDocument struct {
	XMLName        xml.Name    `xml:"PMML"`
	Header         *resultHead `xml:"Header,omitempty"`
	Model          resultModel `xml:"guha:AssociationModel"`
	XMLNS          string      `xml:"xmlns,attr"`
	XMLNSXSI       string      `xml:"xmlns:xsi,attr"`
	XMLNSPMML      string      `xml:"xmlns:pmml,attr"`
	XMLNSGUHA      string      `xml:"xmlns:guha,attr"`
	Version        string      `xml:"version,attr"`
	SchemaLocation string      `xml:"xsi:schemaLocation,attr"`
}

type resultHead struct {
	Extensions []extension `xml:"Extension"`
}

type resultModel struct {
	ModelName            string      `xml:"modelName,attr"`
	FunctionName         string      `xml:"functionName,attr"`
	AlgorithmName        string      `xml:"algorithmName,attr"`
	NumberOfTransactions int         `xml:"numberOfTransactions,attr"`
	NumberOfCategories   int         `xml:"numberOfCategories,attr"`
	NumberOfRules        int         `xml:"numberOfRules,attr"`
	Rules                resultRules `xml:"AssociationRules"`
}

type resultRules struct {
	BBAs  []resultBBA  `xml:"BBA"`
	DBAs  []resultDBA  `xml:"DBA"`
	Rules []resultRule `xml:"AssociationRule"`
}

type resultBBA struct {
	ID       string `xml:"id,attr"`
	Literal  bool   `xml:"literal,attr"`
	Text     string `xml:"Text"`
	FieldRef string `xml:"FieldRef"`
	CatRef   string `xml:"CatRef"`
}

type resultDBA struct {
	ID         string   `xml:"id,attr"`
	Connective string   `xml:"connective,attr"`
	Literal    bool     `xml:"literal,attr"`
	Text       string   `xml:"Text"`
	Refs       []string `xml:"BARef"`
}

type resultRule struct {
	ID         string      `xml:"id,attr"`
	Antecedent string      `xml:"antecedent,attr,omitempty"`
	Consequent string      `xml:"consequent,attr"`
	Text       string      `xml:"Text"`
	FourFt     fourFtTable `xml:"FourFtTable"`
}

type fourFtTable struct {
	A int `xml:"a,attr"`
	B int `xml:"b,attr"`
	C int `xml:"c,attr"`
	D int `xml:"d,attr"`
}

// Extensions returns the header extensions describing a result.
func Extensions(result *model.Result) []model.Extension {
	mode := string(result.Thresholds.Mode)
	exts := []model.Extension{
		{Name: "mining_mode", Value: mode},
		{Name: "algorithm", Value: "apriori-cba"},
		{Name: "result_id", Value: result.ID},
	}
	if result.Dataset != "" {
		exts = append(exts, model.Extension{Name: "dataset", Value: result.Dataset})
	}
	if result.Iterations > 0 {
		exts = append(exts, model.Extension{Name: "iterations", Value: strconv.Itoa(result.Iterations)})
	}
	exts = append(exts, model.Extension{Name: "budget_exhausted", Value: strconv.FormatBool(result.BudgetExhausted)})

	clf := result.Classifier
	if clf != nil {
		exts = append(exts,
			model.Extension{Name: "cba_applied", Value: strconv.FormatBool(result.Stats.Pruned)},
			model.Extension{Name: "cba_accuracy", Value: strconv.FormatFloat(result.Stats.Accuracy, 'f', 4, 64)},
			model.Extension{Name: "cba_original_rules_count", Value: strconv.Itoa(result.Stats.Presented)},
			model.Extension{Name: "cba_m1_rules_count", Value: strconv.Itoa(result.Stats.AfterM1)},
			model.Extension{Name: "cba_m2_rules_count", Value: strconv.Itoa(result.Stats.AfterM2)},
			model.Extension{Name: "cba_target_attribute", Value: clf.Target},
			model.Extension{Name: "default_class", Value: clf.DefaultClass},
		)
	}
	return exts
}

// WriteResult serializes the classifier rules of result as PMML. When table
// is given the four-fold tables are counted over it; otherwise they are
// derived from the stored rule counts and class distribution.
func WriteResult(w io.Writer, result *model.Result, table *model.Table) error {
	if result == nil || result.Classifier == nil {
		return fmt.Errorf("result has no classifier")
	}
	clf := result.Classifier

	var ix *mining.Index
	categories := 0
	if table != nil {
		columns := append(append([]string(nil), result.AntecedentAttrs...), clf.Target)
		ix = mining.NewIndex(table, columns)
		for _, col := range columns {
			categories += len(ix.Items(col))
		}
	}

	items := collectItems(clf.Rules)
	bbaIDs := make(map[model.Item]string, len(items))
	bbas := make([]resultBBA, 0, len(items))
	for i, item := range items {
		id := strconv.Itoa(i + 1)
		bbaIDs[item] = id
		bbas = append(bbas, resultBBA{
			ID:       id,
			Text:     fmt.Sprintf("%s(%s)", item.Attribute, item.Value),
			FieldRef: item.Attribute,
			CatRef:   item.Value,
		})
	}
	if ix == nil {
		categories = len(bbas)
	}

	nextDBA := len(bbas) + 1
	newDBA := func() string {
		id := strconv.Itoa(nextDBA)
		nextDBA++
		return id
	}

	var dbas []resultDBA
	rules := make([]resultRule, 0, len(clf.Rules))
	for i, r := range clf.Rules {
		anteText := cedentText(r.Antecedent)
		consText := cedentText([]model.Item{r.Consequent})

		rule := resultRule{
			ID:     strconv.Itoa(i + 1),
			Text:   anteText + " => " + consText,
			FourFt: fourFold(ix, r.CandidateRule, clf, result.Rows),
		}
		if len(r.Antecedent) > 0 {
			rule.Antecedent = newDBA()
			dbas = append(dbas, dbaFor(rule.Antecedent, anteText, r.Antecedent, bbaIDs))
		}
		rule.Consequent = newDBA()
		dbas = append(dbas, dbaFor(rule.Consequent, consText, []model.Item{r.Consequent}, bbaIDs))
		rules = append(rules, rule)
	}

	name := result.TaskName
	if name == "" {
		name = result.ID
	}
	doc := resultDocument{
		XMLNS:          NamespacePMML,
		XMLNSXSI:       NamespaceXSI,
		XMLNSPMML:      NamespacePMML,
		XMLNSGUHA:      NamespaceGUHA,
		Version:        "4.0",
		SchemaLocation: schemaLocation,
		Header:         &resultHead{},
		Model: resultModel{
			ModelName:            name,
			FunctionName:         "associationRules",
			AlgorithmName:        "4ft",
			NumberOfTransactions: result.Rows,
			NumberOfCategories:   categories,
			NumberOfRules:        len(rules),
			Rules:                resultRules{BBAs: bbas, DBAs: dbas, Rules: rules},
		},
	}
	for _, ext := range Extensions(result) {
		doc.Header.Extensions = append(doc.Header.Extensions, extension{Name: ext.Name, Value: ext.Value})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write PMML: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode PMML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode PMML: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func dbaFor(id, text string, members []model.Item, bbaIDs map[model.Item]string) resultDBA {
	refs := make([]string, len(members))
	for i, m := range members {
		refs[i] = bbaIDs[m]
	}
	return resultDBA{ID: id, Connective: "Conjunction", Literal: true, Text: text, Refs: refs}
}

func collectItems(rules []model.ClassifierRule) []model.Item {
	seen := make(map[model.Item]struct{})
	var items []model.Item
	add := func(item model.Item) {
		if _, ok := seen[item]; !ok {
			seen[item] = struct{}{}
			items = append(items, item)
		}
	}
	for _, r := range rules {
		for _, item := range r.Antecedent {
			add(item)
		}
		add(r.Consequent)
	}
	model.SortItems(items)
	return items
}

func cedentText(items []model.Item) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%s(%s)", item.Attribute, item.Value)
	}
	sort.Strings(parts)
	return strings.Join(parts, " & ")
}

func fourFold(ix *mining.Index, rule model.CandidateRule, clf *model.Classifier, rows int) fourFtTable {
	if ix != nil {
		ff := ix.FourFold(rule)
		return fourFtTable{A: ff.A, B: ff.B, C: ff.C, D: ff.D}
	}
	a := rule.SupportCount
	b := rule.AntecedentCount - a
	c := int(math.Round(clf.Distribution[rule.Consequent.Value]*float64(rows))) - a
	return fourFtTable{A: a, B: b, C: c, D: rows - a - b - c}
}
