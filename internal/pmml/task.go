// Package pmml reads PMML 4.0 + GUHA association-rule task documents and
// writes mining results back as PMML AssociationRules.
package pmml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/model"
)

// Namespaces used by task and result documents.
const (
	NamespacePMML = "http://www.dmg.org/PMML-4_0"
	NamespaceGUHA = "http://keg.vse.cz/ns/GUHA0.1rev1"
	NamespaceXSI  = "http://www.w3.org/2001/XMLSchema-instance"
)

// lispMinerExtension names the TaskSetting extension carrying HypothesesCountMax.
const lispMinerExtension = "LISp-Miner"

type taskDocument struct {
	XMLName xml.Name    `xml:"PMML"`
	Model   *taskModel  `xml:"AssociationModel"`
	Version string      `xml:"version,attr"`
	Header  headerInput `xml:"Header"`
}

type headerInput struct {
	Application *struct {
		Name    string `xml:"name,attr"`
		Version string `xml:"version,attr"`
	} `xml:"Application"`
	Copyright  string      `xml:"copyright,attr"`
	Annotation string      `xml:"Annotation"`
	Timestamp  string      `xml:"Timestamp"`
	Extensions []extension `xml:"Extension"`
}

type extension struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type taskModel struct {
	ModelName     string      `xml:"modelName,attr"`
	FunctionName  string      `xml:"functionName,attr"`
	AlgorithmName string      `xml:"algorithmName,attr"`
	TaskSetting   taskSetting `xml:"TaskSetting"`
}

type taskSetting struct {
	Antecedent string          `xml:"AntecedentSetting"`
	Consequent string          `xml:"ConsequentSetting"`
	Extensions []taskExtension `xml:"Extension"`
	BBAs       []bbaSetting    `xml:"BBASettings>BBASetting"`
	DBAs       []dbaSetting    `xml:"DBASettings>DBASetting"`
	Thresholds []imThreshold   `xml:"InterestMeasureSetting>InterestMeasureThreshold"`
}

type taskExtension struct {
	Name               string `xml:"name,attr"`
	HypothesesCountMax string `xml:"HypothesesCountMax"`
}

type bbaSetting struct {
	ID          string      `xml:"id,attr"`
	Text        string      `xml:"Text"`
	Name        string      `xml:"Name"`
	FieldRef    string      `xml:"FieldRef"`
	Coefficient coefficient `xml:"Coefficient"`
}

type coefficient struct {
	MinimalLength *int   `xml:"MinimalLength"`
	MaximalLength *int   `xml:"MaximalLength"`
	Type          string `xml:"Type"`
	Category      string `xml:"Category"`
}

type dbaSetting struct {
	MinimalLength *int     `xml:"MinimalLength"`
	ID            string   `xml:"id,attr"`
	Type          string   `xml:"type,attr"`
	LiteralSign   string   `xml:"LiteralSign"`
	Refs          []string `xml:"BASettingRef"`
}

type imThreshold struct {
	ID            string `xml:"id,attr"`
	Measure       string `xml:"InterestMeasure"`
	Threshold     string `xml:"Threshold"`
	ThresholdType string `xml:"ThresholdType"`
	CompareType   string `xml:"CompareType"`
}

// ParseTask decodes a PMML task document. Structural problems wrap
// common.ErrMalformedDocument; semantic checks are left to the miner.
func ParseTask(r io.Reader) (*model.MiningTask, error) {
	var doc taskDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrMalformedDocument, err)
	}
	if doc.Model == nil {
		return nil, fmt.Errorf("%w: no AssociationModel element", common.ErrMalformedDocument)
	}

	task := &model.MiningTask{
		Header:    convertHeader(doc.Header),
		ModelName: doc.Model.ModelName,
		Algorithm: doc.Model.AlgorithmName,
	}

	ts, err := convertSetting(doc.Model.TaskSetting)
	if err != nil {
		return nil, err
	}
	task.Setting = ts

	common.LogDebug("parsed PMML task", common.Fields{
		"model":      task.ModelName,
		"bbas":       len(ts.BBAs),
		"dbas":       len(ts.DBAs),
		"thresholds": len(ts.Thresholds),
	})
	return task, nil
}

func convertHeader(h headerInput) model.Header {
	out := model.Header{
		Copyright:  h.Copyright,
		Annotation: strings.TrimSpace(h.Annotation),
		Timestamp:  strings.TrimSpace(h.Timestamp),
		Extensions: make([]model.Extension, 0, len(h.Extensions)),
	}
	if h.Application != nil {
		out.ApplicationName = h.Application.Name
		out.ApplicationVersion = h.Application.Version
	}
	for _, ext := range h.Extensions {
		out.Extensions = append(out.Extensions, model.Extension{Name: ext.Name, Value: ext.Value})
	}
	return out
}

func convertSetting(in taskSetting) (model.TaskSetting, error) {
	ts := model.TaskSetting{
		AntecedentID: strings.TrimSpace(in.Antecedent),
		ConsequentID: strings.TrimSpace(in.Consequent),
		BBAs:         make([]model.BBA, 0, len(in.BBAs)),
		DBAs:         make([]model.DBA, 0, len(in.DBAs)),
		Thresholds:   make([]model.InterestMeasureThreshold, 0, len(in.Thresholds)),
	}

	for _, ext := range in.Extensions {
		if ext.Name != lispMinerExtension || strings.TrimSpace(ext.HypothesesCountMax) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(ext.HypothesesCountMax))
		if err != nil {
			return ts, fmt.Errorf("%w: HypothesesCountMax %q: %w", common.ErrMalformedDocument, ext.HypothesesCountMax, err)
		}
		ts.HypothesesMax = &n
		break
	}

	for _, b := range in.BBAs {
		ct, err := model.ParseCoefficientType(b.Coefficient.Type)
		if err != nil {
			return ts, fmt.Errorf("%w: BBASetting %s: %w", common.ErrMalformedDocument, b.ID, err)
		}
		ts.BBAs = append(ts.BBAs, model.BBA{
			ID:       b.ID,
			Text:     strings.TrimSpace(b.Text),
			Name:     strings.TrimSpace(b.Name),
			FieldRef: strings.TrimSpace(b.FieldRef),
			Coefficient: model.Coefficient{
				Type:          ct,
				Category:      strings.TrimSpace(b.Coefficient.Category),
				MinimalLength: intOr(b.Coefficient.MinimalLength, 1),
				MaximalLength: intOr(b.Coefficient.MaximalLength, 1),
			},
		})
	}

	for _, d := range in.DBAs {
		kind, err := model.ParseNodeKind(d.Type)
		if err != nil {
			return ts, fmt.Errorf("%w: DBASetting %s: %w", common.ErrMalformedDocument, d.ID, err)
		}
		sign, err := model.ParseLiteralSign(d.LiteralSign)
		if err != nil {
			return ts, fmt.Errorf("%w: DBASetting %s: %w", common.ErrMalformedDocument, d.ID, err)
		}
		refs := make([]string, 0, len(d.Refs))
		for _, ref := range d.Refs {
			refs = append(refs, strings.TrimSpace(ref))
		}
		ts.DBAs = append(ts.DBAs, model.DBA{
			ID:            d.ID,
			Kind:          kind,
			Sign:          sign,
			Children:      refs,
			MinimalLength: intOr(d.MinimalLength, 1),
		})
	}

	for _, t := range in.Thresholds {
		value, err := strconv.ParseFloat(strings.TrimSpace(t.Threshold), 64)
		if err != nil {
			return ts, fmt.Errorf("%w: threshold %s (%s): %w", common.ErrMalformedDocument, t.ID, t.Measure, err)
		}
		kind, err := model.ParseThresholdKind(t.ThresholdType)
		if err != nil {
			return ts, fmt.Errorf("%w: threshold %s: %w", common.ErrMalformedDocument, t.ID, err)
		}
		cmp, err := model.ParseCompareKind(t.Measure, t.CompareType)
		if err != nil {
			return ts, fmt.Errorf("%w: threshold %s: %w", common.ErrMalformedDocument, t.ID, err)
		}
		ts.Thresholds = append(ts.Thresholds, model.InterestMeasureThreshold{
			ID:        t.ID,
			Measure:   strings.TrimSpace(t.Measure),
			Threshold: value,
			Kind:      kind,
			Compare:   cmp,
		})
	}

	return ts, nil
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
