// Package taskfile loads mining tasks from disk. PMML documents go through
// the pmml parser; YAML documents describe the same task schema directly.
package taskfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/model"
	"github.com/Veraticus/rulecart/internal/pmml"
	"gopkg.in/yaml.v3"
)

// Load reads a task file, choosing the decoder by extension.
func Load(path string) (*model.MiningTask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("task file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(bytes.NewReader(data))
	case ".xml", ".pmml":
		return pmml.ParseTask(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// DecodeYAML reads a YAML task. Unknown keys are rejected.
func DecodeYAML(r io.Reader) (*model.MiningTask, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var task model.MiningTask
	if err := dec.Decode(&task); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty task file", common.ErrMalformedDocument)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrMalformedDocument, err)
	}
	if err := canonicalize(&task.Setting); err != nil {
		return nil, err
	}
	return &task, nil
}

// canonicalize re-parses the free-text enumerations and checks ids.
func canonicalize(ts *model.TaskSetting) error {
	seen := make(map[string]string)
	claim := func(kind, id string) error {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: %s with empty id", common.ErrMalformedDocument, kind)
		}
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("%w: id %q used by both %s and %s", common.ErrMalformedDocument, id, prev, kind)
		}
		seen[id] = kind
		return nil
	}

	for i := range ts.BBAs {
		b := &ts.BBAs[i]
		if err := claim("bba", b.ID); err != nil {
			return err
		}
		if b.Coefficient.Type == "" {
			b.Coefficient.Type = model.CoefficientSubset
		}
		ct, err := model.ParseCoefficientType(string(b.Coefficient.Type))
		if err != nil {
			return fmt.Errorf("%w: bba %s: %w", common.ErrMalformedDocument, b.ID, err)
		}
		b.Coefficient.Type = ct
		if b.FieldRef == "" {
			b.FieldRef = b.Name
		}
	}

	for i := range ts.DBAs {
		d := &ts.DBAs[i]
		if err := claim("dba", d.ID); err != nil {
			return err
		}
		if d.Kind == 0 {
			d.Kind = model.NodeConjunction
		}
		sign, err := model.ParseLiteralSign(string(d.Sign))
		if err != nil {
			return fmt.Errorf("%w: dba %s: %w", common.ErrMalformedDocument, d.ID, err)
		}
		d.Sign = sign
	}

	for i := range ts.Thresholds {
		t := &ts.Thresholds[i]
		kind, err := model.ParseThresholdKind(string(t.Kind))
		if err != nil {
			return fmt.Errorf("%w: threshold %s: %w", common.ErrMalformedDocument, t.Measure, err)
		}
		cmp, err := model.ParseCompareKind(t.Measure, string(t.Compare))
		if err != nil {
			return fmt.Errorf("%w: threshold %s: %w", common.ErrMalformedDocument, t.Measure, err)
		}
		t.Kind, t.Compare = kind, cmp
	}
	return nil
}
