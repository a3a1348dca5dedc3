// Package resolver flattens derived boolean attribute trees into the set of
// transaction-table columns they reference.
package resolver

import (
	"fmt"
	"sort"

	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/model"
)

// Resolution is the outcome of resolving one root.
type Resolution struct {
	Attributes []string
	Warnings   []model.Warning
}

type walker struct {
	dbas     map[string]*model.DBA
	bbas     map[string]*model.BBA
	names    map[string]struct{}
	onPath   map[string]bool
	done     map[string]bool
	warnings []model.Warning
}

// Resolve walks the DBA graph depth-first from rootID and returns the sorted,
// deduplicated attribute names of every BBA reached. Unmatched references and
// cycles are skipped and reported as warnings. An unknown root is an error.
func Resolve(rootID string, ts *model.TaskSetting) (Resolution, error) {
	if ts == nil {
		return Resolution{}, fmt.Errorf("%w: nil task setting", common.ErrTaskSpecInvalid)
	}

	w := &walker{
		dbas:   make(map[string]*model.DBA, len(ts.DBAs)),
		bbas:   make(map[string]*model.BBA, len(ts.BBAs)),
		names:  make(map[string]struct{}),
		onPath: make(map[string]bool),
		done:   make(map[string]bool),
	}
	for i := range ts.DBAs {
		w.dbas[ts.DBAs[i].ID] = &ts.DBAs[i]
	}
	for i := range ts.BBAs {
		w.bbas[ts.BBAs[i].ID] = &ts.BBAs[i]
	}

	root, ok := w.dbas[rootID]
	if !ok {
		// A bare BBA root is accepted as a single-attribute tree.
		if bba, isBBA := w.bbas[rootID]; isBBA && rootID != "" {
			return Resolution{Attributes: []string{attributeName(bba)}}, nil
		}
		return Resolution{}, &common.ValidationError{
			Err:     common.ErrUnresolvableRoot,
			Field:   "root",
			Message: fmt.Sprintf("root %q is not a defined DBA", rootID),
		}
	}

	w.visitDBA(root)

	attrs := make([]string, 0, len(w.names))
	for name := range w.names {
		attrs = append(attrs, name)
	}
	sort.Strings(attrs)

	return Resolution{Attributes: attrs, Warnings: w.warnings}, nil
}

func (w *walker) warn(kind model.WarningKind, ref, format string, args ...any) {
	w.warnings = append(w.warnings, model.Warning{
		Kind:    kind,
		Ref:     ref,
		Message: fmt.Sprintf(format, args...),
	})
	common.LogWarn("attribute resolution", common.Fields{"kind": string(kind), "ref": ref})
}

func (w *walker) visitDBA(dba *model.DBA) {
	if w.onPath[dba.ID] {
		w.warn(model.WarnReferenceCycle, dba.ID, "DBA %q is part of a reference cycle; branch skipped", dba.ID)
		return
	}
	if w.done[dba.ID] {
		return
	}

	w.onPath[dba.ID] = true
	defer func() {
		delete(w.onPath, dba.ID)
		w.done[dba.ID] = true
	}()

	switch dba.Kind {
	case model.NodeConjunction, model.NodeDisjunction:
		for _, ref := range dba.Children {
			w.visitRef(dba.ID, ref)
		}
	case model.NodeLiteral:
		if len(dba.Children) != 1 {
			w.warn(model.WarnLiteralArity, dba.ID, "literal DBA %q has %d children, expected 1", dba.ID, len(dba.Children))
		}
		for _, ref := range dba.Children {
			w.visitRef(dba.ID, ref)
		}
	default:
		w.warn(model.WarnUnknownNodeKind, dba.ID, "DBA %q has unknown node kind %v; branch skipped", dba.ID, dba.Kind)
	}
}

// visitRef looks a child up among DBAs first, then BBAs.
func (w *walker) visitRef(parent, ref string) {
	if child, ok := w.dbas[ref]; ok {
		w.visitDBA(child)
		return
	}
	if bba, ok := w.bbas[ref]; ok {
		w.names[attributeName(bba)] = struct{}{}
		return
	}
	w.warn(model.WarnUnmatchedReference, ref, "reference %q from DBA %q matches no DBA or BBA", ref, parent)
}

// attributeName is the column a BBA tests; FieldRef stands in for a blank Name.
func attributeName(bba *model.BBA) string {
	if bba.Name != "" {
		return bba.Name
	}
	return bba.FieldRef
}
