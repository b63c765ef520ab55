// Package editor holds the admin's uncommitted edits. A Draft is an
// immutable copy of the site tree; ops produce new drafts and nothing reaches
// the public site until a Workspace commit hands the draft to content.Store.
package editor

import (
	"encoding/json"
	"fmt"

	"github.com/khbm0110/JUUUU/internal/content"
	"github.com/khbm0110/JUUUU/internal/i18n"
	"github.com/khbm0110/JUUUU/internal/tree"
)

// Draft is a snapshot of site data under edit.
type Draft struct {
	root     tree.Node
	base     string
	revision int
	newID    func(prefix string) string
}

// NewDraft copies site into a draft.
func NewDraft(site content.SiteData) (Draft, error) {
	root, err := tree.FromValue(site)
	if err != nil {
		return Draft{}, fmt.Errorf("editor: %w", err)
	}
	return Draft{root: root, base: fingerprint(root)}, nil
}

// Apply returns the draft with op applied. Ops whose paths do not resolve, or
// whose result would no longer decode as site data, leave the draft as it was
// and report false.
func (d Draft) Apply(op Op) (Draft, bool) {
	if op == nil || d.root == nil {
		return d, false
	}
	env := &applyEnv{newID: d.newID}
	if env.newID == nil {
		env.newID = defaultID
	}
	next, ok := op.apply(d.root, env)
	if !ok {
		return d, false
	}
	var decoded content.SiteData
	if err := tree.ToValue(next, &decoded); err != nil {
		return d, false
	}
	d.root = next
	d.revision++
	return d, true
}

// ApplyAll applies ops in order and reports how many took effect.
func (d Draft) ApplyAll(ops ...Op) (Draft, int) {
	applied := 0
	for _, op := range ops {
		var ok bool
		if d, ok = d.Apply(op); ok {
			applied++
		}
	}
	return d, applied
}

// Site decodes the draft.
func (d Draft) Site() (content.SiteData, error) {
	var out content.SiteData
	if err := tree.ToValue(d.root, &out); err != nil {
		return content.SiteData{}, fmt.Errorf("editor: %w", err)
	}
	return out, nil
}

// Translations returns the draft copy of lang's content.
func (d Draft) Translations(lang i18n.Language) content.Translations {
	site, err := d.Site()
	if err != nil {
		return content.Translations{}
	}
	return site.Content[string(lang)]
}

// Value reads a scalar at a dotted path from the root, for form prefill.
func (d Draft) Value(path string) string {
	return tree.String(d.root, tree.SplitPath(path))
}

// Dirty reports whether the draft differs from the data it was created from.
func (d Draft) Dirty() bool {
	return d.root != nil && fingerprint(d.root) != d.base
}

// Revision counts applied ops.
func (d Draft) Revision() int { return d.revision }

// fingerprint encodes root as site data, so keys the model does not carry
// never count as a change. encoding/json sorts map keys.
func fingerprint(root tree.Node) string {
	var site content.SiteData
	if err := tree.ToValue(root, &site); err != nil {
		return ""
	}
	raw, err := json.Marshal(site)
	if err != nil {
		return ""
	}
	return string(raw)
}
