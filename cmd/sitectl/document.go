package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/khbm0110/JUUUU/internal/content"
	"github.com/khbm0110/JUUUU/internal/i18n"
	"github.com/khbm0110/JUUUU/internal/tree"
)

// Document formats.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func formatFor(path, explicit string) (string, error) {
	if explicit != "" {
		switch strings.ToLower(explicit) {
		case formatJSON:
			return formatJSON, nil
		case formatYAML, "yml":
			return formatYAML, nil
		}
		return "", fmt.Errorf("unknown format %q", explicit)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML, nil
	}
	return formatJSON, nil
}

// decodeDocument parses a JSON or YAML document into a generic tree.
func decodeDocument(raw []byte, format string) (tree.Node, error) {
	var node map[string]any
	switch format {
	case formatYAML:
		if err := yaml.Unmarshal(raw, &node); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&node); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	}
	if node == nil {
		return nil, fmt.Errorf("document is empty")
	}
	return node, nil
}

// siteFromDocument overlays the document on the defaults, matching how the
// running site reads stored content.
func siteFromDocument(node tree.Node) (content.SiteData, error) {
	defaults, err := content.Defaults()
	if err != nil {
		return content.SiteData{}, err
	}
	base, err := tree.FromValue(defaults)
	if err != nil {
		return content.SiteData{}, err
	}
	var out content.SiteData
	if err := tree.ToValue(tree.Merge(base, node), &out); err != nil {
		return content.SiteData{}, fmt.Errorf("decode site: %w", err)
	}
	return out, nil
}

func encodeDocument(site content.SiteData, format string) ([]byte, error) {
	if format == formatYAML {
		node, err := tree.FromValue(site)
		if err != nil {
			return nil, err
		}
		return yaml.Marshal(node)
	}
	out, err := json.MarshalIndent(site, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// checkSite lists problems that would make the site render badly.
func checkSite(site content.SiteData) []string {
	var problems []string

	var reference []string
	for i, lang := range i18n.Supported() {
		tr, ok := site.Content[string(lang)]
		if !ok {
			problems = append(problems, fmt.Sprintf("content.%s: missing", lang))
			continue
		}
		ids := make([]string, 0, len(tr.Services.Items))
		seen := map[string]bool{}
		for _, svc := range tr.Services.Items {
			if svc.ID == "" {
				problems = append(problems, fmt.Sprintf("content.%s.services: item without id", lang))
				continue
			}
			if seen[svc.ID] {
				problems = append(problems, fmt.Sprintf("content.%s.services: duplicate id %s", lang, svc.ID))
			}
			seen[svc.ID] = true
			ids = append(ids, svc.ID)
		}
		sort.Strings(ids)
		if i == 0 {
			reference = ids
		} else if strings.Join(ids, ",") != strings.Join(reference, ",") {
			problems = append(problems, fmt.Sprintf("content.%s.services: ids differ from content.%s", lang, i18n.Supported()[0]))
		}
	}

	for i, t := range site.Testimonials {
		if t.Rating < 1 || t.Rating > 5 {
			problems = append(problems, fmt.Sprintf("testimonials[%d]: rating %d outside 1..5", i, t.Rating))
		}
		if strings.TrimSpace(t.Name) == "" {
			problems = append(problems, fmt.Sprintf("testimonials[%d]: name is empty", i))
		}
	}
	switch site.Settings.ThemeColor {
	case "", content.ThemeGold, content.ThemeBlue:
	default:
		problems = append(problems, fmt.Sprintf("settings.themeColor: %q is not gold or blue", site.Settings.ThemeColor))
	}
	return problems
}
