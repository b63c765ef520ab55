package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
)

//go:embed locales/*.json
var localeFS embed.FS

// Bundle holds the UI strings (labels, prompts, generic errors) that are not
// part of the editable site content.
type Bundle struct {
	dict     map[Language]map[string]string
	fallback Language
}

// LoadBundle reads the embedded locale files.
func LoadBundle(fallback Language) (*Bundle, error) {
	return LoadBundleFS(localeFS, "locales", fallback)
}

// LoadBundleFS reads <lang>.json files from dir in fsys. Only the fallback
// locale is required.
func LoadBundleFS(fsys fs.FS, dir string, fallback Language) (*Bundle, error) {
	b := &Bundle{
		dict:     map[Language]map[string]string{},
		fallback: fallback,
	}
	for _, lang := range Supported() {
		raw, err := fs.ReadFile(fsys, path.Join(dir, string(lang)+".json"))
		if err != nil {
			if lang == fallback {
				return nil, fmt.Errorf("load locale %s: %w", lang, err)
			}
			continue
		}
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", lang, err)
		}
		b.dict[lang] = m
	}
	if _, ok := b.dict[fallback]; !ok {
		return nil, fmt.Errorf("fallback locale %s not loaded", fallback)
	}
	return b, nil
}

// Fallback returns the configured fallback language.
func (b *Bundle) Fallback() Language { return b.fallback }

// T returns the string for key in lang, falling back to the default language
// and finally to the key itself.
func (b *Bundle) T(lang Language, key string) string {
	if b == nil {
		return key
	}
	if m, ok := b.dict[lang]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := b.dict[b.fallback]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}
