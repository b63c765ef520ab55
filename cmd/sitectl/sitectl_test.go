package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/khbm0110/JUUUU/internal/content"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	exportFormat, exportOut, importFormat, importForce = "", "", "", false
	hashCost = bcrypt.MinCost

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func fileStorage(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SITE_CONFIG", filepath.Join(dir, "missing.yaml"))
	t.Setenv("SITE_STORAGE__DRIVER", "file")
	path := filepath.Join(dir, "site.json")
	t.Setenv("SITE_STORAGE__PATH", path)
	return path
}

func TestCheckSiteDefaultsAreClean(t *testing.T) {
	site, err := content.Defaults()
	require.NoError(t, err)
	require.Empty(t, checkSite(site))
}

func TestCheckSiteReportsProblems(t *testing.T) {
	node, err := decodeDocument([]byte(`
testimonials:
  - {id: t1, name: "", comment: ok, rating: 7}
settings:
  themeColor: red
content:
  en:
    services:
      items:
        - {id: s1, title: One}
        - {id: s1, title: Two}
`), formatYAML)
	require.NoError(t, err)
	site, err := siteFromDocument(node)
	require.NoError(t, err)

	problems := checkSite(site)
	require.Contains(t, problems, "content.en.services: duplicate id s1")
	require.Contains(t, problems, "content.en.services: ids differ from content.fr")
	require.Contains(t, problems, "testimonials[0]: rating 7 outside 1..5")
	require.Contains(t, problems, "testimonials[0]: name is empty")
	require.Contains(t, problems, `settings.themeColor: "red" is not gold or blue`)
}

func TestFormatFor(t *testing.T) {
	f, err := formatFor("site.yml", "")
	require.NoError(t, err)
	require.Equal(t, formatYAML, f)
	f, err = formatFor("site.json", "")
	require.NoError(t, err)
	require.Equal(t, formatJSON, f)
	f, err = formatFor("", "YAML")
	require.NoError(t, err)
	require.Equal(t, formatYAML, f)
	_, err = formatFor("", "toml")
	require.Error(t, err)
}

func TestImportThenExport(t *testing.T) {
	stored := fileStorage(t)
	doc := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(doc, []byte("settings:\n  themeColor: blue\n  copyrightName: Cabinet Test\n"), 0o644))

	_, err := run(t, "", "import", doc)
	require.NoError(t, err)

	raw, err := os.ReadFile(stored)
	require.NoError(t, err)
	var saved content.SiteData
	require.NoError(t, json.Unmarshal(raw, &saved))
	require.Equal(t, "blue", saved.Settings.ThemeColor)
	require.Len(t, saved.Content, 3)

	out, err := run(t, "", "export", "--format", "json")
	require.NoError(t, err)
	var exported content.SiteData
	require.NoError(t, json.Unmarshal([]byte(out), &exported))
	require.Equal(t, "Cabinet Test", exported.Settings.CopyrightName)
}

func TestImportRefusesProblemsWithoutForce(t *testing.T) {
	stored := fileStorage(t)
	doc := filepath.Join(t.TempDir(), "site.json")
	require.NoError(t, os.WriteFile(doc, []byte(`{"settings":{"themeColor":"red"}}`), 0o644))

	_, err := run(t, "", "import", doc)
	require.Error(t, err)
	_, statErr := os.Stat(stored)
	require.True(t, os.IsNotExist(statErr))

	_, err = run(t, "", "import", "--force", doc)
	require.NoError(t, err)
	_, statErr = os.Stat(stored)
	require.NoError(t, statErr)
}

func TestValidateCommand(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "site.json")
	require.NoError(t, os.WriteFile(doc, []byte(`{"testimonials":[{"id":"t1","name":"A","comment":"B","rating":0}]}`), 0o644))

	out, err := run(t, "", "validate", doc)
	require.Error(t, err)
	require.Contains(t, out, "testimonials[0]: rating 0 outside 1..5")
}

func TestHashPassword(t *testing.T) {
	out, err := run(t, "s3cret\n", "hash-password")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))

	out, err = run(t, "", "hash-password", "other")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("other")))
}
