package editor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/khbm0110/JUUUU/internal/content"
	"github.com/khbm0110/JUUUU/internal/i18n"
)

type memRepo struct {
	payload []byte
	saveErr error
}

func (m *memRepo) Load(context.Context) ([]byte, error) {
	if m.payload == nil {
		return nil, content.ErrNotFound
	}
	return m.payload, nil
}

func (m *memRepo) Save(_ context.Context, payload []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.payload = payload
	return nil
}

func newDraft(t *testing.T) Draft {
	t.Helper()
	site, err := content.Defaults()
	require.NoError(t, err)
	d, err := NewDraft(site)
	require.NoError(t, err)
	return d
}

func sequentialIDs() func(string) string {
	n := 0
	return func(prefix string) string {
		n++
		return fmt.Sprintf("%snew%d", prefix, n)
	}
}

func TestSetFieldWritesOneLanguage(t *testing.T) {
	d := newDraft(t)

	d, ok := d.Apply(SetField{Lang: i18n.English, Path: []string{"hero", "title"}, Value: `Line one\nLine <b>two</b>`})
	require.True(t, ok)
	require.True(t, d.Dirty())
	require.Equal(t, "Line one\nLine two", d.Translations(i18n.English).Hero.Title)
	require.NotEqual(t, "Line one\nLine two", d.Translations(i18n.French).Hero.Title)
}

func TestSetFieldMissingPathIsNoop(t *testing.T) {
	d := newDraft(t)

	for _, op := range []Op{
		SetField{Lang: i18n.English, Path: []string{"nope", "title"}, Value: "x"},
		SetField{Lang: i18n.English, Path: []string{"services", "items", "9", "title"}, Value: "x"},
		SetField{Lang: "de", Path: []string{"hero", "title"}, Value: "x"},
		SetField{Lang: i18n.English, Path: []string{"services"}, Value: "x"},
	} {
		next, ok := d.Apply(op)
		require.False(t, ok, "%#v", op)
		require.False(t, next.Dirty())
	}
}

func TestUnknownKeyLeavesDraftClean(t *testing.T) {
	d := newDraft(t)
	before, err := d.Site()
	require.NoError(t, err)

	next, _ := d.Apply(SetField{Lang: i18n.French, Path: []string{"about", "bogus"}, Value: "x"})
	require.False(t, next.Dirty())
	after, err := next.Site()
	require.NoError(t, err)
	require.Equal(t, before, after)

	next, _ = next.Apply(SetSetting{Path: []string{"settings", "bogus"}, Value: "x"})
	require.False(t, next.Dirty())

	next, ok := next.Apply(SetField{Lang: i18n.French, Path: []string{"about", "p1"}, Value: "Nouveau"})
	require.True(t, ok)
	require.True(t, next.Dirty())
}

func TestSetFieldKeepsNumbers(t *testing.T) {
	d := newDraft(t)

	d, ok := d.Apply(SetField{Lang: i18n.French, Path: []string{"stats", "items", "1", "value"}, Value: "420"})
	require.True(t, ok)
	require.Equal(t, float64(420), d.Translations(i18n.French).StatItems()[1].Value)

	_, ok = d.Apply(SetField{Lang: i18n.French, Path: []string{"stats", "items", "1", "value"}, Value: "many"})
	require.False(t, ok)
}

func TestAddServiceToEveryLanguage(t *testing.T) {
	d := newDraft(t)
	d.newID = sequentialIDs()

	d, ok := d.Apply(AddListItem{
		Collection: Services,
		Lang:       i18n.English,
		Template:   map[string]any{"title": "Tax Law", "description": "Audits and disputes.", "icon": "scale"},
	})
	require.True(t, ok)

	en := d.Translations(i18n.English).Services.Items
	fr := d.Translations(i18n.French).Services.Items
	ar := d.Translations(i18n.Arabic).Services.Items
	require.Len(t, en, 5)
	require.Len(t, fr, 5)
	require.Len(t, ar, 5)

	require.Equal(t, content.Service{ID: "s_new1", Icon: "scale", Title: "Tax Law", Description: "Audits and disputes."}, en[4])
	require.Equal(t, "s_new1", fr[4].ID)
	require.Equal(t, "Nouveau Service", fr[4].Title)
	require.Equal(t, "scale", ar[4].Icon)
	require.Equal(t, "خدمة جديدة", ar[4].Title)
}

func TestAddServiceCreatesMissingSection(t *testing.T) {
	site, err := content.Defaults()
	require.NoError(t, err)
	tr := site.Content["ar"]
	tr.Services = content.Services{}
	site.Content["ar"] = tr
	d, err := NewDraft(site)
	require.NoError(t, err)

	d, ok := d.Apply(AddListItem{Collection: Services, Lang: i18n.French, ID: "s_x"})
	require.True(t, ok)
	services := d.Translations(i18n.Arabic).Services
	require.Equal(t, "مجالات خبرتنا", services.Title)
	require.Len(t, services.Items, 1)
	require.Equal(t, "briefcase", services.Items[0].Icon)
}

func TestRemoveServiceFromEveryLanguage(t *testing.T) {
	d := newDraft(t)

	d, ok := d.Apply(RemoveListItem{Collection: Services, ID: "s2"})
	require.True(t, ok)
	for _, lang := range i18n.Supported() {
		items := d.Translations(lang).Services.Items
		require.Len(t, items, 3, lang)
		for _, item := range items {
			require.NotEqual(t, "s2", item.ID)
		}
	}

	_, ok = d.Apply(RemoveListItem{Collection: Services, ID: "s2"})
	require.False(t, ok)
}

func TestServiceIconIsShared(t *testing.T) {
	d := newDraft(t)

	d, ok := d.Apply(SetItemField{Collection: Services, ID: "s1", Field: "icon", Value: "scale"})
	require.True(t, ok)
	for _, lang := range i18n.Supported() {
		require.Equal(t, "scale", d.Translations(lang).Services.Items[0].Icon, lang)
	}

	d, ok = d.Apply(SetItemField{Collection: Services, ID: "s1", Lang: i18n.Arabic, Field: "title", Value: "عنوان"})
	require.True(t, ok)
	require.Equal(t, "عنوان", d.Translations(i18n.Arabic).Services.Items[0].Title)
	require.NotEqual(t, "عنوان", d.Translations(i18n.French).Services.Items[0].Title)
}

func TestTestimonialLifecycle(t *testing.T) {
	d := newDraft(t)
	d.newID = sequentialIDs()

	d, ok := d.Apply(UpsertTestimonial{Name: "Ada", Comment: "Great", Rating: 9})
	require.True(t, ok)
	site, err := d.Site()
	require.NoError(t, err)
	require.Len(t, site.Testimonials, 4)
	require.Equal(t, content.Testimonial{ID: "t_new1", Name: "Ada", Comment: "Great", Rating: 5}, site.Testimonials[3])

	d, ok = d.Apply(UpsertTestimonial{ID: "t2", Name: "M. Martin", Comment: "Parfait", Rating: 4})
	require.True(t, ok)
	d, ok = d.Apply(SetItemField{Collection: Testimonials, ID: "t_new1", Field: "rating", Value: "3"})
	require.True(t, ok)
	d, ok = d.Apply(DeleteTestimonial{ID: "t1"})
	require.True(t, ok)

	site, err = d.Site()
	require.NoError(t, err)
	require.Len(t, site.Testimonials, 3)
	require.Equal(t, "M. Martin", site.Testimonials[0].Name)
	require.Equal(t, 3, site.Testimonials[2].Rating)

	_, ok = d.Apply(UpsertTestimonial{ID: "missing", Name: "x"})
	require.False(t, ok)
}

func TestSetSetting(t *testing.T) {
	d := newDraft(t)

	d, ok := d.Apply(SetSetting{Path: []string{"settings", "themeColor"}, Value: "blue"})
	require.True(t, ok)
	_, ok = d.Apply(SetSetting{Path: []string{"settings", "themeColor"}, Value: "red"})
	require.False(t, ok)
	_, ok = d.Apply(SetSetting{Path: []string{"content", "fr", "pageTitle"}, Value: "x"})
	require.False(t, ok)
	d, ok = d.Apply(SetSetting{Path: []string{"contact", "email"}, Value: "office@example.com"})
	require.True(t, ok)

	site, err := d.Site()
	require.NoError(t, err)
	require.Equal(t, content.ThemeBlue, site.Settings.Theme())
	require.Equal(t, "office@example.com", site.Contact.Email)
}

func TestDraftIsImmutable(t *testing.T) {
	d := newDraft(t)
	before := d.Translations(i18n.French).Hero.Title

	next, ok := d.Apply(SetField{Lang: i18n.French, Path: []string{"hero", "title"}, Value: "Nouveau"})
	require.True(t, ok)
	require.Equal(t, before, d.Translations(i18n.French).Hero.Title)
	require.Equal(t, "Nouveau", next.Translations(i18n.French).Hero.Title)
	require.Equal(t, 1, next.Revision())
}

func TestWorkspaceCommit(t *testing.T) {
	repo := &memRepo{}
	store, err := content.NewStore(repo, nil)
	require.NoError(t, err)
	store.Load(context.Background())
	ws := NewWorkspace(store)

	_, applied, err := ws.Apply("sess", SetField{Lang: i18n.English, Path: []string{"hero", "title"}, Value: "Draft title"})
	require.NoError(t, err)
	require.Equal(t, 1, applied)
	require.True(t, ws.Pending("sess"))
	require.NotEqual(t, "Draft title", store.Get("en").Hero.Title)

	require.ErrorIs(t, ws.Commit(context.Background(), "sess", false), ErrConfirmationRequired)
	require.NotEqual(t, "Draft title", store.Get("en").Hero.Title)

	require.NoError(t, ws.Commit(context.Background(), "sess", true))
	require.Equal(t, "Draft title", store.Get("en").Hero.Title)
	require.False(t, ws.Pending("sess"))
	require.NotNil(t, repo.payload)

	require.ErrorIs(t, ws.Commit(context.Background(), "sess", true), ErrNoChanges)
}

func TestWorkspaceCommitPersistFailure(t *testing.T) {
	repo := &memRepo{saveErr: errors.New("disk full")}
	store, err := content.NewStore(repo, nil)
	require.NoError(t, err)
	ws := NewWorkspace(store)

	_, _, err = ws.Apply("sess", SetSetting{Path: []string{"settings", "copyrightName"}, Value: "Cabinet"})
	require.NoError(t, err)
	err = ws.Commit(context.Background(), "sess", true)
	require.ErrorIs(t, err, content.ErrNotPersisted)
	require.Equal(t, "Cabinet", store.Site().Settings.CopyrightName)
	require.False(t, ws.Pending("sess"))
}

func TestWorkspaceDraftsArePerSessionAndExpire(t *testing.T) {
	store, err := content.NewStore(nil, nil)
	require.NoError(t, err)
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	ws := NewWorkspace(store, WithClock(func() time.Time { return now }), WithTTL(time.Hour))

	_, _, err = ws.Apply("a", SetField{Lang: i18n.French, Path: []string{"hero", "title"}, Value: "A"})
	require.NoError(t, err)
	require.True(t, ws.Pending("a"))
	require.False(t, ws.Pending("b"))

	now = now.Add(2 * time.Hour)
	require.Equal(t, 1, ws.Sweep())
	require.False(t, ws.Pending("a"))

	_, _, err = ws.Apply("b", SetField{Lang: i18n.French, Path: []string{"hero", "title"}, Value: "B"})
	require.NoError(t, err)
	ws.Discard("b")
	require.False(t, ws.Pending("b"))
}
