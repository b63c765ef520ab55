package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/khbm0110/JUUUU/internal/relay"
	"github.com/khbm0110/JUUUU/internal/testutil"
)

func get(t *testing.T, client *http.Client, target string) (*http.Response, []byte) {
	t.Helper()
	resp, err := client.Get(target)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func postForm(t *testing.T, client *http.Client, target string, form url.Values) (*http.Response, []byte) {
	t.Helper()
	resp, err := client.PostForm(target, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func postJSON(t *testing.T, client *http.Client, target string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := client.Post(target, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func login(t *testing.T, srv *testutil.Server, client *http.Client) {
	t.Helper()
	_, body := get(t, client, srv.URL+"/login")
	token := testutil.CSRFToken(t, body)
	resp, _ := postForm(t, client, srv.URL+"/login", url.Values{
		"csrf_token": {token},
		"email":      {testutil.AdminEmail},
		"password":   {testutil.AdminPassword},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin", resp.Header.Get("Location"))
}

func TestHomeRendersEachLanguage(t *testing.T) {
	srv := testutil.NewServer(t)
	client := srv.Client(t)

	cases := []struct {
		lang  string
		dir   string
		title string
	}{
		{"fr", "ltr", "Votre avocate de confiance pour défendre vos droits"},
		{"en", "ltr", "Your Trusted Lawyer to Defend Your Rights"},
		{"ar", "rtl", "محاميتكم الموثوقة للدفاع عن حقوقكم"},
	}
	for _, tc := range cases {
		t.Run(tc.lang, func(t *testing.T) {
			resp, body := get(t, client, srv.URL+"/?hl="+tc.lang)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Equal(t, tc.lang, resp.Header.Get("Content-Language"))

			doc := testutil.ParseHTML(t, body)
			html := doc.Find("html")
			require.Equal(t, tc.lang, html.AttrOr("lang", ""))
			require.Equal(t, tc.dir, html.AttrOr("dir", ""))
			require.Equal(t, tc.title, strings.TrimSpace(doc.Find("h1.hero-title").Text()))
			require.Equal(t, 5, doc.Find(".side-nav .side-dot").Length())
			require.Equal(t, "#hero", doc.Find(".side-dot.active").AttrOr("href", ""))
		})
	}
}

func TestLanguageChoicePersists(t *testing.T) {
	srv := testutil.NewServer(t)
	client := srv.Client(t)

	get(t, client, srv.URL+"/?hl=ar")
	resp, body := get(t, client, srv.URL+"/")
	require.Equal(t, "ar", resp.Header.Get("Content-Language"))
	doc := testutil.ParseHTML(t, body)
	require.Equal(t, "rtl", doc.Find("html").AttrOr("dir", ""))
}

func TestUnknownPathRendersLandingPage(t *testing.T) {
	srv := testutil.NewServer(t)
	resp, body := get(t, srv.Client(t), srv.URL+"/no-such-page?hl=en")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	doc := testutil.ParseHTML(t, body)
	require.Equal(t, 1, doc.Find("section#hero").Length())
}

func TestAdminRequiresLogin(t *testing.T) {
	srv := testutil.NewServer(t)
	client := srv.Client(t)

	resp, _ := get(t, client, srv.URL+"/admin")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/login", loc.Path)
	require.Equal(t, "/admin", loc.Query().Get("next"))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/admin", nil)
	require.NoError(t, err)
	req.Header.Set("HX-Request", "true")
	hx, err := client.Do(req)
	require.NoError(t, err)
	hx.Body.Close()
	require.Equal(t, http.StatusUnauthorized, hx.StatusCode)
	require.True(t, strings.HasPrefix(hx.Header.Get("HX-Redirect"), "/login?"))
}

func TestLoginFlow(t *testing.T) {
	srv := testutil.NewServer(t)
	client := srv.Client(t)

	resp, body := get(t, client, srv.URL+"/login?hl=en")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := testutil.CSRFToken(t, body)
	require.NotEmpty(t, token)

	resp, body = postForm(t, client, srv.URL+"/login", url.Values{
		"csrf_token": {token},
		"email":      {testutil.AdminEmail},
		"password":   {"wrong"},
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	doc := testutil.ParseHTML(t, body)
	require.Equal(t, "Invalid credentials.", strings.TrimSpace(doc.Find(".form-error").Text()))
	require.Equal(t, testutil.AdminEmail, doc.Find(`input[name="email"]`).AttrOr("value", ""))

	login(t, srv, client)

	resp, body = get(t, client, srv.URL+"/admin")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	doc = testutil.ParseHTML(t, body)
	require.Equal(t, 5, doc.Find(".admin-tabs a").Length())

	resp, _ = get(t, client, srv.URL+"/login")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/admin", resp.Header.Get("Location"))

	token = testutil.CSRFToken(t, body)
	resp, _ = postForm(t, client, srv.URL+"/logout", url.Values{"csrf_token": {token}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))

	resp, _ = get(t, client, srv.URL+"/admin")
	require.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestLoginRejectsMissingCSRFToken(t *testing.T) {
	srv := testutil.NewServer(t)
	client := srv.Client(t)

	get(t, client, srv.URL+"/login")
	resp, _ := postForm(t, client, srv.URL+"/login", url.Values{
		"email":    {testutil.AdminEmail},
		"password": {testutil.AdminPassword},
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminEditAndPublish(t *testing.T) {
	srv := testutil.NewServer(t)
	client := srv.Client(t)
	login(t, srv, client)

	_, body := get(t, client, srv.URL+"/admin?tab=content&edit=en")
	token := testutil.CSRFToken(t, body)
	doc := testutil.ParseHTML(t, body)
	require.Equal(t, 1, doc.Find(`input[name="f.hero.title"]`).Length())

	resp, _ := postForm(t, client, srv.URL+"/admin/apply", url.Values{
		"csrf_token":   {token},
		"tab":          {"content"},
		"edit":         {"en"},
		"f.hero.title": {"Counsel you can count on"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin?edit=en&tab=content", resp.Header.Get("Location"))

	// Drafts stay private until published.
	require.Equal(t, "Your Trusted Lawyer to Defend Your Rights", srv.Store.Get("en").Hero.Title)
	_, body = get(t, client, srv.URL+"/admin?tab=content&edit=en")
	doc = testutil.ParseHTML(t, body)
	require.Equal(t, "Counsel you can count on", doc.Find(`input[name="f.hero.title"]`).AttrOr("value", ""))
	require.Equal(t, 1, doc.Find(".publish-bar button[data-confirm]").Length())

	resp, _ = postForm(t, client, srv.URL+"/admin/publish", url.Values{
		"csrf_token": {token},
		"tab":        {"content"},
		"edit":       {"en"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Location"), "confirm=1")
	require.Equal(t, "Your Trusted Lawyer to Defend Your Rights", srv.Store.Get("en").Hero.Title)

	resp, _ = postForm(t, client, srv.URL+"/admin/publish", url.Values{
		"csrf_token": {token},
		"tab":        {"content"},
		"edit":       {"en"},
		"confirm":    {"yes"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "Counsel you can count on", srv.Store.Get("en").Hero.Title)

	saved, err := srv.Backend.Load(context.Background())
	require.NoError(t, err)
	require.Contains(t, string(saved), "Counsel you can count on")

	_, body = get(t, client, srv.URL+"/?hl=en")
	doc = testutil.ParseHTML(t, body)
	require.Equal(t, "Counsel you can count on", strings.TrimSpace(doc.Find("h1.hero-title").Text()))
}

func TestAdminServiceAndTestimonialOps(t *testing.T) {
	srv := testutil.NewServer(t)
	client := srv.Client(t)
	login(t, srv, client)

	_, body := get(t, client, srv.URL+"/admin?tab=services&edit=fr")
	token := testutil.CSRFToken(t, body)
	before := testutil.ParseHTML(t, body).Find(".service-editor").Length()

	resp, _ := postForm(t, client, srv.URL+"/admin/apply", url.Values{
		"csrf_token":  {token},
		"tab":         {"services"},
		"edit":        {"fr"},
		"op":          {"add_service"},
		"icon":        {"scale"},
		"title":       {"Droit pénal"},
		"description": {"Défense pénale."},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body = get(t, client, srv.URL+"/admin?tab=services&edit=fr")
	doc := testutil.ParseHTML(t, body)
	require.Equal(t, before+1, doc.Find(".service-editor").Length())
	require.Equal(t, "Droit pénal", doc.Find(".service-editor").Last().Find(`input[name="title"]`).AttrOr("value", ""))

	_, body = get(t, client, srv.URL+"/admin?tab=services&edit=en")
	doc = testutil.ParseHTML(t, body)
	require.Equal(t, before+1, doc.Find(".service-editor").Length())
	require.Equal(t, "New Service", doc.Find(".service-editor").Last().Find(`input[name="title"]`).AttrOr("value", ""))

	resp, _ = postForm(t, client, srv.URL+"/admin/apply", url.Values{
		"csrf_token": {token},
		"tab":        {"testimonials"},
		"edit":       {"fr"},
		"op":         {"save_testimonial"},
		"name":       {"Samira"},
		"comment":    {"Très professionnelle."},
		"rating":     {"9"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body = get(t, client, srv.URL+"/admin?tab=testimonials&edit=fr")
	doc = testutil.ParseHTML(t, body)
	last := doc.Find(".testimonial-editor").Last()
	require.Equal(t, "Samira", last.Find(`input[name="name"]`).AttrOr("value", ""))
	require.Equal(t, "5", last.Find(`input[name="rating"]`).AttrOr("value", ""))
}

func TestAdminDeletionsAskForConfirmation(t *testing.T) {
	srv := testutil.NewServer(t)
	client := srv.Client(t)
	login(t, srv, client)

	cases := []struct {
		tab, op, prompt string
	}{
		{"services", "remove_service", "Remove this service from every language?"},
		{"testimonials", "delete_testimonial", "Delete this testimonial?"},
	}
	for _, tc := range cases {
		_, body := get(t, client, srv.URL+"/admin?tab="+tc.tab+"&edit=en&hl=en")
		ops := testutil.ParseHTML(t, body).Find(`input[name="op"][value="` + tc.op + `"]`)
		require.Positive(t, ops.Length(), tc.op)
		ops.Each(func(_ int, s *goquery.Selection) {
			button := s.Closest("form").Find(`button[type="submit"]`)
			require.Equal(t, tc.prompt, button.AttrOr("data-confirm", ""), tc.op)
		})
	}
}

func TestAdminDiscardDropsDraft(t *testing.T) {
	srv := testutil.NewServer(t)
	client := srv.Client(t)
	login(t, srv, client)

	_, body := get(t, client, srv.URL+"/admin?tab=settings")
	token := testutil.CSRFToken(t, body)
	postForm(t, client, srv.URL+"/admin/apply", url.Values{
		"csrf_token":            {token},
		"tab":                   {"settings"},
		"s.settings.themeColor": {"blue"},
	})
	_, body = get(t, client, srv.URL+"/admin?tab=settings")
	require.Equal(t, 1, testutil.ParseHTML(t, body).Find(`form[action="/admin/discard"]`).Length())

	resp, _ := postForm(t, client, srv.URL+"/admin/discard", url.Values{"csrf_token": {token}, "tab": {"settings"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body = get(t, client, srv.URL+"/admin?tab=settings")
	doc := testutil.ParseHTML(t, body)
	require.Equal(t, 0, doc.Find(`form[action="/admin/discard"]`).Length())
	require.Equal(t, "gold", srv.Store.Site().Settings.Theme())
}

func TestAdminPostRequiresCSRFToken(t *testing.T) {
	srv := testutil.NewServer(t)
	client := srv.Client(t)
	login(t, srv, client)

	resp, _ := postForm(t, client, srv.URL+"/admin/apply", url.Values{"s.settings.themeColor": {"blue"}})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestContactFormFallback(t *testing.T) {
	srv := testutil.NewServer(t)
	client := srv.Client(t)

	resp, body := postForm(t, client, srv.URL+"/contact?hl=en", url.Values{"name": {"Karim"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	doc := testutil.ParseHTML(t, body)
	require.Equal(t, "Karim", doc.Find(`.contact-form input[name="name"]`).AttrOr("value", ""))
	require.Equal(t, 2, doc.Find(".contact-form .field-error").Length())
	require.Empty(t, srv.Relay.Submissions())

	resp, _ = postForm(t, client, srv.URL+"/contact", url.Values{
		"name":    {"Karim"},
		"email":   {"karim@example.com"},
		"message": {"Bonjour"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/?sent=contact#contact", resp.Header.Get("Location"))
	subs := srv.Relay.Submissions()
	require.Len(t, subs, 1)
	require.Equal(t, relay.FormContact, subs[0].FormType)

	_, body = get(t, client, srv.URL+"/?sent=contact")
	require.Equal(t, 1, testutil.ParseHTML(t, body).Find("#contact .form-success").Length())
}

func TestAppointmentFormFallback(t *testing.T) {
	srv := testutil.NewServer(t)
	client := srv.Client(t)

	valid := url.Values{
		"name":      {"Lina"},
		"email":     {"lina@example.com"},
		"phone":     {"+212 600 000 000"},
		"preferred": {"lundi matin"},
	}
	resp, _ := postForm(t, client, srv.URL+"/appointment", valid)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/appointment?sent=1", resp.Header.Get("Location"))

	valid.Set("modal", "1")
	resp, _ = postForm(t, client, srv.URL+"/appointment", valid)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/?sent=appointment_request#contact", resp.Header.Get("Location"))

	subs := srv.Relay.Submissions()
	require.Len(t, subs, 2)
	require.Equal(t, relay.FormAppointment, subs[0].FormType)
	require.Equal(t, "lundi matin", subs[0].PreferredDateTime)

	resp, body := postForm(t, client, srv.URL+"/appointment", url.Values{"modal": {"1"}, "name": {"Lina"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	doc := testutil.ParseHTML(t, body)
	_, open := doc.Find("dialog#appointment").Attr("open")
	require.True(t, open)
}

func TestSubmitAPI(t *testing.T) {
	srv := testutil.NewServer(t)
	client := srv.Client(t)

	resp, out := postJSON(t, client, srv.URL+"/api/submit-contact", map[string]string{
		"name":    "Karim",
		"email":   "karim@example.com",
		"message": "Bonjour",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "success", out["status"])
	require.Equal(t, "Message sent successfully!", out["message"])

	resp, out = postJSON(t, client, srv.URL+"/api/submit-appointment", map[string]string{"name": "Lina", "email": "nope"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "error", out["status"])
	require.Equal(t, "validation_failed", out["error"])
	fields, ok := out["fields"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, relay.CodeInvalidEmail, fields["email"])
	require.Equal(t, relay.CodeRequired, fields["phone"])

	get405, err := client.Get(srv.URL + "/api/submit-contact")
	require.NoError(t, err)
	defer get405.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, get405.StatusCode)
	var envelope map[string]any
	require.NoError(t, json.NewDecoder(get405.Body).Decode(&envelope))
	require.Equal(t, "Method Not Allowed", envelope["message"])
}

func TestSubmitAPIRelayFailures(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		code    string
		message string
	}{
		{"not configured", relay.ErrNotConfigured, "relay_not_configured", "Le serveur de messagerie n'est pas configuré."},
		{"rejected", &relay.RejectedError{Provider: "web3forms", Message: "Invalid access key"}, "relay_rejected", "Invalid access key"},
		{"transport", io.ErrUnexpectedEOF, "relay_failed", "Failed to send message."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := testutil.NewServer(t, testutil.WithRelay(&testutil.StubRelay{Err: tc.err}))
			resp, out := postJSON(t, srv.Client(t), srv.URL+"/api/submit-contact", map[string]string{
				"name":    "Karim",
				"email":   "karim@example.com",
				"message": "Bonjour",
			})
			require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			require.Equal(t, tc.code, out["error"])
			require.Equal(t, tc.message, out["message"])
		})
	}
}

func TestScrollspyAPI(t *testing.T) {
	srv := testutil.NewServer(t)
	client := srv.Client(t)

	resp, out := postJSON(t, client, srv.URL+"/api/scrollspy", map[string]any{
		"lang": "en",
		"events": []map[string]any{
			{"type": "scrollTo", "at": 0, "section": "#contact"},
			{"type": "observe", "at": 400, "observe": map[string]any{"scrollY": 2000, "viewportHeight": 800, "intersecting": []string{"services"}}},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "contact", out["current"])
	require.Equal(t, "#contact", out["href"])

	_, out = postJSON(t, client, srv.URL+"/api/scrollspy", map[string]any{
		"events": []map[string]any{
			{"type": "scrollTo", "at": 0, "section": "contact"},
			{"type": "observe", "at": 1500, "observe": map[string]any{"scrollY": 2000, "viewportHeight": 800, "intersecting": []string{"services"}}},
		},
	})
	require.Equal(t, "services", out["current"])

	resp, out = postJSON(t, client, srv.URL+"/api/scrollspy", map[string]any{
		"events": []map[string]any{{"type": "jump"}},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_event", out["error"])
}

func TestHealthz(t *testing.T) {
	srv := testutil.NewServer(t)
	resp, body := get(t, srv.Client(t), srv.URL+"/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", string(body))

	down := testutil.NewServer(t, testutil.WithReady(func() error { return io.ErrClosedPipe }))
	resp, _ = get(t, down.Client(t), down.URL+"/healthz")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestStaticAssets(t *testing.T) {
	srv := testutil.NewServer(t)
	client := srv.Client(t)

	resp, body := get(t, client, srv.URL+"/assets/js/site.js")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "data-scrollspy")
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/assets/js/site.js", nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", etag)
	cached, err := client.Do(req)
	require.NoError(t, err)
	cached.Body.Close()
	require.Equal(t, http.StatusNotModified, cached.StatusCode)
}

func TestHomeCarriesLegalServiceSchema(t *testing.T) {
	srv := testutil.NewServer(t)
	_, body := get(t, srv.Client(t), srv.URL+"/?hl=en")
	doc := testutil.ParseHTML(t, body)

	raw := doc.Find(`script[type="application/ld+json"]`).Text()
	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &schema))
	require.Equal(t, "LegalService", schema["@type"])
	require.Equal(t, "en", schema["inLanguage"])
	require.Equal(t, srv.Store.Get("en").LawyerName, schema["name"])

	_, body = get(t, srv.Client(t), srv.URL+"/login")
	require.Equal(t, 0, testutil.ParseHTML(t, body).Find(`script[type="application/ld+json"]`).Length())
}
