package web

import (
	"html/template"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/khbm0110/JUUUU/internal/app"
	"github.com/khbm0110/JUUUU/internal/content"
	"github.com/khbm0110/JUUUU/internal/editor"
	"github.com/khbm0110/JUUUU/internal/i18n"
	appmw "github.com/khbm0110/JUUUU/internal/middleware"
	"github.com/khbm0110/JUUUU/internal/relay"
	"github.com/khbm0110/JUUUU/internal/scrollspy"
	"github.com/khbm0110/JUUUU/internal/tree"
)

// Page carries what the base layout needs.
type Page struct {
	Lang        i18n.Language
	Dir         string
	Title       string
	Description string
	FaviconURL  string
	Theme       string
	Languages   []i18n.Option
	CSRFToken   string
	RequestID   string
	View        string
	Schema      template.JS
}

func (h *handlers) page(r *http.Request, st *app.State, title string) Page {
	site := st.Site()
	tr := st.Content()
	if title == "" {
		title = tr.PageTitle
	}
	return Page{
		Lang:        st.Language(),
		Dir:         st.Dir(),
		Title:       title,
		Description: tr.MetaDescription,
		FaviconURL:  site.FaviconURL,
		Theme:       site.Settings.Theme(),
		Languages:   i18n.Options(st.Language(), r.URL.Path, r.URL.RawQuery),
		CSRFToken:   appmw.CSRFTokenFromContext(r.Context()),
		RequestID:   middleware.GetReqID(r.Context()),
		View:        st.View().String(),
	}
}

// FormState is a public form after a submission attempt.
type FormState struct {
	Values  relay.Submission
	Errors  map[string]string
	Success bool
	Error   string
}

// HomePage is the public landing page.
type HomePage struct {
	Page
	Site        content.SiteData
	T           content.Translations
	Nav         []content.NavLink
	Active      string
	Copyright   string
	PhoneHref   template.URL
	WhatsappURL string
	MailHref    string
	Contact     FormState
	Appointment FormState
	ShowModal   bool
	ModalForm   bool
}

func buildHome(p Page, site content.SiteData, tr content.Translations) HomePage {
	nav := make([]content.NavLink, 0, len(tr.Header.Nav))
	for _, link := range tr.Header.Nav {
		if strings.HasPrefix(link.Href, "#") && link.Href != "#appointment" {
			nav = append(nav, link)
		}
	}
	tracker := scrollspy.New(tr.SectionIDs())

	name := site.Settings.CopyrightName
	if name == "" {
		name = tr.LawyerName
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, site.Contact.WhatsappNumber)

	p.Schema = legalServiceSchema(p.Lang, site, tr)
	vm := HomePage{
		Page:      p,
		Site:      site,
		T:         tr,
		Nav:       nav,
		Active:    tracker.Href(),
		Copyright: strings.ReplaceAll(tr.Footer.Copyright, "{lawyerName}", name),
	}
	if digits != "" {
		vm.PhoneHref = template.URL("tel:+" + digits)
		vm.WhatsappURL = "https://wa.me/" + digits
	}
	if site.Contact.Email != "" {
		vm.MailHref = (&url.URL{Scheme: "mailto", Opaque: site.Contact.Email}).String()
	}
	return vm
}

// LoginPage is the admin sign-in form.
type LoginPage struct {
	Page
	Email   string
	Next    string
	Error   string
	Notice  string
	Expired bool
}

// AdminPage is the editor dashboard.
type AdminPage struct {
	Page
	Email       string
	Tab         string
	Tabs        []AdminTab
	EditLang    i18n.Language
	EditLangs   []i18n.Option
	Draft       content.SiteData
	Fields      []EditField
	Services    []content.Service
	Icons       []string
	Pending     bool
	Flash       string
	FlashKind   string
	ConfirmOpen bool
}

// AdminTab is one entry of the dashboard tab bar.
type AdminTab struct {
	ID     string
	Label  string
	URL    string
	Active bool
}

// EditField is one text leaf of a language's content tree.
type EditField struct {
	Path      string
	Label     string
	Value     string
	Multiline bool
}

// ServiceIcons lists the icons the services editor offers.
var ServiceIcons = []string{"briefcase", "building", "family", "scale"}

const (
	tabGeneral      = "general"
	tabContent      = "content"
	tabServices     = "services"
	tabTestimonials = "testimonials"
	tabSettings     = "settings"
)

var adminTabs = []string{tabGeneral, tabContent, tabServices, tabTestimonials, tabSettings}

func normalizeTab(tab string) string {
	for _, t := range adminTabs {
		if t == tab {
			return tab
		}
	}
	return tabGeneral
}

func adminURL(tab string, lang i18n.Language) string {
	q := url.Values{}
	q.Set("tab", tab)
	q.Set("edit", string(lang))
	return "/admin?" + q.Encode()
}

// contentFields flattens a translations tree into editable text leaves,
// skipping the services list, which has its own tab.
func contentFields(draft editor.Draft, lang i18n.Language) []EditField {
	node, err := tree.FromValue(draft.Translations(lang))
	if err != nil {
		return nil
	}
	var out []EditField
	var walk func(prefix string, v any)
	walk = func(prefix string, v any) {
		switch t := v.(type) {
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if prefix == "" && k == "services" {
					continue
				}
				walk(joinPath(prefix, k), t[k])
			}
		case []any:
			for i, item := range t {
				walk(joinPath(prefix, strconv.Itoa(i)), item)
			}
		case string:
			out = append(out, EditField{
				Path:      prefix,
				Label:     prefix,
				Value:     editor.EscapeNewlines(t),
				Multiline: len(t) > 80 || strings.Contains(t, "\n"),
			})
		case float64:
			out = append(out, EditField{Path: prefix, Label: prefix, Value: strconv.FormatFloat(t, 'f', -1, 64)})
		}
	}
	walk("", node)
	return out
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
