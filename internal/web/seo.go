package web

import (
	"encoding/json"
	"html/template"
	"strings"

	"github.com/khbm0110/JUUUU/internal/content"
	"github.com/khbm0110/JUUUU/internal/i18n"
)

// legalServiceSchema returns the schema.org LegalService block for the
// landing page. json.Marshal escapes <, > and &, so the result is safe inside
// a script element.
func legalServiceSchema(lang i18n.Language, site content.SiteData, tr content.Translations) template.JS {
	m := map[string]any{
		"@context":   "https://schema.org",
		"@type":      "LegalService",
		"name":       tr.LawyerName,
		"inLanguage": string(lang),
	}
	if tr.MetaDescription != "" {
		m["description"] = tr.MetaDescription
	}
	if d := strings.TrimSpace(site.Settings.Domain); d != "" {
		if !strings.Contains(d, "://") {
			d = "https://" + d
		}
		m["url"] = d
	}
	if site.HeroImageURL != "" {
		m["image"] = site.HeroImageURL
	}
	if site.Contact.Email != "" {
		m["email"] = site.Contact.Email
	}
	if phone := site.Contact.PhoneDisplay; phone != "" {
		m["telephone"] = phone
	} else if site.Contact.WhatsappNumber != "" {
		m["telephone"] = site.Contact.WhatsappNumber
	}
	if site.Contact.Address != "" {
		m["address"] = site.Contact.Address
	}
	var same []string
	for _, link := range []string{site.Socials.LinkedIn, site.Socials.Facebook} {
		if link != "" && link != "#" {
			same = append(same, link)
		}
	}
	if len(same) > 0 {
		m["sameAs"] = same
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return template.JS(b)
}
