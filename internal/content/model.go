package content

// SiteData is the whole editable site: non-localized contact and settings,
// testimonials, and one Translations tree per language.
type SiteData struct {
	HeroImageURL  string        `json:"heroImageUrl"`
	AboutImageURL string        `json:"aboutImageUrl"`
	FaviconURL    string        `json:"faviconUrl"`
	Contact       ContactInfo   `json:"contact"`
	Socials       Socials       `json:"socials"`
	Testimonials  []Testimonial `json:"testimonials"`
	Settings      Settings      `json:"settings"`
	Content       Content       `json:"content"`
}

// Content maps a language code to its copy.
type Content map[string]Translations

type ContactInfo struct {
	Email          string `json:"email"`
	WhatsappNumber string `json:"whatsappNumber"`
	PhoneDisplay   string `json:"phoneDisplay"`
	Address        string `json:"address"`
	GoogleMapsLink string `json:"googleMapsLink"`
}

type Socials struct {
	LinkedIn string `json:"linkedin"`
	Facebook string `json:"facebook"`
}

type Testimonial struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Comment string `json:"comment"`
	Rating  int    `json:"rating"`
}

// Stars returns the rating clamped to 1..5.
func (t Testimonial) Stars() int {
	switch {
	case t.Rating < 1:
		return 1
	case t.Rating > 5:
		return 5
	}
	return t.Rating
}

// Theme colours offered by the settings editor.
const (
	ThemeGold = "gold"
	ThemeBlue = "blue"
)

type Settings struct {
	ThemeColor    string `json:"themeColor"`
	CopyrightName string `json:"copyrightName"`
	Domain        string `json:"domain"`
}

// Theme returns the theme colour, defaulting to gold.
func (s Settings) Theme() string {
	if s.ThemeColor == ThemeBlue {
		return ThemeBlue
	}
	return ThemeGold
}

// Translations is the per-language copy. Every field may be absent in stored
// data; the zero value renders as empty text and empty lists.
type Translations struct {
	PageTitle       string       `json:"pageTitle"`
	MetaDescription string       `json:"metaDescription"`
	LawyerName      string       `json:"lawyerName"`
	Header          Header       `json:"header"`
	Hero            Hero         `json:"hero"`
	About           About        `json:"about"`
	Services        Services     `json:"services"`
	Stats           *Stats       `json:"stats"`
	Testimonials    SectionTitle `json:"testimonials"`
	Contact         ContactCopy  `json:"contact"`
	Footer          Footer       `json:"footer"`
}

type Header struct {
	Nav []NavLink `json:"nav"`
}

type NavLink struct {
	Name string `json:"name"`
	Href string `json:"href"`
}

type Hero struct {
	Title          string `json:"title"`
	Subtitle       string `json:"subtitle"`
	CTACall        string `json:"ctaCall"`
	CTAAppointment string `json:"ctaAppointment"`
}

type About struct {
	TitlePrefix string  `json:"titlePrefix"`
	P1          string  `json:"p1"`
	P2          string  `json:"p2"`
	ValuesTitle string  `json:"valuesTitle"`
	Values      []Value `json:"values"`
}

type Value struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Services struct {
	Title string    `json:"title"`
	Items []Service `json:"items"`
}

type Service struct {
	ID          string   `json:"id"`
	Icon        string   `json:"icon"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Points      []string `json:"points"`
}

type Stats struct {
	Items []Stat `json:"items"`
}

type Stat struct {
	Value  float64 `json:"value"`
	Label  string  `json:"label"`
	Suffix string  `json:"suffix"`
}

// StatItems returns the stats list, empty when the section is absent.
func (t Translations) StatItems() []Stat {
	if t.Stats == nil {
		return nil
	}
	return t.Stats.Items
}

type SectionTitle struct {
	Title string `json:"title"`
}

type ContactCopy struct {
	TitlePrefix      string           `json:"titlePrefix"`
	Intro            string           `json:"intro"`
	PhonePrompt      string           `json:"phonePrompt"`
	Whatsapp         string           `json:"whatsapp"`
	EmailPrompt      string           `json:"emailPrompt"`
	AddressTitle     string           `json:"addressTitle"`
	ViewOnMap        string           `json:"viewOnMap"`
	Form             ContactForm      `json:"form"`
	AppointmentModal AppointmentModal `json:"appointmentModal"`
}

type ContactForm struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Message        string `json:"message"`
	Submit         string `json:"submit"`
	SuccessTitle   string `json:"successTitle"`
	SuccessMessage string `json:"successMessage"`
	ErrorMessage   string `json:"errorMessage"`
}

type AppointmentModal struct {
	Title          string `json:"title"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Message        string `json:"message"`
	Submit         string `json:"submit"`
	SuccessTitle   string `json:"successTitle"`
	SuccessMessage string `json:"successMessage"`
	Close          string `json:"close"`
}

type Footer struct {
	Copyright string `json:"copyright"`
	Legal     string `json:"legal"`
}

// SectionIDs returns the in-page anchors of the nav, without the leading '#'.
func (t Translations) SectionIDs() []string {
	out := make([]string, 0, len(t.Header.Nav))
	for _, link := range t.Header.Nav {
		if len(link.Href) > 1 && link.Href[0] == '#' {
			out = append(out, link.Href[1:])
		}
	}
	return out
}
