package editor

import (
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/khbm0110/JUUUU/internal/i18n"
	"github.com/khbm0110/JUUUU/internal/tree"
)

// Collection names a repeatable list in the site tree.
type Collection string

const (
	// Services live under content.<lang>.services.items, one parallel list
	// per language sharing ids.
	Services Collection = "services"
	// Testimonials live at the root and are not localized.
	Testimonials Collection = "testimonials"
)

// ID prefixes for generated list items.
const (
	servicePrefix     = "s_"
	testimonialPrefix = "t_"
)

// Op is an edit applied to a draft. Implementations are the exported
// structs in this file.
type Op interface {
	apply(root tree.Node, env *applyEnv) (tree.Node, bool)
}

type applyEnv struct {
	newID func(prefix string) string
}

func defaultID(prefix string) string {
	return prefix + strings.ToLower(ulid.Make().String())
}

// SetField sets one text leaf of a language's translations. Path is relative
// to content.<Lang>, for example ["services", "items", "0", "title"].
type SetField struct {
	Lang  i18n.Language
	Path  []string
	Value string
}

func (op SetField) apply(root tree.Node, _ *applyEnv) (tree.Node, bool) {
	if _, ok := i18n.Parse(string(op.Lang)); !ok || len(op.Path) == 0 {
		return root, false
	}
	path := append([]string{"content", string(op.Lang)}, op.Path...)
	return setLeaf(root, path, op.Value)
}

// settingRoots are the top-level keys SetSetting may write below.
var settingRoots = map[string]bool{
	"heroImageUrl":  true,
	"aboutImageUrl": true,
	"faviconUrl":    true,
	"contact":       true,
	"socials":       true,
	"settings":      true,
}

// SetSetting sets a non-localized field such as contact.email or
// settings.themeColor.
type SetSetting struct {
	Path  []string
	Value string
}

func (op SetSetting) apply(root tree.Node, _ *applyEnv) (tree.Node, bool) {
	if len(op.Path) == 0 || !settingRoots[op.Path[0]] {
		return root, false
	}
	if len(op.Path) == 2 && op.Path[0] == "settings" && op.Path[1] == "themeColor" {
		switch strings.TrimSpace(op.Value) {
		case "gold", "blue":
		default:
			return root, false
		}
	}
	if len(op.Path) == 1 {
		// top-level image URLs may be absent entirely
		return tree.Set(root, op.Path, CleanText(op.Value))
	}
	return setLeaf(root, op.Path, op.Value)
}

// setLeaf writes a scalar, keeping the existing value's JSON type. Objects
// and arrays are never replaced by a scalar.
func setLeaf(root tree.Node, path []string, raw string) (tree.Node, bool) {
	var value any = CleanText(raw)
	if current, ok := tree.Get(root, path); ok {
		switch current.(type) {
		case map[string]any, []any:
			return root, false
		case float64:
			n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return root, false
			}
			value = n
		case bool:
			b, err := strconv.ParseBool(strings.TrimSpace(raw))
			if err != nil {
				return root, false
			}
			value = b
		}
	}
	return tree.Set(root, path, value)
}

// AddListItem appends an item to a collection. For services the item is
// added to every language with the same id: Lang receives the template's
// title and description, the others get stub text in their own language,
// and the icon is shared. For testimonials the template supplies name,
// comment and rating. ID is generated when empty.
type AddListItem struct {
	Collection Collection
	Lang       i18n.Language
	ID         string
	Template   map[string]any
}

func (op AddListItem) apply(root tree.Node, env *applyEnv) (tree.Node, bool) {
	switch op.Collection {
	case Services:
		return op.addService(root, env)
	case Testimonials:
		return op.addTestimonial(root, env)
	}
	return root, false
}

var serviceStubs = map[i18n.Language][2]string{
	i18n.French:  {"Nouveau Service", "Description du nouveau service."},
	i18n.English: {"New Service", "Description for the new service."},
	i18n.Arabic:  {"خدمة جديدة", "وصف الخدمة الجديدة."},
}

var servicesTitles = map[i18n.Language]string{
	i18n.French:  "Nos Domaines d'Expertise",
	i18n.English: "Our Expertise",
	i18n.Arabic:  "مجالات خبرتنا",
}

func (op AddListItem) addService(root tree.Node, env *applyEnv) (tree.Node, bool) {
	id := op.ID
	if id == "" {
		id = env.newID(servicePrefix)
	}
	if serviceIndex(root, id) >= 0 {
		return root, false
	}
	source := i18n.Normalize(string(op.Lang), i18n.Default)
	icon := templateString(op.Template, "icon")
	if icon == "" {
		icon = "briefcase"
	}

	out := root
	for _, lang := range i18n.Supported() {
		stub := serviceStubs[lang]
		title, description := stub[0], stub[1]
		if lang == source {
			if v := CleanText(templateString(op.Template, "title")); v != "" {
				title = v
			}
			if v := CleanText(templateString(op.Template, "description")); v != "" {
				description = v
			}
		}
		item := map[string]any{
			"id":          id,
			"icon":        CleanText(icon),
			"title":       title,
			"description": description,
		}

		servicesPath := []string{"content", string(lang), "services"}
		next, ok := tree.Ensure(out, servicesPath)
		if !ok {
			return root, false
		}
		if tree.String(next, append(servicesPath, "title")) == "" {
			next, _ = tree.Set(next, append(servicesPath, "title"), servicesTitles[lang])
		}
		itemsPath := append(servicesPath, "items")
		items, _ := tree.Get(next, itemsPath)
		list, isList := items.([]any)
		if items != nil && !isList {
			return root, false
		}
		list = append(append([]any(nil), list...), item)
		if next, ok = tree.Set(next, itemsPath, list); !ok {
			return root, false
		}
		out = next
	}
	return out, true
}

func (op AddListItem) addTestimonial(root tree.Node, env *applyEnv) (tree.Node, bool) {
	id := op.ID
	if id == "" {
		id = env.newID(testimonialPrefix)
	}
	list, ok := testimonialList(root)
	if !ok {
		return root, false
	}
	for _, item := range list {
		if itemID(item) == id {
			return root, false
		}
	}
	item := map[string]any{
		"id":      id,
		"name":    CleanText(templateString(op.Template, "name")),
		"comment": CleanText(templateString(op.Template, "comment")),
		"rating":  float64(clampRating(templateNumber(op.Template, "rating", 5))),
	}
	list = append(append([]any(nil), list...), item)
	return tree.Set(root, []string{"testimonials"}, list)
}

// RemoveListItem deletes the item with ID from a collection. Services are
// removed from every language. Unknown ids are no-ops.
type RemoveListItem struct {
	Collection Collection
	ID         string
}

func (op RemoveListItem) apply(root tree.Node, _ *applyEnv) (tree.Node, bool) {
	switch op.Collection {
	case Services:
		out, changed := root, false
		for _, lang := range languagesIn(root) {
			path := []string{"content", lang, "services", "items"}
			items, ok := tree.Get(out, path)
			list, isList := items.([]any)
			if !ok || !isList {
				continue
			}
			filtered := removeByID(list, op.ID)
			if len(filtered) == len(list) {
				continue
			}
			if next, ok := tree.Set(out, path, filtered); ok {
				out, changed = next, true
			}
		}
		return out, changed
	case Testimonials:
		list, ok := testimonialList(root)
		if !ok {
			return root, false
		}
		filtered := removeByID(list, op.ID)
		if len(filtered) == len(list) {
			return root, false
		}
		return tree.Set(root, []string{"testimonials"}, filtered)
	}
	return root, false
}

// SetItemField sets Field on the item with ID. For services an empty Lang
// writes every language (used for the shared icon); otherwise only Lang.
type SetItemField struct {
	Collection Collection
	ID         string
	Lang       i18n.Language
	Field      string
	Value      string
}

func (op SetItemField) apply(root tree.Node, _ *applyEnv) (tree.Node, bool) {
	if op.Field == "" || op.Field == "id" {
		return root, false
	}
	switch op.Collection {
	case Services:
		langs := languagesIn(root)
		if op.Lang != "" {
			langs = []string{string(op.Lang)}
		}
		out, changed := root, false
		for _, lang := range langs {
			path := []string{"content", lang, "services", "items"}
			items, _ := tree.Get(out, path)
			list, _ := items.([]any)
			idx := indexByID(list, op.ID)
			if idx < 0 {
				continue
			}
			leaf := append(path, strconv.Itoa(idx), op.Field)
			if next, ok := setLeaf(out, leaf, op.Value); ok {
				out, changed = next, true
			}
		}
		return out, changed
	case Testimonials:
		list, _ := testimonialList(root)
		idx := indexByID(list, op.ID)
		if idx < 0 {
			return root, false
		}
		if op.Field == "rating" {
			n, err := strconv.Atoi(strings.TrimSpace(op.Value))
			if err != nil {
				return root, false
			}
			return tree.Set(root, []string{"testimonials", strconv.Itoa(idx), "rating"}, float64(clampRating(n)))
		}
		return setLeaf(root, []string{"testimonials", strconv.Itoa(idx), op.Field}, op.Value)
	}
	return root, false
}

// UpsertTestimonial adds a testimonial when ID is empty, otherwise replaces
// the one with that id.
type UpsertTestimonial struct {
	ID      string
	Name    string
	Comment string
	Rating  int
}

func (op UpsertTestimonial) apply(root tree.Node, env *applyEnv) (tree.Node, bool) {
	if op.ID == "" {
		return AddListItem{
			Collection: Testimonials,
			Template:   map[string]any{"name": op.Name, "comment": op.Comment, "rating": op.Rating},
		}.apply(root, env)
	}
	list, _ := testimonialList(root)
	idx := indexByID(list, op.ID)
	if idx < 0 {
		return root, false
	}
	replaced := append([]any(nil), list...)
	replaced[idx] = map[string]any{
		"id":      op.ID,
		"name":    CleanText(op.Name),
		"comment": CleanText(op.Comment),
		"rating":  float64(clampRating(op.Rating)),
	}
	return tree.Set(root, []string{"testimonials"}, replaced)
}

// DeleteTestimonial removes a testimonial by id.
type DeleteTestimonial struct {
	ID string
}

func (op DeleteTestimonial) apply(root tree.Node, env *applyEnv) (tree.Node, bool) {
	return RemoveListItem{Collection: Testimonials, ID: op.ID}.apply(root, env)
}

func testimonialList(root tree.Node) ([]any, bool) {
	v, ok := root["testimonials"]
	if !ok || v == nil {
		return nil, true
	}
	list, isList := v.([]any)
	return list, isList
}

func languagesIn(root tree.Node) []string {
	contentNode, _ := root["content"].(map[string]any)
	out := make([]string, 0, len(contentNode))
	for _, lang := range i18n.Supported() {
		if _, ok := contentNode[string(lang)]; ok {
			out = append(out, string(lang))
		}
	}
	return out
}

func serviceIndex(root tree.Node, id string) int {
	for _, lang := range languagesIn(root) {
		items, _ := tree.Get(root, []string{"content", lang, "services", "items"})
		list, _ := items.([]any)
		if idx := indexByID(list, id); idx >= 0 {
			return idx
		}
	}
	return -1
}

func itemID(item any) string {
	m, _ := item.(map[string]any)
	id, _ := m["id"].(string)
	return id
}

func indexByID(list []any, id string) int {
	if id == "" {
		return -1
	}
	for i, item := range list {
		if itemID(item) == id {
			return i
		}
	}
	return -1
}

func removeByID(list []any, id string) []any {
	out := make([]any, 0, len(list))
	for _, item := range list {
		if id != "" && itemID(item) == id {
			continue
		}
		out = append(out, item)
	}
	return out
}

func templateString(tpl map[string]any, key string) string {
	s, _ := tpl[key].(string)
	return s
}

func templateNumber(tpl map[string]any, key string, fallback int) int {
	switch v := tpl[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func clampRating(n int) int {
	switch {
	case n < 1:
		return 1
	case n > 5:
		return 5
	}
	return n
}
