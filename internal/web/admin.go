package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/khbm0110/JUUUU/internal/content"
	"github.com/khbm0110/JUUUU/internal/editor"
	"github.com/khbm0110/JUUUU/internal/i18n"
	appmw "github.com/khbm0110/JUUUU/internal/middleware"
	"github.com/khbm0110/JUUUU/internal/requestctx"
	"github.com/khbm0110/JUUUU/internal/tree"
)

// Form field prefixes for bulk edits: "f." targets the edited language's
// copy, "s." the shared settings.
const (
	fieldPrefix   = "f."
	settingPrefix = "s."
)

// Flash kinds.
const (
	flashOK      = "ok"
	flashWarning = "warning"
	flashError   = "error"
)

func (h *handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	sess, _ := appmw.SessionFromContext(r.Context())
	st := h.state(r)
	q := r.URL.Query()
	tab := normalizeTab(q.Get("tab"))
	editLang := i18n.Normalize(q.Get("edit"), st.Language())

	draft, err := h.workspace.Draft(sess.ID())
	if err != nil {
		requestctx.Logger(r.Context()).Error("load draft", zap.Error(err))
		http.Error(w, h.bundle.T(st.Language(), "error.generic"), http.StatusInternalServerError)
		return
	}
	site, err := draft.Site()
	if err != nil {
		requestctx.Logger(r.Context()).Error("decode draft", zap.Error(err))
		http.Error(w, h.bundle.T(st.Language(), "error.generic"), http.StatusInternalServerError)
		return
	}

	vm := AdminPage{
		Page:        h.page(r, st, h.bundle.T(st.Language(), "admin.title")),
		Email:       sess.Email(),
		Tab:         tab,
		EditLang:    editLang,
		Draft:       site,
		Icons:       ServiceIcons,
		Pending:     draft.Dirty(),
		ConfirmOpen: q.Get("confirm") != "",
	}
	for _, id := range adminTabs {
		vm.Tabs = append(vm.Tabs, AdminTab{
			ID:     id,
			Label:  h.bundle.T(st.Language(), "admin.tab."+id),
			URL:    adminURL(id, editLang),
			Active: id == tab,
		})
	}
	for _, opt := range i18n.Options(editLang, "/admin", "") {
		opt.URL = adminURL(tab, opt.Code)
		vm.EditLangs = append(vm.EditLangs, opt)
	}
	switch tab {
	case tabContent:
		vm.Fields = contentFields(draft, editLang)
	case tabServices:
		vm.Services = draft.Translations(editLang).Services.Items
	}
	if flash := sess.PopFlash(); flash != "" {
		kind, key, _ := strings.Cut(flash, ":")
		vm.FlashKind = kind
		vm.Flash = h.bundle.T(st.Language(), key)
	}
	h.renderer.Serve(w, r, http.StatusOK, "admin", vm)
}

// applyEdit turns the submitted form into editor ops and applies them to the
// session's draft.
func (h *handlers) applyEdit(w http.ResponseWriter, r *http.Request) {
	sess, _ := appmw.SessionFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := r.PostForm
	tab := normalizeTab(form.Get("tab"))
	editLang := i18n.Normalize(form.Get("edit"), appmw.Lang(r.Context()))

	ops := opsFromForm(form, editLang)
	_, applied, err := h.workspace.Apply(sess.ID(), ops...)
	if err != nil {
		requestctx.Logger(r.Context()).Error("apply edits", zap.Error(err))
		sess.SetFlash(flashError + ":error.generic")
	} else {
		requestctx.Logger(r.Context()).Info("draft updated",
			zap.Int("ops", len(ops)),
			zap.Int("applied", applied),
		)
	}
	http.Redirect(w, r, adminURL(tab, editLang), http.StatusSeeOther)
}

func opsFromForm(form url.Values, lang i18n.Language) []editor.Op {
	var ops []editor.Op
	id := strings.TrimSpace(form.Get("id"))
	switch form.Get("op") {
	case "add_service":
		ops = append(ops, editor.AddListItem{
			Collection: editor.Services,
			Lang:       lang,
			Template: map[string]any{
				"title":       form.Get("title"),
				"description": form.Get("description"),
				"icon":        form.Get("icon"),
			},
		})
	case "remove_service":
		ops = append(ops, editor.RemoveListItem{Collection: editor.Services, ID: id})
	case "service_icon":
		ops = append(ops, editor.SetItemField{Collection: editor.Services, ID: id, Field: "icon", Value: form.Get("icon")})
	case "service":
		for _, field := range []string{"title", "description"} {
			if vals, ok := form[field]; ok && len(vals) > 0 {
				ops = append(ops, editor.SetItemField{Collection: editor.Services, ID: id, Lang: lang, Field: field, Value: vals[0]})
			}
		}
		if icon := form.Get("icon"); icon != "" {
			ops = append(ops, editor.SetItemField{Collection: editor.Services, ID: id, Field: "icon", Value: icon})
		}
	case "save_testimonial":
		rating, _ := strconv.Atoi(form.Get("rating"))
		ops = append(ops, editor.UpsertTestimonial{
			ID:      id,
			Name:    form.Get("name"),
			Comment: form.Get("comment"),
			Rating:  rating,
		})
	case "delete_testimonial":
		ops = append(ops, editor.DeleteTestimonial{ID: id})
	}

	for key, vals := range form {
		if len(vals) == 0 {
			continue
		}
		switch {
		case strings.HasPrefix(key, fieldPrefix):
			ops = append(ops, editor.SetField{Lang: lang, Path: tree.SplitPath(strings.TrimPrefix(key, fieldPrefix)), Value: vals[0]})
		case strings.HasPrefix(key, settingPrefix):
			ops = append(ops, editor.SetSetting{Path: tree.SplitPath(strings.TrimPrefix(key, settingPrefix)), Value: vals[0]})
		}
	}
	return ops
}

func (h *handlers) publish(w http.ResponseWriter, r *http.Request) {
	sess, _ := appmw.SessionFromContext(r.Context())
	tab := normalizeTab(r.PostFormValue("tab"))
	editLang := i18n.Normalize(r.PostFormValue("edit"), appmw.Lang(r.Context()))
	confirm := r.PostFormValue("confirm") == "yes"
	target := adminURL(tab, editLang)

	err := h.workspace.Commit(r.Context(), sess.ID(), confirm)
	switch {
	case err == nil:
		sess.SetFlash(flashOK + ":admin.published")
	case errors.Is(err, editor.ErrConfirmationRequired):
		sess.SetFlash(flashWarning + ":admin.confirm_required")
		target += "&confirm=1"
	case errors.Is(err, editor.ErrNoChanges):
		sess.SetFlash(flashOK + ":admin.no_changes")
	case errors.Is(err, content.ErrNotPersisted):
		requestctx.Logger(r.Context()).Warn("published without persistence", zap.Error(err))
		sess.SetFlash(flashWarning + ":admin.persist_warning")
	default:
		requestctx.Logger(r.Context()).Error("publish draft", zap.Error(err))
		sess.SetFlash(flashError + ":error.generic")
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *handlers) discard(w http.ResponseWriter, r *http.Request) {
	sess, _ := appmw.SessionFromContext(r.Context())
	h.workspace.Discard(sess.ID())
	tab := normalizeTab(r.PostFormValue("tab"))
	editLang := i18n.Normalize(r.PostFormValue("edit"), appmw.Lang(r.Context()))
	http.Redirect(w, r, adminURL(tab, editLang), http.StatusSeeOther)
}
