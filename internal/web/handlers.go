package web

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/snag/internal/errors"
	"github.com/hpungsan/snag/internal/ops"
)

// Handlers contains HTTP route handlers for the report browser.
type Handlers struct {
	db       *sql.DB
	renderer *Renderer
}

// HandleList handles GET /reports: stored reports, newest first.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	label := strings.TrimSpace(r.URL.Query().Get("label"))

	input := ops.ListInput{
		Label:          ptrString(label),
		Limit:          parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:         parseIntParam(r, "offset", 0),
		IncludeDeleted: parseBoolParam(r, "include_deleted"),
	}

	result, err := ops.List(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, "list", ListPageData{
		PageData: PageData{
			Title:   "Reports",
			Version: h.renderer.version,
			Nav:     "reports",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
		Label:      label,
		Deleted:    input.IncludeDeleted,
	})
}

// HandleSearch handles GET /reports/search: full-text search.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	data := SearchPageData{
		PageData: PageData{
			Title:   "Search",
			Version: h.renderer.version,
			Nav:     "search",
		},
		Query:    query,
		HasQuery: query != "",
	}

	if query == "" {
		h.renderer.renderPage(w, "search", data)
		return
	}

	result, err := ops.Search(r.Context(), h.db, ops.SearchInput{
		Query:  query,
		Limit:  parseIntParam(r, "limit", ops.DefaultSearchLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	data.Items = result.Items
	data.Pagination = result.Pagination
	h.renderer.renderPage(w, "search", data)
}

// HandleDetail handles GET /reports/{id}: one report with its body rendered.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("report ID is required"))
		return
	}

	rep, err := ops.Fetch(r.Context(), h.db, ops.FetchInput{
		ID:             id,
		IncludeDeleted: parseBoolParam(r, "include_deleted"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, rep)
		return
	}

	dupes, err := ops.Duplicates(r.Context(), h.db, ops.DuplicatesInput{Hash: rep.ContextHash})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	others := dupes.Items[:0:0]
	for _, d := range dupes.Items {
		if d.ID != rep.ID {
			others = append(others, d)
		}
	}

	h.renderer.renderPage(w, "detail", DetailPageData{
		PageData: PageData{
			Title:   rep.Title,
			Version: h.renderer.version,
			Nav:     "reports",
		},
		Report:       rep,
		RenderedHTML: h.renderer.renderMarkdown(rep.Body),
		Duplicates:   others,
	})
}

// HandleRaw handles GET /reports/{id}/raw: the issue body as filed, for pasting into
// the tracker.
func (h *Handlers) HandleRaw(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("report ID is required"))
		return
	}

	rep, err := ops.Fetch(r.Context(), h.db, ops.FetchInput{
		ID:             id,
		IncludeDeleted: parseBoolParam(r, "include_deleted"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rep.Body))
}

// HandleDelete handles DELETE /reports/{id} and the form post to
// /reports/{id}/delete: soft-delete a report.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("report ID is required"))
		return
	}

	result, err := ops.Delete(r.Context(), h.db, ops.DeleteInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.logger.Info("report deleted", "report_id", result.ID)

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/reports", http.StatusSeeOther)
}

// HandlePurge handles POST /reports/purge: permanently delete soft-deleted reports.
func (h *Handlers) HandlePurge(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	if r.FormValue("confirm") != "true" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("confirm parameter must be \"true\""))
		return
	}

	var input ops.PurgeInput
	if days := r.FormValue("older_than_days"); days != "" {
		d, err := strconv.Atoi(days)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("older_than_days must be an integer"))
			return
		}
		input.OlderThanDays = &d
	}

	result, err := ops.Purge(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.logger.Info("reports purged", "count", result.Purged)

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/reports?include_deleted=true", http.StatusSeeOther)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

// ptrString returns a pointer to s if non-empty, nil otherwise.
func ptrString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
