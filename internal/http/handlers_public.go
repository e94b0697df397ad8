package http

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"foco/internal/core"
	"foco/internal/gateway"
	"foco/internal/ledger"
	applog "foco/internal/log"
)

// publicView is what anyone holding the link may see. The owner id stays
// private.
type publicView struct {
	Title      string         `json:"title"`
	FriendName string         `json:"friendName"`
	Slug       string         `json:"slug"`
	Summary    ledger.Summary `json:"summary"`
}

var templateFuncs = template.FuncMap{
	"money": func(m core.Money) string { return m.Format() },
	"date":  func(d core.Date) string { return d.Format("02/01/2006") },
	"paid":  func(e core.LedgerEntry) bool { return e.Status == core.StatusPaid },
	"mine":  func(p core.Party) bool { return p == core.Me },
}

// publicLedger looks the slug up through the cache.
func (s *Server) publicLedger(ctx context.Context, slug string) (core.PublicLedger, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return core.PublicLedger{}, gateway.ErrNotFound
	}
	if pl, ok := s.deps.PublicCache.Get(slug); ok {
		return pl, nil
	}
	pl, err := s.deps.Gateway.Ledgers.GetBySlug(ctx, slug)
	if err != nil {
		return core.PublicLedger{}, err
	}
	s.deps.PublicCache.Set(slug, pl)
	return pl, nil
}

func (s *Server) publicView(r *http.Request) (publicView, error) {
	month, err := ParseMonthParam(r.URL.Query(), s.now())
	if err != nil {
		return publicView{}, err
	}
	pl, err := s.publicLedger(r.Context(), r.PathValue("slug"))
	if err != nil {
		return publicView{}, err
	}
	return publicView{
		Title:      pl.Title,
		FriendName: pl.FriendName,
		Slug:       pl.PublicSlug,
		Summary:    ledger.Summarize(pl.Ledger, month),
	}, nil
}

func (s *Server) handlePublicJSON(w http.ResponseWriter, r *http.Request) {
	v, err := s.publicView(r)
	if err != nil {
		s.publicFailed(r, err)
		ErrorFor(err, nil).Write(w)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	NewResponse().JSON(v).Write(w)
}

// handlePublicPage renders the read-only page. It has no controls that
// change anything.
func (s *Server) handlePublicPage(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.log(r).WithComponent(applog.ComponentTemplate).ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	v, err := s.publicView(r)
	if err != nil {
		s.publicFailed(r, err)
		status := ErrorFor(err, nil).statusCode
		w.WriteHeader(status)
		msg := "Erro ao carregar o registro."
		if status == http.StatusNotFound {
			msg = "Registro não encontrado."
		} else if status == http.StatusBadRequest {
			msg = "Mês inválido."
		}
		s.render(w, r, "public_missing.html", map[string]string{"Message": msg})
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	s.render(w, r, "public_ledger.html", v)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.log(r).WithComponent(applog.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			"template", name)
	}
}

func (s *Server) publicFailed(r *http.Request, err error) {
	if errors.Is(err, gateway.ErrNotFound) || core.IsValidationError(err) {
		return
	}
	s.log(r).ErrorContext(r.Context(), "Public ledger lookup failed",
		applog.FieldSlug, r.PathValue("slug"),
		applog.FieldError, err)
}
