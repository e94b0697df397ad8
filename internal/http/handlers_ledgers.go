package http

import (
	"net/http"

	"foco/internal/core"
	"foco/internal/ledger"
	"foco/internal/services"
)

type ledgerListItem struct {
	core.Ledger
	Balance     int64            `json:"balanceCents"`
	Direction   ledger.Direction `json:"direction"`
	Outstanding core.Money       `json:"outstanding"`
	PublicPath  string           `json:"publicPath,omitempty"`
}

type ledgerDetail struct {
	Ledger     core.Ledger    `json:"ledger"`
	Summary    ledger.Summary `json:"summary"`
	PublicPath string         `json:"publicPath,omitempty"`
}

func publicPath(l core.Ledger) string {
	if !l.PublicReadEnabled || l.PublicSlug == "" {
		return ""
	}
	return "/public/" + l.PublicSlug
}

func (s *Server) handleListLedgers(w http.ResponseWriter, r *http.Request) {
	ledgers := s.deps.Ledgers.List(r.Context(), userID(r))
	items := make([]ledgerListItem, 0, len(ledgers))
	for _, l := range ledgers {
		b := ledger.ComputeBalance(l.Entries)
		items = append(items, ledgerListItem{
			Ledger:      l,
			Balance:     b.Cents,
			Direction:   b.Direction(),
			Outstanding: b.Abs(),
			PublicPath:  publicPath(l),
		})
	}
	NewResponse().JSON(items).Write(w)
}

func (s *Server) handleCreateLedger(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title      string `json:"title"`
		FriendName string `json:"friendName"`
	}
	if !decodeOrFail(w, r, &in) {
		return
	}
	l, err := s.deps.Ledgers.Create(r.Context(), userID(r), sanitizeInput(in.Title), sanitizeInput(in.FriendName))
	s.writeResult(w, r, http.StatusCreated, l, err)
}

func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParam(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	l, err := s.deps.Ledgers.Get(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.writeResult(w, r, http.StatusOK, nil, err)
		return
	}
	NewResponse().JSON(ledgerDetail{
		Ledger:     l,
		Summary:    ledger.Summarize(l, month),
		PublicPath: publicPath(l),
	}).Write(w)
}

func (s *Server) handleDeleteLedger(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Ledgers.Delete(r.Context(), userID(r), r.PathValue("id"))
	s.writeResult(w, r, http.StatusNoContent, nil, err)
}

func (s *Server) handleSetPublic(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Enabled bool `json:"enabled"`
	}
	if !decodeOrFail(w, r, &in) {
		return
	}
	l, err := s.deps.Ledgers.SetPublic(r.Context(), userID(r), r.PathValue("id"), in.Enabled)
	s.writeLedger(w, r, http.StatusOK, l, err)
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var in services.EntryInput
	if !decodeOrFail(w, r, &in) {
		return
	}
	in.Description = sanitizeInput(in.Description)
	l, err := s.deps.Ledgers.AddEntry(r.Context(), userID(r), r.PathValue("id"), in)
	s.writeLedger(w, r, http.StatusCreated, l, err)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var in services.EntryInput
	if !decodeOrFail(w, r, &in) {
		return
	}
	in.Description = sanitizeInput(in.Description)
	l, err := s.deps.Ledgers.UpdateEntry(r.Context(), userID(r), r.PathValue("id"), r.PathValue("entryID"), in)
	s.writeLedger(w, r, http.StatusOK, l, err)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	l, err := s.deps.Ledgers.DeleteEntry(r.Context(), userID(r), r.PathValue("id"), r.PathValue("entryID"))
	s.writeLedger(w, r, http.StatusOK, l, err)
}

func (s *Server) handleToggleEntry(w http.ResponseWriter, r *http.Request) {
	l, err := s.deps.Ledgers.TogglePaid(r.Context(), userID(r), r.PathValue("id"), r.PathValue("entryID"))
	s.writeLedger(w, r, http.StatusOK, l, err)
}

// handleSettleMonth marks the whole month as paid. The body must carry
// {"confirm": true} since the change touches every entry of the month.
func (s *Server) handleSettleMonth(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Confirm bool `json:"confirm"`
	}
	if !decodeOrFail(w, r, &in) {
		return
	}
	if !in.Confirm {
		BadRequestError("Confirme o acerto do mês.").Write(w)
		return
	}
	month, err := ParseMonthParam(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	l, err := s.deps.Ledgers.SettleMonth(r.Context(), userID(r), r.PathValue("id"), month)
	s.writeLedger(w, r, http.StatusOK, l, err)
}

// writeLedger answers ledger mutations with the ledger and the summary of
// the requested month.
func (s *Server) writeLedger(w http.ResponseWriter, r *http.Request, status int, l core.Ledger, err error) {
	month, perr := ParseMonthParam(r.URL.Query(), s.now())
	if perr != nil {
		month = core.CurrentMonth(s.now())
	}
	var data any
	if l.ID != "" {
		data = ledgerDetail{Ledger: l, Summary: ledger.Summarize(l, month), PublicPath: publicPath(l)}
	}
	s.writeResult(w, r, status, data, err)
}
