package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"foco/internal/core"
	"foco/internal/netpay"
)

// handleDashboard returns the month view: settlements first, then the
// month's transactions newest first, with stats over the filtered rows.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	f, err := ParseDashboardFilter(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	view, err := s.deps.Dashboard.Load(r.Context(), userID(r), f)
	s.writeResult(w, r, http.StatusOK, view, err)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.deps.Transactions.List(r.Context(), userID(r))).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if !decodeOrFail(w, r, &tx) {
		return
	}
	tx.Note = sanitizeInput(tx.Note)
	tx.Person = sanitizeInput(tx.Person)
	saved, err := s.deps.Transactions.Create(r.Context(), userID(r), tx)
	s.writeResult(w, r, http.StatusCreated, saved, err)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if !decodeOrFail(w, r, &tx) {
		return
	}
	tx.Note = sanitizeInput(tx.Note)
	tx.Person = sanitizeInput(tx.Person)
	saved, err := s.deps.Transactions.Update(r.Context(), userID(r), r.PathValue("id"), tx)
	s.writeResult(w, r, http.StatusOK, saved, err)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Transactions.Delete(r.Context(), userID(r), r.PathValue("id"))
	s.writeResult(w, r, http.StatusNoContent, nil, err)
}

type netPayRequest struct {
	Gross decimal.Decimal `json:"gross"`
	ID    string          `json:"id,omitempty"`
	Date  core.Date       `json:"date,omitempty"`
	Note  string          `json:"note,omitempty"`
}

type netPayResponse struct {
	Transaction core.Transaction `json:"transaction"`
	Breakdown   netpay.Result    `json:"breakdown"`
}

// handleNetPay prefills a contractor income from the gross amount. Nothing
// is saved; the client posts the transaction once the user confirms.
func (s *Server) handleNetPay(w http.ResponseWriter, r *http.Request) {
	var in netPayRequest
	if !decodeOrFail(w, r, &in) {
		return
	}
	tx, result := s.deps.Transactions.PrefillNetPay(core.Transaction{
		ID:   in.ID,
		Date: in.Date,
		Note: sanitizeInput(in.Note),
	}, in.Gross)
	NewResponse().JSON(netPayResponse{Transaction: tx, Breakdown: result}).Write(w)
}
