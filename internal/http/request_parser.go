// Package http serves the JSON API and the public read-only ledger page.
//
// This file implements utilities for parsing and validating request data.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"foco/internal/core"
	"foco/internal/dashboard"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("empty request body")

// ParseMonthParam reads ?month=YYYY-MM, defaulting to the month of now.
func ParseMonthParam(query url.Values, now time.Time) (core.MonthKey, error) {
	v := strings.TrimSpace(query.Get("month"))
	if v == "" {
		return core.CurrentMonth(now), nil
	}
	return core.ParseMonthKey(v)
}

// ParseDashboardFilter reads month, q, type and category. An unknown type is
// rejected rather than silently widening the view.
func ParseDashboardFilter(query url.Values, now time.Time) (dashboard.Filter, error) {
	month, err := ParseMonthParam(query, now)
	if err != nil {
		return dashboard.Filter{}, err
	}
	f := dashboard.Filter{
		Month:    month,
		Search:   sanitizeInput(query.Get("q")),
		Category: sanitizeInput(query.Get("category")),
	}
	if t := strings.TrimSpace(query.Get("type")); t != "" && t != "all" {
		f.Type = core.TransactionType(t)
		if !f.Type.Valid() {
			return dashboard.Filter{}, fmt.Errorf("%w: %q", core.ErrInvalidType, t)
		}
	}
	if f.Category == "all" {
		f.Category = ""
	}
	return f, nil
}

// DecodeJSON reads a bounded JSON body into dst. Unknown fields are
// rejected.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// sanitizeInput removes control characters except tab and newlines, and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
