package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/chative-concierge/agent/catalog"
	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	"github.com/tanpawarit/chative-concierge/agent/outlet"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
)

const (
	maxUserIDLen  = 100
	maxMessageLen = 1000
	maxQueryLen   = 200
	maxBodyBytes  = 64 << 10
)

var blockedMarkup = []string{"<script", "<?php"}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type chatResponse struct {
	Response  string               `json:"response"`
	Intent    contractx.Intent     `json:"intent"`
	Kind      contractx.ResultKind `json:"kind"`
	ToolsUsed []string             `json:"tools_used"`
	Data      any                  `json:"data,omitempty"`
	ErrorCode string               `json:"error_code,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

type productsResponse struct {
	Query   string          `json:"query"`
	Results []catalog.Match `json:"results"`
	Summary string          `json:"summary"`
}

type outletsResponse struct {
	Query   string          `json:"query"`
	Filter  string          `json:"filter"`
	Results []outlet.Record `json:"results"`
	Count   int             `json:"count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := validateChat(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	res, err := s.concierge.Handle(r.Context(), req.UserID, req.Message)
	switch {
	case errors.Is(err, contractx.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "conversation is busy, try again")
		return
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Str("user_id", req.UserID).Msg("chat turn failed")
		writeJSON(w, http.StatusOK, chatResponse{
			Response:  "Sorry, something went wrong on our side. Please try again.",
			Intent:    contractx.IntentUnknown,
			Kind:      contractx.KindError,
			ToolsUsed: []string{},
			Timestamp: time.Now().UTC(),
		})
		return
	}

	hlog.FromRequest(r).Debug().
		Str("user_id", req.UserID).
		Str("intent", string(res.Intent)).
		Str("kind", string(res.Kind)).
		Msg("chat turn")
	writeJSON(w, http.StatusOK, chatResponse{
		Response:  res.Text,
		Intent:    res.Intent,
		Kind:      res.Kind,
		ToolsUsed: res.ToolsUsed(),
		Data:      res.Data,
		ErrorCode: res.ErrorCode,
		Timestamp: res.At,
	})
}

func validateChat(req *chatRequest) string {
	req.UserID = strings.TrimSpace(req.UserID)
	req.Message = strings.TrimSpace(req.Message)

	switch n := utf8.RuneCountInString(req.UserID); {
	case n == 0:
		return "user_id is required"
	case n > maxUserIDLen:
		return "user_id is too long"
	}
	switch n := utf8.RuneCountInString(req.Message); {
	case n == 0:
		return "message is required"
	case n > maxMessageLen:
		return "message is too long"
	}
	lower := strings.ToLower(req.Message)
	for _, m := range blockedMarkup {
		if strings.Contains(lower, m) {
			return "message contains markup that is not allowed"
		}
	}
	return ""
}

func (s *Server) products(w http.ResponseWriter, r *http.Request) {
	query, ok := queryParam(w, r)
	if !ok {
		return
	}
	matches := s.catalog.Search(query)
	writeJSON(w, http.StatusOK, productsResponse{
		Query:   query,
		Results: matches,
		Summary: catalog.Summarize(matches, query),
	})
}

func (s *Server) searchOutlets(w http.ResponseWriter, r *http.Request) {
	query, ok := queryParam(w, r)
	if !ok {
		return
	}

	f, err := outlet.Translate(query)
	if errors.Is(err, contractx.ErrUnsupportedQueryShape) {
		writeError(w, http.StatusBadRequest, "unsupported outlet query: name a location, an outlet or a service")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := s.outlets.Query(r.Context(), f)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Stringer("filter", f).Msg("outlet query failed")
		writeError(w, http.StatusInternalServerError, "outlet lookup failed")
		return
	}
	if records == nil {
		records = []outlet.Record{}
	}
	writeJSON(w, http.StatusOK, outletsResponse{
		Query:   query,
		Filter:  f.String(),
		Results: records,
		Count:   len(records),
	})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	conv, err := s.concierge.Conversation(r.Context(), userID)
	if errors.Is(err, statex.ErrInvalidSession) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	err := s.concierge.Reset(r.Context(), userID)
	if errors.Is(err, statex.ErrInvalidSession) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	components := map[string]string{"catalog": "ok", "outlets": "ok"}
	if s.catalog.Len() == 0 {
		components["catalog"] = "empty"
	}
	if err := s.outlets.Ping(r.Context()); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("outlet store ping failed")
		components["outlets"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{"status": overall, "components": components})
}

func queryParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	switch n := utf8.RuneCountInString(query); {
	case n == 0:
		writeError(w, http.StatusBadRequest, "query is required")
		return "", false
	case n > maxQueryLen:
		writeError(w, http.StatusBadRequest, "query is too long")
		return "", false
	}
	return query, true
}

// writeJSON encodes v before touching the response so an encoding failure
// still yields a structured 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Int("status", status).Msg("encode response")
		status = http.StatusInternalServerError
		body = []byte(`{"error":"response could not be encoded"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
