// Package httpserver exposes the sync core's operations over HTTP. The wire
// surface is deliberately thin: document and event payloads travel as opaque
// byte bodies, everything else as small JSON envelopes.
package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/meridian-games/landsync/internal/errs"
	"github.com/meridian-games/landsync/internal/metrics"
	"github.com/meridian-games/landsync/internal/model"
	"github.com/meridian-games/landsync/internal/service"
)

// maxDocumentBytes bounds a single uploaded land document.
const maxDocumentBytes = 8 << 20

// Server wires the orchestrator into HTTP handlers.
type Server struct {
	orch     *service.Orchestrator
	log      *zap.Logger
	adminKey []byte
	metrics  metrics.Recorder
}

// New constructs the HTTP server facade.
func New(orch *service.Orchestrator, log *zap.Logger, adminKey []byte, rec metrics.Recorder) *Server {
	return &Server{orch: orch, log: log, adminKey: adminKey, metrics: rec}
}

// Router builds the route tree with logging, recovery, and metrics middleware.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(Recover(s.log), Logging(s.log), s.recordMetrics)

	r.Post("/v1/auth", s.handleAuth)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/v1/lands/{externalID}", s.handleGetLand)
		r.Put("/v1/lands/{externalID}", s.handlePutLand)
		r.Post("/v1/lands/{externalID}/token", s.handleIssueToken)
		r.Post("/v1/lands/{externalID}/events", s.handleSubmitEvent)
		r.Get("/v1/events", s.handleDrainEvents)

		r.Post("/v1/friends/{externalID}/request", s.handleFriendRequest)
		r.Post("/v1/friends/{externalID}/accept", s.handleFriendAccept)
		r.Post("/v1/friends/{externalID}/reject", s.handleFriendReject)
		r.Post("/v1/friends/{externalID}/remove", s.handleFriendRemove)
		r.Get("/v1/friends", s.handleListFriends)

		r.Get("/v1/currency", s.handleBalance)
		r.Post("/v1/currency", s.handleApplyCurrency)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/admin/presence", s.handlePresenceSnapshot)
		r.Get("/admin/presence/count", s.handlePresenceCount)
		r.Get("/admin/presence/stats", s.handlePresenceStats)
		r.Post("/admin/accounts/{externalID}/balance", s.handleSetBalance)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

// writeError maps sentinel errors to status codes in one place.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var code int
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		code = http.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, errs.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, errs.ErrRateLimited):
		code = http.StatusTooManyRequests
	case errors.Is(err, errs.ErrStoreUnavailable):
		code = http.StatusServiceUnavailable
	default:
		code = http.StatusInternalServerError
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	http.Error(w, http.StatusText(code), code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func externalIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "externalID"), 10, 64)
}

type authRequest struct {
	DisplayName       string `json:"display_name"`
	Email             string `json:"email"`
	DeviceFingerprint string `json:"device_fingerprint"`
}

type authResponse struct {
	AccountID   int64  `json:"account_id"`
	ExternalID  int64  `json:"external_id"`
	BearerToken string `json:"bearer_token"`
	Credential  string `json:"credential"`
	DisplayName string `json:"display_name"`
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	a, err := s.orch.Authenticate(r.Context(), model.Seed{
		DisplayName:       req.DisplayName,
		Email:             req.Email,
		DeviceFingerprint: req.DeviceFingerprint,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		AccountID:   a.AccountID,
		ExternalID:  a.ExternalID,
		BearerToken: a.BearerToken,
		Credential:  a.Credential,
		DisplayName: a.DisplayName,
	})
}

func (s *Server) handleGetLand(w http.ResponseWriter, r *http.Request) {
	extID, err := externalIDParam(r)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	doc, visits, err := s.orch.FetchDocument(r.Context(), accountFrom(r.Context()), extID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Visit-Count", strconv.Itoa(len(visits)))
	if len(visits) > 0 {
		seen := make(map[int64]struct{}, len(visits))
		ids := make([]string, 0, len(visits))
		for _, v := range visits {
			if _, ok := seen[v.FromAccount]; ok {
				continue
			}
			seen[v.FromAccount] = struct{}{}
			ids = append(ids, strconv.FormatInt(v.FromAccount, 10))
		}
		w.Header().Set("X-Visitors", strings.Join(ids, ","))
	}
	_, _ = w.Write(doc)
}

func (s *Server) handlePutLand(w http.ResponseWriter, r *http.Request) {
	extID, err := externalIDParam(r)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	owner := accountFrom(r.Context())
	if owner.ExternalID != extID {
		s.writeError(w, r, errs.ErrForbidden)
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes+1))
	if err != nil || len(data) == 0 || len(data) > maxDocumentBytes {
		http.Error(w, "bad document", http.StatusBadRequest)
		return
	}
	newToken, err := s.orch.SaveDocument(r.Context(), owner, data, r.Header.Get("X-Save-Token"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if newToken != "" {
		w.Header().Set("X-Save-Token", newToken)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	extID, err := externalIDParam(r)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	owner := accountFrom(r.Context())
	if owner.ExternalID != extID {
		s.writeError(w, r, errs.ErrForbidden)
		return
	}
	tok, err := s.orch.IssueSaveToken(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"save_token": tok})
}

func (s *Server) handleSubmitEvent(w http.ResponseWriter, r *http.Request) {
	extID, err := externalIDParam(r)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes))
	if err != nil || len(payload) == 0 {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	if err := s.orch.SubmitEvent(r.Context(), accountFrom(r.Context()), extID, payload); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type eventJSON struct {
	EventID     int64  `json:"event_id"`
	FromAccount int64  `json:"from_account"`
	Payload     []byte `json:"payload"` // base64 on the wire
	CreatedAt   int64  `json:"created_at"`
}

func (s *Server) handleDrainEvents(w http.ResponseWriter, r *http.Request) {
	envs, err := s.orch.DrainEvents(r.Context(), accountFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]eventJSON, 0, len(envs))
	for _, e := range envs {
		out = append(out, eventJSON{
			EventID:     e.EventID,
			FromAccount: e.FromAccount,
			Payload:     e.Payload,
			CreatedAt:   e.CreatedAt.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (s *Server) handleFriendRequest(w http.ResponseWriter, r *http.Request) {
	extID, err := externalIDParam(r)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	st, err := s.orch.RequestFriend(r.Context(), accountFrom(r.Context()), extID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(st)})
}

func (s *Server) friendMutation(
	w http.ResponseWriter, r *http.Request,
	op func(r *http.Request, extID int64) error,
) {
	extID, err := externalIDParam(r)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	if err := op(r, extID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFriendAccept(w http.ResponseWriter, r *http.Request) {
	s.friendMutation(w, r, func(r *http.Request, extID int64) error {
		return s.orch.AcceptFriend(r.Context(), accountFrom(r.Context()), extID)
	})
}

func (s *Server) handleFriendReject(w http.ResponseWriter, r *http.Request) {
	s.friendMutation(w, r, func(r *http.Request, extID int64) error {
		return s.orch.RejectFriend(r.Context(), accountFrom(r.Context()), extID)
	})
}

func (s *Server) handleFriendRemove(w http.ResponseWriter, r *http.Request) {
	s.friendMutation(w, r, func(r *http.Request, extID int64) error {
		return s.orch.RemoveFriend(r.Context(), accountFrom(r.Context()), extID)
	})
}

type friendJSON struct {
	ExternalID  int64  `json:"external_id"`
	DisplayName string `json:"display_name"`
	Since       int64  `json:"since"`
	Online      bool   `json:"online"`
}

func (s *Server) handleListFriends(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, total, err := s.orch.ListFriends(r.Context(), accountFrom(r.Context()), offset, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]friendJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, friendJSON{
			ExternalID:  e.ExternalID,
			DisplayName: e.DisplayName,
			Since:       e.Since.Unix(),
			Online:      s.orch.IsOnline(e.AccountID),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"friends": out, "total": total})
}

type currencyJSON struct {
	TotalAwarded   int64 `json:"total_awarded"`
	TotalPurchased int64 `json:"total_purchased"`
	Balance        int64 `json:"balance"`
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	cur, err := s.orch.Balance(r.Context(), accountFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, currencyJSON{
		TotalAwarded:   cur.TotalAwarded,
		TotalPurchased: cur.TotalPurchased,
		Balance:        cur.Balance,
	})
}

type applyCurrencyRequest struct {
	Credential string `json:"credential"`
	Deltas     []struct {
		ID     string `json:"id"`
		Amount int64  `json:"amount"`
	} `json:"deltas"`
}

func (s *Server) handleApplyCurrency(w http.ResponseWriter, r *http.Request) {
	var req applyCurrencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	deltas := make([]model.Delta, 0, len(req.Deltas))
	for _, d := range req.Deltas {
		deltas = append(deltas, model.Delta{ID: d.ID, Amount: d.Amount})
	}
	acks, cur, err := s.orch.ApplyCurrency(
		r.Context(), accountFrom(r.Context()), req.Credential, r.RemoteAddr, deltas)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	processed := make([]string, 0, len(acks))
	for _, a := range acks {
		processed = append(processed, a.ID)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"processed": processed,
		"balance":   cur.Balance,
	})
}

func (s *Server) handlePresenceSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.orch.PresenceSnapshot()})
}

func (s *Server) handlePresenceCount(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"count": s.orch.PresenceCount()})
}

func (s *Server) handlePresenceStats(w http.ResponseWriter, _ *http.Request) {
	st := s.orch.PresenceStats()
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": st.Sessions,
		"avg_age":  st.AvgAge.Seconds(),
		"min_age":  st.MinAge.Seconds(),
		"max_age":  st.MaxAge.Seconds(),
		"per_node": st.PerNode,
	})
}

func (s *Server) handleSetBalance(w http.ResponseWriter, r *http.Request) {
	extID, err := externalIDParam(r)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := s.orch.SetBalance(r.Context(), extID, req.Amount); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
