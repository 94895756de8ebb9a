package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	slogctx "github.com/veqryn/slog-context"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/middleware"
)

const maxBodyBytes = 64 << 10

type sessionResponse struct {
	Handle             string            `json:"sessionHandle"`
	UserID             string            `json:"userId"`
	TenantID           string            `json:"tenantId"`
	RotationCounter    uint64            `json:"rotationCounter"`
	AccessTokenPayload goSession.Payload `json:"accessTokenPayload"`
	SessionData        goSession.Payload `json:"sessionData,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	Expiry             time.Time         `json:"expiry"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.engine.Ping(ctx); err != nil {
		slogctx.Error(ctx, "store health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSessionInfo returns the stored state of the verified session.
func (s *Server) handleSessionInfo(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, r, goSession.ErrUnauthorised)
		return
	}

	info, err := s.engine.GetSessionInformation(r.Context(), sess.Handle())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if err := middleware.WriteSessionHeaders(w, sess); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Handle:             info.Handle,
		UserID:             info.UserID,
		TenantID:           info.TenantID,
		RotationCounter:    info.RotationCounter,
		AccessTokenPayload: info.AccessTokenPayload,
		SessionData:        info.SessionData,
		CreatedAt:          info.CreatedAt,
		Expiry:             info.Expiry,
	})
}

type createSessionRequest struct {
	UserID             string            `json:"userId"`
	TenantID           string            `json:"tenantId"`
	AccessTokenPayload goSession.Payload `json:"accessTokenPayload"`
	SessionData        goSession.Payload `json:"sessionData"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "userId is required"})
		return
	}

	ctx := r.Context()
	if req.TenantID != "" {
		ctx = goSession.WithTenantID(ctx, req.TenantID)
	}

	sess, err := s.engine.CreateNewSession(ctx, req.UserID, req.AccessTokenPayload, req.SessionData)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if err := middleware.WriteSessionHeaders(w, sess); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	slogctx.Info(ctx, "demo session created", "session", sess.Handle(), "user_id", req.UserID)
	writeJSON(w, http.StatusCreated, map[string]string{
		"status":        "OK",
		"sessionHandle": sess.Handle(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
