// ABOUTME: HTTP handlers for session add, list, get, patch and delete
// ABOUTME: Maps store.ErrNotFound to 404 and backend failures to 500

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/2389/coven-sessions/internal/backend"
	"github.com/2389/coven-sessions/internal/store"
)

// errTrailingData rejects a body with more after its JSON value
var errTrailingData = errors.New("trailing data after JSON body")

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// idempotencyKeyHeader makes POST /api/sessions safe to retry
const idempotencyKeyHeader = "Idempotency-Key"

// CreateSessionRequest is the body of POST /api/sessions
type CreateSessionRequest struct {
	UID  string         `json:"uid,omitempty"`
	Meta store.Document `json:"meta,omitempty"`
	Data store.Document `json:"data,omitempty"`
}

// PatchSessionRequest is the body of PATCH /api/sessions/{uid}
type PatchSessionRequest struct {
	Meta store.Document `json:"meta,omitempty"`
	Data store.Document `json:"data,omitempty"`
}

// SessionResponse is returned by POST and GET
type SessionResponse struct {
	UID  string         `json:"uid"`
	Meta store.Document `json:"meta"`
	Data store.Document `json:"data"`
}

// ListSessionsResponse is returned by GET /api/sessions
type ListSessionsResponse struct {
	UIDs []string `json:"uids"`
}

// handleSessions routes collection requests by HTTP method.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSessions(w, r)
	case http.MethodPost:
		s.handleCreateSession(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleSession routes /api/sessions/{uid} requests by HTTP method.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	uid := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if uid == "" || strings.Contains(uid, "/") {
		s.sendJSONError(w, http.StatusBadRequest, "invalid path")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetSession(w, r, uid)
	case http.MethodPatch:
		s.handlePatchSession(w, r, uid)
	case http.MethodDelete:
		s.handleDeleteSession(w, r, uid)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleListSessions handles GET /api/sessions.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	uids, err := s.sessions.UIDs(r.Context())
	if err != nil {
		s.logBackendError("failed to list sessions", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.sendJSON(w, http.StatusOK, ListSessionsResponse{UIDs: uids})
}

// handleCreateSession handles POST /api/sessions. A uid is generated when the body has none.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeBody(r.Body, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UID == "" {
		req.UID = uuid.NewString()
	}

	key := r.Header.Get(idempotencyKeyHeader)
	if key != "" {
		if uid, dup := s.idem.Claim(key, req.UID); dup {
			s.replayCreate(w, r, uid)
			return
		}
	}

	meta, data, err := s.sessions.Add(r.Context(), req.UID, req.Meta, req.Data)
	if err != nil {
		if key != "" {
			s.idem.Forget(key)
		}
		s.logBackendError("failed to add session", err, "uid", req.UID)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.logger.Info("session added", "uid", req.UID)
	s.sendJSON(w, http.StatusCreated, SessionResponse{UID: req.UID, Meta: orEmpty(meta), Data: orEmpty(data)})
}

// replayCreate answers a repeated create with the session the first request made.
// The first request may still be running, in which case the row is not visible yet.
func (s *Server) replayCreate(w http.ResponseWriter, r *http.Request, uid string) {
	meta, data, err := s.sessions.Get(r.Context(), uid)
	if errors.Is(err, store.ErrNotFound) {
		s.sendJSONError(w, http.StatusConflict, "a request with this idempotency key is in progress or its session was removed")
		return
	}
	if err != nil {
		s.logBackendError("failed to replay session create", err, "uid", uid)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.logger.Debug("replayed session create", "uid", uid)
	s.sendJSON(w, http.StatusOK, SessionResponse{UID: uid, Meta: meta, Data: data})
}

// handleGetSession handles GET /api/sessions/{uid}.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, uid string) {
	meta, data, err := s.sessions.Get(r.Context(), uid)
	if errors.Is(err, store.ErrNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.logBackendError("failed to get session", err, "uid", uid)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.sendJSON(w, http.StatusOK, SessionResponse{UID: uid, Meta: meta, Data: data})
}

// handlePatchSession handles PATCH /api/sessions/{uid}: shallow merge of both documents.
func (s *Server) handlePatchSession(w http.ResponseWriter, r *http.Request, uid string) {
	var req PatchSessionRequest
	if err := decodeBody(r.Body, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.sessions.Set(r.Context(), uid, req.Meta, req.Data)
	if errors.Is(err, store.ErrNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.logBackendError("failed to update session", err, "uid", uid)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteSession handles DELETE /api/sessions/{uid}. Unknown uids also get 204.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, uid string) {
	if err := s.sessions.Remove(r.Context(), uid); err != nil {
		s.logBackendError("failed to remove session", err, "uid", uid)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.logger.Info("session removed", "uid", uid)
	w.WriteHeader(http.StatusNoContent)
}

// logBackendError logs a store failure, adding the SQLSTATE when Postgres reported one.
func (s *Server) logBackendError(msg string, err error, attrs ...any) {
	if code := backend.ErrorCode(err); code != "" {
		attrs = append(attrs, "sqlstate", code)
	}
	s.logger.Error(msg, append(attrs, "error", err)...)
}

// sendJSON writes v as a JSON response with the given status.
func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// decodeBody reads exactly one JSON value, keeping numbers as json.Number so
// large integers are stored without loss. An empty body decodes to the zero value.
func decodeBody(body io.Reader, v any) error {
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

func orEmpty(doc store.Document) store.Document {
	if doc == nil {
		return store.Document{}
	}
	return doc
}
