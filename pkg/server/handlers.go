package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/infinite-feed/pkg/pagination"
	"github.com/Sternrassler/infinite-feed/pkg/session"
	"github.com/Sternrassler/infinite-feed/pkg/trigger"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// recordsQuery is the parsed query of GET /api/v1/records.
type recordsQuery struct {
	Page int `validate:"min=1"`
	Size int `validate:"min=1"`
}

// viewportRequest is the body of POST /api/v1/sessions/{id}/viewport.
type viewportRequest struct {
	ViewportTop    *float64 `json:"viewport_top" validate:"required,gte=0"`
	ViewportHeight *float64 `json:"viewport_height" validate:"required,gt=0"`
	ContentHeight  *float64 `json:"content_height" validate:"required,gte=0"`
}

// sessionResponse is a feed snapshot plus session metadata.
type sessionResponse struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	TotalRecords int       `json:"total_records"`
	Loading      bool      `json:"loading"`
	pagination.Snapshot
	Groups []pagination.Group `json:"groups,omitempty"`
}

// triggerResponse answers the manual and viewport triggers.
type triggerResponse struct {
	Requested bool                 `json:"requested"`
	State     pagination.LoadState `json:"state"`
	Cursor    int                  `json:"cursor"`
	Exhausted bool                 `json:"exhausted"`
	Remaining *float64             `json:"remaining,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Sessions:  s.registry.Len(),
	})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	q, err := parseRecordsQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if q.Size > s.config.MaxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("size must be <= %d", s.config.MaxBatchSize))
		return
	}

	batch, err := s.records.FetchBatch(r.Context(), q.Page, q.Size)
	if err != nil {
		s.logger.Warn().Err(err).Int("page", q.Page).Int("batch_size", q.Size).Msg("Records fetch failed")
		status := http.StatusBadGateway
		if r.Context().Err() != nil {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, "fetch failed")
		return
	}

	writeJSON(w, http.StatusOK, batch)
}

func parseRecordsQuery(r *http.Request) (recordsQuery, error) {
	var q recordsQuery
	var err error
	if q.Page, err = strconv.Atoi(r.URL.Query().Get("page")); err != nil {
		return q, fmt.Errorf("page must be an integer")
	}
	if q.Size, err = strconv.Atoi(r.URL.Query().Get("size")); err != nil {
		return q, fmt.Errorf("size must be an integer")
	}
	if err := validate.Struct(q); err != nil {
		return q, fmt.Errorf("page and size must be >= 1")
	}
	return q, nil
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.registry.Create(r.Context())
	if err != nil {
		if errors.Is(err, session.ErrLimitReached) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("Session create failed")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	w.Header().Set("Location", "/api/v1/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, newSessionResponse(sess, false))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess, r.URL.Query().Get("group") == "batch"))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLoadMore(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	requested := sess.LoadMore(r.Context())
	writeJSON(w, http.StatusAccepted, newTriggerResponse(sess, requested, nil))
}

func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req viewportRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	g := trigger.Geometry{
		ViewportTop:    *req.ViewportTop,
		ViewportHeight: *req.ViewportHeight,
		ContentHeight:  *req.ContentHeight,
	}
	remaining := g.Remaining()
	requested := sess.Signal(g)
	writeJSON(w, http.StatusAccepted, newTriggerResponse(sess, requested, &remaining))
}

// lookup resolves {id} or writes a 404.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return sess, true
}

func newSessionResponse(sess *session.Session, grouped bool) sessionResponse {
	snap := sess.Controller.Snapshot()
	resp := sessionResponse{
		ID:           sess.ID,
		CreatedAt:    sess.CreatedAt,
		TotalRecords: len(snap.Records),
		Loading:      snap.Loading(),
		Snapshot:     snap,
	}
	if grouped {
		resp.Groups = snap.Groups()
	}
	return resp
}

func newTriggerResponse(sess *session.Session, requested bool, remaining *float64) triggerResponse {
	snap := sess.Controller.Snapshot()
	return triggerResponse{
		Requested: requested,
		State:     snap.State,
		Cursor:    snap.Cursor,
		Exhausted: snap.Exhausted,
		Remaining: remaining,
	}
}

// validationMessage names the first failing field.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
	return err.Error()
}
