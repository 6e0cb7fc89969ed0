package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/dashsync/client"
	"github.com/persistorai/dashsync/internal/models"
	"github.com/persistorai/dashsync/internal/query"
	"github.com/persistorai/dashsync/internal/syncer"
)

// StateHandler exposes the controller's state and accepts user actions.
type StateHandler struct {
	ctrl SyncController
	log  *logrus.Logger
}

// NewStateHandler creates a StateHandler.
func NewStateHandler(ctrl SyncController, log *logrus.Logger) *StateHandler {
	return &StateHandler{ctrl: ctrl, log: log}
}

// Get handles GET /api/v1/state.
func (h *StateHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, NewStateView(h.ctrl.Snapshot()))
}

// Records handles GET /api/v1/records.
func (h *StateHandler) Records(c *gin.Context) {
	s := h.ctrl.Snapshot()

	records := s.Records
	if records == nil {
		records = []models.Record{}
	}

	c.JSON(http.StatusOK, gin.H{"records": records, "applied_seq": s.AppliedSeq})
}

// SetSelection handles PUT /api/v1/selection. The body is either
// {"query": "<encoded>"} or a facet map such as {"topics": ["oil"]}.
func (h *StateHandler) SetSelection(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "unable to read request body")
		return
	}

	sel, err := parseSelection(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
		return
	}

	if err := h.ctrl.SetSelection(c.Request.Context(), sel); err != nil {
		h.respondSyncError(c, err)
		return
	}

	h.log.WithFields(logrus.Fields{"action": "selection.set", "query": sel.Key()}).Info("audit")

	c.JSON(http.StatusAccepted, gin.H{"query": sel.Key(), "selection": sel.Map()})
}

// Refresh handles POST /api/v1/refresh.
func (h *StateHandler) Refresh(c *gin.Context) {
	if err := h.ctrl.Refresh(); err != nil {
		h.respondSyncError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "refresh scheduled"})
}

// Insert handles POST /api/v1/insert.
func (h *StateHandler) Insert(c *gin.Context) {
	var records []models.Record
	if err := c.ShouldBindJSON(&records); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "body must be a JSON array of records")
		return
	}

	resp, err := h.ctrl.Insert(c.Request.Context(), records)
	if err != nil {
		h.respondSyncError(c, err)
		return
	}

	h.log.WithFields(logrus.Fields{"action": "records.insert", "count": len(records)}).Info("audit")

	c.JSON(http.StatusCreated, resp)
}

func (h *StateHandler) respondSyncError(c *gin.Context, err error) {
	var apiErr *client.APIError

	switch {
	case errors.Is(err, syncer.ErrInvalidRecords):
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
	case errors.Is(err, syncer.ErrThrottled):
		respondError(c, http.StatusTooManyRequests, ErrCodeRateLimited, "refresh requested too often")
	case errors.Is(err, syncer.ErrStopped):
		respondError(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "sync controller stopped")
	case client.IsClientError(err) && errors.As(err, &apiErr):
		respondError(c, http.StatusUnprocessableEntity, ErrCodeBackendRejected, apiErr.Message)
	case client.IsTransient(err):
		h.log.WithError(err).Warn("backend request failed")
		respondError(c, http.StatusBadGateway, ErrCodeBadGateway, "backend unavailable")
	default:
		h.log.WithError(err).Error("sync request failed")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}

// parseSelection accepts {"query": "..."} or a facet map whose values are a
// string, a number or a list of strings.
func parseSelection(raw []byte) (query.Selection, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return query.Empty, errors.New("body must be a JSON object")
	}

	if q, ok := fields["query"]; ok {
		if len(fields) != 1 {
			return query.Empty, errors.New("query cannot be combined with facet keys")
		}

		var encoded string
		if err := json.Unmarshal(q, &encoded); err != nil {
			return query.Empty, errors.New("query must be a string")
		}

		return query.Decode(encoded)
	}

	facets := make(map[string][]string, len(fields))
	for k, v := range fields {
		vals, err := facetValues(v)
		if err != nil {
			return query.Empty, fmt.Errorf("%s: %w", k, err)
		}
		facets[k] = vals
	}

	return query.FromMap(facets)
}

func facetValues(raw json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}, nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return []string{strconv.FormatFloat(n, 'f', -1, 64)}, nil
	}

	return nil, errors.New("value must be a string, number or list of strings")
}
