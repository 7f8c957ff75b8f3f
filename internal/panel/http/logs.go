package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/solidhost/panel/internal/panel/domain"
	"github.com/solidhost/panel/internal/panel/service"
	"github.com/solidhost/panel/pkg/httpx"
	"github.com/solidhost/panel/pkg/slogx"
)

type LogsHandler struct {
	AuditService *service.AuditService
}

// HandleQuery returns audit rows newest-first, filtered by query parameters:
// user_id, changed_by, action, from, to (RFC3339), limit, offset.
func (h *LogsHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	q := r.URL.Query()

	var filter domain.LogFilter
	filter.UserID, _ = strconv.ParseInt(q.Get("user_id"), 10, 64)
	filter.ChangedBy, _ = strconv.ParseInt(q.Get("changed_by"), 10, 64)
	filter.ActionType = q.Get("action")

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid 'from' timestamp")
			return
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid 'to' timestamp")
			return
		}
		filter.To = t
	}

	limit, _ := strconv.ParseInt(q.Get("limit"), 10, 64)
	offset, _ := strconv.ParseInt(q.Get("offset"), 10, 64)

	page, err := h.AuditService.Query(ctx, filter, limit, offset)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, page)
}
