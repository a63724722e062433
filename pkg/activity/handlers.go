package activity

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tallyhq/tally/pkg/apperr"
	"github.com/tallyhq/tally/pkg/auth"
	"github.com/tallyhq/tally/pkg/groups"
	"github.com/tallyhq/tally/pkg/httputil"
	"github.com/tallyhq/tally/pkg/middleware"
	"github.com/tallyhq/tally/pkg/rbac"
)

// Handlers provides the activity trail HTTP API
type Handlers struct {
	store    Store
	recorder *Recorder
	groups   groups.Service
}

// NewHandlers creates new activity handlers
func NewHandlers(store Store, recorder *Recorder, groupService groups.Service) *Handlers {
	return &Handlers{
		store:    store,
		recorder: recorder,
		groups:   groupService,
	}
}

// RegisterRoutes registers activity trail routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/activity", h.listActivity).Methods("GET")
	router.HandleFunc("/activity", h.recordActivity).Methods("POST")
	router.HandleFunc("/activity/export", h.exportActivity).Methods("GET")
}

// listActivity handles GET /activity
//
// A caller filtering by group must be a real member of that group or a
// global administrator. Without a group filter the trail spans all groups,
// so only global administrators may read it.
func (h *Handlers) listActivity(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil || !authCtx.IsAuthenticated() {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	caller := authCtx.User

	filter, page, err := h.parseQuery(r)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	if filter.GroupID != "" {
		if err := h.requireGroupAccess(r, caller, filter.GroupID); err != nil {
			httputil.WriteAppError(w, err)
			return
		}
	} else if !rbac.IsGlobalAdmin(caller) {
		httputil.WriteForbidden(w, "administrator access required for unscoped activity queries")
		return
	}

	result, err := h.store.Query(r.Context(), filter, page)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	httputil.WriteSuccess(w, result)
}

// recordRequest is the POST /activity payload
type recordRequest struct {
	GroupID     *string                `json:"groupId,omitempty"`
	Action      Action                 `json:"action"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// recordActivity handles POST /activity
//
// Group-scoped entries require the caller to belong to the group or hold
// the global administrator role. The append itself is best effort: a store
// failure is logged and counted but the request still succeeds.
func (h *Handlers) recordActivity(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil || !authCtx.IsAuthenticated() {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	caller := authCtx.User

	var req recordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if !req.Action.Valid() {
		httputil.WriteValidationError(w, "unknown action: "+string(req.Action))
		return
	}
	if req.Description == "" {
		httputil.WriteValidationError(w, "description is required")
		return
	}

	if req.GroupID != nil && *req.GroupID != "" {
		if err := h.requireGroupAccess(r, caller, *req.GroupID); err != nil {
			httputil.WriteAppError(w, err)
			return
		}
	}

	h.recorder.Record(r.Context(), caller.ID, req.GroupID, req.Action, req.Description, req.Metadata)
	w.WriteHeader(http.StatusAccepted)
}

// exportActivity handles GET /activity/export
//
// Exports stream the full matching trail, so access is restricted to
// global administrators. Multiple actions may be requested via a repeated
// action parameter.
func (h *Handlers) exportActivity(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil || !authCtx.IsAuthenticated() {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	if !rbac.IsGlobalAdmin(authCtx.User) {
		httputil.WriteForbidden(w, "administrator access required")
		return
	}

	filter, _, err := h.parseQuery(r)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	if raw := r.URL.Query()["action"]; len(raw) > 1 {
		filter.Action = ""
		for _, a := range raw {
			filter.Actions = append(filter.Actions, Action(a))
		}
	}

	var entries []*Entry
	for pageNum := 1; ; pageNum++ {
		result, err := h.store.Query(r.Context(), filter, Page{Limit: MaxPageLimit, Page: pageNum})
		if err != nil {
			httputil.WriteAppError(w, err)
			return
		}
		entries = append(entries, result.Entries...)
		if !result.PageInfo.HasNext {
			break
		}
	}

	format := ExportFormat(r.URL.Query().Get("format"))
	data, err := Export(entries, format)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	switch format {
	case ExportFormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=activity.csv")
	case ExportFormatNDJSON:
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Content-Disposition", "attachment; filename=activity.ndjson")
	default:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", "attachment; filename=activity.json")
	}
	w.Write(data)
}

// parseQuery parses filter and pagination from query parameters
func (h *Handlers) parseQuery(r *http.Request) (Filter, Page, error) {
	query := r.URL.Query()

	filter := Filter{
		GroupID: query.Get("groupId"),
		UserID:  query.Get("userId"),
		Action:  Action(query.Get("action")),
	}

	start, err := httputil.ParseQueryDate(r, "startDate")
	if err != nil {
		return Filter{}, Page{}, apperr.Wrap(apperr.KindValidation, "invalid startDate", err)
	}
	filter.StartDate = start

	end, err := httputil.ParseQueryDate(r, "endDate")
	if err != nil {
		return Filter{}, Page{}, apperr.Wrap(apperr.KindValidation, "invalid endDate", err)
	}
	filter.EndDate = end

	pageNum, err := httputil.ParseQueryInt(r, "page", 1)
	if err != nil {
		return Filter{}, Page{}, apperr.Wrap(apperr.KindValidation, "invalid page", err)
	}
	limit, err := httputil.ParseQueryInt(r, "limit", DefaultPageLimit)
	if err != nil {
		return Filter{}, Page{}, apperr.Wrap(apperr.KindValidation, "invalid limit", err)
	}

	return filter, Page{Page: pageNum, Limit: limit}, nil
}

// requireGroupAccess checks that the caller may touch group-scoped entries.
// Global administrators pass; everyone else needs a stored membership.
func (h *Handlers) requireGroupAccess(r *http.Request, caller *auth.User, groupID string) error {
	if rbac.IsGlobalAdmin(caller) {
		return nil
	}
	_, err := h.groups.GetMembership(r.Context(), groupID, caller.ID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.New(apperr.KindPermissionDenied, "not a member of this group")
		}
		return err
	}
	return nil
}
