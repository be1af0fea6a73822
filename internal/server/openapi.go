package server

import (
	"encoding/json"
	"net/http"
	"strings"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/afes-website/manage-back/internal/handler/health"
)

// operation describes one documented route.
type operation struct {
	method, path, summary, description string
	req                                any
	resp                               any
	status                             int
	errors                             []int
}

var operations = []operation{
	{http.MethodGet, "/healthz", "Health check", "Reports each backend dependency. Responds 503 with the same body when any check fails.",
		nil, health.Report{}, http.StatusOK, nil},
	{http.MethodPost, "/auth/login", "Log in", "Exchanges user ID and password for a bearer token.",
		LoginRequest{}, LoginResponse{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusUnauthorized}},
	{http.MethodGet, "/auth/user", "Current user", "Returns the authenticated user and their permissions.",
		nil, UserResponse{}, http.StatusOK, []int{http.StatusUnauthorized}},
	{http.MethodGet, "/terms", "List terms", "Returns every term keyed by ID.",
		nil, map[string]TermResponse{}, http.StatusOK, []int{http.StatusUnauthorized}},

	{http.MethodGet, "/exhibitions", "List exhibitions", "Returns live occupancy of every room and event-wide totals.",
		nil, ExhibitionListResponse{}, http.StatusOK, []int{http.StatusUnauthorized}},
	{http.MethodGet, "/exhibitions/{id}", "Get exhibition", "Returns one room with occupancy per term.",
		nil, ExhibitionResponse{}, http.StatusOK, []int{http.StatusUnauthorized, http.StatusNotFound}},
	{http.MethodPost, "/exhibitions/enter", "Enter room", "Admits a guest into the calling terminal's room. Requires exhibition permission.",
		GuestIDRequest{}, GuestResponse{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden}},
	{http.MethodPost, "/exhibitions/exit", "Exit room", "Lets a guest out of the calling terminal's room. Requires exhibition permission.",
		GuestIDRequest{}, GuestResponse{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden}},
	{http.MethodGet, "/exhibitions/log", "Room activity log", "Returns enter and exit entries for the calling terminal's room, oldest first.",
		nil, []LogEntryResponse{}, http.StatusOK, []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound}},

	{http.MethodGet, "/guests", "List guests", "Returns every checked-in guest.",
		nil, []GuestResponse{}, http.StatusOK, []int{http.StatusUnauthorized, http.StatusForbidden}},
	{http.MethodGet, "/guests/{id}", "Get guest", "Returns one guest by wristband code.",
		nil, GuestResponse{}, http.StatusOK, []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound}},
	{http.MethodGet, "/guests/{id}/log", "Guest activity log", "Returns the guest's enter and exit entries, oldest first.",
		nil, []LogEntryResponse{}, http.StatusOK, []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound}},
	{http.MethodPost, "/guests/check-in", "Check in", "Consumes a reservation and registers a wristband. Requires executive permission.",
		CheckInRequest{}, GuestResponse{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden}},
	{http.MethodPost, "/guests/{id}/check-out", "Check out", "Records the guest's final departure. Requires executive permission. An unknown guest is rejected with 400 GUEST_NOT_FOUND.",
		nil, GuestResponse{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden}},
	{http.MethodPost, "/guests/{id}/enter", "Enter room by guest", "Admits the guest into the calling terminal's room.",
		nil, GuestResponse{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound}},
	{http.MethodPost, "/guests/{id}/exit", "Exit room by guest", "Lets the guest out of the calling terminal's room.",
		nil, GuestResponse{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound}},

	{http.MethodGet, "/reservations/{id}", "Get reservation", "Returns a reservation, its term and whether it was used.",
		nil, ReservationResponse{}, http.StatusOK, []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound}},

	{http.MethodPost, "/admin/terms", "Create term", "Creates a term. Requires admin permission.",
		AdminTermRequest{}, AdminTermResponse{}, http.StatusCreated, []int{http.StatusBadRequest, http.StatusConflict, http.StatusForbidden}},
	{http.MethodPost, "/admin/rooms", "Create room", "Creates a room and its terminal user. Requires admin permission.",
		AdminRoomRequest{}, ExhibitionResponse{}, http.StatusCreated, []int{http.StatusBadRequest, http.StatusConflict, http.StatusForbidden}},
	{http.MethodPost, "/admin/reservations", "Create reservation", "Creates a reservation on a term. Requires admin permission.",
		AdminReservationRequest{}, ReservationResponse{}, http.StatusCreated, []int{http.StatusBadRequest, http.StatusConflict, http.StatusForbidden}},
	{http.MethodPost, "/admin/users", "Create user", "Creates a staff user. Requires admin permission.",
		AdminUserRequest{}, UserResponse{}, http.StatusCreated, []int{http.StatusBadRequest, http.StatusConflict, http.StatusForbidden}},
	{http.MethodGet, "/admin/wristbands", "Mint wristband codes", "Returns unused codes for a prefix. Query: prefix, count. Responds 409 when no unused codes can be drawn.",
		wristbandQuery{}, WristbandBatchResponse{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusForbidden, http.StatusConflict}},
}

type idParam struct {
	ID string `path:"id"`
}

type wristbandQuery struct {
	Prefix string `query:"prefix" required:"true"`
	Count  int    `query:"count" minimum:"1" maximum:"500"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Festival Admission API"
	r.Spec.Info.Version = "1.0.0"
	r.Spec.Info.WithDescription("Wristband check-in, exhibition room admission and occupancy reporting.")

	for _, op := range operations {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		oc.SetDescription(op.description)
		req := op.req
		if req == nil && strings.Contains(op.path, "{id}") {
			req = idParam{}
		}
		if req != nil {
			oc.AddReqStructure(req)
		}
		oc.AddRespStructure(op.resp, openapi.WithHTTPStatus(op.status))
		for _, status := range op.errors {
			oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(status))
		}
		_ = r.AddOperation(oc)
	}

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
