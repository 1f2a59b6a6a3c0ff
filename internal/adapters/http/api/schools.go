package api

import (
	"net/http"

	"github.com/okian/sportsmeet/internal/domain/model"
)

type schoolRequest struct {
	SchoolName string `json:"schoolName" validate:"required"`
}

type schoolResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	School  *model.School `json:"school,omitempty"`
}

type schoolsResponse struct {
	Schools []model.School `json:"schools"`
}

// SchoolsHandler manages the school registry.
type SchoolsHandler struct {
	deps SchoolDependencies
}

// NewSchoolsHandler creates a new schools handler.
func NewSchoolsHandler(deps SchoolDependencies) *SchoolsHandler {
	return &SchoolsHandler{deps: deps}
}

// HandleList handles GET /schools requests.
func (h *SchoolsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.ListSchools(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []model.School{}
	}
	writeJSON(w, http.StatusOK, schoolsResponse{Schools: list})
}

// HandleCreate handles POST /schools requests.
func (h *SchoolsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_school"
	var req schoolRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, err)
		return
	}
	school, err := h.deps.CreateSchool(r.Context(), req.SchoolName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, schoolResponse{Success: true, Message: "School added successfully", School: &school})
}

// HandleDelete handles POST /schools/delete requests.
func (h *SchoolsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_school"
	var req schoolRequest
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.DeleteSchool(r.Context(), req.SchoolName); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schoolResponse{Success: true, Message: "Successfully deleted school: " + req.SchoolName})
}
