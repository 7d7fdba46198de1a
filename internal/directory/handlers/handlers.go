// Package handlers exposes the directory service over HTTP and serves the
// gRPC health protocol next to it.
package handlers

import (
	"context"
	"net/http"

	"github.com/gartstein/directory/internal/directory/catalog"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/gartstein/directory/internal/directory/permissions"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// IdempotencyHeader carries the client-chosen key that makes a create retryable.
const IdempotencyHeader = "Idempotency-Key"

// DirectoryController defines the business logic interface the HTTP
// handlers invoke.
type DirectoryController interface {
	ListDesignations(ctx context.Context) []string
	ResolveDepartments(ctx context.Context, designation string) catalog.Departments
	ListEmploymentTypes(ctx context.Context) []models.EmploymentType
	CreateEmployee(ctx context.Context, in *models.NewEmployee, idempotencyKey string) (*models.Employee, error)
	ListEmployees(ctx context.Context) ([]*models.Employee, error)
	GetEmployee(ctx context.Context, employeeID string) (*models.Employee, error)
	UpdateEmployee(ctx context.Context, update *models.EmployeeUpdate) (*models.Employee, error)
	UpdatePermissions(ctx context.Context, employeeID string, patch map[string]string) (permissions.Map, error)
	GetPermissions(ctx context.Context, employeeID string) (permissions.Map, error)
	DeleteEmployee(ctx context.Context, employeeID string) error
}

// Handler serves the /api routes.
type Handler struct {
	service DirectoryController
	logger  *zap.Logger
}

func NewHandler(service DirectoryController, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("http_handler")}
}

func (h *Handler) listDesignations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ListDesignations(r.Context()))
}

func (h *Handler) resolveDepartments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ResolveDepartments(r.Context(), chi.URLParam(r, "designation")))
}

func (h *Handler) listEmploymentTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ListEmploymentTypes(r.Context()))
}

func (h *Handler) createEmployee(w http.ResponseWriter, r *http.Request) {
	var in models.NewEmployee
	if err := decode(r, &in); err != nil {
		h.writeError(w, err)
		return
	}

	created, err := h.service.CreateEmployee(r.Context(), &in, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) listEmployees(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListEmployees(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) getEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.service.GetEmployee(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func (h *Handler) updateEmployee(w http.ResponseWriter, r *http.Request) {
	var update models.EmployeeUpdate
	if err := decode(r, &update); err != nil {
		h.writeError(w, err)
		return
	}
	update.EmployeeID = chi.URLParam(r, "employeeID")

	updated, err := h.service.UpdateEmployee(r.Context(), &update)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteEmployee(r.Context(), chi.URLParam(r, "employeeID")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Employee deleted successfully"})
}

type permissionsBody struct {
	Permissions map[string]string `json:"permissions"`
}

func (h *Handler) updatePermissions(w http.ResponseWriter, r *http.Request) {
	var body permissionsBody
	if err := decode(r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	if body.Permissions == nil {
		h.writeError(w, missingField("permissions"))
		return
	}

	perms, err := h.service.UpdatePermissions(r.Context(), chi.URLParam(r, "employeeID"), body.Permissions)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, perms)
}

func (h *Handler) getPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.GetPermissions(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, perms)
}
