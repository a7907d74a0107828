package handlers

import (
	"net/http"
	"strconv"

	"account-service/internal/middleware"
	"account-service/internal/models"
	"account-service/internal/validation"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CreateUser handles POST /admin/users. Unlike Register it honours the role.
// @Summary      Create a user
// @Tags         admin
// @Security     Bearer
// @Accept       json,mpfd
// @Produce      json
// @Param        body  body      models.AdminCreateUserRequest  true  "User data"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      401   {object}  map[string]interface{}
// @Failure      403   {object}  map[string]interface{}
// @Router       /admin/users [post]
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.AdminCreateUserRequest
	image, err := decodeBody(w, r, &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	validation.SanitizeFields(&req.FirstName, &req.LastName)
	if err := validation.ValidateStruct(&req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if image != nil {
		if req.Image, err = h.uploadImage(r, image); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	user, err := h.service.CreateUser(r.Context(), req.ToNewUser())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.app.Logger.Info().
		Str("request_id", middleware.RequestIDFrom(r.Context())).
		Str("user_id", user.ID).
		Str("role", string(user.Role)).
		Msg("User created by admin")

	h.writeSuccess(w, http.StatusCreated, "User Created", user)
}

// ListUsers handles GET /admin/users with pagination and search.
// @Summary      List users
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Param        page    query     int     false  "Page (default 1)"
// @Param        limit   query     int     false  "Page size (default 10, max 100)"
// @Param        search  query     string  false  "Substring of first name, last name, email or username"
// @Success      200     {object}  map[string]interface{}
// @Failure      401     {object}  map[string]interface{}
// @Failure      403     {object}  map[string]interface{}
// @Router       /admin/users [get]
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	// Unparseable values fall back to the service defaults.
	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))
	search := query.Get("search")

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.Int("users.page", page),
		attribute.Int("users.limit", limit),
	)

	result, err := h.service.GetUsersPaginated(r.Context(), page, limit, search)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Users fetched",
		"data":       result.Data,
		"total":      result.Total,
		"page":       result.Page,
		"limit":      result.Limit,
		"totalPages": result.TotalPages,
	})
}

// GetUser handles GET /admin/users/{id}.
// @Summary      Get a user
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /admin/users/{id} [get]
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUserByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, "User fetched", user)
}

// UpdateUser handles PUT /admin/users/{id}.
// @Summary      Update a user
// @Tags         admin
// @Security     Bearer
// @Accept       json,mpfd
// @Produce      json
// @Param        id    path      string                         true  "User ID"
// @Param        body  body      models.AdminUpdateUserRequest  true  "Fields to change"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      403   {object}  map[string]interface{}
// @Failure      404   {object}  map[string]interface{}
// @Router       /admin/users/{id} [put]
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req models.AdminUpdateUserRequest
	image, err := decodeBody(w, r, &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.prepareUpdate(r, &req.UpdateSelfRequest, &req, image); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.service.UpdateUser(r.Context(), mux.Vars(r)["id"], req.ToUpdate())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, "User Updated", user)
}

// DeleteUser handles DELETE /admin/users/{id}.
// @Summary      Delete a user
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /admin/users/{id} [delete]
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.app.Logger.Info().
		Str("request_id", middleware.RequestIDFrom(r.Context())).
		Str("user_id", id).
		Msg("User deleted")

	h.writeSuccess(w, http.StatusOK, "User Deleted", nil)
}
