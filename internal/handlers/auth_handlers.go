package handlers

import (
	"mime/multipart"
	"net/http"

	"account-service/internal/apperror"
	"account-service/internal/middleware"
	"account-service/internal/models"
	"account-service/internal/validation"

	"github.com/gorilla/mux"
)

// Register handles self-service registration.
// @Summary      Register a user
// @Description  Creates a user with the "user" role. Accepts JSON or multipart/form-data with an optional image file.
// @Tags         auth
// @Accept       json,mpfd
// @Produce      json
// @Param        body  body      models.RegisterRequest  true  "Registration data"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      403   {object}  map[string]interface{}
// @Router       /auth/register [post]
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
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

	user, err := h.service.Register(r.Context(), req.ToNewUser())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.app.Logger.Info().
		Str("request_id", middleware.RequestIDFrom(r.Context())).
		Str("user_id", user.ID).
		Str("username", user.Username).
		Msg("User registered successfully")

	h.writeSuccess(w, http.StatusCreated, "User Created", user)
}

// Login authenticates by email and password and returns a bearer token.
// @Summary      Log in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.LoginRequest  true  "Credentials"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      401   {object}  map[string]interface{}
// @Failure      404   {object}  map[string]interface{}
// @Router       /auth/login [post]
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if _, err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.app.Logger.Info().
		Str("request_id", middleware.RequestIDFrom(r.Context())).
		Str("user_id", resp.User.ID).
		Msg("User authenticated successfully")

	h.writeSuccess(w, http.StatusOK, "Login successful", resp)
}

// ForgotPassword mails a reset link when the address belongs to a user. The
// response is the same either way.
// @Summary      Request a password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.ForgotPasswordRequest  true  "Account email"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Router       /auth/forgot-password [post]
func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if _, err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, "If the email exists, a reset link has been sent", nil)
}

// ResetPassword consumes a reset token.
// @Summary      Reset a password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.ResetPasswordRequest  true  "Token and new password"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Router       /auth/reset-password [post]
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if _, err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, "Password has been reset successfully", nil)
}

// UpdateSelf applies a partial update to the caller's own account. Admins may
// use it on any account but cannot change roles through it.
// @Summary      Update own account
// @Tags         auth
// @Security     Bearer
// @Accept       json,mpfd
// @Produce      json
// @Param        id    path      string                    true  "User ID"
// @Param        body  body      models.UpdateSelfRequest  true  "Fields to change"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      401   {object}  map[string]interface{}
// @Failure      403   {object}  map[string]interface{}
// @Failure      404   {object}  map[string]interface{}
// @Router       /auth/{id} [put]
func (h *Handlers) UpdateSelf(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		h.writeError(w, r, apperror.Unauthorized("Unauthorized"))
		return
	}
	if claims.ID != id && !claims.IsAdmin() {
		h.writeError(w, r, apperror.Forbidden("Forbidden"))
		return
	}

	var req models.UpdateSelfRequest
	image, err := decodeBody(w, r, &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.prepareUpdate(r, &req, &req, image); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.service.UpdateUser(r.Context(), id, req.ToUpdate())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, "User Updated", user)
}

// prepareUpdate sanitises and validates req, then stores its image. fields
// is the embedded self-update part of req.
func (h *Handlers) prepareUpdate(r *http.Request, fields *models.UpdateSelfRequest, req interface{}, image *multipart.FileHeader) error {
	validation.SanitizeFields(fields.FirstName, fields.LastName)
	if err := validation.ValidateStruct(req); err != nil {
		return err
	}

	if image != nil {
		path, err := h.uploadImage(r, image)
		if err != nil {
			return err
		}
		fields.Image = &path
	}
	return nil
}
