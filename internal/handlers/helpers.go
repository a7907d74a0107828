package handlers

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"

	"account-service/internal/apperror"
	"account-service/internal/middleware"
)

// maxUploadBytes bounds multipart bodies, profile image included.
const maxUploadBytes = 5 << 20

// --- Helper Functions ---

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.app.Logger.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func (h *Handlers) writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	response := map[string]interface{}{
		"success": true,
		"message": message,
	}
	if data != nil {
		response["data"] = data
	}
	h.writeJSON(w, status, response)
}

// writeError renders err as the failure envelope. Causes of internal errors
// are logged, never returned.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.As(err)

	logEvent := h.app.Logger.Warn()
	if appErr.Status >= http.StatusInternalServerError {
		logEvent = h.app.Logger.Error()
	}
	logEvent.
		Str("request_id", middleware.RequestIDFrom(r.Context())).
		Str("kind", string(appErr.Kind)).
		Err(appErr.Err).
		Msg(appErr.Message)

	response := map[string]interface{}{
		"success": false,
		"message": appErr.Message,
	}
	if len(appErr.Fields) > 0 {
		response["errors"] = appErr.Fields
	}
	h.writeJSON(w, appErr.Status, response)
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// decodeBody fills dst from a JSON or multipart body. For multipart requests
// the optional "image" file header is returned; it is stored by uploadImage
// once the request has passed validation.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) (*multipart.FileHeader, error) {
	if !isMultipart(r) {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return nil, apperror.Validation("Invalid request format")
		}
		return nil, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, apperror.Validation("Invalid request format")
	}

	// Form values go through the JSON decoder so that plain and pointer
	// fields are filled the same way.
	fields := make(map[string]string, len(r.MultipartForm.Value))
	for key, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return nil, apperror.Validation("Invalid request format")
	}

	files := r.MultipartForm.File["image"]
	if len(files) == 0 {
		return nil, nil
	}
	return files[0], nil
}

// uploadImage stores an uploaded profile image and returns its public path.
func (h *Handlers) uploadImage(r *http.Request, header *multipart.FileHeader) (string, error) {
	if h.images == nil {
		return "", apperror.Validation("Image upload is not available")
	}

	file, err := header.Open()
	if err != nil {
		return "", apperror.Validation("Invalid image upload")
	}
	defer file.Close()

	path, err := h.images.Upload(r.Context(), header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		return "", apperror.InternalMessage("Failed to upload image", err)
	}
	return path, nil
}
