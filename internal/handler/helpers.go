package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/portalcadastro/cadastro-api/internal/domain"

	"go.uber.org/zap"
)

// failureResponse is the envelope for every non-2xx body.
type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, failureResponse{Success: false, Error: msg})
}

// handleRegistrationError maps domain errors to HTTP responses. Rejections
// the caller can fix (validation, duplicates, provider sign-up refusals)
// are 400s; store failures surface as 500 with the table named.
func handleRegistrationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *domain.ErrValidation
	var duplicate *domain.ErrDuplicate
	var provider *domain.ErrProvider
	var unauthorized *domain.ErrUnauthorized
	var write *domain.ErrWrite

	switch {
	case errors.As(err, &validation):
		writeFailure(w, http.StatusBadRequest, validation.Message)
	case errors.As(err, &duplicate):
		writeFailure(w, http.StatusBadRequest, duplicate.Message)
	case errors.As(err, &provider):
		writeFailure(w, http.StatusBadRequest, provider.Error())
	case errors.As(err, &unauthorized):
		writeFailure(w, http.StatusUnauthorized, unauthorized.Error())
	case errors.As(err, &write):
		logger.Error("registration write failed", zap.String("table", write.Table), zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, write.Error())
	default:
		logger.Error("registration failed", zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, "erro interno ao processar o cadastro")
	}
}
