package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tOgg1/missiv/internal/models"
)

const (
	codeRateLimited = "rate_limited"
	codeBadRequest  = "bad_request"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusFor maps an error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case models.CodeValidation, models.CodeInvalidRecipient, models.CodeInvalidBasket, codeBadRequest:
		return http.StatusBadRequest
	case models.CodeNotParticipant, models.CodeForbidden:
		return http.StatusForbidden
	case models.CodeMessageNotFound, models.CodeConversationNotFound, models.CodeNotificationNotFound:
		return http.StatusNotFound
	case models.CodeConversationArchived:
		return http.StatusConflict
	case codeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	code := models.ErrorCode(err)
	resp := errorResponse{Error: err.Error(), Code: code}

	var validation *models.ValidationErrors
	if errors.As(err, &validation) {
		resp.Fields = validation.Fields()
	}
	if code == models.CodeInternal {
		a.logger.Error().Err(err).Msg("request failed")
		resp.Error = "internal error"
	}
	writeJSON(w, statusFor(code), resp)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: codeBadRequest})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
