package utils

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/itchan-dev/modpolicy/shared/errors"
	"github.com/itchan-dev/modpolicy/shared/logger"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// StatusCode maps a policy error kind to the HTTP status the API answers with.
func StatusCode(kind errors.Kind) int {
	switch kind {
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindForbidden:
		return http.StatusForbidden
	case errors.KindUnauthorized:
		return http.StatusUnauthorized
	case errors.KindValidation:
		return http.StatusBadRequest
	case errors.KindAlreadyDeleted, errors.KindAlreadyAssigned, errors.KindAlreadyRevoked,
		errors.KindProtectedByAppeal, errors.KindLastAdminProtection, errors.KindInvalidTransition,
		errors.KindReportLocked, errors.KindConflict:
		return http.StatusConflict
	case errors.KindWindowExpired:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func WriteErrorAndStatusCode(w http.ResponseWriter, err error) {
	if e, ok := err.(*errors.ErrorWithStatusCode); ok {
		http.Error(w, e.Error(), e.StatusCode)
		return
	}
	if kind := errors.KindOf(err); kind != errors.KindUnknown {
		http.Error(w, err.Error(), StatusCode(kind))
		return
	}
	// default error is 500, details stay in the log
	logger.Log.Error("internal error", "error", err)
	http.Error(w, "Internal error", http.StatusInternalServerError)
}

func DecodeValidate(r io.ReadCloser, body any) error {
	if err := json.NewDecoder(r).Decode(body); err != nil {
		logger.Log.Debug("invalid json body", "error", err)
		return &errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: http.StatusBadRequest}
	}
	if err := validate.Struct(body); err != nil {
		logger.Log.Debug("body validation failed", "error", err)
		return &errors.ErrorWithStatusCode{Message: "Required fields missing", StatusCode: http.StatusBadRequest}
	}
	return nil
}

func Decode(r io.ReadCloser, body any) error {
	if err := json.NewDecoder(r).Decode(body); err != nil {
		logger.Log.Debug("invalid json body", "error", err)
		return &errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: http.StatusBadRequest}
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		logger.Log.Error("failed to encode response", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
	w.Write([]byte("\n"))
}
