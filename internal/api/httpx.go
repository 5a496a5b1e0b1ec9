package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/simonhull/firebird-suite/roost/internal/apperr"
	"github.com/simonhull/firebird-suite/roost/internal/strategy"
)

// maxBodyBytes bounds a generation request body
const maxBodyBytes = 1 << 20

// bindAndValidate decodes a JSON generation request from r and validates it
func bindAndValidate(w http.ResponseWriter, r *http.Request, target *strategy.Request) error {
	if r.Body == nil {
		return apperr.Validation("request body is empty", nil)
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is empty", nil)
		}
		return apperr.Validation(fmt.Sprintf("invalid JSON: %v", err), nil)
	}

	return target.Validate()
}

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(data)
}

// writeError writes err as an apperr.Payload with the status its code maps to
func writeError(w http.ResponseWriter, err error) error {
	payload := apperr.ToPayload(err, time.Now())
	return writeJSON(w, statusFor(payload.Code), payload)
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeGenerationNotFound, apperr.CodeFeatureNotFound:
		return http.StatusNotFound
	case apperr.CodeProjectNotReady:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
