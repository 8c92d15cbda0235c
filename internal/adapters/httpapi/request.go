package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/studiofit/frontdesk-api/internal/app/apperr"
	"github.com/studiofit/frontdesk-api/internal/domain"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object into v. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &apperr.Error{Status: http.StatusUnprocessableEntity, Code: apperr.CodeValidation, Message: "missing request body"}
		}
		return &apperr.Error{
			Status:  http.StatusUnprocessableEntity,
			Code:    apperr.CodeValidation,
			Message: "malformed JSON body",
			Details: map[string]any{"body": err.Error()},
		}
	}
	if dec.More() {
		return &apperr.Error{Status: http.StatusUnprocessableEntity, Code: apperr.CodeValidation, Message: "request body must be a single JSON object"}
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	err := decodeJSON(w, r, v)
	if ae, ok := apperr.As(err); ok && ae.Message == "missing request body" {
		return nil
	}
	return err
}

// queryDate parses an optional YYYY-MM-DD query parameter. Absent means the zero date.
func queryDate(r *http.Request, name string) (domain.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return domain.Date{}, nil
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return domain.Date{}, apperr.Validation(name, "must be a date in YYYY-MM-DD format")
	}
	return d, nil
}
