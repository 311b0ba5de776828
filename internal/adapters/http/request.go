package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
)

// decodeJSON reads a single JSON object and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return domain.InvalidInput("decode request", "request body exceeds %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return domain.InvalidInput("decode request", "request body is empty")
		default:
			return domain.InvalidInput("decode request", "invalid json: %v", err)
		}
	}
	if dec.More() {
		return domain.InvalidInput("decode request", "request body must contain a single json object")
	}
	return nil
}

func urlID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}

func pageFromQuery(r *http.Request) (domain.Page, error) {
	q := r.URL.Query()
	limit, err := intQuery(q.Get("limit"), "limit")
	if err != nil {
		return domain.Page{}, err
	}
	offset, err := intQuery(q.Get("offset"), "offset")
	if err != nil {
		return domain.Page{}, err
	}
	return domain.Page{Limit: limit, Offset: offset}.Normalize(), nil
}

func intQuery(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.InvalidInput("parse query", "%s must be a non-negative integer", name)
	}
	return n, nil
}

func contentDisposition(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}
