package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	mw "github.com/PeterGeers/myadmin/internal/http/middleware"
	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

const maxUploadBytes = 20 << 20

// readJSON tries to read the body of a request and converts it into JSON
func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	maxBytes := 1048576 // one megabyte
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	err := dec.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to read JSON: %w", err)
	}

	err = dec.Decode(&struct{}{})
	if err != io.EOF {
		return errors.New("body must have only a single json value")
	}

	return nil
}

// decodeLarge reads a single JSON value without the one megabyte cap, for
// import batches. Callers limit the body themselves.
func decodeLarge(r *http.Request, data any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(data); err != nil {
		return fmt.Errorf("failed to read JSON: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must have only a single json value")
	}
	return nil
}

// writeJSON takes a response status code and arbitrary data and writes a json response to the client
func writeJSON(w http.ResponseWriter, status int, data any, headers ...http.Header) error {
	out, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to read JSON: %w", err)
	}

	if len(headers) > 0 {
		for key, value := range headers[0] {
			w.Header()[key] = value
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(out)
	if err != nil {
		return fmt.Errorf("failed to write to response: %w", err)
	}

	return nil
}

func respond(w http.ResponseWriter, r *http.Request, status int, data any) {
	if err := writeJSON(w, status, data); err != nil {
		requestLog(r).WithError(err).Warn("failed to write response")
	}
}

func errorJSON(w http.ResponseWriter, status int, message string) {
	_ = writeJSON(w, status, mw.ErrorResponse{Error: message})
}

func validationJSON(w http.ResponseWriter, errs []models.FieldError) {
	_ = writeJSON(w, http.StatusBadRequest, mw.ErrorResponse{Error: "validation failed", Errors: errs})
}

func requestLog(r *http.Request) logrus.FieldLogger {
	return logger.WithFields(logrus.Fields{
		"request_id":     mw.RequestIDFrom(r.Context()),
		"administration": mw.TenantFrom(r.Context()),
	})
}

// internalError logs err and answers with a generic message.
func internalError(w http.ResponseWriter, r *http.Request, err error, message string) {
	requestLog(r).WithError(err).Error(message)
	errorJSON(w, http.StatusInternalServerError, message)
}

func tenant(r *http.Request) string {
	return mw.TenantFrom(r.Context())
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, errors.New("invalid ID")
	}
	return id, nil
}

func parseIntPtr(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseDatePtr(s string) (*models.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parsePaging(q url.Values) (limit, offset *int, err error) {
	if limit, err = parseIntPtr(q.Get("limit")); err != nil || (limit != nil && *limit <= 0) {
		return nil, nil, errors.New("limit must be greater than zero")
	}
	if offset, err = parseIntPtr(q.Get("offset")); err != nil || (offset != nil && *offset < 0) {
		return nil, nil, errors.New("offset must be zero or positive")
	}
	return limit, offset, nil
}

// queryInt reads a required integer query parameter.
func queryInt(r *http.Request, key string) (int, error) {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return v, nil
}

// readUpload returns the multipart "file" field.
func readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, "", errors.New("missing file")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, "", fmt.Errorf("read upload: %w", err)
	}
	return header.Filename, data, header.Header.Get("Content-Type"), nil
}
