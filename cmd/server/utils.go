package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/lychee-technology/scorekeep"
	"go.uber.org/zap"
)

const maxSearchLimit = 100

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Code       string             `json:"code"`
	Message    string             `json:"message"`
	Validation []ValidationDetail `json:"validation,omitempty"`
}

// ValidationDetail is one violation as reported to clients
type ValidationDetail struct {
	Path    scorekeep.Path `json:"path"`
	Message string         `json:"message"`
}

// writeJSON writes JSON response to http.ResponseWriter
func writeJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a success response
func writeSuccess(w http.ResponseWriter, statusCode int, data any) error {
	return writeJSON(w, statusCode, data)
}

func writeErrorCode(w http.ResponseWriter, statusCode int, code, message string) error {
	return writeJSON(w, statusCode, ErrorResponse{Code: code, Message: message})
}

// writeError maps err onto a status code and error body.
func writeError(w http.ResponseWriter, err error) error {
	var mve *scorekeep.MatchValidationError
	if errors.As(err, &mve) {
		body := ErrorResponse{Code: scorekeep.ErrCodeBadUserInput, Validation: []ValidationDetail{}}
		for _, ve := range []*scorekeep.ValidationErrors{mve.Results, mve.Metadata} {
			if !ve.HasErrors() {
				continue
			}
			if body.Message != "" {
				body.Message += " "
			}
			body.Message += ve.Label
			body.Validation = append(body.Validation, validationDetails(ve)...)
		}
		return writeJSON(w, http.StatusBadRequest, body)
	}

	if ve, ok := scorekeep.AsValidationErrors(err); ok {
		message := ve.Label
		if message == "" {
			message = string(ve.Kind)
		}
		return writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:       scorekeep.ErrCodeBadUserInput,
			Message:    message,
			Validation: validationDetails(ve),
		})
	}

	var se *scorekeep.ScorekeepError
	if errors.As(err, &se) {
		switch se.Code {
		case scorekeep.ErrCodeEntityNotFound:
			return writeErrorCode(w, http.StatusNotFound, se.Code, se.Message)
		case scorekeep.ErrCodeEntityAlreadyExists:
			return writeErrorCode(w, http.StatusConflict, se.Code, se.Message)
		}
	}

	zap.S().Errorw("request failed", "error", err)
	return writeErrorCode(w, http.StatusInternalServerError, scorekeep.ErrCodeInternalError, "internal server error")
}

func validationDetails(ve *scorekeep.ValidationErrors) []ValidationDetail {
	details := make([]ValidationDetail, 0, len(ve.Violations))
	for _, v := range ve.Violations {
		path := v.Path
		if path == nil {
			path = scorekeep.Path{}
		}
		details = append(details, ValidationDetail{Path: path, Message: v.Message})
	}
	return details
}

// parseUUID parses a UUID string
func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// readJSONBody reads and decodes JSON from request body
func readJSONBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// parseLimit reads the limit query parameter. Missing or invalid values fall
// back to maxSearchLimit, larger values are capped.
func parseLimit(raw string) int {
	if raw == "" {
		return maxSearchLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > maxSearchLimit {
		return maxSearchLimit
	}
	return limit
}

// rawOrNil turns an absent JSON member into a nil value.
func rawOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
