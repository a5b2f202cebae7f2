package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/skillcart/backend/internal/apperrors"
	"github.com/skillcart/backend/internal/middleware"
	"github.com/skillcart/backend/internal/models"
	"go.uber.org/zap"
)

// BaseHandler provides common handler functionality
type BaseHandler struct {
	logger   *zap.Logger
	validate *validator.Validate
}

func newBaseHandler(logger *zap.Logger) BaseHandler {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names in validation details
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return BaseHandler{logger: logger, validate: v}
}

// respondJSON sends a success envelope
func (h *BaseHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	if err := apperrors.WriteSuccess(w, status, data); err != nil {
		h.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// respondError sends the failure envelope of err. Uncoded errors are logged and
// reported as INTERNAL_001 without their cause.
func (h *BaseHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}
	if appErr.Code == apperrors.CodeInternal {
		h.logger.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	if err := apperrors.WriteError(w, appErr); err != nil {
		h.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// userID returns the authenticated user. Routes using it sit behind the auth middleware,
// so a missing user is answered with AUTH_004.
func (h *BaseHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.respondError(w, r, apperrors.AuthRequired("authentication required"))
		return "", false
	}
	return userID, true
}

// decodeJSON decodes and validates a request body
func (h *BaseHandler) decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperrors.Validation("request body is required")
		case errors.As(err, &maxBytesErr):
			return apperrors.Validation("request body too large")
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return apperrors.Validation(fmt.Sprintf("invalid type for field %s", typeErr.Field)).
				WithDetails(map[string]string{"field": typeErr.Field})
		}
		return apperrors.Validation("invalid request body")
	}

	if err := h.validate.Struct(dst); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			fields := make(map[string]string, len(validationErrs))
			for _, fe := range validationErrs {
				fields[fe.Field()] = fe.Tag()
			}
			return apperrors.Validation("request body failed validation").WithDetails(map[string]any{"fields": fields})
		}
		return apperrors.Validation("invalid request body")
	}
	return nil
}

// parseQuantity reads a cart quantity. Absent or null yields def; anything other than a
// JSON integer (strings, fractions, exponents) is rejected.
func parseQuantity(raw json.RawMessage, def int, required bool) (int, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		if required {
			return 0, quantityError("quantity is required")
		}
		return def, nil
	}

	quantity, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, quantityError("quantity must be an integer")
	}
	if quantity < 1 {
		return 0, quantityError("quantity must be a positive integer")
	}
	if quantity > models.MaxCartQuantity {
		return 0, quantityError(fmt.Sprintf("quantity must not exceed %d", models.MaxCartQuantity))
	}
	return quantity, nil
}

func quantityError(message string) error {
	return apperrors.Validation(message).WithDetails(map[string]string{"field": "quantity"})
}

// queryInt reads an optional integer query parameter
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Validation(fmt.Sprintf("%s must be an integer", key)).
			WithDetails(map[string]string{"field": key})
	}
	return v, nil
}

// queryInt64 reads an optional integer query parameter; nil when absent
func queryInt64(r *http.Request, key string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperrors.Validation(fmt.Sprintf("%s must be an integer", key)).
			WithDetails(map[string]string{"field": key})
	}
	return &v, nil
}

// queryFloat reads an optional decimal query parameter; nil when absent
func queryFloat(r *http.Request, key string) (*float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, apperrors.Validation(fmt.Sprintf("%s must be a number", key)).
			WithDetails(map[string]string{"field": key})
	}
	return &v, nil
}

// pageParams reads page and limit with their defaults
func pageParams(r *http.Request, defLimit int) (int, int, error) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	limit, err := queryInt(r, "limit", defLimit)
	if err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

// messageResponse is the data of operations that return no entity
type messageResponse struct {
	Message string `json:"message"`
}
