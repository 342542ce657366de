package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apierrors "silverpulse/internal/errors"
	"silverpulse/internal/infrastructure"
	"silverpulse/pkg/contracts/domain"
)

// QueryParamValidator validates query parameters and answers invalid ones
// with a problem response
type QueryParamValidator struct {
	validate     *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewQueryParamValidator creates a new query parameter validator
func NewQueryParamValidator(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *QueryParamValidator {
	return &QueryParamValidator{
		validate:     validator.New(),
		logger:       infrastructure.WithComponent(logger, "query_validator"),
		errorHandler: errorHandler,
	}
}

// ValidateDate parses a YYYY-MM-DD parameter. A missing parameter yields
// the zero time.
func (v *QueryParamValidator) ValidateDate(w http.ResponseWriter, r *http.Request, param string) (time.Time, bool) {
	value := strings.TrimSpace(r.URL.Query().Get(param))
	if value == "" {
		return time.Time{}, true
	}

	if err := v.validate.Var(value, "datetime="+domain.HistoryDateLayout); err != nil {
		v.logger.DebugContext(r.Context(), "invalid date parameter",
			slog.String("param", param),
			slog.String("value", value))
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param,
			fmt.Sprintf("%s must be a date formatted YYYY-MM-DD", param)))
		return time.Time{}, false
	}

	t, _ := time.Parse(domain.HistoryDateLayout, value)
	return t, true
}

// ValidateBool parses a boolean parameter
func (v *QueryParamValidator) ValidateBool(w http.ResponseWriter, r *http.Request, param string, defaultValue bool) (bool, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue, true
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be true or false", param)))
		return false, false
	}
	return b, true
}

// ValidateEnum validates an enum query parameter
func (v *QueryParamValidator) ValidateEnum(w http.ResponseWriter, r *http.Request, param string, allowed []string, defaultValue string) (string, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue, true
	}

	for _, a := range allowed {
		if value == a {
			return value, true
		}
	}

	v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be one of: %s", param, strings.Join(allowed, ", "))))
	return "", false
}
