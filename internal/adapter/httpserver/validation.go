package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

const maxIDLength = 128

var validProfileID = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

// ValidateProfileID validates a candidate or job id taken from a URL path.
func ValidateProfileID(field, id string) ValidationResult {
	if id == "" {
		return ValidationResult{Errors: []ValidationError{{Field: field, Code: "REQUIRED", Message: field + " is required"}}}
	}
	if len(id) > maxIDLength {
		return ValidationResult{Errors: []ValidationError{{
			Field: field, Code: "TOO_LONG", Message: fmt.Sprintf("%s is too long (max %d characters)", field, maxIDLength),
		}}}
	}
	if !validProfileID.MatchString(id) {
		return ValidationResult{Errors: []ValidationError{{Field: field, Code: "INVALID_FORMAT", Message: field + " contains invalid characters"}}}
	}
	return ValidationResult{Valid: true}
}

// recommendQuery holds the query parameters of GET /v1/jobs/{jobID}/recommendations.
type recommendQuery struct {
	TopK            int
	MinScore        *float64
	IncludeOutreach bool
}

func parseRecommendQuery(q url.Values, defaultTopK int) (recommendQuery, []ValidationError) {
	out := recommendQuery{TopK: defaultTopK}
	var errs []ValidationError
	if v := q.Get("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			errs = append(errs, ValidationError{Field: "top_k", Code: "INVALID_FORMAT", Message: "top_k must be between 1 and 1000"})
		} else {
			out.TopK = n
		}
	}
	if v := q.Get("min_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 100 {
			errs = append(errs, ValidationError{Field: "min_score", Code: "INVALID_FORMAT", Message: "min_score must be between 0 and 100"})
		} else {
			out.MinScore = &f
		}
	}
	if v := q.Get("include_outreach"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, ValidationError{Field: "include_outreach", Code: "INVALID_FORMAT", Message: "include_outreach must be a boolean"})
		} else {
			out.IncludeOutreach = b
		}
	}
	return out, errs
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

// getValidator reports field paths by their JSON names.
func getValidator() *validator.Validate {
	vldOnce.Do(func() {
		vld = validator.New()
		vld.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return vld
}

// decodeBody reads a size-capped JSON body into dst. On failure it writes
// the response and returns false.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	maxBytes := s.Cfg.MaxBodyMB * 1024 * 1024
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
				Code: "INVALID_ARGUMENT", Message: "payload too large", Details: map[string]any{"max_mb": s.Cfg.MaxBodyMB},
			}})
			return false
		}
		writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidInput), nil)
		return false
	}
	return true
}

// decodeJSON decodes and validates dst.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return s.decodeBody(w, r, dst) && validate(w, r, dst)
}

func validate(w http.ResponseWriter, r *http.Request, v any) bool {
	err := getValidator().Struct(v)
	if err == nil {
		return true
	}
	verrs := map[string]string{}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fe.Namespace()
			if i := strings.IndexByte(field, '.'); i >= 0 {
				field = field[i+1:]
			}
			verrs[field] = fe.Tag()
		}
	}
	writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidInput), verrs)
	return false
}
