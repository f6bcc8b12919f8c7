// Package handlers provides HTTP handlers for portfolio optimization.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/aristath/allocator/internal/modules/universe"
)

// stocksLimit is the number of candidates listed by GET /api/stocks.
const stocksLimit = 50

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Optimizer is the portfolio construction engine.
type Optimizer interface {
	Optimize(ctx context.Context, candidates []domain.Candidate, amount, targetReturn float64) (*optimization.Result, error)
}

// Handler handles optimization HTTP requests
type Handler struct {
	optimizer  Optimizer
	candidates universe.CandidateRepositoryInterface
	log        zerolog.Logger
}

// NewHandler creates a new optimization handler
func NewHandler(
	optimizer Optimizer,
	candidates universe.CandidateRepositoryInterface,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		optimizer:  optimizer,
		candidates: candidates,
		log:        log.With().Str("handler", "optimization").Logger(),
	}
}

// optimizeRequest is the body of POST /api/optimize. TargetReturn is a
// percentage (20 means 20%). Omitted fields take their defaults.
type optimizeRequest struct {
	Amount       *number `json:"amount" default:"100000" validate:"gt=0"`
	TargetReturn *number `json:"target_return" default:"20" validate:"gte=0"`
}

// number is a float that also decodes from a numeric JSON string ("5000"),
// as form-driven clients tend to send them.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		text = strings.TrimSpace(s)
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("not a finite number: %s", data)
	}
	*n = number(v)
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleOptimize handles POST /api/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := h.decodeRequest(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.candidates.Len() == 0 {
		h.writeError(w, http.StatusInternalServerError, "Server data missing/loading.")
		return
	}

	result, err := h.optimizer.Optimize(r.Context(), h.candidates.GetAll(), float64(*req.Amount), float64(*req.TargetReturn)/100)
	if err != nil {
		if optimization.KindOf(err) == optimization.KindInternal {
			h.log.Error().Err(err).Msg("Optimization failed unexpectedly")
		}
		h.writeError(w, statusFor(err), optimization.UserMessage(err))
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleGetStocks handles GET /api/stocks
func (h *Handler) HandleGetStocks(w http.ResponseWriter, r *http.Request) {
	if h.candidates.Len() == 0 {
		h.writeError(w, http.StatusInternalServerError, "Data not ready")
		return
	}
	h.writeJSON(w, http.StatusOK, h.candidates.Head(stocksLimit))
}

// decodeRequest reads the JSON body, applies defaults and validates it.
// An empty body is treated as {}.
func (h *Handler) decodeRequest(r *http.Request, req *optimizeRequest) error {
	if r.Body != nil && r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(req); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("invalid request body")
		}
	}

	if err := defaults.Set(req); err != nil {
		return fmt.Errorf("invalid request body")
	}

	if err := validate.StructCtx(r.Context(), req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return errors.New(validationMessage(verrs[0]))
		}
		return fmt.Errorf("invalid request body")
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
	}
}

// statusFor maps engine failures to HTTP status codes.
func statusFor(err error) int {
	switch optimization.KindOf(err) {
	case optimization.KindInsufficientCandidates, optimization.KindInvalidInput:
		return http.StatusBadRequest
	case optimization.KindUnstableMarketData:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Error: message})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
