// Package handlers содержит HTTP-обработчики topology-svc. Обработчики
// разбирают и структурно проверяют DTO, остальное делает прикладной слой.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"heatgrid/pkg/apperror"
	"heatgrid/pkg/config"
	"heatgrid/pkg/logger"
	"heatgrid/pkg/token"
	"heatgrid/services/topology-svc/internal/service"
)

// Handlers обработчики HTTP API
type Handlers struct {
	svc      *service.TopologyService
	cfg      *config.Config
	jwt      *token.JWTManager
	validate *validator.Validate
}

// New создаёт обработчики
func New(svc *service.TopologyService, cfg *config.Config, jwt *token.JWTManager) *Handlers {
	return &Handlers{
		svc:      svc,
		cfg:      cfg,
		jwt:      jwt,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes регистрирует маршруты API на роутере
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/info", h.Info)
		r.Post("/tokens", h.IssueToken)

		r.Route("/plans", func(r chi.Router) {
			r.Post("/", h.CreatePlan)
			r.Post("/validate", h.ValidatePlan)
			r.Get("/", h.ListPlans)
			r.Get("/{id}", h.GetPlan)
			r.Delete("/{id}", h.DeletePlan)
			r.Get("/{id}/export/geojson", h.ExportGeoJSON)
		})
	})
}

// decodeBody разбирает JSON тело запроса и прогоняет структурную валидацию
func (h *Handlers) decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.Wrap(err, apperror.CodeInvalidArgument, "request body is not valid JSON: "+err.Error())
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			collected := apperror.NewValidationErrors()
			for _, fe := range verrs {
				collected.AddErrorWithField(apperror.CodeValidationFailed,
					"failed on rule '"+fe.Tag()+"'", fe.Namespace())
			}
			return collected.AsError()
		}
		return apperror.Wrap(err, apperror.CodeInternal, "request validation failed")
	}

	return nil
}

// queryInt читает целочисленный query-параметр с значением по умолчанию
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperror.NewWithField(apperror.CodeInvalidPagination,
			name+" must be a non-negative integer", name)
	}
	return v, nil
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// writeJSON пишет JSON-ответ с указанным статусом
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.Debug("Failed to write response", "error", err)
	}
}

// writeError пишет стандартный конверт ошибки. Внутренние ошибки наружу
// не раскрываются: клиенту уходит только код.
func writeError(w http.ResponseWriter, err error) {
	status := apperror.HTTPStatus(err)

	body := errorBody{Code: string(apperror.CodeInternal), Message: "internal error"}
	var appErr *apperror.Error
	if errors.As(err, &appErr) && status < http.StatusInternalServerError {
		body.Code = string(appErr.Code)
		body.Message = appErr.Message
		body.Field = appErr.Field
		if len(appErr.Details) > 0 {
			body.Details = appErr.Details
		}
	}
	if status >= http.StatusInternalServerError {
		logger.Log.Error("Request failed", "error", err)
	}

	writeJSON(w, status, errorEnvelope{Error: body})
}
