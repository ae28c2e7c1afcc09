package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"heatgrid/pkg/middleware"
	"heatgrid/services/topology-svc/internal/converter"
)

// CreatePlan строит план сети: POST /v1/plans
func (h *Handlers) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var dto converter.PlanRequestDTO
	if err := h.decodeBody(r, &dto); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.svc.CreatePlan(r.Context(), &dto, middleware.GetClientID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// ValidatePlan проверяет входные данные без построения: POST /v1/plans/validate.
// Ответ всегда 200: невалидный вход - это результат проверки, а не ошибка.
func (h *Handlers) ValidatePlan(w http.ResponseWriter, r *http.Request) {
	var dto converter.PlanRequestDTO
	if err := h.decodeBody(r, &dto); err != nil {
		writeError(w, err)
		return
	}

	report, err := h.svc.ValidatePlan(r.Context(), &dto)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// GetPlan возвращает сохранённый план: GET /v1/plans/{id}
func (h *Handlers) GetPlan(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListPlans возвращает страницу сохранённых планов: GET /v1/plans
func (h *Handlers) ListPlans(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	list, err := h.svc.ListPlans(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// DeletePlan удаляет сохранённый план: DELETE /v1/plans/{id}
func (h *Handlers) DeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePlan(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExportGeoJSON выгружает план как GeoJSON: GET /v1/plans/{id}/export/geojson
func (h *Handlers) ExportGeoJSON(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.ExportGeoJSON(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("circuit"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		return
	}
}
