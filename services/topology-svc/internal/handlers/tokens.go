package handlers

import (
	"net/http"

	"heatgrid/pkg/apperror"
	"heatgrid/pkg/token"
	"heatgrid/services/topology-svc/internal/converter"
)

// IssueToken выпускает JWT для API-клиента: POST /v1/tokens
func (h *Handlers) IssueToken(w http.ResponseWriter, r *http.Request) {
	var dto converter.TokenRequestDTO
	if err := h.decodeBody(r, &dto); err != nil {
		writeError(w, err)
		return
	}

	if h.jwt == nil {
		writeError(w, apperror.New(apperror.CodeInternal, "token issuing is not configured"))
		return
	}

	// При включённых API-ключах токен выдаётся только в обмен на
	// действительный ключ клиента
	if h.cfg.Auth.APIKeysEnable {
		hash, ok := h.cfg.Auth.APIKeys[dto.ClientID]
		if !ok {
			writeError(w, apperror.New(apperror.CodeUnauthorized, "unknown client"))
			return
		}
		match, err := token.VerifyAPIKey(dto.APIKey, hash)
		if err != nil || !match {
			writeError(w, apperror.New(apperror.CodeUnauthorized, "invalid API key"))
			return
		}
	}

	role := dto.Role
	if role == "" {
		role = "reader"
	}

	tok, err := h.jwt.Generate(dto.ClientID, dto.Name, role)
	if err != nil {
		writeError(w, apperror.Wrap(err, apperror.CodeInternal, "failed to issue token"))
		return
	}

	writeJSON(w, http.StatusOK, &converter.TokenResponseDTO{
		Token:     tok,
		TokenType: "Bearer",
		ExpiresIn: h.jwt.TTLSeconds(),
	})
}

// Info возвращает информацию о сервисе: GET /v1/info
func (h *Handlers) Info(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, &converter.InfoResponseDTO{
		Service:     h.cfg.App.Name,
		Version:     h.cfg.App.Version,
		Environment: h.cfg.App.Environment,
	})
}
