package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	httpmiddleware "github.com/portalconselheiros/portal/internal/http/middleware"
	"github.com/portalconselheiros/portal/internal/repo"
	"github.com/portalconselheiros/portal/internal/service"
)

// Login autentica por e-mail e senha e devolve o par de tokens.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Senha    string `json:"senha"`
	}

	if err := DecodeJSON(r, &payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	// Clientes legados enviam "senha"; o contrato atual usa "password".
	senha := payload.Password
	if senha == "" {
		senha = payload.Senha
	}

	if strings.TrimSpace(payload.Email) == "" || strings.TrimSpace(senha) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "email e senha são obrigatórios", nil)
		return
	}

	result, err := h.authService.Login(r.Context(), payload.Email, senha)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			WriteError(w, http.StatusUnauthorized, "AUTH", "credenciais inválidas", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao autenticar", nil)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// Refresh emite novo token de acesso a partir de um refresh válido.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refreshToken"`
	}

	if err := DecodeJSON(r, &payload); err != nil || strings.TrimSpace(payload.RefreshToken) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "refreshToken é obrigatório", nil)
		return
	}

	accessToken, err := h.authService.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrRefreshInvalid) {
			WriteError(w, http.StatusForbidden, "AUTH", "refresh token inválido ou expirado", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao renovar sessão", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"accessToken": accessToken})
}

// Logout revoga o refresh token informado. Idempotente: token já
// revogado ou desconhecido responde sucesso da mesma forma.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refreshToken"`
	}

	if err := DecodeJSON(r, &payload); err == nil && payload.RefreshToken != "" {
		_ = h.authService.Logout(r.Context(), payload.RefreshToken)
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me retorna o perfil do usuário autenticado.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	subject, err := uuid.Parse(httpmiddleware.GetSubject(r.Context()))
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "subject inválido", nil)
		return
	}

	u, err := h.authService.GetUserByID(r.Context(), subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusUnauthorized, "AUTH", "usuário não encontrado", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível carregar perfil", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"user": u})
}
