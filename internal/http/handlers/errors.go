// Package handlers defines the HTTP-layer error taxonomy used across all API
// endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them for
// programmatic handling. Messages are the pt-BR strings the client UI
// displays verbatim, so they are mapped centrally here from the service
// sentinel errors rather than improvised per handler.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dale-app/carnaval-backend/internal/http/middleware"
	"github.com/dale-app/carnaval-backend/internal/services"
)

const (
	ErrCodeBadRequest = "bad_request"
	// Unauthorized and rate-limit codes originate in the middleware layer,
	// which rejects before requests reach a handler; aliasing keeps both
	// layers emitting the same taxonomy.
	ErrCodeUnauthorized = middleware.CodeUnauthorized
	ErrCodeRateLimited  = middleware.CodeRateLimited
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeWeakPassword     = "weak_password"
	ErrCodeInvalidEmail     = "invalid_email"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// msgInternal is the generic server-failure message; service internals are
// never surfaced to clients.
const msgInternal = "Erro interno. Tente novamente."

// serviceError maps a service sentinel error to its HTTP status, stable code,
// and localized message. Unrecognized errors collapse to a 500 with a generic
// message.
func serviceError(err error) (int, string, string) {
	switch {
	case errors.Is(err, services.ErrMissingFields):
		return http.StatusBadRequest, ErrCodeBadRequest, "Todos os campos são obrigatórios"
	case errors.Is(err, services.ErrWeakPassword):
		return http.StatusBadRequest, ErrCodeWeakPassword, "A senha deve ter pelo menos 6 caracteres"
	case errors.Is(err, services.ErrInvalidEmail):
		return http.StatusBadRequest, ErrCodeInvalidEmail, "Email inválido"
	case errors.Is(err, services.ErrEmailInUse):
		return http.StatusConflict, ErrCodeConflict, "Este email já está cadastrado"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrCodeUnauthorized, "Email ou senha incorretos"
	case errors.Is(err, services.ErrProfileMissing):
		return http.StatusNotFound, ErrCodeNotFound, "Dados do usuário não encontrados"
	case errors.Is(err, services.ErrNotAuthenticated):
		return http.StatusUnauthorized, ErrCodeUnauthorized, "Usuário não autenticado"
	case errors.Is(err, services.ErrNameRequired):
		return http.StatusBadRequest, ErrCodeBadRequest, "Nome é obrigatório"
	case errors.Is(err, services.ErrFicadaNotFound):
		return http.StatusNotFound, ErrCodeNotFound, "Ficada não encontrada"
	case errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound, ErrCodeNotFound, "Dados do usuário não encontrados"
	case errors.Is(err, services.ErrBadNotificationType):
		return http.StatusBadRequest, ErrCodeBadRequest, "Tipo de notificação inválido"
	case errors.Is(err, services.ErrNotificationNotFound):
		return http.StatusNotFound, ErrCodeNotFound, "Notificação não encontrada"
	default:
		return http.StatusInternalServerError, ErrCodeInternal, msgInternal
	}
}

// failService is the shorthand handlers use after a service call fails.
func failService(c *gin.Context, err error) {
	status, code, msg := serviceError(err)
	fail(c, status, code, msg)
}
