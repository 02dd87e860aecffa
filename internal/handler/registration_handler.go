package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/portalcadastro/cadastro-api/internal/domain"
	"github.com/portalcadastro/cadastro-api/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// registerClientHandler handles POST /v1/registrations/clients.
func registerClientHandler(svc *service.RegistrationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "handler.registerClient")
		defer span.End()

		var req domain.ClientRegistration
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFailure(w, http.StatusBadRequest, "Corpo da requisição inválido")
			return
		}

		result, err := svc.RegisterClient(ctx, &req)
		if err != nil {
			handleRegistrationError(w, err, logger)
			return
		}

		span.SetAttributes(attribute.Int64("cliente.id", result.ClienteID))
		writeJSON(w, http.StatusOK, result)
	}
}

// registerAdminHandler handles POST /v1/registrations/admins.
func registerAdminHandler(svc *service.RegistrationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "handler.registerAdmin")
		defer span.End()

		var req domain.AdminRegistration
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFailure(w, http.StatusBadRequest, "Corpo da requisição inválido")
			return
		}

		result, err := svc.RegisterAdmin(ctx, &req)
		if err != nil {
			handleRegistrationError(w, err, logger)
			return
		}

		span.SetAttributes(attribute.Int64("admin.id", result.Data.AdminID))
		writeJSON(w, http.StatusOK, result)
	}
}

// registrationMetricsHandler handles GET /v1/metrics/registrations.
func registrationMetricsHandler(svc *service.RegistrationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Metrics())
	}
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status: "ok",
			Time:   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
