package supabase_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/portalcadastro/cadastro-api/internal/domain"
	"github.com/portalcadastro/cadastro-api/internal/infra/resilience"
	"github.com/portalcadastro/cadastro-api/internal/infra/supabase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClientWithSite(t *testing.T, siteURL string, h http.HandlerFunc) *supabase.Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	cfg := resilience.Config{
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
		MaxConcurrency: 4,
	}
	return supabase.NewClient(
		server.Client(),
		server.URL,
		"anon-key",
		"service-key",
		siteURL,
		resilience.NewCircuitBreaker("test-auth"),
		cfg,
		zap.NewNop(),
	)
}

func TestCreateAccountWithConfirmation(t *testing.T) {
	var gotPath, gotAuth, gotRedirect string
	var gotPayload map[string]any
	client := newTestClientWithSite(t, "https://portal.example.com", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRedirect = r.URL.Query().Get("redirect_to")
		json.NewDecoder(r.Body).Decode(&gotPayload)

		// Confirmation enabled: user object comes top-level, no session.
		json.NewEncoder(w).Encode(map[string]any{
			"id":                   "uuid-123",
			"confirmation_sent_at": "2026-08-29T12:00:00Z",
		})
	})

	account, err := client.CreateAccount(context.Background(), "a@b.com", "segredo123", map[string]any{
		"tipo_cliente": "admin",
	})
	require.NoError(t, err)

	assert.Equal(t, "/auth/v1/signup", gotPath)
	assert.Equal(t, "Bearer anon-key", gotAuth, "sign-up must use the public key")
	assert.Equal(t, "https://portal.example.com/confirmado", gotRedirect)
	assert.Equal(t, "a@b.com", gotPayload["email"])
	assert.Equal(t, map[string]any{"tipo_cliente": "admin"}, gotPayload["data"])

	assert.Equal(t, "uuid-123", account.ID)
	assert.True(t, account.NeedsConfirmation)
}

func TestCreateAccountAutoConfirmed(t *testing.T) {
	client := newTestClientWithSite(t, "", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "jwt-token",
			"user":         map[string]any{"id": "uuid-456"},
		})
	})

	account, err := client.CreateAccount(context.Background(), "a@b.com", "segredo123", nil)
	require.NoError(t, err)

	assert.Equal(t, "uuid-456", account.ID)
	assert.False(t, account.NeedsConfirmation)
}

func TestCreateAccountAlreadyRegisteredByErrorCode(t *testing.T) {
	client := newTestClientWithSite(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"error_code": "user_already_exists",
			"msg":        "User already registered",
		})
	})

	_, err := client.CreateAccount(context.Background(), "a@b.com", "segredo123", nil)

	var pe *domain.ErrProvider
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.AlreadyRegistered)
	assert.Equal(t, "User already registered", pe.Message)
}

func TestCreateAccountAlreadyRegisteredByMessageFallback(t *testing.T) {
	client := newTestClientWithSite(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"msg": "A user with this email address has already been registered"})
	})

	_, err := client.CreateAccount(context.Background(), "a@b.com", "segredo123", nil)

	var pe *domain.ErrProvider
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.AlreadyRegistered)
}

func TestCreateAccountOtherRejection(t *testing.T) {
	client := newTestClientWithSite(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"msg": "Password should be at least 6 characters"})
	})

	_, err := client.CreateAccount(context.Background(), "a@b.com", "123", nil)

	var pe *domain.ErrProvider
	require.ErrorAs(t, err, &pe)
	assert.False(t, pe.AlreadyRegistered)
}

func TestUpdateAccountMetadata(t *testing.T) {
	var gotMethod, gotPath, gotAuth string
	var gotPayload map[string]any
	client := newTestClientWithSite(t, "", func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotPayload)
		json.NewEncoder(w).Encode(map[string]any{"id": "uuid-123"})
	})

	err := client.UpdateAccountMetadata(context.Background(), "uuid-123", map[string]any{"id_admin": 5})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/auth/v1/admin/users/uuid-123", gotPath)
	assert.Equal(t, "Bearer service-key", gotAuth, "admin calls must use the service-role key")
	assert.Equal(t, map[string]any{"id_admin": float64(5)}, gotPayload["user_metadata"])
}

func TestDeleteAccountIdempotent(t *testing.T) {
	var gotPath string
	client := newTestClientWithSite(t, "", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNotFound)
	})

	err := client.DeleteAccount(context.Background(), "uuid-gone")
	assert.NoError(t, err)
	assert.Equal(t, "/auth/v1/admin/users/uuid-gone", gotPath)
}
