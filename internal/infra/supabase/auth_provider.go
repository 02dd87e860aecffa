package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/portalcadastro/cadastro-api/internal/domain"
	"github.com/portalcadastro/cadastro-api/internal/port"

	"go.uber.org/zap"
)

// ============================================================
// IdentityProvider implementation — account CRUD via GoTrue
// ============================================================

// signUpResponse covers both GoTrue shapes: with e-mail confirmation
// enabled the user object comes top-level and no session is issued; with
// auto-confirm the session comes with a nested user.
type signUpResponse struct {
	ID          string `json:"id"`
	AccessToken string `json:"access_token"`
	User        struct {
		ID string `json:"id"`
	} `json:"user"`
	ConfirmationSentAt string `json:"confirmation_sent_at"`
}

// CreateAccount signs the e-mail up with the public key, attaching the
// metadata bag to the account. The redirect link for the confirmation
// e-mail is built from the configured site URL when present.
func (c *Client) CreateAccount(ctx context.Context, email, password string, metadata map[string]any) (*port.IdentityAccount, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateAccount")
	defer span.End()

	signupURL := fmt.Sprintf("%s/auth/v1/signup", c.baseURL)
	if c.siteURL != "" {
		signupURL += "?redirect_to=" + url.QueryEscape(strings.TrimRight(c.siteURL, "/")+"/confirmado")
	}

	payload := map[string]any{
		"email":    email,
		"password": password,
		"data":     metadata,
	}

	body, status, err := c.do(ctx, http.MethodPost, signupURL, payload, true)
	if err != nil {
		return nil, &domain.ErrProvider{Op: "signup", Err: err}
	}

	if status < 200 || status >= 300 {
		ae := decodeAPIError(body)
		c.logger.Warn("gotrue: signup rejected",
			zap.Int("status", status),
			zap.String("error_code", ae.ErrorCode),
			zap.String("message", ae.text()),
		)
		return nil, &domain.ErrProvider{
			Op:                "signup",
			Message:           ae.text(),
			AlreadyRegistered: isAlreadyRegistered(ae),
			Err:               fmt.Errorf("gotrue signup returned %d", status),
		}
	}

	var resp signUpResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.ErrProvider{Op: "signup", Err: fmt.Errorf("decode signup response: %w", err)}
	}

	id := resp.ID
	if id == "" {
		id = resp.User.ID
	}
	if id == "" {
		return nil, &domain.ErrProvider{Op: "signup", Err: fmt.Errorf("signup response carried no account id")}
	}

	return &port.IdentityAccount{
		ID:                id,
		NeedsConfirmation: resp.AccessToken == "",
	}, nil
}

// UpdateAccountMetadata patches the account's user_metadata with the
// service-role key.
func (c *Client) UpdateAccountMetadata(ctx context.Context, accountID string, metadata map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateAccountMetadata")
	defer span.End()

	adminURL := fmt.Sprintf("%s/auth/v1/admin/users/%s", c.baseURL, accountID)
	payload := map[string]any{"user_metadata": metadata}

	body, status, err := c.do(ctx, http.MethodPut, adminURL, payload, false)
	if err != nil {
		return &domain.ErrProvider{Op: "update_metadata", Err: err}
	}
	if status < 200 || status >= 300 {
		return &domain.ErrProvider{
			Op:      "update_metadata",
			Message: decodeAPIError(body).text(),
			Err:     fmt.Errorf("gotrue admin update returned %d", status),
		}
	}
	return nil
}

// DeleteAccount removes the account via the admin API. A 404 is success:
// compensating an account that is already gone must not fail.
func (c *Client) DeleteAccount(ctx context.Context, accountID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteAccount")
	defer span.End()

	adminURL := fmt.Sprintf("%s/auth/v1/admin/users/%s", c.baseURL, accountID)
	body, status, err := c.do(ctx, http.MethodDelete, adminURL, nil, false)
	if err != nil {
		return &domain.ErrProvider{Op: "delete_account", Err: err}
	}
	if status == http.StatusNotFound {
		return nil
	}
	if status < 200 || status >= 300 {
		return &domain.ErrProvider{
			Op:      "delete_account",
			Message: decodeAPIError(body).text(),
			Err:     fmt.Errorf("gotrue admin delete returned %d", status),
		}
	}
	return nil
}

// isAlreadyRegistered prefers GoTrue's structured error_code; the message
// text is only a fallback for older instances that don't send one.
func isAlreadyRegistered(ae *apiError) bool {
	switch ae.ErrorCode {
	case "user_already_exists", "email_exists":
		return true
	}
	msg := strings.ToLower(ae.text())
	return strings.Contains(msg, "already registered") || strings.Contains(msg, "already exists")
}
