// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the registration
// orchestrator from the concrete Supabase adapters so tests can substitute
// fakes.
package port

import "context"

// Record is a single row returned by the record store.
type Record map[string]any

// Int64 reads an integer column. PostgREST decodes numbers as float64.
func (r Record) Int64(column string) int64 {
	switch v := r[column].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// String reads a text column.
func (r Record) String(column string) string {
	s, _ := r[column].(string)
	return s
}

// Filter maps column names to exact-match values.
type Filter map[string]string

// RecordStore is the external relational data service holding the
// contato/endereco/dados_usuario/cliente/admin tables.
//
// Implementations must surface uniqueness-constraint violations as
// *domain.ErrUniqueViolation so the orchestrator can tell them apart from
// other write errors, and must treat deleting an absent row as success so
// compensation stays idempotent.
type RecordStore interface {
	Insert(ctx context.Context, table string, fields map[string]any) (Record, error)
	// SelectOne returns nil, nil when no row matches.
	SelectOne(ctx context.Context, table string, filter Filter, columns ...string) (Record, error)
	Delete(ctx context.Context, table string, filter Filter) error
}

// IdentityAccount is the provider-side account created during sign-up.
type IdentityAccount struct {
	ID                string
	NeedsConfirmation bool
}

// IdentityProvider is the external authentication service.
type IdentityProvider interface {
	CreateAccount(ctx context.Context, email, password string, metadata map[string]any) (*IdentityAccount, error)
	UpdateAccountMetadata(ctx context.Context, accountID string, metadata map[string]any) error
	DeleteAccount(ctx context.Context, accountID string) error
}

// PasswordHasher produces the stored credential material for the
// locally-authenticated variant.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
