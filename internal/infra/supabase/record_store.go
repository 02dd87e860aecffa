package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/portalcadastro/cadastro-api/internal/domain"
	"github.com/portalcadastro/cadastro-api/internal/infra/resilience"
	"github.com/portalcadastro/cadastro-api/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// RecordStore implementation — table CRUD via PostgREST
// ============================================================

// uniqueViolation is the Postgres error code PostgREST forwards when an
// insert hits a unique constraint.
const uniqueViolation = "23505"

func (c *Client) restURL(table string, filter port.Filter, columns ...string) string {
	q := url.Values{}
	for col, val := range filter {
		q.Set(col, "eq."+val)
	}
	if len(columns) > 0 {
		q.Set("select", strings.Join(columns, ","))
	}
	u := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

// Insert creates one row and returns it as represented by PostgREST.
func (c *Client) Insert(ctx context.Context, table string, fields map[string]any) (port.Record, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Insert")
	defer span.End()
	span.SetAttributes(attribute.String("table", table))

	body, status, err := c.do(ctx, http.MethodPost, c.restURL(table, nil), fields, false)
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		ae := decodeAPIError(body)
		c.logger.Warn("supabase: insert rejected",
			zap.String("table", table),
			zap.Int("status", status),
			zap.String("body", string(body)),
		)
		if ae.Code == uniqueViolation || status == http.StatusConflict {
			return nil, &domain.ErrUniqueViolation{Table: table, Detail: ae.text()}
		}
		return nil, fmt.Errorf("insert %s returned %d: %s", table, status, ae.text())
	}

	var rows []port.Record
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode %s insert response: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert %s returned no representation", table)
	}

	c.logger.Debug("supabase: insert OK", zap.String("table", table))
	return rows[0], nil
}

// SelectOne fetches at most one row. A miss is nil, nil — not an error —
// so duplicate checks read naturally. Reads are retried; writes are not.
func (c *Client) SelectOne(ctx context.Context, table string, filter port.Filter, columns ...string) (port.Record, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SelectOne")
	defer span.End()
	span.SetAttributes(attribute.String("table", table))

	q := c.restURL(table, filter, columns...)
	sep := "?"
	if strings.Contains(q, "?") {
		sep = "&"
	}
	q += sep + "limit=1"

	var result port.Record
	err := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
		body, status, err := c.do(ctx, http.MethodGet, q, nil, false)
		if err != nil {
			return err
		}
		if status == http.StatusNotFound {
			result = nil
			return nil
		}
		if status < 200 || status >= 300 {
			return fmt.Errorf("select %s returned %d: %s", table, status, decodeAPIError(body).text())
		}

		var rows []port.Record
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode %s rows: %w", table, err)
		}
		if len(rows) == 0 {
			result = nil
			return nil
		}
		result = rows[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the matching rows. Deleting rows that no longer exist is
// success, which keeps compensation idempotent.
func (c *Client) Delete(ctx context.Context, table string, filter port.Filter) error {
	ctx, span := tracer.Start(ctx, "Supabase.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("table", table))

	body, status, err := c.do(ctx, http.MethodDelete, c.restURL(table, filter), nil, false)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return nil
	}
	if status < 200 || status >= 300 {
		c.logger.Warn("supabase: delete rejected",
			zap.String("table", table),
			zap.Int("status", status),
			zap.String("body", string(body)),
		)
		return fmt.Errorf("delete %s returned %d: %s", table, status, decodeAPIError(body).text())
	}

	c.logger.Debug("supabase: delete OK", zap.String("table", table))
	return nil
}
