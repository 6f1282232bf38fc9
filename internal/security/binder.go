// binder.go binds a security Context onto the specific pooled connection that
// will run a unit of work, and guarantees the binding is released before the
// connection returns to the pool.
//
// Binding means applying two transaction-local settings the database's
// row-level-security policies consult:
//
//	app.tenant_id   the tenant scope (empty for a global admin)
//	app.is_admin    the admin flag
//
// Two rules keep this fail-closed:
//
//  1. The settings are applied with set_config(..., is_local => true) strictly
//     inside the transaction that runs the dependent queries. They cannot
//     outlive the transaction, so a reused connection can never silently run a
//     later statement under a stale binding.
//  2. Before the pinned connection is released to the pool, both settings are
//     reset at session level to the deny-by-default state, on every exit path:
//     normal return, error, panic, or cancellation. A later request borrowing
//     the same physical connection starts clean.
package security

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/helpdesk-platform/helpdesk/internal/telemetry"
)

const (
	tenantSetting = "app.tenant_id"
	adminSetting  = "app.is_admin"

	// resetTimeout bounds the pool-release reset. It uses its own deadline so a
	// cancelled request context cannot skip the reset.
	resetTimeout = 5 * time.Second
)

// Binder scopes security contexts to pooled database connections. It is the
// sole writer of the two scoped settings; no other component reads or mutates
// them.
type Binder struct {
	db *sqlx.DB
}

// NewBinder creates a Binder over the shared connection pool.
func NewBinder(db *sqlx.DB) *Binder {
	return &Binder{db: db}
}

// Bind runs fn in a transaction on a dedicated pooled connection with sctx
// applied. If applying the binding fails, fn is never invoked. The transaction
// commits only when fn returns nil; any error rolls back. The connection is
// reset to deny-by-default and returned to the pool on all exit paths.
func (b *Binder) Bind(ctx context.Context, sctx Context, fn func(tx *sqlx.Tx) error) error {
	if err := sctx.Validate(); err != nil {
		telemetry.BindingFailuresTotal.Inc()
		return fmt.Errorf("%w: %v", ErrContextBinding, err)
	}

	// Pin one physical connection so the settings, the transaction, and the
	// reset all target the same session.
	conn, err := b.db.Connx(ctx)
	if err != nil {
		telemetry.BindingFailuresTotal.Inc()
		return fmt.Errorf("%w: acquire connection: %v", ErrContextBinding, err)
	}
	defer func() {
		resetCtx, cancel := context.WithTimeout(context.Background(), resetTimeout)
		defer cancel()
		if rerr := resetBinding(resetCtx, conn); rerr != nil {
			// The driver discards a connection whose reset failed once Close
			// observes the broken state, but record it: a dangling binding on a
			// pooled connection is the one cross-request hazard this layer owns.
			telemetry.BindingResetFailuresTotal.Inc()
			slog.Error("failed to reset security binding before pool release", "error", rerr)
		}
		if cerr := conn.Close(); cerr != nil {
			slog.Error("failed to release pinned connection", "error", cerr)
		}
	}()

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		telemetry.BindingFailuresTotal.Inc()
		return fmt.Errorf("%w: begin transaction: %v", ErrContextBinding, err)
	}

	if _, err := tx.ExecContext(ctx,
		`SELECT set_config($1, $2, true), set_config($3, $4, true)`,
		tenantSetting, sctx.TenantScope(),
		adminSetting, strconv.FormatBool(sctx.IsAdmin),
	); err != nil {
		_ = tx.Rollback()
		telemetry.BindingFailuresTotal.Inc()
		return fmt.Errorf("%w: apply scoped settings: %v", ErrContextBinding, err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit unit of work: %w", err)
	}
	return nil
}

// resetBinding restores the deny-by-default state (no tenant, not admin) at
// session level on the pinned connection. Idempotent: resetting an already
// clean connection is a no-op.
func resetBinding(ctx context.Context, conn *sqlx.Conn) error {
	_, err := conn.ExecContext(ctx,
		`SELECT set_config($1, '', false), set_config($2, 'false', false)`,
		tenantSetting, adminSetting,
	)
	return err
}
