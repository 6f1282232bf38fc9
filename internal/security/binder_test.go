package security

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newBinder(t *testing.T) (*Binder, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	sdb := sqlx.NewDb(db, "sqlmock")
	// One physical connection makes connection reuse across binds observable.
	sdb.SetMaxOpenConns(1)
	return NewBinder(sdb), mock
}

func tenantCtx(id string) Context {
	return Context{TenantID: &id}
}

func expectBindSettings(mock sqlmock.Sqlmock, tenant, admin string) {
	mock.ExpectExec("SELECT set_config").
		WithArgs(tenantSetting, tenant, adminSetting, admin).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func expectReset(mock sqlmock.Sqlmock) {
	mock.ExpectExec("SELECT set_config").
		WithArgs(tenantSetting, adminSetting).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

// ---------------------------------------------------------------------------
// Success path: bind strictly precedes the work, reset strictly follows commit.
// ---------------------------------------------------------------------------

func TestBind_OrderingBindWorkCommitReset(t *testing.T) {
	b, mock := newBinder(t)

	mock.ExpectBegin()
	expectBindSettings(mock, "t-1", "false")
	mock.ExpectExec("UPDATE tickets").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectReset(mock)

	called := false
	err := b.Bind(context.Background(), tenantCtx("t-1"), func(tx *sqlx.Tx) error {
		called = true
		_, err := tx.ExecContext(context.Background(), "UPDATE tickets SET status = 'closed'")
		return err
	})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if !called {
		t.Error("unit of work was not invoked")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectation order violated: %v", err)
	}
}

func TestBind_AdminContextBindsEmptyTenantScope(t *testing.T) {
	b, mock := newBinder(t)

	mock.ExpectBegin()
	expectBindSettings(mock, "", "true")
	mock.ExpectCommit()
	expectReset(mock)

	err := b.Bind(context.Background(), Context{IsAdmin: true}, func(tx *sqlx.Tx) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Fail closed: an invalid context or a failed setting application must prevent
// the unit of work from ever running.
// ---------------------------------------------------------------------------

func TestBind_InvalidContextNeverTouchesDatabase(t *testing.T) {
	b, mock := newBinder(t)

	calls := 0
	err := b.Bind(context.Background(), Context{}, func(tx *sqlx.Tx) error {
		calls++
		return nil
	})
	if !errors.Is(err, ErrContextBinding) {
		t.Errorf("err = %v, want ErrContextBinding", err)
	}
	if calls != 0 {
		t.Errorf("unit of work invoked %d times, want 0", calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database activity: %v", err)
	}
}

func TestBind_SettingFailureSkipsWorkAndResets(t *testing.T) {
	b, mock := newBinder(t)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT set_config").
		WithArgs(tenantSetting, "t-1", adminSetting, "false").
		WillReturnError(errors.New("connection rejected setting"))
	mock.ExpectRollback()
	expectReset(mock)

	calls := 0
	err := b.Bind(context.Background(), tenantCtx("t-1"), func(tx *sqlx.Tx) error {
		calls++
		return nil
	})
	if !errors.Is(err, ErrContextBinding) {
		t.Errorf("err = %v, want ErrContextBinding", err)
	}
	if calls != 0 {
		t.Errorf("unit of work invoked %d times after binding failure, want 0", calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestBind_BeginFailureFailsClosed(t *testing.T) {
	b, mock := newBinder(t)

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))
	expectReset(mock)

	err := b.Bind(context.Background(), tenantCtx("t-1"), func(tx *sqlx.Tx) error {
		t.Error("unit of work ran without a transaction")
		return nil
	})
	if !errors.Is(err, ErrContextBinding) {
		t.Errorf("err = %v, want ErrContextBinding", err)
	}
}

// ---------------------------------------------------------------------------
// Error path: a failing unit of work still rolls back and still resets.
// ---------------------------------------------------------------------------

func TestBind_WorkErrorRollsBackAndResets(t *testing.T) {
	b, mock := newBinder(t)

	mock.ExpectBegin()
	expectBindSettings(mock, "t-1", "false")
	mock.ExpectRollback()
	expectReset(mock)

	workErr := errors.New("handler blew up")
	err := b.Bind(context.Background(), tenantCtx("t-1"), func(tx *sqlx.Tx) error {
		return workErr
	})
	if !errors.Is(err, workErr) {
		t.Errorf("err = %v, want the handler error", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Pool hygiene: with a single physical connection, a second request bound for
// another tenant must observe the reset from the first request in between.
// ---------------------------------------------------------------------------

func TestBind_PoolHygieneAcrossSequentialRequests(t *testing.T) {
	b, mock := newBinder(t)

	// First request: tenant t-1.
	mock.ExpectBegin()
	expectBindSettings(mock, "t-1", "false")
	mock.ExpectCommit()
	expectReset(mock)

	// Second request reuses the same physical connection for tenant t-2. The
	// ordered expectations prove the reset ran before t-2's settings applied.
	mock.ExpectBegin()
	expectBindSettings(mock, "t-2", "false")
	mock.ExpectCommit()
	expectReset(mock)

	for _, tenant := range []string{"t-1", "t-2"} {
		if err := b.Bind(context.Background(), tenantCtx(tenant), func(tx *sqlx.Tx) error {
			return nil
		}); err != nil {
			t.Fatalf("Bind(%s): %v", tenant, err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("residual binding survived pool release: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Reset idempotence: resetting an already clean connection is a no-op.
// ---------------------------------------------------------------------------

func TestResetBinding_Idempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	sdb := sqlx.NewDb(db, "sqlmock")

	expectReset(mock)
	expectReset(mock)

	conn, err := sdb.Connx(context.Background())
	if err != nil {
		t.Fatalf("Connx: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 2; i++ {
		if err := resetBinding(context.Background(), conn); err != nil {
			t.Errorf("reset %d: %v", i+1, err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
