package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"

	"github.com/helpdesk-platform/helpdesk/internal/security"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil passes through", nil, nil},
		{"no rows is not found", sql.ErrNoRows, security.ErrNotFound},
		{"wrapped no rows is not found", fmt.Errorf("get ticket: %w", sql.ErrNoRows), security.ErrNotFound},
		{"unique violation is conflict", &pq.Error{Code: "23505"}, security.ErrConflict},
		{"foreign key violation is conflict", &pq.Error{Code: "23503"}, security.ErrConflict},
		{"check violation is conflict", &pq.Error{Code: "23514"}, security.ErrConflict},
		{"rls denial is not found", &pq.Error{Code: "42501"}, security.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Translate(tt.in)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("Translate(%v) = %v, want nil", tt.in, got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("Translate(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTranslate_UnknownErrorPassesThrough(t *testing.T) {
	in := errors.New("connection reset")
	got := Translate(in)
	if !errors.Is(got, in) {
		t.Errorf("Translate(%v) = %v, want the original error", in, got)
	}
	for _, sentinel := range []error{security.ErrNotFound, security.ErrConflict, security.ErrForbidden} {
		if errors.Is(got, sentinel) {
			t.Errorf("unknown error classified as %v", sentinel)
		}
	}
}
