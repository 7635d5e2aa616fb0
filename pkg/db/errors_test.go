package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestIsUniqueViolationPgx(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", ConstraintName: "uq_ledger_ref_once"}

	if !IsUniqueViolation(err, "uq_ledger_ref_once") {
		t.Fatal("expected match on code and constraint")
	}
	if !IsUniqueViolation(err, "") {
		t.Fatal("expected match on code alone")
	}
	if IsUniqueViolation(err, "some_other_constraint") {
		t.Fatal("must not match a different constraint")
	}
}

func TestIsUniqueViolationPq(t *testing.T) {
	err := &pq.Error{Code: "23505", Constraint: "uq_ledger_ref_once"}

	if !IsUniqueViolation(err, "uq_ledger_ref_once") {
		t.Fatal("expected match on pq error shape")
	}
}

func TestIsUniqueViolationUnwrapsChain(t *testing.T) {
	cause := &pgconn.PgError{Code: "23505", ConstraintName: "uq_ledger_ref_once"}
	wrapped := fmt.Errorf("create entry: %w", cause)

	if !IsUniqueViolation(wrapped, "uq_ledger_ref_once") {
		t.Fatal("expected match through wrapping")
	}
}

func TestIsUniqueViolationRejectsOtherErrors(t *testing.T) {
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil is not a violation")
	}
	if IsUniqueViolation(errors.New("duplicate key value violates unique constraint"), "") {
		t.Fatal("plain errors must not match on message text")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatal("foreign key violations must not match")
	}
}
