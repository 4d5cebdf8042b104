package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"storefront-client/internal/infrastructure/config"
)

func TestConnect_Empty(t *testing.T) {
	ctx := context.Background()
	cfg := config.DBConfig{DSN: ""}
	db, err := Connect(ctx, cfg)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if db != nil {
		t.Error("expected nil db for empty DSN")
	}
}

func TestRequireTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	mock.ExpectQuery(`SELECT to_regclass\(\$1\) IS NOT NULL;`).
		WithArgs("client_storage").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	if err := RequireTable(ctx, db, "client_storage"); err != nil {
		t.Errorf("expected table to exist, got %v", err)
	}

	mock.ExpectQuery(`SELECT to_regclass`).
		WithArgs("client_storage").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	err = RequireTable(ctx, db, "client_storage")
	if err == nil || !strings.Contains(err.Error(), "migrate") {
		t.Errorf("expected migrate hint, got %v", err)
	}

	mock.ExpectQuery(`SELECT to_regclass`).
		WithArgs("client_storage").
		WillReturnError(errors.New("connection reset"))
	if err := RequireTable(ctx, db, "client_storage"); err == nil {
		t.Error("expected query error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
