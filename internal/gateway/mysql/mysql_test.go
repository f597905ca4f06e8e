package mysql

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"

	"dbadmin/internal/gateway"
	"dbadmin/internal/statement"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		want   gateway.Kind
		wantOK bool
	}{
		{"duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'Chad' for key 'PRIMARY'"}, gateway.ConstraintViolation, true},
		{"fk", fmt.Errorf("exec: %w", &mysql.MySQLError{Number: 1452}), gateway.ConstraintViolation, true},
		{"gone", &mysql.MySQLError{Number: 2006}, gateway.ConnectivityError, true},
		{"invalid conn", mysql.ErrInvalidConn, gateway.ConnectivityError, true},
		{"syntax", &mysql.MySQLError{Number: 1064}, gateway.UnknownError, true},
		{"foreign", errors.New("x"), 0, false},
	}
	for _, tt := range tests {
		got, ok := Classify(tt.err)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("%s: Classify = (%s,%v), want (%s,%v)", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	o := Options()
	if o.DriverName != "mysql" || o.Dialect != statement.MySQL || o.Classify == nil {
		t.Fatalf("unexpected options %+v", o)
	}
}

func TestOpen_RejectsBadDSN(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), "not a dsn"); err == nil {
		t.Fatal("expected DSN error")
	}
}

func TestRegistered(t *testing.T) {
	t.Parallel()

	found := false
	for _, k := range gateway.Kinds() {
		if k == "mysql" {
			found = true
		}
	}
	if !found {
		t.Fatal("mysql backend not registered")
	}
}
