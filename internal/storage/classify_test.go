package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/hyperjump/wraith/internal/apperr"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), apperr.StoreUnavailable},
		{"canceled", fmt.Errorf("fetch thread: %w", context.Canceled), apperr.StoreUnavailable},
		{"conn done", sql.ErrConnDone, apperr.StoreUnavailable},
		{"net op error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}, apperr.StoreUnavailable},
		{"refused text", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), apperr.StoreUnavailable},
		{"sqlite locked", errors.New("database is locked"), apperr.StoreUnavailable},
		{"bad query", errors.New("no such table: chunks"), apperr.StoreOperationFailed},
		{"missing index", errors.New("index not found"), apperr.StoreOperationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("vector_query", tt.err)
			if got := apperr.KindOf(err); got != tt.want {
				t.Errorf("kind = %s, want %s", got, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Error("classified error should wrap the cause")
			}
		})
	}
}

func TestClassify_nilAndAlreadyClassified(t *testing.T) {
	if Classify("op", nil) != nil {
		t.Error("nil should stay nil")
	}
	orig := apperr.New(apperr.StoreUnavailable, "inner", nil)
	if got := Classify("outer", orig); got != orig {
		t.Errorf("classified error should pass through, got %v", got)
	}
}
