package storage

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/hyperjump/wraith/internal/apperr"
	"github.com/jackc/pgx/v5/pgconn"
)

// Classify maps a store error to StoreUnavailable (the backend could not be
// reached in time) or StoreOperationFailed (anything else). Nil stays nil and
// errors already classified keep their kind.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if IsUnavailable(err) {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	return apperr.New(apperr.StoreOperationFailed, op, err)
}

// IsUnavailable reports whether err means the store could not be reached.
// A cancelled call never completed and counts as unavailable.
func IsUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "redis: client is closed") ||
		strings.Contains(msg, "server closed the connection")
}
