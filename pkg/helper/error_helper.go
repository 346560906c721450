package helper

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ucode/ucode_go_query_engine_service/pkg/logger"
)

// HandleDatabaseError maps postgres errors to grpc status codes so callers
// see a stable taxonomy instead of raw SQLSTATE codes.
func HandleDatabaseError(err error, log logger.LoggerI, message string) error {
	if err == nil {
		return nil
	}

	if err == pgx.ErrNoRows {
		return status.Error(codes.NotFound, "not found")
	}

	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		log.Error(message+": "+err.Error(), logger.String("column", pgErr.ColumnName))

		switch pgErr.Code {
		case "23505":
			// Unique violation
			return status.Error(codes.AlreadyExists, err.Error())
		case "23503":
			// Foreign key violation
			return status.Error(codes.FailedPrecondition, fmt.Sprintf("foreign key violation: %v", pgErr.Message))
		case "23514":
			// Check constraint violation
			return status.Error(codes.InvalidArgument, fmt.Sprintf("check constraint violation: %v", pgErr.Message))
		case "23502":
			// Not null violation
			return status.Error(codes.InvalidArgument, fmt.Sprintf("not null violation: %v", pgErr.Message))
		case "08006":
			// Connection failure
			return status.Error(codes.Unavailable, fmt.Sprintf("connection failure: %v", pgErr.Message))
		case "3D000":
			// Database not found
			return status.Error(codes.NotFound, fmt.Sprintf("database not found: %v", pgErr.Message))
		case "42P01":
			// Undefined table
			return status.Error(codes.NotFound, fmt.Sprintf("undefined table: %v", pgErr.Message))
		case "42703":
			// Undefined column
			return status.Error(codes.InvalidArgument, fmt.Sprintf("undefined column: %v", pgErr.Message))
		case "40P01":
			// Deadlock detected
			return status.Error(codes.Aborted, fmt.Sprintf("deadlock detected: %v", pgErr.Message))
		}

		return status.Error(codes.Internal, pgErr.Message)
	}

	log.Error(message, logger.Error(err))
	return err
}
