package storage

import (
	"context"

	"ucode/ucode_go_query_engine_service/models"
)

// StandardDriver is the preferred driver call shape: the driver receives a
// compiled query and returns rows plus optional counts.
type StandardDriver interface {
	ExecuteQuery(ctx context.Context, compiled *models.CompiledQuery, opts models.ExecuteOptions) (*models.QueryResult, error)
}

// CommandResult is the standard response for data-changing commands.
type CommandResult struct {
	Success  bool             `json:"success"`
	Data     []map[string]any `json:"data,omitempty"`
	Affected int64            `json:"affected"`
}

// CommandDriver executes data-changing commands; optional alongside
// StandardDriver.
type CommandDriver interface {
	ExecuteCommand(ctx context.Context, command string, args []any, opts models.ExecuteOptions) (*CommandResult, error)
}

// LegacyDriver is the older positional call shape. The orchestration layer
// falls back to it when a driver does not implement StandardDriver.
type LegacyDriver interface {
	Find(ctx context.Context, objectName string, ast models.QueryAST, opts models.ExecuteOptions) ([]map[string]any, error)
	Count(ctx context.Context, objectName string, filters models.FilterNode) (int64, error)
}
