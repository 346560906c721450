package postgres

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"ucode/ucode_go_query_engine_service/models"
	"ucode/ucode_go_query_engine_service/pkg/helper"
	span "ucode/ucode_go_query_engine_service/pkg/jaeger"
	"ucode/ucode_go_query_engine_service/pkg/logger"
	psqlpool "ucode/ucode_go_query_engine_service/pool"
	"ucode/ucode_go_query_engine_service/storage"
)

// Driver executes compiled queries against postgres. It implements the
// standard driver shape: it receives a compiled query, lowers the AST
// through the optimizer, and runs the parameterized SQL.
type Driver struct {
	pool      *psqlpool.Pool
	optimizer *SQLQueryOptimizer
	log       logger.LoggerI
}

func NewDriver(pool *psqlpool.Pool, optimizer *SQLQueryOptimizer, log logger.LoggerI) *Driver {
	return &Driver{
		pool:      pool,
		optimizer: optimizer,
		log:       log,
	}
}

// ExecuteQuery lowers and runs one compiled query.
func (d *Driver) ExecuteQuery(ctx context.Context, compiled *models.CompiledQuery, opts models.ExecuteOptions) (*models.QueryResult, error) {
	dbSpan, ctx := span.StartSpanFromContext(ctx, "postgres.ExecuteQuery", compiled.ObjectName)
	defer dbSpan.Finish()

	sql, args, err := d.optimizer.Optimize(compiled.AST)
	if err != nil {
		return nil, err
	}
	dbSpan.SetTag("sql", sql)

	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, helper.HandleDatabaseError(err, d.log, "ExecuteQuery: query failed")
	}
	defer rows.Close()

	value, err := scanRows(rows)
	if err != nil {
		return nil, helper.HandleDatabaseError(err, d.log, "ExecuteQuery: scan failed")
	}

	result := &models.QueryResult{Value: value}
	if opts.WithCount {
		count, err := d.count(ctx, compiled.AST)
		if err != nil {
			return nil, err
		}
		result.Count = count
	}
	return result, nil
}

// ExecuteCommand runs a data-changing statement and reports affected rows.
func (d *Driver) ExecuteCommand(ctx context.Context, command string, args []any, opts models.ExecuteOptions) (*storage.CommandResult, error) {
	dbSpan, ctx := span.StartSpanFromContext(ctx, "postgres.ExecuteCommand", command)
	defer dbSpan.Finish()

	tag, err := d.pool.Exec(ctx, command, args...)
	if err != nil {
		return nil, helper.HandleDatabaseError(err, d.log, "ExecuteCommand: exec failed")
	}

	return &storage.CommandResult{
		Success:  true,
		Affected: tag.RowsAffected(),
	}, nil
}

func (d *Driver) count(ctx context.Context, ast models.QueryAST) (int64, error) {
	sb := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query := sb.Select("COUNT(*)").From(pq.QuoteIdentifier(ast.Object))
	if ast.Filters != nil {
		where, err := filterToSqlizer(ast.Filters)
		if err != nil {
			return 0, err
		}
		query = query.Where(where)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := d.pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, helper.HandleDatabaseError(err, d.log, "ExecuteQuery: count failed")
	}
	return count, nil
}

// scanRows decodes every row into a map keyed by column name. uuid columns
// arrive from pgx as [16]uint8 and are rendered in canonical form.
func scanRows(rows pgx.Rows) ([]map[string]any, error) {
	columns := make([]string, len(rows.FieldDescriptions()))
	for i, fd := range rows.FieldDescriptions() {
		columns[i] = string(fd.Name)
	}

	var results []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		rowData := make(map[string]any, len(columns))
		for i, col := range columns {
			if value, ok := values[i].([16]uint8); ok { // uuid
				rowData[col] = uuid.UUID(value).String()
				continue
			}
			rowData[col] = values[i]
		}
		results = append(results, rowData)
	}

	return results, rows.Err()
}
