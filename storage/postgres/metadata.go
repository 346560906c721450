package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgtype"

	"ucode/ucode_go_query_engine_service/models"
	"ucode/ucode_go_query_engine_service/pkg/helper"
	"ucode/ucode_go_query_engine_service/pkg/logger"
	psqlpool "ucode/ucode_go_query_engine_service/pool"
)

// MetadataLoader reads object, field, and index metadata from the metadata
// tables into object schemas. The loaded schemas seed the schema registry and
// the SQL optimizer at startup.
type MetadataLoader struct {
	pool *psqlpool.Pool
	log  logger.LoggerI
}

func NewMetadataLoader(pool *psqlpool.Pool, log logger.LoggerI) *MetadataLoader {
	return &MetadataLoader{pool: pool, log: log}
}

// LoadSchemas loads every registered object with its fields and indexes.
func (m *MetadataLoader) LoadSchemas(ctx context.Context) (map[string]models.ObjectSchema, error) {
	schemas := make(map[string]models.ObjectSchema)

	objectRows, err := m.pool.Query(ctx, `SELECT slug FROM "object"`)
	if err != nil {
		return nil, helper.HandleDatabaseError(err, m.log, "LoadSchemas: objects query failed")
	}
	defer objectRows.Close()

	for objectRows.Next() {
		var slug string
		if err := objectRows.Scan(&slug); err != nil {
			return nil, helper.HandleDatabaseError(err, m.log, "LoadSchemas: object scan failed")
		}
		schemas[slug] = models.ObjectSchema{
			Name:   slug,
			Fields: map[string]models.FieldDescriptor{},
		}
	}
	if err := objectRows.Err(); err != nil {
		return nil, helper.HandleDatabaseError(err, m.log, "LoadSchemas: object rows failed")
	}

	if err := m.loadFields(ctx, schemas); err != nil {
		return nil, err
	}
	if err := m.loadIndexes(ctx, schemas); err != nil {
		return nil, err
	}
	return schemas, nil
}

func (m *MetadataLoader) loadFields(ctx context.Context, schemas map[string]models.ObjectSchema) error {
	fieldRows, err := m.pool.Query(ctx, `
		SELECT object_slug, slug, type, attributes,
		       COALESCE(reference_to, ''), COALESCE(relation_type, '')
		FROM "field"`)
	if err != nil {
		return helper.HandleDatabaseError(err, m.log, "LoadSchemas: fields query failed")
	}
	defer fieldRows.Close()

	for fieldRows.Next() {
		var (
			objectSlug, slug string
			fd               models.FieldDescriptor
			attributes       pgtype.JSONB
		)
		if err := fieldRows.Scan(&objectSlug, &slug, &fd.Type, &attributes, &fd.ReferenceTo, &fd.RelationType); err != nil {
			return helper.HandleDatabaseError(err, m.log, "LoadSchemas: field scan failed")
		}
		if attributes.Status == pgtype.Present {
			if err := json.Unmarshal(attributes.Bytes, &fd.Attributes); err != nil {
				return err
			}
		}

		schema, ok := schemas[objectSlug]
		if !ok {
			continue
		}
		schema.Fields[slug] = fd
	}
	return fieldRows.Err()
}

func (m *MetadataLoader) loadIndexes(ctx context.Context, schemas map[string]models.ObjectSchema) error {
	indexRows, err := m.pool.Query(ctx, `
		SELECT object_slug, name, fields, is_unique
		FROM "object_index"
		ORDER BY name`)
	if err != nil {
		return helper.HandleDatabaseError(err, m.log, "LoadSchemas: indexes query failed")
	}
	defer indexRows.Close()

	for indexRows.Next() {
		var (
			objectSlug string
			idx        models.IndexMetadata
		)
		if err := indexRows.Scan(&objectSlug, &idx.Name, &idx.Fields, &idx.Unique); err != nil {
			return helper.HandleDatabaseError(err, m.log, "LoadSchemas: index scan failed")
		}

		schema, ok := schemas[objectSlug]
		if !ok {
			continue
		}
		schema.Indexes = append(schema.Indexes, idx)
		schemas[objectSlug] = schema
	}
	return indexRows.Err()
}
