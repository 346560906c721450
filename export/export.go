// Package export writes query results to CSV or Excel files and uploads them
// to object storage, returning a download link.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"

	"ucode/ucode_go_query_engine_service/config"
	"ucode/ucode_go_query_engine_service/engine"
	"ucode/ucode_go_query_engine_service/models"
	span "ucode/ucode_go_query_engine_service/pkg/jaeger"
	"ucode/ucode_go_query_engine_service/pkg/logger"
)

const (
	FormatCSV   = "csv"
	FormatExcel = "xlsx"
)

type Exporter struct {
	cfg     config.Config
	log     logger.LoggerI
	service *engine.QueryService
}

func NewExporter(cfg config.Config, log logger.LoggerI, service *engine.QueryService) *Exporter {
	return &Exporter{
		cfg:     cfg,
		log:     log,
		service: service,
	}
}

// Export runs the query and uploads the result in the requested format.
// Column order is the query's field projection when present, otherwise the
// sorted union of keys across all rows.
func (e *Exporter) Export(ctx context.Context, objectName, format string, query models.UnifiedQuery) (link string, err error) {
	dbSpan, ctx := span.StartSpanFromContext(ctx, "exporter.Export", objectName)
	defer dbSpan.Finish()

	result, err := e.service.Run(ctx, objectName, query, models.ExecuteOptions{})
	if err != nil {
		return "", err
	}

	headers := query.Fields
	if len(headers) == 0 {
		headers = collectColumns(result.Value)
	}

	filename := fmt.Sprintf("%s_%d.%s", objectName, time.Now().Unix(), format)
	filepath := "./" + filename

	switch format {
	case FormatCSV:
		err = writeCSV(filepath, headers, result.Value)
	case FormatExcel:
		err = writeExcel(filepath, headers, result.Value)
	default:
		return "", errors.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return "", err
	}

	link, err = e.upload(ctx, filename, filepath, format)
	if err != nil {
		e.log.Error("---Export--->>>", logger.String("object", objectName), logger.Error(err))
		return "", err
	}

	if err := os.Remove(filepath); err != nil {
		return "", err
	}
	return link, nil
}

func (e *Exporter) upload(ctx context.Context, filename, filepath, format string) (string, error) {
	minioClient, err := minio.New(e.cfg.MinioHost, &minio.Options{
		Creds:  credentials.NewStaticV4(e.cfg.MinioAccessKeyID, e.cfg.MinioSecretKey, ""),
		Secure: e.cfg.MinioUseSSL,
	})
	if err != nil {
		return "", errors.Wrap(err, "minio.New")
	}

	contentType := "text/csv"
	if format == FormatExcel {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}

	_, err = minioClient.FPutObject(
		ctx,
		e.cfg.MinioBucket,
		filename,
		filepath,
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return "", errors.Wrap(err, "minioClient.FPutObject")
	}

	return fmt.Sprintf("%s/%s/%s", e.cfg.MinioHost, e.cfg.MinioBucket, filename), nil
}

func writeCSV(filepath string, headers []string, rows []map[string]any) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(headers); err != nil {
		return err
	}
	for _, row := range rows {
		record := make([]string, 0, len(headers))
		for _, header := range headers {
			record = append(record, cast.ToString(row[header]))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeExcel(filepath string, headers []string, rows []map[string]any) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	for rowIdx, row := range rows {
		for col, header := range headers {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, cast.ToString(row[header])); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(filepath)
}

func collectColumns(rows []map[string]any) []string {
	seen := map[string]bool{}
	for _, row := range rows {
		for key := range row {
			seen[key] = true
		}
	}
	columns := make([]string, 0, len(seen))
	for key := range seen {
		columns = append(columns, key)
	}
	sort.Strings(columns)
	return columns
}
