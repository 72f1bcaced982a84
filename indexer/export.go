package indexer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// Report lists the files written by Export.
type Report struct {
	CSVPath     string
	ParquetPath string
	Rows        int
}

// Export writes the complete history of account as CSV and Parquet files in
// dir. An empty account exports every event.
func (ix *Indexer) Export(ctx context.Context, dir, account string) (*Report, error) {
	entries, err := ix.history(ctx, account, 0)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("indexer: create export dir: %w", err)
	}
	name := account
	if name == "" {
		name = "all"
	}
	name = fmt.Sprintf("history_%s_%s", name, time.Now().UTC().Format("20060102T150405Z"))
	report := &Report{
		CSVPath:     filepath.Join(dir, name+".csv"),
		ParquetPath: filepath.Join(dir, name+".parquet"),
		Rows:        len(entries),
	}
	if err := writeCSV(report.CSVPath, entries); err != nil {
		return nil, err
	}
	if err := writeParquet(report.ParquetPath, entries); err != nil {
		return nil, err
	}
	ix.logger.Info("history exported",
		slog.String("component", "indexer"),
		slog.Int("rows", report.Rows),
		slog.String("csv", report.CSVPath),
		slog.String("parquet", report.ParquetPath))
	return report, nil
}

func attributesJSON(attrs map[string]string) string {
	raw, err := json.Marshal(attrs)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func writeCSV(path string, entries []Entry) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("indexer: create csv: %w", err)
	}
	defer file.Close()
	w := csv.NewWriter(file)
	if err := w.Write([]string{"id", "sequence", "position", "type", "timestamp", "attributes"}); err != nil {
		return fmt.Errorf("indexer: write csv header: %w", err)
	}
	for _, entry := range entries {
		record := []string{
			entry.ID.String(),
			strconv.FormatUint(entry.Sequence, 10),
			strconv.Itoa(entry.Position),
			entry.Type,
			entry.Timestamp.Format(time.RFC3339),
			attributesJSON(entry.Attributes),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("indexer: write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("indexer: flush csv: %w", err)
	}
	return nil
}

type parquetRow struct {
	ID         string `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Sequence   int64  `parquet:"name=sequence, type=INT64"`
	Position   int32  `parquet:"name=position, type=INT32"`
	Type       string `parquet:"name=type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp  string `parquet:"name=timestamp, type=BYTE_ARRAY, convertedtype=UTF8"`
	Attributes string `parquet:"name=attributes, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func writeParquet(path string, entries []Entry) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("indexer: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("indexer: parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, entry := range entries {
		row := &parquetRow{
			ID:         entry.ID.String(),
			Sequence:   int64(entry.Sequence),
			Position:   int32(entry.Position),
			Type:       entry.Type,
			Timestamp:  entry.Timestamp.Format(time.RFC3339),
			Attributes: attributesJSON(entry.Attributes),
		}
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("indexer: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("indexer: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("indexer: close parquet file: %w", err)
	}
	return nil
}
