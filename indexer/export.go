package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

const exportBatch = 5000

type parquetEvent struct {
	Sequence   int64  `parquet:"name=sequence, type=INT64"`
	Type       string `parquet:"name=type, type=BYTE_ARRAY, convertedtype=UTF8"`
	ObjectID   string `parquet:"name=object_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp  int64  `parquet:"name=timestamp, type=INT64"`
	Attributes string `parquet:"name=attributes, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ExportResult describes one export run.
type ExportResult struct {
	Path  string
	From  uint64
	To    uint64
	Count int
}

// ExportParquet writes every event not yet exported into a new parquet file
// under dir and advances the export cursor. It returns a zero result when
// there is nothing new.
func (ix *Indexer) ExportParquet(ctx context.Context, dir string) (ExportResult, error) {
	after, err := ix.cursor(ctx, ix.db, cursorExport)
	if err != nil {
		return ExportResult{}, err
	}
	var rows []Event
	err = ix.db.WithContext(ctx).
		Where("sequence > ?", after).
		Order("sequence asc").
		Limit(exportBatch).
		Find(&rows).Error
	if err != nil {
		return ExportResult{}, err
	}
	if len(rows) == 0 {
		return ExportResult{}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ExportResult{}, fmt.Errorf("indexer: export dir: %w", err)
	}
	res := ExportResult{
		From:  rows[0].Sequence,
		To:    rows[len(rows)-1].Sequence,
		Count: len(rows),
	}
	res.Path = filepath.Join(dir, fmt.Sprintf("events-%012d-%012d.parquet", res.From, res.To))
	if err := writeParquet(res.Path, rows); err != nil {
		return ExportResult{}, err
	}
	if err := setCursor(ctx, ix.db, cursorExport, res.To); err != nil {
		return ExportResult{}, err
	}
	ix.logger.Info("exported events", "path", res.Path, "from", res.From, "to", res.To, "count", res.Count)
	return res, nil
}

func writeParquet(path string, rows []Event) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("indexer: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(parquetEvent), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("indexer: parquet schema: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		pr := &parquetEvent{
			Sequence:   int64(row.Sequence),
			Type:       row.Type,
			ObjectID:   row.ObjectID,
			Timestamp:  row.Timestamp,
			Attributes: row.Attributes,
		}
		if err := pw.Write(pr); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("indexer: write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("indexer: finalize parquet: %w", err)
	}
	return file.Close()
}
