package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"fusionswap/core/events"
	"fusionswap/core/types"
)

// ErrNotFound is returned for objects the indexer has never seen.
var ErrNotFound = errors.New("indexer: not found")

const (
	cursorIngest = "ingest"
	cursorExport = "export"
)

// Open connects to the indexer database. Driver is "postgres" or "sqlite".
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	single := false
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
		single = true
	default:
		return nil, fmt.Errorf("indexer: unknown driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open %s: %w", driver, err)
	}
	if single {
		// sqlite allows a single writer
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Indexer folds the event stream into the Event and Object tables.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
}

// New migrates db and returns an indexer over it.
func New(db *gorm.DB, logger *slog.Logger) (*Indexer, error) {
	if db == nil {
		return nil, errors.New("indexer: database required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return &Indexer{db: db, logger: logger.With("component", "indexer")}, nil
}

// LastSequence is the highest event sequence applied.
func (ix *Indexer) LastSequence(ctx context.Context) (uint64, error) {
	return ix.cursor(ctx, ix.db, cursorIngest)
}

func (ix *Indexer) cursor(ctx context.Context, db *gorm.DB, name string) (uint64, error) {
	var c Cursor
	err := db.WithContext(ctx).First(&c, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return c.Sequence, err
}

func setCursor(ctx context.Context, db *gorm.DB, name string, seq uint64) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"sequence"}),
	}).Create(&Cursor{Name: name, Sequence: seq}).Error
}

// Apply stores rec and updates the object it concerns. Records at or below
// the ingest cursor are ignored, so replaying a backlog is harmless.
func (ix *Indexer) Apply(ctx context.Context, rec types.Record) error {
	return ix.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		last, err := ix.cursor(ctx, tx, cursorIngest)
		if err != nil {
			return err
		}
		if rec.Sequence <= last {
			ix.logger.Debug("skipping replayed event", "sequence", rec.Sequence, "cursor", last)
			return nil
		}
		attrs, err := json.Marshal(rec.Attrs)
		if err != nil {
			return err
		}
		row := Event{
			Sequence:   rec.Sequence,
			Type:       rec.Type,
			ObjectID:   objectID(rec),
			Timestamp:  rec.Timestamp,
			Attributes: string(attrs),
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("indexer: store event %d: %w", rec.Sequence, err)
		}
		if err := project(tx, rec); err != nil {
			return fmt.Errorf("indexer: project event %d: %w", rec.Sequence, err)
		}
		return setCursor(ctx, tx, cursorIngest, rec.Sequence)
	})
}

// Run consumes bus until ctx is done, first catching up on whatever the bus
// still retains past the ingest cursor.
func (ix *Indexer) Run(ctx context.Context, bus *events.Bus) error {
	since, err := ix.LastSequence(ctx)
	if err != nil {
		return err
	}
	if head := bus.Sequence(); head < since {
		ix.logger.Warn("event bus is behind the ingest cursor; events up to the cursor will be skipped",
			"bus", head, "cursor", since)
	}
	live, backlog, cancel := bus.Subscribe(since, 0)
	defer cancel()
	if len(backlog) > 0 && backlog[0].Sequence > since+1 {
		ix.logger.Warn("event backlog truncated; indexer has a gap",
			"from", since+1, "to", backlog[0].Sequence-1)
	}
	for _, rec := range backlog {
		if err := ix.Apply(ctx, rec); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case rec, ok := <-live:
			if !ok {
				return nil
			}
			if err := ix.Apply(ctx, rec); err != nil {
				ix.logger.Error("apply event", "sequence", rec.Sequence, "type", rec.Type, "error", err)
			}
		}
	}
}

// Query filters ListEvents. Zero fields match everything; Limit defaults to
// 100 and is capped at 1000.
type Query struct {
	ObjectID string
	Type     string
	After    uint64
	Limit    int
}

// ListEvents returns matching events in sequence order.
func (ix *Indexer) ListEvents(ctx context.Context, q Query) ([]Event, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	db := ix.db.WithContext(ctx).Where("sequence > ?", q.After)
	if q.ObjectID != "" {
		db = db.Where("object_id = ?", strings.ToLower(q.ObjectID))
	}
	if q.Type != "" {
		db = db.Where("type = ?", q.Type)
	}
	var out []Event
	err := db.Order("sequence asc").Limit(limit).Find(&out).Error
	return out, err
}

// Status returns the read model row for id.
func (ix *Indexer) Status(ctx context.Context, id string) (*Object, error) {
	var obj Object
	err := ix.db.WithContext(ctx).First(&obj, "id = ?", strings.ToLower(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("object %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

// Escrows lists escrows funded by source, an order or auction id.
func (ix *Indexer) Escrows(ctx context.Context, source string) ([]Object, error) {
	var out []Object
	err := ix.db.WithContext(ctx).
		Where("kind = ? AND source_id = ?", "escrow", strings.ToLower(source)).
		Order("created_seq asc").
		Find(&out).Error
	return out, err
}
