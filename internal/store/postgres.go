package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"phototier/internal/photo"
)

// DB is the postgres-backed RecordStore.
type DB struct {
	conn *gorm.DB
}

var _ RecordStore = (*DB)(nil)

// Open connects to postgres, migrates the photo_records table and tunes
// the connection pool.
func Open(dsn string) (*DB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := conn.AutoMigrate(&photo.Record{}); err != nil {
		return nil, fmt.Errorf("migrate photo_records: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Upsert inserts the record or, when the code already exists, overwrites
// the row with the given values. A single INSERT ... ON CONFLICT, so the
// per-code atomicity contract holds under concurrent writers.
func (d *DB) Upsert(ctx context.Context, rec *photo.Record) error {
	res := d.conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		UpdateAll: true,
	}).Create(rec)
	if res.Error != nil {
		return fmt.Errorf("upsert %s: %w", rec.Code, res.Error)
	}
	return nil
}

// MarkExported updates exported_date alone, so a concurrent writer's
// changes to other columns are never reverted by an export pass.
func (d *DB) MarkExported(ctx context.Context, code string, at time.Time) error {
	res := d.conn.WithContext(ctx).Model(&photo.Record{}).
		Where("code = ?", code).
		Update("exported_date", at)
	if res.Error != nil {
		return fmt.Errorf("mark exported %s: %w", code, res.Error)
	}
	return nil
}

func (d *DB) FindAll(ctx context.Context) ([]photo.Record, error) {
	var recs []photo.Record
	if err := d.conn.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("find all: %w", err)
	}
	return recs, nil
}

func (d *DB) FindByCode(ctx context.Context, code string) (*photo.Record, error) {
	var rec photo.Record
	err := d.conn.WithContext(ctx).Where("code = ?", code).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find code %s: %w", code, err)
	}
	return &rec, nil
}

func (d *DB) FindByHash(ctx context.Context, hash string) (*photo.Record, error) {
	var rec photo.Record
	err := d.conn.WithContext(ctx).Where("file_hash = ?", hash).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find hash %s: %w", hash, err)
	}
	return &rec, nil
}

func (d *DB) FindSyncRequired(ctx context.Context) ([]photo.Record, error) {
	var recs []photo.Record
	err := d.conn.WithContext(ctx).Where("cloud_sync_required = ?", true).Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("find sync required: %w", err)
	}
	return recs, nil
}

// FindLocalOnly returns records whose payload lives only in the
// relational tier. Used by the one-time cloud migration sweep.
func (d *DB) FindLocalOnly(ctx context.Context) ([]photo.Record, error) {
	var recs []photo.Record
	err := d.conn.WithContext(ctx).
		Where("payload IS NOT NULL AND length(payload) > 0").
		Where("cloud_ref IS NULL OR cloud_ref = ''").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("find local only: %w", err)
	}
	return recs, nil
}

func (d *DB) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := d.conn.WithContext(ctx).Model(&photo.Record{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// ClearField nullifies one of the closed set of clearable columns and
// returns the number of rows affected.
func (d *DB) ClearField(ctx context.Context, code string, field ClearableField) (int64, error) {
	var column string
	switch field {
	case FieldPayload:
		column = "payload"
	case FieldCloudRef:
		column = "cloud_ref"
	default:
		return 0, fmt.Errorf("unknown clearable field %v", field)
	}

	res := d.conn.WithContext(ctx).Model(&photo.Record{}).
		Where("code = ?", code).
		Update(column, gorm.Expr("NULL"))
	if res.Error != nil {
		return 0, fmt.Errorf("clear %s on %s: %w", column, code, res.Error)
	}
	return res.RowsAffected, nil
}
