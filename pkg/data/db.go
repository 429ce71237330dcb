package data

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

var ErrNoReport = errors.New("no report for spot")

// Report is the latest published surf report of one spot. Series are stored
// as JSON text.
type Report struct {
	SpotName    string `gorm:"primaryKey"`
	RunID       string `gorm:"size:36"`
	SpotConfig  string `gorm:"type:text"`
	GeneratedAt time.Time

	WaterTempF       *float64
	WindSpeedMPH     *float64
	WindDirectionDeg *float64
	StreamLink       string

	WaveData       string `gorm:"type:text"`
	TideData       string `gorm:"type:text"`
	WindData       string `gorm:"type:text"`
	DailySummaries string `gorm:"type:text"`

	WavePoints  int
	TideEvents  int
	WindSamples int

	UpdatedAt time.Time
}

func (Report) TableName() string {
	return "surf_reports"
}

// DSN returns databaseURL if set, otherwise a connection string built from
// the libpq PG* variables.
func DSN(databaseURL string) string {
	if databaseURL != "" {
		return databaseURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		envOr("PGHOST", "localhost"),
		envOr("PGUSER", "postgres"),
		os.Getenv("PGPASSWORD"),
		envOr("PGDATABASE", "surfdash"),
		envOr("PGPORT", "5432"))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Open connects to Postgres and migrates the reports table.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&Report{}); err != nil {
		return nil, fmt.Errorf("failed to migrate %s: %w", Report{}.TableName(), err)
	}
	return db, nil
}

// ReportStore keeps one report per spot.
type ReportStore struct {
	db *gorm.DB
}

func NewReportStore(db *gorm.DB) *ReportStore {
	return &ReportStore{db: db}
}

// Upsert inserts r, replacing any report already stored for the spot.
func (s *ReportStore) Upsert(ctx context.Context, r *Report) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "spot_name"}},
		UpdateAll: true,
	}).Create(r).Error
}

func (s *ReportStore) Get(ctx context.Context, spot string) (*Report, error) {
	var r Report
	err := s.db.WithContext(ctx).First(&r, "spot_name = ?", spot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w %q", ErrNoReport, spot)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
