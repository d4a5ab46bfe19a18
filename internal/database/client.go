// Package database persists sweep runs to PostgreSQL/TimescaleDB through GORM.
package database

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chrissnell/glacierfront/internal/log"
	"github.com/chrissnell/glacierfront/internal/sweep"
	"go.uber.org/zap"
)

// pointBatchSize bounds the rows per INSERT when saving sweep points
const pointBatchSize = 500

// ErrRunNotFound is returned by GetRun when no run has the requested ID
var ErrRunNotFound = errors.New("sweep run not found")

// Client holds the connection to the results database
type Client struct {
	DB     *gorm.DB // Exported so it can be accessed from other packages
	logger *zap.SugaredLogger
}

// NewClient wraps an existing GORM handle
func NewClient(db *gorm.DB, logger *zap.SugaredLogger) *Client {
	return &Client{
		DB:     db,
		logger: logger,
	}
}

// CreateConnection is a helper function to create a database connection with standard GORM configuration
func CreateConnection(connectionString string) (*gorm.DB, error) {
	// Create a logger for gorm
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Info("connecting to results database...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		log.Warnf("warning: unable to create a results database connection: %v", err)
		return nil, err
	}
	log.Info("results database connection successful")

	return db, nil
}

// Migrate creates or updates the sweep tables
func (c *Client) Migrate() error {
	if err := c.DB.AutoMigrate(&SweepRun{}, &SweepPoint{}); err != nil {
		return fmt.Errorf("error migrating sweep tables: %w", err)
	}
	return nil
}

// SaveRun stores a sweep run and all of its points in one transaction
func (c *Client) SaveRun(ctx context.Context, run *sweep.Run) error {
	rec, points := RecordsFromRun(run)

	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Points").Create(&rec).Error; err != nil {
			return fmt.Errorf("error inserting sweep run: %w", err)
		}
		if len(points) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&points, pointBatchSize).Error; err != nil {
			return fmt.Errorf("error inserting sweep points: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if c.logger != nil {
		c.logger.Infow("saved sweep run", "run_id", rec.RunID, "points", len(points))
	}
	return nil
}

// GetRun loads a stored run with its points ordered by index
func (c *Client) GetRun(ctx context.Context, runID string) (*SweepRun, error) {
	var rec SweepRun
	err := c.DB.WithContext(ctx).
		Preload("Points", func(db *gorm.DB) *gorm.DB { return db.Order("point_index") }).
		Where("run_id = ?", runID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying sweep run %s: %w", runID, err)
	}
	return &rec, nil
}

// Close releases the underlying connection pool
func (c *Client) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordsFromRun converts a sweep run into database rows
func RecordsFromRun(run *sweep.Run) (SweepRun, []SweepPoint) {
	s := run.Summary
	rec := SweepRun{
		RunID:          run.ID.String(),
		SweepName:      run.Spec.Name,
		Scenario:       run.Spec.Scenario,
		Parameter:      string(run.Spec.Parameter),
		Convention:     run.Convention.String(),
		StartValue:     run.Spec.Start,
		StopValue:      run.Spec.Stop,
		PointCount:     s.Points,
		Conditioned:    s.Conditioned,
		IllConditioned: s.IllConditioned,
		Failed:         s.Failed,
		SignChanges:    s.SignChanges,
		MeanRate:       nullable(s.MeanRate),
		StdDevRate:     nullable(s.StdDevRate),
		MinRate:        nullable(s.MinRate),
		MaxRate:        nullable(s.MaxRate),
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
	}

	points := make([]SweepPoint, 0, len(run.Points))
	for _, p := range run.Points {
		row := SweepPoint{
			RunID:      rec.RunID,
			PointIndex: p.Index,
			Value:      p.Value,
		}
		if p.Err != nil {
			row.Error = p.Err.Error()
		} else {
			row.Rate = nullable(p.Result.Rate)
			row.DLDt = nullable(p.Result.DLDt)
			row.Numerator = nullable(p.Result.Numerator)
			row.Denominator = nullable(p.Result.Denominator)
			row.Condition = string(p.Result.Condition)
		}
		points = append(points, row)
	}

	return rec, points
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
