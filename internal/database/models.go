package database

import (
	"time"
)

// SweepRun is one completed parameter sweep
type SweepRun struct {
	RunID          string    `gorm:"primaryKey;column:run_id"`
	SweepName      string    `gorm:"column:sweep_name;not null;index"`
	Scenario       string    `gorm:"column:scenario;not null"`
	Parameter      string    `gorm:"column:parameter;not null"`
	Convention     string    `gorm:"column:convention;not null"`
	StartValue     float64   `gorm:"column:start_value"`
	StopValue      float64   `gorm:"column:stop_value"`
	PointCount     int       `gorm:"column:point_count"`
	Conditioned    int       `gorm:"column:conditioned"`
	IllConditioned int       `gorm:"column:ill_conditioned"`
	Failed         int       `gorm:"column:failed"`
	SignChanges    int       `gorm:"column:sign_changes"`
	MeanRate       *float64  `gorm:"column:mean_rate"`
	StdDevRate     *float64  `gorm:"column:stddev_rate"`
	MinRate        *float64  `gorm:"column:min_rate"`
	MaxRate        *float64  `gorm:"column:max_rate"`
	StartedAt      time.Time `gorm:"column:started_at"`
	FinishedAt     time.Time `gorm:"column:finished_at"`

	Points []SweepPoint `gorm:"foreignKey:RunID;references:RunID"`
}

// TableName specifies the table name for SweepRun
func (SweepRun) TableName() string {
	return "sweep_runs"
}

// SweepPoint is one evaluated value of a sweep. Non-finite quantities are
// stored as NULL.
type SweepPoint struct {
	ID          int64    `gorm:"primaryKey;autoIncrement;column:id"`
	RunID       string   `gorm:"column:run_id;not null;index"`
	PointIndex  int      `gorm:"column:point_index;not null"`
	Value       float64  `gorm:"column:value"`
	Rate        *float64 `gorm:"column:rate"`
	DLDt        *float64 `gorm:"column:dl_dt"`
	Numerator   *float64 `gorm:"column:numerator"`
	Denominator *float64 `gorm:"column:denominator"`
	Condition   string   `gorm:"column:condition"`
	Error       string   `gorm:"column:error"`
}

// TableName specifies the table name for SweepPoint
func (SweepPoint) TableName() string {
	return "sweep_points"
}
