package store

import "time"

// Run is one invocation of the batch over an input directory
type Run struct {
	ID         string `gorm:"primaryKey;size:26"`
	InputDir   string
	StartedAt  time.Time
	FinishedAt *time.Time
	Processed  int
	Failed     int
	Skipped    int
	Tracks     []TrackRecord `gorm:"foreignKey:RunID"`
}

// TrackRecord is the outcome of one track within a run
type TrackRecord struct {
	ID         uint   `gorm:"primaryKey"`
	RunID      string `gorm:"index;size:26"`
	Name       string
	SourcePath string `gorm:"index"`
	OutputPath string
	FramePath  string
	FrameID    int64
	LoopCount  int
	Duration   float64
	Status     string `gorm:"index"`
	Stage      string
	Error      string
	ElapsedMS  int64
	Published  string
	CreatedAt  time.Time
}
