// Package store keeps a SQLite ledger of runs and converted tracks.
package store

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/melody-ding/go-mp3vid/internal/types"
)

type Client struct {
	DB *gorm.DB
}

// Open connects to the SQLite database at path and migrates the schema.
func Open(path string) (*Client, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("error opening ledger %s: %w", path, err)
	}

	// SQLite allows a single writer
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	c := &Client{DB: db}
	if err := c.AutoMigrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return c, nil
}

// AutoMigrate creates or updates the ledger tables.
func (c *Client) AutoMigrate() error {
	if err := c.DB.AutoMigrate(&Run{}, &TrackRecord{}); err != nil {
		return fmt.Errorf("ledger migration failed: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (c *Client) StartRun(id, inputDir string, at time.Time) error {
	return c.DB.Create(&Run{ID: id, InputDir: inputDir, StartedAt: at}).Error
}

func (c *Client) RecordTrack(runID string, r types.TrackResult) error {
	rec := TrackRecord{
		RunID:      runID,
		Name:       r.Name,
		SourcePath: r.SourcePath,
		OutputPath: r.OutputPath,
		FramePath:  r.FramePath,
		FrameID:    int64(r.FrameID),
		LoopCount:  r.LoopCount,
		Duration:   r.Duration,
		Status:     r.Status,
		Stage:      r.Stage,
		Error:      r.Error,
		ElapsedMS:  r.ElapsedMS,
		Published:  r.Published,
	}
	return c.DB.Create(&rec).Error
}

func (c *Client) FinishRun(id string, processed, failed, skipped int, at time.Time) error {
	return c.DB.Model(&Run{}).Where("id = ?", id).Updates(map[string]any{
		"finished_at": at,
		"processed":   processed,
		"failed":      failed,
		"skipped":     skipped,
	}).Error
}

// LastDone returns the most recent successful record for sourcePath, or nil.
func (c *Client) LastDone(sourcePath string) (*TrackRecord, error) {
	var rec TrackRecord
	err := c.DB.Where("source_path = ? AND status = ?", sourcePath, types.StatusDone).
		Order("id desc").
		Limit(1).
		Find(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == 0 {
		return nil, nil
	}
	return &rec, nil
}
