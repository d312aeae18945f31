package types

// Track result status values
const (
	StatusDone    = "done"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// TrackResult records the outcome of converting one track
type TrackResult struct {
	Name       string  `json:"name"`
	SourcePath string  `json:"source_path"`
	OutputPath string  `json:"output_path,omitempty"`
	FramePath  string  `json:"frame_path,omitempty"`
	FrameID    uint64  `json:"frame_id,omitempty"`
	LoopCount  int     `json:"loop_count,omitempty"`
	Duration   float64 `json:"duration_s,omitempty"`
	Status     string  `json:"status"`
	Stage      string  `json:"stage,omitempty"`
	Error      string  `json:"error,omitempty"`
	ElapsedMS  int64   `json:"elapsed_ms"`
	Published  string  `json:"published,omitempty"`
}
