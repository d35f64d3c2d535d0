package sqlite

import "time"

// TranscriptionRecord represents one transcriber run
type TranscriptionRecord struct {
	ID             int64         `json:"id"`
	RunID          string        `json:"run_id"`
	InputFile      string        `json:"input_file"`
	Model          string        `json:"model"`
	Backend        string        `json:"backend"`
	SampleRate     int           `json:"sample_rate"`
	Content        string        `json:"content"`
	AudioDuration  time.Duration `json:"audio_duration"`
	ProcessingTime time.Duration `json:"processing_time"`
	OutputJSON     string        `json:"output_json,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}
