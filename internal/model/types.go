package model

// Job is one input-file-to-output-file conversion task and its lifecycle
// state. Jobs are identified by their index within the batch that created them.
type Job struct {
	Index            int     `json:"index"`
	InputPath        string  `json:"input_path"`
	OutputPath       string  `json:"output_path"`
	Format           string  `json:"format"`
	Bitrate          string  `json:"bitrate"`
	DurationSeconds  float64 `json:"duration_seconds,omitempty"`
	ElapsedSeconds   float64 `json:"elapsed_seconds,omitempty"`
	Progress         float64 `json:"progress"`
	Speed            float64 `json:"speed,omitempty"`
	RemainingSeconds float64 `json:"remaining_seconds,omitempty"`
	Status           string  `json:"status"`
	ExitCode         int     `json:"exit_code,omitempty"`
	LastError        string  `json:"last_error,omitempty"`
	StartedAt        string  `json:"started_at,omitempty"`
	FinishedAt       string  `json:"finished_at,omitempty"`
}

type BatchCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

func CountByStatus(jobs []Job) BatchCounts {
	counts := BatchCounts{Total: len(jobs)}
	for _, j := range jobs {
		switch j.Status {
		case StatusPending:
			counts.Pending++
		case StatusRunning:
			counts.Running++
		case StatusCompleted:
			counts.Completed++
		case StatusFailed:
			counts.Failed++
		case StatusSkipped:
			counts.Skipped++
		}
	}
	return counts
}
