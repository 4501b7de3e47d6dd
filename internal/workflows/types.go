package workflows

import "readcast/internal/models"

type PodcastAudioInput struct {
	Script       models.PodcastScript `json:"script"`
	Filename     string               `json:"filename"`
	DocumentID   int64                `json:"document_id,omitempty"`
	UserID       string               `json:"user_id"`
	Mode         models.PodcastMode   `json:"mode"`
	PacingMillis int                  `json:"pacing_millis"`
}

type PodcastAudioResult struct {
	Filename string `json:"filename"`
	Attached bool   `json:"attached"`
}

type StepStatus struct {
	Kind   string `json:"kind"`
	Index  int    `json:"index"`
	Status string `json:"status"`
}

type PodcastStatus struct {
	Filename    string       `json:"filename"`
	DocumentID  int64        `json:"document_id,omitempty"`
	CurrentStep string       `json:"current_step"`
	Status      string       `json:"status"`
	FailReason  string       `json:"fail_reason,omitempty"`
	Total       int          `json:"total"`
	Done        int          `json:"done"`
	Steps       []StepStatus `json:"steps"`
}
