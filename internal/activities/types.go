package activities

import (
	"readcast/internal/models"
	"readcast/internal/tts"
)

type PrepareStepsInput struct {
	Script   models.PodcastScript `json:"script"`
	Filename string               `json:"filename"`
}

type PrepareStepsOutput struct {
	WorkDir string     `json:"work_dir"`
	Steps   []tts.Step `json:"steps"`
}

type SynthesizeStepInput struct {
	WorkDir  string   `json:"work_dir"`
	Position int      `json:"position"`
	Step     tts.Step `json:"step"`
}

type SynthesizeStepOutput struct {
	PartPath string `json:"part_path"`
	Bytes    int    `json:"bytes"`
}

type MergeStepsInput struct {
	WorkDir  string   `json:"work_dir"`
	Parts    []string `json:"parts"`
	Filename string   `json:"filename"`
}

type MergeStepsOutput struct {
	Path string `json:"path"`
}

type PublishPodcastInput struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

type AttachPodcastInput struct {
	DocumentID int64              `json:"document_id"`
	Mode       models.PodcastMode `json:"mode"`
	Filename   string             `json:"filename"`
}

type CleanupInput struct {
	WorkDir string `json:"work_dir"`
}
