// Package stage holds the units of external work a job passes through. Each
// processor performs one effect and describes the resulting transition; the
// orchestrator decides what runs next.
package stage

import (
	"context"
	"fmt"
	"unicode/utf8"

	apperrors "dubstudio/internal/app/errors"
	"dubstudio/internal/app/model"
)

// Stage names, used in logs, metrics and callbacks
const (
	NameAudioExtraction = "audio_extraction"
	NameSpeechSynthesis = "speech_synthesis"
	NameLipSync         = "lip_sync"
	NameComposition     = "composition"
	NameChatTurn        = "chat_turn"
)

// MaxSynthesisChars bounds the text sent to speech synthesis
const MaxSynthesisChars = 2000

// Transition is the declarative result of a stage run
type Transition struct {
	Status    model.JobStatus
	Detail    string
	Progress  int
	Artifacts map[string]string
}

// Patch converts the transition to a job patch
func (t *Transition) Patch() model.JobPatch {
	p := model.Transition(t.Status, t.Detail, t.Progress)
	p.Artifacts = t.Artifacts
	return p
}

// Processor runs one stage for a job
type Processor interface {
	Name() string
	Run(ctx context.Context, job *model.Job) (*Transition, error)
}

// ValidateSynthesisText rejects text the synthesis stage would refuse
func ValidateSynthesisText(field, text string) error {
	if text == "" {
		return apperrors.RequiredFields(fmt.Sprintf("Missing required parameter (%s).", field), field)
	}
	if utf8.RuneCountInString(text) > MaxSynthesisChars {
		return apperrors.TooLong(field, MaxSynthesisChars)
	}
	return nil
}

// transition builds a transition at the milestone progress of status for job
func transition(job *model.Job, status model.JobStatus, detail string, artifacts map[string]string) *Transition {
	progress, _ := model.Milestone(job.Kind, status)
	return &Transition{Status: status, Detail: detail, Progress: progress, Artifacts: artifacts}
}

// artifactPrefix is the storage prefix for files produced for job
func artifactPrefix(job *model.Job) string {
	if job.Kind == model.KindAvatar {
		return "avatarJobs/" + job.ID
	}
	return "translationJobs/" + job.ID
}
