package model

import (
	"time"
)

// JobKind identifies which pipeline a job runs through
type JobKind string

const (
	KindTranslation JobKind = "translation"
	KindAvatar      JobKind = "avatar"
)

// Collection returns the logical collection name jobs of this kind are stored under
func (k JobKind) Collection() string {
	switch k {
	case KindTranslation:
		return "translationJobs"
	case KindAvatar:
		return "avatarVideoJobs"
	default:
		return ""
	}
}

// Valid reports whether k is a known job kind
func (k JobKind) Valid() bool {
	return k.Collection() != ""
}

// JobStatus is a state of the job state machine
type JobStatus string

const (
	StatusQueued                 JobStatus = "queued"
	StatusAudioExtractionPending JobStatus = "audio_extraction_pending"
	StatusProcessingTTS          JobStatus = "processing_tts"
	StatusAudioCompleted         JobStatus = "audio_completed"
	StatusLipSyncPending         JobStatus = "lipsync_pending"
	StatusComposing              JobStatus = "composing"
	StatusCompleted              JobStatus = "completed"
	StatusFailed                 JobStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed from s
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsPending reports whether s is waiting on an out-of-process callback
func (s JobStatus) IsPending() bool {
	return s == StatusAudioExtractionPending || s == StatusLipSyncPending
}

// PendingStatuses lists the states that only an external callback can advance
var PendingStatuses = []JobStatus{StatusAudioExtractionPending, StatusLipSyncPending}

// Artifact keys. Each key is written once, by the stage that produces it.
const (
	ArtifactExtractedAudio = "extractedAudio"
	ArtifactAudio          = "audio"
	ArtifactAudioPath      = "audioPath"
	ArtifactLipSyncVideo   = "lipsyncVideo"
	ArtifactVideo          = "video"
)

// milestones holds the progress value reported on entry to each status
var milestones = map[JobKind]map[JobStatus]int{
	KindAvatar: {
		StatusQueued:         5,
		StatusProcessingTTS:  10,
		StatusAudioCompleted: 30,
		StatusLipSyncPending: 40,
		StatusComposing:      90,
		StatusCompleted:      100,
	},
	KindTranslation: {
		StatusQueued:                 0,
		StatusAudioExtractionPending: 10,
		StatusProcessingTTS:          50,
		StatusAudioCompleted:         60,
		StatusLipSyncPending:         70,
		StatusComposing:              90,
		StatusCompleted:              100,
	},
}

// ExtractionReportedProgress is recorded when the extraction worker reports back
const ExtractionReportedProgress = 30

// Milestone returns the progress a job of kind reports on entering status.
// The second result is false when the pipeline for kind never enters status.
func Milestone(kind JobKind, status JobStatus) (int, bool) {
	p, ok := milestones[kind][status]
	return p, ok
}

// JobInputs is the kind-specific submission payload. It is immutable after creation.
type JobInputs struct {
	VideoURL      string `json:"videoUrl,omitempty"`
	SourceLang    string `json:"sourceLang,omitempty"`
	TargetLang    string `json:"targetLang,omitempty"`
	VideoFileName string `json:"videoFileName,omitempty"`
	AvatarID      string `json:"avatarId,omitempty"`
	Script        string `json:"script,omitempty"`
}

// Job is a persisted unit of multi-stage asynchronous work
type Job struct {
	ID             string            `json:"id"`
	OwnerID        string            `json:"ownerId"`
	Kind           JobKind           `json:"kind"`
	Status         JobStatus         `json:"status"`
	StatusDetail   string            `json:"statusDetail"`
	Progress       int               `json:"progress"`
	Inputs         JobInputs         `json:"inputs"`
	Artifacts      map[string]string `json:"artifacts"`
	TranslatedText string            `json:"translatedText,omitempty"`
	ErrorMessage   string            `json:"errorMessage,omitempty"`
	Version        int64             `json:"version"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// Clone returns a deep copy of the job
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.Artifacts = make(map[string]string, len(j.Artifacts))
	for k, v := range j.Artifacts {
		c.Artifacts[k] = v
	}
	return &c
}

// SynthesisText returns the text that speech synthesis should voice for this job
func (j *Job) SynthesisText() string {
	if j.Kind == KindAvatar {
		return j.Inputs.Script
	}
	return j.TranslatedText
}

// JobPatch is a partial update. Nil fields are left untouched.
type JobPatch struct {
	// ExpectStatus, when set, rejects the patch unless the job is in that state
	ExpectStatus   *JobStatus
	Status         *JobStatus
	StatusDetail   *string
	Progress       *int
	Artifacts      map[string]string
	TranslatedText *string
	ErrorMessage   *string
}

// Transition builds a patch that moves a job into status with the given detail
func Transition(status JobStatus, detail string, progress int) JobPatch {
	return JobPatch{
		Status:       &status,
		StatusDetail: &detail,
		Progress:     &progress,
	}
}

// Failure builds a patch that moves a job into the failed state
func Failure(detail, message string) JobPatch {
	status := StatusFailed
	return JobPatch{
		Status:       &status,
		StatusDetail: &detail,
		ErrorMessage: &message,
	}
}

// From returns a copy of p that only applies while the job is in status
func (p JobPatch) From(status JobStatus) JobPatch {
	p.ExpectStatus = &status
	return p
}

// JobFilter narrows ListJobs results. Zero fields are ignored.
type JobFilter struct {
	OwnerID       string
	Kind          JobKind
	Statuses      []JobStatus
	UpdatedBefore time.Time
	Limit         int
}
