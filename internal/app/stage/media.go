package stage

import (
	"context"
	"fmt"

	"dubstudio/internal/app/artifacts"
	"dubstudio/internal/app/dispatch"
	apperrors "dubstudio/internal/app/errors"
	"dubstudio/internal/app/model"
	"dubstudio/internal/app/speech"
)

// CallbackURLFunc returns the URL a worker reports stage completion to
type CallbackURLFunc func(jobID string) string

// AudioExtraction hands the source video to an extraction worker
type AudioExtraction struct {
	dispatcher  dispatch.Dispatcher
	callbackURL CallbackURLFunc
}

// NewAudioExtraction creates the extraction stage
func NewAudioExtraction(d dispatch.Dispatcher, callbackURL CallbackURLFunc) *AudioExtraction {
	return &AudioExtraction{dispatcher: d, callbackURL: callbackURL}
}

func (s *AudioExtraction) Name() string { return NameAudioExtraction }

// ExtractedAudioPath is where the worker writes the extracted track
func ExtractedAudioPath(job *model.Job) string {
	return artifactPrefix(job) + "/extracted_audio.mp3"
}

func (s *AudioExtraction) Run(ctx context.Context, job *model.Job) (*Transition, error) {
	if job.Inputs.VideoURL == "" {
		return nil, apperrors.RequiredFields("Missing source video.", "videoUrl")
	}
	req := dispatch.ExtractionRequest{
		JobID:           job.ID,
		InputVideoURI:   job.Inputs.VideoURL,
		OutputAudioPath: ExtractedAudioPath(job),
	}
	if s.callbackURL != nil {
		req.CallbackURL = s.callbackURL(job.ID)
	}
	if _, err := s.dispatcher.DispatchExtraction(ctx, req); err != nil {
		return nil, apperrors.Internal(err, "failed to dispatch audio extraction")
	}
	return transition(job, model.StatusAudioExtractionPending, "Extracting audio from video", nil), nil
}

// VoiceFunc picks the synthesis voice for a job
type VoiceFunc func(job *model.Job) speech.Voice

// SpeechSynthesis voices the job text and stores the audio
type SpeechSynthesis struct {
	synth  speech.Synthesizer
	store  artifacts.Store
	voices VoiceFunc
}

// NewSpeechSynthesis creates the synthesis stage. synth may be nil when no
// synthesis client could be initialized; Run then fails with Unavailable.
func NewSpeechSynthesis(synth speech.Synthesizer, store artifacts.Store, voices VoiceFunc) *SpeechSynthesis {
	return &SpeechSynthesis{synth: synth, store: store, voices: voices}
}

func (s *SpeechSynthesis) Name() string { return NameSpeechSynthesis }

// Available reports whether a synthesis client is configured
func (s *SpeechSynthesis) Available() bool {
	return s != nil && s.synth != nil
}

// GeneratedAudioPath is the storage key of the synthesized audio
func GeneratedAudioPath(job *model.Job) string {
	return artifactPrefix(job) + "/generated_audio.mp3"
}

func (s *SpeechSynthesis) Run(ctx context.Context, job *model.Job) (*Transition, error) {
	field := "script"
	if job.Kind == model.KindTranslation {
		field = "translatedText"
	}
	if err := ValidateSynthesisText(field, job.SynthesisText()); err != nil {
		return nil, err
	}
	if !s.Available() {
		return nil, apperrors.Unavailable("Text-to-Speech")
	}

	var voice speech.Voice
	if s.voices != nil {
		voice = s.voices(job)
	}
	audio, err := s.synth.Synthesize(ctx, job.SynthesisText(), voice)
	if err != nil {
		return nil, apperrors.Internal(err, "speech synthesis failed")
	}

	key := GeneratedAudioPath(job)
	locator, err := s.store.Put(ctx, key, audio, "audio/mpeg")
	if err != nil {
		return nil, apperrors.Internal(err, "failed to store synthesized audio")
	}

	return transition(job, model.StatusAudioCompleted, "Audio generated", map[string]string{
		model.ArtifactAudio:     locator,
		model.ArtifactAudioPath: key,
	}), nil
}

// LipSync submits a lip-sync render of the synthesized audio
type LipSync struct {
	dispatcher  dispatch.Dispatcher
	callbackURL CallbackURLFunc
}

// NewLipSync creates the lip-sync stage
func NewLipSync(d dispatch.Dispatcher, callbackURL CallbackURLFunc) *LipSync {
	return &LipSync{dispatcher: d, callbackURL: callbackURL}
}

func (s *LipSync) Name() string { return NameLipSync }

func (s *LipSync) Run(ctx context.Context, job *model.Job) (*Transition, error) {
	audio := job.Artifacts[model.ArtifactAudio]
	if audio == "" {
		return nil, apperrors.Internal(nil, fmt.Sprintf("job %s has no synthesized audio to lip-sync", job.ID))
	}

	req := dispatch.LipSyncRequest{JobID: job.ID, AudioURL: audio}
	if job.Kind == model.KindAvatar {
		req.AvatarID = job.Inputs.AvatarID
	} else {
		req.SourceVideoURL = job.Inputs.VideoURL
	}
	if s.callbackURL != nil {
		req.CallbackURL = s.callbackURL(job.ID)
	}

	if _, err := s.dispatcher.DispatchLipSync(ctx, req); err != nil {
		return nil, apperrors.Internal(err, "failed to dispatch lip sync")
	}
	return transition(job, model.StatusLipSyncPending, "Lip sync video generation in progress", nil), nil
}

// Composer merges a job's intermediate artifacts into the deliverable
type Composer interface {
	Compose(ctx context.Context, job *model.Job) (string, error)
}

// PassthroughComposer delivers the lip-synced render as the final video
type PassthroughComposer struct{}

func (PassthroughComposer) Compose(ctx context.Context, job *model.Job) (string, error) {
	return job.Artifacts[model.ArtifactLipSyncVideo], nil
}

// Composition produces the final video locator
type Composition struct {
	composer Composer
}

// NewComposition creates the composition stage; a nil composer passes the render through
func NewComposition(c Composer) *Composition {
	if c == nil {
		c = PassthroughComposer{}
	}
	return &Composition{composer: c}
}

func (s *Composition) Name() string { return NameComposition }

func (s *Composition) Run(ctx context.Context, job *model.Job) (*Transition, error) {
	if job.Artifacts[model.ArtifactLipSyncVideo] == "" {
		return nil, apperrors.Internal(nil, fmt.Sprintf("job %s has no lip-sync render to compose", job.ID))
	}
	video, err := s.composer.Compose(ctx, job)
	if err != nil {
		return nil, apperrors.Internal(err, "composition failed")
	}
	if video == "" {
		return nil, apperrors.Internal(nil, "composition produced no video")
	}
	return transition(job, model.StatusCompleted, "Video ready", map[string]string{
		model.ArtifactVideo: video,
	}), nil
}
