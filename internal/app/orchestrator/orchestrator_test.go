package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dubstudio/internal/app/artifacts"
	"dubstudio/internal/app/auth"
	"dubstudio/internal/app/dispatch"
	apperrors "dubstudio/internal/app/errors"
	"dubstudio/internal/app/jobstore"
	"dubstudio/internal/app/model"
	"dubstudio/internal/app/pubsub"
	"dubstudio/internal/app/repository/memory"
	"dubstudio/internal/app/speech"
	"dubstudio/internal/app/stage"
)

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) DispatchExtraction(ctx context.Context, req dispatch.ExtractionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockDispatcher) DispatchLipSync(ctx context.Context, req dispatch.LipSyncRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type synthFunc func(ctx context.Context, text string, voice speech.Voice) ([]byte, error)

func (f synthFunc) Synthesize(ctx context.Context, text string, voice speech.Voice) ([]byte, error) {
	return f(ctx, text, voice)
}

// recordingHub keeps every job event published, in order
type recordingHub struct {
	*pubsub.LocalHub
	mu     sync.Mutex
	events []jobstore.Event
}

func (h *recordingHub) Publish(ctx context.Context, topic string, payload []byte) error {
	if strings.HasPrefix(topic, "job:") {
		var ev jobstore.Event
		if err := json.Unmarshal(payload, &ev); err == nil {
			h.mu.Lock()
			h.events = append(h.events, ev)
			h.mu.Unlock()
		}
	}
	return h.LocalHub.Publish(ctx, topic, payload)
}

func (h *recordingHub) snapshots(jobID string) []*model.Job {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*model.Job
	for _, ev := range h.events {
		if ev.Type == jobstore.EventSnapshot && ev.JobID == jobID {
			out = append(out, ev.Job)
		}
	}
	return out
}

type fixture struct {
	hub        *recordingHub
	store      *memory.Store
	jobs       *jobstore.Store
	dispatcher *mockDispatcher
	audio      *artifacts.MemoryStore
	orch       *Orchestrator
}

var okSynth = synthFunc(func(ctx context.Context, text string, voice speech.Voice) ([]byte, error) {
	return []byte("mp3:" + text), nil
})

func newFixture(t *testing.T, synth speech.Synthesizer) *fixture {
	t.Helper()
	hub := &recordingHub{LocalHub: pubsub.NewLocalHub()}
	t.Cleanup(func() { hub.Close() })

	store := memory.New()
	jobs := jobstore.NewStore(store, hub, zap.NewNop())
	d := &mockDispatcher{}
	audio := artifacts.NewMemoryStore("")

	stages := Stages{
		Extraction:  stage.NewAudioExtraction(d, nil),
		Synthesis:   stage.NewSpeechSynthesis(synth, audio, nil),
		LipSync:     stage.NewLipSync(d, nil),
		Composition: stage.NewComposition(nil),
	}
	return &fixture{
		hub:        hub,
		store:      store,
		jobs:       jobs,
		dispatcher: d,
		audio:      audio,
		orch:       New(jobs, stages, zap.NewNop(), nil),
	}
}

func (f *fixture) allJobs(t *testing.T) []*model.Job {
	t.Helper()
	jobs, err := f.jobs.List(context.Background(), model.JobFilter{})
	require.NoError(t, err)
	return jobs
}

// assertWellFormed checks progress never decreases and at most one terminal
// snapshot exists, as the last one
func assertWellFormed(t *testing.T, snaps []*model.Job) {
	t.Helper()
	require.NotEmpty(t, snaps)
	terminal := 0
	for i, s := range snaps {
		if i > 0 {
			assert.GreaterOrEqual(t, s.Progress, snaps[i-1].Progress, "progress decreased at snapshot %d", i)
			assert.Greater(t, s.Version, snaps[i-1].Version)
		}
		if s.Status.IsTerminal() {
			terminal++
			assert.Equal(t, len(snaps)-1, i, "terminal snapshot must be the last one")
		}
	}
	assert.LessOrEqual(t, terminal, 1)
}

var u1 = &auth.Principal{UID: "u1"}

func TestRequestAvatarVideo_Scenario(t *testing.T) {
	f := newFixture(t, okSynth)
	ctx := context.Background()

	f.dispatcher.On("DispatchLipSync", mock.Anything, mock.MatchedBy(func(req dispatch.LipSyncRequest) bool {
		return req.AvatarID == "a1" && strings.HasSuffix(req.AudioURL, "generated_audio.mp3")
	})).Return("lipsync-1", nil)

	jobID, err := f.orch.RequestAvatarVideo(ctx, u1, AvatarRequest{AvatarID: "a1", Script: "Hi"})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	snaps := f.hub.snapshots(jobID)
	assertWellFormed(t, snaps)

	type step struct {
		status   model.JobStatus
		progress int
	}
	var got []step
	for _, s := range snaps {
		got = append(got, step{s.Status, s.Progress})
	}
	assert.Equal(t, []step{
		{model.StatusQueued, 5},
		{model.StatusProcessingTTS, 10},
		{model.StatusAudioCompleted, 30},
		{model.StatusLipSyncPending, 40},
	}, got)

	job, err := f.jobs.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, "u1", job.OwnerID)
	assert.Equal(t, "avatarJobs/"+jobID+"/generated_audio.mp3", job.Artifacts[model.ArtifactAudioPath])

	obj, ok := f.audio.Get(job.Artifacts[model.ArtifactAudioPath])
	require.True(t, ok)
	assert.Equal(t, "mp3:Hi", string(obj.Data))
	f.dispatcher.AssertExpectations(t)
}

func TestRequestAvatarVideo_InvalidInputCreatesNothing(t *testing.T) {
	tests := []struct {
		name string
		req  AvatarRequest
	}{
		{"missing avatar", AvatarRequest{Script: "Hi"}},
		{"missing script", AvatarRequest{AvatarID: "a1"}},
		{"script too long", AvatarRequest{AvatarID: "a1", Script: strings.Repeat("x", stage.MaxSynthesisChars+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, okSynth)

			_, err := f.orch.RequestAvatarVideo(context.Background(), u1, tt.req)
			require.Error(t, err)
			assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))
			assert.Empty(t, f.allJobs(t))
			f.dispatcher.AssertNotCalled(t, "DispatchLipSync", mock.Anything, mock.Anything)
		})
	}
}

func TestRequestAvatarVideo_ScriptAtLimit(t *testing.T) {
	f := newFixture(t, okSynth)
	f.dispatcher.On("DispatchLipSync", mock.Anything, mock.Anything).Return("lipsync-1", nil)

	// multi-byte runes count once
	script := strings.Repeat("é", stage.MaxSynthesisChars)
	_, err := f.orch.RequestAvatarVideo(context.Background(), u1, AvatarRequest{AvatarID: "a1", Script: script})
	require.NoError(t, err)
}

func TestRequestAvatarVideo_SynthesisUnavailable(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.RequestAvatarVideo(context.Background(), u1, AvatarRequest{AvatarID: "a1", Script: "Hi"})
	assert.Equal(t, apperrors.KindUnavailable, apperrors.KindOf(err))
	assert.Empty(t, f.allJobs(t))
}

func TestRequestAvatarVideo_SynthesisFailureFailsJob(t *testing.T) {
	f := newFixture(t, synthFunc(func(ctx context.Context, text string, voice speech.Voice) ([]byte, error) {
		return nil, errors.New("quota exceeded")
	}))

	_, err := f.orch.RequestAvatarVideo(context.Background(), u1, AvatarRequest{AvatarID: "a1", Script: "Hi"})
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))

	jobs := f.allJobs(t)
	require.Len(t, jobs, 1)
	assert.Equal(t, model.StatusFailed, jobs[0].Status)
	assert.Equal(t, 10, jobs[0].Progress)
	assert.Contains(t, jobs[0].ErrorMessage, "quota exceeded")

	snaps := f.hub.snapshots(jobs[0].ID)
	assertWellFormed(t, snaps)
	assert.Equal(t, model.StatusFailed, snaps[len(snaps)-1].Status)
	f.dispatcher.AssertNotCalled(t, "DispatchLipSync", mock.Anything, mock.Anything)
}

func TestRequestVideoTranslation(t *testing.T) {
	f := newFixture(t, okSynth)
	ctx := context.Background()

	f.dispatcher.On("DispatchExtraction", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			// the job exists and is queued before the worker hears about it
			req := args.Get(1).(dispatch.ExtractionRequest)
			job, err := f.jobs.Get(ctx, req.JobID)
			require.NoError(t, err)
			assert.Equal(t, model.StatusQueued, job.Status)
			assert.Equal(t, "translationJobs/"+req.JobID+"/extracted_audio.mp3", req.OutputAudioPath)
		}).
		Return("extract-1", nil)

	jobID, err := f.orch.RequestVideoTranslation(ctx, u1, TranslationRequest{
		VideoURL:      "gs://bucket/in.mp4",
		SourceLang:    "en",
		TargetLang:    "es",
		VideoFileName: "in.mp4",
	})
	require.NoError(t, err)

	job, err := f.jobs.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAudioExtractionPending, job.Status)
	assert.Equal(t, 10, job.Progress)
	f.dispatcher.AssertExpectations(t)
}

func TestRequestVideoTranslation_Rejections(t *testing.T) {
	valid := TranslationRequest{VideoURL: "gs://bucket/in.mp4", SourceLang: "en", TargetLang: "es", VideoFileName: "in.mp4"}

	tests := []struct {
		name      string
		principal *auth.Principal
		req       TranslationRequest
		kind      apperrors.Kind
	}{
		{"unauthenticated", nil, valid, apperrors.KindUnauthenticated},
		{"missing video", u1, TranslationRequest{SourceLang: "en", TargetLang: "es", VideoFileName: "in.mp4"}, apperrors.KindInvalidArgument},
		{"missing languages", u1, TranslationRequest{VideoURL: "gs://bucket/in.mp4", VideoFileName: "in.mp4"}, apperrors.KindInvalidArgument},
		{"missing file name", u1, TranslationRequest{VideoURL: "gs://bucket/in.mp4", SourceLang: "en", TargetLang: "es"}, apperrors.KindInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, okSynth)

			_, err := f.orch.RequestVideoTranslation(context.Background(), tt.principal, tt.req)
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
			assert.Empty(t, f.allJobs(t))
			f.dispatcher.AssertNotCalled(t, "DispatchExtraction", mock.Anything, mock.Anything)
		})
	}
}

func TestRequestVideoTranslation_MissingFieldsNamed(t *testing.T) {
	f := newFixture(t, okSynth)

	_, err := f.orch.RequestVideoTranslation(context.Background(), u1, TranslationRequest{VideoURL: "gs://x"})
	var e *apperrors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "Missing required parameters (sourceLang, targetLang, videoFileName).", e.Message())
	assert.Equal(t, map[string]string{
		"sourceLang":    "is required",
		"targetLang":    "is required",
		"videoFileName": "is required",
	}, e.Fields())
}

func TestRequestVideoTranslation_DispatchFailureFailsJob(t *testing.T) {
	f := newFixture(t, okSynth)
	f.dispatcher.On("DispatchExtraction", mock.Anything, mock.Anything).Return("", errors.New("temporal unreachable"))

	_, err := f.orch.RequestVideoTranslation(context.Background(), u1, TranslationRequest{
		VideoURL: "gs://bucket/in.mp4", SourceLang: "en", TargetLang: "es", VideoFileName: "in.mp4",
	})
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))

	jobs := f.allJobs(t)
	require.Len(t, jobs, 1)
	assert.Equal(t, model.StatusFailed, jobs[0].Status)
	assert.NotEmpty(t, jobs[0].ErrorMessage)
}

func startTranslation(t *testing.T, f *fixture) string {
	t.Helper()
	f.dispatcher.On("DispatchExtraction", mock.Anything, mock.Anything).Return("extract-1", nil)
	jobID, err := f.orch.RequestVideoTranslation(context.Background(), u1, TranslationRequest{
		VideoURL: "gs://bucket/in.mp4", SourceLang: "en", TargetLang: "es", VideoFileName: "in.mp4",
	})
	require.NoError(t, err)
	return jobID
}

func TestHandleCallback_TranslationToCompletion(t *testing.T) {
	f := newFixture(t, okSynth)
	ctx := context.Background()
	jobID := startTranslation(t, f)
	f.dispatcher.On("DispatchLipSync", mock.Anything, mock.MatchedBy(func(req dispatch.LipSyncRequest) bool {
		return req.SourceVideoURL == "gs://bucket/in.mp4"
	})).Return("lipsync-1", nil)

	job, err := f.orch.HandleCallback(ctx, jobID, StageCallback{
		Stage:     CallbackAudioExtraction,
		Artifacts: map[string]string{model.ArtifactExtractedAudio: "gs://bucket/extracted.mp3"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusAudioExtractionPending, job.Status)
	assert.Equal(t, 30, job.Progress)

	job, err = f.orch.HandleCallback(ctx, jobID, StageCallback{Stage: CallbackTranscript, TranslatedText: "Hola"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusLipSyncPending, job.Status)
	assert.Equal(t, 70, job.Progress)
	assert.Equal(t, "Hola", job.TranslatedText)

	// a lip sync report without its render must not complete the job
	_, err = f.orch.HandleCallback(ctx, jobID, StageCallback{Stage: CallbackLipSync})
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))

	job, err = f.orch.HandleCallback(ctx, jobID, StageCallback{
		Stage:     CallbackLipSync,
		Artifacts: map[string]string{model.ArtifactLipSyncVideo: "https://render/out.mp4"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, "https://render/out.mp4", job.Artifacts[model.ArtifactVideo])

	snaps := f.hub.snapshots(jobID)
	assertWellFormed(t, snaps)
	var statuses []model.JobStatus
	for _, s := range snaps {
		statuses = append(statuses, s.Status)
	}
	assert.Equal(t, []model.JobStatus{
		model.StatusQueued,
		model.StatusAudioExtractionPending,
		model.StatusAudioExtractionPending,
		model.StatusProcessingTTS,
		model.StatusAudioCompleted,
		model.StatusLipSyncPending,
		model.StatusComposing,
		model.StatusCompleted,
	}, statuses)

	_, err = f.orch.HandleCallback(ctx, jobID, StageCallback{
		Stage:     CallbackLipSync,
		Artifacts: map[string]string{model.ArtifactLipSyncVideo: "https://render/out.mp4"},
	})
	assert.ErrorIs(t, err, apperrors.ErrJobTerminal)
}

func TestHandleCallback_Rejections(t *testing.T) {
	f := newFixture(t, okSynth)
	ctx := context.Background()
	jobID := startTranslation(t, f)

	_, err := f.orch.HandleCallback(ctx, jobID, StageCallback{Stage: "render"})
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))

	_, err = f.orch.HandleCallback(ctx, jobID, StageCallback{
		Stage:     CallbackLipSync,
		Artifacts: map[string]string{model.ArtifactLipSyncVideo: "https://render/out.mp4"},
	})
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))

	_, err = f.orch.HandleCallback(ctx, "missing", StageCallback{Stage: CallbackTranscript, TranslatedText: "Hola"})
	assert.ErrorIs(t, err, apperrors.ErrJobNotFound)

	job, err := f.jobs.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAudioExtractionPending, job.Status)
}

func TestHandleCallback_WorkerErrorFailsJob(t *testing.T) {
	f := newFixture(t, okSynth)
	ctx := context.Background()
	jobID := startTranslation(t, f)

	job, err := f.orch.HandleCallback(ctx, jobID, StageCallback{Stage: CallbackAudioExtraction, Error: "ffmpeg exited 1"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, job.Status)
	assert.Equal(t, "ffmpeg exited 1", job.ErrorMessage)
	assert.Equal(t, 10, job.Progress)
}

func TestHandleCallback_TranscriptTooLongFailsJob(t *testing.T) {
	f := newFixture(t, okSynth)
	ctx := context.Background()
	jobID := startTranslation(t, f)

	_, err := f.orch.HandleCallback(ctx, jobID, StageCallback{
		Stage:          CallbackTranscript,
		TranslatedText: strings.Repeat("a", stage.MaxSynthesisChars+1),
	})
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))

	job, err := f.jobs.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "too long")
}

func TestSweepPending(t *testing.T) {
	f := newFixture(t, okSynth)
	ctx := context.Background()
	pending := startTranslation(t, f)

	queued, err := f.jobs.Create(ctx, model.KindAvatar, model.JobInputs{AvatarID: "a1", Script: "Hi"}, "u1")
	require.NoError(t, err)

	n, err := f.orch.SweepPending(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.orch.now = func() time.Time { return time.Now().Add(time.Hour) }
	n, err = f.orch.SweepPending(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	job, err := f.jobs.Get(ctx, pending)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, job.Status)
	assert.Equal(t, "timed out waiting for audio_extraction", job.ErrorMessage)

	other, err := f.jobs.Get(ctx, queued.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, other.Status)

	// already failed jobs are left alone
	n, err = f.orch.SweepPending(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)
}
