package stage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dubstudio/internal/app/artifacts"
	"dubstudio/internal/app/dispatch"
	apperrors "dubstudio/internal/app/errors"
	"dubstudio/internal/app/model"
	"dubstudio/internal/app/speech"
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

type mockSynthesizer struct {
	mock.Mock
}

func (m *mockSynthesizer) Synthesize(ctx context.Context, text string, voice speech.Voice) ([]byte, error) {
	args := m.Called(ctx, text, voice)
	if b := args.Get(0); b != nil {
		return b.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func avatarJob() *model.Job {
	return &model.Job{
		ID:        "j1",
		OwnerID:   "u1",
		Kind:      model.KindAvatar,
		Status:    model.StatusProcessingTTS,
		Inputs:    model.JobInputs{AvatarID: "a1", Script: "Hi"},
		Artifacts: map[string]string{},
	}
}

func translationJob() *model.Job {
	return &model.Job{
		ID:        "t1",
		OwnerID:   "u1",
		Kind:      model.KindTranslation,
		Status:    model.StatusQueued,
		Inputs:    model.JobInputs{VideoURL: "gs://bucket/in.mp4", SourceLang: "en", TargetLang: "es"},
		Artifacts: map[string]string{},
	}
}

func TestAudioExtraction_Run(t *testing.T) {
	d := &mockDispatcher{}
	d.On("DispatchExtraction", mock.Anything, dispatch.ExtractionRequest{
		JobID:           "t1",
		InputVideoURI:   "gs://bucket/in.mp4",
		OutputAudioPath: "translationJobs/t1/extracted_audio.mp3",
		CallbackURL:     "http://api/jobs/t1/callbacks",
	}).Return("extract-audio-t1", nil)

	s := NewAudioExtraction(d, func(id string) string { return "http://api/jobs/" + id + "/callbacks" })
	tr, err := s.Run(context.Background(), translationJob())
	require.NoError(t, err)

	assert.Equal(t, model.StatusAudioExtractionPending, tr.Status)
	assert.Equal(t, 10, tr.Progress)
	assert.Empty(t, tr.Artifacts)
	d.AssertExpectations(t)
}

func TestAudioExtraction_DispatchFailure(t *testing.T) {
	d := &mockDispatcher{}
	d.On("DispatchExtraction", mock.Anything, mock.Anything).Return("", errors.New("temporal unreachable"))

	_, err := NewAudioExtraction(d, nil).Run(context.Background(), translationJob())
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
}

func TestSpeechSynthesis_Run(t *testing.T) {
	synth := &mockSynthesizer{}
	voice := speech.Voice{LanguageCode: "en-US", Name: "en-US-Standard-C"}
	synth.On("Synthesize", mock.Anything, "Hi", voice).Return([]byte("mp3"), nil)
	store := artifacts.NewMemoryStore("http://storage")

	s := NewSpeechSynthesis(synth, store, func(*model.Job) speech.Voice { return voice })
	tr, err := s.Run(context.Background(), avatarJob())
	require.NoError(t, err)

	assert.Equal(t, model.StatusAudioCompleted, tr.Status)
	assert.Equal(t, 30, tr.Progress)
	assert.Equal(t, "http://storage/avatarJobs/j1/generated_audio.mp3", tr.Artifacts[model.ArtifactAudio])
	assert.Equal(t, "avatarJobs/j1/generated_audio.mp3", tr.Artifacts[model.ArtifactAudioPath])

	obj, ok := store.Get("avatarJobs/j1/generated_audio.mp3")
	require.True(t, ok)
	assert.Equal(t, "audio/mpeg", obj.ContentType)
	synth.AssertExpectations(t)
}

func TestSpeechSynthesis_LengthBoundary(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantErr bool
	}{
		{"exactly 2000 characters", strings.Repeat("a", 2000), false},
		{"2001 characters", strings.Repeat("a", 2001), true},
		{"2000 multibyte characters", strings.Repeat("é", 2000), false},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synth := &mockSynthesizer{}
			synth.On("Synthesize", mock.Anything, mock.Anything, mock.Anything).Return([]byte("mp3"), nil)

			job := avatarJob()
			job.Inputs.Script = tt.script
			_, err := NewSpeechSynthesis(synth, artifacts.NewMemoryStore(""), nil).Run(context.Background(), job)

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))
				synth.AssertNotCalled(t, "Synthesize", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			synth.AssertNumberOfCalls(t, "Synthesize", 1)
		})
	}
}

func TestSpeechSynthesis_Unavailable(t *testing.T) {
	s := NewSpeechSynthesis(nil, artifacts.NewMemoryStore(""), nil)
	assert.False(t, s.Available())

	_, err := s.Run(context.Background(), avatarJob())
	require.Error(t, err)
	assert.Equal(t, apperrors.KindUnavailable, apperrors.KindOf(err))
}

func TestSpeechSynthesis_SynthesizerFailure(t *testing.T) {
	synth := &mockSynthesizer{}
	synth.On("Synthesize", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))

	_, err := NewSpeechSynthesis(synth, artifacts.NewMemoryStore(""), nil).Run(context.Background(), avatarJob())
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestSpeechSynthesis_TranslationUsesTranslatedText(t *testing.T) {
	synth := &mockSynthesizer{}
	synth.On("Synthesize", mock.Anything, "Hola", mock.Anything).Return([]byte("mp3"), nil)

	job := translationJob()
	job.TranslatedText = "Hola"
	tr, err := NewSpeechSynthesis(synth, artifacts.NewMemoryStore(""), nil).Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 60, tr.Progress)
	assert.Equal(t, "translationJobs/t1/generated_audio.mp3", tr.Artifacts[model.ArtifactAudioPath])
}

func TestLipSync_Run(t *testing.T) {
	d := &mockDispatcher{}
	d.On("DispatchLipSync", mock.Anything, dispatch.LipSyncRequest{
		JobID:    "j1",
		AudioURL: "http://storage/a.mp3",
		AvatarID: "a1",
	}).Return("lipsync-j1", nil)

	job := avatarJob()
	job.Artifacts[model.ArtifactAudio] = "http://storage/a.mp3"

	tr, err := NewLipSync(d, nil).Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, model.StatusLipSyncPending, tr.Status)
	assert.Equal(t, 40, tr.Progress)
	d.AssertExpectations(t)
}

func TestLipSync_RequiresAudio(t *testing.T) {
	d := &mockDispatcher{}
	_, err := NewLipSync(d, nil).Run(context.Background(), avatarJob())
	require.Error(t, err)
	d.AssertNotCalled(t, "DispatchLipSync", mock.Anything, mock.Anything)
}

func TestComposition_Run(t *testing.T) {
	job := avatarJob()
	job.Status = model.StatusComposing

	_, err := NewComposition(nil).Run(context.Background(), job)
	require.Error(t, err, "no completion artifact observed")

	job.Artifacts[model.ArtifactLipSyncVideo] = "http://renderer/v.mp4"
	tr, err := NewComposition(nil).Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, tr.Status)
	assert.Equal(t, 100, tr.Progress)
	assert.Equal(t, "http://renderer/v.mp4", tr.Artifacts[model.ArtifactVideo])
}

func TestTransitionPatch(t *testing.T) {
	tr := &Transition{Status: model.StatusAudioCompleted, Detail: "done", Progress: 30, Artifacts: map[string]string{"audio": "x"}}
	p := tr.Patch()
	assert.Equal(t, model.StatusAudioCompleted, *p.Status)
	assert.Equal(t, 30, *p.Progress)
	assert.Equal(t, "x", p.Artifacts["audio"])
}

func TestGeneratedAudioPath(t *testing.T) {
	assert.Equal(t, "avatarJobs/j1/generated_audio.mp3", GeneratedAudioPath(avatarJob()))
	assert.Equal(t, "translationJobs/t1/extracted_audio.mp3", ExtractedAudioPath(translationJob()))
}
