package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "dubstudio/internal/app/errors"
	"dubstudio/internal/app/model"
	"dubstudio/internal/app/repository"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteDB_Interface(t *testing.T) {
	var _ repository.Store = (*SQLiteDB)(nil)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file:data/x.db?_busy_timeout=5000&_journal_mode=WAL", dsn("data/x.db"))
	assert.Equal(t, ":memory:", dsn(":memory:"))
	assert.Equal(t, "file:custom?mode=ro", dsn("file:custom?mode=ro"))
}

func TestSQLiteDB_MigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.Migrate(context.Background()))
}

func TestSQLiteDB_JobLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	job := &model.Job{
		ID:        "job-1",
		OwnerID:   "u1",
		Kind:      model.KindAvatar,
		Status:    model.StatusQueued,
		Progress:  5,
		Inputs:    model.JobInputs{AvatarID: "a1", Script: "Hi"},
		Artifacts: map[string]string{},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, db.CreateJob(ctx, job))

	got, err := db.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.OwnerID)
	assert.Equal(t, model.KindAvatar, got.Kind)
	assert.Equal(t, "Hi", got.Inputs.Script)
	assert.True(t, now.Equal(got.CreatedAt))

	updated, err := db.UpdateJob(ctx, "job-1", func(j *model.Job) error {
		j.Status = model.StatusAudioCompleted
		j.Progress = 30
		j.Artifacts[model.ArtifactAudio] = "http://storage/audio.mp3"
		j.Version++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	got, err = db.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAudioCompleted, got.Status)
	assert.Equal(t, 30, got.Progress)
	assert.Equal(t, "http://storage/audio.mp3", got.Artifacts[model.ArtifactAudio])

	jobs, err := db.ListJobs(ctx, model.JobFilter{OwnerID: "u1", Statuses: []model.JobStatus{model.StatusAudioCompleted}})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	jobs, err = db.ListJobs(ctx, model.JobFilter{OwnerID: "u2"})
	require.NoError(t, err)
	assert.Empty(t, jobs)

	require.NoError(t, db.DeleteJob(ctx, "job-1"))
	_, err = db.GetJob(ctx, "job-1")
	assert.ErrorIs(t, err, apperrors.ErrJobNotFound)
	_, err = db.UpdateJob(ctx, "job-1", func(j *model.Job) error { return nil })
	assert.ErrorIs(t, err, apperrors.ErrJobNotFound)
	assert.ErrorIs(t, db.DeleteJob(ctx, "job-1"), apperrors.ErrJobNotFound)
}

func TestSQLiteDB_UpdateJobAbortsOnMutateError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, db.CreateJob(ctx, &model.Job{
		ID: "job-2", OwnerID: "u1", Kind: model.KindTranslation, Status: model.StatusQueued,
		Artifacts: map[string]string{}, Version: 1, CreatedAt: now, UpdatedAt: now,
	}))

	_, err := db.UpdateJob(ctx, "job-2", func(j *model.Job) error {
		j.Status = model.StatusFailed
		return apperrors.ErrJobTerminal
	})
	assert.ErrorIs(t, err, apperrors.ErrJobTerminal)

	got, err := db.GetJob(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, got.Status)
}

func TestSQLiteDB_ChatMessages(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	_, err := db.ActiveSession(ctx, "u1")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	session := &model.ChatSession{ID: "s1", OwnerID: "u1", Status: model.SessionActive, CreatedAt: base}
	require.NoError(t, db.CreateSession(ctx, session))

	active, err := db.ActiveSession(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "s1", active.ID)
	assert.Nil(t, active.LastInteraction)

	for i, content := range []string{"one", "two", "three"} {
		require.NoError(t, db.AppendMessage(ctx, &model.ChatMessage{
			ID:        content,
			SessionID: "s1",
			Sender:    "u1",
			Content:   content,
			Type:      model.MessageTypeText,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}

	before, err := db.MessagesBefore(ctx, "s1", base.Add(2*time.Second), 10)
	require.NoError(t, err)
	require.Len(t, before, 2)
	assert.Equal(t, "two", before[0].Content)
	assert.Equal(t, "one", before[1].Content)

	latest, err := db.LatestMessages(ctx, "s1", 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "three", latest[0].Content)

	require.NoError(t, db.TouchSession(ctx, "s1", base.Add(time.Minute)))
	s, err := db.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, s.LastInteraction)
	assert.ErrorIs(t, db.TouchSession(ctx, "missing", base), apperrors.ErrSessionNotFound)
}
