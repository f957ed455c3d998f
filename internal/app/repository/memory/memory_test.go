package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "dubstudio/internal/app/errors"
	"dubstudio/internal/app/model"
)

func TestStore_UpdateJobIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	job := &model.Job{ID: "j1", OwnerID: "u1", Kind: model.KindAvatar, Status: model.StatusQueued,
		Artifacts: map[string]string{}, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateJob(ctx, job))
	assert.Error(t, s.CreateJob(ctx, job))

	// caller mutations do not leak into the store
	job.Artifacts["audio"] = "leak"
	got, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Empty(t, got.Artifacts)

	_, err = s.UpdateJob(ctx, "j1", func(j *model.Job) error {
		j.Status = model.StatusFailed
		return apperrors.ErrJobTerminal
	})
	assert.ErrorIs(t, err, apperrors.ErrJobTerminal)

	got, err = s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, got.Status)

	require.NoError(t, s.DeleteJob(ctx, "j1"))
	assert.ErrorIs(t, s.DeleteJob(ctx, "j1"), apperrors.ErrJobNotFound)
}

func TestStore_ListJobs(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Now()

	for i, st := range []model.JobStatus{model.StatusLipSyncPending, model.StatusCompleted, model.StatusAudioExtractionPending} {
		require.NoError(t, s.CreateJob(ctx, &model.Job{
			ID:        string(st),
			OwnerID:   "u1",
			Kind:      model.KindTranslation,
			Status:    st,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	pending, err := s.ListJobs(ctx, model.JobFilter{Statuses: model.PendingStatuses})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "audio_extraction_pending", pending[0].ID)

	stale, err := s.ListJobs(ctx, model.JobFilter{Statuses: model.PendingStatuses, UpdatedBefore: base.Add(time.Minute)})
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "lipsync_pending", stale[0].ID)

	limited, err := s.ListJobs(ctx, model.JobFilter{OwnerID: "u1", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_Messages(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, s.CreateSession(ctx, &model.ChatSession{ID: "s1", OwnerID: "u1", Status: model.SessionActive, CreatedAt: base}))
	require.NoError(t, s.CreateSession(ctx, &model.ChatSession{ID: "s0", OwnerID: "u1", Status: model.SessionEnded, CreatedAt: base.Add(time.Hour)}))

	active, err := s.ActiveSession(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "s1", active.ID)

	// appended out of order
	for _, i := range []int{2, 0, 1} {
		require.NoError(t, s.AppendMessage(ctx, &model.ChatMessage{
			ID: string(rune('a' + i)), SessionID: "s1", Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}

	latest, err := s.LatestMessages(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, latest, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{latest[0].ID, latest[1].ID, latest[2].ID})

	before, err := s.MessagesBefore(ctx, "s1", base.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, before, 1)
	assert.Equal(t, "a", before[0].ID)

	require.NoError(t, s.TouchSession(ctx, "s1", base))
	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.NotNil(t, got.LastInteraction)
}
