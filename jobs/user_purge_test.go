package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type stubPurger struct {
	purged int64
	err    error
	calls  int
}

func (s *stubPurger) PurgeExpired(context.Context) (int64, error) {
	s.calls++
	return s.purged, s.err
}

func TestUserPurgeJobHandle(t *testing.T) {
	purger := &stubPurger{purged: 3}
	job := NewUserPurgeJob(purger, nil, nil)

	task, err := NewUserPurgeTask()
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, purger.calls)
}

func TestUserPurgeJobPropagatesError(t *testing.T) {
	purger := &stubPurger{err: errors.New("db down")}
	job := NewUserPurgeJob(purger, nil, nil)

	task, err := NewUserPurgeTask()
	require.NoError(t, err)

	require.Error(t, job.Handle(context.Background(), task))
}

type stubTrimmer struct {
	retentions []time.Duration
}

func (s *stubTrimmer) Trim(_ context.Context, retention time.Duration) (int64, error) {
	s.retentions = append(s.retentions, retention)
	return 5, nil
}

func TestAuditTrimJobDefaultsRetention(t *testing.T) {
	trimmer := &stubTrimmer{}
	job := NewAuditTrimJob(trimmer, nil, nil, 180)

	task := asynq.NewTask(TaskAuditTrim, []byte(`{}`))
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, trimmer.retentions, 1)
	require.Equal(t, 180*24*time.Hour, trimmer.retentions[0])
}

func TestAuditTrimJobHonoursPayloadRetention(t *testing.T) {
	trimmer := &stubTrimmer{}
	job := NewAuditTrimJob(trimmer, nil, nil, 180)

	task := asynq.NewTask(TaskAuditTrim, []byte(`{"retention_days":30}`))
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, trimmer.retentions, 1)
	require.Equal(t, 30*24*time.Hour, trimmer.retentions[0])
}
