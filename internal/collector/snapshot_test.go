package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeci/runner-autoscaler/pkg/models"
)

type fakeJobQueue struct {
	queued    int
	queuedErr error
	runners   []models.Runner
	listErr   error
}

func (f *fakeJobQueue) CountQueuedJobs(ctx context.Context, label string) (int, error) {
	return f.queued, f.queuedErr
}

func (f *fakeJobQueue) ListRunners(ctx context.Context) ([]models.Runner, error) {
	return f.runners, f.listErr
}

type fakeFleet struct {
	count int
	err   error
}

func (f *fakeFleet) GetInstanceCount(ctx context.Context) (int, error) {
	return f.count, f.err
}

func TestSnapshotCollector_Collect(t *testing.T) {
	jobs := &fakeJobQueue{
		queued: 4,
		runners: []models.Runner{
			{ID: 1, Name: "ci-runner-a", Status: models.RunnerStatusOnline, Busy: true},
			{ID: 2, Name: "ci-runner-b", Status: models.RunnerStatusOnline, Busy: false},
			{ID: 3, Name: "ci-runner-c", Status: models.RunnerStatusOffline, Busy: false},
			{ID: 4, Name: "unrelated", Status: models.RunnerStatusOnline, Busy: false},
		},
	}
	fleet := &fakeFleet{count: 2}

	c := NewSnapshotCollector(jobs, fleet, "self-hosted", "ci-runner")
	snap, err := c.Collect(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, snap.QueuedJobs)
	assert.Equal(t, 2, snap.OnlineRunners)
	assert.Equal(t, 1, snap.IdleRunners)
	assert.Equal(t, 2, snap.CurrentInstances)
	assert.False(t, snap.Timestamp.IsZero())
}

func TestSnapshotCollector_IdleNeverExceedsOnline(t *testing.T) {
	jobs := &fakeJobQueue{
		runners: []models.Runner{
			// Offline runner reported as not busy must not count as idle.
			{ID: 1, Name: "ci-runner-a", Status: models.RunnerStatusOffline, Busy: false},
			{ID: 2, Name: "ci-runner-b", Status: models.RunnerStatusOnline, Busy: false},
		},
	}

	c := NewSnapshotCollector(jobs, &fakeFleet{count: 1}, "self-hosted", "ci-runner")
	snap, err := c.Collect(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, snap.OnlineRunners)
	assert.LessOrEqual(t, snap.IdleRunners, snap.OnlineRunners)
}

func TestSnapshotCollector_EmptyPrefixMatchesAll(t *testing.T) {
	jobs := &fakeJobQueue{
		runners: []models.Runner{
			{ID: 1, Name: "anything", Status: models.RunnerStatusOnline, Busy: false},
		},
	}

	c := NewSnapshotCollector(jobs, &fakeFleet{count: 1}, "self-hosted", "")
	snap, err := c.Collect(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, snap.OnlineRunners)
}

func TestSnapshotCollector_ProviderErrors(t *testing.T) {
	tests := []struct {
		name  string
		jobs  *fakeJobQueue
		fleet *fakeFleet
	}{
		{
			name:  "queued jobs error",
			jobs:  &fakeJobQueue{queuedErr: errors.New("api down")},
			fleet: &fakeFleet{count: 1},
		},
		{
			name:  "list runners error",
			jobs:  &fakeJobQueue{listErr: errors.New("api down")},
			fleet: &fakeFleet{count: 1},
		},
		{
			name:  "instance count error",
			jobs:  &fakeJobQueue{},
			fleet: &fakeFleet{err: errors.New("api down")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewSnapshotCollector(tt.jobs, tt.fleet, "self-hosted", "ci-runner")
			_, err := c.Collect(context.Background())
			assert.ErrorIs(t, err, ErrCollectionFailed)
		})
	}
}

func TestSnapshotCollector_NegativeInstanceCount(t *testing.T) {
	c := NewSnapshotCollector(&fakeJobQueue{}, &fakeFleet{count: -1}, "self-hosted", "ci-runner")
	_, err := c.Collect(context.Background())
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}
