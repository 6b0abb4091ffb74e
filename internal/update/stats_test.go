package update

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caddvault/vault-updater/internal/domain"
)

func TestRunStatisticsAccumulates(t *testing.T) {
	s := NewRunStatistics(nil)
	s.SetTotal(5)

	s.AddProcessed()
	s.AddProcessed()
	s.AddProcessed()
	s.AddUpdated()
	s.AddUpdated()
	s.AddSkipped()
	s.AddFailed()

	s.AddRepositoryUpdate()
	s.AddPublicationUpdate()
	s.AddGitHubDataUpdate()
	s.AddGitHubDataUpdate()
	s.AddCitationUpdate()

	s.RecordError("pkg-2", CategoryRepository, "boom")
	s.RecordChange(Change{RecordID: "pkg-1", Field: domain.FieldStars, Old: "1", New: "2"})

	sum := s.Finish()

	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, 5, sum.Total)
	assert.Equal(t, 3, sum.Processed)
	assert.Equal(t, 2, sum.Updated)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.RepositoryUpdates)
	assert.Equal(t, 1, sum.PublicationUpdates)
	assert.Equal(t, 2, sum.GitHubDataUpdates)
	assert.Equal(t, 1, sum.CitationUpdates)

	require.Len(t, sum.Errors, 1)
	assert.Equal(t, "pkg-2", sum.Errors[0].RecordID)
	assert.Equal(t, CategoryRepository, sum.Errors[0].Category)
	assert.False(t, sum.Errors[0].Timestamp.IsZero())

	require.Len(t, sum.Changes, 1)
	assert.Equal(t, "pkg-1", sum.Changes[0].RecordID)

	assert.False(t, sum.Finished.Before(sum.Started))
}

func TestRunStatisticsConcurrentReporting(t *testing.T) {
	s := NewRunStatistics(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddProcessed()
			s.AddUpdated()
			s.RecordError("pkg", CategoryProcessing, "x")
		}()
	}
	wg.Wait()

	sum := s.Finish()
	assert.Equal(t, 50, sum.Processed)
	assert.Equal(t, 50, sum.Updated)
	assert.Len(t, sum.Errors, 50)
}

func TestRunStatisticsFinishStampsOnce(t *testing.T) {
	s := NewRunStatistics(nil)

	first := s.Finish()
	second := s.Finish()

	assert.Equal(t, first.Finished, second.Finished)
	assert.Equal(t, first.RunID, second.RunID)
}

func TestSummarySuccessRate(t *testing.T) {
	assert.Zero(t, Summary{}.SuccessRate())
	assert.InDelta(t, 75.0, Summary{Processed: 4, Failed: 1}.SuccessRate(), 0.001)
	assert.InDelta(t, 100.0, Summary{Processed: 4}.SuccessRate(), 0.001)
}
