package progress

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/pmis_end/models"
)

func TestApplyProgressUpdateAppendsEntry(t *testing.T) {
	p := newTestProject(t, 100000, 0)

	entry, err := ApplyProgressUpdate(p, ProgressUpdate{
		ProposedProgress:    num(30),
		Remarks:             "  foundation complete ",
		SupportingDocuments: []models.FileRef{testDoc("site.jpg")},
		Actor:               testActor,
	}, testNow)
	require.NoError(t, err)

	assert.Equal(t, 0.0, entry.PreviousProgress)
	assert.Equal(t, 30.0, entry.NewProgress)
	assert.Equal(t, 30.0, entry.ProgressDifference)
	assert.Equal(t, "foundation complete", entry.Remarks)
	assert.Equal(t, testActor, entry.UpdatedBy)
	assert.Equal(t, testNow, entry.CreatedAt)
	assert.NotEmpty(t, entry.ID)

	assert.Equal(t, 30.0, p.PhysicalProgress)
	assert.Equal(t, models.ProjectStatusInProgress, p.Status)
	require.NotNil(t, p.LastProgressUpdate)
	assert.Equal(t, testNow, *p.LastProgressUpdate)
	require.Len(t, p.ProgressUpdates, 1)
	assert.Equal(t, *entry, p.ProgressUpdates[0])
}

func TestApplyProgressUpdateBackwardBoundary(t *testing.T) {
	cases := []struct {
		name     string
		proposed float64
		reason   Reason
	}{
		{"exactly five back", 45, ""},
		{"just over five back", 44.9999, ReasonBackwardProgressNotAllowed},
		{"six back", 44, ReasonBackwardProgressNotAllowed},
		{"to zero", 0, ReasonBackwardProgressNotAllowed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestProject(t, 100000, 0)
			mustProgress(t, p, 50)

			_, err := ApplyProgressUpdate(p, ProgressUpdate{ProposedProgress: num(tc.proposed), Actor: testActor}, at(10))
			if tc.reason == "" {
				require.NoError(t, err)
				assert.Equal(t, tc.proposed, p.PhysicalProgress)
				assert.Equal(t, -5.0, p.ProgressUpdates[1].ProgressDifference)
				return
			}
			assert.Equal(t, tc.reason, ReasonOf(err))
			assert.Equal(t, 50.0, p.PhysicalProgress)
		})
	}
}

func TestApplyProgressUpdateJumpBoundary(t *testing.T) {
	p := newTestProject(t, 100000, 0)
	_, err := ApplyProgressUpdate(p, ProgressUpdate{ProposedProgress: num(50.0001), Actor: testActor}, testNow)
	assert.Equal(t, ReasonUnrealisticJump, ReasonOf(err))

	_, err = ApplyProgressUpdate(p, ProgressUpdate{ProposedProgress: num(50), Actor: testActor}, testNow)
	require.NoError(t, err)

	_, err = ApplyProgressUpdate(p, ProgressUpdate{ProposedProgress: num(100), Actor: testActor, SupportingDocuments: []models.FileRef{testDoc("c.pdf")}}, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusCompleted, p.Status)
}

func TestApplyProgressUpdateCompletionRequiresDocuments(t *testing.T) {
	cases := []ProgressUpdate{
		{ProposedProgress: num(100), Actor: testActor},
		{ProposedProgress: num(100), Actor: testActor, Remarks: "all done"},
		{ProposedProgress: num(100), Actor: testActor, SupportingDocuments: []models.FileRef{}},
	}

	for _, u := range cases {
		p := newTestProject(t, 100000, 0)
		mustProgress(t, p, 50)
		mustProgress(t, p, 90)

		_, err := ApplyProgressUpdate(p, u, at(5))
		assert.Equal(t, ReasonCompletionRequiresDocuments, ReasonOf(err))
		assert.Equal(t, 90.0, p.PhysicalProgress)
	}
}

func TestApplyProgressUpdateInvalidValues(t *testing.T) {
	for name, v := range map[string]*float64{
		"missing":  nil,
		"nan":      num(math.NaN()),
		"inf":      num(math.Inf(1)),
		"negative": num(-1),
		"over 100": num(100.5),
	} {
		t.Run(name, func(t *testing.T) {
			p := newTestProject(t, 100000, 0)
			_, err := ApplyProgressUpdate(p, ProgressUpdate{ProposedProgress: v, Actor: testActor}, testNow)
			assert.Equal(t, ReasonInvalidValue, ReasonOf(err))
		})
	}
}

func TestApplyProgressUpdateDisabledWinsOverOtherFailures(t *testing.T) {
	p := newTestProject(t, 100000, 0)
	require.NoError(t, SetUpdatesEnabled(p, models.ProgressKindPhysical, false, testNow))

	_, err := ApplyProgressUpdate(p, ProgressUpdate{ProposedProgress: num(math.NaN()), Actor: testActor}, testNow)
	assert.Equal(t, ReasonUpdatesDisabled, ReasonOf(err))

	require.NoError(t, SetUpdatesEnabled(p, models.ProgressKindPhysical, true, testNow))
	mustProgress(t, p, 10)
}

func TestApplyProgressUpdateRejectionLeavesProjectUntouched(t *testing.T) {
	p := newTestProject(t, 200000, 0)
	mustProgress(t, p, 40, testDoc("a.jpg"))
	mustBill(t, p, 50000, "B-1")
	before := cloneProject(p)

	failing := []ProgressUpdate{
		{ProposedProgress: num(95), Actor: testActor},
		{ProposedProgress: num(30), Actor: testActor},
		{ProposedProgress: num(-3), Actor: testActor},
	}
	for _, u := range failing {
		_, err := ApplyProgressUpdate(p, u, at(30))
		require.Error(t, err)
		assert.True(t, IsRejection(err))
		assert.Equal(t, before, *p)
	}
}

func TestProgressLogIsConsistentAcrossSequence(t *testing.T) {
	p := newTestProject(t, 100000, 0)
	steps := []float64{10, 35, 32.5, 60, 58, 95, 100}

	for i, v := range steps {
		before := p.PhysicalProgress
		var docs []models.FileRef
		if v == 100 {
			docs = append(docs, testDoc("completion.pdf"))
		}
		entry := mustProgress(t, p, v, docs...)
		assert.Equal(t, before, entry.PreviousProgress, "step %d", i)
		assert.Equal(t, entry.NewProgress-entry.PreviousProgress, entry.ProgressDifference, "step %d", i)
		require.NoError(t, CheckInvariants(p))
	}
	assert.Len(t, p.ProgressUpdates, len(steps))
}
