package progress

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/pmis_end/models"
)

func TestInitializeDerivesLedger(t *testing.T) {
	p := &models.Project{ProjectID: "P-1", WorkValue: 200000, BillSubmittedAmount: 30000, PhysicalProgress: 70}
	require.NoError(t, Initialize(p, testNow))

	assert.Equal(t, 0.0, p.PhysicalProgress)
	assert.Equal(t, 15.0, p.FinancialProgress)
	assert.Equal(t, models.ProjectStatusNotStarted, p.Status)
	assert.True(t, p.ProgressUpdatesEnabled)
	assert.True(t, p.FinancialProgressUpdatesEnabled)
	assert.NotNil(t, p.ProgressUpdates)
	assert.NotNil(t, p.FinancialProgressUpdates)
	assert.NoError(t, CheckInvariants(p))
}

func TestInitializeRejectsBadAmounts(t *testing.T) {
	err := Initialize(&models.Project{WorkValue: 100, BillSubmittedAmount: 101}, testNow)
	assert.Equal(t, ReasonExceedsWorkValue, ReasonOf(err))

	err = Initialize(&models.Project{WorkValue: -1}, testNow)
	assert.Equal(t, ReasonInvalidValue, ReasonOf(err))
}

func TestSetUpdatesEnabledUnknownKind(t *testing.T) {
	p := newTestProject(t, 100, 0)
	err := SetUpdatesEnabled(p, models.ProgressKind("bogus"), false, testNow)
	assert.Equal(t, ReasonInvalidValue, ReasonOf(err))
	assert.True(t, p.ProgressUpdatesEnabled)
}

func TestCheckInvariantsDetectsDrift(t *testing.T) {
	p := newTestProject(t, 100000, 20000)
	p.FinancialProgress = 50

	err := CheckInvariants(p)
	var violation *InvariantViolation
	require.True(t, errors.As(err, &violation))
	assert.Len(t, violation.Violations, 1)

	p = newTestProject(t, 100000, 0)
	mustProgress(t, p, 10)
	p.ProgressUpdates[0].ProgressDifference = 3
	assert.Error(t, CheckInvariants(p))
}

func TestReasonOf(t *testing.T) {
	assert.Equal(t, Reason(""), ReasonOf(nil))
	assert.Equal(t, ReasonInternalFailure, ReasonOf(errors.New("boom")))

	wrapped := fmt.Errorf("commit: %w", NewRejection(ReasonConcurrentUpdate, "retry"))
	assert.Equal(t, ReasonConcurrentUpdate, ReasonOf(wrapped))
	assert.True(t, IsRejection(wrapped))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, models.ProjectStatusNotStarted, StatusFor(0))
	assert.Equal(t, models.ProjectStatusInProgress, StatusFor(0.5))
	assert.Equal(t, models.ProjectStatusCompleted, StatusFor(100))
}
