package nonconformity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysToDeadline(t *testing.T) {
	noDeadline := &NonConformity{Status: StatusOpen}
	assert.Nil(t, noDeadline.DaysToDeadline())

	deadline := time.Now().UTC().Add(5*24*time.Hour + time.Hour)
	open := &NonConformity{Status: StatusOpen, Deadline: &deadline}
	assert.Equal(t, 5, *open.DaysToDeadline())

	// half a day overdue must already read negative
	justPast := time.Now().UTC().Add(-12 * time.Hour)
	overdue := &NonConformity{Status: StatusInTreatment, Deadline: &justPast}
	assert.Equal(t, -1, *overdue.DaysToDeadline())

	closed := &NonConformity{Status: StatusClosed, Deadline: &justPast}
	assert.Nil(t, closed.DaysToDeadline())
}

func TestIsOverdue(t *testing.T) {
	past := time.Now().UTC().Add(-time.Hour)

	open := &NonConformity{Status: StatusOpen, Deadline: &past}
	assert.True(t, open.IsOverdue())

	closed := &NonConformity{Status: StatusClosed, Deadline: &past}
	assert.False(t, closed.IsOverdue())

	action := &CorrectiveAction{Status: ActionCompleted, Deadline: &past}
	assert.False(t, action.IsOverdue())

	pending := &CorrectiveAction{Status: ActionPending, Deadline: &past}
	assert.True(t, pending.IsOverdue())
}
