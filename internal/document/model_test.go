package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusCanTransition(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusDraft, StatusInReview, true},
		{StatusDraft, StatusObsolete, true},
		{StatusDraft, StatusApproved, false},
		{StatusInReview, StatusApproved, true},
		{StatusInReview, StatusDraft, true},
		{StatusInReview, StatusObsolete, true},
		{StatusApproved, StatusDraft, true},
		{StatusApproved, StatusObsolete, true},
		{StatusApproved, StatusInReview, false},
		{StatusObsolete, StatusDraft, false},
		{StatusObsolete, StatusInReview, false},
		{StatusObsolete, StatusApproved, false},
	}

	for _, c := range cases {
		assert.Equal(t, c.allowed, c.from.CanTransition(c.to),
			"%s -> %s", c.from, c.to)
	}
}

func TestStatusEditable(t *testing.T) {
	assert.True(t, StatusDraft.Editable())
	assert.True(t, StatusInReview.Editable())
	assert.False(t, StatusApproved.Editable())
	assert.False(t, StatusObsolete.Editable())
}

func TestNextVersionLabel(t *testing.T) {
	cases := []struct {
		current string
		next    string
	}{
		{"1.0", "1.1"},
		{"1.3", "1.4"},
		{"1.9", "2.0"},
		{"2.9", "3.0"},
		{"10.1", "10.2"},
	}

	for _, c := range cases {
		next, err := NextVersionLabel(c.current)
		assert.NoError(t, err)
		assert.Equal(t, c.next, next)
	}
}

func TestNextVersionLabel_Malformed(t *testing.T) {
	_, err := NextVersionLabel("abc")
	assert.Error(t, err)

	_, err = NextVersionLabel("")
	assert.Error(t, err)
}

func TestDocumentExpiry(t *testing.T) {
	noDate := &Document{}
	assert.False(t, noDate.IsExpired())
	assert.Nil(t, noDate.DaysToExpire())

	past := time.Now().UTC().Add(-48 * time.Hour)
	expired := &Document{ValidUntil: &past}
	assert.True(t, expired.IsExpired())
	assert.Less(t, *expired.DaysToExpire(), 0)

	// less than a full day overdue still reads as negative
	justPast := time.Now().UTC().Add(-12 * time.Hour)
	barelyExpired := &Document{ValidUntil: &justPast}
	assert.True(t, barelyExpired.IsExpired())
	assert.Equal(t, -1, *barelyExpired.DaysToExpire())

	future := time.Now().UTC().Add(10 * 24 * time.Hour)
	valid := &Document{ValidUntil: &future}
	assert.False(t, valid.IsExpired())
	assert.Equal(t, 9, *valid.DaysToExpire())
}

func TestApprovalFlowIsOverdue(t *testing.T) {
	past := time.Now().UTC().Add(-time.Hour)

	pending := &ApprovalFlow{Status: ApprovalPending, Deadline: &past}
	assert.True(t, pending.IsOverdue())

	resolved := &ApprovalFlow{Status: ApprovalApproved, Deadline: &past}
	assert.False(t, resolved.IsOverdue())

	noDeadline := &ApprovalFlow{Status: ApprovalPending}
	assert.False(t, noDeadline.IsOverdue())
}
