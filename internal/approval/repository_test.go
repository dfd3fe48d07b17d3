package approval

import (
	"alpha-qms/internal/document"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	assert.NoError(t, err)

	// a single connection keeps the in-memory database alive for the test
	sqlDB, err := db.DB()
	assert.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	assert.NoError(t, db.AutoMigrate(
		&document.Document{},
		&document.Version{},
		&document.ApprovalFlow{},
	))
	return db
}

func seedReview(t *testing.T, db *gorm.DB, approvers int) (*document.Document, []document.ApprovalFlow) {
	t.Helper()

	doc := &document.Document{
		Code:           "POL-2026-TEST0001",
		Title:          "Quality Policy",
		Type:           "POL",
		Status:         document.StatusInReview,
		CurrentVersion: "1.0",
		AuthorID:       1,
		Active:         true,
	}
	assert.NoError(t, db.Create(doc).Error)

	flows := make([]document.ApprovalFlow, 0, approvers)
	for i := 0; i < approvers; i++ {
		flow := document.ApprovalFlow{
			DocumentID: doc.ID,
			ApproverID: uint64(10 + i),
			Stage:      document.StageApproval,
			Status:     document.ApprovalPending,
			OrderIndex: i + 1,
			AssignedAt: time.Now().UTC(),
		}
		assert.NoError(t, db.Create(&flow).Error)
		flows = append(flows, flow)
	}
	return doc, flows
}

func reloadFlow(t *testing.T, db *gorm.DB, id uint64) document.ApprovalFlow {
	t.Helper()
	var flow document.ApprovalFlow
	assert.NoError(t, db.First(&flow, id).Error)
	return flow
}

func TestApprove_JoinBarrierFiresOnLastApproval(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	doc, flows := seedReview(t, db, 3)

	// approvers resolve out of order; the document holds until the last one
	got, err := repo.Approve(ctx, flows[1].ID, doc.ID, "ok")
	assert.NoError(t, err)
	assert.Equal(t, document.StatusInReview, got.Status)

	got, err = repo.Approve(ctx, flows[2].ID, doc.ID, "")
	assert.NoError(t, err)
	assert.Equal(t, document.StatusInReview, got.Status)
	assert.Nil(t, got.LastRevisionDate)

	got, err = repo.Approve(ctx, flows[0].ID, doc.ID, "final sign-off")
	assert.NoError(t, err)
	assert.Equal(t, document.StatusApproved, got.Status)
	assert.NotNil(t, got.LastRevisionDate)

	for _, f := range flows {
		resolved := reloadFlow(t, db, f.ID)
		assert.Equal(t, document.ApprovalApproved, resolved.Status)
		assert.NotNil(t, resolved.CompletedAt)
	}
}

func TestApprove_SecondResolveOfSameFlowLoses(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	doc, flows := seedReview(t, db, 2)

	_, err := repo.Approve(ctx, flows[0].ID, doc.ID, "ok")
	assert.NoError(t, err)

	_, err = repo.Approve(ctx, flows[0].ID, doc.ID, "again")
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	// the losing attempt changed nothing
	var reloaded document.Document
	assert.NoError(t, db.First(&reloaded, doc.ID).Error)
	assert.Equal(t, document.StatusInReview, reloaded.Status)
	assert.Equal(t, "ok", reloadFlow(t, db, flows[0].ID).Comments)
}

func TestReject_CancelsPendingSiblingsAndDemotes(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	doc, flows := seedReview(t, db, 3)

	_, err := repo.Approve(ctx, flows[0].ID, doc.ID, "ok")
	assert.NoError(t, err)

	got, err := repo.Reject(ctx, flows[1].ID, doc.ID, "section 3 outdated")
	assert.NoError(t, err)
	assert.Equal(t, document.StatusDraft, got.Status)

	assert.Equal(t, document.ApprovalApproved, reloadFlow(t, db, flows[0].ID).Status)

	rejected := reloadFlow(t, db, flows[1].ID)
	assert.Equal(t, document.ApprovalRejected, rejected.Status)
	assert.Equal(t, "section 3 outdated", rejected.Comments)
	assert.NotNil(t, rejected.CompletedAt)

	assert.Equal(t, document.ApprovalCancelled, reloadFlow(t, db, flows[2].ID).Status)
}

func TestApprove_CancelledFlowLoses(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	doc, flows := seedReview(t, db, 2)

	_, err := repo.Reject(ctx, flows[0].ID, doc.ID, "not acceptable")
	assert.NoError(t, err)

	// the sibling was cancelled by the cascade; a late approval must lose
	_, err = repo.Approve(ctx, flows[1].ID, doc.ID, "too late")
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	var reloaded document.Document
	assert.NoError(t, db.First(&reloaded, doc.ID).Error)
	assert.Equal(t, document.StatusDraft, reloaded.Status)
}
