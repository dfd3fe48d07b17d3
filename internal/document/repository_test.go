package document

import (
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
		&Document{},
		&Version{},
		&ApprovalFlow{},
		&Reading{},
	))
	return db
}

func seedDraft(t *testing.T, db *gorm.DB, repo Repository) *Document {
	t.Helper()

	doc := &Document{
		Code:           "PRO-2026-TEST0001",
		Title:          "Calibration Procedure",
		Type:           "PRO",
		Status:         StatusDraft,
		CurrentVersion: "1.0",
		AuthorID:       1,
		Active:         true,
	}
	version := &Version{
		Label:     "1.0",
		Content:   "step one",
		Changelog: "Initial version",
		CreatedBy: 1,
	}
	assert.NoError(t, repo.Create(context.Background(), doc, version))
	return doc
}

func TestCreate_PersistsInitialVersion(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)

	doc := seedDraft(t, db, repo)

	var version Version
	assert.NoError(t, db.Where("document_id = ?", doc.ID).First(&version).Error)
	assert.Equal(t, "1.0", version.Label)
	assert.Equal(t, "step one", version.Content)
}

func TestSubmitForApproval_DoubleSubmitLoses(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	doc := seedDraft(t, db, repo)

	flows := []ApprovalFlow{{
		ApproverID: 10,
		Stage:      StageApproval,
		Status:     ApprovalPending,
		OrderIndex: 1,
		AssignedAt: time.Now().UTC(),
	}}

	created, err := repo.SubmitForApproval(ctx, doc.ID, flows)
	assert.NoError(t, err)
	assert.Len(t, created, 1)
	assert.Equal(t, doc.ID, created[0].DocumentID)

	var reloaded Document
	assert.NoError(t, db.First(&reloaded, doc.ID).Error)
	assert.Equal(t, StatusInReview, reloaded.Status)

	// the document already left draft; the second submission must lose
	// and leave no extra flow rows behind
	_, err = repo.SubmitForApproval(ctx, doc.ID, []ApprovalFlow{{
		ApproverID: 11,
		Stage:      StageApproval,
		Status:     ApprovalPending,
		OrderIndex: 1,
		AssignedAt: time.Now().UTC(),
	}})
	assert.ErrorIs(t, err, ErrNotSubmittable)

	var count int64
	assert.NoError(t, db.Model(&ApprovalFlow{}).
		Where("document_id = ?", doc.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecordReading_OncePerVersion(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	doc := seedDraft(t, db, repo)

	created, err := repo.RecordReading(ctx, &Reading{
		DocumentID: doc.ID,
		UserID:     4,
		Version:    "1.0",
		ReadAt:     time.Now().UTC(),
	})
	assert.NoError(t, err)
	assert.True(t, created)

	created, err = repo.RecordReading(ctx, &Reading{
		DocumentID: doc.ID,
		UserID:     4,
		Version:    "1.0",
		ReadAt:     time.Now().UTC(),
	})
	assert.NoError(t, err)
	assert.False(t, created)

	// a new version label is a fresh confirmation
	created, err = repo.RecordReading(ctx, &Reading{
		DocumentID: doc.ID,
		UserID:     4,
		Version:    "1.1",
		ReadAt:     time.Now().UTC(),
	})
	assert.NoError(t, err)
	assert.True(t, created)
}
