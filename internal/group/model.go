package group

import (
	"alpha-qms/internal/document"
	"alpha-qms/internal/user"
	"time"
)

// Group is a named set of users tied to document types. When a document
// of a linked type is created, members of notifying groups get mail.
type Group struct {
	ID                 uint64          `json:"id"`
	Code               string          `json:"code" gorm:"uniqueIndex"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	ResponsibleID      *uint64         `json:"responsible_id"`
	NotifyNewDocuments bool            `json:"notify_new_documents" gorm:"default:true"`
	Active             bool            `json:"active" gorm:"default:true"`
	CreatedByID        uint64          `json:"created_by_id"`
	CreatedAt          time.Time       `json:"created_at"`
	Members            []user.User     `json:"members,omitempty" gorm:"many2many:group_members"`
	DocumentTypes      []document.Type `json:"document_types,omitempty" gorm:"many2many:group_document_types"`
}
