package db

import (
	"alpha-qms/internal/audit"
	"alpha-qms/internal/auditlog"
	"alpha-qms/internal/document"
	"alpha-qms/internal/equipment"
	"alpha-qms/internal/group"
	"alpha-qms/internal/nonconformity"
	"alpha-qms/internal/notification"
	"alpha-qms/internal/signature"
	"alpha-qms/internal/user"
	"context"
	"log"
)

// Migrate runs database migrations
func Migrate() {
	err := AppDb.AutoMigrate(
		&user.User{},
		&document.Type{},
		&document.Document{},
		&document.Version{},
		&document.ApprovalFlow{},
		&document.Reading{},
		&group.Group{},
		&nonconformity.NonConformity{},
		&nonconformity.CorrectiveAction{},
		&audit.Audit{},
		&audit.ChecklistItem{},
		&audit.Finding{},
		&equipment.Type{},
		&equipment.Equipment{},
		&equipment.ServiceRecord{},
		&signature.DocumentSignature{},
		&notification.EmailNotification{},
		&auditlog.Entry{},
	)

	if err != nil {
		log.Fatal(err)
	}

	log.Println("Database schema migrated successfully")
}

// SeedData seeds the initial administrator account (for development only)
func SeedData() {
	ctx := context.Background()
	userRepo := user.NewRepository(AppDb)

	admin := &user.User{
		Username: "admin",
		FullName: "System Administrator",
		Email:    "admin@example.com",
		Password: "admin12345",
		Role:     user.RoleAdministrator,
	}

	_, err := userRepo.FindByEmail(ctx, admin.Email)
	if err != nil {
		userService := user.NewService(userRepo)
		// the seed actor is the administrator role itself
		if err := userService.Register(ctx, user.RoleAdministrator, admin); err != nil {
			log.Printf("Error creating admin user: %v", err)
		} else {
			log.Printf("Created admin user: %s", admin.Email)
		}
	} else {
		log.Printf("Admin user already exists: %s", admin.Email)
	}
}
