package auth

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrNotCollaborator = errors.New("no access to this project")

// Authorizer answers whether a user may join a project's whiteboard. The
// connection gateway consumes this as a single allow/deny call.
type Authorizer interface {
	Authorize(ctx context.Context, userID, projectID int64) error
}

// GormAuthorizer checks project ownership and collaborator rows. Project
// CRUD belongs to another service; this only reads its tables.
type GormAuthorizer struct {
	db *gorm.DB
}

func NewGormAuthorizer(db *gorm.DB) *GormAuthorizer {
	return &GormAuthorizer{db: db}
}

func (a *GormAuthorizer) Authorize(ctx context.Context, userID, projectID int64) error {
	var ownerID int64
	if err := a.db.WithContext(ctx).
		Table("projects").
		Where("id = ?", projectID).
		Select("owner_id").
		Scan(&ownerID).Error; err != nil {
		return err
	}
	if ownerID == userID {
		return nil
	}

	var count int64
	if err := a.db.WithContext(ctx).
		Table("project_collaborators").
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotCollaborator
	}
	return nil
}
