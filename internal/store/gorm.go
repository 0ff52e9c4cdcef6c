package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"whiteboard-backend/internal/model"
)

// GormDocumentStore is the durable tier, one jsonb row per project. The
// row's uuid is assigned on first save and reused afterwards, so repeated
// saves update the same record instead of accumulating new ones.
type GormDocumentStore struct {
	db *gorm.DB
}

func NewGormDocumentStore(db *gorm.DB) *GormDocumentStore {
	return &GormDocumentStore{db: db}
}

func (g *GormDocumentStore) Find(ctx context.Context, projectID int64) (*model.WhiteboardData, error) {
	var rec model.WhiteboardRecord
	err := g.db.WithContext(ctx).Where("project_id = ?", projectID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var data model.WhiteboardData
	if err := json.Unmarshal([]byte(rec.Data), &data); err != nil {
		return nil, fmt.Errorf("corrupt whiteboard record %s: %w", rec.ID, err)
	}
	return &data, nil
}

func (g *GormDocumentStore) Upsert(ctx context.Context, projectID int64, data model.WhiteboardData) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}

	var rec model.WhiteboardRecord
	err = g.db.WithContext(ctx).Where("project_id = ?", projectID).First(&rec).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec = model.WhiteboardRecord{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			Data:      string(body),
		}
		return g.db.WithContext(ctx).Create(&rec).Error
	case err != nil:
		return err
	}

	return g.db.WithContext(ctx).Model(&rec).Update("data", string(body)).Error
}
