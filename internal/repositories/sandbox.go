package repositories

import (
	"context"

	"github.com/rohittcodes/flashio-sub001/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SandboxRepository persists sandbox instance rows.
type SandboxRepository struct {
	db *gorm.DB
}

func NewSandboxRepository(db *gorm.DB) *SandboxRepository {
	return &SandboxRepository{db: db}
}

func (r *SandboxRepository) Upsert(ctx context.Context, instance *models.SandboxInstance) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(instance).Error
}

func (r *SandboxRepository) Get(ctx context.Context, id string) (*models.SandboxInstance, error) {
	var instance models.SandboxInstance
	if err := r.db.WithContext(ctx).First(&instance, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &instance, nil
}

func (r *SandboxRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.SandboxInstance{}, "id = ?", id).Error
}

func (r *SandboxRepository) UpdatePreview(ctx context.Context, id, previewURL string, port int) error {
	return r.db.WithContext(ctx).
		Model(&models.SandboxInstance{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"preview_url": previewURL, "port": port}).Error
}

// SessionRepository persists terminal session rows.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Upsert(ctx context.Context, session *models.TerminalSession) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(session).Error
}

func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, status models.SessionStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.TerminalSession{}).
		Where("id = ?", id).
		Update("status", status).Error
}
