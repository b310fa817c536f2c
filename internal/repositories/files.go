package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/rohittcodes/flashio-sub001/internal/models"
	"gorm.io/gorm"
)

// FileRepository is the GORM-backed metadata store for file rows.
type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, file *models.File) error {
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *FileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	var file models.File
	if err := r.db.WithContext(ctx).First(&file, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *FileRepository) GetByPath(ctx context.Context, projectID uuid.UUID, path string) (*models.File, error) {
	var file models.File
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND path = ?", projectID, path).
		First(&file).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *FileRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.File, error) {
	var files []models.File
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("path asc").
		Find(&files).Error
	return files, err
}

func (r *FileRepository) Save(ctx context.Context, file *models.File) error {
	return r.db.WithContext(ctx).Save(file).Error
}

func (r *FileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.File{}, "id = ?", id).Error
}

// BlobStore adapts the package-level R2 client functions to the storage
// manager's BlobStore interface.
type BlobStore struct{}

func NewBlobStore() *BlobStore { return &BlobStore{} }

func (b *BlobStore) Put(ctx context.Context, key string, content []byte) error {
	return PutObject(ctx, key, content)
}

func (b *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	return GetObject(ctx, key)
}

func (b *BlobStore) Delete(ctx context.Context, key string) error {
	return DeleteObject(ctx, key)
}
