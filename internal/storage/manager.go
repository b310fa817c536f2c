// Package storage orchestrates the three places project file content can
// live: inline in the files row, in the external blob store, or mirrored to
// a remote GitHub repository. The manager owns the placement decision and
// keeps row metadata consistent with the bytes actually stored.
package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rohittcodes/flashio-sub001/internal/logging"
	"github.com/rohittcodes/flashio-sub001/internal/metrics"
	"github.com/rohittcodes/flashio-sub001/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BlobStore is the external byte store keyed by opaque keys.
type BlobStore interface {
	Put(ctx context.Context, key string, content []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// FileStore is the relational metadata store for file rows.
type FileStore interface {
	Create(ctx context.Context, file *models.File) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.File, error)
	GetByPath(ctx context.Context, projectID uuid.UUID, path string) (*models.File, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.File, error)
	Save(ctx context.Context, file *models.File) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Mirror pushes file trees to the remote source-control host.
type Mirror interface {
	EnsureRepo(ctx context.Context, name, description string, private bool) (RemoteRepo, error)
	PushFile(ctx context.Context, repoName, path string, content []byte, message string) error
}

// RemoteRepo identifies a repository on the mirror host.
type RemoteRepo struct {
	Name string
	URL  string
}

// SaveMetadata carries the caller-supplied attributes of a save.
type SaveMetadata struct {
	IsDirectory bool
	ModifiedBy  uuid.UUID
}

// LoadResult is the outcome of a load. When the blob backend is unreachable
// the metadata is still returned with ContentUnavailable set, so listing
// stays resilient.
type LoadResult struct {
	File               *models.File
	Content            []byte
	ContentUnavailable bool
}

// SyncOptions are the remote-mirror options of a project sync.
type SyncOptions struct {
	RepoName    string
	Description string
	IsPrivate   bool
	AutoCommit  bool
}

// SyncResult reports per-path outcomes of a project sync.
type SyncResult struct {
	RepoURL     string            `json:"repoUrl"`
	SyncedFiles []string          `json:"syncedFiles"`
	Failed      map[string]string `json:"failed,omitempty"`
}

const syncConcurrency = 4

// Manager implements the save/load/update/delete contract over the tiered
// backends.
type Manager struct {
	files  FileStore
	blobs  BlobStore
	mirror Mirror
	policy Policy

	// locks serializes update/delete per file id so a migration never leaves
	// a row pointing at deleted content.
	locks sync.Map // uuid.UUID -> *sync.Mutex
}

// NewManager wires a manager over the given backends.
func NewManager(files FileStore, blobs BlobStore, mirror Mirror, policy Policy) *Manager {
	return &Manager{files: files, blobs: blobs, mirror: mirror, policy: policy}
}

func (m *Manager) lock(id uuid.UUID) func() {
	v, _ := m.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func blobKey(projectID, fileID uuid.UUID, sum string) string {
	return fmt.Sprintf("projects/%s/files/%s/%s", projectID, fileID, sum[:16])
}

func isBinary(content []byte) bool {
	return bytes.IndexByte(content, 0) >= 0 || !utf8.Valid(content)
}

// Save writes content for a path, creating the file record on first write.
// Bytes go to the chosen backend before the metadata row commits, so the row
// never references missing bytes.
func (m *Manager) Save(ctx context.Context, projectID uuid.UUID, path string, content []byte, meta SaveMetadata) (*models.File, error) {
	if existing, err := m.files.GetByPath(ctx, projectID, path); err == nil {
		return m.Update(ctx, existing.ID, content, meta.ModifiedBy)
	}

	file := &models.File{
		ID:             uuid.New(),
		ProjectID:      projectID,
		Path:           path,
		IsDirectory:    meta.IsDirectory,
		LastModifiedBy: meta.ModifiedBy,
	}

	if meta.IsDirectory {
		file.StorageTier = models.TierInline
		if err := m.files.Create(ctx, file); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
		}
		return file, nil
	}

	file.Size = int64(len(content))
	file.Checksum = checksum(content)
	file.IsBinary = isBinary(content)
	file.StorageTier = m.policy.Decide(file.Size)

	switch file.StorageTier {
	case models.TierBlob:
		key := blobKey(projectID, file.ID, file.Checksum)
		if err := m.blobs.Put(ctx, key, content); err != nil {
			metrics.RecordStorageOp("save", string(models.TierBlob), "error")
			return nil, fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
		}
		file.StorageKey = &key
		if err := m.files.Create(ctx, file); err != nil {
			// The blob landed but the row didn't; clean up best-effort so we
			// don't leak orphaned objects.
			if cleanupErr := m.blobs.Delete(ctx, key); cleanupErr != nil {
				logging.Warn("orphaned blob cleanup failed",
					zap.String("key", key), zap.Error(cleanupErr))
			}
			metrics.RecordStorageOp("save", string(models.TierBlob), "error")
			return nil, fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
		}
	default:
		s := string(content)
		file.Content = &s
		if err := m.files.Create(ctx, file); err != nil {
			metrics.RecordStorageOp("save", string(models.TierInline), "error")
			return nil, fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
		}
	}

	metrics.RecordStorageOp("save", string(file.StorageTier), "ok")
	metrics.RecordBytesWritten(string(file.StorageTier), file.Size)
	return file, nil
}

// Load reads metadata and dispatches the content read to the backend the
// row's tier points at.
func (m *Manager) Load(ctx context.Context, fileID uuid.UUID) (*LoadResult, error) {
	file, err := m.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, ErrNotFound
	}

	res := &LoadResult{File: file}
	if file.IsDirectory {
		return res, nil
	}

	switch file.StorageTier {
	case models.TierBlob:
		if file.StorageKey == nil {
			return nil, fmt.Errorf("%w: blob record %s has no storage key", ErrStorageReadFailed, file.ID)
		}
		content, getErr := m.blobs.Get(ctx, *file.StorageKey)
		if getErr != nil {
			// Keep listings resilient: hand back the metadata and flag the
			// missing content instead of failing hard.
			logging.Warn("blob read failed",
				zap.String("fileId", file.ID.String()),
				zap.String("key", *file.StorageKey),
				zap.Error(getErr))
			metrics.RecordStorageOp("load", string(models.TierBlob), "unavailable")
			res.ContentUnavailable = true
			return res, nil
		}
		res.Content = content
	default:
		if file.Content != nil {
			res.Content = []byte(*file.Content)
		}
	}

	metrics.RecordStorageOp("load", string(file.StorageTier), "ok")
	return res, nil
}

// Update recomputes size and checksum and migrates tiers when the new size
// crosses the threshold. The new backend is written and the row committed
// before the old backend object is released, so readers always see either
// the old tier with the old bytes or the new tier with the new bytes.
func (m *Manager) Update(ctx context.Context, fileID uuid.UUID, content []byte, modifiedBy uuid.UUID) (*models.File, error) {
	unlock := m.lock(fileID)
	defer unlock()

	file, err := m.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, ErrNotFound
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("%w: cannot write content to a directory", ErrStorageWriteFailed)
	}

	oldTier := file.StorageTier
	var oldKey string
	if file.StorageKey != nil {
		oldKey = *file.StorageKey
	}

	file.Size = int64(len(content))
	file.Checksum = checksum(content)
	file.IsBinary = isBinary(content)
	file.StorageTier = m.policy.Decide(file.Size)
	file.LastModifiedBy = modifiedBy

	switch file.StorageTier {
	case models.TierBlob:
		key := blobKey(file.ProjectID, file.ID, file.Checksum)
		if key != oldKey {
			if err := m.blobs.Put(ctx, key, content); err != nil {
				metrics.RecordStorageOp("update", string(models.TierBlob), "error")
				return nil, fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
			}
		}
		file.Content = nil
		file.StorageKey = &key
	default:
		s := string(content)
		file.Content = &s
		file.StorageKey = nil
	}

	if err := m.files.Save(ctx, file); err != nil {
		if file.StorageTier == models.TierBlob && file.StorageKey != nil && *file.StorageKey != oldKey {
			if cleanupErr := m.blobs.Delete(ctx, *file.StorageKey); cleanupErr != nil {
				logging.Warn("orphaned blob cleanup failed",
					zap.String("key", *file.StorageKey), zap.Error(cleanupErr))
			}
		}
		metrics.RecordStorageOp("update", string(file.StorageTier), "error")
		return nil, fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
	}

	// Row is committed; the old object is now unreachable and safe to drop.
	if oldTier == models.TierBlob && oldKey != "" && (file.StorageKey == nil || *file.StorageKey != oldKey) {
		if delErr := m.blobs.Delete(ctx, oldKey); delErr != nil {
			logging.Warn("stale blob delete failed",
				zap.String("key", oldKey), zap.Error(delErr))
		}
	}
	if oldTier != file.StorageTier {
		metrics.RecordTierMigration(string(oldTier), string(file.StorageTier))
	}

	metrics.RecordStorageOp("update", string(file.StorageTier), "ok")
	metrics.RecordBytesWritten(string(file.StorageTier), file.Size)
	return file, nil
}

// Delete removes backend bytes first and the metadata row second. If the
// backend delete fails the row is retained and the fault surfaced, so a
// reachable record never points at silently dropped content.
func (m *Manager) Delete(ctx context.Context, fileID uuid.UUID) error {
	unlock := m.lock(fileID)
	defer unlock()

	file, err := m.files.GetByID(ctx, fileID)
	if err != nil {
		return ErrNotFound
	}

	if file.StorageTier == models.TierBlob && file.StorageKey != nil {
		if err := m.blobs.Delete(ctx, *file.StorageKey); err != nil {
			metrics.RecordStorageOp("delete", string(models.TierBlob), "error")
			return fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
		}
	}

	if err := m.files.Delete(ctx, fileID); err != nil {
		metrics.RecordStorageOp("delete", string(file.StorageTier), "error")
		return fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
	}

	m.locks.Delete(fileID)
	metrics.RecordStorageOp("delete", string(file.StorageTier), "ok")
	return nil
}

// ListProject returns the metadata rows of every file in a project.
func (m *Manager) ListProject(ctx context.Context, projectID uuid.UUID) ([]models.File, error) {
	return m.files.ListByProject(ctx, projectID)
}

// GetByPath looks a file up by its project-relative path.
func (m *Manager) GetByPath(ctx context.Context, projectID uuid.UUID, path string) (*models.File, error) {
	file, err := m.files.GetByPath(ctx, projectID, path)
	if err != nil {
		return nil, ErrNotFound
	}
	return file, nil
}

// SyncProjectToRemote pushes every non-directory file of a project to the
// remote mirror. A file that fails to push is reported per path; it never
// aborts the rest of the sync.
func (m *Manager) SyncProjectToRemote(ctx context.Context, projectID uuid.UUID, opts SyncOptions) (*SyncResult, error) {
	if m.mirror == nil {
		return nil, errors.New("remote mirror is not configured")
	}

	repo, err := m.mirror.EnsureRepo(ctx, opts.RepoName, opts.Description, opts.IsPrivate)
	if err != nil {
		return nil, fmt.Errorf("ensure remote repo: %w", err)
	}

	files, err := m.files.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project files: %w", err)
	}

	message := "Update project files"
	if !opts.AutoCommit {
		message = fmt.Sprintf("Sync project %s", projectID)
	}

	result := &SyncResult{RepoURL: repo.URL, Failed: make(map[string]string)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(syncConcurrency)
	for _, f := range files {
		if f.IsDirectory {
			continue
		}
		file := f
		g.Go(func() error {
			res, loadErr := m.Load(gctx, file.ID)
			if loadErr != nil || res.ContentUnavailable {
				mu.Lock()
				result.Failed[file.Path] = "content unavailable"
				mu.Unlock()
				metrics.RecordRemoteSyncFile("error")
				return nil
			}
			if pushErr := m.mirror.PushFile(gctx, repo.Name, file.Path, res.Content, message); pushErr != nil {
				mu.Lock()
				result.Failed[file.Path] = pushErr.Error()
				mu.Unlock()
				metrics.RecordRemoteSyncFile("error")
				return nil
			}
			mu.Lock()
			result.SyncedFiles = append(result.SyncedFiles, file.Path)
			mu.Unlock()
			metrics.RecordRemoteSyncFile("ok")
			return nil
		})
	}
	_ = g.Wait()

	if len(result.Failed) == 0 {
		result.Failed = nil
	}
	return result, nil
}
