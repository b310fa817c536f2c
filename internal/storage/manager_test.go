package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohittcodes/flashio-sub001/internal/models"
)

type memFileStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]models.File

	failCreate bool
	failSave   bool
}

func newMemFileStore() *memFileStore {
	return &memFileStore{rows: make(map[uuid.UUID]models.File)}
}

func (s *memFileStore) Create(_ context.Context, file *models.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate {
		return errors.New("insert failed")
	}
	s.rows[file.ID] = *file
	return nil
}

func (s *memFileStore) GetByID(_ context.Context, id uuid.UUID) (*models.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	out := row
	return &out, nil
}

func (s *memFileStore) GetByPath(_ context.Context, projectID uuid.UUID, path string) (*models.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ProjectID == projectID && row.Path == path {
			out := row
			return &out, nil
		}
	}
	return nil, errors.New("record not found")
}

func (s *memFileStore) ListByProject(_ context.Context, projectID uuid.UUID) ([]models.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.File
	for _, row := range s.rows {
		if row.ProjectID == projectID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *memFileStore) Save(_ context.Context, file *models.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errors.New("update failed")
	}
	s.rows[file.ID] = *file
	return nil
}

func (s *memFileStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

type memBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	failPut    bool
	failGet    bool
	failDelete bool
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: make(map[string][]byte)}
}

func (s *memBlobStore) Put(_ context.Context, key string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut {
		return errors.New("put failed")
	}
	s.objects[key] = append([]byte(nil), content...)
	return nil
}

func (s *memBlobStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return nil, errors.New("get failed")
	}
	content, ok := s.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return append([]byte(nil), content...), nil
}

func (s *memBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete {
		return errors.New("delete failed")
	}
	delete(s.objects, key)
	return nil
}

func (s *memBlobStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type memMirror struct {
	mu        sync.Mutex
	pushed    map[string][]byte
	failPaths map[string]bool
}

func newMemMirror() *memMirror {
	return &memMirror{pushed: make(map[string][]byte), failPaths: make(map[string]bool)}
}

func (m *memMirror) EnsureRepo(_ context.Context, name, _ string, _ bool) (RemoteRepo, error) {
	return RemoteRepo{Name: name, URL: "https://github.com/acme/" + name}, nil
}

func (m *memMirror) PushFile(_ context.Context, _, path string, content []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPaths[path] {
		return errors.New("push rejected")
	}
	m.pushed[path] = append([]byte(nil), content...)
	return nil
}

func newTestManager(files *memFileStore, blobs *memBlobStore, mirror Mirror) *Manager {
	return NewManager(files, blobs, mirror, NewPolicy(100))
}

func TestSaveInlineSmallFile(t *testing.T) {
	files := newMemFileStore()
	blobs := newMemBlobStore()
	m := newTestManager(files, blobs, nil)

	projectID := uuid.New()
	content := []byte("package main\n")
	file, err := m.Save(context.Background(), projectID, "main.go", content, SaveMetadata{ModifiedBy: uuid.New()})
	require.NoError(t, err)

	assert.Equal(t, models.TierInline, file.StorageTier)
	require.NotNil(t, file.Content)
	assert.Equal(t, string(content), *file.Content)
	assert.Nil(t, file.StorageKey)
	assert.Zero(t, blobs.count(), "inline save must not touch the blob store")
}

func TestSaveBlobLargeFile(t *testing.T) {
	files := newMemFileStore()
	blobs := newMemBlobStore()
	m := newTestManager(files, blobs, nil)

	projectID := uuid.New()
	content := bytes.Repeat([]byte("x"), 200)
	file, err := m.Save(context.Background(), projectID, "big.bin", content, SaveMetadata{})
	require.NoError(t, err)

	assert.Equal(t, models.TierBlob, file.StorageTier)
	assert.Nil(t, file.Content, "blob rows must not carry inline content")
	require.NotNil(t, file.StorageKey)
	assert.Equal(t, 1, blobs.count())
}

func TestSaveAtThresholdStaysInline(t *testing.T) {
	m := newTestManager(newMemFileStore(), newMemBlobStore(), nil)

	file, err := m.Save(context.Background(), uuid.New(), "edge.txt",
		bytes.Repeat([]byte("a"), 100), SaveMetadata{})
	require.NoError(t, err)
	assert.Equal(t, models.TierInline, file.StorageTier)
}

func TestLoadRoundTripChecksum(t *testing.T) {
	m := newTestManager(newMemFileStore(), newMemBlobStore(), nil)
	ctx := context.Background()

	for _, content := range [][]byte{
		[]byte("short"),
		bytes.Repeat([]byte("long"), 100),
	} {
		file, err := m.Save(ctx, uuid.New(), "f", content, SaveMetadata{})
		require.NoError(t, err)

		res, err := m.Load(ctx, file.ID)
		require.NoError(t, err)
		assert.False(t, res.ContentUnavailable)
		assert.Equal(t, content, res.Content)

		sum := sha256.Sum256(res.Content)
		assert.Equal(t, hex.EncodeToString(sum[:]), res.File.Checksum,
			"stored checksum must match the loaded bytes")
	}
}

func TestLoadUnknownFile(t *testing.T) {
	m := newTestManager(newMemFileStore(), newMemBlobStore(), nil)

	_, err := m.Load(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadBlobBackendDown(t *testing.T) {
	files := newMemFileStore()
	blobs := newMemBlobStore()
	m := newTestManager(files, blobs, nil)
	ctx := context.Background()

	file, err := m.Save(ctx, uuid.New(), "big.bin", bytes.Repeat([]byte("y"), 500), SaveMetadata{})
	require.NoError(t, err)

	blobs.failGet = true
	res, err := m.Load(ctx, file.ID)
	require.NoError(t, err, "metadata must survive a blob outage")
	assert.True(t, res.ContentUnavailable)
	assert.Nil(t, res.Content)
	assert.Equal(t, file.ID, res.File.ID)
}

func TestSaveBlobPutFailureLeavesNoRow(t *testing.T) {
	files := newMemFileStore()
	blobs := newMemBlobStore()
	blobs.failPut = true
	m := newTestManager(files, blobs, nil)

	projectID := uuid.New()
	_, err := m.Save(context.Background(), projectID, "big.bin", bytes.Repeat([]byte("z"), 500), SaveMetadata{})
	assert.ErrorIs(t, err, ErrStorageWriteFailed)
	_, err = m.GetByPath(context.Background(), projectID, "big.bin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRowFailureCleansUpBlob(t *testing.T) {
	files := newMemFileStore()
	files.failCreate = true
	blobs := newMemBlobStore()
	m := newTestManager(files, blobs, nil)

	_, err := m.Save(context.Background(), uuid.New(), "big.bin", bytes.Repeat([]byte("z"), 500), SaveMetadata{})
	assert.ErrorIs(t, err, ErrStorageWriteFailed)
	assert.Zero(t, blobs.count(), "orphaned object must be cleaned up")
}

func TestUpdateMigratesInlineToBlob(t *testing.T) {
	files := newMemFileStore()
	blobs := newMemBlobStore()
	m := newTestManager(files, blobs, nil)
	ctx := context.Background()

	file, err := m.Save(ctx, uuid.New(), "notes.txt", []byte("tiny"), SaveMetadata{})
	require.NoError(t, err)
	require.Equal(t, models.TierInline, file.StorageTier)

	grown := bytes.Repeat([]byte("g"), 500)
	updated, err := m.Update(ctx, file.ID, grown, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, models.TierBlob, updated.StorageTier)
	assert.Nil(t, updated.Content)
	require.NotNil(t, updated.StorageKey)
	assert.Equal(t, 1, blobs.count())

	res, err := m.Load(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, grown, res.Content)
}

func TestUpdateMigratesBlobToInline(t *testing.T) {
	files := newMemFileStore()
	blobs := newMemBlobStore()
	m := newTestManager(files, blobs, nil)
	ctx := context.Background()

	file, err := m.Save(ctx, uuid.New(), "big.bin", bytes.Repeat([]byte("b"), 500), SaveMetadata{})
	require.NoError(t, err)
	require.Equal(t, models.TierBlob, file.StorageTier)

	updated, err := m.Update(ctx, file.ID, []byte("shrunk"), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, models.TierInline, updated.StorageTier)
	assert.Nil(t, updated.StorageKey)
	assert.Zero(t, blobs.count(), "old blob object must be released after migration")

	res, err := m.Load(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("shrunk"), res.Content)
}

func TestUpdateBlobContentReplacesObject(t *testing.T) {
	files := newMemFileStore()
	blobs := newMemBlobStore()
	m := newTestManager(files, blobs, nil)
	ctx := context.Background()

	file, err := m.Save(ctx, uuid.New(), "big.bin", bytes.Repeat([]byte("1"), 500), SaveMetadata{})
	require.NoError(t, err)
	firstKey := *file.StorageKey

	next := bytes.Repeat([]byte("2"), 500)
	updated, err := m.Update(ctx, file.ID, next, uuid.New())
	require.NoError(t, err)

	assert.NotEqual(t, firstKey, *updated.StorageKey)
	assert.Equal(t, 1, blobs.count(), "stale object must not accumulate")

	res, err := m.Load(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, next, res.Content)
}

func TestUpdateRowFailureKeepsOldObjectReachable(t *testing.T) {
	files := newMemFileStore()
	blobs := newMemBlobStore()
	m := newTestManager(files, blobs, nil)
	ctx := context.Background()

	original := bytes.Repeat([]byte("o"), 500)
	file, err := m.Save(ctx, uuid.New(), "big.bin", original, SaveMetadata{})
	require.NoError(t, err)

	files.failSave = true
	_, err = m.Update(ctx, file.ID, bytes.Repeat([]byte("n"), 500), uuid.New())
	assert.ErrorIs(t, err, ErrStorageWriteFailed)

	files.failSave = false
	res, err := m.Load(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, original, res.Content, "failed update must not lose the committed bytes")
}

func TestUpdateDirectoryRejected(t *testing.T) {
	m := newTestManager(newMemFileStore(), newMemBlobStore(), nil)
	ctx := context.Background()

	dir, err := m.Save(ctx, uuid.New(), "src", nil, SaveMetadata{IsDirectory: true})
	require.NoError(t, err)

	_, err = m.Update(ctx, dir.ID, []byte("oops"), uuid.New())
	assert.ErrorIs(t, err, ErrStorageWriteFailed)
}

func TestSaveExistingPathUpdates(t *testing.T) {
	m := newTestManager(newMemFileStore(), newMemBlobStore(), nil)
	ctx := context.Background()
	projectID := uuid.New()

	first, err := m.Save(ctx, projectID, "app.js", []byte("v1"), SaveMetadata{})
	require.NoError(t, err)
	second, err := m.Save(ctx, projectID, "app.js", []byte("v2"), SaveMetadata{})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "saving an existing path must not create a new record")

	res, err := m.Load(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), res.Content)
}

func TestDeleteBlobFile(t *testing.T) {
	files := newMemFileStore()
	blobs := newMemBlobStore()
	m := newTestManager(files, blobs, nil)
	ctx := context.Background()

	file, err := m.Save(ctx, uuid.New(), "big.bin", bytes.Repeat([]byte("d"), 500), SaveMetadata{})
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, file.ID))
	assert.Zero(t, blobs.count())

	_, err = m.Load(ctx, file.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteBlobFailureRetainsRow(t *testing.T) {
	files := newMemFileStore()
	blobs := newMemBlobStore()
	m := newTestManager(files, blobs, nil)
	ctx := context.Background()

	file, err := m.Save(ctx, uuid.New(), "big.bin", bytes.Repeat([]byte("d"), 500), SaveMetadata{})
	require.NoError(t, err)

	blobs.failDelete = true
	err = m.Delete(ctx, file.ID)
	assert.ErrorIs(t, err, ErrStorageWriteFailed)

	got, err := m.files.GetByID(ctx, file.ID)
	require.NoError(t, err, "row must survive a failed blob delete")
	assert.Equal(t, file.ID, got.ID)
}

func TestConcurrentUpdatesStayConsistent(t *testing.T) {
	files := newMemFileStore()
	blobs := newMemBlobStore()
	m := newTestManager(files, blobs, nil)
	ctx := context.Background()

	file, err := m.Save(ctx, uuid.New(), "hot.txt", []byte("seed"), SaveMetadata{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			content := bytes.Repeat([]byte{byte('a' + n)}, 50*(n+1))
			_, _ = m.Update(ctx, file.ID, content, uuid.New())
		}(i)
	}
	wg.Wait()

	res, err := m.Load(ctx, file.ID)
	require.NoError(t, err)
	assert.False(t, res.ContentUnavailable)
	sum := sha256.Sum256(res.Content)
	assert.Equal(t, hex.EncodeToString(sum[:]), res.File.Checksum)
	if res.File.StorageTier == models.TierBlob {
		assert.Equal(t, 1, blobs.count(), "only the winning object may remain")
	} else {
		assert.Zero(t, blobs.count())
	}
}

func TestSyncProjectToRemote(t *testing.T) {
	files := newMemFileStore()
	blobs := newMemBlobStore()
	mirror := newMemMirror()
	m := newTestManager(files, blobs, mirror)
	ctx := context.Background()
	projectID := uuid.New()

	_, err := m.Save(ctx, projectID, "src", nil, SaveMetadata{IsDirectory: true})
	require.NoError(t, err)
	_, err = m.Save(ctx, projectID, "src/index.js", []byte("console.log(1)"), SaveMetadata{})
	require.NoError(t, err)
	_, err = m.Save(ctx, projectID, "assets/logo.bin", bytes.Repeat([]byte("p"), 500), SaveMetadata{})
	require.NoError(t, err)

	result, err := m.SyncProjectToRemote(ctx, projectID, SyncOptions{RepoName: "demo"})
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/acme/demo", result.RepoURL)
	assert.ElementsMatch(t, []string{"src/index.js", "assets/logo.bin"}, result.SyncedFiles)
	assert.Nil(t, result.Failed)
	assert.NotContains(t, mirror.pushed, "src", "directories are not pushed")
}

func TestSyncReportsPartialFailure(t *testing.T) {
	files := newMemFileStore()
	blobs := newMemBlobStore()
	mirror := newMemMirror()
	mirror.failPaths["bad.txt"] = true
	m := newTestManager(files, blobs, mirror)
	ctx := context.Background()
	projectID := uuid.New()

	_, err := m.Save(ctx, projectID, "good.txt", []byte("fine"), SaveMetadata{})
	require.NoError(t, err)
	_, err = m.Save(ctx, projectID, "bad.txt", []byte("doomed"), SaveMetadata{})
	require.NoError(t, err)

	result, err := m.SyncProjectToRemote(ctx, projectID, SyncOptions{RepoName: "demo"})
	require.NoError(t, err, "a single failed file must not abort the sync")

	assert.ElementsMatch(t, []string{"good.txt"}, result.SyncedFiles)
	assert.Contains(t, result.Failed, "bad.txt")
}

func TestSyncWithoutMirrorConfigured(t *testing.T) {
	m := newTestManager(newMemFileStore(), newMemBlobStore(), nil)

	_, err := m.SyncProjectToRemote(context.Background(), uuid.New(), SyncOptions{RepoName: "demo"})
	assert.Error(t, err)
}
