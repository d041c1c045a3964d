package remote

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/common"
)

// MemoryMirror is an in-process Mirror. It backs the client when no mirror
// server is configured and lets tests switch connectivity and inject faults.
type MemoryMirror struct {
	mu        sync.Mutex
	available bool
	failNext  int
	images    map[string]models.ImageRecord
	folders   map[string]models.FolderRecord
	calls     map[string]int
}

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{
		available: true,
		images:    make(map[string]models.ImageRecord),
		folders:   make(map[string]models.FolderRecord),
		calls:     make(map[string]int),
	}
}

// SetAvailable switches whether calls succeed.
func (m *MemoryMirror) SetAvailable(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = ok
}

// FailNext makes the next n calls fail even while available.
func (m *MemoryMirror) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
}

// Calls returns how many times op was invoked, successful or not.
func (m *MemoryMirror) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// HasImage reports whether the mirror holds the image.
func (m *MemoryMirror) HasImage(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.images[id]
	return ok
}

// HasFolder reports whether the mirror holds the folder.
func (m *MemoryMirror) HasFolder(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.folders[id]
	return ok
}

// ImageCount is the number of images stored, across owners.
func (m *MemoryMirror) ImageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.images)
}

// enter records the call and reports whether it may proceed. Callers hold mu.
func (m *MemoryMirror) enter(ctx context.Context, op string) error {
	m.calls[op]++
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrRemoteUnavailable, op, err)
	}
	if !m.available {
		return fmt.Errorf("%w: %s: offline", common.ErrRemoteUnavailable, op)
	}
	if m.failNext > 0 {
		m.failNext--
		return fmt.Errorf("%w: %s: injected failure", common.ErrRemoteUnavailable, op)
	}
	return nil
}

func (m *MemoryMirror) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enter(ctx, "ping")
}

func (m *MemoryMirror) PutImage(ctx context.Context, rec *models.ImageRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "putImage"); err != nil {
		return "", err
	}
	if prev, ok := m.images[rec.ID]; ok && prev.OwnerID != rec.OwnerID {
		return "", fmt.Errorf("%w: putImage %s: %w", common.ErrRemoteUnavailable, rec.ID, common.ErrForbidden)
	}

	stored := *rec
	stored.Payload = nil
	stored.RemoteURL = "memory://images/" + rec.ID
	stored.SyncStatus = models.SyncSynced
	m.images[rec.ID] = stored
	return stored.RemoteURL, nil
}

func (m *MemoryMirror) GetImagesPage(ctx context.Context, ownerID, folderID string, limit, offset int) (models.ImagePage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "getImages"); err != nil {
		return models.ImagePage{}, err
	}

	var all []models.ImageRecord
	for _, img := range m.images {
		if img.OwnerID != ownerID || (folderID != "" && img.FolderID != folderID) {
			continue
		}
		all = append(all, img)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return models.NewImagePage(all[offset:end], total, limit, offset), nil
}

func (m *MemoryMirror) DeleteImage(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "deleteImage"); err != nil {
		return err
	}
	if img, ok := m.images[id]; ok && img.OwnerID == ownerID {
		delete(m.images, id)
	}
	return nil
}

func (m *MemoryMirror) PutFolder(ctx context.Context, f *models.FolderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "putFolder"); err != nil {
		return err
	}
	stored := *f
	stored.ImageCount = 0
	stored.SyncStatus = models.SyncSynced
	m.folders[f.ID] = stored
	return nil
}

func (m *MemoryMirror) GetFolders(ctx context.Context, ownerID string) ([]models.FolderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "getFolders"); err != nil {
		return nil, err
	}
	var out []models.FolderRecord
	for _, f := range m.folders {
		if f.OwnerID == ownerID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryMirror) DeleteFolder(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, "deleteFolder"); err != nil {
		return err
	}
	if f, ok := m.folders[id]; ok && f.OwnerID == ownerID {
		delete(m.folders, id)
	}
	return nil
}
