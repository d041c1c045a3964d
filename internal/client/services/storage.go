// Package services contains the client's application services. The storage
// service coordinates the local record store, the remote mirror and the sync
// queue; the generation service turns prompts into saved images.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/imaging"
	"github.com/dmitrijs2005/gophgallery/internal/client/localstore"
	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/remote"
	"github.com/dmitrijs2005/gophgallery/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophgallery/internal/client/syncqueue"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
)

const (
	DefaultPageSize   = 20
	DefaultCleanupAge = 30 * 24 * time.Hour
)

// StorageService is the single entry point for reading and mutating images
// and folders. Local writes always happen first and decide success; the
// mirror is updated on a best-effort basis, and failed mirror writes are
// queued for replay.
type StorageService interface {
	SaveImage(ctx context.Context, in models.ImageInput, ownerID, folderID string) (*models.ImageRecord, error)
	GetImages(ctx context.Context, ownerID, folderID string, limit, offset int) (models.ImagePage, error)
	GetImage(ctx context.Context, id, ownerID string) (*models.ImageRecord, error)
	// SearchImages filters the local store by prompt, ignoring case. The
	// mirror is not consulted.
	SearchImages(ctx context.Context, ownerID, query string, limit, offset int) (models.ImagePage, error)
	DeleteImage(ctx context.Context, id, ownerID string) error

	CreateFolder(ctx context.Context, ownerID, name, icon, color string) (*models.FolderRecord, error)
	GetFolders(ctx context.Context, ownerID string) ([]models.FolderRecord, error)
	DeleteFolder(ctx context.Context, id, ownerID string) error

	// SetOnline records connectivity; going from offline to online drains
	// the sync queue before returning.
	SetOnline(ctx context.Context, online bool) error
	IsOnline() bool
	Drain(ctx context.Context) (models.DrainReport, error)

	Stats(ctx context.Context, ownerID string) (models.StorageStats, error)
	Cleanup(ctx context.Context, ownerID string, maxAge time.Duration) (int, error)
	QueueStatus(ctx context.Context) (models.QueueStatus, error)
}

// StorageOptions configures NewStorageService.
type StorageOptions struct {
	// Online is the connectivity state at construction.
	Online      bool
	MaxRetries  int
	Compression imaging.Options
	Logger      logging.Logger
}

type storageService struct {
	store      *localstore.Store
	mirror     remote.Mirror
	queue      *syncqueue.Queue
	compressor *imaging.Compressor
	log        logging.Logger
	now        func() time.Time

	online atomic.Bool
}

func NewStorageService(store *localstore.Store, mirror remote.Mirror, opts StorageOptions) StorageService {
	return newStorageService(store, mirror, opts)
}

func newStorageService(store *localstore.Store, mirror remote.Mirror, opts StorageOptions) *storageService {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	s := &storageService{
		store:      store,
		mirror:     mirror,
		compressor: imaging.NewCompressor(opts.Compression),
		log:        log.With("component", "storage"),
		now:        func() time.Time { return time.Now().UTC() },
	}
	s.online.Store(opts.Online)
	s.queue = syncqueue.New(store.Queue, store.Metadata, opts.MaxRetries, s.online.Load, log)
	return s
}

func (s *storageService) SaveImage(ctx context.Context, in models.ImageInput, ownerID, folderID string) (*models.ImageRecord, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", common.ErrInvalidRecord)
	}
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("%w: image payload is empty", common.ErrInvalidRecord)
	}

	res, err := s.compressor.Compress(in.Data, in.MimeType, in.Width, in.Height)
	if err != nil {
		s.log.Warn(ctx, "compression failed, storing original", "error", err)
		res = imaging.Result{
			Data: in.Data, MimeType: in.MimeType, Width: in.Width, Height: in.Height,
			OriginalSize: int64(len(in.Data)),
		}
	}

	now := s.now()
	rec := &models.ImageRecord{
		ID:       models.NewImageID(),
		OwnerID:  ownerID,
		FolderID: folderID,
		Prompt:   in.Prompt,
		Style:    in.Style,
		Tags:     ExtractTags(in.Prompt),
		Payload:  res.Data,
		Metadata: models.ImageMetadata{
			Size:         int64(len(res.Data)),
			MimeType:     res.MimeType,
			Width:        res.Width,
			Height:       res.Height,
			Model:        in.Model,
			Compressed:   res.Compressed,
			OriginalSize: res.OriginalSize,
		},
		SyncStatus: models.SyncPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// Local writes must land even if the caller gives up.
	local := context.WithoutCancel(ctx)

	if err := s.store.Images.Put(local, rec); err != nil {
		return nil, fmt.Errorf("save image locally: %w", err)
	}
	s.log.Info(ctx, "image saved", "image_id", rec.ID, "size", rec.Metadata.Size, "compressed", res.Compressed)

	if s.IsOnline() {
		url, err := s.mirror.PutImage(ctx, rec)
		if err == nil {
			if err := s.store.Images.MarkSynced(local, rec.ID, url, s.now()); err != nil {
				s.log.Warn(ctx, "failed to mark image synced", "image_id", rec.ID, "error", err)
				return rec, nil
			}
			rec.RemoteURL = url
			rec.SyncStatus = models.SyncSynced
			return rec, nil
		}
		s.log.Warn(ctx, "mirror write failed, queueing upload", "image_id", rec.ID, "error", err)
	}

	s.enqueue(local, models.ActionUpload, models.QueuePayload{ID: rec.ID, OwnerID: ownerID, FolderID: folderID})
	return rec, nil
}

func (s *storageService) GetImages(ctx context.Context, ownerID, folderID string, limit, offset int) (models.ImagePage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	if s.IsOnline() {
		page, err := s.mirror.GetImagesPage(ctx, ownerID, folderID, limit, offset)
		if err == nil {
			return page, nil
		}
		s.log.Warn(ctx, "mirror read failed, using local store", "error", err)
	}

	page, err := s.store.Images.List(ctx, ownerID, folderID, limit, offset)
	if err != nil {
		return models.ImagePage{}, fmt.Errorf("list local images: %w", err)
	}
	return page, nil
}

func (s *storageService) SearchImages(ctx context.Context, ownerID, query string, limit, offset int) (models.ImagePage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.ImagePage{}, fmt.Errorf("%w: search query is empty", common.ErrInvalidRecord)
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	page, err := s.store.Images.Search(ctx, ownerID, query, limit, offset)
	if err != nil {
		return models.ImagePage{}, fmt.Errorf("search local images: %w", err)
	}
	return page, nil
}

func (s *storageService) GetImage(ctx context.Context, id, ownerID string) (*models.ImageRecord, error) {
	rec, err := s.store.Images.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.OwnerID != ownerID {
		return nil, fmt.Errorf("image %s: %w", id, common.ErrNotFound)
	}
	return rec, nil
}

// DeleteImage removes the local copy and then the mirror copy. An image that
// only exists on the mirror can be deleted while online.
func (s *storageService) DeleteImage(ctx context.Context, id, ownerID string) error {
	local := context.WithoutCancel(ctx)

	rec, err := s.store.Images.Get(local, id)
	switch {
	case errors.Is(err, common.ErrNotFound):
		if !s.IsOnline() {
			return err
		}
		if rerr := s.mirror.DeleteImage(ctx, ownerID, id); rerr != nil {
			s.log.Warn(ctx, "mirror delete failed for image missing locally", "image_id", id, "error", rerr)
			return err
		}
		return nil
	case err != nil:
		return err
	case rec.OwnerID != ownerID:
		return fmt.Errorf("image %s: %w", id, common.ErrNotFound)
	}

	if err := s.store.Images.Delete(local, id); err != nil {
		return fmt.Errorf("delete image locally: %w", err)
	}
	s.log.Info(ctx, "image deleted", "image_id", id)

	if s.IsOnline() {
		err := s.mirror.DeleteImage(ctx, ownerID, id)
		if err == nil {
			return nil
		}
		s.log.Warn(ctx, "mirror delete failed, queueing", "image_id", id, "error", err)
	}
	s.enqueue(local, models.ActionDelete, models.QueuePayload{ID: id, OwnerID: ownerID, FolderID: rec.FolderID})
	return nil
}

func (s *storageService) CreateFolder(ctx context.Context, ownerID, name, icon, color string) (*models.FolderRecord, error) {
	name = strings.TrimSpace(name)
	if ownerID == "" || name == "" {
		return nil, fmt.Errorf("%w: folder needs owner and name", common.ErrInvalidRecord)
	}
	if icon == "" {
		icon = models.DefaultFolderIcon
	}
	if color == "" {
		color = models.DefaultFolderColor
	}

	now := s.now()
	f := &models.FolderRecord{
		ID:         models.NewFolderID(),
		OwnerID:    ownerID,
		Name:       name,
		Icon:       icon,
		Color:      color,
		SyncStatus: models.SyncPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	local := context.WithoutCancel(ctx)
	if err := s.store.Folders.Put(local, f); err != nil {
		return nil, fmt.Errorf("save folder locally: %w", err)
	}
	s.log.Info(ctx, "folder created", "folder_id", f.ID, "name", name)

	if s.IsOnline() {
		err := s.mirror.PutFolder(ctx, f)
		if err == nil {
			if err := s.store.Folders.MarkSynced(local, f.ID, s.now()); err != nil {
				s.log.Warn(ctx, "failed to mark folder synced", "folder_id", f.ID, "error", err)
				return f, nil
			}
			f.SyncStatus = models.SyncSynced
			return f, nil
		}
		s.log.Warn(ctx, "mirror write failed, queueing folder", "folder_id", f.ID, "error", err)
	}

	s.enqueue(local, models.ActionCreateFolder, models.QueuePayload{ID: f.ID, OwnerID: ownerID})
	return f, nil
}

// GetFolders lists the mirror's folders while online, plus local folders the
// mirror has not seen yet. Image counts always come from the local store.
func (s *storageService) GetFolders(ctx context.Context, ownerID string) ([]models.FolderRecord, error) {
	localFolders, err := s.store.Folders.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list local folders: %w", err)
	}

	result := localFolders
	if s.IsOnline() {
		remoteFolders, err := s.mirror.GetFolders(ctx, ownerID)
		if err != nil {
			s.log.Warn(ctx, "mirror read failed, using local folders", "error", err)
		} else {
			result = mergeFolders(remoteFolders, localFolders)
		}
	}

	counts, err := s.store.Images.CountByFolders(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("count images by folder: %w", err)
	}
	for i := range result {
		result[i].ImageCount = counts[result[i].ID]
	}
	return result, nil
}

func mergeFolders(remoteFolders, localFolders []models.FolderRecord) []models.FolderRecord {
	seen := make(map[string]struct{}, len(remoteFolders))
	out := make([]models.FolderRecord, 0, len(remoteFolders)+len(localFolders))
	for _, f := range remoteFolders {
		seen[f.ID] = struct{}{}
		out = append(out, f)
	}
	for _, f := range localFolders {
		if _, ok := seen[f.ID]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// DeleteFolder refuses folders that still hold local images. The count and
// the delete share one transaction.
func (s *storageService) DeleteFolder(ctx context.Context, id, ownerID string) error {
	local := context.WithoutCancel(ctx)

	err := s.store.Tx(local, func(ctx context.Context, r localstore.Repos) error {
		f, err := r.Folders.Get(ctx, id)
		if err != nil {
			return err
		}
		if f.OwnerID != ownerID {
			return fmt.Errorf("folder %s: %w", id, common.ErrNotFound)
		}
		n, err := r.Images.CountByFolder(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("folder %s holds %d images: %w", id, n, common.ErrFolderNotEmpty)
		}
		return r.Folders.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info(ctx, "folder deleted", "folder_id", id)

	if s.IsOnline() {
		err := s.mirror.DeleteFolder(ctx, ownerID, id)
		if err == nil {
			return nil
		}
		s.log.Warn(ctx, "mirror delete failed, queueing folder", "folder_id", id, "error", err)
	}
	s.enqueue(local, models.ActionDeleteFolder, models.QueuePayload{ID: id, OwnerID: ownerID})
	return nil
}

func (s *storageService) SetOnline(ctx context.Context, online bool) error {
	was := s.online.Swap(online)
	if was == online {
		return nil
	}
	s.log.Info(ctx, "connectivity changed", "online", online)
	if !online {
		return nil
	}
	_, err := s.Drain(ctx)
	return err
}

func (s *storageService) IsOnline() bool {
	return s.online.Load()
}

func (s *storageService) Drain(ctx context.Context) (models.DrainReport, error) {
	return s.queue.Drain(ctx, s)
}

// Replay applies one queued mutation to the mirror. Uploads and folder
// creations read the current local record; if it is gone the entry has been
// superseded by a later delete and counts as done.
func (s *storageService) Replay(ctx context.Context, e models.QueueEntry) error {
	local := context.WithoutCancel(ctx)
	p := e.Payload

	switch e.Action {
	case models.ActionUpload:
		rec, err := s.store.Images.Get(local, p.ID)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		url, err := s.mirror.PutImage(ctx, rec)
		if err != nil {
			return err
		}
		if err := s.store.Images.MarkSynced(local, p.ID, url, s.now()); err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		return nil

	case models.ActionDelete:
		return s.mirror.DeleteImage(ctx, p.OwnerID, p.ID)

	case models.ActionCreateFolder:
		f, err := s.store.Folders.Get(local, p.ID)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.mirror.PutFolder(ctx, f); err != nil {
			return err
		}
		if err := s.store.Folders.MarkSynced(local, p.ID, s.now()); err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		return nil

	case models.ActionDeleteFolder:
		return s.mirror.DeleteFolder(ctx, p.OwnerID, p.ID)
	}

	return fmt.Errorf("unknown sync action %q", e.Action)
}

func (s *storageService) Stats(ctx context.Context, ownerID string) (models.StorageStats, error) {
	var st models.StorageStats

	imgs, err := s.store.Images.ListAll(ctx, ownerID)
	if err != nil {
		return st, fmt.Errorf("list images: %w", err)
	}
	folders, err := s.store.Folders.List(ctx, ownerID)
	if err != nil {
		return st, fmt.Errorf("list folders: %w", err)
	}

	st.TotalImages = len(imgs)
	st.TotalFolders = len(folders)
	for _, img := range imgs {
		st.TotalSize += img.Metadata.Size
		if img.IsLocalOnly() {
			st.LocalImages++
		} else {
			st.CloudImages++
		}
	}
	st.TotalSizeHuman = FormatBytes(st.TotalSize)

	if st.PendingSync, err = s.queue.Len(ctx); err != nil {
		return st, err
	}
	if st.DroppedEntries, err = s.store.Metadata.GetInt(ctx, metadata.KeySyncExhausted); err != nil {
		return st, err
	}
	if st.LastDrain, err = s.store.Metadata.GetTime(ctx, metadata.KeyLastDrain); err != nil {
		return st, err
	}
	return st, nil
}

// Cleanup deletes local images older than maxAge that never reached the
// mirror. A non-positive maxAge means DefaultCleanupAge.
func (s *storageService) Cleanup(ctx context.Context, ownerID string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = DefaultCleanupAge
	}
	n, err := s.store.Images.DeleteUnsyncedOlderThan(context.WithoutCancel(ctx), ownerID, s.now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	s.log.Info(ctx, "local cleanup finished", "deleted", n, "max_age", maxAge.String())
	return n, nil
}

func (s *storageService) QueueStatus(ctx context.Context) (models.QueueStatus, error) {
	return s.queue.Status(ctx)
}

// enqueue records a mutation for later replay. A failure here leaves the
// local record pending with no replay scheduled, so it is logged loudly.
func (s *storageService) enqueue(ctx context.Context, action models.Action, p models.QueuePayload) {
	if _, err := s.queue.Enqueue(ctx, action, p); err != nil {
		s.log.Error(ctx, "failed to queue mutation", "action", action, "id", p.ID, "error", err)
	}
}
