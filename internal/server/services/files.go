package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophfiles/internal/common"
	"github.com/dmitrijs2005/gophfiles/internal/logging"
	"github.com/dmitrijs2005/gophfiles/internal/server/access"
	"github.com/dmitrijs2005/gophfiles/internal/server/blobstore"
	"github.com/dmitrijs2005/gophfiles/internal/server/cache"
	"github.com/dmitrijs2005/gophfiles/internal/server/metrics"
	"github.com/dmitrijs2005/gophfiles/internal/server/models"
	"github.com/dmitrijs2005/gophfiles/internal/server/repositories/files"
	"github.com/dmitrijs2005/gophfiles/internal/server/shortid"
	"github.com/dmitrijs2005/gophfiles/internal/server/sniff"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoFiles      = &common.BadRequestError{Reason: "Upload at least one file in multipart/form-data request"}
	ErrTooManyFiles = &common.BadRequestError{Reason: fmt.Sprintf("Upload a maximum of %d files at a time.", common.MaxBatchSize)}
)

// IDGenerator allocates public short ids.
type IDGenerator interface {
	New() (string, error)
}

// UploadSource is one file of a batch. Open is called once, inside the
// file's own pipeline.
type UploadSource struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

type UploadOptions struct {
	Private bool
	// Tags are appended to the principal's default tags.
	Tags []string
	// HostAliases overrides the configured aliases for the returned links.
	HostAliases []string
	// Legacy selects /file/{id}.{ext} links.
	Legacy bool
}

// Download is a resolved file ready to be streamed. Body must be closed.
type Download struct {
	Filename    string
	ContentType string
	Disposition string
	Size        int64
	Body        io.ReadCloser
}

// FileService stores, resolves, lists and deletes files.
type FileService struct {
	index   files.Repository
	store   *blobstore.Store
	urls    *URLBuilder
	ids     IDGenerator
	gate    *access.Gate
	cache   cache.Cache
	metrics *metrics.Metrics
	logger  logging.Logger

	newID func() string
	now   func() time.Time
}

type Option func(*FileService)

func WithIDGenerator(g IDGenerator) Option { return func(s *FileService) { s.ids = g } }
func WithGate(g *access.Gate) Option       { return func(s *FileService) { s.gate = g } }
func WithCache(c cache.Cache) Option       { return func(s *FileService) { s.cache = c } }
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *FileService) { s.metrics = m }
}

// NewFileService wires the service. Without options it uses random short
// ids, owner-only access to private files and no cache.
func NewFileService(index files.Repository, store *blobstore.Store, urls *URLBuilder, logger logging.Logger, opts ...Option) *FileService {
	s := &FileService{
		index:  index,
		store:  store,
		urls:   urls,
		ids:    shortid.New(),
		gate:   access.NewGate(),
		cache:  cache.Noop{},
		logger: logger.With("module", "files"),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Upload stores a batch of 1..MaxBatchSize files concurrently and returns
// their links in input order. Either every file is committed or none is.
func (s *FileService) Upload(ctx context.Context, p *models.Principal, sources []UploadSource, opts UploadOptions) ([]string, error) {
	if len(sources) == 0 {
		return nil, ErrNoFiles
	}
	if len(sources) > common.MaxBatchSize {
		return nil, ErrTooManyFiles
	}
	if p == nil {
		return nil, common.ErrorUnauthorized
	}

	tags := uploadTags(p.DefaultTags, opts.Tags)
	base := s.urls.Base(opts.HostAliases, opts.Legacy)

	// Ids are drawn in input order so link i always belongs to source i.
	shortIDs := make([]string, len(sources))
	for i := range sources {
		id, err := s.ids.New()
		if err != nil {
			return nil, fmt.Errorf("allocate short id: %w", err)
		}
		shortIDs[i] = id
	}

	objs := make([]*models.FileObject, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			obj, err := s.storeOne(gctx, p, src, shortIDs[i], tags, opts.Private)
			if err != nil {
				return fmt.Errorf("store %q: %w", src.Filename, err)
			}
			objs[i] = obj
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.rollback(context.WithoutCancel(ctx), objs)
		s.logger.Error(ctx, "upload failed", "user", p.UserID, "files", len(sources), "error", err)
		return nil, err
	}

	urls := make([]string, len(objs))
	for i, obj := range objs {
		urls[i] = FileURL(base, obj.ShortID, obj.Filename, opts.Legacy)
		s.metrics.FileUploaded(obj.Size)
		s.logger.Info(ctx, "file stored", "short_id", obj.ShortID, "size", obj.Size, "user", p.UserID)
	}
	return urls, nil
}

func (s *FileService) storeOne(ctx context.Context, p *models.Principal, src UploadSource, shortID string, tags []string, private bool) (*models.FileObject, error) {
	obj := &models.FileObject{
		ID:         s.newID(),
		ShortID:    shortID,
		Filename:   src.Filename,
		OwnerID:    p.UserID,
		Private:    private,
		Persistent: p.PersistAll,
		Tags:       append([]string(nil), tags...),
		CreatedAt:  s.now().UTC(),
	}

	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	w, err := s.store.Create(ctx, obj)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(w, rc); err != nil {
		s.abort(ctx, w)
		return nil, err
	}
	if err := w.Close(); err != nil {
		s.abort(ctx, w)
		return nil, err
	}
	return obj, nil
}

func (s *FileService) abort(ctx context.Context, w *blobstore.Writer) {
	ctx = context.WithoutCancel(ctx)
	if err := w.Abort(ctx); err != nil {
		s.logger.Warn(ctx, "abort left a tombstone", "short_id", w.Object().ShortID, "error", err)
	}
}

// rollback deletes the objects that sibling pipelines had already committed.
func (s *FileService) rollback(ctx context.Context, objs []*models.FileObject) {
	for _, obj := range objs {
		if obj == nil {
			continue
		}
		if err := s.store.Delete(ctx, obj); err != nil {
			s.logger.Warn(ctx, "rollback left a tombstone", "short_id", obj.ShortID, "error", err)
		}
	}
}

func uploadTags(defaults, requested []string) []string {
	tags := append([]string(nil), defaults...)
	if len(requested) == 0 {
		return append(tags, common.DefaultUploadTag)
	}
	return append(tags, requested...)
}

// Retrieve resolves rawID (an optional ".ext" suffix is ignored) to a
// stream with inferred content type. p is nil for anonymous requests.
func (s *FileService) Retrieve(ctx context.Context, p *models.Principal, rawID string, attachment bool) (*Download, error) {
	shortID, _, _ := strings.Cut(rawID, ".")
	if shortID == "" {
		return nil, common.ErrorNotFound
	}

	obj, err := s.lookup(ctx, shortID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Check(p, obj); err != nil {
		return nil, err
	}

	rc, err := s.store.Open(ctx, obj)
	if err != nil {
		return nil, err
	}
	contentType, body, err := sniff.Detect(rc, obj.Filename)
	if err != nil {
		rc.Close()
		return nil, err
	}

	return &Download{
		Filename:    obj.Filename,
		ContentType: contentType,
		Disposition: sniff.Disposition(obj.Filename, attachment),
		Size:        obj.Size,
		Body:        readCloser{Reader: body, Closer: rc},
	}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

func (s *FileService) lookup(ctx context.Context, shortID string) (*models.FileObject, error) {
	if obj, ok := s.cache.Get(ctx, shortID); ok {
		return obj, nil
	}
	obj, err := s.index.GetByShortID(ctx, shortID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, obj)
	return obj, nil
}

// List returns every complete file owned by p, oldest first.
func (s *FileService) List(ctx context.Context, p *models.Principal) ([]*models.FileObject, error) {
	list, err := s.index.ListByOwner(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.FileObject{}
	}
	return list, nil
}

// Delete removes a file owned by p. Files of other owners are reported as
// missing.
func (s *FileService) Delete(ctx context.Context, p *models.Principal, shortID string) error {
	obj, err := s.index.GetByShortIDForOwner(ctx, shortID, p.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		s.logger.Error(ctx, "delete lookup failed", "short_id", shortID, "error", err)
		return common.ErrorInternal
	}
	if err := s.Purge(ctx, obj); err != nil {
		return err
	}
	s.metrics.FileDeleted()
	s.logger.Info(ctx, "file deleted", "short_id", shortID, "user", p.UserID)
	return nil
}

// Purge removes obj regardless of owner and drops it from the cache.
func (s *FileService) Purge(ctx context.Context, obj *models.FileObject) error {
	s.cache.Invalidate(ctx, obj.ShortID)
	if err := s.store.Delete(ctx, obj); err != nil {
		s.logger.Error(ctx, "delete failed", "short_id", obj.ShortID, "error", err)
		return common.ErrorInternal
	}
	s.cache.Invalidate(ctx, obj.ShortID)
	return nil
}
