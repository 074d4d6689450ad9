package screenshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/screenshot/internal/model"
	"github.com/aliskhannn/screenshot/internal/storage/file"
)

const publishTimeout = 5 * time.Second

// resolver turns a raw request path into a capture request.
type resolver interface {
	ResolvePath(rawPath string) (model.CaptureRequest, error)
}

// capturer renders a capture request.
type capturer interface {
	Capture(ctx context.Context, req model.CaptureRequest) model.CaptureResult
}

// fileStorage defines the interface for the screenshot cache (e.g. MinIO).
type fileStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader, size int64, contentType string) (string, error)
	Load(ctx context.Context, path string) (file.Object, error)
}

// publisher defines the interface for emitting capture events (e.g. Kafka).
type publisher interface {
	Publish(ctx context.Context, ev model.CaptureEvent) error
}

// Service serves screenshots: it resolves the path, answers from the cache
// when it can and otherwise runs a capture. Cache and publisher are optional
// and never change the result.
type Service struct {
	resolver    resolver
	capturer    capturer
	fileStorage fileStorage
	publisher   publisher
	prefix      string
	strategy    retry.Strategy

	wg sync.WaitGroup
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithCache enables the screenshot cache under the given subdirectory.
func WithCache(fs fileStorage, prefix string, s retry.Strategy) Option {
	return func(svc *Service) {
		svc.fileStorage = fs
		svc.prefix = prefix
		svc.strategy = s
	}
}

// WithPublisher enables capture event publishing.
func WithPublisher(p publisher) Option {
	return func(svc *Service) {
		svc.publisher = p
	}
}

// NewService creates a new Service.
func NewService(r resolver, c capturer, opts ...Option) *Service {
	s := &Service{resolver: r, capturer: c}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Screenshot resolves rawPath and returns the screenshot or a classified failure.
func (s *Service) Screenshot(ctx context.Context, rawPath string) model.CaptureResult {
	start := time.Now()

	req, err := s.resolver.ResolvePath(rawPath)
	if err != nil {
		var f *model.Failure
		if !errors.As(err, &f) {
			f = model.NewFailure(model.KindInvalidURL, err.Error())
		}

		zlog.Logger.Warn().Err(err).Str("path", rawPath).Str("kind", string(f.Kind)).Msg("failed to resolve request")

		res := model.Failed(f)
		s.publish(ctx, req, res, time.Since(start))

		return res
	}

	key := s.cacheKey(req)

	if res, ok := s.fromCache(ctx, req, key); ok {
		s.publish(ctx, req, res, time.Since(start))
		return res
	}

	res := s.capturer.Capture(ctx, req)

	// Partial renders are served but not kept.
	if res.OK() && !res.Truncated {
		s.toCache(ctx, key, res)
	}

	s.publish(ctx, req, res, time.Since(start))

	return res
}

// Wait blocks until pending event publications are done.
func (s *Service) Wait() {
	s.wg.Wait()
}

// cacheKey derives a deterministic object name from the resolved request.
func (s *Service) cacheKey(req model.CaptureRequest) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(req.Canonical()))
	return fmt.Sprintf("%s.%s", id, req.Format)
}

func (s *Service) fromCache(ctx context.Context, req model.CaptureRequest, key string) (model.CaptureResult, bool) {
	if s.fileStorage == nil {
		return model.CaptureResult{}, false
	}

	obj, err := s.fileStorage.Load(ctx, s.prefix+"/"+key)
	if err != nil {
		if !errors.Is(err, file.ErrObjectNotFound) {
			zlog.Logger.Warn().Err(err).Str("key", key).Msg("screenshot cache lookup failed")
		}
		return model.CaptureResult{}, false
	}
	defer obj.Body.Close()

	img, err := io.ReadAll(obj.Body)
	if err != nil || len(img) == 0 {
		zlog.Logger.Warn().Err(err).Str("key", key).Msg("failed to read cached screenshot")
		return model.CaptureResult{}, false
	}

	res := model.Succeeded(img, req.Format, req.Viewport)
	res.Cached = true

	return res, true
}

func (s *Service) toCache(ctx context.Context, key string, res model.CaptureResult) {
	if s.fileStorage == nil {
		return
	}

	err := retry.Do(func() error {
		_, err := s.fileStorage.Save(ctx, s.prefix, key, bytes.NewReader(res.Image), int64(len(res.Image)), res.ContentType)
		return err
	}, s.strategy)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("key", key).Msg("failed to cache screenshot")
	}
}

func (s *Service) publish(ctx context.Context, req model.CaptureRequest, res model.CaptureResult, took time.Duration) {
	if s.publisher == nil {
		return
	}

	ev := model.NewCaptureEvent(req, res, took)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()

		if err := s.publisher.Publish(pctx, ev); err != nil {
			zlog.Logger.Warn().Err(err).Str("id", ev.ID.String()).Msg("failed to publish capture event")
		}
	}()
}
