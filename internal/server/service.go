package server

import (
	"context"

	"linttrack/internal/logging"
)

// Downloader fetches fresh issues for one file.
type Downloader interface {
	DownloadIssues(ctx context.Context, moduleKey, fileKey string) ([]ServerIssue, error)
}

// Service combines the remote client with the issue cache. Successful
// downloads refresh the cache.
type Service struct {
	downloader Downloader
	cache      IssueCache
	logger     *logging.Logger
}

// NewService creates a service. cache may be nil, in which case nothing is
// cached and CachedIssues always returns an empty list.
func NewService(downloader Downloader, cache IssueCache, logger *logging.Logger) *Service {
	return &Service{
		downloader: downloader,
		cache:      cache,
		logger:     logger,
	}
}

// DownloadIssues fetches the issues of fileKey and stores them in the cache.
// Download errors are returned unchanged; a cache write failure is only logged.
func (s *Service) DownloadIssues(ctx context.Context, moduleKey, fileKey string) ([]ServerIssue, error) {
	issues, err := s.downloader.DownloadIssues(ctx, moduleKey, fileKey)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, moduleKey, fileKey, issues); err != nil {
			s.logger.Warn("Failed to cache server issues", map[string]interface{}{
				"module": moduleKey,
				"file":   fileKey,
				"error":  err.Error(),
			})
		}
	}
	return issues, nil
}

// CachedIssues returns the last downloaded issues of a project-relative path.
// It never fails: lookup errors are logged and yield an empty list.
func (s *Service) CachedIssues(ctx context.Context, moduleKey, relativePath string) []ServerIssue {
	if s.cache == nil {
		return []ServerIssue{}
	}
	fileKey := FileKey(relativePath)
	issues, ok, err := s.cache.Get(ctx, moduleKey, fileKey)
	if err != nil {
		s.logger.Warn("Failed to read cached server issues", map[string]interface{}{
			"module": moduleKey,
			"file":   fileKey,
			"error":  err.Error(),
		})
		return []ServerIssue{}
	}
	if !ok {
		return []ServerIssue{}
	}
	return issues
}

// Close releases the cache.
func (s *Service) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}
