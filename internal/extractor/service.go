package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hbromell/grab/internal/media"
	"github.com/hbromell/grab/pkg/logger"
	"github.com/hbromell/grab/pkg/worker"
)

var log = logger.Get("Extractor")

type Config struct {
	BinaryPath             string `yaml:"binary_path" env:"EXTRACTOR_BINARY" env-default:"yt-dlp"`
	PoolSize               int    `yaml:"pool_size" env:"EXTRACTOR_POOL_SIZE" env-default:"3"`
	MetadataTimeoutSeconds int    `yaml:"metadata_timeout_seconds" env:"EXTRACTOR_METADATA_TIMEOUT" env-default:"120"`
	DownloadTimeoutSeconds int    `yaml:"download_timeout_seconds" env:"EXTRACTOR_DOWNLOAD_TIMEOUT" env-default:"600"`
	DownloadDirPath        string `yaml:"download_dir" env:"DOWNLOAD_DIR"`
}

// Service orchestrates the extraction tool: it validates input, offloads
// the blocking tool invocations to the bounded worker pool, and reshapes
// or classifies whatever comes back. Requests are independent and
// stateless; a request either completes or fails, there is no job
// lifecycle.
type Service struct {
	client Client
	pool   *worker.Pool
	config Config
}

// New constructs the extractor service. The pool bounds how many tool
// invocations run simultaneously; the client is injected so tests can
// substitute a scripted tool.
func New(config Config, pool *worker.Pool, client Client) *Service {
	return &Service{client: client, pool: pool, config: config}
}

// Artifact is a downloaded file ready to be streamed to a caller. Close
// releases the file handle and removes the scratch directory the download
// ran in, so callers must not Close until the bytes have been consumed.
type Artifact struct {
	File *os.File
	Name string
	Size int64
	dir  string
}

func (artifact *Artifact) Close() error {
	err := artifact.File.Close()
	if rmErr := os.RemoveAll(artifact.dir); rmErr != nil && err == nil {
		err = rmErr
	}

	return err
}

// VideoInfo validates the URL, runs a metadata-only extraction on the
// worker pool, and reshapes the tool's format list: only combined-stream
// candidates (both video and audio codecs present) are kept, each is
// labelled with its quality, and the result is ordered by descending
// numeric quality.
func (service *Service) VideoInfo(ctx context.Context, url string) (*media.VideoInfo, error) {
	if !media.IsValidVideoURL(url) {
		return nil, newError(KindInvalidInput, "Invalid YouTube URL format")
	}

	var info *RawInfo
	err := service.pool.Submit(ctx, "video-info", func() error {
		opCtx, cancel := context.WithTimeout(ctx, service.metadataTimeout())
		defer cancel()

		raw, err := service.client.ExtractInfo(opCtx, url)
		if err != nil {
			return err
		}

		info = raw
		return nil
	})
	if err != nil {
		return nil, service.classifyInfoFailure(err)
	}

	if info == nil {
		return nil, newError(KindNotFound, "Video not found or unavailable")
	}

	return reshapeInfo(info, url), nil
}

// Download validates the URL, creates an isolated scratch directory for
// this request, and instructs the tool (via the worker pool) to fetch the
// exact format requested. Exactly one file is expected to appear in the
// scratch directory; none appearing means the download silently failed.
func (service *Service) Download(ctx context.Context, url string, formatID string) (*Artifact, error) {
	if !media.IsValidVideoURL(url) {
		return nil, newError(KindInvalidInput, "Invalid YouTube URL format")
	}

	dir := filepath.Join(service.downloadParentDir(), "grab-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, newError(KindInternal, "Error downloading video: %s", err.Error())
	}

	outputTemplate := filepath.Join(dir, "%(title)s.%(ext)s")
	err := service.pool.Submit(ctx, "download", func() error {
		opCtx, cancel := context.WithTimeout(ctx, service.downloadTimeout())
		defer cancel()

		return service.client.Download(opCtx, url, formatID, outputTemplate)
	})
	if err != nil {
		os.RemoveAll(dir)
		return nil, service.classifyDownloadFailure(err)
	}

	artifact, err := collectArtifact(dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	log.Emit(logger.SUCCESS, "Download of '%s' (format %s) produced '%s' (%d bytes)\n", url, formatID, artifact.Name, artifact.Size)
	return artifact, nil
}

// collectArtifact lists the scratch directory the tool downloaded into and
// opens the single file expected to be there.
func collectArtifact(dir string) (*Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, newError(KindInternal, "Error downloading video: %s", err.Error())
	}
	if len(entries) == 0 {
		return nil, newError(KindInternal, "Download failed - no file created")
	}

	name := entries[0].Name()
	path := filepath.Join(dir, name)
	file, err := os.Open(path)
	if err != nil {
		return nil, newError(KindInternal, "Error downloading video: %s", err.Error())
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, newError(KindInternal, "Error downloading video: %s", err.Error())
	}

	return &Artifact{File: file, Name: name, Size: stat.Size(), dir: dir}, nil
}

// reshapeInfo converts the tool's raw dump into the domain model. Entries
// which are video-only or audio-only are dropped.
func reshapeInfo(info *RawInfo, url string) *media.VideoInfo {
	formats := make([]media.VideoFormat, 0, len(info.Formats))
	for _, raw := range info.Formats {
		if !raw.IsCombinedStream() {
			continue
		}

		ext := raw.Ext
		if ext == "" {
			ext = "mp4"
		}

		var note *string
		if raw.FormatNote != "" {
			n := raw.FormatNote
			note = &n
		}

		formats = append(formats, media.VideoFormat{
			FormatID:   raw.FormatID,
			Ext:        ext,
			Quality:    media.QualityLabel(raw.Height, raw.FormatNote),
			Filesize:   raw.Filesize,
			FormatNote: note,
		})
	}
	media.SortFormatsByQuality(formats)

	title := info.Title
	if title == "" {
		title = "Unknown"
	}

	var duration *int
	if info.Duration != nil {
		d := int(*info.Duration)
		duration = &d
	}

	return &media.VideoInfo{
		Title:     title,
		Duration:  duration,
		Thumbnail: info.Thumbnail,
		Uploader:  info.Uploader,
		ViewCount: info.ViewCount,
		Formats:   formats,
		URL:       url,
	}
}

// classifyInfoFailure applies the substring table to tool failures; a tool
// failure matching no known phrase surfaces the tool's message as a client
// error, and anything that wasn't a tool failure at all is internal.
func (service *Service) classifyInfoFailure(err error) *Error {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return classifyToolFailure(
			toolErr.Output,
			newError(KindTool, "Error extracting video info: %s", toolErr.Output),
		)
	}

	return newError(KindInternal, "Unexpected error: %s", err.Error())
}

// classifyDownloadFailure: every failure during the download itself is a
// server error carrying the underlying message.
func (service *Service) classifyDownloadFailure(err error) *Error {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return newError(KindInternal, "Error downloading video: %s", toolErr.Output)
	}

	return newError(KindInternal, "Error downloading video: %s", err.Error())
}

func (service *Service) metadataTimeout() time.Duration {
	return secondsOrDefault(service.config.MetadataTimeoutSeconds, 120)
}

func (service *Service) downloadTimeout() time.Duration {
	return secondsOrDefault(service.config.DownloadTimeoutSeconds, 600)
}

func (service *Service) downloadParentDir() string {
	if service.config.DownloadDirPath != "" {
		return service.config.DownloadDirPath
	}

	return os.TempDir()
}

func secondsOrDefault(seconds int, dflt int) time.Duration {
	if seconds <= 0 {
		seconds = dflt
	}

	return time.Duration(seconds) * time.Second
}
