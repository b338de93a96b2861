package videos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/hbromell/grab/internal/api/util"
	"github.com/hbromell/grab/internal/extractor"
	"github.com/hbromell/grab/internal/media"
	"github.com/hbromell/grab/pkg/logger"
	"github.com/labstack/echo/v4"
)

var controllerLogger = logger.Get("VideosController")

type (
	VideoInfoRequest struct {
		URL string `json:"url" validate:"required"`
	}

	DownloadRequest struct {
		URL      string `json:"url" validate:"required"`
		FormatID string `json:"format_id" validate:"required"`
	}

	VideoFormatDto struct {
		FormatID   string  `json:"format_id"`
		Ext        string  `json:"ext"`
		Quality    string  `json:"quality"`
		Filesize   *int64  `json:"filesize"`
		FormatNote *string `json:"format_note"`
	}

	VideoInfoDto struct {
		Title     string           `json:"title"`
		Duration  *int             `json:"duration"`
		Thumbnail *string          `json:"thumbnail"`
		Uploader  *string          `json:"uploader"`
		ViewCount *int64           `json:"view_count"`
		Formats   []VideoFormatDto `json:"formats"`
		URL       string           `json:"url"`
	}

	// ExtractorService is the boundary this controller forwards to. Both
	// operations block until the underlying tool invocation completes (or
	// fails); the service owns pooling and timeouts.
	ExtractorService interface {
		VideoInfo(ctx context.Context, url string) (*media.VideoInfo, error)
		Download(ctx context.Context, url string, formatID string) (*extractor.Artifact, error)
	}

	// Controller defines the routes for the video lookup/download surface
	// and holds the reference to the extractor service they forward to.
	Controller struct {
		validate *validator.Validate
		service  ExtractorService
	}
)

func New(validate *validator.Validate, serv ExtractorService) *Controller {
	return &Controller{validate: validate, service: serv}
}

// SetRoutes accepts the Echo group for the /api endpoints and sets the
// routes on it.
func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.root)
	eg.POST("/video-info/", controller.getVideoInfo)
	eg.POST("/download/", controller.download)
}

func (controller *Controller) root(ec echo.Context) error {
	return ec.JSON(http.StatusOK, map[string]string{"message": "YouTube Downloader API"})
}

// getVideoInfo looks up metadata for the requested URL and returns the
// reshaped format list.
func (controller *Controller) getVideoInfo(ec echo.Context) error {
	var request VideoInfoRequest
	if err := controller.bind(ec, &request); err != nil {
		return err
	}

	info, err := controller.service.VideoInfo(ec.Request().Context(), request.URL)
	if err != nil {
		return asHTTPError(err)
	}

	return ec.JSON(http.StatusOK, NewVideoInfoDto(info))
}

// download fetches the requested format and streams the produced file back
// to the caller, advertising its exact size and an attachment filename.
func (controller *Controller) download(ec echo.Context) error {
	var request DownloadRequest
	if err := controller.bind(ec, &request); err != nil {
		return err
	}

	artifact, err := controller.service.Download(ec.Request().Context(), request.URL, request.FormatID)
	if err != nil {
		return asHTTPError(err)
	}
	defer func() {
		// Closing also removes the scratch directory the download ran in.
		if closeErr := artifact.Close(); closeErr != nil {
			controllerLogger.Emit(logger.WARNING, "Failed to release download artifact '%s': %v\n", artifact.Name, closeErr)
		}
	}()

	ec.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", artifact.Name))
	ec.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(artifact.Size, 10))
	return ec.Stream(http.StatusOK, "application/octet-stream", artifact.File)
}

func (controller *Controller) bind(ec echo.Context, request any) error {
	if err := ec.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("JSON body illegal: %v", err))
	}
	if err := controller.validate.Struct(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Request invalid: %v", err))
	}

	return nil
}

// asHTTPError maps the extractor's error kinds onto HTTP statuses. Errors
// that did not come from the extractor at all are internal.
func asHTTPError(err error) *echo.HTTPError {
	var extractorErr *extractor.Error
	if !errors.As(err, &extractorErr) {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("Unexpected error: %v", err))
	}

	switch extractorErr.Kind {
	case extractor.KindInvalidInput, extractor.KindTool:
		return echo.NewHTTPError(http.StatusBadRequest, extractorErr.Detail)
	case extractor.KindNotFound:
		return echo.NewHTTPError(http.StatusNotFound, extractorErr.Detail)
	case extractor.KindAccessDenied:
		return echo.NewHTTPError(http.StatusForbidden, extractorErr.Detail)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, extractorErr.Detail)
	}
}

// NewVideoInfoDto creates a VideoInfoDto using the VideoInfo model.
func NewVideoInfoDto(info *media.VideoInfo) *VideoInfoDto {
	return &VideoInfoDto{
		Title:     info.Title,
		Duration:  info.Duration,
		Thumbnail: info.Thumbnail,
		Uploader:  info.Uploader,
		ViewCount: info.ViewCount,
		Formats:   util.ApplyConversion(info.Formats, NewVideoFormatDto),
		URL:       info.URL,
	}
}

func NewVideoFormatDto(format media.VideoFormat) VideoFormatDto {
	return VideoFormatDto{
		FormatID:   format.FormatID,
		Ext:        format.Ext,
		Quality:    format.Quality,
		Filesize:   format.Filesize,
		FormatNote: format.FormatNote,
	}
}
