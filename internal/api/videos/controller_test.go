package videos_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/hbromell/grab/internal/api/videos"
	"github.com/hbromell/grab/internal/extractor"
	"github.com/hbromell/grab/internal/media"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService records calls and plays back canned results; keeping the
// extractor out of these tests entirely.
type stubService struct {
	info          *media.VideoInfo
	infoErr       error
	artifact      *extractor.Artifact
	downloadErr   error
	infoCalls     int
	downloadCalls int
}

func (s *stubService) VideoInfo(ctx context.Context, url string) (*media.VideoInfo, error) {
	s.infoCalls++
	return s.info, s.infoErr
}

func (s *stubService) Download(ctx context.Context, url string, formatID string) (*extractor.Artifact, error) {
	s.downloadCalls++
	return s.artifact, s.downloadErr
}

func newRouter(service videos.ExtractorService) *echo.Echo {
	ec := echo.New()
	videos.New(validator.New(), service).SetRoutes(ec.Group("/api"))
	return ec
}

func performJSON(ec *echo.Echo, method string, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ec.ServeHTTP(rec, req)
	return rec
}

func Test_Root(t *testing.T) {
	rec := performJSON(newRouter(&stubService{}), http.MethodGet, "/api/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message": "YouTube Downloader API"}`, rec.Body.String())
}

func Test_GetVideoInfo_Success(t *testing.T) {
	duration := 212
	size := int64(1024)
	service := &stubService{info: &media.VideoInfo{
		Title:    "Test Video",
		Duration: &duration,
		Formats: []media.VideoFormat{
			{FormatID: "22", Ext: "mp4", Quality: "720p", Filesize: &size},
			{FormatID: "18", Ext: "mp4", Quality: "360p"},
		},
		URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	}}

	rec := performJSON(newRouter(service), http.MethodPost, "/api/video-info/", `{"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, service.infoCalls)
	assert.Contains(t, rec.Body.String(), `"format_id":"22"`)
	assert.Contains(t, rec.Body.String(), `"quality":"720p"`)
	assert.Contains(t, rec.Body.String(), `"title":"Test Video"`)
}

func Test_GetVideoInfo_MissingURLRejectedBeforeService(t *testing.T) {
	service := &stubService{}
	rec := performJSON(newRouter(service), http.MethodPost, "/api/video-info/", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, service.infoCalls)
}

func Test_GetVideoInfo_IllegalBodyRejectedBeforeService(t *testing.T) {
	service := &stubService{}
	rec := performJSON(newRouter(service), http.MethodPost, "/api/video-info/", `{"url": 42`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, service.infoCalls)
}

func Test_GetVideoInfo_ErrorKindsMapToStatuses(t *testing.T) {
	tests := []struct {
		summary        string
		err            *extractor.Error
		expectedStatus int
	}{
		{"Invalid input", &extractor.Error{Kind: extractor.KindInvalidInput, Detail: "Invalid YouTube URL format"}, http.StatusBadRequest},
		{"Not found", &extractor.Error{Kind: extractor.KindNotFound, Detail: "Video not found or unavailable"}, http.StatusNotFound},
		{"Access denied", &extractor.Error{Kind: extractor.KindAccessDenied, Detail: "Video is private"}, http.StatusForbidden},
		{"Tool failure", &extractor.Error{Kind: extractor.KindTool, Detail: "Error extracting video info: boom"}, http.StatusBadRequest},
		{"Internal", &extractor.Error{Kind: extractor.KindInternal, Detail: "Unexpected error: boom"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			rec := performJSON(newRouter(&stubService{infoErr: tt.err}), http.MethodPost, "/api/video-info/", `{"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}`)
			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func Test_Download_StreamsArtifactWithHeaders(t *testing.T) {
	payload := "these are the downloaded bytes"
	path := filepath.Join(t.TempDir(), "My Video.mp4")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))
	file, err := os.Open(path)
	require.NoError(t, err)

	service := &stubService{artifact: &extractor.Artifact{File: file, Name: "My Video.mp4", Size: int64(len(payload))}}
	rec := performJSON(newRouter(service), http.MethodPost, "/api/download/", `{"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "format_id": "18"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, rec.Body.String())
	assert.Equal(t, `attachment; filename="My Video.mp4"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, strconv.Itoa(len(payload)), rec.Header().Get(echo.HeaderContentLength))
	assert.True(t, strings.HasSuffix(service.artifact.Name, ".mp4"))
}

func Test_Download_MissingFormatIDRejectedBeforeService(t *testing.T) {
	service := &stubService{}
	rec := performJSON(newRouter(service), http.MethodPost, "/api/download/", `{"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, service.downloadCalls)
}

func Test_Download_FailureIsServerError(t *testing.T) {
	service := &stubService{downloadErr: &extractor.Error{Kind: extractor.KindInternal, Detail: "Download failed - no file created"}}
	rec := performJSON(newRouter(service), http.MethodPost, "/api/download/", `{"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "format_id": "18"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
