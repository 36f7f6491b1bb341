package resize

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainimage "image-resizer-go/internal/domain/image"
	"image-resizer-go/internal/platform/config"
	platformtesting "image-resizer-go/internal/platform/testing"
	httptransport "image-resizer-go/internal/transport/http"
)

type upload struct {
	name string
	data []byte
}

func newTestEngine(t *testing.T, mutate func(*config.Config)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := platformtesting.SetupTestConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	logger := platformtesting.SetupTestLogger(t, nil)
	resizer := domainimage.New(domainimage.Options{
		Limits: domainimage.Limits{
			MaxItems:          cfg.Limits.MaxFiles,
			MaxTotalBytes:     cfg.Limits.MaxUploadBytes,
			AllowedExtensions: cfg.Limits.AllowedExtensions,
		},
		Logger: logger,
	})

	svc, err := NewService(cfg, logger, resizer)
	require.NoError(t, err)

	engine := gin.New()
	require.NoError(t, svc.Register(context.Background(), engine.Group("/api")))
	return engine
}

func multipartRequest(t *testing.T, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile("images", f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/resize", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) httptransport.APIResponse {
	t.Helper()
	var resp httptransport.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandleResize_Success(t *testing.T) {
	engine := newTestEngine(t, nil)
	png := platformtesting.PNG(t, 16, 16)

	req := multipartRequest(t, map[string]string{"width": "32", "height": "24"},
		upload{"a.png", png},
		upload{"b.png", png},
		upload{"broken.png", []byte("junk")},
	)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="resized_images_32x24.zip"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "2", rec.Header().Get(httptransport.HeaderProcessedCount))
	assert.Equal(t, "1", rec.Header().Get(httptransport.HeaderFailedCount))
	assert.NotEmpty(t, rec.Header().Get(httptransport.HeaderBatchID))

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "resized_a_32x24.png", zr.File[0].Name)
	assert.Equal(t, "resized_b_32x24.png", zr.File[1].Name)
}

func TestHandleResize_DefaultsAndFormat(t *testing.T) {
	engine := newTestEngine(t, nil)

	req := multipartRequest(t, map[string]string{"format": "webp"}, upload{"photo.jpg", platformtesting.JPEG(t, 10, 10)})
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "resized_photo_800x600.webp", zr.File[0].Name)
}

func TestHandleResize_Errors(t *testing.T) {
	png := platformtesting.PNG(t, 4, 4)
	many := make([]upload, 21)
	for i := range many {
		many[i] = upload{"p" + strconv.Itoa(i) + ".png", png}
	}

	tests := []struct {
		name   string
		fields map[string]string
		files  []upload
		status int
	}{
		{"no files", nil, nil, http.StatusBadRequest},
		{"bad width", map[string]string{"width": "wide"}, []upload{{"a.png", png}}, http.StatusBadRequest},
		{"zero height", map[string]string{"height": "0"}, []upload{{"a.png", png}}, http.StatusBadRequest},
		{"bad format", map[string]string{"format": "heic"}, []upload{{"a.png", png}}, http.StatusBadRequest},
		{"no valid images", nil, []upload{{"a.txt", []byte("hi")}}, http.StatusBadRequest},
		{"too many files", nil, many, http.StatusBadRequest},
		{"nothing succeeded", nil, []upload{{"a.png", []byte("junk")}}, http.StatusUnprocessableEntity},
	}

	engine := newTestEngine(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, multipartRequest(t, tt.fields, tt.files...))

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decodeEnvelope(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.status, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestHandleResize_ZeroSuccessListsFailures(t *testing.T) {
	engine := newTestEngine(t, nil)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, multipartRequest(t, nil, upload{"a.png", []byte("junk")}))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp struct {
		Message string        `json:"message"`
		Data    ResizeFailure `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "no images were processed successfully", resp.Message)
	require.Len(t, resp.Data.Failures, 1)
	assert.Equal(t, "a.png", resp.Data.Failures[0].SourceName)
	assert.Equal(t, "decode error", resp.Data.Failures[0].Reason)
}

func TestHandleResize_BodyTooLarge(t *testing.T) {
	engine := newTestEngine(t, func(cfg *config.Config) {
		cfg.Limits.MaxUploadBytes = 1024
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, multipartRequest(t, nil, upload{"big.png", bytes.Repeat([]byte{1}, 4096)}))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandleResize_NotMultipart(t *testing.T) {
	engine := newTestEngine(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/resize", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleInfo(t *testing.T) {
	engine := newTestEngine(t, nil)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/resize/info", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool       `json:"success"`
		Data    ResizeInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 20, resp.Data.MaxFiles)
	assert.Equal(t, int64(16*1024*1024), resp.Data.MaxUploadBytes)
	assert.Equal(t, "16 MiB", resp.Data.MaxUploadHuman)
	assert.Contains(t, resp.Data.SupportedFormats, "WEBP")
	assert.Len(t, resp.Data.MediaTypes, len(resp.Data.SupportedFormats))
	assert.Equal(t, "image/webp", resp.Data.MediaTypes["WEBP"])
	assert.Equal(t, "image/jpeg", resp.Data.MediaTypes["JPEG"])
	assert.Equal(t, 800, resp.Data.DefaultWidth)
}

func TestNewService_RequiresDependencies(t *testing.T) {
	cfg := platformtesting.SetupTestConfig(t)
	logger := platformtesting.SetupTestLogger(t, nil)

	_, err := NewService(nil, logger, domainimage.New(domainimage.Options{}))
	assert.Error(t, err)
	_, err = NewService(cfg, nil, domainimage.New(domainimage.Options{}))
	assert.Error(t, err)
	_, err = NewService(cfg, logger, nil)
	assert.Error(t, err)
}
