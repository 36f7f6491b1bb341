package resize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainimage "image-resizer-go/internal/domain/image"
	"image-resizer-go/internal/platform/config"
	platformerrors "image-resizer-go/internal/platform/errors"
	"image-resizer-go/internal/platform/logging"
	"image-resizer-go/internal/platform/observability"
	httptransport "image-resizer-go/internal/transport/http"
)

// formMemory is how much of a multipart body ParseMultipartForm keeps in
// memory before spilling file parts to disk.
const formMemory = 8 << 20

// Service exposes the batch pipeline over HTTP.
type Service struct {
	logger         *logging.Logger
	resizer        *domainimage.Resizer
	defaults       config.ResizeConfig
	maxUploadBytes int64
}

func NewService(cfg *config.Config, logger *logging.Logger, resizer *domainimage.Resizer) (*Service, error) {
	if cfg == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "resize.new", "config is required")
	}
	if logger == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "resize.new", "logger is required")
	}
	if resizer == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "resize.new", "resizer is required")
	}

	return &Service{
		logger:         logger,
		resizer:        resizer,
		defaults:       cfg.Resize,
		maxUploadBytes: cfg.Limits.MaxUploadBytes,
	}, nil
}

// Register mounts the resize routes on router.
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.POST("/resize", s.handleResize)
	router.GET("/resize/info", s.handleInfo)

	s.logger.InfoTag("HTTP", "resize routes registered")
	return nil
}

func (s *Service) handleInfo(c *gin.Context) {
	limits := s.resizer.Limits()
	formats := make([]string, 0, len(domainimage.SupportedFormats))
	mediaTypes := make(map[string]string, len(domainimage.SupportedFormats))
	for _, f := range domainimage.SupportedFormats {
		formats = append(formats, f.String())
		mediaTypes[f.String()] = f.MIMEType()
	}

	httptransport.RespondSuccess(c, http.StatusOK, ResizeInfo{
		MaxFiles:          limits.MaxItems,
		MaxUploadBytes:    limits.MaxTotalBytes,
		MaxUploadHuman:    humanize.IBytes(uint64(limits.MaxTotalBytes)),
		AllowedExtensions: limits.AllowedExtensions,
		SupportedFormats:  formats,
		MediaTypes:        mediaTypes,
		DefaultWidth:      s.defaults.DefaultWidth,
		DefaultHeight:     s.defaults.DefaultHeight,
	}, "")
}

func (s *Service) handleResize(c *gin.Context) {
	if s.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes)
	}

	if err := c.Request.ParseMultipartForm(formMemory); err != nil {
		if isBodyTooLarge(err) {
			s.logger.WarnTag("HTTP", "upload rejected: body over %d bytes", s.maxUploadBytes)
			httptransport.RespondError(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %s", humanize.IBytes(uint64(s.maxUploadBytes))), nil)
			return
		}
		httptransport.RespondError(c, http.StatusBadRequest, "expected a multipart/form-data upload", nil)
		return
	}
	defer func() {
		if c.Request.MultipartForm != nil {
			_ = c.Request.MultipartForm.RemoveAll()
		}
	}()

	spec, err := s.parseSpec(c)
	if err != nil {
		httptransport.RespondFailure(c, err, nil)
		return
	}

	files := c.Request.MultipartForm.File["images"]
	if len(files) == 0 {
		httptransport.RespondError(c, http.StatusBadRequest, "no files uploaded", nil)
		return
	}
	items, err := readItems(files)
	if err != nil {
		httptransport.RespondFailure(c, err, nil)
		return
	}

	batchID := uuid.NewString()
	ctx := observability.WithBatchID(c.Request.Context(), batchID)
	c.Header(httptransport.HeaderBatchID, batchID)

	summary, err := s.resizer.Resize(ctx, items, spec)
	if err != nil {
		s.logger.WarnTag("HTTP", "batch %s rejected: %v", batchID, err)
		if errors.Is(err, domainimage.ErrPayloadTooLarge) {
			httptransport.RespondError(c, http.StatusRequestEntityTooLarge, platformerrors.Message(err), nil)
			return
		}
		httptransport.RespondFailure(c, err, failureBody(batchID, summary))
		return
	}

	report, err := s.resizer.Package(summary)
	if err != nil {
		httptransport.RespondFailure(c, err, failureBody(batchID, summary))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.SuggestedFileName))
	c.Header(httptransport.HeaderProcessedCount, strconv.Itoa(report.SuccessCount))
	c.Header(httptransport.HeaderFailedCount, strconv.Itoa(report.FailureCount))
	c.Data(http.StatusOK, "application/zip", report.ArchiveBytes)
}

// parseSpec reads width, height and format, defaulting the dimensions from
// configuration when a field is absent.
func (s *Service) parseSpec(c *gin.Context) (domainimage.ResizeSpec, error) {
	width, err := formInt(c.Request.FormValue("width"), s.defaults.DefaultWidth)
	if err != nil {
		return domainimage.ResizeSpec{}, platformerrors.Wrap(platformerrors.KindTransport, "resize.parse",
			"width and height must be positive integers", err)
	}
	height, err := formInt(c.Request.FormValue("height"), s.defaults.DefaultHeight)
	if err != nil {
		return domainimage.ResizeSpec{}, platformerrors.Wrap(platformerrors.KindTransport, "resize.parse",
			"width and height must be positive integers", err)
	}
	format, err := domainimage.ParseFormat(c.Request.FormValue("format"))
	if err != nil {
		return domainimage.ResizeSpec{}, err
	}

	spec := domainimage.ResizeSpec{Width: width, Height: height, Format: format}
	if err := spec.Validate(); err != nil {
		return domainimage.ResizeSpec{}, err
	}
	return spec, nil
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return true
	}
	// older multipart paths flatten the error to its text
	return strings.Contains(err.Error(), "request body too large")
}

func failureBody(batchID string, summary *domainimage.BatchSummary) ResizeFailure {
	body := ResizeFailure{BatchID: batchID}
	if summary == nil {
		return body
	}
	for _, f := range summary.Failures() {
		body.Failures = append(body.Failures, FailureDetail{SourceName: f.SourceName, Reason: string(f.Reason)})
	}
	return body
}

func formInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func readItems(files []*multipart.FileHeader) ([]domainimage.RawItem, error) {
	items := make([]domainimage.RawItem, 0, len(files))
	for _, fh := range files {
		data, err := readPart(fh)
		if err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindTransport, "resize.read",
				"could not read upload", fmt.Errorf("%s: %w", fh.Filename, err))
		}
		items = append(items, domainimage.RawItem{Name: fh.Filename, Data: data})
	}
	return items, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
