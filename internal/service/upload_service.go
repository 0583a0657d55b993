package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/datasprint/datasprint-api/internal/observability"
)

const sniffLength = 3072

// allowedExtensions lists the file types a data challenge submission may
// carry. Anything else is rejected before a single byte leaves the relay.
var allowedExtensions = map[string]struct{}{
	".csv":   {},
	".json":  {},
	".txt":   {},
	".ipynb": {},
	".py":    {},
	".xlsx":  {},
	".zip":   {},
	".pdf":   {},
}

// UploadResult carries the storage provider's identifiers for a forwarded file.
type UploadResult struct {
	FileID  string
	FileURL string
}

// UploadService validates and forwards files to the configured object storage.
type UploadService interface {
	Forward(ctx context.Context, name string, size int64, reader io.Reader) (UploadResult, error)
}

type uploadService struct {
	storage  FileStorage
	provider string
	maxBytes int64
	timeout  time.Duration
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewUploadService builds the relay core. maxMB bounds the accepted file size
// and timeout bounds the forwarding call to the provider.
func NewUploadService(storage FileStorage, provider string, maxMB int, timeout time.Duration, logger zerolog.Logger) UploadService {
	return &uploadService{
		storage:  storage,
		provider: provider,
		maxBytes: int64(maxMB) << 20,
		timeout:  timeout,
		logger:   logger.With().Str("component", "upload_service").Logger(),
		tracer:   otel.Tracer("datasprint/upload"),
	}
}

// Forward checks the file against the size limit and extension allow-list,
// sniffs its real content type, and streams it to the storage provider.
func (s *uploadService) Forward(ctx context.Context, name string, size int64, reader io.Reader) (UploadResult, error) {
	if name == "" || reader == nil {
		observability.UploadRejected().WithLabelValues("missing_file").Inc()
		return UploadResult{}, ErrFileRequired
	}

	if s.maxBytes > 0 && size > s.maxBytes {
		observability.UploadRejected().WithLabelValues("too_large").Inc()
		return UploadResult{}, ErrUploadTooLarge
	}

	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := allowedExtensions[ext]; !ok {
		observability.UploadRejected().WithLabelValues("extension").Inc()
		return UploadResult{}, ErrUploadTypeNotAllowed
	}

	header := make([]byte, sniffLength)
	n, err := io.ReadFull(reader, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return UploadResult{}, err
	}
	detected := mimetype.Detect(header[:n])
	body := io.MultiReader(bytes.NewReader(header[:n]), reader)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "upload.forward", trace.WithAttributes(
		attribute.String("upload.provider", s.provider),
		attribute.String("upload.mime_type", detected.String()),
	))
	defer span.End()

	start := time.Now()
	fileID, fileURL, err := s.storage.Upload(ctx, name, detected.String(), body)
	observability.UploadLatency().Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error().Err(err).Str("file_name", name).Msg("failed to forward file to storage")
		return UploadResult{}, err
	}

	observability.UploadRequests().WithLabelValues(s.provider).Inc()
	s.logger.Info().
		Str("file_name", name).
		Str("file_id", fileID).
		Str("mime_type", detected.String()).
		Msg("file forwarded to storage")

	return UploadResult{FileID: fileID, FileURL: fileURL}, nil
}
