package service

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/datasprint/datasprint-api/internal/repository"
)

// exportHeader fixes the column order of the submissions export.
var exportHeader = []string{
	"Submission ID",
	"Challenge ID",
	"User ID",
	"User Name",
	"User Email",
	"File Name",
	"File URL",
	"Score",
	"Status",
	"Feedback",
	"Submitted At",
}

// ExportService writes administrator data exports.
type ExportService interface {
	SubmissionsCSV(ctx context.Context, filter repository.SubmissionFilter, w io.Writer) error
}

type exportService struct {
	submissions repository.SubmissionRepository
	logger      zerolog.Logger
}

// NewExportService wires the export service.
func NewExportService(submissions repository.SubmissionRepository, logger zerolog.Logger) ExportService {
	return &exportService{
		submissions: submissions,
		logger:      logger.With().Str("component", "export_service").Logger(),
	}
}

// SubmissionsCSV streams every matching submission as CSV rows in a fixed
// column order, newest first.
func (s *exportService) SubmissionsCSV(ctx context.Context, filter repository.SubmissionFilter, w io.Writer) error {
	submissions, err := s.submissions.List(ctx, filter)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return err
	}

	for _, submission := range submissions {
		row := []string{
			submission.ID,
			submission.ChallengeID,
			submission.UserID,
			submission.UserName,
			submission.UserEmail,
			submission.FileName,
			submission.FileURL,
			strconv.Itoa(submission.Score),
			submission.Status,
			submission.Feedback,
			submission.SubmittedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()

	s.logger.Info().Int("rows", len(submissions)).Msg("submissions exported")

	return writer.Error()
}
