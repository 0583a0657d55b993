// Package drive forwards uploaded files to a fixed Google Drive folder using
// a service account.
package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Credentials mirrors the service-account key file shape. The fields are
// opaque to the rest of the service; only their presence matters.
type Credentials struct {
	Type                string `json:"type"`
	ProjectID           string `json:"project_id"`
	PrivateKeyID        string `json:"private_key_id"`
	PrivateKey          string `json:"private_key"`
	ClientEmail         string `json:"client_email"`
	ClientID            string `json:"client_id"`
	AuthURI             string `json:"auth_uri"`
	TokenURI            string `json:"token_uri"`
	AuthProviderCertURL string `json:"auth_provider_x509_cert_url"`
	ClientCertURL       string `json:"client_x509_cert_url"`
}

// Config bundles the credentials and the destination folder identifier.
type Config struct {
	Credentials Credentials
	FolderID    string
}

// Service implements the pipeline's file storage contract on Google Drive.
type Service struct {
	files    *drive.FilesService
	folderID string
	logger   zerolog.Logger
}

// New constructs a Drive service instance.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.Credentials.ClientEmail == "" || cfg.Credentials.PrivateKey == "" {
		return nil, fmt.Errorf("drive service account credentials must be provided")
	}
	if cfg.FolderID == "" {
		return nil, fmt.Errorf("drive destination folder must be provided")
	}

	raw, err := json.Marshal(cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to encode drive credentials: %w", err)
	}

	svc, err := drive.NewService(ctx,
		option.WithCredentialsJSON(raw),
		option.WithScopes(drive.DriveFileScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize drive client: %w", err)
	}

	return &Service{
		files:    svc.Files,
		folderID: cfg.FolderID,
		logger:   logger.With().Str("component", "drive").Logger(),
	}, nil
}

// Upload streams the file into the destination folder and returns the stored
// object's identifier and view link. Repeated calls with the same file create
// distinct objects.
func (s *Service) Upload(ctx context.Context, name, mimeType string, reader io.Reader) (string, string, error) {
	meta := &drive.File{
		Name:    name,
		Parents: []string{s.folderID},
	}

	created, err := s.files.Create(meta).
		Media(reader, googleapi.ContentType(mimeType)).
		Fields("id", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return "", "", fmt.Errorf("failed to upload file to drive: %w", err)
	}

	s.logger.Info().Str("file_id", created.Id).Msg("file uploaded to drive")

	return created.Id, created.WebViewLink, nil
}
