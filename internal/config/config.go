package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage provider identifiers.
const (
	StorageProviderDrive      = "drive"
	StorageProviderCloudinary = "cloudinary"
)

// DriveCredentials carries the service-account bundle used to authenticate
// against Google Drive. The pipeline treats the fields as opaque; only their
// presence matters.
type DriveCredentials struct {
	Type                string
	ProjectID           string
	PrivateKeyID        string
	PrivateKey          string
	ClientEmail         string
	ClientID            string
	AuthURI             string
	TokenURI            string
	AuthProviderCertURL string
	ClientCertURL       string
}

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName  string
	AppEnv   string
	AppPort  string
	AdminEmail string

	DatabaseURL string
	RedisURL    string
	NATSURL     string

	JWTSecret string
	JWTTTL    time.Duration

	StorageProvider string
	DriveFolderID   string
	Drive           DriveCredentials

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string

	UploadMaxMB   int
	UploadTimeout time.Duration

	LeaderboardCacheTTL time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DATASPRINT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "DataSprint API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("admin.email", "admin@datasprint.com")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("storage.provider", StorageProviderDrive)
	v.SetDefault("cloudinary.folder", "datasprint/submissions")
	v.SetDefault("upload.max_mb", 25)
	v.SetDefault("upload.timeout", "60s")
	v.SetDefault("leaderboard.cache_ttl", "30s")

	jwtTTL, err := time.ParseDuration(v.GetString("jwt.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid jwt ttl: %w", err)
	}

	uploadTimeout, err := time.ParseDuration(v.GetString("upload.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid upload timeout: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("leaderboard.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid leaderboard cache ttl: %w", err)
	}

	cfg := Config{
		AppName:    v.GetString("app.name"),
		AppEnv:     v.GetString("app.env"),
		AppPort:    v.GetString("app.port"),
		AdminEmail: v.GetString("admin.email"),

		DatabaseURL: v.GetString("database.url"),
		RedisURL:    v.GetString("redis.url"),
		NATSURL:     v.GetString("nats.url"),

		JWTSecret: v.GetString("jwt.secret"),
		JWTTTL:    jwtTTL,

		StorageProvider: strings.ToLower(v.GetString("storage.provider")),
		DriveFolderID:   v.GetString("drive.folder_id"),
		Drive: DriveCredentials{
			Type:                v.GetString("gc.type"),
			ProjectID:           v.GetString("gc.project_id"),
			PrivateKeyID:        v.GetString("gc.private_key_id"),
			PrivateKey:          strings.ReplaceAll(v.GetString("gc.private_key"), `\n`, "\n"),
			ClientEmail:         v.GetString("gc.client_email"),
			ClientID:            v.GetString("gc.client_id"),
			AuthURI:             v.GetString("gc.auth_uri"),
			TokenURI:            v.GetString("gc.token_uri"),
			AuthProviderCertURL: v.GetString("gc.auth_provider_x509_cert_url"),
			ClientCertURL:       v.GetString("gc.client_x509_cert_url"),
		},

		CloudinaryCloudName: v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:    v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret: v.GetString("cloudinary.api_secret"),
		CloudinaryFolder:    v.GetString("cloudinary.folder"),

		UploadMaxMB:   v.GetInt("upload.max_mb"),
		UploadTimeout: uploadTimeout,

		LeaderboardCacheTTL: cacheTTL,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.StorageProvider != StorageProviderDrive && cfg.StorageProvider != StorageProviderCloudinary {
		return Config{}, fmt.Errorf("unknown storage provider %q", cfg.StorageProvider)
	}

	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 25
	}

	return cfg, nil
}
