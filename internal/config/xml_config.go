// Package config provides XML (or YAML) based configuration for the PDF QA server.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/gommon/bytes"
	"gopkg.in/yaml.v3"
)

// Supported storage drivers.
const (
	DriverSQLite    = "sqlite"
	DriverDuckDB    = "duckdb"
	DriverFirestore = "firestore"
)

// Supported model providers.
const (
	ProviderVertex = "vertex"
	ProviderOllama = "ollama"
)

// AppConfig represents the root configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"PDFQuestionAnswer" yaml:"-"`

	Server    ServerConfig    `xml:"Server" yaml:"server"`
	Storage   StorageConfig   `xml:"Storage" yaml:"storage"`
	Model     ModelConfig     `xml:"Model" yaml:"model"`
	Streaming StreamingConfig `xml:"Streaming" yaml:"streaming"`
	Advanced  AdvancedConfig  `xml:"Advanced" yaml:"advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port" yaml:"port"`
	BindAddress  string `xml:"BindAddress" yaml:"bindAddress"`
	EnableCORS   bool   `xml:"EnableCORS" yaml:"enableCORS"`
	AllowOrigins string `xml:"AllowOrigins" yaml:"allowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds" yaml:"readTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds" yaml:"writeTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds" yaml:"idleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit" yaml:"bodyLimit"`
}

// StorageConfig selects and configures the document/interaction store
type StorageConfig struct {
	Driver                 string `xml:"Driver" yaml:"driver"`
	DataDirectory          string `xml:"DataDirectory" yaml:"dataDirectory"`
	DatabasePath           string `xml:"DatabasePath" yaml:"databasePath"`
	ArchiveDirectory       string `xml:"ArchiveDirectory" yaml:"archiveDirectory"`
	ArchiveBucket          string `xml:"ArchiveBucket" yaml:"archiveBucket"`
	FirestoreProject       string `xml:"FirestoreProject" yaml:"firestoreProject"`
	DocumentCollection     string `xml:"DocumentCollection" yaml:"documentCollection"`
	InteractionsCollection string `xml:"InteractionsCollection" yaml:"interactionsCollection"`
	DuckDBThreads          int    `xml:"DuckDBThreads" yaml:"duckdbThreads"`
	DuckDBMemoryLimit      string `xml:"DuckDBMemoryLimit" yaml:"duckdbMemoryLimit"`
}

// ModelConfig configures the generative model client
type ModelConfig struct {
	Provider              string  `xml:"Provider" yaml:"provider"`
	Name                  string  `xml:"Name" yaml:"name"`
	ProjectID             string  `xml:"ProjectID" yaml:"projectID"`
	Region                string  `xml:"Region" yaml:"region"`
	OllamaHost            string  `xml:"OllamaHost" yaml:"ollamaHost"`
	Temperature           float32 `xml:"Temperature" yaml:"temperature"`
	RequestTimeoutSeconds int     `xml:"RequestTimeoutSeconds" yaml:"requestTimeoutSeconds"`
}

// StreamingConfig tunes answer streaming and uploads
type StreamingConfig struct {
	ChunkDelayMillis int    `xml:"ChunkDelayMillis" yaml:"chunkDelayMillis"`
	MaxUploadSize    string `xml:"MaxUploadSize" yaml:"maxUploadSize"`
}

// AdvancedConfig contains logging options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel" yaml:"logLevel"`
	LogFormat            string `xml:"LogFormat" yaml:"logFormat"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging" yaml:"enableRequestLogging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 0, // answers stream for as long as the model talks
			IdleTimeout:  120,
			BodyLimit:    "64M",
		},
		Storage: StorageConfig{
			Driver:                 DriverSQLite,
			DataDirectory:          "./data",
			DatabasePath:           "./data/pdf_qa_logs.db",
			ArchiveDirectory:       "",
			ArchiveBucket:          "",
			DocumentCollection:     "pdfs",
			InteractionsCollection: "interactions",
			DuckDBThreads:          4,
			DuckDBMemoryLimit:      "1GB",
		},
		Model: ModelConfig{
			Provider:              ProviderVertex,
			Name:                  "gemini-2.0-flash",
			Region:                "us-central1",
			OllamaHost:            "http://localhost:11434",
			Temperature:           0.2,
			RequestTimeoutSeconds: 300,
		},
		Streaming: StreamingConfig{
			ChunkDelayMillis: 10,
			MaxUploadSize:    "50M",
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			LogFormat:            "text",
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from an XML or YAML file. A default file is
// written when none exists.
func LoadConfig(configPath string) (*AppConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(configPath) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = xml.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration in the format implied by the file extension
func (c *AppConfig) Save(configPath string) error {
	var content []byte
	if isYAML(configPath) {
		out, err := yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		content = append([]byte("# PDF QA configuration (auto-generated on first run)\n"), out...)
	} else {
		out, err := xml.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		header := []byte(xml.Header + "\n<!-- PDF QA Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
		content = append(header, out...)
	}

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks enumerated settings
func (c *AppConfig) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverDuckDB:
	case DriverFirestore:
		if c.Storage.FirestoreProject == "" && c.Model.ProjectID == "" {
			return fmt.Errorf("firestore driver requires FirestoreProject or Model.ProjectID")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Model.Provider {
	case ProviderVertex, ProviderOllama:
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}

	if _, err := c.MaxUploadBytes(); err != nil {
		return err
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	overrides := map[string]*string{
		"DATA_DIR":         &c.Storage.DataDirectory,
		"DB_FILE":          &c.Storage.DatabasePath,
		"STORAGE_DRIVER":   &c.Storage.Driver,
		"ARCHIVE_BUCKET":   &c.Storage.ArchiveBucket,
		"MODEL_PROVIDER":   &c.Model.Provider,
		"MODEL_NAME":       &c.Model.Name,
		"PROJECT_ID":       &c.Model.ProjectID,
		"VERTEX_AI_REGION": &c.Model.Region,
		"OLLAMA_HOST":      &c.Model.OllamaHost,
		"LOG_LEVEL":        &c.Advanced.LogLevel,
	}
	for key, target := range overrides {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	paths := []*string{
		&c.Storage.DataDirectory,
		&c.Storage.DatabasePath,
		&c.Storage.ArchiveDirectory,
	}
	for _, p := range paths {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// FirestoreProject returns the project used for the Firestore store.
func (c *AppConfig) FirestoreProject() string {
	if c.Storage.FirestoreProject != "" {
		return c.Storage.FirestoreProject
	}
	return c.Model.ProjectID
}

// ChunkDelay returns the pause taken after forwarding each streamed chunk.
func (c *AppConfig) ChunkDelay() time.Duration {
	return time.Duration(c.Streaming.ChunkDelayMillis) * time.Millisecond
}

// ModelTimeout returns the upper bound for a single model request.
func (c *AppConfig) ModelTimeout() time.Duration {
	return time.Duration(c.Model.RequestTimeoutSeconds) * time.Second
}

// MaxUploadBytes parses Streaming.MaxUploadSize ("50M", "512KB", ...). Zero
// disables the upload size check.
func (c *AppConfig) MaxUploadBytes() (int64, error) {
	if strings.TrimSpace(c.Streaming.MaxUploadSize) == "" {
		return 0, nil
	}
	n, err := bytes.Parse(c.Streaming.MaxUploadSize)
	if err != nil {
		return 0, fmt.Errorf("invalid MaxUploadSize %q: %w", c.Streaming.MaxUploadSize, err)
	}
	return n, nil
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{c.Storage.DataDirectory}
	if c.Storage.DatabasePath != "" {
		dirs = append(dirs, filepath.Dir(c.Storage.DatabasePath))
	}
	if c.Storage.ArchiveDirectory != "" {
		dirs = append(dirs, c.Storage.ArchiveDirectory)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
