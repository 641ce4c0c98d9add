package config

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/manifest"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "vango-mixed.yaml"

	// DefaultListen is the default address the serve command binds to.
	DefaultListen = ":3100"

	// DefaultPath is the default WebSocket endpoint path.
	DefaultPath = "/_mixed/ws"

	// DefaultStartTimeout bounds how long an add waits for the target
	// runtime to start.
	DefaultStartTimeout = "30s"

	// DefaultCallTimeout bounds a single bridge call made by a proxy.
	DefaultCallTimeout = "10s"

	// DefaultRedisPrefix is the key prefix for start signals.
	DefaultRedisPrefix = "vango-mixed:started:"

	// DefaultNamespace is the Prometheus metric namespace.
	DefaultNamespace = "vango_mixed"

	// DefaultTracerName is the OpenTelemetry tracer name.
	DefaultTracerName = "vango-mixed"
)

// Config represents the complete vango-mixed.yaml configuration.
type Config struct {
	// Runtime is the runtime this process runs as: "server" or "client".
	Runtime string `yaml:"runtime"`

	// Components are inline authority declarations.
	Components []manifest.Entry `yaml:"components,omitempty"`

	// Manifest points at additional declarations.
	Manifest ManifestConfig `yaml:"manifest,omitempty"`

	// Bridge contains proxy and bridge timing.
	Bridge BridgeConfig `yaml:"bridge,omitempty"`

	// Transport contains WebSocket settings.
	Transport TransportConfig `yaml:"transport,omitempty"`

	// StartSignal contains cross-process start signal settings.
	StartSignal StartSignalConfig `yaml:"startSignal,omitempty"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `yaml:"metrics,omitempty"`

	// Tracing contains OpenTelemetry settings.
	Tracing TracingConfig `yaml:"tracing,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ManifestConfig locates component manifests.
type ManifestConfig struct {
	// File is a manifest path, relative to the config file.
	File string `yaml:"file,omitempty"`

	// S3 is a manifest object in S3.
	S3 S3Config `yaml:"s3,omitempty"`
}

// S3Config locates a manifest object in S3.
type S3Config struct {
	Bucket    string `yaml:"bucket,omitempty"`
	Key       string `yaml:"key,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	PathStyle bool   `yaml:"pathStyle,omitempty"`
}

// Enabled reports whether an S3 manifest is configured.
func (s S3Config) Enabled() bool {
	return s.Bucket != "" && s.Key != ""
}

// BridgeConfig contains bridge timing.
type BridgeConfig struct {
	// StartTimeout is how long an add waits for the target runtime (e.g. "30s").
	StartTimeout string `yaml:"startTimeout,omitempty"`

	// CallTimeout bounds one bridge call made by a proxy (e.g. "10s").
	CallTimeout string `yaml:"callTimeout,omitempty"`
}

// TransportConfig contains WebSocket settings.
type TransportConfig struct {
	// Listen is the address the serve command binds to.
	Listen string `yaml:"listen,omitempty"`

	// Path is the WebSocket endpoint path.
	Path string `yaml:"path,omitempty"`

	// URL is the peer endpoint dialed by the probe command.
	URL string `yaml:"url,omitempty"`

	// AllowedOrigins lists Origin values accepted on upgrade. Empty means
	// same-origin only.
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// StartSignalConfig contains start signal settings.
type StartSignalConfig struct {
	Redis RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	// Addr is host:port. Empty disables Redis start signals.
	Addr string `yaml:"addr,omitempty"`

	// Scope names the application instance, such as a deployment ID.
	Scope string `yaml:"scope,omitempty"`

	// Prefix is the key prefix.
	Prefix string `yaml:"prefix,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	TracerName string `yaml:"tracerName,omitempty"`
}

// New creates a new Config with default values. Transport.URL is left empty
// and derived from Listen and Path when the config is loaded.
func New() *Config {
	return &Config{
		Runtime: mixed.RuntimeServer.String(),
		Bridge: BridgeConfig{
			StartTimeout: DefaultStartTimeout,
			CallTimeout:  DefaultCallTimeout,
		},
		Transport: TransportConfig{
			Listen: DefaultListen,
			Path:   DefaultPath,
		},
		StartSignal: StartSignalConfig{
			Redis: RedisConfig{
				Scope:  "default",
				Prefix: DefaultRedisPrefix,
			},
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			TracerName: DefaultTracerName,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for vango-mixed.yaml in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E204").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Create " + ConfigFileName + " or pass --config")
		}
		return nil, errors.New("E205").Wrap(err)
	}

	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E205").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid YAML")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.New("E205").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E205").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Runtime == "" {
		c.Runtime = mixed.RuntimeServer.String()
	}

	if c.Bridge.StartTimeout == "" {
		c.Bridge.StartTimeout = DefaultStartTimeout
	}
	if c.Bridge.CallTimeout == "" {
		c.Bridge.CallTimeout = DefaultCallTimeout
	}

	if c.Transport.Listen == "" {
		c.Transport.Listen = DefaultListen
	}
	if c.Transport.Path == "" {
		c.Transport.Path = DefaultPath
	}
	if c.Transport.URL == "" {
		c.Transport.URL = "ws://localhost" + c.Transport.Listen + c.Transport.Path
	}

	if c.StartSignal.Redis.Prefix == "" {
		c.StartSignal.Redis.Prefix = DefaultRedisPrefix
	}
	if c.StartSignal.Redis.Scope == "" {
		c.StartSignal.Redis.Scope = "default"
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultTracerName
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := mixed.ParseRuntime(c.Runtime); err != nil {
		return err
	}
	if _, err := parseDuration("bridge.startTimeout", c.Bridge.StartTimeout); err != nil {
		return err
	}
	if _, err := parseDuration("bridge.callTimeout", c.Bridge.CallTimeout); err != nil {
		return err
	}
	if c.Manifest.S3.Bucket != "" && c.Manifest.S3.Key == "" {
		return errors.New("E207").WithDetail("manifest.s3.bucket is set without manifest.s3.key")
	}
	for i, entry := range c.Components {
		if entry.Marker == "" {
			return errors.New("E207").WithDetail("components[" + strconv.Itoa(i) + "] has no marker")
		}
	}
	return nil
}

// RuntimeID returns the configured runtime. Call Validate first.
func (c *Config) RuntimeID() mixed.RuntimeID {
	r, _ := mixed.ParseRuntime(c.Runtime)
	return r
}

// StartTimeout returns the parsed start timeout.
func (c *Config) StartTimeout() time.Duration {
	d, _ := parseDuration("bridge.startTimeout", c.Bridge.StartTimeout)
	return d
}

// CallTimeout returns the parsed call timeout.
func (c *Config) CallTimeout() time.Duration {
	d, _ := parseDuration("bridge.callTimeout", c.Bridge.CallTimeout)
	return d
}

// ManifestPath returns the absolute path to the manifest file, or "".
func (c *Config) ManifestPath() string {
	if c.Manifest.File == "" {
		return ""
	}
	if filepath.IsAbs(c.Manifest.File) {
		return c.Manifest.File
	}
	return filepath.Join(c.Dir(), c.Manifest.File)
}

// Sources returns the declaration sources in load order: inline
// components, the manifest file, then the S3 manifest.
func (c *Config) Sources() ([]manifest.Source, error) {
	var inline manifest.Static
	for _, entry := range c.Components {
		def, err := entry.Definition()
		if err != nil {
			return nil, errors.New("E203").WithDetailf("component %q", entry.Marker).Wrap(err)
		}
		inline = append(inline, def)
	}

	sources := []manifest.Source{inline}
	if path := c.ManifestPath(); path != "" {
		sources = append(sources, manifest.FileSource{Path: path})
	}
	if s := c.Manifest.S3; s.Enabled() {
		sources = append(sources, manifest.S3Source{
			Client: manifest.NewS3Client(manifest.S3Options{
				Region:    s.Region,
				Endpoint:  s.Endpoint,
				PathStyle: s.PathStyle,
			}),
			Bucket: s.Bucket,
			Key:    s.Key,
		})
	}
	return sources, nil
}

// Definitions loads every configured declaration.
func (c *Config) Definitions(ctx context.Context) ([]mixed.Definition, error) {
	sources, err := c.Sources()
	if err != nil {
		return nil, err
	}
	return manifest.LoadAll(ctx, sources...)
}

func parseDuration(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, errors.New("E205").
			WithDetailf("%s: %q is not a duration", field, s).
			WithSuggestion(`Use a Go duration such as "30s"`)
	}
	return d, nil
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing vango-mixed.yaml, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E204").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
