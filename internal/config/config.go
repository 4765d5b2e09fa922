package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is the prefix of environment variables read into the config
	EnvPrefix = "GOODSPEED"

	StorageTypeDir    = "dir"
	StorageTypeSQLite = "sqlite"
	StorageTypeS3     = "s3"
	StorageTypeOSS    = "oss"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`
	Fields   FieldsConfig   `yaml:"fields" mapstructure:"fields"`
	Predict  PredictConfig  `yaml:"predict" mapstructure:"predict"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`

	// Version is injected at build time, never read from file.
	Version string `yaml:"-" mapstructure:"-"`
}

// ServerConfig controls the HTTP listener and window mode
type ServerConfig struct {
	Port     int  `yaml:"port" mapstructure:"port"`
	Headless bool `yaml:"headless" mapstructure:"headless"`
}

// StorageConfig locates the model artifact namespace
type StorageConfig struct {
	// Type is one of dir, sqlite, s3, oss.
	Type string `yaml:"type" mapstructure:"type"`

	// Dir is the artifact directory for the dir backend.
	Dir string `yaml:"dir" mapstructure:"dir"`

	// Path is the sqlite bundle file for the sqlite backend.
	Path string `yaml:"path" mapstructure:"path"`

	// Object storage settings for s3 and oss.
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Prefix    string `yaml:"prefix" mapstructure:"prefix"`
	Region    string `yaml:"region" mapstructure:"region"`
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"accessKey" mapstructure:"accessKey"`
	SecretKey string `yaml:"secretKey" mapstructure:"secretKey"`
}

// RegistryConfig holds the artifact naming convention
type RegistryConfig struct {
	ModelPrefix      string `yaml:"modelPrefix" mapstructure:"modelPrefix"`
	ColumnsPrefix    string `yaml:"columnsPrefix" mapstructure:"columnsPrefix"`
	VocabularyPrefix string `yaml:"vocabularyPrefix" mapstructure:"vocabularyPrefix"`
	Suffix           string `yaml:"suffix" mapstructure:"suffix"`
}

// NumericField is a free numeric input with a form default
type NumericField struct {
	Name    string  `yaml:"name" mapstructure:"name" json:"name"`
	Default float64 `yaml:"default" mapstructure:"default" json:"default"`
}

// FieldsConfig lists the known input fields
type FieldsConfig struct {
	Categorical []string       `yaml:"categorical" mapstructure:"categorical"`
	Numeric     []NumericField `yaml:"numeric" mapstructure:"numeric"`
}

// PredictConfig controls prediction output
type PredictConfig struct {
	// OutputColumn is the name of the appended prediction field.
	OutputColumn string `yaml:"outputColumn" mapstructure:"outputColumn"`

	// FailFast aborts a whole batch on the first invalid row.
	FailFast bool `yaml:"failFast" mapstructure:"failFast"`

	// ExportName is the download file name without extension.
	ExportName string `yaml:"exportName" mapstructure:"exportName"`
}

// LogConfig controls logging output
type LogConfig struct {
	Verbose    bool   `yaml:"verbose" mapstructure:"verbose"`
	Console    bool   `yaml:"console" mapstructure:"console"`
	Dir        string `yaml:"dir" mapstructure:"dir"`
	MaxSize    int    `yaml:"maxSize" mapstructure:"maxSize"`
	MaxAge     int    `yaml:"maxAge" mapstructure:"maxAge"`
	MaxBackups int    `yaml:"maxBackups" mapstructure:"maxBackups"`
}

// New returns the default configuration
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Port: DefaultPort,
		},
		Storage: StorageConfig{
			Type: StorageTypeDir,
			Dir:  DefaultModelDir,
		},
		Registry: RegistryConfig{
			ModelPrefix:      DefaultModelPrefix,
			ColumnsPrefix:    DefaultColumnsPrefix,
			VocabularyPrefix: DefaultVocabularyPrefix,
			Suffix:           DefaultArtifactSuffix,
		},
		Fields: FieldsConfig{
			Categorical: append([]string(nil), DefaultCategoricalFields...),
			Numeric:     append([]NumericField(nil), DefaultNumericFields...),
		},
		Predict: PredictConfig{
			OutputColumn: DefaultOutputColumn,
			ExportName:   DefaultExportName,
		},
		Log: LogConfig{
			Console:    true,
			Dir:        DefaultLogDir,
			MaxSize:    DefaultLogMaxSize,
			MaxAge:     DefaultLogMaxAge,
			MaxBackups: DefaultLogMaxBackups,
		},
	}
}

// Validate checks config parameters
func (cfg *Config) Validate() error {
	if cfg.Server.Port <= 0 {
		return errors.New("server requires parameter port")
	}

	switch cfg.Storage.Type {
	case StorageTypeDir:
		if cfg.Storage.Dir == "" {
			return errors.New("dir storage requires parameter dir")
		}
	case StorageTypeSQLite:
		if cfg.Storage.Path == "" {
			return errors.New("sqlite storage requires parameter path")
		}
	case StorageTypeS3, StorageTypeOSS:
		if cfg.Storage.Bucket == "" {
			return fmt.Errorf("%s storage requires parameter bucket", cfg.Storage.Type)
		}
	default:
		return fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}

	if cfg.Registry.ModelPrefix == "" || cfg.Registry.ColumnsPrefix == "" {
		return errors.New("registry requires parameters modelPrefix and columnsPrefix")
	}
	if cfg.Registry.ModelPrefix == cfg.Registry.ColumnsPrefix {
		return errors.New("registry modelPrefix and columnsPrefix must differ")
	}

	seen := make(map[string]bool)
	for _, name := range cfg.Fields.Categorical {
		if name == "" {
			return errors.New("fields contain an empty categorical name")
		}
		if seen[name] {
			return fmt.Errorf("field %q is declared twice", name)
		}
		seen[name] = true
	}
	for _, f := range cfg.Fields.Numeric {
		if f.Name == "" {
			return errors.New("fields contain an empty numeric name")
		}
		if seen[f.Name] {
			return fmt.Errorf("field %q is declared twice", f.Name)
		}
		seen[f.Name] = true
	}

	if cfg.Predict.OutputColumn == "" {
		return errors.New("predict requires parameter outputColumn")
	}
	if cfg.Predict.ExportName == "" {
		return errors.New("predict requires parameter exportName")
	}

	if !cfg.Log.Console && cfg.Log.Dir == "" {
		return errors.New("file logging requires parameter log.dir")
	}

	return nil
}

// CategoricalNames returns the categorical field names
func (cfg *Config) CategoricalNames() []string {
	return append([]string(nil), cfg.Fields.Categorical...)
}

// NumericNames returns the numeric field names
func (cfg *Config) NumericNames() []string {
	names := make([]string, 0, len(cfg.Fields.Numeric))
	for _, f := range cfg.Fields.Numeric {
		names = append(names, f.Name)
	}
	return names
}

// Load reads configuration from v on top of the defaults. A config file is
// optional; environment variables use the GOODSPEED_ prefix with "." mapped
// to "_".
func Load(v *viper.Viper) (*Config, error) {
	cfg := New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	// Environment variables are only visible to Unmarshal for keys viper
	// already knows about.
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.WeaklyTypedInput = true
		dc.ZeroFields = true
	}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

var envKeys = []string{
	"server.port",
	"server.headless",
	"storage.type",
	"storage.dir",
	"storage.path",
	"storage.bucket",
	"storage.prefix",
	"storage.region",
	"storage.endpoint",
	"storage.accessKey",
	"storage.secretKey",
	"predict.failFast",
	"log.verbose",
	"log.console",
	"log.dir",
}
