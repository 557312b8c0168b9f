package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gimura/gpp/internal/logging"
	"github.com/gimura/gpp/internal/preprocessor"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	StartOperator string            `yaml:"start_operator"`
	Defines       map[string]string `yaml:"defines"`
	Namespaces    map[string]string `yaml:"namespaces"`
	Entry         Entry             `yaml:"entry"`
	Output        string            `yaml:"output"`
	Numbered      bool              `yaml:"numbered"`
	LogLevel      string            `yaml:"log_level"`
	S3            S3Config          `yaml:"s3"`
}

// Entry names the file preprocessing starts from.
type Entry struct {
	Namespace string `yaml:"namespace"`
	File      string `yaml:"file"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Load reads the optional .env files (".env" when none is given), then the
// YAML file at path when path is not empty, then the GPP_* environment.
func Load(path string, envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	cfg := &Config{
		StartOperator: preprocessor.DefaultStartOperator,
		Defines:       map[string]string{},
		Namespaces:    map[string]string{},
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if cfg.Defines == nil {
			cfg.Defines = map[string]string{}
		}
		if cfg.Namespaces == nil {
			cfg.Namespaces = map[string]string{}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := env("GPP_START_OPERATOR"); v != "" {
		c.StartOperator = v
	}
	if v := env("GPP_DEFINES"); v != "" {
		for _, def := range strings.Split(v, ",") {
			if def = strings.TrimSpace(def); def == "" {
				continue
			}
			name, value := preprocessor.ParseDefine(def)
			c.Defines[name] = value
		}
	}
	if v := env("GPP_OUTPUT"); v != "" {
		c.Output = v
	}
	if v := env(logging.EnvLevel); v != "" {
		c.LogLevel = v
	}
	c.S3.Endpoint = firstNonEmpty(env("GPP_S3_ENDPOINT"), c.S3.Endpoint)
	c.S3.Region = firstNonEmpty(env("GPP_S3_REGION"), c.S3.Region)
	c.S3.AccessKey = firstNonEmpty(env("GPP_S3_ACCESS_KEY"), c.S3.AccessKey)
	c.S3.SecretKey = firstNonEmpty(env("GPP_S3_SECRET_KEY"), c.S3.SecretKey)
	if v := env("GPP_S3_USE_SSL"); v != "" {
		useSSL, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GPP_S3_USE_SSL: %w", err)
		}
		c.S3.UseSSL = useSSL
	}
	return nil
}

// Validate checks that an entry point is set and its namespace is known.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.StartOperator) == "" || strings.ContainsAny(c.StartOperator, " \t") {
		return fmt.Errorf("start operator %q must be a single non-empty word", c.StartOperator)
	}
	if c.Entry.Namespace == "" || c.Entry.File == "" {
		return fmt.Errorf("entry namespace and file are required")
	}
	if _, ok := c.Namespaces[c.Entry.Namespace]; !ok {
		return fmt.Errorf("entry namespace %q has no location", c.Entry.Namespace)
	}
	return nil
}

// ParseEntry parses "namespace:file".
func ParseEntry(s string) (Entry, error) {
	ns, file, ok := strings.Cut(s, ":")
	if !ok || ns == "" || file == "" {
		return Entry{}, fmt.Errorf("bad entry %q, want namespace:file", s)
	}
	return Entry{Namespace: ns, File: file}, nil
}

// ParseNamespace parses "name=location".
func ParseNamespace(s string) (name, location string, err error) {
	name, location, ok := strings.Cut(s, "=")
	if !ok || name == "" || location == "" {
		return "", "", fmt.Errorf("bad namespace %q, want name=location", s)
	}
	return name, location, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
