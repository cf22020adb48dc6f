package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/metacat/codec"
)

// Config selects the blob store holding the catalog.
//
// String values may reference environment variables as $VAR or ${VAR}.
type Config struct {
	Backend string `yaml:"backend" validate:"required,oneof=local s3 minio"`

	// Dir is the catalog directory of the local backend.
	Dir string `yaml:"dir" validate:"required_if=Backend local"`

	Bucket   string `yaml:"bucket" validate:"required_unless=Backend local"`
	Prefix   string `yaml:"prefix"`
	Endpoint string `yaml:"endpoint" validate:"required_if=Backend minio"`
	Region   string `yaml:"region"`
	Secure   bool   `yaml:"secure"`

	// DynamoDBTable moves the CURRENT pointer of the s3 backend into
	// DynamoDB.
	DynamoDBTable string `yaml:"dynamodb_table" validate:"excluded_unless=Backend s3"`

	AccessKeyID     string `yaml:"access_key_id" validate:"required_if=Backend minio"`
	SecretAccessKey string `yaml:"secret_access_key" validate:"required_if=Backend minio"`

	Codec       string `yaml:"codec" validate:"omitempty,oneof=json go-json"`
	Compression string `yaml:"compression" validate:"omitempty,oneof=none lz4 zstd"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadConfig reads and validates the config file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates a YAML config. Unknown keys are
// rejected.
func ParseConfig(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config against its struct tags.
func (c *Config) Validate() error {
	err := validate.Struct(c)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// CatalogCodec returns the configured codec, or codec.Default.
func (c *Config) CatalogCodec() codec.Codec {
	if c.Codec == "" {
		return codec.Default
	}
	if cd, ok := codec.ByName(c.Codec); ok {
		return cd
	}
	return codec.Default
}

// CatalogCompression returns the configured compression.
func (c *Config) CatalogCompression() codec.Compression {
	comp, err := codec.ParseCompression(c.Compression)
	if err != nil {
		return codec.CompressionNone
	}
	return comp
}
