package fabric

import "time"

const (
	// DefaultSchemaConcurrency bounds concurrent Delta log reads in
	// get_all_lakehouse_schemas.
	DefaultSchemaConcurrency = 4

	// DefaultSchemaTimeout bounds a single schema read.
	DefaultSchemaTimeout = 60 * time.Second
)

// Config holds toolkit configuration.
type Config struct {
	// ReadOnly drops the create_* tools.
	ReadOnly bool `yaml:"read_only"`

	SchemaConcurrency int           `yaml:"schema_concurrency"`
	SchemaTimeout     time.Duration `yaml:"schema_timeout"`

	// Descriptions overrides tool descriptions by tool name.
	Descriptions map[string]string `yaml:"descriptions"`
}

func applyDefaults(cfg Config) Config {
	if cfg.SchemaConcurrency <= 0 {
		cfg.SchemaConcurrency = DefaultSchemaConcurrency
	}
	if cfg.SchemaTimeout <= 0 {
		cfg.SchemaTimeout = DefaultSchemaTimeout
	}
	return cfg
}
