// Package config provides the application configuration and its defaults.
package config

// EmbeddedConfig holds the content of the configuration file, typically embedded by main.go.
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelFatal  LogLevel = "FATAL"
	LogLevelSilent LogLevel = "SILENT"
)

// Job repository implementations selectable through infrastructure.job_repository.
const (
	JobRepositorySQL      = "sql"
	JobRepositoryInMemory = "inmemory"
)

// Storage targets selectable through batch.storage.
const (
	StorageLocal = "local"
	StorageGCS   = "gcs"
)

// BatchConfig holds configuration for the coffee jobs.
type BatchConfig struct {
	// ChunkSize is the commit interval of chunk-oriented steps.
	ChunkSize int `yaml:"chunk_size"`
	// InputFile is the CSV read by importCoffeeJob. Empty means the embedded sample file.
	InputFile string `yaml:"input_file"`
	// ExportDir is the local directory (or object prefix) used by exportCoffeeJob.
	ExportDir string `yaml:"export_dir"`
	// Storage selects where exports are uploaded: "local" or "gcs".
	Storage string `yaml:"storage"`
	// GCSBucket is the bucket used when Storage is "gcs".
	GCSBucket string `yaml:"gcs_bucket"`
	// GCSEndpoint overrides the GCS API endpoint (emulators).
	GCSEndpoint string `yaml:"gcs_endpoint"`
	// GCSCredentialsFile is a service account key file. Empty uses application default credentials.
	GCSCredentialsFile string `yaml:"gcs_credentials_file"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
	// Format is "console" (colored text) or "json".
	Format string `yaml:"format"`
	// SQL is the GORM log level; SILENT unless set.
	SQL string `yaml:"sql"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// HTTPConfig holds settings of the HTTP trigger.
type HTTPConfig struct {
	Address string `yaml:"address"`
}

// InfrastructureConfig holds settings for infrastructure components.
type InfrastructureConfig struct {
	// JobRepository selects the JobRepository implementation: "sql" or "inmemory".
	JobRepository string `yaml:"job_repository"`
	// JobRepositoryDBRef is the name of the database connection used by the SQL JobRepository.
	JobRepositoryDBRef string `yaml:"job_repository_db_ref"`
}

// AMQPConfig holds the AMQP notifier settings. An empty URL disables the notifier.
type AMQPConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

// NotificationConfig holds job completion notification settings.
type NotificationConfig struct {
	AMQP AMQPConfig `yaml:"amqp"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	// OTLPEndpoint is the OTLP/HTTP collector endpoint. Empty keeps spans in-process.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

// CoffeeConfig holds all configuration under the "coffee" top-level key.
type CoffeeConfig struct {
	Batch          BatchConfig          `yaml:"batch"`
	System         SystemConfig         `yaml:"system"`
	HTTP           HTTPConfig           `yaml:"http"`
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	Notification   NotificationConfig   `yaml:"notification"`
	Tracing        TracingConfig        `yaml:"tracing"`
	// Database holds the raw connection settings keyed by connection name.
	// Each entry is decoded into a database config by the adapter that opens it.
	Database map[string]interface{} `yaml:"database"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Coffee CoffeeConfig `yaml:"coffee"`
	// EmbeddedConfig holds the raw bytes the configuration was loaded from.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// DefaultDBName is the name of the connection holding the coffee table.
const DefaultDBName = "coffee"

// NewConfig returns a Config populated with default values.
func NewConfig() *Config {
	return &Config{
		Coffee: CoffeeConfig{
			Batch: BatchConfig{
				ChunkSize: 10,
				ExportDir: "exports",
				Storage:   StorageLocal,
			},
			System: SystemConfig{
				Logging: LoggingConfig{Level: "INFO", Format: "console", SQL: string(LogLevelSilent)},
			},
			HTTP: HTTPConfig{Address: ":8080"},
			Infrastructure: InfrastructureConfig{
				JobRepository:      JobRepositorySQL,
				JobRepositoryDBRef: DefaultDBName,
			},
			Notification: NotificationConfig{
				AMQP: AMQPConfig{Exchange: "batch.events", RoutingKey: "job.completed"},
			},
			Tracing: TracingConfig{ServiceName: "coffeebatch"},
			Database: map[string]interface{}{
				DefaultDBName: map[string]interface{}{
					"type":     "sqlite",
					"database": "coffee.db",
					"pool": map[string]interface{}{
						"max_open_conns": 4,
						"max_idle_conns": 4,
					},
				},
			},
		},
	}
}
