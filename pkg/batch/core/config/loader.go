package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string              `name:"envFilePath" optional:"true"`
	Expander       EnvironmentExpander `optional:"true"`
}

// loadConfig builds the configuration in this order: defaults, embedded YAML (after placeholder
// expansion), then COFFEE_* environment variables. A .env file, when present, is loaded first.
func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig, expander EnvironmentExpander) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}

	if expander == nil {
		expander = NewOsEnvironmentExpander()
	}
	raw, err := expander.Expand(embeddedConfig)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to expand environment placeholders", err, false, false)
	}

	// Decoding into the defaults keeps every key the YAML does not mention.
	cfg := NewConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to unmarshal embedded config", err, false, false)
	}
	cfg.EmbeddedConfig = embeddedConfig

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false, false)
	}
	if err := validate(cfg); err != nil {
		return nil, exception.NewBatchError(moduleName, "invalid configuration", err, false, false)
	}
	return cfg, nil
}

// LoadConfig loads the configuration outside of fx (tests, tools).
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embeddedConfig, nil)
}

// NewConfigProvider is an fx provider that loads *Config and applies the logging settings.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig, params.Expander)
	if err != nil {
		return nil, err
	}

	logging := cfg.Coffee.System.Logging
	logger.Configure(os.Stderr, logging.Format)
	logger.SetLogLevel(logging.Level)
	logger.Infof("Log level set to: %s", logging.Level)
	return cfg, nil
}

func validate(cfg *Config) error {
	c := cfg.Coffee
	if c.Batch.ChunkSize < 1 {
		return fmt.Errorf("batch.chunk_size must be >= 1, got %d", c.Batch.ChunkSize)
	}
	switch c.Infrastructure.JobRepository {
	case JobRepositorySQL, JobRepositoryInMemory:
	default:
		return fmt.Errorf("infrastructure.job_repository must be %q or %q, got %q", JobRepositorySQL, JobRepositoryInMemory, c.Infrastructure.JobRepository)
	}
	switch c.Batch.Storage {
	case StorageLocal:
	case StorageGCS:
		if c.Batch.GCSBucket == "" {
			return fmt.Errorf("batch.gcs_bucket is required when batch.storage is %q", StorageGCS)
		}
	default:
		return fmt.Errorf("batch.storage must be %q or %q, got %q", StorageLocal, StorageGCS, c.Batch.Storage)
	}
	if _, ok := c.Database[DefaultDBName]; !ok {
		return fmt.Errorf("database.%s is not configured", DefaultDBName)
	}
	return nil
}

// loadStructFromEnv overrides struct fields from environment variables named after the upper-cased
// yaml tag path, e.g. COFFEE_BATCH_CHUNK_SIZE.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		switch field.Kind() {
		case reflect.Struct:
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		case reflect.Map:
			if field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.Interface {
				loadConnectionMapFromEnv(field, envVarName+"_")
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadConnectionMapFromEnv applies <prefix><NAME>_<KEY>=value to mapField[name][key].
// NAME must not contain an underscore. KEY is lower-cased and only addresses top-level keys.
func loadConnectionMapFromEnv(mapField reflect.Value, prefix string) {
	if mapField.IsNil() {
		mapField.Set(reflect.MakeMap(mapField.Type()))
	}
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		keyAndValue := strings.SplitN(strings.TrimPrefix(env, prefix), "=", 2)
		if len(keyAndValue) != 2 {
			continue
		}
		nameAndKey := strings.SplitN(keyAndValue[0], "_", 2)
		if len(nameAndKey) != 2 || nameAndKey[1] == "" {
			continue
		}
		name := strings.ToLower(nameAndKey[0])
		key := strings.ToLower(nameAndKey[1])

		entry := map[string]interface{}{}
		if existing := mapField.MapIndex(reflect.ValueOf(name)); existing.IsValid() {
			if m, ok := existing.Interface().(map[string]interface{}); ok {
				for k, v := range m {
					entry[k] = v
				}
			}
		}
		entry[key] = keyAndValue[1]
		mapField.SetMapIndex(reflect.ValueOf(name), reflect.ValueOf(entry))
	}
}

// setField sets a string, integer, float or bool field from its string form.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
