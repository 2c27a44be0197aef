// Package settings holds the tracking-related knobs of the training
// configuration.
package settings

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pipelinerl/runtrack/internal/pathtree"
)

// Resume is the three-valued resume policy from the training config.
type Resume string

const (
	ResumeAlways           Resume = "always"
	ResumeNever            Resume = "never"
	ResumeIfNotInteractive Resume = "if_not_interactive"
)

// Settings control run initialization and metric forwarding.
//
// Fields are populated from the `finetune` block of the training
// configuration (`config` tags) and can be overridden from the
// environment (`env` tags).
type Settings struct {
	// BaseURL is the address of the tracking service.
	BaseURL string `env:"RUNTRACK_BASE_URL"`

	// APIKey authenticates requests to the tracking service.
	APIKey string `env:"RUNTRACK_API_KEY"`

	// SentryDSN enables error reporting when nonempty.
	SentryDSN string `env:"RUNTRACK_SENTRY_DSN"`

	// Enabled gates run initialization on the coordinator.
	Enabled bool `config:"use_wandb" env:"WANDB_ENABLED"`

	Resume        Resume   `config:"wandb_resume" env:"WANDB_RESUME"`
	WorkspaceRoot string   `config:"wandb_workspace_root" env:"WANDB_WORKSPACE_ROOT"`
	RunID         string   `config:"wandb_id" env:"WANDB_RUN_ID"`
	Entity        string   `config:"wandb_entity_name" env:"WANDB_ENTITY"`
	Project       string   `config:"wandb_project_name" env:"WANDB_PROJECT"`
	Group         string   `config:"wandb_group" env:"WANDB_GROUP"`
	RootDir       string   `config:"wandb_dir" env:"WANDB_DIR"`
	Tags          []string `config:"tags" env:"WANDB_TAGS"`

	// RetryMax is the number of HTTP retries per request. Forwarding is
	// best-effort, so this defaults to zero.
	RetryMax int `env:"RUNTRACK_RETRY_MAX"`

	// TimeoutSeconds bounds each request to the tracking service.
	TimeoutSeconds float64 `env:"RUNTRACK_TIMEOUT"`
}

// New creates a new Settings object with default values.
func New() *Settings {
	return &Settings{
		BaseURL:        "http://127.0.0.1:7860",
		Resume:         ResumeNever,
		TimeoutSeconds: 30,
	}
}

func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds * float64(time.Second))
}

// FromEnv overrides settings from environment variables per `env` tags.
func (s *Settings) FromEnv() *Settings {
	target := reflect.ValueOf(s).Elem()
	targetType := target.Type()

	for i := 0; i < targetType.NumField(); i++ {
		field := targetType.Field(i)
		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}
		envValue := os.Getenv(envName)
		if envValue == "" {
			continue
		}
		setField(target.Field(i), envValue)
	}
	return s
}

// FromConfigTree populates settings from the nested training
// configuration per `config` tags. The tree is expected to be the block
// holding the tracking keys, usually `finetune`.
func (s *Settings) FromConfigTree(tree pathtree.TreeData) *Settings {
	if tree == nil {
		return s
	}

	target := reflect.ValueOf(s).Elem()
	targetType := target.Type()

	for i := 0; i < targetType.NumField(); i++ {
		field := targetType.Field(i)
		key := field.Tag.Get("config")
		if key == "" {
			continue
		}
		value, exists := tree[key]
		if !exists || value == nil {
			continue
		}
		fieldValue := target.Field(i)

		switch v := value.(type) {
		case string:
			setField(fieldValue, v)
		case bool:
			if fieldValue.Kind() == reflect.Bool {
				fieldValue.SetBool(v)
			}
		case []any:
			if fieldValue.Kind() == reflect.Slice {
				tags := make([]string, 0, len(v))
				for _, item := range v {
					tags = append(tags, fmt.Sprintf("%v", item))
				}
				fieldValue.Set(reflect.ValueOf(tags))
			}
		case []string:
			if fieldValue.Kind() == reflect.Slice {
				fieldValue.Set(reflect.ValueOf(v))
			}
		}
	}
	return s
}

// FromSettings copies all non-zero fields from source.
func (s *Settings) FromSettings(source *Settings) *Settings {
	if source == nil {
		return s
	}

	sourceValue := reflect.ValueOf(source).Elem()
	targetValue := reflect.ValueOf(s).Elem()

	for i := 0; i < sourceValue.NumField(); i++ {
		sourceField := sourceValue.Field(i)
		targetField := targetValue.Field(i)
		if sourceField.IsZero() || !targetField.CanSet() {
			continue
		}
		targetField.Set(sourceField)
	}
	return s
}

// setField assigns a string representation to a settings field.
func setField(fieldValue reflect.Value, raw string) {
	if !fieldValue.CanSet() {
		return
	}
	switch fieldValue.Kind() {
	case reflect.String:
		fieldValue.SetString(raw)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(raw)
		if err != nil {
			return
		}
		fieldValue.SetBool(boolValue)
	case reflect.Float32, reflect.Float64:
		floatValue, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return
		}
		fieldValue.SetFloat(floatValue)
	case reflect.Int, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return
		}
		fieldValue.SetInt(intValue)
	case reflect.Slice:
		if fieldValue.Type().Elem().Kind() == reflect.String {
			fieldValue.Set(reflect.ValueOf(strings.Split(raw, ",")))
		}
	}
}
