package backtest

import (
	"encoding/json"
	"os"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/streamquant/pkg/errors"
)

// StrategyConfig names one rule script to register on the engine.
type StrategyConfig struct {
	Name   string `yaml:"name" json:"name" jsonschema:"title=Name,description=Strategy name used in logs and reports" validate:"required"`
	Script string `yaml:"script" json:"script" jsonschema:"title=Script,description=Rule script source" validate:"required"`
}

// RunConfig is the YAML configuration of one backtest run.
type RunConfig struct {
	Capacity       int                        `yaml:"capacity" json:"capacity" jsonschema:"title=Capacity,description=Bar store capacity,minimum=1" validate:"gt=0"`
	MarginPerTrade float64                    `yaml:"margin_per_trade" json:"margin_per_trade" jsonschema:"title=Margin Per Trade,description=Margin allocated to each opened position in USD,minimum=0" validate:"gt=0"`
	Backtest       BacktestParams             `yaml:"backtest" json:"backtest" jsonschema:"title=Backtest,description=Futures simulator parameters"`
	Strategies     []StrategyConfig           `yaml:"strategies" json:"strategies" jsonschema:"title=Strategies,description=Strategies to evaluate" validate:"min=1,dive"`
	StartTime      optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional inclusive lower bound on bar timestamps"`
	EndTime        optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional inclusive upper bound on bar timestamps"`
}

// UnmarshalYAML implements custom unmarshaling for RunConfig so the optional
// time bounds round-trip through plain YAML timestamps.
func (c *RunConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type Config struct {
		Capacity       int              `yaml:"capacity"`
		MarginPerTrade float64          `yaml:"margin_per_trade"`
		Backtest       BacktestParams   `yaml:"backtest"`
		Strategies     []StrategyConfig `yaml:"strategies"`
		StartTime      *time.Time       `yaml:"start_time"`
		EndTime        *time.Time       `yaml:"end_time"`
	}

	var config Config
	if err := unmarshal(&config); err != nil {
		return err
	}

	c.Capacity = config.Capacity
	c.MarginPerTrade = config.MarginPerTrade
	c.Backtest = config.Backtest
	c.Strategies = config.Strategies
	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}
	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// Validate checks the run config, including the nested simulator parameters.
func (c *RunConfig) Validate() error {
	if err := paramsValidator.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, "invalid run config", err)
	}

	return nil
}

// LoadRunConfig reads and validates a YAML run config from disk.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfig, err, "cannot read config %s", path)
	}

	var config RunConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfig, err, "cannot parse config %s", path)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// GenerateSchema generates a JSON schema for the RunConfig.
func (c *RunConfig) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}
			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "streamquant-run-config"
	schema.Description = "Configuration schema for a streamquant backtest run"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates an indented JSON schema string for the
// RunConfig.
func (c *RunConfig) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
