package config

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// configSchema is the structural contract a configuration must satisfy.
// Duration fields are encoded as Go duration strings by the Duration
// wrapper, so the schema only constrains their outer format.
const configSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "listen": {"type": "string", "minLength": 1},
    "upstreamTimeout": {"$ref": "#/$defs/duration"},
    "stats": {
      "type": "object",
      "properties": {
        "interval": {"$ref": "#/$defs/duration"}
      }
    },
    "sweep": {
      "type": "object",
      "properties": {
        "interval": {"$ref": "#/$defs/duration"},
        "maxEntryAge": {"$ref": "#/$defs/duration"}
      }
    },
    "intercept": {
      "type": "object",
      "properties": {
        "requestHeaders": {"$ref": "#/$defs/headerMap"},
        "requestStrip": {"$ref": "#/$defs/headerList"},
        "responseHeaders": {"$ref": "#/$defs/headerMap"},
        "responseStrip": {"$ref": "#/$defs/headerList"}
      }
    },
    "noColor": {"type": "boolean"}
  },
  "required": ["listen"],
  "$defs": {
    "duration": {
      "type": "string",
      "pattern": "^-?[0-9]"
    },
    "headerMap": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    },
    "headerList": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    }
  }
}`

// Validate checks cfg structurally against the embedded JSON Schema and
// then applies the semantic checks the schema cannot express.
func Validate(cfg *Config) error {
	if err := validateSchema(cfg); err != nil {
		return err
	}
	return validateSemantics(cfg)
}

func validateSchema(cfg *Config) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.json", strings.NewReader(configSchema)); err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	schema, err := compiler.Compile("config.json")
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}

	// Round-trip through JSON so the schema sees the same shape the json
	// tags define.
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("error decoding config: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func validateSemantics(cfg *Config) error {
	if _, _, err := net.SplitHostPort(cfg.Listen); err != nil {
		return fmt.Errorf("listen must be host:port: %w", err)
	}
	if cfg.UpstreamTimeout < 0 {
		return fmt.Errorf("upstreamTimeout must not be negative, got %s", cfg.UpstreamTimeout)
	}
	if cfg.Stats.Interval < 0 {
		return fmt.Errorf("stats.interval must not be negative, got %s", cfg.Stats.Interval)
	}
	if cfg.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep.interval must be positive, got %s", cfg.Sweep.Interval)
	}
	if cfg.Sweep.MaxEntryAge <= 0 {
		return fmt.Errorf("sweep.maxEntryAge must be positive, got %s", cfg.Sweep.MaxEntryAge)
	}
	return nil
}
