package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"seqx/internal/spec"
)

const SupportedSchema = "v1"

// LoadPipelineSpec parses a pipeline YAML, validates schema_version and the
// transformer list, and returns the parsed spec with source paths
// (source.config, source.path) made absolute relative to the pipeline file.
func LoadPipelineSpec(path string) (spec.File, error) {
	var cfg spec.File
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SupportedSchema
	}
	if cfg.SchemaVersion != SupportedSchema {
		return cfg, fmt.Errorf("pipeline schema_version %q not supported (want %q)", cfg.SchemaVersion, SupportedSchema)
	}
	seen := make(map[string]bool, len(cfg.Transformers))
	for i, t := range cfg.Transformers {
		if t.Name == "" {
			return cfg, fmt.Errorf("transformer #%d: missing name", i)
		}
		if seen[t.Name] {
			return cfg, fmt.Errorf("transformer %q: duplicate name", t.Name)
		}
		seen[t.Name] = true
		if t.Op == "" {
			return cfg, fmt.Errorf("transformer %q: missing op", t.Name)
		}
	}
	dir := filepath.Dir(path)
	cfg.Source.Config = resolve(dir, cfg.Source.Config)
	cfg.Source.Path = resolve(dir, cfg.Source.Path)
	return cfg, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
