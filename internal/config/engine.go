package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Engine is the process-level configuration of `seqx engine`.
type Engine struct {
	GRPCPort    int    `koanf:"grpc_port"`
	MetricsPort int    `koanf:"metrics_port"`
	PipelineYml string `koanf:"pipeline"` // optional
	Log         struct {
		Level string `koanf:"level"`
		JSON  bool   `koanf:"json"`
	} `koanf:"log"`
}

// LoadEngineConfig merges YAML (if present) with env-vars
// (prefix `SEQX_ENGINE__`, delimiter `__`, e.g. SEQX_ENGINE__GRPC_PORT).
func LoadEngineConfig(path string) (Engine, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Engine{}, err
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return Engine{}, fmt.Errorf("engine schema_version %q not supported (want %s)", sv, SupportedSchema)
	}

	_ = k.Load(env.Provider("SEQX_ENGINE__", "__", envKey("SEQX_ENGINE__")), nil)

	var cfg Engine
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	if cfg.GRPCPort == 0 {
		cfg.GRPCPort = 7070
	}
	if cfg.MetricsPort == 0 {
		cfg.MetricsPort = 9100
	}
	return cfg, nil
}
