package loaders

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/hellotriangle/engine/renderer/metadata"
)

// ShaderLibraryLoader reads a TOML shader library manifest into a
// *metadata.ShaderLibraryConfig.
type ShaderLibraryLoader struct{}

func (sl *ShaderLibraryLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &metadata.ShaderLibraryConfig{}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(cfg.Functions) == 0 {
		return nil, fmt.Errorf("%s: shader library has no functions", path)
	}
	seen := make(map[string]struct{}, len(cfg.Functions))
	for i, f := range cfg.Functions {
		if f.Name == "" || f.File == "" {
			return nil, fmt.Errorf("%s: function %d needs both a name and a file", path, i)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("%s: function %q declared twice", path, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	if cfg.Name == "" {
		cfg.Name = resourceName(params, path)
	}

	return &metadata.Resource{
		Name:     cfg.Name,
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     cfg,
	}, nil
}

func (sl *ShaderLibraryLoader) Unload(r *metadata.Resource) error {
	r.Data = nil
	return nil
}
