package metadata

import "fmt"

/** @brief The programmable pipeline stage a shader function runs in. */
type ShaderStage int

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageFragment
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderStage(%d)", int(s))
	}
}

func (s ShaderStage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ShaderStage) UnmarshalText(text []byte) error {
	switch string(text) {
	case "vertex":
		*s = ShaderStageVertex
	case "fragment":
		*s = ShaderStageFragment
	default:
		return fmt.Errorf("unknown shader stage %q", string(text))
	}
	return nil
}

/** @brief One entry of a shader library manifest. */
type ShaderFunctionConfig struct {
	/** @brief The function name, also the SPIR-V entry point. */
	Name  string      `toml:"name"`
	Stage ShaderStage `toml:"stage"`
	/** @brief Compiled SPIR-V file, relative to the assets directory. */
	File string `toml:"file"`
}

/** @brief The default shader library: every function the application can look up by name. */
type ShaderLibraryConfig struct {
	Name      string                 `toml:"name"`
	Functions []ShaderFunctionConfig `toml:"function"`
}

// Function returns the manifest entry called name.
func (c *ShaderLibraryConfig) Function(name string) (ShaderFunctionConfig, bool) {
	for _, f := range c.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return ShaderFunctionConfig{}, false
}
