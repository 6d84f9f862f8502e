package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/hellotriangle/engine/assets"
	"github.com/spaghettifunk/hellotriangle/engine/core"
	"github.com/spaghettifunk/hellotriangle/engine/renderer"
	"github.com/spaghettifunk/hellotriangle/engine/renderer/metadata"
)

// DefaultLibraryManifest is the asset describing the default shader library.
const DefaultLibraryManifest = "shaders/library.toml"

/**
 * @brief A compiled shader function: one SPIR-V module and its entry point.
 */
type VulkanShaderFunction struct {
	name  string
	stage metadata.ShaderStage
	/** @brief The internal shader module Handle. */
	Handle vk.ShaderModule
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

var _ renderer.ShaderFunction = (*VulkanShaderFunction)(nil)

func (f *VulkanShaderFunction) Name() string                { return f.name }
func (f *VulkanShaderFunction) Stage() metadata.ShaderStage { return f.stage }

/**
 * @brief The shader library described by a manifest. Functions are compiled
 * into shader modules the first time they are asked for.
 */
type VulkanShaderLibrary struct {
	context   *VulkanContext
	assets    *assets.AssetManager
	config    *metadata.ShaderLibraryConfig
	functions map[string]*VulkanShaderFunction
}

var _ renderer.ShaderLibrary = (*VulkanShaderLibrary)(nil)

func NewShaderLibrary(context *VulkanContext, am *assets.AssetManager, manifest string) (*VulkanShaderLibrary, error) {
	res, err := am.LoadAsset(manifest, metadata.ResourceTypeShaderLibrary, map[string]string{"name": "default"})
	if err != nil {
		return nil, err
	}
	config, ok := res.Data.(*metadata.ShaderLibraryConfig)
	if !ok {
		return nil, fmt.Errorf("%s is not a shader library", manifest)
	}
	return &VulkanShaderLibrary{
		context:   context,
		assets:    am,
		config:    config,
		functions: make(map[string]*VulkanShaderFunction),
	}, nil
}

func (l *VulkanShaderLibrary) NewFunction(name string) (renderer.ShaderFunction, error) {
	fn, err := l.function(name)
	if err != nil {
		return nil, err
	}
	return fn, nil
}

func (l *VulkanShaderLibrary) function(name string) (*VulkanShaderFunction, error) {
	if fn, ok := l.functions[name]; ok {
		return fn, nil
	}
	cfg, ok := l.config.Function(name)
	if !ok {
		return nil, fmt.Errorf("%q in library %q: %w", name, l.config.Name, core.ErrShaderNotFound)
	}
	fn, err := NewShaderModule(l.context, l.assets, cfg)
	if err != nil {
		return nil, err
	}
	l.functions[name] = fn
	return fn, nil
}

func (l *VulkanShaderLibrary) Destroy() {
	for name, fn := range l.functions {
		if fn.Handle != vk.NullShaderModule {
			vk.DestroyShaderModule(l.context.Device.LogicalDevice, fn.Handle, l.context.Allocator)
			fn.Handle = vk.NullShaderModule
		}
		delete(l.functions, name)
	}
}

func shaderStageFlag(stage metadata.ShaderStage) (vk.ShaderStageFlagBits, error) {
	switch stage {
	case metadata.ShaderStageVertex:
		return vk.ShaderStageVertexBit, nil
	case metadata.ShaderStageFragment:
		return vk.ShaderStageFragmentBit, nil
	default:
		return 0, fmt.Errorf("unsupported shader stage %s", stage)
	}
}

// NewShaderModule reads the SPIR-V binary behind cfg and wraps it in a shader module.
func NewShaderModule(context *VulkanContext, am *assets.AssetManager, cfg metadata.ShaderFunctionConfig) (*VulkanShaderFunction, error) {
	stageFlag, err := shaderStageFlag(cfg.Stage)
	if err != nil {
		return nil, err
	}

	binaryResource, err := am.LoadAsset(cfg.File, metadata.ResourceTypeBinary, map[string]string{"name": cfg.Name})
	if err != nil {
		return nil, fmt.Errorf("unable to read shader module %s: %w", cfg.File, err)
	}
	defer am.UnloadAsset(binaryResource, metadata.ResourceTypeBinary)

	code, ok := binaryResource.Data.([]uint32)
	if !ok {
		return nil, errors.New("shader binary has no SPIR-V code")
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(binaryResource.DataSize),
		PCode:    code,
	}

	fn := &VulkanShaderFunction{name: cfg.Name, stage: cfg.Stage}
	if err := resultError("vkCreateShaderModule", vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &fn.Handle)); err != nil {
		return nil, err
	}

	// The function name is the SPIR-V entry point.
	fn.ShaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stageFlag,
		Module: fn.Handle,
		PName:  VulkanSafeString(cfg.Name),
	}

	core.LogDebug("Shader module %s (%s) created from %s.", cfg.Name, cfg.Stage, cfg.File)
	return fn, nil
}
