package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/hellotriangle/engine/assets/loaders"
	"github.com/spaghettifunk/hellotriangle/engine/core"
	"github.com/spaghettifunk/hellotriangle/engine/renderer/metadata"
)

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// AssetManager indexes every known file under the assets directory and keeps
// the index current while the application runs. Assets are addressed by
// their slash separated path relative to the assets directory, for example
// "shaders/library.toml".
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[metadata.ResourceType]Loader),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}, nil
}

func (am *AssetManager) Initialize(assetsDir string) error {
	root, err := filepath.Abs(assetsDir)
	if err != nil {
		return err
	}
	s, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("assets directory: %w", err)
	}
	if !s.IsDir() {
		return fmt.Errorf("assets directory %s is not a directory", root)
	}
	am.root = root

	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})
	am.registerLoader(metadata.ResourceTypeShaderLibrary, &loaders.ShaderLibraryLoader{})

	if err := am.addRecursive(root); err != nil {
		return err
	}

	am.wg.Add(1)
	go am.start()

	core.LogDebug("indexed %d assets under %s", am.Len(), root)
	return nil
}

// Shutdown stops the watcher. The index stays readable.
func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	am.wg.Wait()
	return am.fsnotify.Close()
}

// addRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset watcher already closed")
	}
	return am.watchRecursive(name)
}

func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// Len returns the number of indexed assets.
func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Lookup returns the index entry for name.
func (am *AssetManager) Lookup(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	a, ok := am.assets[name]
	return a, ok
}

// LoadAsset loads name with the loader registered for resourceType. The
// asset must be indexed and of that type.
func (am *AssetManager) LoadAsset(name string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	am.mutex.Lock()
	asset, exists := am.assets[name]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[name] = asset
	}
	loader, loaderExists := am.loaders[resourceType]
	am.mutex.Unlock()

	if !exists {
		return nil, fmt.Errorf("asset not found: %s", name)
	}
	if asset.Type != resourceType {
		return nil, fmt.Errorf("asset %s is a %s, not a %s", name, asset.Type, resourceType)
	}
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", resourceType)
	}

	return loader.Load(filepath.Join(am.root, filepath.FromSlash(name)), resourceType, params)
}

func (am *AssetManager) UnloadAsset(asset *metadata.Resource, resourceType metadata.ResourceType) error {
	if asset == nil {
		return nil
	}
	am.mutex.RLock()
	loader, ok := am.loaders[resourceType]
	am.mutex.RUnlock()
	if !ok {
		return fmt.Errorf("no loader registered for asset type: %s", resourceType)
	}
	return loader.Unload(asset)
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&fsnotify.Create != 0 {
				if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
					if err := am.watchRecursive(e.Name); err != nil {
						core.LogError("failed to watch %s: %s", e.Name, err)
					}
					continue
				}
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name)
			}
			// A removed directory can't be stat'd, so drop whatever was indexed under it.
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			return
		}
	}
}

// watchRecursive watches path and every directory below it and indexes the
// files it finds on the way.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) {
	name, ok := am.key(path)
	if !ok {
		return
	}
	assetType := determineAssetType(name)
	if assetType == metadata.ResourceTypeNone {
		return
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[name] = AssetInfo{
		Path:       path,
		Type:       assetType,
		LastLoaded: time.Time{},
	}
}

// Remove the asset, or every asset below a removed directory, from the index.
func (am *AssetManager) removeAsset(path string) {
	name, ok := am.key(path)
	if !ok {
		return
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	prefix := name + "/"
	for k := range am.assets {
		if k == name || strings.HasPrefix(k, prefix) {
			delete(am.assets, k)
		}
	}
}

func (am *AssetManager) key(path string) (string, bool) {
	rel, err := filepath.Rel(am.root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func determineAssetType(path string) metadata.ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return metadata.ResourceTypeBinary
	case ".toml":
		return metadata.ResourceTypeShaderLibrary
	default:
		return metadata.ResourceTypeNone
	}
}
