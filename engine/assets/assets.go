package assets

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/vkbind/engine/core"
	"github.com/spaghettifunk/vkbind/engine/renderer/vulkan"
)

const ShaderExtension = ".spv"

var (
	ErrShaderNotFound = errors.New("shader not found")
	ErrInvalidShader  = errors.New("invalid SPIR-V module")
	ErrLibraryClosed  = errors.New("shader library already closed")
)

type ShaderAsset struct {
	// Name is the path relative to the library root without the extension,
	// for example "builtin/clear.vert".
	Name       string
	Path       string
	Code       []byte
	LastLoaded time.Time
}

// ShaderLibrary indexes the SPIR-V files under a directory and, once
// watching, reloads them when they change on disk.
type ShaderLibrary struct {
	root    string
	shaders map[string]*ShaderAsset

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	reloads  chan string
	errors   chan error
	wg       sync.WaitGroup
}

// NewShaderLibrary loads every shader below root.
func NewShaderLibrary(root string) (*ShaderLibrary, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	sl := &ShaderLibrary{
		root:    abs,
		shaders: make(map[string]*ShaderAsset),
		reloads: make(chan string, 16),
		errors:  make(chan error, 16),
		done:    make(chan struct{}),
	}
	jobs, err := NewJobSystem(runtime.NumCPU(), 64)
	if err != nil {
		return nil, err
	}
	err = filepath.Walk(abs, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			jobs.Submit(JobTask{Run: func() error {
				sl.handleFileEvent(path)
				return nil
			}})
		}
		return nil
	})
	jobs.Shutdown()
	if err != nil {
		return nil, err
	}
	core.LogInfo("Shader library %s: %d shaders", abs, len(sl.shaders))
	return sl, nil
}

// ValidateSPIRV checks the word alignment and the magic number.
func ValidateSPIRV(code []byte) error {
	if len(code) == 0 || len(code)%4 != 0 {
		return fmt.Errorf("%w: size %d is not a positive multiple of 4", ErrInvalidShader, len(code))
	}
	if magic := binary.LittleEndian.Uint32(code); magic != vulkan.SPIRVMagic {
		return fmt.Errorf("%w: magic %#08x", ErrInvalidShader, magic)
	}
	return nil
}

func (sl *ShaderLibrary) nameOf(path string) (string, bool) {
	if filepath.Ext(path) != ShaderExtension {
		return "", false
	}
	rel, err := filepath.Rel(sl.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(strings.TrimSuffix(rel, ShaderExtension)), true
}

// Load returns the current code of the named shader.
func (sl *ShaderLibrary) Load(name string) (*ShaderAsset, error) {
	sl.mutex.RLock()
	defer sl.mutex.RUnlock()
	asset, ok := sl.shaders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrShaderNotFound, name)
	}
	return asset, nil
}

// Names lists the loaded shaders in lexical order.
func (sl *ShaderLibrary) Names() []string {
	sl.mutex.RLock()
	names := make([]string, 0, len(sl.shaders))
	for name := range sl.shaders {
		names = append(names, name)
	}
	sl.mutex.RUnlock()
	slices.Sort(names)
	return names
}

// CreateModule builds a shader module from the named shader.
func (sl *ShaderLibrary) CreateModule(device *vulkan.VulkanDevice, name string) (*vulkan.VulkanShaderModule, error) {
	asset, err := sl.Load(name)
	if err != nil {
		return nil, err
	}
	return device.CreateShaderModule(asset.Code)
}

// Reloads delivers the name of every shader reloaded while watching.
// Notifications are dropped when nobody keeps up with them.
func (sl *ShaderLibrary) Reloads() <-chan string { return sl.reloads }

func (sl *ShaderLibrary) Errors() <-chan error { return sl.errors }

// Watch starts reloading shaders as they change on disk.
func (sl *ShaderLibrary) Watch() error {
	sl.mutex.Lock()
	defer sl.mutex.Unlock()
	if sl.isClosed {
		return ErrLibraryClosed
	}
	if sl.fsnotify != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	sl.fsnotify = w
	if err := sl.watchRecursive(sl.root); err != nil {
		w.Close()
		sl.fsnotify = nil
		return err
	}
	sl.wg.Add(1)
	go sl.start(w)
	return nil
}

// Close stops watching. The library keeps serving what it loaded.
func (sl *ShaderLibrary) Close() error {
	sl.mutex.Lock()
	if sl.isClosed {
		sl.mutex.Unlock()
		return nil
	}
	sl.isClosed = true
	watching := sl.fsnotify != nil
	sl.mutex.Unlock()
	if watching {
		close(sl.done)
		sl.wg.Wait()
	}
	return nil
}

func (sl *ShaderLibrary) start(w *fsnotify.Watcher) {
	defer sl.wg.Done()
	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					sl.mutex.Lock()
					if err := sl.watchRecursive(e.Name); err != nil {
						sl.notifyError(err)
					}
					sl.mutex.Unlock()
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if name, ok := sl.handleFileEvent(e.Name); ok {
					sl.notifyReload(name)
				}
			}
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				sl.removeShader(e.Name)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			core.LogError("shader watcher: %s", err)
			sl.notifyError(err)

		case <-sl.done:
			w.Close()
			return
		}
	}
}

func (sl *ShaderLibrary) notifyReload(name string) {
	select {
	case sl.reloads <- name:
	default:
		core.LogDebug("shader reload of %s not delivered", name)
	}
}

func (sl *ShaderLibrary) notifyError(err error) {
	select {
	case sl.errors <- err:
	default:
	}
}

// watchRecursive adds path and every directory below it to the watch list.
// Files already present are indexed. Caller holds sl.mutex.
func (sl *ShaderLibrary) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return sl.fsnotify.Add(walkPath)
		}
		if name, ok := sl.nameOf(walkPath); ok {
			if _, known := sl.shaders[name]; !known {
				sl.load(name, walkPath)
			}
		}
		return nil
	})
}

// handleFileEvent (re)loads a shader file and reports its name.
func (sl *ShaderLibrary) handleFileEvent(path string) (string, bool) {
	name, ok := sl.nameOf(path)
	if !ok {
		return "", false
	}
	sl.mutex.Lock()
	defer sl.mutex.Unlock()
	return name, sl.load(name, path)
}

// load reads and validates one file. An invalid file keeps the previous
// version of the shader. Caller holds sl.mutex.
func (sl *ShaderLibrary) load(name, path string) bool {
	code, err := os.ReadFile(path)
	if err == nil {
		err = ValidateSPIRV(code)
	}
	if err != nil {
		core.LogWarn("shader %s not loaded: %v", name, err)
		return false
	}
	sl.shaders[name] = &ShaderAsset{
		Name:       name,
		Path:       path,
		Code:       code,
		LastLoaded: time.Now(),
	}
	core.LogDebug("shader %s loaded (%d bytes)", name, len(code))
	return true
}

// Remove the shader from the index if its file was deleted
func (sl *ShaderLibrary) removeShader(path string) {
	name, ok := sl.nameOf(path)
	if !ok {
		return
	}
	sl.mutex.Lock()
	defer sl.mutex.Unlock()
	delete(sl.shaders, name)
}
