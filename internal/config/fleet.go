package config

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FleetGroup names a worker group the orchestrator can resize, and the
// diurnal detect window that governs it.
type FleetGroup struct {
	Name          string `yaml:"name"`
	DetectStart   string `yaml:"detectStart"` // "HH:MM" wall-clock, local time
	DetectEnd     string `yaml:"detectEnd"`
	DetectTarget  int    `yaml:"detectTarget"`
	ArchiveTarget int    `yaml:"archiveTarget"`
	ArchiveWindow int    `yaml:"archiveWindowMinutes"` // parsed but not read; archive mode always spans a fixed 10 minutes
}

// FleetFile is the on-disk shape of config/fleet.yaml.
type FleetFile struct {
	Groups []FleetGroup `yaml:"groups"`
}

// FleetConfig is a hot-reloadable view over FleetFile, watched the way the
// license manager watches its license file: fsnotify plus a 60s polling
// fallback, so a missed inotify event never wedges the controller onto a
// stale configuration.
type FleetConfig struct {
	mu   sync.RWMutex
	path string
	file FleetFile
}

// NewFleetConfig loads path once and returns a ready-to-watch value.
func NewFleetConfig(path string) (*FleetConfig, error) {
	fc := &FleetConfig{path: path}
	if err := fc.reload(); err != nil {
		return nil, err
	}
	return fc, nil
}

func (fc *FleetConfig) reload() error {
	raw, err := os.ReadFile(fc.path)
	if err != nil {
		return err
	}
	var f FleetFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return err
	}
	fc.mu.Lock()
	fc.file = f
	fc.mu.Unlock()
	return nil
}

// Groups returns a snapshot of the currently loaded groups.
func (fc *FleetConfig) Groups() []FleetGroup {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	out := make([]FleetGroup, len(fc.file.Groups))
	copy(out, fc.file.Groups)
	return out
}

// Watch starts the fsnotify+poll dual watch loop and returns once goroutines
// are launched; it does not block.
func (fc *FleetConfig) Watch(stop <-chan struct{}) {
	watcher, err := fsnotify.NewWatcher()
	usePolling := false
	if err != nil {
		log.Printf("fleet config watcher: fsnotify unavailable (%v), polling only", err)
		usePolling = true
	} else if err := watcher.Add(fc.path); err != nil {
		log.Printf("fleet config watcher: failed to watch %s (%v), polling only", fc.path, err)
		usePolling = true
		watcher.Close()
	}

	if !usePolling {
		go func() {
			defer watcher.Close()
			for {
				select {
				case <-stop:
					return
				case event, ok := <-watcher.Events:
					if !ok {
						return
					}
					if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
						time.Sleep(100 * time.Millisecond)
						if err := fc.reload(); err != nil {
							log.Printf("fleet config reload failed: %v", err)
						}
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return
					}
					log.Printf("fleet config watcher error: %v", err)
				}
			}
		}()
	}

	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := fc.reload(); err != nil {
					log.Printf("fleet config poll reload failed: %v", err)
				}
			}
		}
	}()
}
