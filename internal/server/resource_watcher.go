package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"resumelens/internal/common"
	"resumelens/internal/errors"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounceDelay = time.Second

// ResourceWatcher watches a set of files (the taxonomy and stopword lists, or
// the TLS certificates) and triggers a debounced reload when they change
type ResourceWatcher struct {
	mu sync.Mutex

	files       []string
	lastModTime map[string]time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}
	loopDone   chan struct{}

	reloadCallback func()
	logger         *errors.Logger

	running bool
}

// NewResourceWatcher creates a watcher for the given files. Empty paths are
// ignored. reloadCallback runs on the watcher goroutine.
func NewResourceWatcher(files []string, debounceDelay time.Duration, reloadCallback func(), logger *errors.Logger) *ResourceWatcher {
	if debounceDelay <= 0 {
		debounceDelay = defaultDebounceDelay
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	var watched []string
	for _, file := range files {
		if file == "" {
			continue
		}
		if file = filepath.Clean(file); !slices.Contains(watched, file) {
			watched = append(watched, file)
		}
	}

	return &ResourceWatcher{
		files:          watched,
		lastModTime:    make(map[string]time.Time),
		debounceDelay:  debounceDelay,
		stopChan:       make(chan struct{}),
		reloadChan:     make(chan struct{}, 1),
		loopDone:       make(chan struct{}),
		reloadCallback: reloadCallback,
		logger:         logger,
	}
}

// Start begins watching the resource files
func (rw *ResourceWatcher) Start() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.running {
		return fmt.Errorf("resource watcher is already running")
	}
	if len(rw.files) == 0 {
		return fmt.Errorf("no files to watch")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	rw.fsWatcher = fsWatcher

	for _, file := range rw.files {
		if stat, err := os.Stat(file); err == nil {
			rw.lastModTime[file] = stat.ModTime()
		}
		if err := rw.addFileToWatcher(file); err != nil {
			rw.logger.Warn("Failed to watch file", "file", file, "error", err)
		}
	}

	rw.running = true
	go rw.watchLoop()

	rw.logger.Info("File watcher started",
		"files", rw.files,
		"debounce_delay", rw.debounceDelay)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit
func (rw *ResourceWatcher) Stop() error {
	rw.mu.Lock()
	if !rw.running {
		rw.mu.Unlock()
		return nil
	}

	close(rw.stopChan)
	if rw.debounceTimer != nil {
		rw.debounceTimer.Stop()
	}
	rw.running = false
	rw.mu.Unlock()

	<-rw.loopDone

	if err := rw.fsWatcher.Close(); err != nil {
		rw.logger.LogError(err, "Failed to close file system watcher")
		return err
	}

	rw.logger.Info("File watcher stopped")
	return nil
}

// IsRunning returns whether the watcher is currently running
func (rw *ResourceWatcher) IsRunning() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.running
}

// GetWatchedFiles returns the list of files being watched
func (rw *ResourceWatcher) GetWatchedFiles() []string {
	return slices.Clone(rw.files)
}

// addFileToWatcher watches the file's directory, which also catches editors
// and config management tools that replace files by rename
func (rw *ResourceWatcher) addFileToWatcher(file string) error {
	dir := filepath.Dir(file)
	if err := rw.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	return nil
}

func (rw *ResourceWatcher) watchLoop() {
	defer close(rw.loopDone)

	for {
		select {
		case event, ok := <-rw.fsWatcher.Events:
			if !ok {
				return
			}
			if rw.shouldProcessEvent(event) {
				rw.scheduleReload()
			}

		case err, ok := <-rw.fsWatcher.Errors:
			if !ok {
				return
			}
			rw.logger.LogError(err, "File watcher error")

		case <-rw.reloadChan:
			if rw.hasAnyFileChanged() {
				rw.logger.Info("Watched files changed, triggering reload")
				rw.reloadCallback()
			}

		case <-rw.stopChan:
			return
		}
	}
}

// shouldProcessEvent reports whether event touches a watched file
func (rw *ResourceWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if !slices.Contains(rw.files, filepath.Clean(event.Name)) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (rw *ResourceWatcher) hasAnyFileChanged() bool {
	changed := false
	for _, file := range rw.files {
		// Every file is checked so all modification times stay current
		if rw.hasFileChanged(file) {
			changed = true
		}
	}
	return changed
}

// hasFileChanged checks if a file has been modified since last check
func (rw *ResourceWatcher) hasFileChanged(file string) bool {
	stat, err := os.Stat(file)
	if err != nil {
		if _, exists := rw.lastModTime[file]; exists && os.IsNotExist(err) {
			delete(rw.lastModTime, file)
			return true
		}
		return false
	}

	lastMod, exists := rw.lastModTime[file]
	if !exists || !stat.ModTime().Equal(lastMod) {
		rw.lastModTime[file] = stat.ModTime()
		return true
	}
	return false
}

// scheduleReload schedules a debounced reload
func (rw *ResourceWatcher) scheduleReload() {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.debounceTimer != nil {
		rw.debounceTimer.Stop()
	}

	rw.debounceTimer = time.AfterFunc(rw.debounceDelay, func() {
		select {
		case rw.reloadChan <- struct{}{}:
		default:
			// A reload is already pending
		}
	})
}

// ReloadResources rebuilds the analyzer from the analysis configuration
// and swaps it in. On failure the current analyzer keeps serving.
func (s *Server) ReloadResources() error {
	ctx := context.Background()

	analyzer, err := common.BuildAnalyzer(s.AppConfig.Analysis, s.Logger)
	if err != nil {
		s.om.RecordResourceReload(ctx, false)
		s.Logger.LogError(err, "Failed to reload analysis resources, keeping the current analyzer")
		return err
	}

	s.SwapAnalyzer(analyzer)
	s.reloads.Add(1)
	s.om.RecordResourceReload(ctx, true)
	s.Logger.Info("Analysis resources reloaded",
		"categories", analyzer.Taxonomy().Len(),
		"reloads", s.reloads.Load())
	return nil
}

// startResourceWatcher watches the configured taxonomy and stopword files
func (s *Server) startResourceWatcher() error {
	analysisCfg := s.AppConfig.Analysis
	if !analysisCfg.WatchResources {
		return nil
	}

	files := []string{analysisCfg.TaxonomyFile, analysisCfg.StopwordsFile}
	watcher := NewResourceWatcher(files, defaultDebounceDelay, func() { _ = s.ReloadResources() }, s.Logger)
	if len(watcher.GetWatchedFiles()) == 0 {
		s.Logger.Warn("Resource watching enabled but no taxonomy or stopwords file is configured")
		return nil
	}

	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to start resource watcher: %w", err)
	}
	s.watcher = watcher
	return nil
}
