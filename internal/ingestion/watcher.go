package ingestion

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pterm/pterm"
)

// FileWatcher reports changes to a single file. It watches the parent
// directory so editors that replace the file via rename are still seen.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	events  chan string
	errors  chan error
	logger  *pterm.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewFileWatcher starts watching path. The file does not need to exist yet.
func NewFileWatcher(path string, logger *pterm.Logger) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.WithCaller().Error("Failed to create file watcher", logger.Args("error", err))
		return nil, err
	}

	dir := filepath.Dir(abs)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		logger.Warn("Failed to watch directory", logger.Args("path", dir, "error", err))
		return nil, err
	}

	if _, err := os.Stat(abs); os.IsNotExist(err) {
		logger.Warn("Domain list does not exist yet, waiting for it to be created",
			logger.Args("path", abs))
	}

	fw := &FileWatcher{
		watcher: watcher,
		path:    abs,
		events:  make(chan string, 1),
		errors:  make(chan error, 4),
		logger:  logger,
		stopCh:  make(chan struct{}),
	}

	fw.wg.Add(1)
	go fw.eventLoop()

	logger.Debug("Started watching file", logger.Args("path", abs))
	return fw, nil
}

func (fw *FileWatcher) eventLoop() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.stopCh:
			fw.logger.Debug("File watcher stopped")
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				fw.logger.Warn("File watcher events channel closed")
				return
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}

			switch {
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				fw.logger.Trace("Domain list change detected", fw.logger.Args("file", event.Name, "op", event.Op.String()))
				fw.notify(event.Name)

			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				fw.logger.Debug("Domain list removed or renamed", fw.logger.Args("file", event.Name))
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				fw.logger.Warn("File watcher errors channel closed")
				return
			}
			fw.logger.WithCaller().Error("File watcher error", fw.logger.Args("error", err))
			select {
			case fw.errors <- err:
			default:
				fw.logger.Warn("Error channel full, dropping error")
			}
		}
	}
}

// notify coalesces bursts: one pending event is enough to trigger a reload.
func (fw *FileWatcher) notify(name string) {
	select {
	case fw.events <- name:
	default:
	}
}

// Events returns the channel of change notifications.
func (fw *FileWatcher) Events() <-chan string {
	return fw.events
}

// Errors returns the channel for watcher errors.
func (fw *FileWatcher) Errors() <-chan error {
	return fw.errors
}

// Close stops the file watcher and cleans up resources.
func (fw *FileWatcher) Close() error {
	fw.logger.Debug("Closing file watcher...")
	close(fw.stopCh)
	fw.wg.Wait()

	if err := fw.watcher.Close(); err != nil {
		fw.logger.WithCaller().Error("Failed to close file watcher", fw.logger.Args("error", err))
		return err
	}

	close(fw.events)
	close(fw.errors)
	return nil
}
