package watch

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"
)

// FileEvent is a filesystem change affecting the watched file.
type FileEvent struct {
	Path string
	Op   fsnotify.Op
}

// FileWatcher emits events for a single file. It watches the parent
// directory so that editors and exporters replacing the file by rename are
// still observed.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	target  string
	events  chan FileEvent
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewFileWatcher creates a FileWatcher for path. It must be started with
// Start before it emits events.
func NewFileWatcher(path string) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, eris.Wrapf(err, "watch: resolve %s", path)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, eris.Wrap(err, "watch: create fsnotify watcher")
	}
	return &FileWatcher{
		watcher: w,
		target:  abs,
		events:  make(chan FileEvent, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching the target's directory.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.running {
		return eris.New("watch: watcher already running")
	}

	dir := filepath.Dir(fw.target)
	if err := fw.watcher.Add(dir); err != nil {
		return eris.Wrapf(err, "watch: watch directory %s", dir)
	}

	fw.running = true
	fw.wg.Add(1)
	go fw.processEvents()
	return nil
}

// Stop stops watching and blocks until the event loop has exited. It is
// safe to call on a watcher that was never started.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	wasRunning := fw.running
	fw.running = false
	fw.mu.Unlock()

	if !wasRunning {
		return fw.watcher.Close()
	}

	close(fw.done)
	if err := fw.watcher.Close(); err != nil {
		return eris.Wrap(err, "watch: close watcher")
	}
	fw.wg.Wait()

	close(fw.events)
	close(fw.errors)
	return nil
}

// Events returns the channel of events for the target file. It is closed
// by Stop.
func (fw *FileWatcher) Events() <-chan FileEvent {
	return fw.events
}

// Errors returns the channel of watcher errors. It is closed by Stop.
func (fw *FileWatcher) Errors() <-chan error {
	return fw.errors
}

func (fw *FileWatcher) processEvents() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.done:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fe, ok := fw.convertEvent(event)
			if !ok {
				continue
			}
			select {
			case fw.events <- fe:
			case <-fw.done:
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			select {
			case fw.errors <- err:
			default:
				// Drop when nobody is draining errors.
			}
		}
	}
}

// convertEvent keeps events naming the target. Pure permission changes are
// ignored.
func (fw *FileWatcher) convertEvent(event fsnotify.Event) (FileEvent, bool) {
	if filepath.Clean(event.Name) != fw.target {
		return FileEvent{}, false
	}
	if event.Op == fsnotify.Chmod {
		return FileEvent{}, false
	}
	return FileEvent{Path: fw.target, Op: event.Op}, true
}
