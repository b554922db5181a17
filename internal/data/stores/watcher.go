package stores

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const debounceDelay = 50 * time.Millisecond

// Watcher reports changes to key files of a FileStore made by any process,
// this one included. Callbacks for a key are debounced so a burst of writes
// produces one notification.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	logger  zerolog.Logger

	mu       sync.Mutex
	handlers map[string][]func() // key -> callbacks
	debounce map[string]*time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher starts watching the FileStore's directory, creating it if needed.
func NewWatcher(store *FileStore, logger zerolog.Logger) (*Watcher, error) {
	if err := os.MkdirAll(store.Dir(), 0o755); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fw.Add(store.Dir()); err != nil {
		_ = fw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		dir:      store.Dir(),
		watcher:  fw,
		logger:   logger,
		handlers: make(map[string][]func()),
		debounce: make(map[string]*time.Timer),
		ctx:      ctx,
		cancel:   cancel,
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// OnChange registers fn to run after key's file is written, replaced or removed.
func (w *Watcher) OnChange(key string, fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[key] = append(w.handlers[key], fn)
}

// Close stops watching. Pending debounced callbacks are dropped.
func (w *Watcher) Close() error {
	w.cancel()

	w.mu.Lock()
	for _, timer := range w.debounce {
		timer.Stop()
	}
	w.debounce = make(map[string]*time.Timer)
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Str("dir", w.dir).Msg("file watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}

	name := filepath.Base(event.Name)
	if !strings.HasSuffix(name, FileExt) {
		return
	}
	key := keyFromFile(name)

	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.handlers[key]) == 0 {
		return
	}
	if timer, exists := w.debounce[key]; exists {
		timer.Stop()
	}
	w.debounce[key] = time.AfterFunc(debounceDelay, func() {
		w.notify(key)
	})
}

func (w *Watcher) notify(key string) {
	if w.ctx.Err() != nil {
		return
	}

	w.mu.Lock()
	handlers := append([]func(){}, w.handlers[key]...)
	delete(w.debounce, key)
	w.mu.Unlock()

	w.logger.Debug().Str("key", key).Msg("storage file changed")
	for _, fn := range handlers {
		fn()
	}
}
