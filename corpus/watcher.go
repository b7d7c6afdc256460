package corpus

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/rulebook/rule/parser"
)

const (
	// eventChannelBuffer is the size of the change batch channel.
	eventChannelBuffer = 16

	// DefaultDebounce is how long changes accumulate before a batch is emitted.
	DefaultDebounce = 300 * time.Millisecond
)

// watchedExtensions are the file types that can affect a compiled document.
var watchedExtensions = map[string]bool{
	".md":   true,
	".json": true,
}

// Batch is a debounced set of changes.
type Batch struct {
	// Corpora names every corpus with at least one changed file, sorted.
	Corpora []string

	// Paths lists the changed files, sorted.
	Paths []string
}

// Has reports whether the named corpus changed.
func (b Batch) Has(name string) bool {
	for _, c := range b.Corpora {
		if c == name {
			return true
		}
	}
	return false
}

// Watcher watches corpus directories and emits debounced change batches.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	// owners maps a watched directory to its corpus name.
	owners map[string]string

	// ignored holds absolute paths whose changes never produce a batch.
	ignored map[string]bool

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	// hashes suppresses batches for writes that did not change content.
	hashMu sync.Mutex
	hashes map[string]string

	events chan Batch
}

// NewWatcher creates a watcher. A non-positive debounce selects DefaultDebounce.
func NewWatcher(debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		watcher:  fsw,
		logger:   logger,
		debounce: debounce,
		owners:   make(map[string]string),
		ignored:  make(map[string]bool),
		pending:  make(map[string]fsnotify.Op),
		hashes:   make(map[string]string),
		events:   make(chan Batch, eventChannelBuffer),
	}, nil
}

// Add registers a corpus source. Its rules directory is watched recursively;
// the directories holding its metadata files are watched on their own.
// Missing directories are skipped.
func (w *Watcher) Add(src Source) error {
	if err := w.addRecursive(src.Name, src.RulesDir); err != nil {
		return err
	}
	for _, file := range []string{src.SectionsFile, src.MetadataFile} {
		if file == "" {
			continue
		}
		if err := w.addDir(src.Name, filepath.Dir(file)); err != nil {
			return err
		}
	}
	return nil
}

// Ignore excludes files, such as compiled outputs written next to a corpus,
// from change detection. Call it before Start.
func (w *Watcher) Ignore(paths ...string) {
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			w.ignored[abs] = true
		}
	}
}

// Events returns the channel of change batches. It is closed when the
// watcher stops.
func (w *Watcher) Events() <-chan Batch {
	return w.events
}

// Start begins processing file system events until ctx is done.
func (w *Watcher) Start(ctx context.Context) {
	go w.processEvents(ctx)

	w.logger.Info("Rule watcher started",
		"dirs", len(w.owners),
		"debounce", w.debounce)
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) addRecursive(name, root string) error {
	if root == "" {
		return nil
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if path != root && strings.HasPrefix(base, ".") {
			return filepath.SkipDir
		}
		return w.addDir(name, path)
	})
	if errors.Is(err, fs.ErrNotExist) {
		w.logger.Debug("Not watching missing directory", "corpus", name, "dir", root)
		return nil
	}
	return err
}

func (w *Watcher) addDir(name, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if _, ok := w.owners[abs]; ok {
		return nil
	}
	if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
		w.logger.Debug("Not watching missing directory", "corpus", name, "dir", abs)
		return nil
	}
	if err := w.watcher.Add(abs); err != nil {
		w.logger.Warn("Failed to watch directory", "dir", abs, "error", err)
		return nil
	}
	w.owners[abs] = name
	w.logger.Debug("Watching directory", "corpus", name, "dir", abs)
	return nil
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			if batch, ok := w.flushPending(); ok {
				select {
				case w.events <- batch:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// handleFSEvent records a relevant change for the next flush.
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if !watchedExtensions[strings.ToLower(filepath.Ext(path))] {
		return
	}
	if abs, err := filepath.Abs(path); err == nil && w.ignored[abs] {
		return
	}
	if _, ok := w.ownerOf(path); !ok {
		return
	}

	w.pendingMu.Lock()
	w.pending[path] |= event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("Rule change detected", "path", path, "op", event.Op.String())
}

// ownerOf returns the corpus owning the directory of path.
func (w *Watcher) ownerOf(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	name, ok := w.owners[filepath.Dir(abs)]
	return name, ok
}

// flushPending turns accumulated changes into a batch. Files whose content
// hash did not change are dropped.
func (w *Watcher) flushPending() (Batch, bool) {
	w.pendingMu.Lock()
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	if len(toProcess) == 0 {
		return Batch{}, false
	}

	corpora := make(map[string]bool)
	var paths []string

	for path, op := range toProcess {
		name, _ := w.ownerOf(path)

		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			w.forget(path)
			corpora[name] = true
			paths = append(paths, path)
			continue
		}

		content, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			w.forget(path)
			corpora[name] = true
			paths = append(paths, path)
			continue
		}
		if err != nil {
			w.logger.Warn("Failed to read changed file", "path", path, "error", err)
			continue
		}

		if !w.remember(path, parser.ContentHash(content)) {
			continue
		}
		corpora[name] = true
		paths = append(paths, path)
	}

	if len(paths) == 0 {
		return Batch{}, false
	}

	batch := Batch{Paths: paths}
	for name := range corpora {
		batch.Corpora = append(batch.Corpora, name)
	}
	sort.Strings(batch.Corpora)
	sort.Strings(batch.Paths)
	return batch, true
}

// remember records the hash of path and reports whether it changed.
func (w *Watcher) remember(path, hash string) bool {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	if old, ok := w.hashes[path]; ok && old == hash {
		return false
	}
	w.hashes[path] = hash
	return true
}

func (w *Watcher) forget(path string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	delete(w.hashes, path)
}
