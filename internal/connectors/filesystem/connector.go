// Package filesystem ingests documents from a local directory tree,
// either as a one-shot scan or by watching for changes.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tessera-labs/tessera/internal/core/ports/driving"
	"github.com/tessera-labs/tessera/internal/logger"
	"github.com/tessera-labs/tessera/internal/normalisers"
)

// debounceWindow coalesces bursts of write events for one file into a
// single submission. Editors typically fire several events per save.
const debounceWindow = 500 * time.Millisecond

// textExtensions lists the file types the connector submits.
var textExtensions = map[string]bool{
	".md":   true,
	".txt":  true,
	".rst":  true,
	".adoc": true,
	".org":  true,
	".html": true,
	".htm":  true,
}

// Connector feeds files from a directory into one collection.
type Connector struct {
	collectionID string
	root         string
	ingest       driving.IngestService
}

// New creates a connector rooted at root that submits into the given
// collection.
func New(collectionID, root string, ingest driving.IngestService) *Connector {
	return &Connector{
		collectionID: collectionID,
		root:         root,
		ingest:       ingest,
	}
}

// Sync walks the tree once and submits every text file. Returns the
// number of documents submitted. Files already ingested and unchanged
// are deduplicated downstream by source reference.
func (c *Connector) Sync(ctx context.Context) (int, error) {
	submitted := 0
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != c.root {
				return filepath.SkipDir
			}
			return nil
		}
		if !isTextFile(path) {
			return nil
		}
		if err := c.submit(ctx, path, false); err != nil {
			logger.Warn("skipping %s: %v", path, err)
			return nil
		}
		submitted++
		return nil
	})
	if err != nil {
		return submitted, fmt.Errorf("scanning %s: %w", c.root, err)
	}
	return submitted, nil
}

// Watch blocks watching the tree until ctx is cancelled. New and
// modified text files are submitted with force so changed content is
// re-ingested. Subdirectories created while watching are picked up.
func (c *Connector) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, c.root); err != nil {
		return err
	}
	logger.Info("Watching %s", c.root)

	var mu sync.Mutex
	debounce := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		for _, timer := range debounce {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			c.handleEvent(ctx, watcher, event, &mu, debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error: %v", err)
		}
	}
}

// handleEvent routes one fsnotify event.
func (c *Connector) handleEvent(
	ctx context.Context,
	watcher *fsnotify.Watcher,
	event fsnotify.Event,
	mu *sync.Mutex,
	debounce map[string]*time.Timer,
) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := addRecursive(watcher, event.Name); err != nil {
				logger.Warn("watching new directory %s: %v", event.Name, err)
			}
			return
		}
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !isTextFile(event.Name) {
		return
	}

	path := event.Name
	mu.Lock()
	defer mu.Unlock()
	if timer, exists := debounce[path]; exists {
		timer.Stop()
	}
	debounce[path] = time.AfterFunc(debounceWindow, func() {
		mu.Lock()
		delete(debounce, path)
		mu.Unlock()

		if err := c.submit(ctx, path, true); err != nil {
			logger.Warn("submitting %s: %v", path, err)
		}
	})
}

// submit reads one file, normalises it to plain text, and hands it to
// the ingestion boundary.
func (c *Connector) submit(ctx context.Context, path string, force bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	content := normalisers.Normalise(path, string(raw))
	if content == "" {
		return fmt.Errorf("file is empty")
	}

	jobID, err := c.ingest.SubmitDocument(ctx, c.collectionID, SourceRef(path), content, force)
	if err != nil {
		return err
	}
	logger.Debug("submitted %s as job %s", path, jobID)
	return nil
}

// addRecursive watches dir and every subdirectory under it, skipping
// hidden directories.
func addRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// isTextFile reports whether the path has a supported text extension.
func isTextFile(path string) bool {
	return textExtensions[strings.ToLower(filepath.Ext(path))]
}
