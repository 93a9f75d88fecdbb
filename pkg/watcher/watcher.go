package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/ksmt/ava/internal/types"
)

// Watcher ingests text files dropped into a directory into the
// knowledge base. Only .txt and .md files are picked up.
type Watcher struct {
	kb      types.KnowledgeBase
	watcher *fsnotify.Watcher
}

func New(kb types.KnowledgeBase) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		kb:      kb,
		watcher: w,
	}, nil
}

// Watch ingests files already present in dir, then keeps ingesting new
// or rewritten files until the context is cancelled.
func (w *Watcher) Watch(ctx context.Context, dir string) error {
	if err := w.ingestExisting(ctx, dir); err != nil {
		return err
	}

	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				if !isTextFile(event.Name) {
					continue
				}
				w.ingestFile(ctx, event.Name)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	return nil
}

func (w *Watcher) ingestExisting(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !isTextFile(entry.Name()) {
			continue
		}
		w.ingestFile(ctx, filepath.Join(dir, entry.Name()))
	}
	return nil
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("failed to read %s: %v", path, err)
		return
	}

	docs, err := w.kb.Ingest(ctx, string(data), map[string]interface{}{
		"source": "file",
		"path":   path,
	})
	if err != nil {
		log.Printf("failed to ingest %s: %v", path, err)
		return
	}
	log.Printf("ingested %s as %d document(s)", path, len(docs))
}

func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func isTextFile(path string) bool {
	switch filepath.Ext(path) {
	case ".txt", ".md":
		return true
	}
	return false
}
