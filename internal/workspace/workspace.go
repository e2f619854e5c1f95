// Package workspace enumerates and relocates files the renderer writes into
// the output directory.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zimalabs/genflow/pkg/models"
)

// Workspace wraps one output root directory.
type Workspace struct {
	root string
}

// New creates a Workspace over the given output root, creating it if absent.
func New(root string) (*Workspace, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create output root: %w", err)
	}
	return &Workspace{root: root}, nil
}

// Root returns the output root directory.
func (w *Workspace) Root() string {
	return w.root
}

// Snapshot returns the set of file names currently present in the output
// root. A missing directory yields an empty set.
func (w *Workspace) Snapshot() (map[string]struct{}, error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("read output root: %w", err)
	}

	names := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names[e.Name()] = struct{}{}
		}
	}
	return names, nil
}

// Diff returns files present now that were not in the snapshot, with their
// metadata populated.
func (w *Workspace) Diff(before map[string]struct{}) ([]models.GeneratedFile, error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read output root: %w", err)
	}

	var files []models.GeneratedFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, existed := before[e.Name()]; existed {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, models.GeneratedFile{
			Name:       e.Name(),
			Size:       info.Size(),
			CreatedAt:  info.ModTime(),
			ModifiedAt: info.ModTime(),
		})
	}
	return files, nil
}

// Describe stats the named files in the output root and returns their
// metadata. Names the watcher reported but that no longer exist are skipped.
func (w *Workspace) Describe(names []string) ([]models.GeneratedFile, error) {
	var files []models.GeneratedFile
	for _, name := range names {
		info, err := os.Stat(filepath.Join(w.root, name))
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, models.GeneratedFile{
			Name:       name,
			Size:       info.Size(),
			CreatedAt:  info.ModTime(),
			ModifiedAt: info.ModTime(),
		})
	}
	return files, nil
}

// Relocate moves the files into a session-scoped subdirectory of the output
// root and fills in download URLs. An empty session ID leaves files in place
// but still assigns URLs.
func (w *Workspace) Relocate(files []models.GeneratedFile, sessionID string) ([]models.GeneratedFile, error) {
	if sessionID == "" {
		for i := range files {
			files[i].DownloadURL = "/api/files/" + files[i].Name
		}
		return files, nil
	}

	sessionDir := filepath.Join(w.root, sessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return files, fmt.Errorf("create session directory: %w", err)
	}

	for i := range files {
		src := filepath.Join(w.root, files[i].Name)
		dst := filepath.Join(sessionDir, files[i].Name)
		if err := os.Rename(src, dst); err != nil {
			return files, fmt.Errorf("relocate %s: %w", files[i].Name, err)
		}
		files[i].DownloadURL = "/api/files/" + sessionID + "/" + files[i].Name
	}
	return files, nil
}
