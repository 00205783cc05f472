// Package render displays binary execution artifacts (rendered plots) to the
// human operator: saved into an artifact store, written to a directory, or
// both.
package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/analystloop/core"
)

// Artifact is a decoded binary result ready for display.
type Artifact struct {
	ConversationID string
	Key            string // payload key the artifact was found under
	Type           string // descriptor tag, e.g. "image"
	Format         string // file format hint, e.g. "png"
	Data           []byte
}

// Filename returns "<key>.<format>" with path separators stripped.
func (a Artifact) Filename() string {
	key := strings.NewReplacer("/", "_", `\`, "_").Replace(a.Key)
	format := a.Format
	if format == "" {
		format = "png"
	}
	return key + "." + format
}

// Renderer displays an artifact and returns where it can be found.
type Renderer interface {
	Render(ctx context.Context, a Artifact) (string, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, a Artifact) (string, error)

// Render implements Renderer.
func (f RendererFunc) Render(ctx context.Context, a Artifact) (string, error) { return f(ctx, a) }

// Discard accepts every artifact without displaying it.
var Discard Renderer = RendererFunc(func(context.Context, Artifact) (string, error) { return "", nil })

// StoreRenderer saves artifacts into a core.ArtifactStore under the
// conversation id. Artifact ids are unique per render.
type StoreRenderer struct {
	store core.ArtifactStore
}

// NewStoreRenderer creates a StoreRenderer.
func NewStoreRenderer(store core.ArtifactStore) *StoreRenderer {
	return &StoreRenderer{store: store}
}

// Render implements Renderer; it returns the artifact id.
func (r *StoreRenderer) Render(_ context.Context, a Artifact) (string, error) {
	id := core.NewID() + "-" + a.Filename()
	if err := r.store.Save(a.ConversationID, id, a.Data); err != nil {
		return "", err
	}
	return id, nil
}

// DirRenderer writes artifacts to <dir>/<conversation id>/<key>.<format>,
// overwriting any earlier file for the same key.
type DirRenderer struct {
	dir string
}

// NewDirRenderer creates a DirRenderer rooted at dir.
func NewDirRenderer(dir string) *DirRenderer {
	return &DirRenderer{dir: dir}
}

// Render implements Renderer; it returns the file path.
func (r *DirRenderer) Render(_ context.Context, a Artifact) (string, error) {
	dir := filepath.Join(r.dir, a.ConversationID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	p := filepath.Join(dir, a.Filename())
	if err := os.WriteFile(p, a.Data, 0o644); err != nil {
		return "", err
	}
	return p, nil
}

// Multi fans an artifact out to every renderer, returning the locations
// joined by ", " and the joined errors of any that failed.
func Multi(renderers ...Renderer) Renderer {
	return RendererFunc(func(ctx context.Context, a Artifact) (string, error) {
		var (
			locations []string
			errs      []error
		)
		for _, r := range renderers {
			loc, err := r.Render(ctx, a)
			if err != nil {
				errs = append(errs, fmt.Errorf("render %s: %w", a.Key, err))
				continue
			}
			if loc != "" {
				locations = append(locations, loc)
			}
		}
		return strings.Join(locations, ", "), errors.Join(errs...)
	})
}
