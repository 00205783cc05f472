// Package classify splits a heterogeneous execution payload into binary
// artifacts, which are rendered for the human operator, and plain data, which
// is serialized into the text returned to the model. Binary data never
// reaches the returned text.
package classify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/hupe1980/analystloop/logging"
	"github.com/hupe1980/analystloop/render"
	"github.com/hupe1980/analystloop/sandbox"
)

// ImageTag is the descriptor type tag marking a binary image artifact.
const ImageTag = "image"

// Rendered records where an artifact was displayed.
type Rendered struct {
	Key      string `json:"key"`
	Location string `json:"location,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Classification is the outcome of classifying one payload.
type Classification struct {
	// Text is the pretty-printed JSON of the non-binary entries.
	Text string
	// Data holds the non-binary entries.
	Data map[string]any
	// Artifacts lists every binary entry in key order.
	Artifacts []Rendered
}

// Options configure a Classifier.
type Options struct {
	// Renderer displays artifacts; defaults to render.Discard.
	Renderer render.Renderer
	// Logger defaults to logging.NoOpLogger.
	Logger logging.Logger
}

// Classifier implements payload classification.
type Classifier struct {
	opts Options
}

// New creates a Classifier.
func New(optFns ...func(o *Options)) *Classifier {
	opts := Options{
		Renderer: render.Discard,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Classifier{opts: opts}
}

// IsBinaryArtifact reports whether v is a tagged binary-artifact descriptor.
func IsBinaryArtifact(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	tag, _ := m["type"].(string)
	return tag == ImageTag
}

// Classify renders every binary artifact in payload as a side effect and
// returns the remaining entries serialized for the model. Artifacts nested
// in maps or lists are found too and keyed by their dotted path, e.g.
// "figs.0". Render failures are logged and recorded but never fail
// classification; the artifact is excluded from the text either way.
func (c *Classifier) Classify(ctx context.Context, conversationID string, payload sandbox.Result) (Classification, error) {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := Classification{Data: make(map[string]any, len(payload))}

	for _, k := range keys {
		if v, keep := c.strip(ctx, conversationID, k, payload[k], &out); keep {
			out.Data[k] = v
		}
	}

	b, err := json.MarshalIndent(out.Data, "", "  ")
	if err != nil {
		return Classification{}, fmt.Errorf("serialize execution result: %w", err)
	}
	out.Text = string(b)

	return out, nil
}

// strip renders the artifact at path, or walks into maps and lists and
// returns a copy without artifacts. keep is false for an artifact.
func (c *Classifier) strip(ctx context.Context, conversationID, path string, v any, out *Classification) (any, bool) {
	switch val := v.(type) {
	case map[string]any:
		if IsBinaryArtifact(val) {
			out.Artifacts = append(out.Artifacts, c.render(ctx, conversationID, path, val))
			return nil, false
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		cp := make(map[string]any, len(val))
		for _, k := range keys {
			if nv, keep := c.strip(ctx, conversationID, path+"."+k, val[k], out); keep {
				cp[k] = nv
			}
		}
		return cp, true
	case []any:
		cp := make([]any, 0, len(val))
		for i, e := range val {
			if nv, keep := c.strip(ctx, conversationID, path+"."+strconv.Itoa(i), e, out); keep {
				cp = append(cp, nv)
			}
		}
		return cp, true
	default:
		return v, true
	}
}

func (c *Classifier) render(ctx context.Context, conversationID, key string, desc map[string]any) Rendered {
	encoded, _ := desc["base64_data"].(string)
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(data) == 0 {
		if err == nil {
			err = fmt.Errorf("empty artifact")
		}
		c.opts.Logger.Warn("classify.artifact.decode_failed", "key", key, "error", err.Error())
		return Rendered{Key: key, Error: err.Error()}
	}

	format, _ := desc["format"].(string)

	loc, err := c.opts.Renderer.Render(ctx, render.Artifact{
		ConversationID: conversationID,
		Key:            key,
		Type:           ImageTag,
		Format:         format,
		Data:           data,
	})
	if err != nil {
		c.opts.Logger.Warn("classify.artifact.render_failed", "key", key, "error", err.Error())
		return Rendered{Key: key, Location: loc, Error: err.Error()}
	}

	c.opts.Logger.Info("classify.artifact.rendered", "key", key, "bytes", len(data), "location", loc)

	return Rendered{Key: key, Location: loc}
}
