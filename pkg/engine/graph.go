package engine

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/workgraph/pkg/cache"
	"github.com/matzehuels/workgraph/pkg/errors"
	"github.com/matzehuels/workgraph/pkg/graph"
	"github.com/matzehuels/workgraph/pkg/observability"
	"github.com/matzehuels/workgraph/pkg/render/nodelink"
	"github.com/matzehuels/workgraph/pkg/render/text"
	"github.com/matzehuels/workgraph/pkg/visual"
)

// Format is a graph output format.
type Format string

// Supported graph formats.
const (
	FormatText Format = "text"
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
	FormatSVG  Format = "svg"
)

// Formats lists the supported formats in display order.
var Formats = []Format{FormatText, FormatDOT, FormatJSON, FormatSVG}

// ParseFormat validates a format name. Empty input means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatDOT, FormatJSON, FormatSVG:
		return f, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unknown graph format %q (want text, dot, json or svg)", s)
}

// GraphRequest selects what [Engine.Graph] draws and how.
type GraphRequest struct {
	// Root draws the connected sub-graph around this item.
	Root string
	// All draws every component of the open-item graph instead.
	All bool
	// Format is the output format. Empty means text.
	Format Format
	// Detailed adds status, priority and layer to DOT and SVG labels.
	Detailed bool
	// Color styles text output for a terminal.
	Color bool
	// NoCache bypasses the artifact cache for SVG.
	NoCache bool
}

// GraphResult is a rendered graph.
type GraphResult struct {
	Format Format
	Data   []byte
	// Nodes counts the items drawn, including isolated ones for All.
	Nodes int
	// CacheHit is set when SVG came from the cache.
	CacheHit bool
}

// Graph builds and renders a dependency graph.
func (e *Engine) Graph(ctx context.Context, req GraphRequest) (res *GraphResult, err error) {
	start := time.Now()
	if req.Format == "" {
		req.Format = FormatText
	}
	defer func() {
		nodes := 0
		if res != nil {
			nodes = res.Nodes
		}
		e.hooks.OnGraphBuilt(ctx, string(req.Format), nodes, time.Since(start), err)
	}()

	if _, err := ParseFormat(string(req.Format)); err != nil {
		return nil, err
	}
	switch {
	case req.Root == "" && !req.All:
		return nil, errors.New(errors.ErrCodeInvalidInput, "graph needs a root item or all")
	case req.Root != "" && req.All:
		return nil, errors.New(errors.ErrCodeInvalidInput, "graph takes a root item or all, not both")
	}

	items, edges, err := e.snapshot(ctx, false)
	if err != nil {
		return nil, err
	}

	var r renderable
	if req.All {
		r = allRenderable{visual.BuildAll(items, edges)}
	} else {
		sub, err := visual.BuildFromRoot(req.Root, items, edges)
		if err != nil {
			return nil, err
		}
		r = rootRenderable{sub}
	}

	res = &GraphResult{Format: req.Format, Nodes: r.nodes()}
	switch req.Format {
	case FormatText:
		res.Data = []byte(r.text(text.Options{Color: req.Color}))
	case FormatDOT:
		res.Data = []byte(r.dot(nodelink.Options{Detailed: req.Detailed}))
	case FormatJSON:
		res.Data, err = graph.Marshal(r.structured())
	case FormatSVG:
		res.Data, res.CacheHit, err = e.renderSVG(ctx, r.dot(nodelink.Options{Detailed: req.Detailed}), req)
	}
	if err != nil {
		return nil, err
	}

	e.logger.Debug("rendered graph",
		"root", req.Root,
		"format", req.Format,
		"nodes", res.Nodes,
		"cached", res.CacheHit,
		"duration", time.Since(start))
	return res, nil
}

func (e *Engine) renderSVG(ctx context.Context, dot string, req GraphRequest) ([]byte, bool, error) {
	key := e.keyer.ArtifactKey(cache.SourceHash(dot), cache.ArtifactKeyOpts{
		Format:   string(FormatSVG),
		Detailed: req.Detailed,
	})
	hooks := observability.Cache()

	if !req.NoCache {
		if data, hit, err := e.cache.Get(ctx, key); err == nil && hit {
			hooks.OnCacheHit(ctx, "artifact")
			return data, true, nil
		}
		hooks.OnCacheMiss(ctx, "artifact")
	}

	svg, err := nodelink.RenderSVG(ctx, dot)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "render svg")
	}
	if err := e.cache.Set(ctx, key, svg, cache.TTLArtifact); err != nil {
		e.logger.Warn("cache write failed", "error", err)
	} else {
		hooks.OnCacheSet(ctx, "artifact", len(svg))
	}
	return svg, false, nil
}

// renderable adapts the single-root and all-components builds to the
// output formats.
type renderable interface {
	nodes() int
	text(text.Options) string
	dot(nodelink.Options) string
	structured() any
}

type rootRenderable struct{ sub *visual.Subgraph }

func (r rootRenderable) nodes() int                    { return r.sub.Graph.ItemCount() }
func (r rootRenderable) text(o text.Options) string    { return text.Render(r.sub, o) }
func (r rootRenderable) dot(o nodelink.Options) string { return nodelink.ToDOT(r.sub, o) }
func (r rootRenderable) structured() any               { return graph.FromSubgraph(r.sub) }

type allRenderable struct{ res *visual.Result }

func (a allRenderable) nodes() int {
	n := a.res.Isolated
	for _, c := range a.res.Components {
		n += c.Graph.ItemCount()
	}
	return n
}
func (a allRenderable) text(o text.Options) string    { return text.RenderAll(a.res, o) }
func (a allRenderable) dot(o nodelink.Options) string { return nodelink.ToDOTAll(a.res, o) }
func (a allRenderable) structured() any               { return graph.FromResult(a.res) }
