package vdom

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rmx-dev/rmx/pkg/dom"
)

// Hydration marker comments bracket a hydrated component's markup; the
// JSON payload follows in a script tag carrying the HydrationScriptAttr
// attribute.
const (
	HydrationMarkerStart = "rmx:h"
	HydrationMarkerEnd   = "/rmx:h"
	HydrationScriptAttr  = "rmx-hydrated"
)

// Marker is one parsed hydration region: which module export renders
// the island and the serialized props to replay it with.
type Marker struct {
	Start  *dom.Node
	End    *dom.Node
	Script *dom.Node
	ID     string
	Module string
	Export string
	Props  Props
}

type markerPayload struct {
	ModuleURL  string         `json:"moduleUrl"`
	ExportName string         `json:"exportName"`
	Props      map[string]any `json:"props,omitempty"`
	ID         string         `json:"id"`
}

// ModuleLoader resolves a hydration payload's module URL and export
// name to the component function that rendered the island.
type ModuleLoader interface {
	Load(moduleURL, exportName string) (ComponentFunc, error)
}

// ModuleLoaderFunc adapts a function to ModuleLoader.
type ModuleLoaderFunc func(moduleURL, exportName string) (ComponentFunc, error)

func (f ModuleLoaderFunc) Load(moduleURL, exportName string) (ComponentFunc, error) {
	return f(moduleURL, exportName)
}

// Registry is an in-process ModuleLoader keyed by "module#export".
type Registry struct {
	fns map[string]ComponentFunc
}

func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]ComponentFunc)}
}

func (r *Registry) Register(moduleURL, exportName string, fn ComponentFunc) {
	r.fns[moduleURL+"#"+exportName] = fn
}

func (r *Registry) Load(moduleURL, exportName string) (ComponentFunc, error) {
	fn, ok := r.fns[moduleURL+"#"+exportName]
	if !ok {
		return nil, fmt.Errorf("islands: no component registered for %s#%s", moduleURL, exportName)
	}
	return fn, nil
}

// ScanMarkers walks container's subtree collecting hydration regions: a
// start comment, its matching end comment, and the payload script that
// follows. Regions with missing ends or malformed payloads are skipped.
func ScanMarkers(container *dom.Node) []Marker {
	var out []Marker
	var walk func(n *dom.Node)
	walk = func(n *dom.Node) {
		kids := n.Children()
		for i := 0; i < len(kids); i++ {
			c := kids[i]
			if c.Kind() == dom.CommentNode && strings.TrimSpace(c.Data()) == HydrationMarkerStart {
				if m, ok := parseRegion(c); ok {
					out = append(out, m)
				}
				continue
			}
			if c.Kind() == dom.ElementNode {
				walk(c)
			}
		}
	}
	walk(container)
	return out
}

func parseRegion(start *dom.Node) (Marker, bool) {
	var end *dom.Node
	for n := start.NextSibling(); n != nil; n = n.NextSibling() {
		if n.Kind() == dom.CommentNode && strings.TrimSpace(n.Data()) == HydrationMarkerEnd {
			end = n
			break
		}
	}
	if end == nil {
		return Marker{}, false
	}
	var script *dom.Node
	for n := end.NextSibling(); n != nil; n = n.NextSibling() {
		if n.Kind() == dom.CommentNode {
			continue
		}
		if n.Kind() == dom.ElementNode && n.Tag() == "script" && n.HasAttr(HydrationScriptAttr) {
			script = n
		}
		break
	}
	if script == nil {
		return Marker{}, false
	}
	var payload markerPayload
	raw := ""
	if t := script.FirstChild(); t != nil {
		raw = t.Data()
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Marker{}, false
	}
	if payload.ModuleURL == "" || payload.ExportName == "" {
		return Marker{}, false
	}
	return Marker{
		Start:  start,
		End:    end,
		Script: script,
		ID:     payload.ID,
		Module: payload.ModuleURL,
		Export: payload.ExportName,
		Props:  Props(payload.Props),
	}, true
}

// MountIslands hydrates every marked region under container. Each
// island becomes its own Root over the region's parent element, so
// islands fail and update independently. Shared collaborators (sheet,
// scheduler) are passed through opts.
func MountIslands(container *dom.Node, loader ModuleLoader, opts ...RootOption) ([]*Root, error) {
	markers := ScanMarkers(container)
	roots := make([]*Root, 0, len(markers))
	for _, m := range markers {
		fn, err := loader.Load(m.Module, m.Export)
		if err != nil {
			return roots, err
		}
		parent := m.Start.Parent()
		if parent == nil {
			continue
		}
		// The payload script is not part of the component's output.
		parent.RemoveChild(m.Script)
		root := NewRoot(parent, opts...)
		el := Comp(fn)
		el.Props = mergeProps(el.Props, m.Props)
		if err := root.Hydrate(el); err != nil {
			return roots, fmt.Errorf("islands: hydrate %s#%s: %w", m.Module, m.Export, err)
		}
		roots = append(roots, root)
	}
	return roots, nil
}

func mergeProps(dst, src Props) Props {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(Props, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
