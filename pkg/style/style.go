// Package style provides the CSS collaborator surface for the
// reconciler and renderer: a Processor that turns a css prop value into a
// generated class plus rule text, and a reference-counted Sheet that owns
// the live rules. Both are injected at root construction so independent
// roots and tests never share state.
package style

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
)

// Processor resolves a css prop value to a generated class name and the
// rule text for that class. Implementations must be pure: identical
// inputs yield identical outputs, so rules dedupe by content.
type Processor interface {
	Process(value any) (class, css string)
}

// Sheet manages inserted CSS rules, reference-counted by class name.
// Identical rules inserted by different components share one class and
// one rule; a rule is removed only when no holder remains.
type Sheet interface {
	Insert(class, css string)
	Remove(class string)
	Has(class string) bool
	Rules() []string
}

// NewSheet returns an empty in-memory Sheet.
func NewSheet() Sheet {
	return &memSheet{rules: make(map[string]*rule)}
}

type rule struct {
	css  string
	refs int
	seq  int
}

type memSheet struct {
	mu    sync.Mutex
	rules map[string]*rule
	seq   int
}

func (s *memSheet) Insert(class, css string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rules[class]; ok {
		r.refs++
		return
	}
	s.seq++
	s.rules[class] = &rule{css: css, refs: 1, seq: s.seq}
}

func (s *memSheet) Remove(class string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[class]
	if !ok {
		return
	}
	r.refs--
	if r.refs <= 0 {
		delete(s.rules, class)
	}
}

func (s *memSheet) Has(class string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rules[class]
	return ok
}

// Rules returns the live rule texts in insertion order.
func (s *memSheet) Rules() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	type entry struct {
		seq int
		css string
	}
	entries := make([]entry, 0, len(s.rules))
	for _, r := range s.rules {
		entries = append(entries, entry{r.seq, r.css})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.css
	}
	return out
}

// NewProcessor returns the default Processor. It accepts css prop values
// of type string (declaration block) or map[string]any (property map,
// numeric values are px-suffixed unless unitless), and derives the class
// name from a content hash so equal inputs share a class.
func NewProcessor() Processor { return defaultProcessor{} }

type defaultProcessor struct{}

func (defaultProcessor) Process(value any) (string, string) {
	decls := Declarations(value)
	if decls == "" {
		return "", ""
	}
	h := fnv.New32a()
	h.Write([]byte(decls))
	class := fmt.Sprintf("rmx-%08x", h.Sum32())
	return class, "." + class + "{" + decls + "}"
}

// Declarations renders a css prop value to a declaration block string.
func Declarations(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var sb strings.Builder
		for _, k := range keys {
			sb.WriteString(CSSName(k))
			sb.WriteByte(':')
			sb.WriteString(CSSValue(k, v[k]))
			sb.WriteByte(';')
		}
		return sb.String()
	default:
		return ""
	}
}

// CSSName converts a camelCase property name to kebab-case. Custom
// properties (leading --) pass through unchanged.
func CSSName(name string) string {
	if strings.HasPrefix(name, "--") {
		return name
	}
	var sb strings.Builder
	for _, r := range name {
		if r >= 'A' && r <= 'Z' {
			sb.WriteByte('-')
			sb.WriteRune(r + ('a' - 'A'))
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// CSSValue renders a declaration value, px-suffixing numbers unless the
// property is unitless or a custom variable.
func CSSValue(name string, value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		if IsUnitless(name) {
			return fmt.Sprintf("%d", v)
		}
		return fmt.Sprintf("%dpx", v)
	case int64:
		if IsUnitless(name) {
			return fmt.Sprintf("%d", v)
		}
		return fmt.Sprintf("%dpx", v)
	case float64:
		if IsUnitless(name) {
			return fmt.Sprintf("%g", v)
		}
		return fmt.Sprintf("%gpx", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// unitlessProps are CSS properties whose numeric values take no unit.
var unitlessProps = map[string]bool{
	"animationIterationCount": true,
	"columnCount":             true,
	"columns":                 true,
	"flex":                    true,
	"flexGrow":                true,
	"flexShrink":              true,
	"fontWeight":              true,
	"gridColumn":              true,
	"gridRow":                 true,
	"lineHeight":              true,
	"opacity":                 true,
	"order":                   true,
	"orphans":                 true,
	"tabSize":                 true,
	"widows":                  true,
	"zIndex":                  true,
	"zoom":                    true,
}

// IsUnitless reports whether a numeric value for the property is used
// without a px suffix. Custom -- variables are always unitless.
func IsUnitless(name string) bool {
	return strings.HasPrefix(name, "--") || unitlessProps[name]
}

// Cache memoizes a Processor by rendered declaration content.
type Cache struct {
	proc Processor
	mu   sync.Mutex
	m    map[string][2]string
}

// NewCache wraps a Processor with content-keyed memoization.
func NewCache(p Processor) *Cache {
	return &Cache{proc: p, m: make(map[string][2]string)}
}

// Process implements Processor.
func (c *Cache) Process(value any) (string, string) {
	key := Declarations(value)
	c.mu.Lock()
	if hit, ok := c.m[key]; ok {
		c.mu.Unlock()
		return hit[0], hit[1]
	}
	c.mu.Unlock()
	class, css := c.proc.Process(value)
	c.mu.Lock()
	c.m[key] = [2]string{class, css}
	c.mu.Unlock()
	return class, css
}
