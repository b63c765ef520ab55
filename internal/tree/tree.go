// Package tree walks and rewrites JSON-shaped documents (map[string]any,
// []any and scalars). Every write returns a new root and leaves the input
// untouched; paths that do not resolve are reported, never panicked on.
package tree

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Node is a JSON-shaped object.
type Node = map[string]any

// FromValue converts v into its generic JSON form.
func FromValue(v any) (Node, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("tree: encode: %w", err)
	}
	var out Node
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("tree: decode: %w", err)
	}
	if out == nil {
		out = Node{}
	}
	return out, nil
}

// ToValue decodes the generic form into dst.
func ToValue(n Node, dst any) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("tree: encode: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("tree: decode: %w", err)
	}
	return nil
}

// SplitPath turns "services.items.0.title" into its segments. Empty segments
// are dropped.
func SplitPath(path string) []string {
	parts := strings.Split(path, ".")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Clone deep-copies a generic value.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Clone(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Clone(val)
		}
		return out
	default:
		return v
	}
}

// Get resolves path under root.
func Get(root any, path []string) (any, bool) {
	cur := root
	for _, seg := range path {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, ok := index(seg, len(node))
			if !ok {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// String resolves path and returns it when it holds a string.
func String(root any, path []string) string {
	v, ok := Get(root, path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Set returns a copy of root with value stored at path. Every intermediate
// node must already exist; the final segment may add a new key to an object
// but must index an existing slot of an array. When the path does not resolve
// the original root is returned with ok=false.
func Set(root Node, path []string, value any) (Node, bool) {
	if len(path) == 0 {
		return root, false
	}
	out, ok := set(root, path, value)
	if !ok {
		return root, false
	}
	return out.(map[string]any), true
}

func set(node any, path []string, value any) (any, bool) {
	seg, rest := path[0], path[1:]
	switch n := node.(type) {
	case map[string]any:
		child, exists := n[seg]
		var next any
		if len(rest) == 0 {
			next = value
		} else {
			if !exists {
				return nil, false
			}
			var ok bool
			if next, ok = set(child, rest, value); !ok {
				return nil, false
			}
		}
		out := make(map[string]any, len(n)+1)
		for k, v := range n {
			out[k] = v
		}
		out[seg] = next
		return out, true
	case []any:
		idx, ok := index(seg, len(n))
		if !ok {
			return nil, false
		}
		next := value
		if len(rest) > 0 {
			if next, ok = set(n[idx], rest, value); !ok {
				return nil, false
			}
		}
		out := make([]any, len(n))
		copy(out, n)
		out[idx] = next
		return out, true
	default:
		return nil, false
	}
}

// Ensure returns a copy of root in which every object along path exists,
// creating empty objects for missing segments. It fails when an existing
// segment is not an object.
func Ensure(root Node, path []string) (Node, bool) {
	if len(path) == 0 {
		return root, true
	}
	out, ok := ensure(root, path)
	if !ok {
		return root, false
	}
	return out, true
}

func ensure(n map[string]any, path []string) (map[string]any, bool) {
	seg, rest := path[0], path[1:]
	child, exists := n[seg]
	var childMap map[string]any
	if !exists || child == nil {
		childMap = map[string]any{}
	} else {
		m, ok := child.(map[string]any)
		if !ok {
			return nil, false
		}
		childMap = m
	}
	if len(rest) > 0 {
		var ok bool
		if childMap, ok = ensure(childMap, rest); !ok {
			return nil, false
		}
	}
	out := make(map[string]any, len(n)+1)
	for k, v := range n {
		out[k] = v
	}
	out[seg] = childMap
	return out, true
}

// Merge overlays src onto dst recursively and returns the result. Objects are
// merged key by key; any other value in src replaces the one in dst.
func Merge(dst, src Node) Node {
	out := Clone(dst).(map[string]any)
	for k, v := range src {
		if srcMap, ok := v.(map[string]any); ok {
			if dstMap, ok := out[k].(map[string]any); ok {
				out[k] = Merge(dstMap, srcMap)
				continue
			}
		}
		out[k] = Clone(v)
	}
	return out
}

func index(seg string, length int) (int, bool) {
	idx, err := strconv.Atoi(seg)
	if err != nil || idx < 0 || idx >= length {
		return 0, false
	}
	return idx, true
}
