package treestore

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// canonicalize converts v into the stored form: nested map[string]any with
// scalar leaves. Lists become index keyed maps, nil leaves and empty maps vanish.
func canonicalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return prune(generic), nil
}

func prune(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			if c := prune(child); c != nil {
				out[k] = c
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []any:
		out := make(map[string]any, len(t))
		for i, child := range t {
			if c := prune(child); c != nil {
				out[strconv.Itoa(i)] = c
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return v
	}
}

// expand turns index keyed maps back into lists, the way the hosted store
// presents array-like nodes.
func expand(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for k, child := range m {
		m[k] = expand(child)
	}
	if list, ok := asList(m); ok {
		return list
	}
	return m
}

func asList(m map[string]any) ([]any, bool) {
	if len(m) == 0 {
		return nil, false
	}
	list := make([]any, len(m))
	for k, child := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(m) || strconv.Itoa(i) != k {
			return nil, false
		}
		list[i] = child
	}
	return list, true
}

// flatten returns every leaf below base keyed by its full path.
func flatten(base string, v any) map[string]any {
	out := map[string]any{}
	var walk func(p string, node any)
	walk = func(p string, node any) {
		m, ok := node.(map[string]any)
		if !ok {
			out[p] = node
			return
		}
		for k, child := range m {
			next := k
			if p != "" {
				next = p + "/" + k
			}
			walk(next, child)
		}
	}
	walk(base, v)
	return out
}

// lookup walks segments from root and returns the node found, or nil.
func lookup(root map[string]any, segments []string) any {
	var node any = root
	for _, s := range segments {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node, ok = m[s]
		if !ok {
			return nil
		}
	}
	return node
}

// place writes value at segments below root, creating or replacing
// intermediate nodes. A nil value removes the node and prunes empty parents.
func place(root map[string]any, segments []string, value any) {
	if len(segments) == 0 {
		return
	}
	if value == nil {
		remove(root, segments)
		return
	}
	node := root
	for _, s := range segments[:len(segments)-1] {
		child, ok := node[s].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[s] = child
		}
		node = child
	}
	node[segments[len(segments)-1]] = value
}

func remove(node map[string]any, segments []string) bool {
	key := segments[0]
	if len(segments) == 1 {
		delete(node, key)
		return len(node) == 0
	}
	child, ok := node[key].(map[string]any)
	if !ok {
		return false
	}
	if remove(child, segments[1:]) {
		delete(node, key)
	}
	return len(node) == 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
