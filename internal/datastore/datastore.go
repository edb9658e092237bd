// Package datastore reads and writes JSON documents addressed by slash
// separated paths, the way a realtime document database exposes its tree.
package datastore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotFound is returned when nothing is stored at or below a path.
var ErrNotFound = errors.New("not found")

// Tree is a hierarchical JSON document store. A value written at a path is
// visible, merged with its siblings, when any ancestor path is read.
type Tree interface {
	// Get decodes the subtree at path into v. It returns ErrNotFound when
	// the path holds no data.
	Get(ctx context.Context, path string, v any) error

	// Set replaces the subtree at path with v. Setting nil removes it.
	Set(ctx context.Context, path string, v any) error

	// Update writes each field as a child of path, leaving other children
	// untouched.
	Update(ctx context.Context, path string, fields map[string]any) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Join builds a tree path from segments, dropping empty segments and
// surrounding slashes.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s == "" {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "/")
}

// split returns the non-empty segments of a path.
func split(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Children splits a node read with Get into its child documents keyed by id.
// The Realtime Database returns a node whose keys are all small integers as a
// JSON array; such arrays are turned back into index-keyed children, skipping
// the null holes left by missing indices.
func Children(node json.RawMessage) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(node)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]json.RawMessage{}, nil
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode child list: %w", err)
		}
		out := make(map[string]json.RawMessage, len(items))
		for i, item := range items {
			if bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
				continue
			}
			out[strconv.Itoa(i)] = item
		}
		return out, nil
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, fmt.Errorf("decode children: %w", err)
	}
	return out, nil
}
