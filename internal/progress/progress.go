// Package progress tracks which work items (phenotypes, files) have been
// completed, replacing append-only "processed" text files.
package progress

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Store records completed keys. MarkDone is idempotent.
type Store interface {
	MarkDone(ctx context.Context, key string) error
	IsDone(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Memory is an in-memory Store.
type Memory struct {
	mu   sync.RWMutex
	done map[string]struct{}
}

// NewMemory creates an empty in-memory store.
func NewMemory(keys ...string) *Memory {
	m := &Memory{done: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		m.done[k] = struct{}{}
	}
	return m
}

func (m *Memory) MarkDone(_ context.Context, key string) error {
	m.mu.Lock()
	m.done[key] = struct{}{}
	m.mu.Unlock()
	return nil
}

func (m *Memory) IsDone(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	_, ok := m.done[key]
	m.mu.RUnlock()
	return ok, nil
}

// Keys returns the completed keys in lexical order.
func (m *Memory) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	out := make([]string, 0, len(m.done))
	for k := range m.done {
		out = append(out, k)
	}
	m.mu.RUnlock()
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Close() error { return nil }

// ImportLines marks every non-empty, trimmed line of r as done and returns
// the number of lines imported.
func ImportLines(ctx context.Context, s Store, r io.Reader) (int, error) {
	br := bufio.NewReader(r)
	n := 0
	for {
		line, err := br.ReadString('\n')
		if key := strings.TrimSpace(line); key != "" {
			if merr := s.MarkDone(ctx, key); merr != nil {
				return n, fmt.Errorf("mark %q done: %w", key, merr)
			}
			n++
		}
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("read progress lines: %w", err)
		}
	}
}

// ExportLines writes the completed keys one per line.
func ExportLines(ctx context.Context, s Store, w io.Writer) error {
	keys, err := s.Keys(ctx)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for _, k := range keys {
		if _, err := bw.WriteString(k + "\n"); err != nil {
			return fmt.Errorf("write progress lines: %w", err)
		}
	}
	return bw.Flush()
}
