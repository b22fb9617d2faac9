package progress

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sq,
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			done, err := s.IsDone(ctx, "asthma")
			require.NoError(t, err)
			assert.False(t, done)

			require.NoError(t, s.MarkDone(ctx, "asthma"))
			require.NoError(t, s.MarkDone(ctx, "asthma"))
			require.NoError(t, s.MarkDone(ctx, "Abnormal heart"))

			done, err = s.IsDone(ctx, "asthma")
			require.NoError(t, err)
			assert.True(t, done)

			keys, err := s.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"Abnormal heart", "asthma"}, keys)
		})
	}
}

func TestImportExportLines(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			n, err := ImportLines(ctx, s, strings.NewReader("b\n\n  a  \nb\nc"))
			require.NoError(t, err)
			assert.Equal(t, 4, n)

			var buf bytes.Buffer
			require.NoError(t, ExportLines(ctx, s, &buf))
			assert.Equal(t, "a\nb\nc\n", buf.String())
		})
	}
}

func TestSQLitePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "progress.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.MarkDone(ctx, "x"))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	done, err := s.IsDone(ctx, "x")
	require.NoError(t, err)
	assert.True(t, done)

	require.NoError(t, s.Reset(ctx))
	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestNewMemorySeeded(t *testing.T) {
	m := NewMemory("a", "b")
	done, err := m.IsDone(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, done)
}
