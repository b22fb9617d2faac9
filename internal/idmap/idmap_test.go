package idmap

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-geneset/internal/gmt"
)

func TestStaticMapper(t *testing.T) {
	m := NewStaticMapper(map[string]string{"TP53": "7157", "BRCA1": "672"})

	res, err := m.Map(context.Background(), []string{"TP53", " BRCA1 ", "NOPE", "TP53", ""}, gmt.SpaceNumeric)
	require.NoError(t, err)

	mapped, valid, invalid := res.Lists()
	assert.Equal(t, []string{"BRCA1", "TP53"}, valid)
	assert.Equal(t, []string{"672", "7157"}, mapped)
	assert.Equal(t, []string{"NOPE"}, invalid)
	assert.Equal(t, mapped, res.IDs())

	id, ok := res.Lookup("TP53")
	assert.True(t, ok)
	assert.Equal(t, "7157", id)
}

func TestResult_Merge(t *testing.T) {
	a := NewResult()
	a.Mapped["X"] = "1"
	b := NewResult()
	b.Mapped["X"] = "99"
	b.Mapped["Y"] = "2"
	b.Invalid = []string{"Z"}

	a.Merge(b)
	assert.Equal(t, map[string]string{"X": "1", "Y": "2"}, a.Mapped)
	assert.Equal(t, []string{"Z"}, a.Invalid)
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Unique([]string{" a", "b", "a", "", "  "}))
}

type myGeneServer struct {
	mu       sync.Mutex
	requests []url.Values
}

func (s *myGeneServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		form, err := url.ParseQuery(string(body))
		require.NoError(t, err)

		s.mu.Lock()
		s.requests = append(s.requests, form)
		s.mu.Unlock()

		var hits []string
		for _, q := range strings.Split(form.Get("q"), ",") {
			switch q {
			case "TP53":
				hits = append(hits, `{"query":"TP53","_id":"7157","entrezgene":7157,"symbol":"TP53"}`,
					`{"query":"TP53","_id":"999","entrezgene":"999"}`)
			case "BRCA1":
				hits = append(hits, `{"query":"BRCA1","_id":"672","entrezgene":"672","symbol":"BRCA1"}`)
			case "NOSYM":
				hits = append(hits, `{"query":"NOSYM","_id":"ENSG1"}`)
			default:
				hits = append(hits, `{"query":"`+q+`","notfound":true}`)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, "["+strings.Join(hits, ",")+"]")
	}
}

func TestMyGeneClient_Map(t *testing.T) {
	srv := &myGeneServer{}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	c := NewMyGeneClient(MyGeneConfig{URL: ts.URL, BatchSize: 2})
	res, err := c.Map(context.Background(), []string{"TP53", "BRCA1", "FAKE1", "NOSYM", "TP53"}, gmt.SpaceNumeric)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"TP53": "7157", "BRCA1": "672"}, res.Mapped, "first hit wins")
	assert.ElementsMatch(t, []string{"FAKE1", "NOSYM"}, res.Invalid)

	require.Len(t, srv.requests, 2, "four unique queries in batches of two")
	first := srv.requests[0]
	assert.Equal(t, "TP53,BRCA1", first.Get("q"))
	assert.Equal(t, "symbol,reporter,accession,entrezgene", first.Get("scopes"))
	assert.Equal(t, "entrezgene", first.Get("fields"))
	assert.Equal(t, "human", first.Get("species"))
}

func TestMyGeneClient_SymbolTarget(t *testing.T) {
	srv := &myGeneServer{}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	c := NewMyGeneClient(MyGeneConfig{URL: ts.URL})
	res, err := c.Map(context.Background(), []string{"BRCA1"}, gmt.SpaceSymbol)
	require.NoError(t, err)
	assert.Equal(t, "BRCA1", res.Mapped["BRCA1"])
	assert.Equal(t, "symbol", srv.requests[0].Get("fields"))
}

func TestMyGeneClient_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := NewMyGeneClient(MyGeneConfig{URL: ts.URL})
	_, err := c.Map(context.Background(), []string{"TP53"}, gmt.SpaceNumeric)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestMyGeneClient_UnsupportedTarget(t *testing.T) {
	c := NewMyGeneClient(MyGeneConfig{})
	_, err := c.Map(context.Background(), []string{"TP53"}, gmt.SpaceMixed)
	assert.Error(t, err)
}

type memCache struct {
	data   map[string]map[string]string
	writes int
}

func (c *memCache) LookupMappings(_ context.Context, target string, symbols []string) (map[string]string, error) {
	out := make(map[string]string)
	for _, s := range symbols {
		if id, ok := c.data[target][s]; ok {
			out[s] = id
		}
	}
	return out, nil
}

func (c *memCache) WriteMappings(_ context.Context, target string, mapped map[string]string) error {
	c.writes++
	if c.data[target] == nil {
		c.data[target] = make(map[string]string)
	}
	for s, id := range mapped {
		c.data[target][s] = id
	}
	return nil
}

type countingMapper struct {
	inner Mapper
	calls [][]string
}

func (m *countingMapper) Map(ctx context.Context, symbols []string, target gmt.IDSpace) (*Result, error) {
	m.calls = append(m.calls, symbols)
	return m.inner.Map(ctx, symbols, target)
}

func TestCachedMapper_ForwardsOnlyMisses(t *testing.T) {
	cache := &memCache{data: map[string]map[string]string{
		"numeric": {"TP53": "7157"},
	}}
	next := &countingMapper{inner: NewStaticMapper(map[string]string{"BRCA1": "672"})}
	m := NewCachedMapper(next, cache)

	res, err := m.Map(context.Background(), []string{"TP53", "BRCA1", "NOPE"}, gmt.SpaceNumeric)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"TP53": "7157", "BRCA1": "672"}, res.Mapped)
	assert.Equal(t, []string{"NOPE"}, res.Invalid)
	require.Len(t, next.calls, 1)
	assert.Equal(t, []string{"BRCA1", "NOPE"}, next.calls[0])
	assert.Equal(t, "672", cache.data["numeric"]["BRCA1"])

	// Fully cached queries never reach the wrapped mapper.
	_, err = m.Map(context.Background(), []string{"BRCA1", "TP53"}, gmt.SpaceNumeric)
	require.NoError(t, err)
	assert.Len(t, next.calls, 1)
	assert.Equal(t, 1, cache.writes)
}

func TestReadDictionary(t *testing.T) {
	dict, err := ReadDictionary(strings.NewReader("# symbol\tid\nTP53\t7157\n\nKRAS\t3845\r\nTP53\t1\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"TP53": "1", "KRAS": "3845"}, dict)

	_, err = ReadDictionary(strings.NewReader("TP53\n"))
	assert.Error(t, err)
}
