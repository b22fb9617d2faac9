package gmt

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testGMT = "HP_SEIZURE\thttp://example.org\t5727\t7157\t672\n" +
	"HP_ATAXIA\tNA\t4000\t7157\n" +
	"HP_EMPTY\tNA\n" +
	"HP_NAME_ONLY\n"

func TestParse(t *testing.T) {
	db, err := Parse(strings.NewReader(testGMT))
	require.NoError(t, err)

	assert.Equal(t, 4, db.Len())
	assert.Equal(t, []string{"HP_SEIZURE", "HP_ATAXIA", "HP_EMPTY", "HP_NAME_ONLY"}, db.Names())

	rec, ok := db.Get("HP_SEIZURE")
	require.True(t, ok)
	assert.Equal(t, "http://example.org", rec.Description)
	assert.Equal(t, []string{"5727", "7157", "672"}, rec.Genes)

	assert.Equal(t, 0, db.Set("HP_EMPTY").Len())
	assert.Equal(t, 0, db.Set("HP_NAME_ONLY").Len())
	assert.Equal(t, SpaceNumeric, db.Space())
	assert.Equal(t, []string{"4000", "5727", "672", "7157"}, db.Universe())
}

func TestParse_DuplicateNameLastWins(t *testing.T) {
	input := "A\tNA\tg1\tg2\nB\tNA\tg3\nA\tNA\tg4\n"
	db, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, db.Names(), "first position is kept")
	assert.Equal(t, []string{"g4"}, db.Set("A").Sorted())
}

func TestParse_MalformedLineSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	input := "A\tNA\tg1\n\tNA\tg2\n\nB\tNA\tg3\n"

	db, err := Parse(strings.NewReader(input), WithLogger(zap.New(core)))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, db.Names())
	require.Equal(t, 1, logs.Len(), "only the nameless line is reported")
	assert.Equal(t, int64(2), logs.All()[0].ContextMap()["line"])
}

func TestParse_Strict(t *testing.T) {
	_, err := Parse(strings.NewReader("A\tNA\tg1\n\tNA\tg2\n"), WithStrict())
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
}

func TestParse_Options(t *testing.T) {
	input := "HALLMARK_HYPOXIA,NA,g1,g2\r\nHALLMARK_APOPTOSIS,NA,g3\r\n"
	db, err := Parse(strings.NewReader(input), WithSeparator(","), WithTrimPrefix("HALLMARK_"))
	require.NoError(t, err)

	assert.Equal(t, []string{"HYPOXIA", "APOPTOSIS"}, db.Names())
	assert.Equal(t, []string{"g1", "g2"}, db.Set("HYPOXIA").Sorted())
}

func TestRoundTrip(t *testing.T) {
	input := "Z\tsrc\tb\ta\tc\nA\tsrc\tx\nM\tsrc\n"
	db, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	text := Serialize(db)
	assert.True(t, strings.HasPrefix(text, "A\tsrc\tx\n"), "lines sorted by name")

	again, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	require.Equal(t, db.Len(), again.Len())
	for _, name := range db.Names() {
		assert.Equal(t, db.Set(name), again.Set(name), name)
	}
}

func TestWrite_SortGenes(t *testing.T) {
	db := NewDatabase()
	db.Add(Record{Name: "FOO", Description: "consensus", Genes: []string{"g3", "g1", "g2"}})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, db, SortGenes()))
	assert.Equal(t, "FOO\tconsensus\tg1\tg2\tg3\n", buf.String())
}

func TestReadFile_Gzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sets.gmt.gz")

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(testGMT))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	db, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, db.Len())

	plain := filepath.Join(dir, "sets.gmt")
	require.NoError(t, WriteFile(plain, db))
	db2, err := ReadFile(plain)
	require.NoError(t, err)
	assert.Equal(t, db.SortedNames(), db2.SortedNames())
}

func TestReadFile_NotFound(t *testing.T) {
	_, err := ReadFile("/nonexistent/sets.gmt")
	assert.Error(t, err)
}

func TestIDSpace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  IDSpace
	}{
		{"numeric", "A\tNA\t1\t2\n", SpaceNumeric},
		{"symbol", "A\tNA\tTP53\tBRCA1\n", SpaceSymbol},
		{"mixed across sets", "A\tNA\t7157\nB\tNA\tTP53\n", SpaceMixed},
		{"no genes", "A\tNA\n", SpaceUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, db.Space())
		})
	}
}

func TestCheckCompatible(t *testing.T) {
	numeric := FromSets(map[string][]string{"A": {"1", "2"}}, "NA")
	symbol := FromSets(map[string][]string{"A": {"TP53"}}, "NA")
	mixed := FromSets(map[string][]string{"A": {"1", "TP53"}}, "NA")
	empty := NewDatabase()

	assert.NoError(t, CheckCompatible(numeric, numeric))
	assert.NoError(t, CheckCompatible(numeric, empty))
	assert.ErrorIs(t, CheckCompatible(numeric, symbol), ErrMixedIDSpace)
	assert.ErrorIs(t, CheckCompatible(mixed), ErrMixedIDSpace)
	assert.ErrorIs(t, mixed.Validate(), ErrMixedIDSpace)
}

func TestParseIDSpace(t *testing.T) {
	s, err := ParseIDSpace("entrez")
	require.NoError(t, err)
	assert.Equal(t, SpaceNumeric, s)

	_, err = ParseIDSpace("ensembl")
	assert.Error(t, err)
}

func TestJaccard(t *testing.T) {
	a := NewGeneSet("g1", "g2", "g3")
	b := NewGeneSet("g2", "g3", "g4", "g5")
	c := NewGeneSet("x")

	assert.InDelta(t, 2.0/5.0, Jaccard(a, b), 1e-12)
	assert.Equal(t, Jaccard(a, b), Jaccard(b, a), "symmetric")
	assert.Equal(t, 1.0, Jaccard(a, a))
	assert.Equal(t, 0.0, Jaccard(a, c), "disjoint")
	assert.Equal(t, 0.0, Jaccard(GeneSet{}, GeneSet{}), "empty union")
}

func TestGeneSetOps(t *testing.T) {
	a := NewGeneSet("g1", "g2", "g3", "")
	b := NewGeneSet("g2", "g4")

	assert.Equal(t, 3, a.Len())
	assert.Equal(t, []string{"g2"}, a.Intersect(b).Sorted())
	assert.Equal(t, []string{"g1", "g2", "g3", "g4"}, a.Union(b).Sorted())
	assert.Equal(t, []string{"g1", "g3"}, a.Minus(b).Sorted())
	assert.Equal(t, 1, a.IntersectionSize(b))
}

func TestDatabase_AddCollapsesDuplicateGenes(t *testing.T) {
	db := NewDatabase()
	db.Add(Record{Name: "A", Genes: []string{"g1", "g1", "g2"}})

	rec, ok := db.Get("A")
	require.True(t, ok)
	assert.Equal(t, []string{"g1", "g2"}, rec.Genes)
	assert.Nil(t, db.Set("missing"))
}

func TestParseList(t *testing.T) {
	genes, err := ParseList(strings.NewReader("7157\n\n  672 \n7157\n4000"))
	require.NoError(t, err)
	assert.Equal(t, []string{"7157", "672", "4000"}, genes)

	path := filepath.Join(t.TempDir(), "genes.txt")
	require.NoError(t, os.WriteFile(path, []byte("TP53\n"), 0644))
	genes, err = ReadList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"TP53"}, genes)

	_, err = ReadList(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
