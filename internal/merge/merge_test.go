package merge

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/vibe-geneset/internal/gmt"
	"github.com/inodb/vibe-geneset/internal/idmap"
	"github.com/inodb/vibe-geneset/internal/progress"
)

func TestDecodeExtracted(t *testing.T) {
	data := []byte(`[
		{"Gene": "G1", "PMID": 100, "Source Reference": "ref", "Journal": "J"},
		{"Gene": "G2", "PMIDS": ["200", 201, null, ""]},
		{"Gene": "G3", "PMID": null, "PMIDS": "300"},
		{"Gene": "G4"}
	]`)
	entries, err := DecodeExtracted(data)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, Entry{Gene: "G1", Origin: Extracted, Reference: "ref", Journal: "J", PMIDs: []string{"100"}}, entries[0])
	assert.Equal(t, []string{"200", "201"}, entries[1].PMIDs)
	assert.Equal(t, []string{"300"}, entries[2].PMIDs)
	assert.Empty(t, entries[3].PMIDs)
}

func TestDecodeExtracted_SingleObject(t *testing.T) {
	entries, err := DecodeExtracted([]byte(`{"Gene": "G1", "PMIDS": [1, 2]}`))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"1", "2"}, entries[0].PMIDs)
}

func TestDecodeVerified(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		keep bool
	}{
		{"yes", `{"Gene": "G1", "Validation": "yes"}`, true},
		{"upper", `{"Gene": "G1", "Validation": "YES"}`, true},
		{"no", `{"Gene": "G1", "Validation": "no"}`, false},
		{"missing", `{"Gene": "G1"}`, false},
		{"bool", `{"Gene": "G1", "Validation": true}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := DecodeVerified([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.keep, len(entries) == 1)
		})
	}

	entries, err := DecodeVerified([]byte(`{"Gene": "G1", "Validation": "Yes",
		"Supporting Extract": "text", "Journal": "J", "PMIDS": 7}`))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Entry{Gene: "G1", Origin: Verified, Reference: "text", Journal: "J", PMIDs: []string{"7"}}, entries[0])
}

func TestDecode_Malformed(t *testing.T) {
	_, err := DecodeExtracted([]byte(`{"Gene": `))
	assert.Error(t, err)
	_, err = DecodeVerified([]byte(``))
	assert.Error(t, err)
	_, err = DecodeExtracted([]byte(`{"Gene": "G", "PMID": {"x": 1}}`))
	assert.Error(t, err)
}

func scenario() (extracted, verified map[string][]Entry) {
	extracted = map[string][]Entry{
		"X": {{Gene: "G1", Origin: Extracted, PMIDs: []string{"100"}}},
		"Y": {{Gene: "G9", Origin: Extracted, PMIDs: []string{"900"}}},
	}
	verified = map[string][]Entry{
		"X": {
			{Gene: "G1", Origin: Verified, PMIDs: []string{"200"}},
			{Gene: "G2", Origin: Verified, PMIDs: []string{"300"}},
		},
	}
	return extracted, verified
}

func TestMerge_Intersection(t *testing.T) {
	extracted, verified := scenario()
	res := Merge(extracted, verified, ModeIntersection)

	assert.Equal(t, []string{"X"}, res.Phenotypes())
	recs := res.Records("X")
	require.Len(t, recs, 2)

	assert.Equal(t, "G1", recs[0].Gene)
	assert.Equal(t, Both, recs[0].Source)
	assert.ElementsMatch(t, []string{"100", "200"}, recs[0].PMIDs)

	assert.Equal(t, "G2", recs[1].Gene)
	assert.Equal(t, Verified, recs[1].Source)
	assert.Equal(t, []string{"300"}, recs[1].PMIDs)

	assert.Nil(t, res.Records("Y"))
}

func TestMerge_Union(t *testing.T) {
	extracted, verified := scenario()
	verified["Z"] = []Entry{{Gene: "G5", Origin: Verified}}
	res := Merge(extracted, verified, ModeUnion)

	assert.Equal(t, []string{"X", "Y", "Z"}, res.Phenotypes())
	require.Len(t, res.Records("Y"), 1)
	assert.Equal(t, Extracted, res.Records("Y")[0].Source)
	assert.Equal(t, Verified, res.Records("Z")[0].Source)
	assert.Equal(t, []string{}, res.Records("Z")[0].PMIDs)
}

func TestMerge_FieldPolicy(t *testing.T) {
	extracted := map[string][]Entry{"P": {
		{Gene: "G", Origin: Extracted, Reference: "", Journal: "EJ", PMIDs: []string{"1", "1"}},
		{Gene: "G", Origin: Extracted, Reference: "ER", Journal: "EJ2", PMIDs: []string{"2"}},
	}}
	verified := map[string][]Entry{"P": {
		{Gene: "G", Origin: Verified, Reference: "VR", Journal: "", PMIDs: []string{"2", "3"}},
	}}
	recs := Merge(extracted, verified, ModeIntersection).Records("P")
	require.Len(t, recs, 1)

	assert.Equal(t, "VR", recs[0].Reference, "verified text replaces extracted")
	assert.Equal(t, "EJ", recs[0].Journal, "empty verified value keeps existing")
	assert.Equal(t, []string{"1", "2", "3"}, recs[0].PMIDs)
	assert.Equal(t, Both, recs[0].Source)
}

func TestSource_Absorb(t *testing.T) {
	assert.Equal(t, Extracted, Extracted.absorb(Extracted))
	assert.Equal(t, Verified, Verified.absorb(Verified))
	assert.Equal(t, Both, Extracted.absorb(Verified))
	assert.Equal(t, Both, Verified.absorb(Extracted))
	assert.Equal(t, Both, Both.absorb(Extracted))
	assert.Equal(t, Both, Both.absorb(Verified))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("union")
	require.NoError(t, err)
	assert.Equal(t, ModeUnion, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeIntersection, m)

	_, err = ParseMode("xor")
	assert.Error(t, err)
}

func TestWriteReadJSON(t *testing.T) {
	extracted, verified := scenario()
	res := Merge(extracted, verified, ModeIntersection)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, res))
	assert.Contains(t, buf.String(), `"Source": "Both"`)
	assert.Contains(t, buf.String(), `"PMIDS"`)

	back, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, res.Phenotypes(), back.Phenotypes())
	assert.Equal(t, res.Records("X"), back.Records("X"))
}

func TestBuildGMTs(t *testing.T) {
	res := Merge(map[string][]Entry{
		"X": {{Gene: "TP53", Origin: Extracted}, {Gene: "NOPE", Origin: Extracted}},
		"W": {{Gene: "FAKE", Origin: Extracted}},
	}, map[string][]Entry{
		"X": {{Gene: "KRAS", Origin: Verified}},
		"W": {{Gene: "FAKE2", Origin: Verified}},
	}, ModeIntersection)

	mapper := idmap.NewStaticMapper(map[string]string{"TP53": "7157", "KRAS": "3845"})
	b, err := BuildGMTs(context.Background(), res, mapper)
	require.NoError(t, err)

	assert.Equal(t, "X\tcombined extracted+verified (symbols mapped to Entrez)\tKRAS\tTP53\n", gmt.Serialize(b.Symbols))
	assert.Equal(t, "X\tcombined extracted+verified (entrez)\t3845\t7157\n", gmt.Serialize(b.Numeric))
	assert.Equal(t, map[string][]string{
		"X": {"NOPE"},
		"W": {"FAKE", "FAKE2"},
	}, b.Unmapped)

	var buf bytes.Buffer
	require.NoError(t, WriteUnmapped(&buf, b.Unmapped))
	assert.Contains(t, buf.String(), `"NOPE"`)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadDirs(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	exDir := filepath.Join(root, "extracted")
	vDir := filepath.Join(root, "verified")

	writeFile(t, filepath.Join(exDir, "X.json"), `[{"Gene": "G1", "PMID": "100"}]`)
	writeFile(t, filepath.Join(exDir, "Y.json"), `{"Gene": "G9"}`)
	writeFile(t, filepath.Join(exDir, "BAD.json"), `{oops`)
	writeFile(t, filepath.Join(exDir, "notes.txt"), `ignored`)
	writeFile(t, filepath.Join(vDir, "X", "G1.json"), `{"Gene": "G1", "Validation": "yes", "PMIDS": ["200"]}`)
	writeFile(t, filepath.Join(vDir, "X", "G2.json"), `{"Gene": "G2", "Validation": "yes", "PMIDS": ["300"]}`)
	writeFile(t, filepath.Join(vDir, "X", "G3.json"), `{"Gene": "G3", "Validation": "no"}`)
	writeFile(t, filepath.Join(vDir, "Q", "G4.json"), `{"Gene": "G4", "Validation": "no"}`)

	core, logs := observer.New(zapcore.WarnLevel)
	l := NewLoader(nil)
	l.SetLogger(zap.New(core))

	extracted, err := l.LoadExtractedDir(ctx, exDir)
	require.NoError(t, err)
	assert.Len(t, extracted, 2)
	require.Equal(t, 1, logs.Len())
	assert.True(t, strings.HasSuffix(logs.All()[0].ContextMap()["path"].(string), "BAD.json"))

	verified, err := l.LoadVerifiedDir(ctx, vDir)
	require.NoError(t, err)
	assert.Len(t, verified, 1, "phenotypes without validated genes are dropped")
	assert.Len(t, verified["X"], 2)

	recs := Merge(extracted, verified, ModeIntersection).Records("X")
	require.Len(t, recs, 2)
	assert.Equal(t, Both, recs[0].Source)
	assert.ElementsMatch(t, []string{"100", "200"}, recs[0].PMIDs)
}

func TestLoadExtractedDir_Filter(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "X.json"), `{"Gene": "G1"}`)
	writeFile(t, filepath.Join(dir, "Y.json"), `{"Gene": "G2"}`)

	l := NewLoader(progress.NewMemory("Y"))
	extracted, err := l.LoadExtractedDir(ctx, dir)
	require.NoError(t, err)
	assert.Len(t, extracted, 1)
	assert.Contains(t, extracted, "Y")
}

func TestLoadDirs_Missing(t *testing.T) {
	l := NewLoader(nil)
	ex, err := l.LoadExtractedDir(context.Background(), filepath.Join(t.TempDir(), "none"))
	require.NoError(t, err)
	assert.Empty(t, ex)

	v, err := l.LoadVerifiedDir(context.Background(), filepath.Join(t.TempDir(), "none"))
	require.NoError(t, err)
	assert.Empty(t, v)
}
