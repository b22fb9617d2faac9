package compare

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-geneset/internal/gmt"
)

func parse(t *testing.T, text string) *gmt.Database {
	t.Helper()
	db, err := gmt.Parse(strings.NewReader(text))
	require.NoError(t, err)
	return db
}

func fixtures(t *testing.T) (*gmt.Database, *gmt.Database) {
	original := parse(t, "A\tNA\tg1\tg2\tg3\n"+
		"B\tNA\tg4\n"+
		"C\tNA\tg5\n"+
		"E\tNA\n")
	updated := parse(t, "D\tNA\tg7\n"+
		"A\tNA\tg2\tg3\tg6\n"+
		"B\tNA\tg4\tg8\tg9\n"+
		"E\tNA\n")
	return original, updated
}

func TestCompare(t *testing.T) {
	original, updated := fixtures(t)

	records, err := Compare(original, updated)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, Record{
		Name:     "A",
		Common:   []string{"g2", "g3"},
		Added:    []string{"g6"},
		Lost:     []string{"g1"},
		Original: 3,
	}, records[0])

	b := records[1]
	assert.Equal(t, "B", b.Name)
	assert.Equal(t, 1, b.NumCommon())
	assert.Equal(t, 2, b.NumAdded())
	assert.Equal(t, 0, b.NumLost())

	assert.Equal(t, "E", records[2].Name, "iteration follows the new database")
}

func TestCompare_MixedSpaces(t *testing.T) {
	original := parse(t, "A\tNA\tTP53\n")
	updated := parse(t, "A\tNA\t7157\n")

	_, err := Compare(original, updated)
	assert.ErrorIs(t, err, gmt.ErrMixedIDSpace)
}

func TestSimilarity(t *testing.T) {
	original, updated := fixtures(t)

	rep, err := Similarity(original, updated)
	require.NoError(t, err)
	require.Len(t, rep.Rows, 3)

	assert.Equal(t, SimilarityRow{Name: "A", Size1: 3, Size2: 3, Common: 2, Union: 4, Percent: 50}, rep.Rows[0])
	assert.InDelta(t, 100.0/3.0, rep.Rows[1].Percent, 1e-9)
	assert.Equal(t, SimilarityRow{Name: "E"}, rep.Rows[2], "empty union scores 0")

	// E has an empty union and is left out of both means.
	assert.InDelta(t, (0.5+1.0/3.0)/2, rep.Stats.UnweightedMean, 1e-12)
	assert.InDelta(t, 3.0/7.0, rep.Stats.WeightedMean, 1e-12)

	assert.Equal(t, 4, rep.Stats.TotalGenes1, "C is not compared")
	assert.Equal(t, 6, rep.Stats.TotalGenes2, "D is not compared")
	assert.Equal(t, 3, rep.Stats.SharedGenes)
	assert.Equal(t, 7, rep.Stats.UnionGenes)
	assert.InDelta(t, 3.0/7.0, rep.Stats.TotalSimilarity, 1e-12)
}

func TestSimilarity_WeightedMeanRecomputed(t *testing.T) {
	original := parse(t, "S1\tNA\ta\tb\tc\td\tx1\tx2\tx3\tx4\n"+
		"S2\tNA\ta\n"+
		"S3\tNA\tp\tq\n")
	updated := parse(t, "S1\tNA\ta\tb\n"+
		"S2\tNA\ta\tz\n"+
		"S3\tNA\tq\tr\ts\n")

	rep, err := Similarity(original, updated)
	require.NoError(t, err)

	var inter, union int
	for _, row := range rep.Rows {
		inter += row.Common
		union += row.Union
	}
	assert.Equal(t, float64(inter)/float64(union), rep.Stats.WeightedMean)
	assert.NotEqual(t, rep.Stats.UnweightedMean, rep.Stats.WeightedMean)
}

func TestSimilarity_Disjoint(t *testing.T) {
	rep, err := Similarity(parse(t, "A\tNA\tx\n"), parse(t, "B\tNA\tx\n"))
	require.NoError(t, err)
	assert.Empty(t, rep.Rows)
	assert.Equal(t, Stats{}, rep.Stats)
}

func TestSummarize(t *testing.T) {
	original, updated := fixtures(t)
	records, err := Compare(original, updated)
	require.NoError(t, err)
	records = append(records[:2], Record{Name: "Z", Lost: []string{"x"}, Original: 1})

	s := Summarize(records)
	assert.Equal(t, 3, s.Sets)
	assert.Equal(t, 3, s.Common.Count)
	assert.InDelta(t, 1.0, s.Common.Mean, 1e-12)
	assert.Equal(t, 0.0, s.Common.Min)
	assert.Equal(t, 2.0, s.Common.Max)
	assert.InDelta(t, 1.0, s.Common.Std, 1e-12)
	assert.Equal(t, 1.0, s.Common.Median)

	assert.Equal(t, []string{"Z"}, s.NoCommon)
	assert.Equal(t, []string{"Z"}, s.NoAdded)
	assert.Equal(t, []string{"Z"}, s.AllLost)
	assert.Equal(t, []Ranked{{"A", 2}, {"B", 1}, {"Z", 0}}, s.TopCommon)
	assert.Equal(t, []Ranked{{"B", 0}, {"A", 1}, {"Z", 1}}, s.LeastLost)

	assert.Equal(t, 5, s.OriginalDB)
	assert.Equal(t, 6, s.NewDB)
	assert.Equal(t, []string{"g1", "x"}, s.GlobalLost)
	assert.Equal(t, []string{"g6", "g8", "g9"}, s.GlobalGained)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.Sets)
	assert.Equal(t, Describe{}, s.Common)
	assert.Empty(t, s.TopCommon)
}

func TestDiseaseOverlap(t *testing.T) {
	original, updated := fixtures(t)
	diseases, err := LoadDiseases(strings.NewReader(
		`{"JIA": {"disease_group": "autoimmune", "genes": ["g4", "g2", "g9"]}}`))
	require.NoError(t, err)
	require.Len(t, diseases, 1)
	assert.Equal(t, "autoimmune", diseases[0].Group)

	rep, err := DiseaseOverlap(diseases, original, updated)
	require.NoError(t, err)
	require.Len(t, rep.Rows, 3, "C is missing from the second database")

	assert.Equal(t, OverlapRow{
		Disease: "JIA", Group: "autoimmune", GeneSet: "B",
		NumA: 1, NumB: 2, GenesA: "g4", GenesB: "g4,g9",
	}, rep.Rows[1])
	assert.Equal(t, 2, rep.TotalA)
	assert.Equal(t, 3, rep.TotalB)

	var buf bytes.Buffer
	require.NoError(t, WriteOverlapCSV(&buf, rep))
	assert.True(t, strings.HasPrefix(buf.String(),
		"Disease,DiseaseGroup,GeneSet,NumGenes_GMT_A,NumGenes_GMT_B,Genes_GMT_A,Genes_GMT_B\n"))
}

func TestLoadDiseases_Invalid(t *testing.T) {
	_, err := LoadDiseases(strings.NewReader("[1, 2"))
	assert.Error(t, err)
}

func TestWriteComparisonCSV(t *testing.T) {
	original, updated := fixtures(t)
	records, err := Compare(original, updated)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteComparisonCSV(&buf, records))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "Gene Set Name,Common Genes,Newly Added Genes,Lost Genes,# Common,# New,# Lost,# Original", lines[0])
	assert.Equal(t, `A,"g2, g3",g6,g1,2,1,1,3`, lines[1])

	back, err := ReadComparisonCSV(&buf)
	require.NoError(t, err)
	require.Len(t, back, 3)
	assert.Equal(t, records[0], back[0])
	assert.Equal(t, []string{"g8", "g9"}, back[1].Added)
	assert.Empty(t, back[1].Lost)
}

func TestWriteSimilarityCSV(t *testing.T) {
	original, updated := fixtures(t)
	rep, err := Similarity(original, updated)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSimilarityCSV(&buf, rep))
	assert.Equal(t, "Gene Set Name,# Genes DB1,# Genes DB2,# Common,Union Size,% Similarity\n"+
		"A,3,3,2,4,50\n"+
		"B,1,3,1,3,33.33\n"+
		"E,0,0,0,0,0\n", buf.String())
}

func TestWriteSummaryYAML(t *testing.T) {
	s := Summarize([]Record{{Name: "A", Common: []string{"g1"}, Added: []string{"g2"}, Original: 1}})

	var buf bytes.Buffer
	require.NoError(t, WriteSummaryYAML(&buf, s))
	out := buf.String()
	assert.Contains(t, out, "sets: 1\n")
	assert.Contains(t, out, "std: .nan\n")
	assert.Contains(t, out, "global_gained:\n  - g2\n")
}
