package compare

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/inodb/vibe-geneset/internal/gmt"
)

// topN is the length of the ranked lists in a Summary.
const topN = 10

// Describe holds descriptive statistics of one count column.
type Describe struct {
	Count  int     `yaml:"count"`
	Mean   float64 `yaml:"mean"`
	Std    float64 `yaml:"std"`
	Min    float64 `yaml:"min"`
	P25    float64 `yaml:"p25"`
	Median float64 `yaml:"median"`
	P75    float64 `yaml:"p75"`
	Max    float64 `yaml:"max"`
}

// Ranked is a gene set name paired with a count.
type Ranked struct {
	Name  string `yaml:"name"`
	Value int    `yaml:"value"`
}

// Summary describes a list of comparison records as a whole.
type Summary struct {
	Sets int `yaml:"sets"`

	Common Describe `yaml:"common"`
	Added  Describe `yaml:"added"`
	Lost   Describe `yaml:"lost"`

	NoCommon   []string `yaml:"no_common"` // sets sharing no gene
	NoAdded    []string `yaml:"no_added"`  // sets without new genes
	AllLost    []string `yaml:"all_lost"`  // sets that lost every original gene
	TopCommon  []Ranked `yaml:"top_common"`
	TopAdded   []Ranked `yaml:"top_added"`
	LeastLost  []Ranked `yaml:"least_lost"`
	OriginalDB int      `yaml:"original_db_genes"` // distinct genes over all original sets
	NewDB      int      `yaml:"new_db_genes"`      // distinct genes over all new sets

	GlobalLost   []string `yaml:"global_lost"`
	GlobalGained []string `yaml:"global_gained"`
}

// Summarize computes descriptive statistics of the gene counts of records
// and the genes lost or gained over the whole database. The original genes
// of a record are its common and lost genes; its new genes are the common
// and added ones.
func Summarize(records []Record) Summary {
	s := Summary{Sets: len(records)}

	common := make([]float64, len(records))
	added := make([]float64, len(records))
	lost := make([]float64, len(records))
	original := make(gmt.GeneSet)
	updated := make(gmt.GeneSet)

	for i, r := range records {
		common[i] = float64(r.NumCommon())
		added[i] = float64(r.NumAdded())
		lost[i] = float64(r.NumLost())

		if r.NumCommon() == 0 {
			s.NoCommon = append(s.NoCommon, r.Name)
		}
		if r.NumAdded() == 0 {
			s.NoAdded = append(s.NoAdded, r.Name)
		}
		if r.NumLost() == r.Original {
			s.AllLost = append(s.AllLost, r.Name)
		}

		for _, g := range r.Common {
			original.Add(g)
			updated.Add(g)
		}
		for _, g := range r.Lost {
			original.Add(g)
		}
		for _, g := range r.Added {
			updated.Add(g)
		}
	}

	s.Common = describe(common)
	s.Added = describe(added)
	s.Lost = describe(lost)

	s.TopCommon = rank(records, Record.NumCommon, true)
	s.TopAdded = rank(records, Record.NumAdded, true)
	s.LeastLost = rank(records, Record.NumLost, false)

	s.OriginalDB = original.Len()
	s.NewDB = updated.Len()
	s.GlobalLost = original.Minus(updated).Sorted()
	s.GlobalGained = updated.Minus(original).Sorted()
	return s
}

func describe(data stats.Float64Data) Describe {
	d := Describe{Count: data.Len()}
	if d.Count == 0 {
		return d
	}
	d.Mean, _ = stats.Mean(data)
	d.Min, _ = stats.Min(data)
	d.Max, _ = stats.Max(data)
	d.Median, _ = stats.Median(data)
	d.P25, _ = stats.PercentileNearestRank(data, 25)
	d.P75, _ = stats.PercentileNearestRank(data, 75)
	if d.Count > 1 {
		d.Std, _ = stats.StandardDeviationSample(data)
	} else {
		d.Std = math.NaN()
	}
	return d
}

// rank returns up to topN records ordered by value, descending or ascending.
// Ties keep record order.
func rank(records []Record, value func(Record) int, desc bool) []Ranked {
	out := make([]Ranked, len(records))
	for i, r := range records {
		out[i] = Ranked{Name: r.Name, Value: value(r)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return out[i].Value > out[j].Value
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}
