package consensus

import (
	"bytes"
	"fmt"
	"io"
	"math/bits"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/inodb/vibe-geneset/internal/gmt"
)

// MaxOverlapSources bounds the number of sources SourceOverlap accepts,
// since it reports every combination of them.
const MaxOverlapSources = 10

// Group counts the gene-set names found in exactly these sources.
type Group struct {
	Sources []string
	Count   int
}

// Label names the group, e.g. "qwen Only" or "qwen & llama".
func (g Group) Label(total int) string {
	switch {
	case len(g.Sources) == 1:
		return g.Sources[0] + " Only"
	case len(g.Sources) == total && total > 2:
		return "All Sources"
	}
	return strings.Join(g.Sources, " & ")
}

// Overlap summarizes which sources produced which gene-set names.
type Overlap struct {
	Groups []Group // every combination, fewest sources first
	Union  int
	total  int
}

// SourceOverlap counts non-empty gene-set names per exact combination of
// the sources that contain them. Combinations without names are reported
// with a zero count.
func SourceOverlap(labels []string, sources []*gmt.Database) (*Overlap, error) {
	if len(labels) != len(sources) {
		return nil, fmt.Errorf("%d labels for %d sources", len(labels), len(sources))
	}
	if len(sources) == 0 || len(sources) > MaxOverlapSources {
		return nil, fmt.Errorf("source overlap needs 1 to %d sources, got %d", MaxOverlapSources, len(sources))
	}

	membership := make(map[string]uint)
	for i, src := range sources {
		for _, name := range populated(src) {
			membership[name] |= 1 << i
		}
	}
	counts := make(map[uint]int)
	for _, mask := range membership {
		counts[mask]++
	}

	masks := make([]uint, 0, 1<<len(sources))
	for m := uint(1); m < 1<<len(sources); m++ {
		masks = append(masks, m)
	}
	sort.SliceStable(masks, func(i, j int) bool {
		return bits.OnesCount(masks[i]) < bits.OnesCount(masks[j])
	})

	o := &Overlap{Union: len(membership), total: len(sources)}
	for _, m := range masks {
		var names []string
		for i, l := range labels {
			if m&(1<<i) != 0 {
				names = append(names, l)
			}
		}
		o.Groups = append(o.Groups, Group{Sources: names, Count: counts[m]})
	}
	return o, nil
}

// MarshalJSON encodes the overlap as one object of label -> count, groups
// in order, ending with the union.
func (o *Overlap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, g := range o.Groups {
		if err := writeField(&buf, g.Label(o.total), g.Count); err != nil {
			return nil, err
		}
		buf.WriteByte(',')
	}
	if err := writeField(&buf, "Union (All Sets)", o.Union); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, key string, n int) error {
	k, err := json.MarshalWithOption(key, json.DisableHTMLEscape())
	if err != nil {
		return err
	}
	buf.Write(k)
	fmt.Fprintf(buf, ":%d", n)
	return nil
}

// WriteJSON writes the overlap summary as indented JSON.
func (o *Overlap) WriteJSON(w io.Writer) error {
	raw, err := o.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode overlap: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "    "); err != nil {
		return fmt.Errorf("indent overlap: %w", err)
	}
	out.WriteByte('\n')
	_, err = w.Write(out.Bytes())
	return err
}
