// Package merge combines extracted and verified phenotype gene records into
// one annotated record per (phenotype, gene) and builds GMT files from them.
package merge

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Source tells which inputs supplied a merged gene.
type Source int

const (
	Extracted Source = iota + 1
	Verified
	Both
)

func (s Source) String() string {
	switch s {
	case Extracted:
		return "Extracted"
	case Verified:
		return "Verified"
	case Both:
		return "Both"
	}
	return "Unknown"
}

// MarshalJSON encodes the source by name.
func (s Source) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a source name.
func (s *Source) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "Extracted":
		*s = Extracted
	case "Verified":
		*s = Verified
	case "Both":
		*s = Both
	default:
		return fmt.Errorf("unknown source %q", name)
	}
	return nil
}

// absorb returns the state after o supplies the same gene. Both is terminal.
func (s Source) absorb(o Source) Source {
	if s == o {
		return s
	}
	return Both
}

// Entry is a normalized input record. Every raw key variant is resolved
// at decode time.
type Entry struct {
	Gene      string
	Origin    Source
	Reference string
	Journal   string
	PMIDs     []string
}

// pmidList accepts null, a number, a string or a list of either.
type pmidList []string

func (p *pmidList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*p = nil
		return nil
	}
	if b[0] != '[' {
		id, err := scalar(b)
		if err != nil {
			return err
		}
		*p = nonEmpty(id)
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	out := make(pmidList, 0, len(items))
	for _, item := range items {
		id, err := scalar(item)
		if err != nil {
			return err
		}
		out = append(out, nonEmpty(id)...)
	}
	*p = out
	return nil
}

// scalar renders a JSON string, number or boolean as text; null is empty.
func scalar(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		return "", nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return s, nil
	case b[0] == '{' || b[0] == '[':
		return "", fmt.Errorf("expected scalar, got %s", b)
	}
	return string(b), nil
}

func nonEmpty(s string) []string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return []string{s}
}

// flexString decodes any JSON scalar as text.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s, err := scalar(b)
	*f = flexString(s)
	return err
}

type rawEntry struct {
	Gene              flexString `json:"Gene"`
	PMID              pmidList   `json:"PMID"`
	PMIDS             pmidList   `json:"PMIDS"`
	SourceReference   flexString `json:"Source Reference"`
	SupportingExtract flexString `json:"Supporting Extract"`
	Journal           flexString `json:"Journal"`
	Validation        flexString `json:"Validation"`
}

// decodeRaw accepts a single JSON object or a list of objects.
func decodeRaw(data []byte) ([]rawEntry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	if data[0] == '{' {
		var e rawEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return []rawEntry{e}, nil
	}
	var list []rawEntry
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// DecodeExtracted normalizes an extracted-genes document. PMIDs come from
// "PMID" when present and from "PMIDS" otherwise; the reference is
// "Source Reference".
func DecodeExtracted(data []byte) ([]Entry, error) {
	raw, err := decodeRaw(data)
	if err != nil {
		return nil, fmt.Errorf("decode extracted genes: %w", err)
	}
	out := make([]Entry, 0, len(raw))
	for _, r := range raw {
		pmids := r.PMID
		if len(pmids) == 0 {
			pmids = r.PMIDS
		}
		out = append(out, Entry{
			Gene:      strings.TrimSpace(string(r.Gene)),
			Origin:    Extracted,
			Reference: string(r.SourceReference),
			Journal:   string(r.Journal),
			PMIDs:     []string(pmids),
		})
	}
	return out, nil
}

// DecodeVerified normalizes a verified-gene document, keeping only records
// whose Validation is "yes" in any letter case. The reference is
// "Supporting Extract".
func DecodeVerified(data []byte) ([]Entry, error) {
	raw, err := decodeRaw(data)
	if err != nil {
		return nil, fmt.Errorf("decode verified gene: %w", err)
	}
	var out []Entry
	for _, r := range raw {
		if !strings.EqualFold(string(r.Validation), "yes") {
			continue
		}
		out = append(out, Entry{
			Gene:      strings.TrimSpace(string(r.Gene)),
			Origin:    Verified,
			Reference: string(r.SupportingExtract),
			Journal:   string(r.Journal),
			PMIDs:     []string(r.PMIDS),
		})
	}
	return out, nil
}
