package idmap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/inodb/vibe-geneset/internal/gmt"
)

// Defaults for the MyGene.info client.
const (
	DefaultMyGeneURL = "https://mygene.info/v3/query"
	DefaultSpecies   = "human"
	DefaultBatchSize = 1000
	DefaultTimeout   = 60 * time.Second

	myGeneScopes = "symbol,reporter,accession,entrezgene"
)

// MyGeneConfig configures a MyGeneClient.
type MyGeneConfig struct {
	URL       string
	Species   string
	BatchSize int
	Timeout   time.Duration
}

// MyGeneClient resolves identifiers with the MyGene.info batch query API.
type MyGeneClient struct {
	url        string
	species    string
	batchSize  int
	httpClient *http.Client
	logger     *zap.Logger
}

// NewMyGeneClient creates a client. Zero config fields take the defaults.
func NewMyGeneClient(cfg MyGeneConfig) *MyGeneClient {
	if cfg.URL == "" {
		cfg.URL = DefaultMyGeneURL
	}
	if cfg.Species == "" {
		cfg.Species = DefaultSpecies
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &MyGeneClient{
		url:       cfg.URL,
		species:   cfg.Species,
		batchSize: cfg.BatchSize,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for unmapped identifier warnings.
func (c *MyGeneClient) SetLogger(l *zap.Logger) {
	c.logger = l
}

// queryHit is one element of the MyGene.info batch query response.
type queryHit struct {
	Query      string   `json:"query"`
	NotFound   bool     `json:"notfound"`
	EntrezGene idString `json:"entrezgene"`
	Symbol     idString `json:"symbol"`
}

// idString accepts both JSON strings and numbers.
type idString string

func (s *idString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = idString(v)
		return nil
	}
	if string(b) == "null" {
		return nil
	}
	*s = idString(b)
	return nil
}

func fieldFor(target gmt.IDSpace) (string, error) {
	switch target {
	case gmt.SpaceNumeric:
		return "entrezgene", nil
	case gmt.SpaceSymbol:
		return "symbol", nil
	}
	return "", fmt.Errorf("cannot map to %s identifiers", target)
}

// Map implements Mapper. Identifiers are queried in batches; the first hit
// of each query wins and queries without a hit, or whose hit lacks the
// target field, are invalid.
func (c *MyGeneClient) Map(ctx context.Context, symbols []string, target gmt.IDSpace) (*Result, error) {
	field, err := fieldFor(target)
	if err != nil {
		return nil, err
	}

	queries := Unique(symbols)
	res := NewResult()
	for start := 0; start < len(queries); start += c.batchSize {
		end := min(start+c.batchSize, len(queries))
		hits, err := c.query(ctx, queries[start:end], field)
		if err != nil {
			return nil, err
		}
		c.collect(res, queries[start:end], hits, target)
	}

	if len(res.Invalid) > 0 {
		c.logger.Warn("identifiers not mapped",
			zap.Int("count", len(res.Invalid)),
			zap.Strings("ids", res.Invalid))
	}
	return res, nil
}

func (c *MyGeneClient) query(ctx context.Context, batch []string, field string) ([]queryHit, error) {
	form := url.Values{}
	form.Set("q", strings.Join(batch, ","))
	form.Set("scopes", myGeneScopes)
	form.Set("fields", field)
	form.Set("species", c.species)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build mygene request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mygene request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("mygene error %d: %s", resp.StatusCode, string(body))
	}

	var hits []queryHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("decode mygene response: %w", err)
	}
	return hits, nil
}

func (c *MyGeneClient) collect(res *Result, batch []string, hits []queryHit, target gmt.IDSpace) {
	for _, h := range hits {
		if _, done := res.Mapped[h.Query]; done || h.NotFound {
			continue
		}
		id := string(h.EntrezGene)
		if target == gmt.SpaceSymbol {
			id = string(h.Symbol)
		}
		if id != "" {
			res.Mapped[h.Query] = id
		}
	}
	for _, q := range batch {
		if _, ok := res.Mapped[q]; !ok {
			res.Invalid = append(res.Invalid, q)
		}
	}
}
