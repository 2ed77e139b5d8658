// Package catalog searches the NASA Common Metadata Repository (CMR) for
// granules of a collection.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	swothttp "github.com/745739396/SWOT-program/internal/http"
)

const (
	defaultPageSize = 2000
	searchAfter     = "CMR-Search-After"
)

// RelatedUrl types carrying granule data.
const (
	typeGetData       = "GET DATA"
	typeGetDataDirect = "GET DATA VIA DIRECT ACCESS"
)

// Granule is one downloadable unit returned by a search.
type Granule struct {
	ConceptID   string
	Name        string
	Links       []string // HTTPS data URLs
	DirectLinks []string // s3:// URLs, usable from inside the archive's region
	Files       []File
}

// File is the archive metadata of one file of a granule.
type File struct {
	Name      string
	Size      int64
	Checksum  string
	Algorithm string
}

func (g Granule) String() string {
	if g.Name != "" {
		return g.Name
	}
	return g.ConceptID
}

// File returns the metadata of the file called name.
func (g Granule) File(name string) (File, bool) {
	for _, f := range g.Files {
		if f.Name == name {
			return f, true
		}
	}
	return File{}, false
}

// Size is the total of the known file sizes.
func (g Granule) Size() int64 {
	var n int64
	for _, f := range g.Files {
		n += f.Size
	}
	return n
}

// Options configures the catalog client.
type Options struct {
	// BaseURL of the CMR, e.g. https://cmr.earthdata.nasa.gov
	BaseURL string

	// PageSize is the number of granules requested per page.
	// Default: 2000
	PageSize int

	// HTTP configures the session, including Earthdata credentials.
	HTTP swothttp.Options
}

// Client searches the CMR.
type Client struct {
	logger   *slog.Logger
	http     *swothttp.Client
	baseURL  string
	pageSize int
}

// NewClient creates a catalog client.
func NewClient(logger *slog.Logger, opts Options) *Client {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	return &Client{
		logger:   logger,
		http:     swothttp.NewClient(opts.HTTP),
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		pageSize: opts.PageSize,
	}
}

// Search returns every granule matching q, in catalog order. An empty result
// is not an error.
func (c *Client) Search(ctx context.Context, q Query) ([]Granule, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	granules := []Granule{}
	var after string
	for {
		pageSize := c.pageSize
		if q.Limit > 0 && q.Limit-len(granules) < pageSize {
			pageSize = q.Limit - len(granules)
		}

		page, next, err := c.fetchPage(ctx, q.values(pageSize), after)
		if err != nil {
			return nil, fmt.Errorf("catalog: search %s: %w", q.ShortName, err)
		}
		for _, item := range page.Items {
			granules = append(granules, item.granule())
		}

		c.logger.Debug("catalog page", "collection", q.ShortName, "items", len(page.Items), "hits", page.Hits)

		if len(page.Items) < pageSize || next == "" || (q.Limit > 0 && len(granules) >= q.Limit) {
			break
		}
		after = next
	}

	if q.Limit > 0 && len(granules) > q.Limit {
		granules = granules[:q.Limit]
	}

	c.logger.Info("catalog search complete", "collection", q.ShortName, "granules", len(granules))
	return granules, nil
}

func (c *Client) fetchPage(ctx context.Context, params url.Values, after string) (*searchResponse, string, error) {
	header := http.Header{}
	header.Set("Accept", "application/vnd.nasa.cmr.umm_results+json")
	if after != "" {
		header.Set(searchAfter, after)
	}

	resp, err := c.http.Get(ctx, c.baseURL+"/search/granules.umm_json?"+params.Encode(), header)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var page searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, "", fmt.Errorf("decode response: %w", err)
	}
	return &page, resp.Header.Get(searchAfter), nil
}

// searchResponse is the subset of the UMM-JSON granule results we use.
type searchResponse struct {
	Hits  int       `json:"hits"`
	Items []ummItem `json:"items"`
}

type ummItem struct {
	Meta struct {
		ConceptID string `json:"concept-id"`
	} `json:"meta"`
	UMM struct {
		GranuleUR   string `json:"GranuleUR"`
		RelatedUrls []struct {
			URL  string `json:"URL"`
			Type string `json:"Type"`
		} `json:"RelatedUrls"`
		DataGranule struct {
			ArchiveAndDistributionInformation []ummFile `json:"ArchiveAndDistributionInformation"`
		} `json:"DataGranule"`
	} `json:"umm"`
}

type ummFile struct {
	Name        string  `json:"Name"`
	SizeInBytes int64   `json:"SizeInBytes"`
	Size        float64 `json:"Size"`
	SizeUnit    string  `json:"SizeUnit"`
	Checksum    *struct {
		Value     string `json:"Value"`
		Algorithm string `json:"Algorithm"`
	} `json:"Checksum"`
}

func (item ummItem) granule() Granule {
	g := Granule{
		ConceptID: item.Meta.ConceptID,
		Name:      item.UMM.GranuleUR,
	}

	seen := map[string]bool{}
	for _, ru := range item.UMM.RelatedUrls {
		if seen[ru.URL] {
			continue
		}
		seen[ru.URL] = true

		switch {
		case ru.Type == typeGetData && strings.HasPrefix(ru.URL, "http"):
			g.Links = append(g.Links, ru.URL)
		case ru.Type == typeGetDataDirect && strings.HasPrefix(ru.URL, "s3://"):
			g.DirectLinks = append(g.DirectLinks, ru.URL)
		}
	}

	for _, f := range item.UMM.DataGranule.ArchiveAndDistributionInformation {
		file := File{Name: f.Name, Size: f.bytes()}
		if f.Checksum != nil {
			file.Checksum = f.Checksum.Value
			file.Algorithm = f.Checksum.Algorithm
		}
		g.Files = append(g.Files, file)
	}

	return g
}

// bytes prefers SizeInBytes and falls back to Size with its unit.
func (f ummFile) bytes() int64 {
	if f.SizeInBytes > 0 {
		return f.SizeInBytes
	}
	units := map[string]float64{
		"KB": 1 << 10,
		"MB": 1 << 20,
		"GB": 1 << 30,
		"TB": 1 << 40,
	}
	if m, ok := units[strings.ToUpper(f.SizeUnit)]; ok {
		return int64(f.Size * m)
	}
	return int64(f.Size)
}
