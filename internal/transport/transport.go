// Package transport implements the outbound HTTP interfaces of spec.md §6:
// municipality lookup, N50 GML download, the building-type table, SSR
// place names, NVE lakes, and point elevation, all through a shared
// User-Agent-tagged client.
//
// Retry with exponential backoff applies only to elevation sampling
// (spec.md §5); its schedule is shaped the way watercolormap configures
// github.com/MeKo-Christian/go-overpass's retry client
// (internal/datasource/overpass.go), reusing that package's RetryConfig
// for the backoff parameters while driving the request loop directly,
// since the elevation endpoint is plain REST rather than Overpass QL.
package transport

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	overpass "github.com/MeKo-Christian/go-overpass"

	"github.com/n50osm/n50osm/internal/model"
	"github.com/n50osm/n50osm/internal/osmerr"
)

// UserAgent is sent on every outbound request (spec.md SUPPLEMENTED
// FEATURES).
const UserAgent = "nkamapper/n50osm"

// Config holds the base URLs for every external service, overridable via
// internal/config (spec.md §6).
type Config struct {
	KommuneinfoBaseURL string
	N50BaseURL         string
	BuildingTypesURL   string
	SSRNamesBaseURL    string
	NVELakesBaseURL    string
	ElevationBaseURL   string
	RequestTimeout     time.Duration
}

// Client wraps http.Client with the shared User-Agent header and base URLs
// for every external service n50osm talks to.
type Client struct {
	http *http.Client
	cfg  Config
	log  *slog.Logger

	retry overpass.RetryConfig
}

// New returns a Client. A zero Config.RequestTimeout defaults to 30s.
func New(cfg Config, log *slog.Logger) *Client {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	retry := overpass.DefaultRetryConfig()
	retry.MaxRetries = 5
	retry.InitialBackoff = 1 * time.Second
	retry.MaxBackoff = 16 * time.Second
	retry.BackoffMultiplier = 2
	retry.Jitter = false
	return &Client{
		http:  &http.Client{Timeout: cfg.RequestTimeout},
		cfg:   cfg,
		log:   log,
		retry: retry,
	}
}

func (c *Client) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	return req, nil
}

func (c *Client) do(ctx context.Context, service, rawURL string) (*http.Response, error) {
	req, err := c.newRequest(ctx, rawURL)
	if err != nil {
		return nil, &osmerr.ErrTransport{Service: service, URL: rawURL, Cause: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &osmerr.ErrTransport{Service: service, URL: rawURL, Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &osmerr.ErrTransport{Service: service, URL: rawURL, Cause: fmt.Errorf("status %d: %s", resp.StatusCode, body)}
	}
	return resp, nil
}

// --- Municipality lookup ---------------------------------------------

type kommuneinfoResponse struct {
	Kommunenummer    string                `json:"kommunenummer"`
	KommunenavnNorsk string                `json:"kommunenavnNorsk"`
	Kommuner         []kommuneinfoResponse `json:"kommuner"`
}

// Municipality is a resolved (code, name) pair.
type Municipality struct {
	Code string
	Name string
}

// LookupMunicipality resolves a four-digit code or a name substring to
// exactly one municipality, per spec.md §6 "Municipality lookup".
func (c *Client) LookupMunicipality(ctx context.Context, query string) (Municipality, error) {
	if isNumericCode(query) {
		rawURL := fmt.Sprintf("%s/kommuneinfo/v1/kommuner/%s", c.cfg.KommuneinfoBaseURL, query)
		resp, err := c.do(ctx, "kommuneinfo", rawURL)
		if err != nil {
			return Municipality{}, &osmerr.ErrMunicipalityNotFound{Query: query}
		}
		defer resp.Body.Close()
		var result kommuneinfoResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return Municipality{}, &osmerr.ErrTransport{Service: "kommuneinfo", URL: rawURL, Cause: err}
		}
		return Municipality{Code: result.Kommunenummer, Name: result.KommunenavnNorsk}, nil
	}

	rawURL := fmt.Sprintf("%s/kommuneinfo/v1/sok?knavn=%s", c.cfg.KommuneinfoBaseURL, url.QueryEscape(query))
	resp, err := c.do(ctx, "kommuneinfo", rawURL)
	if err != nil {
		return Municipality{}, err
	}
	defer resp.Body.Close()
	var result kommuneinfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Municipality{}, &osmerr.ErrTransport{Service: "kommuneinfo", URL: rawURL, Cause: err}
	}
	switch len(result.Kommuner) {
	case 0:
		return Municipality{}, &osmerr.ErrMunicipalityNotFound{Query: query}
	case 1:
		m := result.Kommuner[0]
		return Municipality{Code: m.Kommunenummer, Name: m.KommunenavnNorsk}, nil
	default:
		matches := make([]string, len(result.Kommuner))
		for i, m := range result.Kommuner {
			matches[i] = fmt.Sprintf("%s %s", m.Kommunenummer, m.KommunenavnNorsk)
		}
		return Municipality{}, &osmerr.ErrAmbiguousMunicipality{Query: query, Matches: matches}
	}
}

func isNumericCode(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// --- N50 GML download ---------------------------------------------------

var nordicTransliteration = strings.NewReplacer("Æ", "E", "Ø", "O", "Å", "A", " ", "_")

// NormalizedMunicipalityName uppercases a municipality name and
// transliterates Nordic letters per spec.md §6 "N50 GML", for use in both
// the N50 download URL and the output filename.
func NormalizedMunicipalityName(name string) string {
	return nordicTransliteration.Replace(strings.ToUpper(name))
}

// N50ZipURL builds the download URL for a municipality's N50 GML archive,
// per spec.md §6 "N50 GML".
func N50ZipURL(base, id, name string) string {
	return fmt.Sprintf("%s/Basisdata/N50Kartdata/GML/Basisdata_%s_%s_25833_N50Kartdata_GML.zip", base, id, NormalizedMunicipalityName(name))
}

// FetchN50Zip downloads the N50 archive for a municipality and returns its
// raw bytes (the caller unzips and locates the category-specific .gml
// member).
func (c *Client) FetchN50Zip(ctx context.Context, id, name string) ([]byte, error) {
	rawURL := N50ZipURL(c.cfg.N50BaseURL, id, name)
	resp, err := c.do(ctx, "n50-gml", rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// --- Building types CSV ---------------------------------------------------

// FetchBuildingTypesCSV downloads the published building-type table
// (spec.md §4.2, §6 "Building types"). The caller parses it with
// classify.ParseBuildingTypesCSV and falls back to the embedded table on
// error.
func (c *Client) FetchBuildingTypesCSV(ctx context.Context) ([]byte, error) {
	resp, err := c.do(ctx, "building-types", c.cfg.BuildingTypesURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// --- SSR names ---------------------------------------------------------

// osmXML mirrors the minimal subset of OSM XML structure needed to read
// SSR place-name nodes, grounded on paulmach/osm's Node/Tag shapes without
// depending on its streaming osmxml decoder, since the SSR export is a
// small whole-document fetch rather than a multi-gigabyte planet extract.
type osmXML struct {
	XMLName xml.Name `xml:"osm"`
	Nodes   []struct {
		Lat  float64 `xml:"lat,attr"`
		Lon  float64 `xml:"lon,attr"`
		ID   int64   `xml:"id,attr"`
		Tags []struct {
			K string `xml:"k,attr"`
			V string `xml:"v,attr"`
		} `xml:"tag"`
	} `xml:"node"`
}

// FetchPlaceRecords downloads and parses the SSR name export for a
// municipality, per spec.md §6 "SSR names".
func (c *Client) FetchPlaceRecords(ctx context.Context, id string) ([]model.PlaceRecord, error) {
	rawURL := fmt.Sprintf("%s/ssr2_to_osm_data/data/%s/%s.osm", c.cfg.SSRNamesBaseURL, id, id)
	resp, err := c.do(ctx, "ssr-names", rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var doc osmXML
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, &osmerr.ErrTransport{Service: "ssr-names", URL: rawURL, Cause: err}
	}

	records := make([]model.PlaceRecord, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		rec := model.PlaceRecord{Coord: model.NewNode(n.Lon, n.Lat)}
		for _, t := range n.Tags {
			switch t.K {
			case "name":
				rec.Name = t.V
			case "ssr:type":
				rec.SSRType = t.V
			case "ssr:stedsnr":
				rec.SSRID = t.V
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// --- NVE lakes -----------------------------------------------------------

type nveLakeResponse struct {
	Features              []nveLakeFeature `json:"features"`
	ExceededTransferLimit bool              `json:"exceededTransferLimit"`
}

type nveLakeFeature struct {
	Attributes struct {
		VatnLnr    int64   `json:"vatnLnr"`
		Navn       string  `json:"navn"`
		Hoyde      *int    `json:"hoyde"`
		ArealKm2   float64 `json:"arealKm2"`
		MagasinNr  string  `json:"magasinNr"`
	} `json:"attributes"`
}

// FetchLakeRecords pages through the NVE lakes service for a municipality
// until a response lacks exceededTransferLimit, per spec.md §6 "NVE
// lakes".
func (c *Client) FetchLakeRecords(ctx context.Context, id string) ([]model.LakeRecord, error) {
	var all []model.LakeRecord
	offset := 0
	const pageSize = 1000
	for {
		rawURL := fmt.Sprintf("%s/Innsjodatabase2/MapServer/5/query?kommune=%s&resultOffset=%d&resultRecordCount=%d&f=json",
			c.cfg.NVELakesBaseURL, id, offset, pageSize)
		resp, err := c.do(ctx, "nve-lakes", rawURL)
		if err != nil {
			return nil, err
		}
		var page nveLakeResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, &osmerr.ErrTransport{Service: "nve-lakes", URL: rawURL, Cause: decodeErr}
		}
		for _, f := range page.Features {
			all = append(all, model.LakeRecord{
				NVERef:     strconv.FormatInt(f.Attributes.VatnLnr, 10),
				Name:       f.Attributes.Navn,
				Ele:        f.Attributes.Hoyde,
				AreaKM2:    f.Attributes.ArealKm2,
				MagazineID: f.Attributes.MagasinNr,
			})
		}
		if !page.ExceededTransferLimit {
			break
		}
		offset += pageSize
	}
	return all, nil
}

// --- Elevation (retried) --------------------------------------------------

type elevationResponse struct {
	Punkter []struct {
		Z float64 `json:"z"`
	} `json:"punkter"`
}

// ElevationAt implements elevation.Source, sampling a single point with
// exponential backoff: after a failed first request it retries up to 5
// times, waiting 1, 2, 4, 8 and 16 seconds before the retries.
func (c *Client) ElevationAt(ctx context.Context, n model.Node) (float64, error) {
	rawURL := fmt.Sprintf("%s/hoydedata/v1/punkt?nord=%f&ost=%f&geojson=false&koordsys=4258",
		c.cfg.ElevationBaseURL, n.Lat, n.Lon)

	backoff := c.retry.InitialBackoff
	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			c.log.Warn("elevation: retrying", "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * c.retry.BackoffMultiplier)
			if backoff > c.retry.MaxBackoff {
				backoff = c.retry.MaxBackoff
			}
		}

		resp, err := c.do(ctx, "elevation", rawURL)
		if err != nil {
			lastErr = err
			continue
		}
		var result elevationResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if decodeErr != nil {
			lastErr = &osmerr.ErrTransport{Service: "elevation", URL: rawURL, Cause: decodeErr}
			continue
		}
		if len(result.Punkter) == 0 {
			lastErr = &osmerr.ErrTransport{Service: "elevation", URL: rawURL, Cause: fmt.Errorf("empty punkter array")}
			continue
		}
		return result.Punkter[0].Z, nil
	}
	return 0, lastErr
}
