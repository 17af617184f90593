// Package google finds company listings in the Google Places directory.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// DefaultBaseURL is the Places API (New) endpoint.
const DefaultBaseURL = "https://places.googleapis.com/v1"

// Only the fields a Listing carries are requested; Places bills by mask.
const listingMask = "places.displayName,places.formattedAddress,places.websiteUri"

// maxListings caps how many candidates one lookup returns.
const maxListings = 5

// Directory finds business listings by company name.
type Directory interface {
	FindCompany(ctx context.Context, name string) ([]Listing, error)
}

// Listing is one business entry returned for a company name.
type Listing struct {
	Name    string
	Address string
	Website string
}

// StatusError is a non-200 reply from the Places API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("google: places returned %d: %s", e.Code, e.Body)
}

// HTTPStatus lets the retry classifier see the status code.
func (e *StatusError) HTTPStatus() int { return e.Code }

type placesDirectory struct {
	key      string
	endpoint string
	hc       *http.Client
}

// NewDirectory returns a Directory backed by Places text search. An empty
// baseURL uses DefaultBaseURL and a nil hc gets a 10s timeout client.
func NewDirectory(key, baseURL string, hc *http.Client) Directory {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &placesDirectory{
		key:      key,
		endpoint: strings.TrimRight(baseURL, "/") + "/places:searchText",
		hc:       hc,
	}
}

type searchTextBody struct {
	TextQuery string `json:"textQuery"`
	PageSize  int    `json:"pageSize"`
}

type searchTextReply struct {
	Places []struct {
		DisplayName struct {
			Text string `json:"text"`
		} `json:"displayName"`
		FormattedAddress string `json:"formattedAddress"`
		WebsiteURI       string `json:"websiteUri"`
	} `json:"places"`
}

func (d *placesDirectory) FindCompany(ctx context.Context, name string) ([]Listing, error) {
	payload, err := json.Marshal(searchTextBody{TextQuery: name, PageSize: maxListings})
	if err != nil {
		return nil, eris.Wrap(err, "google: encode search")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "google: build search")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", d.key)
	req.Header.Set("X-Goog-FieldMask", listingMask)

	resp, err := d.hc.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "google: search %q", name)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var reply searchTextReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, eris.Wrap(err, "google: decode search reply")
	}
	out := make([]Listing, 0, len(reply.Places))
	for _, p := range reply.Places {
		out = append(out, Listing{
			Name:    p.DisplayName.Text,
			Address: strings.TrimSpace(p.FormattedAddress),
			Website: p.WebsiteURI,
		})
	}
	return out, nil
}
