package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/artic-browser/pkg/artwork"
)

// ArtworksPath is the collection endpoint below the base URL.
const ArtworksPath = "/api/v1/artworks"

// collectionEnvelope is the JSON shape returned by collection endpoints.
// Pointers distinguish a missing key from an empty value.
type collectionEnvelope struct {
	Pagination *struct {
		Total int `json:"total"`
	} `json:"pagination"`
	Data *[]artwork.Artwork `json:"data"`
}

// ArtworksEndpoint returns the path and query for a zero-based page index.
// The API numbers pages from 1.
func (c *Client) ArtworksEndpoint(pageIndex, pageSize int) string {
	query := url.Values{}
	query.Set("page", strconv.Itoa(pageIndex+1))
	query.Set("limit", strconv.Itoa(pageSize))

	fields := c.config.Fields
	if len(fields) == 0 {
		fields = artwork.Fields
	}
	query.Set("fields", strings.Join(fields, ","))

	return ArtworksPath + "?" + query.Encode()
}

// FetchPage fetches one page of artworks in a single request.
// pageIndex is zero-based; pageSize must be at least 1.
// An empty Items slice with a nil error means the page lies past the end.
func (c *Client) FetchPage(ctx context.Context, pageIndex, pageSize int) (artwork.Page, error) {
	if pageIndex < 0 || pageSize < 1 {
		return artwork.Page{}, fmt.Errorf("%w: page index %d, page size %d", ErrInvalidPage, pageIndex, pageSize)
	}

	resp, err := c.Get(ctx, c.ArtworksEndpoint(pageIndex, pageSize))
	if err != nil {
		return artwork.Page{}, fmt.Errorf("fetch artworks page %d: %w", pageIndex, err)
	}
	defer resp.Body.Close()

	var env collectionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return artwork.Page{}, c.decodeError(resp.StatusCode, pageIndex, err)
	}
	if env.Data == nil {
		return artwork.Page{}, c.decodeError(resp.StatusCode, pageIndex, fmt.Errorf("missing data"))
	}
	if env.Pagination == nil {
		return artwork.Page{}, c.decodeError(resp.StatusCode, pageIndex, fmt.Errorf("missing pagination"))
	}

	items := *env.Data
	if items == nil {
		items = []artwork.Artwork{}
	}

	c.logger.Debug().
		Int("page", pageIndex).
		Int("page_size", pageSize).
		Int("items", len(items)).
		Int("total", env.Pagination.Total).
		Msg("Fetched artworks page")

	return artwork.Page{Items: items, Total: env.Pagination.Total}, nil
}

func (c *Client) decodeError(status, pageIndex int, cause error) error {
	articErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
	return fmt.Errorf("fetch artworks page %d: %w", pageIndex, &APIError{
		StatusCode: status,
		ErrorClass: ErrorClassDecode,
		Message:    "decode collection envelope",
		Err:        fmt.Errorf("%w: %v", ErrMalformedResponse, cause),
	})
}
