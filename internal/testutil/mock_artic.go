// Package testutil provides testing utilities for the artworks client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/artic-browser/pkg/artwork"
)

// artworksPath mirrors client.ArtworksPath; importing client here would
// create a cycle for the client package's own tests.
const artworksPath = "/api/v1/artworks"

// PageRequest records one collection request as the server saw it.
type PageRequest struct {
	Page   int
	Limit  int
	Fields string
}

// MockArtic is a configurable mock of the artworks collection API.
type MockArtic struct {
	server *httptest.Server
	mu     sync.RWMutex

	artworks  []artwork.Artwork
	failPages map[int]int
	badPages  map[int]bool
	delay     time.Duration

	// Tracking
	RequestCount      int
	Requests          []PageRequest
	LastRequestHeader http.Header
}

// NewMockArtic creates a mock serving a collection of n generated artworks.
func NewMockArtic(n int) *MockArtic {
	return NewMockArticWith(GenerateArtworks(1, n))
}

// NewMockArticWith creates a mock serving the given collection.
func NewMockArticWith(items []artwork.Artwork) *MockArtic {
	mock := &MockArtic{
		artworks:  items,
		failPages: make(map[int]int),
		badPages:  make(map[int]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(artworksPath, mock.collectionHandler)
	mock.server = httptest.NewServer(mux)

	return mock
}

// GenerateArtworks returns n artworks with consecutive IDs starting at firstID.
func GenerateArtworks(firstID int64, n int) []artwork.Artwork {
	items := make([]artwork.Artwork, n)
	for i := range items {
		id := firstID + int64(i)
		items[i] = artwork.Artwork{
			ID:            id,
			Title:         fmt.Sprintf("Artwork %d", id),
			PlaceOfOrigin: "Chicago",
			ArtistDisplay: fmt.Sprintf("Artist %d", id%17),
			Inscriptions:  "",
			DateStart:     1800 + int(id%200),
			DateEnd:       1805 + int(id%200),
		}
	}
	return items
}

// URL returns the mock server URL.
func (m *MockArtic) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockArtic) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockArtic) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Requests = nil
	m.LastRequestHeader = nil
}

// SetArtworks replaces the served collection.
func (m *MockArtic) SetArtworks(items []artwork.Artwork) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artworks = items
}

// FailPage makes requests for a 1-based page number answer with status.
func (m *MockArtic) FailPage(page, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPages[page] = status
}

// MalformPage makes requests for a 1-based page number answer with a body
// that is not a collection envelope.
func (m *MockArtic) MalformPage(page int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.badPages[page] = true
}

// SetDelay delays every response.
func (m *MockArtic) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockArtic) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetRequests returns a copy of the recorded requests.
func (m *MockArtic) GetRequests() []PageRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PageRequest, len(m.Requests))
	copy(out, m.Requests)
	return out
}

// RequestedPages returns the 1-based page numbers requested, in order.
func (m *MockArtic) RequestedPages() []int {
	reqs := m.GetRequests()
	pages := make([]int, len(reqs))
	for i, r := range reqs {
		pages[i] = r.Page
	}
	return pages
}

func (m *MockArtic) collectionHandler(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 12)

	m.mu.Lock()
	m.RequestCount++
	m.Requests = append(m.Requests, PageRequest{Page: page, Limit: limit, Fields: r.URL.Query().Get("fields")})
	m.LastRequestHeader = r.Header.Clone()
	status, failing := m.failPages[page]
	malformed := m.badPages[page]
	delay := m.delay
	items := m.artworks
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")

	if failing {
		w.WriteHeader(status)
		w.Write([]byte(`{"status": ` + strconv.Itoa(status) + `, "error": "mock failure"}`))
		return
	}

	if malformed {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`<html>maintenance</html>`))
		return
	}

	if page < 1 || limit < 1 {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status": 400, "error": "Invalid number"}`))
		return
	}

	offset := (page - 1) * limit
	data := []artwork.Artwork{}
	if offset < len(items) {
		end := min(offset+limit, len(items))
		data = items[offset:end]
	}

	totalPages := (len(items) + limit - 1) / limit
	body := map[string]any{
		"pagination": map[string]any{
			"total":        len(items),
			"limit":        limit,
			"offset":       offset,
			"total_pages":  totalPages,
			"current_page": page,
		},
		"data": data,
		"info": map[string]any{
			"license_text": "mock",
		},
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}
