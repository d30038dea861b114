// Package artwork defines the records served by the artworks collection
// endpoint and the page and selection containers built from them.
package artwork

import "slices"

// Artwork is a single record of the artworks collection.
// ID is unique across the collection and is the key for selection membership.
type Artwork struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	PlaceOfOrigin string `json:"place_of_origin"`
	ArtistDisplay string `json:"artist_display"`
	Inscriptions  string `json:"inscriptions"`
	DateStart     int    `json:"date_start"`
	DateEnd       int    `json:"date_end"`
}

// Fields lists the upstream field names that make up an Artwork.
var Fields = []string{
	"id",
	"title",
	"place_of_origin",
	"artist_display",
	"inscriptions",
	"date_start",
	"date_end",
}

// Page is one fetched slice of the collection.
type Page struct {
	// Items in the order returned by the source.
	Items []Artwork `json:"items"`

	// Total is the record count of the whole collection at fetch time.
	Total int `json:"total"`
}

// Empty reports whether the page carries no items.
func (p Page) Empty() bool {
	return len(p.Items) == 0
}

// Selection is an ordered list of chosen artworks.
// Duplicate IDs are not rejected; see Merge and MergeUnique.
type Selection []Artwork

// IDs returns the identifiers of the selection in order.
func (s Selection) IDs() []int64 {
	ids := make([]int64, len(s))
	for i, a := range s {
		ids[i] = a.ID
	}
	return ids
}

// Contains reports whether an artwork with the given ID is selected.
func (s Selection) Contains(id int64) bool {
	return slices.ContainsFunc(s, func(a Artwork) bool { return a.ID == id })
}

// Clone returns a copy that shares no backing array with s.
// A nil selection clones to an empty, non-nil one.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	copy(out, s)
	return out
}

// Without returns a copy of s with the given IDs removed.
func (s Selection) Without(ids ...int64) Selection {
	out := make(Selection, 0, len(s))
	for _, a := range s {
		if !slices.Contains(ids, a.ID) {
			out = append(out, a)
		}
	}
	return out
}

// Merge appends items to a copy of s without checking for duplicates.
func (s Selection) Merge(items ...Artwork) Selection {
	out := make(Selection, 0, len(s)+len(items))
	out = append(out, s...)
	return append(out, items...)
}

// MergeUnique appends the items whose ID is not yet in s (or earlier in items).
func (s Selection) MergeUnique(items ...Artwork) Selection {
	seen := make(map[int64]struct{}, len(s)+len(items))
	for _, a := range s {
		seen[a.ID] = struct{}{}
	}
	out := s.Clone()
	for _, a := range items {
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out
}
