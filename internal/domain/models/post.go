package models

import "time"

// FacetType distinguishes rich text annotations within a post.
type FacetType string

const (
	FacetMention FacetType = "mention"
	FacetLink    FacetType = "link"
)

// Facet anchors a mention or link to a byte range of the post text.
// Value holds the DID for mentions and the URI for links.
type Facet struct {
	Type      FacetType
	ByteStart int
	ByteEnd   int
	Value     string
}

// BlobRef references a binary uploaded to the publishing network.
type BlobRef struct {
	Link     string
	MimeType string
	Size     int64
}

// LinkEmbed is an external page preview attached to a post.
type LinkEmbed struct {
	URI         string
	Title       string
	Description string
	Thumb       *BlobRef
}

// Post is one outbound message, ready for the publisher.
type Post struct {
	Text      string
	Facets    []Facet
	Embed     *LinkEmbed
	CreatedAt time.Time
}

// PagePreview is the scraped OpenGraph metadata for a page.
type PagePreview struct {
	Title       string
	Description string
	ImageURL    string
}
