package services

import (
	"strings"
	"time"

	"github.com/prskeet/prskeet/internal/domain/models"
)

// postBuilder accumulates post text and the byte-range facets anchored to
// it. Offsets are bytes, not runes; the publishing network indexes facets
// into the UTF-8 encoding.
type postBuilder struct {
	text   strings.Builder
	facets []models.Facet
}

func newPostBuilder() *postBuilder {
	return &postBuilder{}
}

func (b *postBuilder) writeText(s string) {
	b.text.WriteString(s)
}

func (b *postBuilder) writeMention(label, did string) {
	start := b.text.Len()
	b.text.WriteString(label)
	b.facets = append(b.facets, models.Facet{
		Type:      models.FacetMention,
		ByteStart: start,
		ByteEnd:   b.text.Len(),
		Value:     did,
	})
}

func (b *postBuilder) writeLink(label, uri string) {
	start := b.text.Len()
	b.text.WriteString(label)
	b.facets = append(b.facets, models.Facet{
		Type:      models.FacetLink,
		ByteStart: start,
		ByteEnd:   b.text.Len(),
		Value:     uri,
	})
}

func (b *postBuilder) build(createdAt time.Time) models.Post {
	return models.Post{
		Text:      b.text.String(),
		Facets:    b.facets,
		CreatedAt: createdAt,
	}
}
