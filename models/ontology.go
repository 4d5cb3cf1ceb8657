package models

import (
	"time"

	"github.com/google/uuid"
)

// Ontology is a marketplace listing: a pointer to a published ontology
// document plus the metadata shown in search results.
type Ontology struct {
	UUID              uuid.UUID `json:"uuid"`
	Name              string    `json:"name"`
	SourceURL         string    `json:"source_url"`
	ImageURL          *string   `json:"image_url,omitempty"`
	Description       *string   `json:"description,omitempty"`
	NodeCount         *int64    `json:"node_count,omitempty"`
	RelationshipCount *int64    `json:"relationship_count,omitempty"`
	Score             *float64  `json:"score,omitempty"`
	IsPublic          bool      `json:"is_public"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewOntology is the payload for creating a listing. UUID and creation time
// are generated server-side.
type NewOntology struct {
	Name              string   `json:"name" validate:"required"`
	SourceURL         string   `json:"source_url" validate:"required,url"`
	ImageURL          *string  `json:"image_url,omitempty" validate:"omitempty,url"`
	Description       *string  `json:"description,omitempty"`
	NodeCount         *int64   `json:"node_count,omitempty" validate:"omitempty,gte=0"`
	RelationshipCount *int64   `json:"relationship_count,omitempty" validate:"omitempty,gte=0"`
	Score             *float64 `json:"score,omitempty"`
	IsPublic          bool     `json:"is_public"`
}

// Ontology converts the payload into a full listing with generated fields.
func (n *NewOntology) Ontology(now time.Time) *Ontology {
	return &Ontology{
		UUID:              uuid.New(),
		Name:              n.Name,
		SourceURL:         n.SourceURL,
		ImageURL:          n.ImageURL,
		Description:       n.Description,
		NodeCount:         n.NodeCount,
		RelationshipCount: n.RelationshipCount,
		Score:             n.Score,
		IsPublic:          n.IsPublic,
		CreatedAt:         now.UTC(),
	}
}

// UpdateOntology is a partial update; nil fields are left untouched.
// A non-nil Tags slice replaces the listing's tag set wholesale.
type UpdateOntology struct {
	Name              *string  `json:"name,omitempty"`
	SourceURL         *string  `json:"source_url,omitempty" validate:"omitempty,url"`
	ImageURL          *string  `json:"image_url,omitempty" validate:"omitempty,url"`
	Description       *string  `json:"description,omitempty"`
	NodeCount         *int64   `json:"node_count,omitempty" validate:"omitempty,gte=0"`
	RelationshipCount *int64   `json:"relationship_count,omitempty" validate:"omitempty,gte=0"`
	Score             *float64 `json:"score,omitempty"`
	IsPublic          *bool    `json:"is_public,omitempty"`
	Tags              []string `json:"tags,omitempty"`
}

// SearchPage is one page of search results plus pagination bookkeeping.
type SearchPage struct {
	Results []*Ontology `json:"results"`
	Count   int         `json:"count"`
	Total   int64       `json:"total"`
	Offset  int         `json:"offset"`
	Limit   int         `json:"limit"`
}
