package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentType distinguishes the statute summary document from article documents
type DocumentType string

const (
	DocumentTypeLawBasic   DocumentType = "law_basic"
	DocumentTypeLawArticle DocumentType = "law_article"
)

// ChunkMetadata is the citation metadata carried by a document and every chunk cut from it
type ChunkMetadata struct {
	Type          DocumentType `json:"type"`
	LawID         string       `json:"law_id"`
	LawName       string       `json:"law_name"`
	ArticleTitle  string       `json:"article_title,omitempty"`
	ArticleNumber string       `json:"article_number,omitempty"`
	Jo            string       `json:"jo,omitempty"`
	Hang          string       `json:"hang,omitempty"`
	Ho            string       `json:"ho,omitempty"`
}

// Reference returns the citation triple stored in the metadata
func (m ChunkMetadata) Reference() ArticleReference {
	return ArticleReference{Jo: m.Jo, Hang: m.Hang, Ho: m.Ho}
}

// LawDocument is a built document before chunking
type LawDocument struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// LawChunk represents a chunk of statute text stored in the vector index
type LawChunk struct {
	ID         uuid.UUID     `json:"id"`
	Text       string        `json:"text"`
	ChunkIndex int           `json:"chunk_index"`
	Metadata   ChunkMetadata `json:"metadata"`
	Embedding  []float32     `json:"-"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ScoredLawChunk is a search hit; smaller distance means more similar
type ScoredLawChunk struct {
	Chunk    LawChunk `json:"chunk"`
	Distance float64  `json:"distance"`
}
