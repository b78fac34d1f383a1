package docmodel

import "time"

type DocType string

var (
	PDF  DocType = "PDF"
	DOCX DocType = "DOCX"
	ERR  DocType = "ERROR"
)

// Document describes one uploaded file. The raw bytes live in a temp file
// that is discarded as soon as extraction finishes.
type Document struct {
	Id          string    `json:"source_doc_id"`
	Name        string    `json:"doc_name"`
	SizeBytes   int64     `json:"size_bytes"`
	IngestedAt  time.Time `json:"ingested_at"`
	ContentType DocType   `json:"content_type"`
}

// Page is one unit of extracted text, ordered by Number.
type Page struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

// Chunk is an immutable text window cut from the document. Seq is the
// position within the document; PageNum is the page holding the chunk's
// first character.
type Chunk struct {
	Doc     Document `json:"doc"`
	ChunkId string   `json:"chunk_id"`
	Content string   `json:"content"`
	Seq     int      `json:"chunk_seq"`
	PageNum int      `json:"page_num"`
}
