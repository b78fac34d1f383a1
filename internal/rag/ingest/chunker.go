package ingest

import (
	"sort"

	"github.com/itdjship/chat-bot-app/internal/adapter/utils"
	"github.com/itdjship/chat-bot-app/internal/domain/docmodel"
	"github.com/itdjship/chat-bot-app/internal/faults"
)

// Chunker cuts the concatenated page text into fixed-size windows where
// each window shares exactly `overlap` trailing/leading characters with
// its neighbour. Windows are measured in runes, so a multibyte character
// is never split across two chunks. Stitching the windows back together
// with the overlap removed reproduces the input exactly.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, faults.Errorf(faults.Configuration, "chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, faults.Errorf(faults.Configuration,
			"chunk overlap must satisfy 0 <= overlap < size, got overlap=%d size=%d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split windows the document text. A document shorter than one window
// yields exactly one chunk. Pathologically small sizes are accepted; they
// just produce many tiny chunks.
func (c *Chunker) Split(doc docmodel.Document, pages []docmodel.Page) []docmodel.Chunk {
	var text []rune
	pageStarts := make([]int, 0, len(pages))
	pageNums := make([]int, 0, len(pages))
	for _, p := range pages {
		pageStarts = append(pageStarts, len(text))
		pageNums = append(pageNums, p.Number)
		text = append(text, []rune(p.Content)...)
	}
	if len(text) == 0 {
		return nil
	}

	stride := c.size - c.overlap
	var chunks []docmodel.Chunk
	for start, seq := 0, 0; ; start, seq = start+stride, seq+1 {
		end := start + c.size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, docmodel.Chunk{
			Doc:     doc,
			ChunkId: utils.GetNewUUID(),
			Content: string(text[start:end]),
			Seq:     seq,
			PageNum: pageAt(pageStarts, pageNums, start),
		})
		if end == len(text) {
			break
		}
	}
	return chunks
}

// pageAt finds the page containing rune offset off
func pageAt(starts, nums []int, off int) int {
	i := sort.Search(len(starts), func(i int) bool { return starts[i] > off }) - 1
	if i < 0 {
		i = 0
	}
	return nums[i]
}
