package ingest

import (
	"context"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/itdjship/chat-bot-app/internal/config"
	"github.com/itdjship/chat-bot-app/internal/domain/chatmodel"
	"github.com/itdjship/chat-bot-app/internal/domain/docmodel"
	"github.com/itdjship/chat-bot-app/internal/faults"
	"github.com/itdjship/chat-bot-app/internal/metrics"
	"github.com/itdjship/chat-bot-app/internal/rag/embedding"
	"github.com/itdjship/chat-bot-app/internal/rag/vectorindex"
	"github.com/itdjship/chat-bot-app/pkg/logger_i"
)

// Pipeline drives extract -> chunk -> embed -> store for one document.
//
// Two submission modes, picked by the embedder:
//   - throttled providers: one chunk at a time, each add gated by the rate
//     limiter; a rate-limited chunk is retried rather than aborting the run.
//   - unthrottled providers: embed everything in one batch call and store
//     in vector-store sized batches.
type Pipeline struct {
	chunker    *Chunker
	embedder   embedding.Embedder
	limiter    *rate.Limiter
	retryDelay time.Duration
	logger     *logger_i.Logger
}

func NewPipeline(chunker *Chunker, embedder embedding.Embedder) *Pipeline {
	p := &Pipeline{
		chunker:    chunker,
		embedder:   embedder,
		retryDelay: config.IngestRetryDelay,
		logger:     logger_i.NewLogger("Ingest Pipeline"),
	}
	if embedder.Throttled() {
		p.limiter = rate.NewLimiter(rate.Every(config.IngestThrottleInterval), 1)
	}
	return p
}

// Ingest processes the file at srcPath and appends its chunks to the
// session's index. The temp file is removed before returning, success or
// failure. On success the upload summary record is returned; on failure the
// index holds either none of the document's entries (batch mode) or a
// prefix of them (throttled mode, storage interleaved with embedding).
func (p *Pipeline) Ingest(ctx context.Context, sessionId string, doc docmodel.Document, srcPath string, index vectorindex.Index) (chatmodel.UploadRecord, error) {
	defer func() {
		if err := os.Remove(srcPath); err != nil && !os.IsNotExist(err) {
			p.logger.Error("Error removing temp file", "path", srcPath, "error", err)
		}
	}()

	doc.ContentType = getDocType(srcPath)
	if doc.ContentType == docmodel.ERR {
		return chatmodel.UploadRecord{}, faults.Errorf(faults.Extraction, "unsupported file type: %s", doc.Name)
	}

	pages, err := extractText(srcPath, doc.ContentType)
	if err != nil {
		return chatmodel.UploadRecord{}, err
	}

	chunks := p.chunker.Split(doc, pages)
	if len(chunks) == 0 {
		return chatmodel.UploadRecord{}, faults.Errorf(faults.Extraction, "document produced no chunks")
	}
	p.logger.Debug("Prepared chunks", "document", doc.Name, "pages", len(pages), "chunks", len(chunks))

	if p.embedder.Throttled() {
		err = p.ingestSerialized(ctx, sessionId, chunks, index)
	} else {
		err = p.ingestBatched(ctx, sessionId, chunks, index)
	}
	if err != nil {
		return chatmodel.UploadRecord{}, err
	}

	metrics.AddChunksIngested(len(chunks))
	return chatmodel.UploadRecord{
		Filename:   doc.Name,
		SizeBytes:  doc.SizeBytes,
		ChunkCount: len(chunks),
		Timestamp:  doc.IngestedAt,
	}, nil
}

func (p *Pipeline) ingestSerialized(ctx context.Context, sessionId string, chunks []docmodel.Chunk, index vectorindex.Index) error {
	for _, chunk := range chunks {
		if err := p.limiter.Wait(ctx); err != nil {
			return faults.New(faults.Timeout, err)
		}

		vector, err := p.embedWithRetry(ctx, chunk.Content)
		if err != nil {
			return err
		}
		if err := index.Add(ctx, []vectorindex.Entry{toEntry(sessionId, chunk, vector)}); err != nil {
			return err
		}
	}
	return nil
}

// a 429 on one chunk waits and retries that chunk instead of failing the run
func (p *Pipeline) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	for attempt := 0; ; attempt++ {
		vector, err := p.embedder.Embed(ctx, text)
		if err == nil {
			return vector, nil
		}
		if !faults.Is(err, faults.RateLimit) || attempt >= config.IngestMaxRetries {
			return nil, err
		}

		p.logger.Warn("Rate limit hit, retrying chunk", "attempt", attempt+1)
		select {
		case <-time.After(p.retryDelay):
		case <-ctx.Done():
			return nil, faults.New(faults.Timeout, ctx.Err())
		}
	}
}

func (p *Pipeline) ingestBatched(ctx context.Context, sessionId string, chunks []docmodel.Chunk, index vectorindex.Index) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return faults.Errorf(faults.Embedding, "got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	for start := 0; start < len(chunks); start += config.IngestStoreBatchSize {
		end := start + config.IngestStoreBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		entries := make([]vectorindex.Entry, 0, end-start)
		for i := start; i < end; i++ {
			entries = append(entries, toEntry(sessionId, chunks[i], vectors[i]))
		}
		if err := index.Add(ctx, entries); err != nil {
			return err
		}
	}
	return nil
}

func toEntry(sessionId string, chunk docmodel.Chunk, vector []float32) vectorindex.Entry {
	return vectorindex.Entry{
		Id:      chunk.ChunkId,
		Vector:  vector,
		Content: chunk.Content,
		Meta: vectorindex.Metadata{
			DocName:   chunk.Doc.Name,
			ChunkSeq:  chunk.Seq,
			PageNum:   chunk.PageNum,
			SessionId: sessionId,
			Ingested:  chunk.Doc.IngestedAt.Unix(),
		},
	}
}
