package embedding

import "context"

// Embedder maps text to fixed-dimension vectors. EmbedBatch preserves input
// order and makes no atomicity promise: a failure mid-batch leaves earlier
// items embedded. Throttled reports whether the provider enforces a request
// rate limit; ingestion serialises and throttles when it does.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Throttled() bool
}
