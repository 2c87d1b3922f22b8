package research

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"github.com/kadirpekel/scout/pkg/config"
)

const findingsCollection = "findings"

// Finding is one saved research note with its source attribution.
type Finding struct {
	ID        string  `json:"id"`
	Content   string  `json:"content"`
	SourceURL string  `json:"source_url,omitempty"`
	SavedAt   string  `json:"saved_at,omitempty"`
	Score     float32 `json:"score,omitempty"`
}

// Memory is a persistent, embedding-indexed store of research findings. It
// outlives single invocations so facts saved during one research session
// can be recalled in later ones.
type Memory struct {
	col *chromem.Collection
}

// NewMemory opens (or creates) the findings collection at cfg.Path.
// Embeddings go through an OpenAI-compatible endpoint; when the memory
// section leaves it unset, the main LLM endpoint is used.
func NewMemory(cfg *config.MemoryConfig, llmCfg *config.LLMConfig) (*Memory, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, fmt.Errorf("memory path is required")
	}

	baseURL := cfg.EmbeddingBaseURL
	apiKey := cfg.EmbeddingAPIKey
	if baseURL == "" && llmCfg != nil {
		baseURL = llmCfg.BaseURL
	}
	if apiKey == "" && llmCfg != nil {
		apiKey = llmCfg.APIKey
	}
	if baseURL == "" {
		return nil, fmt.Errorf("embedding base URL is required")
	}

	model := cfg.EmbeddingModel
	if model == "" {
		model = "text-embedding-3-small"
	}

	db, err := chromem.NewPersistentDB(cfg.Path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open research memory at %s: %w", cfg.Path, err)
	}

	embed := chromem.NewEmbeddingFuncOpenAICompat(baseURL, apiKey, model, nil)

	col, err := db.GetOrCreateCollection(findingsCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to open findings collection: %w", err)
	}

	return &Memory{col: col}, nil
}

// newMemoryWithEmbedding is the test seam: an in-memory store with a caller
// supplied embedding function.
func newMemoryWithEmbedding(embed chromem.EmbeddingFunc) (*Memory, error) {
	col, err := chromem.NewDB().GetOrCreateCollection(findingsCollection, nil, embed)
	if err != nil {
		return nil, err
	}
	return &Memory{col: col}, nil
}

// SaveFinding stores one finding and returns its assigned ID.
func (m *Memory) SaveFinding(ctx context.Context, content, sourceURL string) (string, error) {
	if content == "" {
		return "", fmt.Errorf("finding content cannot be empty")
	}

	id := uuid.NewString()
	doc := chromem.Document{
		ID:      id,
		Content: content,
		Metadata: map[string]string{
			"source_url": sourceURL,
			"saved_at":   time.Now().UTC().Format(time.RFC3339),
		},
	}

	if err := m.col.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return "", fmt.Errorf("failed to save finding: %w", err)
	}

	return id, nil
}

// Query returns the topK most similar findings to q, best first.
func (m *Memory) Query(ctx context.Context, q string, topK int) ([]Finding, error) {
	if q == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if topK <= 0 {
		topK = 5
	}

	count := m.col.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := m.col.Query(ctx, q, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query research memory: %w", err)
	}

	findings := make([]Finding, 0, len(results))
	for _, r := range results {
		findings = append(findings, Finding{
			ID:        r.ID,
			Content:   r.Content,
			SourceURL: r.Metadata["source_url"],
			SavedAt:   r.Metadata["saved_at"],
			Score:     r.Similarity,
		})
	}

	return findings, nil
}
