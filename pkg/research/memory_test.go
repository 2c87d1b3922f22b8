package research

import (
	"context"
	"strings"
	"testing"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/scout/pkg/config"
)

// topicEmbedding maps texts onto fixed unit vectors by keyword so similarity
// ranking is deterministic without a live embeddings endpoint.
var topicEmbedding chromem.EmbeddingFunc = func(ctx context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "quantum"):
		return []float32{1, 0, 0}, nil
	case strings.Contains(lower, "cooking"):
		return []float32{0, 1, 0}, nil
	default:
		return []float32{0, 0, 1}, nil
	}
}

func testMemory(t *testing.T) *Memory {
	t.Helper()

	mem, err := newMemoryWithEmbedding(topicEmbedding)
	require.NoError(t, err)
	return mem
}

func TestNewMemory_RequiresPath(t *testing.T) {
	_, err := NewMemory(&config.MemoryConfig{}, &config.LLMConfig{BaseURL: "https://api.test/v1"})
	assert.Error(t, err)
}

func TestMemory_SaveAndQuery(t *testing.T) {
	mem := testMemory(t)
	ctx := context.Background()

	id, err := mem.SaveFinding(ctx, "Quantum error correction needs ~1000 physical qubits per logical qubit.", "https://example.com/qec")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = mem.SaveFinding(ctx, "Slow cooking brisket takes around 10 hours at 110C.", "https://example.com/bbq")
	require.NoError(t, err)

	findings, err := mem.Query(ctx, "quantum computing progress", 2)
	require.NoError(t, err)
	require.Len(t, findings, 2)

	assert.Contains(t, findings[0].Content, "Quantum error correction")
	assert.Equal(t, "https://example.com/qec", findings[0].SourceURL)
	assert.NotEmpty(t, findings[0].SavedAt)
	assert.Greater(t, findings[0].Score, findings[1].Score)
}

func TestMemory_QueryEmptyStore(t *testing.T) {
	mem := testMemory(t)

	findings, err := mem.Query(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestMemory_QueryClampsTopK(t *testing.T) {
	mem := testMemory(t)
	ctx := context.Background()

	_, err := mem.SaveFinding(ctx, "only one finding about quantum hardware", "")
	require.NoError(t, err)

	findings, err := mem.Query(ctx, "quantum", 10)
	require.NoError(t, err)
	assert.Len(t, findings, 1)
}

func TestMemory_SaveValidation(t *testing.T) {
	mem := testMemory(t)

	_, err := mem.SaveFinding(context.Background(), "", "https://example.com")
	assert.Error(t, err)

	_, err = mem.Query(context.Background(), "", 3)
	assert.Error(t, err)
}
