package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenCounterKnownModel(t *testing.T) {
	counter, err := NewTokenCounter("gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", counter.Model())
}

func TestNewTokenCounterUnknownModelFallsBack(t *testing.T) {
	counter, err := NewTokenCounter("gemini-2.0-flash")
	require.NoError(t, err)
	assert.Greater(t, counter.Count("hello world"), 0)
}

func TestCountGrowsWithText(t *testing.T) {
	counter, err := NewTokenCounter("gpt-4o")
	require.NoError(t, err)

	assert.Equal(t, 0, counter.Count(""))

	short := counter.Count("hello")
	long := counter.Count("hello hello hello hello hello")
	assert.Greater(t, long, short)
}

func TestCountMessagesIncludesOverhead(t *testing.T) {
	counter, err := NewTokenCounter("gpt-4o")
	require.NoError(t, err)

	messages := []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	}

	perMessage := counter.Count("be brief") + counter.Count("hi") +
		counter.Count("system") + counter.Count("user")
	assert.Equal(t, perMessage+2*3+3, counter.CountMessages(messages))
}
