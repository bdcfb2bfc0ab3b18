package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("USE_MOCK_LLM", "true")

	cfg, err := Load()
	req.NoError(err)
	req.Equal(8080, cfg.Port)
	req.Equal("transcripts.db", cfg.DBPath)
	req.Equal("uploads", cfg.UploadDir)
	req.Equal("gemini-2.5-flash", cfg.GeminiModel)
	req.Equal(3, cfg.BatchConcurrency)
	req.True(cfg.UseMockLLM)
}

func TestLoad_Overrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("PORT", "9000")
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("BATCH_CONCURRENCY", "5")

	cfg, err := Load()
	req.NoError(err)
	req.Equal(9000, cfg.Port)
	req.Equal(5, cfg.BatchConcurrency)
	req.False(cfg.UseMockLLM)
}

func TestLoad_RequiresKeyOrMock(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("USE_MOCK_LLM", "false")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestLoad_RejectsZeroConcurrency(t *testing.T) {
	t.Setenv("USE_MOCK_LLM", "true")
	t.Setenv("BATCH_CONCURRENCY", "0")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "BATCH_CONCURRENCY")
}
