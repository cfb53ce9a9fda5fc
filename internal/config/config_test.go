package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSecretsSelectsKeyForProvider(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	s := LoadSecrets(ProviderOpenAI)
	assert.Equal(t, "openai-key", s.LLMAPIKey)

	s = LoadSecrets(ProviderAnthropic)
	assert.Equal(t, "anthropic-key", s.LLMAPIKey)
}

func TestLoadSecretsNeverSubstitutesOtherProviderKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")
	t.Setenv("OPENAI_API_KEY", "")

	s := LoadSecrets(ProviderOpenAI)
	assert.Empty(t, s.LLMAPIKey)
}

func TestValidateFailsWhenProviderKeyMissing(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := Default()
	cfg.Analysis.LLMProvider = ProviderOpenAI

	err := cfg.Validate(LoadSecrets(cfg.Analysis.LLMProvider))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing API key")
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.Analysis.LLMProvider = "mistral"

	err := cfg.Validate(&Secrets{LLMAPIKey: "key"})
	require.Error(t, err)
}
