package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/rfp-shredder/pkg/config"
)

// NewClientFromConfig builds the client selected by cfg.Provider.
// It returns (nil, nil) when the LLM is disabled so callers classify locally.
func NewClientFromConfig(cfg config.LLMConfig, logger *zap.Logger) (LLMClient, error) {
	if !cfg.Enabled {
		logger.Info("LLM disabled; requirements will be classified by keyword rules")
		return nil, nil
	}

	clientCfg := &Config{
		Endpoint: config.ResolveURLForDocker(cfg.BaseURL),
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
	}

	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		client, err := NewClient(clientCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		return client, nil
	case config.ProviderAnthropic:
		if cfg.BaseURL == config.DefaultLLMBaseURL {
			clientCfg.Endpoint = ""
		}
		client, err := NewAnthropicClient(clientCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create anthropic client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
