package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/leadbot/internal/anthropic"
	"github.com/MikeSquared-Agency/leadbot/internal/completion"
	"github.com/MikeSquared-Agency/leadbot/internal/config"
	"github.com/MikeSquared-Agency/leadbot/internal/extractor"
	"github.com/MikeSquared-Agency/leadbot/internal/kb"
	"github.com/MikeSquared-Agency/leadbot/internal/lead"
)

var errNoAPIKey = errors.New("ANTHROPIC_API_KEY is required")

// core is what every surface needs to run a conversation.
type core struct {
	operator  config.Operator
	extractor lead.Extractor
	responder lead.Responder
}

func buildCore(cfg config.Config, logger *slog.Logger) (core, error) {
	op, err := config.LoadOperator(cfg.SettingsFile)
	if err != nil {
		return core{}, err
	}

	if cfg.AnthropicAPIKey == "" {
		return core{}, errNoAPIKey
	}
	llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	comp := completion.New(llm,
		completion.WithMaxTokens(cfg.MaxTokens),
		completion.WithTimeout(cfg.CompletionTimeout),
	)
	logger.Info("anthropic client ready", "model", llm.Model())

	resp, err := buildResponder(cfg, comp, logger)
	if err != nil {
		return core{}, err
	}

	return core{
		operator:  op,
		extractor: extractor.New(comp, op.Prompts.ListenerForm, op.Prompts.Listener, logger),
		responder: resp,
	}, nil
}

// buildResponder picks the reply backend named by LEADBOT_RESPONDER.
func buildResponder(cfg config.Config, comp *completion.Client, logger *slog.Logger) (lead.Responder, error) {
	switch cfg.Responder {
	case "", "completion":
		return completion.Responder{Client: comp}, nil
	case "kb":
		if cfg.KBURL == "" || cfg.KBProjectID == "" {
			return nil, errors.New("KB_URL and KB_PROJECT_ID are required for the kb responder")
		}
		client := kb.NewClient(cfg.KBURL, cfg.KBAPIKey, logger)
		logger.Info("knowledge base responder ready", "project_id", cfg.KBProjectID)
		return kb.Responder{
			Streamer:  client,
			Resolver:  client,
			ProjectID: cfg.KBProjectID,
			Logger:    logger,
		}, nil
	default:
		return nil, fmt.Errorf("unknown responder %q", cfg.Responder)
	}
}
