// Package embedding turns text into fixed-length vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/philippgille/chromem-go"
)

var (
	ErrInvalidModel = errors.New("invalid embedding model")
	ErrEmptyText    = errors.New("cannot embed empty text")
)

const (
	ProviderOllama  = "ollama"
	ProviderOpenAI  = "openai"
	ProviderLocalAI = "localai"
	ProviderMistral = "mistral"
	ProviderHash    = "hash"
)

const (
	DefaultModel       = "ollama:nomic-embed-text"
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 4
)

// Provider converts an ordered batch of texts into vectors of the same order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

type Config struct {
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
}

// ParseModel splits a model identifier of the form "<provider>:<model>".
func ParseModel(id string) (provider string, model string, err error) {
	provider, model, ok := strings.Cut(strings.TrimSpace(id), ":")
	if !ok || provider == "" || model == "" {
		return "", "", fmt.Errorf("%w: %q (want <provider>:<model>)", ErrInvalidModel, id)
	}

	provider = strings.ToLower(provider)

	switch provider {
	case ProviderOllama, ProviderOpenAI, ProviderLocalAI:

	case ProviderMistral:
		if model != "mistral-embed" {
			return "", "", fmt.Errorf("%w: mistral only serves mistral-embed", ErrInvalidModel)
		}

	case ProviderHash:
		dim, err := strconv.Atoi(model)
		if err != nil || dim <= 0 {
			return "", "", fmt.Errorf("%w: hash model must be a positive dimension", ErrInvalidModel)
		}

	default:
		return "", "", fmt.Errorf("%w: unknown provider %q", ErrInvalidModel, provider)
	}

	return provider, model, nil
}

// NewProvider builds the provider named by cfg.Model and bounds its
// concurrency with Limit.
func NewProvider(cfg Config) (Provider, error) {
	provider, model, err := ParseModel(cfg.Model)
	if err != nil {
		return nil, err
	}

	var p Provider

	switch provider {
	case ProviderOllama:
		p = FuncProvider(cfg.Model, chromem.NewEmbeddingFuncOllama(model, cfg.BaseURL))

	case ProviderOpenAI:
		if cfg.BaseURL != "" {
			p = FuncProvider(cfg.Model, chromem.NewEmbeddingFuncOpenAICompat(cfg.BaseURL, cfg.APIKey, model, nil))
		} else {
			p = FuncProvider(cfg.Model, chromem.NewEmbeddingFuncOpenAI(cfg.APIKey, chromem.EmbeddingModelOpenAI(model)))
		}

	case ProviderLocalAI:
		p = FuncProvider(cfg.Model, chromem.NewEmbeddingFuncLocalAI(model))

	case ProviderMistral:
		p = FuncProvider(cfg.Model, chromem.NewEmbeddingFuncMistral(cfg.APIKey))

	case ProviderHash:
		dim, _ := strconv.Atoi(model)
		p = NewHashProvider(dim)
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return Limit(p, concurrency), nil
}
