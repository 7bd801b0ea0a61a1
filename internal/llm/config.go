// Package llm provides the text-generation client abstraction used by the
// analysis pipeline stages.
package llm

import "time"

// ModelTier represents the complexity/capability level of a model.
type ModelTier string

const (
	// TierLite is for simple tasks: resume section classification.
	TierLite ModelTier = "lite"
	// TierStandard is for moderate reasoning: scoring and justification.
	TierStandard ModelTier = "standard"
	// TierAdvanced is reserved for complex reasoning tasks.
	TierAdvanced ModelTier = "advanced"
)

// DefaultCallTimeout is the hard per-call timeout applied to every
// text-generation request. A timeout is a transient stage failure subject to
// the retry policy.
const DefaultCallTimeout = 45 * time.Second

// Config holds the model configuration for the text-generation client.
type Config struct {
	Models      map[ModelTier]string
	CallTimeout time.Duration
}

// DefaultConfig returns the default Gemini model configuration.
func DefaultConfig() *Config {
	return &Config{
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		CallTimeout: DefaultCallTimeout,
	}
}

// GetModel returns the model name for a given tier, falling back through
// standard and lite when the tier is not configured.
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}
