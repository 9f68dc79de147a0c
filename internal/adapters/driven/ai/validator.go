package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// probeText is embedded once during validation to check the vector width.
const probeText = "$NVDA beats on revenue"

// ConfigValidator checks that an embedding configuration reaches its backend
// and that the backend returns vectors of the configured width. A width
// mismatch would otherwise surface later as a collection mismatch.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator returns a validator using the default ping timeout.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: pingTimeout}
}

// ValidateEmbedding pings the provider and embeds a probe text.
func (v *ConfigValidator) ValidateEmbedding(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	vec, err := svc.Embed(ctx, probeText)
	if err != nil {
		return fmt.Errorf("%w: probe embedding: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if len(vec) != svc.Dimensions() {
		return fmt.Errorf("%w: model %s returned %d dimensions, configured for %d",
			domain.ErrInvalidInput, svc.ModelName(), len(vec), svc.Dimensions())
	}
	return nil
}
