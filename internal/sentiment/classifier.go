// Package sentiment adapts external sentiment-analysis providers to the
// engine's domain.Classification shape (spec.md §4.5, §9 "LLM adapter").
package sentiment

import (
	"context"
	"fmt"
	"time"

	"github.com/gpwsignals/engine/internal/domain"
	"github.com/gpwsignals/engine/internal/errkind"
)

const classifyTimeout = 20 * time.Second

// Classifier assigns a domain.Classification to a news article.
type Classifier interface {
	Classify(ctx context.Context, article domain.NewsArticle) (domain.Classification, error)
}

// StubClassifier always returns the well-defined neutral/minimal
// baseline spec.md §9 requires as a valid, zero-dependency
// implementation: "a stub returning neutral/minimal must be a valid
// implementation that yields well-defined zero-news behaviour."
type StubClassifier struct{}

func (StubClassifier) Classify(ctx context.Context, article domain.NewsArticle) (domain.Classification, error) {
	per := make([]domain.StockSentiment, 0, len(article.MentionedStocks))
	for _, sym := range article.MentionedStocks {
		per = append(per, domain.StockSentiment{Symbol: sym, SentimentScore: 0, Confidence: 0, Relevance: 0})
	}
	return domain.Classification{
		OverallSentiment: domain.SentimentNeutral,
		SentimentScore:   0,
		Confidence:       0,
		Impact:           domain.ImpactMinimal,
		PerStock:         per,
		ClassifiedAt:     time.Now().UTC(),
	}, nil
}

// Provider is one weighted backend a WeightedClassifier can fan calls
// out to (e.g. "cloud", "local").
type Provider struct {
	Name   string
	Weight float64
	Client Classifier
}

// WeightedClassifier tries providers by descending weight, falling
// through to the next on a transient failure, and classifying a
// provider error as transient or permanent via internal/errkind so
// callers can decide whether to retry the article later.
type WeightedClassifier struct {
	providers []Provider
}

// NewWeightedClassifier builds a WeightedClassifier over providers,
// sorted by descending weight.
func NewWeightedClassifier(providers []Provider) *WeightedClassifier {
	sorted := make([]Provider, len(providers))
	copy(sorted, providers)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Weight > sorted[j-1].Weight; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return &WeightedClassifier{providers: sorted}
}

func (w *WeightedClassifier) Classify(ctx context.Context, article domain.NewsArticle) (domain.Classification, error) {
	if len(w.providers) == 0 {
		return StubClassifier{}.Classify(ctx, article)
	}

	var lastErr error
	for _, p := range w.providers {
		callCtx, cancel := context.WithTimeout(ctx, classifyTimeout)
		result, err := p.Client.Classify(callCtx, article)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = fmt.Errorf("provider %s: %w", p.Name, err)
		if errkind.KindOf(err) != errkind.Transient {
			return domain.Classification{}, lastErr
		}
	}
	return domain.Classification{}, errkind.AsTransient(lastErr)
}
