package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Version is stamped into telemetry resources and printed by the CLI.
var Version = "0.1.0"

var (
	projectSubmitCounter  metric.Int64Counter
	projectReviewCounter  metric.Int64Counter
	commentCounter        metric.Int64Counter
	analyticsCacheCounter metric.Int64Counter
)

// InitProjectMetrics registers the lifecycle counters on the global meter provider.
func InitProjectMetrics() error {
	meter := otel.Meter("innovators-hub.project")

	var err error
	projectSubmitCounter, err = meter.Int64Counter(
		"project.submit.count",
		metric.WithDescription("Number of project submissions"),
		metric.WithUnit("{project}"),
	)
	if err != nil {
		return err
	}

	projectReviewCounter, err = meter.Int64Counter(
		"project.review.count",
		metric.WithDescription("Number of review attempts by outcome"),
		metric.WithUnit("{review}"),
	)
	if err != nil {
		return err
	}

	commentCounter, err = meter.Int64Counter(
		"project.comment.count",
		metric.WithDescription("Number of comments posted"),
		metric.WithUnit("{comment}"),
	)
	if err != nil {
		return err
	}

	analyticsCacheCounter, err = meter.Int64Counter(
		"analytics.cache.lookups",
		metric.WithDescription("Analytics summary cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	return err
}

func RecordSubmission(ctx context.Context, category string) {
	if projectSubmitCounter != nil {
		projectSubmitCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("category", category)))
	}
}

// RecordReview counts a review attempt; outcome is "applied" or "conflict".
func RecordReview(ctx context.Context, decision, outcome string) {
	if projectReviewCounter != nil {
		projectReviewCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("decision", decision),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordComment(ctx context.Context) {
	if commentCounter != nil {
		commentCounter.Add(ctx, 1)
	}
}

func RecordAnalyticsCache(ctx context.Context, hit bool) {
	if analyticsCacheCounter != nil {
		result := "miss"
		if hit {
			result = "hit"
		}
		analyticsCacheCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}
}
