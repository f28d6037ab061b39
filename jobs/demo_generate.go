package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/inkwell-blog/inkwell/internal/admin"
	jobmetrics "github.com/inkwell-blog/inkwell/internal/jobs"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DemoGenerator produces demo content.
type DemoGenerator interface {
	Generate(ctx context.Context, author string, count int) (admin.Counts, error)
}

// DemoGenerateJob processes TaskDemoGenerate tasks.
type DemoGenerateJob struct {
	Generator DemoGenerator
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewDemoGenerateJob wires dependencies for the generation handler.
func NewDemoGenerateJob(generator DemoGenerator, logger *slog.Logger, metrics *jobmetrics.Metrics) *DemoGenerateJob {
	return &DemoGenerateJob{Generator: generator, Logger: logger, Metrics: metrics}
}

// Handle runs one generation task. Invalid payloads are not retried.
func (j *DemoGenerateJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Generator == nil {
		return errors.New("demo generate: handler not configured")
	}
	tracker := j.metrics().Track(TaskDemoGenerate)
	var payload DemoGeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.logger().Warn("invalid demo generate payload", slog.Any("error", err))
		return tracker.Fail(jobmetrics.ReasonInvalidPayload, asynq.SkipRetry)
	}

	logger := j.logger().With(slog.Int("count", payload.Count), slog.String("requested_by", payload.RequestedBy))
	start := time.Now()

	counts, err := j.Generator.Generate(ctx, payload.RequestedBy, payload.Count)
	if errors.Is(err, shared.ErrValidation) {
		logger.Warn("rejected demo generation", slog.Any("error", err))
		return tracker.Fail(jobmetrics.ReasonRejected, errors.Join(err, asynq.SkipRetry))
	}
	if err != nil {
		logger.Error("demo generation", slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics().RecordGenerated("posts", counts.Posts)
	j.metrics().RecordGenerated("comments", counts.Comments)
	j.metrics().RecordGenerated("likes", counts.Likes)
	logger.Info("completed demo generation",
		slog.Int("posts", counts.Posts),
		slog.Int("comments", counts.Comments),
		slog.Int("likes", counts.Likes),
		slog.Duration("duration", time.Since(start)))
	return tracker.End(nil)
}

func (j *DemoGenerateJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDemoGenerate))
	}
	return slog.Default().With(slog.String("job", TaskDemoGenerate))
}

func (j *DemoGenerateJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
