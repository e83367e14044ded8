// Package classifier drives the inference service over batches of comments
// and merges the per-item labels back into input order.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/capitalize-ai/comment-consultant/internal/llm"
	"github.com/capitalize-ai/comment-consultant/internal/model"
	"github.com/capitalize-ai/comment-consultant/internal/taxonomy"
	"github.com/capitalize-ai/comment-consultant/pkg/logger"
	"github.com/capitalize-ai/comment-consultant/pkg/metrics"
	"github.com/capitalize-ai/comment-consultant/pkg/tracing"
)

// Item is one comment submitted for classification.
type Item struct {
	ID   string
	Text string
}

// Result is the classification of one input item. Classified is false when
// the item fell back to the default {[], neutral}.
type Result struct {
	ID         string
	Labels     []string
	Sentiment  model.Sentiment
	Classified bool
}

// Report summarises one Classify call.
type Report struct {
	Batches    int
	OK         int
	Recovered  int
	Failed     int
	Classified int
	Defaulted  int
	// Unavailable counts batches rejected because the inference service
	// refused the credentials or quota.
	Unavailable int
}

// Options configures a Classifier.
type Options struct {
	Model         string
	BatchSize     int
	Concurrency   int
	Timeout       time.Duration
	MaxTextLength int
	Temperature   float64
	MaxTokens     int
}

func (o *Options) setDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 20
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 10
	}
	if o.Timeout <= 0 {
		o.Timeout = 45 * time.Second
	}
	if o.MaxTextLength <= 0 {
		o.MaxTextLength = 500
	}
}

// Classifier is the batch classification orchestrator.
type Classifier struct {
	client   llm.Client
	taxonomy *taxonomy.Taxonomy
	opts     Options
	gate     *Gate
	logger   *logger.Logger
}

// New creates a classifier. The admission gate is shared by every Classify
// call on the returned value.
func New(client llm.Client, tax *taxonomy.Taxonomy, opts Options, log *logger.Logger) *Classifier {
	opts.setDefaults()
	return &Classifier{
		client:   client,
		taxonomy: tax,
		opts:     opts,
		gate:     NewGate(opts.Concurrency),
		logger:   log.Component("classifier"),
	}
}

// Model returns the model identifier used for inference.
func (c *Classifier) Model() string { return c.opts.Model }

type batch struct {
	index int
	start int
	items []Item
}

type batchOutcome struct {
	status      ParseStatus
	items       []ItemLabels
	unavailable bool
}

// Classify returns exactly one Result per input item, in input order.
// Batches that fail, time out or cannot be parsed contribute default results.
func (c *Classifier) Classify(ctx context.Context, items []Item) ([]Result, Report) {
	results := make([]Result, len(items))
	for i, item := range items {
		results[i] = Result{ID: item.ID, Labels: []string{}, Sentiment: model.SentimentNeutral}
	}
	if len(items) == 0 {
		return results, Report{}
	}

	ctx, span := tracing.Tracer().Start(ctx, "classifier.Classify")
	defer span.End()

	batches := c.partition(items)
	outcomes := make([]batchOutcome, len(batches))
	span.SetAttributes(attribute.Int("items", len(items)), attribute.Int("batches", len(batches)))

	var wg sync.WaitGroup
	for _, b := range batches {
		wg.Add(1)
		go func(b batch) {
			defer wg.Done()
			if err := c.gate.Acquire(ctx); err != nil {
				c.logger.Warn("batch not admitted", zap.Int("batch", b.index), zap.Error(err))
				metrics.RecordBatch("failed", 0)
				return
			}
			defer c.gate.Release()
			outcomes[b.index] = c.runBatch(ctx, b)
		}(b)
	}
	wg.Wait()

	report := Report{Batches: len(batches)}
	for i, b := range batches {
		switch outcomes[i].status {
		case ParseOK:
			report.OK++
		case ParseRecovered:
			report.Recovered++
		default:
			report.Failed++
		}
		if outcomes[i].unavailable {
			report.Unavailable++
		}
		merge(results, b, outcomes[i].items)
	}
	for _, r := range results {
		if r.Classified {
			report.Classified++
		} else {
			report.Defaulted++
		}
	}

	metrics.RecordItems(report.Classified, report.Defaulted)
	c.logger.Info("classification finished",
		zap.Int("items", len(items)),
		zap.Int("batches", report.Batches),
		zap.Int("failed_batches", report.Failed),
		zap.Int("recovered_batches", report.Recovered),
		zap.Int("classified", report.Classified),
	)
	return results, report
}

// partition splits items into contiguous batches, cleaning and truncating
// each text. Item ids and count are preserved.
func (c *Classifier) partition(items []Item) []batch {
	var batches []batch
	for start := 0; start < len(items); start += c.opts.BatchSize {
		end := start + c.opts.BatchSize
		if end > len(items) {
			end = len(items)
		}
		chunk := make([]Item, 0, end-start)
		for _, item := range items[start:end] {
			chunk = append(chunk, Item{ID: item.ID, Text: cleanText(item.Text, c.opts.MaxTextLength)})
		}
		batches = append(batches, batch{index: len(batches), start: start, items: chunk})
	}
	return batches
}

func (c *Classifier) runBatch(ctx context.Context, b batch) batchOutcome {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	ctx, span := tracing.Tracer().Start(ctx, "classifier.batch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch", b.index), attribute.Int("size", len(b.items)))

	start := time.Now()
	log := c.logger.With(zap.Int("batch", b.index), zap.Int("size", len(b.items)))

	resp, err := c.client.Complete(ctx, &llm.CompletionRequest{
		Model: c.opts.Model,
		Messages: []llm.ChatMessage{
			{Role: string(model.RoleSystem), Content: systemInstruction},
			{Role: string(model.RoleUser), Content: buildPrompt(c.taxonomy, b.items)},
		},
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
		JSONMode:    true,
	})
	if err != nil {
		outcome := "failed"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
		}
		metrics.RecordBatch(outcome, time.Since(start).Seconds())
		span.SetStatus(codes.Error, err.Error())
		log.Warn("batch request failed", zap.String("outcome", outcome), zap.Error(err))
		return batchOutcome{status: ParseFailed, unavailable: errors.Is(err, llm.ErrUnavailable)}
	}

	parsed := Parse(resp.Content)
	metrics.RecordBatch(parsed.Status.String(), time.Since(start).Seconds())
	span.SetAttributes(attribute.String("parse", parsed.Status.String()))

	switch parsed.Status {
	case ParseFailed:
		span.SetStatus(codes.Error, "unparseable response")
		log.Warn("batch response unparseable", zap.Error(parsed.Err))
	case ParseRecovered:
		log.Info("batch response recovered by fallback decode")
	}
	return batchOutcome{status: parsed.Status, items: parsed.Items}
}

// merge writes parsed labels into the batch's slots of results by id. Only
// ids that belong to the batch are accepted; ids absent from the response
// keep their default.
func merge(results []Result, b batch, parsed []ItemLabels) {
	if len(parsed) == 0 {
		return
	}
	members := make(map[string]struct{}, len(b.items))
	for _, item := range b.items {
		members[item.ID] = struct{}{}
	}
	byID := make(map[string]ItemLabels, len(parsed))
	for _, p := range parsed {
		id := strings.TrimSpace(p.ID)
		if _, ok := members[id]; !ok {
			continue
		}
		if _, dup := byID[id]; dup {
			continue
		}
		byID[id] = p
	}

	slots := results[b.start : b.start+len(b.items)]
	for i := range slots {
		p, ok := byID[slots[i].ID]
		if !ok {
			continue
		}
		slots[i] = Result{
			ID:         slots[i].ID,
			Labels:     normalizeLabels(p.Labels),
			Sentiment:  model.NormalizeSentiment(p.Sentiment),
			Classified: true,
		}
	}
}

// normalizeLabels trims and dedupes labels and caps them at two. Unknown ids
// pass through; callers persisting results filter them against the taxonomy.
func normalizeLabels(labels []string) []string {
	out := make([]string, 0, model.MaxTopicsPerItem)
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
		if len(out) == model.MaxTopicsPerItem {
			break
		}
	}
	return out
}

// String implements fmt.Stringer for log output.
func (r Report) String() string {
	return fmt.Sprintf("batches=%d ok=%d recovered=%d failed=%d classified=%d defaulted=%d unavailable=%d",
		r.Batches, r.OK, r.Recovered, r.Failed, r.Classified, r.Defaulted, r.Unavailable)
}
