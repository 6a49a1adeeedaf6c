// Package pipeline pushes a working set of intervals through an ordered list of stages.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/suremarc/go-almanac-remap/packages/remap/interval"
	"github.com/suremarc/go-almanac-remap/packages/remap/stage"
	"golang.org/x/exp/constraints"
	"golang.org/x/sync/errgroup"
)

// Pipeline is safe for concurrent use; each Run owns its working set.
type Pipeline[T constraints.Signed] struct {
	stages stage.Stages[T]
	opts   Options
	stats  counters
}

// New validates every rule of every stage before anything runs. The pipeline keeps its own copy
// of the rules, so editing stages afterwards has no effect.
func New[T constraints.Signed](stages stage.Stages[T], opts ...Option) (*Pipeline[T], error) {
	if err := stages.Validate(); err != nil {
		return nil, fmt.Errorf("couldn't build pipeline: %w", err)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.normalize()

	return &Pipeline[T]{
		stages: stages.Clone(),
		opts:   o,
	}, nil
}

func (p *Pipeline[T]) Stats() Stats {
	return p.stats.snapshot()
}

// Run maps seeds through every stage in order and returns the final working set.
func (p *Pipeline[T]) Run(ctx context.Context, seeds interval.Intervals[T]) (interval.Intervals[T], error) {
	if err := seeds.Validate(); err != nil {
		return nil, fmt.Errorf("seeds: %w", err)
	}

	p.stats.queries.Inc()
	logger := p.opts.Logger.WithField("query", uuid.NewString())
	logger.WithFields(logrus.Fields{
		"seeds":  len(seeds),
		"stages": len(p.stages),
	}).Debug("starting query")

	working := append(interval.Intervals[T]{}, seeds...)
	for i := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, err := p.apply(ctx, logger, &p.stages[i], working)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		working = next
	}

	logger.WithField("intervals", len(working)).Debug("finished query")
	return working, nil
}

// LowestStart runs seeds through the pipeline and returns the smallest start of the result.
// It reports false when there is nothing left, which only happens for empty seeds.
func (p *Pipeline[T]) LowestStart(ctx context.Context, seeds interval.Intervals[T]) (T, bool, error) {
	working, err := p.Run(ctx, seeds)
	if err != nil {
		return 0, false, err
	}

	lowest, ok := working.MinStart()
	return lowest, ok, nil
}

func (p *Pipeline[T]) apply(ctx context.Context, logger *logrus.Entry, s *stage.Stage[T], working interval.Intervals[T]) (interval.Intervals[T], error) {
	logger = logger.WithField("stage", s.Name)

	var translatedCount int
	out, err := s.ApplyFunc(working, func(r stage.Rule[T], pending, translated interval.Intervals[T]) (interval.Intervals[T], interval.Intervals[T], error) {
		pending, translated, err := p.sweep(ctx, r, pending, translated)
		if err != nil {
			return nil, nil, err
		}

		translatedCount = len(translated)
		p.stats.rulePasses.Inc()
		logger.WithFields(logrus.Fields{
			"rule":       r,
			"pending":    len(pending),
			"translated": len(translated),
		}).Trace("applied rule")

		return pending, translated, nil
	})
	if err != nil {
		return nil, err
	}

	passthrough := len(out) - translatedCount
	p.stats.stages.Inc()
	p.stats.passthrough.Add(int64(passthrough))
	logger.WithFields(logrus.Fields{
		"translated":  translatedCount,
		"passthrough": passthrough,
	}).Trace("applied stage")

	return out, nil
}

// sweep offers every pending interval to r. Large pending lists are cut into contiguous chunks
// and swept concurrently; chunk results are stitched back in chunk order so the output matches
// the sequential sweep exactly.
func (p *Pipeline[T]) sweep(ctx context.Context, r stage.Rule[T], pending, translated interval.Intervals[T]) (interval.Intervals[T], interval.Intervals[T], error) {
	if p.opts.Concurrency <= 1 || len(pending) < p.opts.ParallelThreshold {
		before := len(translated)
		next, translated := r.Sweep(pending, translated)
		p.count(len(pending), len(next), len(translated)-before)
		return next, translated, nil
	}

	chunks := split(pending, p.opts.Concurrency)

	type result struct {
		pending, translated interval.Intervals[T]
	}
	results := make([]result, len(chunks))

	eg, eCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.opts.Concurrency)
	for i := range chunks {
		i := i
		eg.Go(func() error {
			if err := eCtx.Err(); err != nil {
				return err
			}

			results[i].pending, results[i].translated = r.Sweep(chunks[i], nil)
			p.count(len(chunks[i]), len(results[i].pending), len(results[i].translated))
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	next := make(interval.Intervals[T], 0, len(pending))
	for _, res := range results {
		next = append(next, res.pending...)
		translated = append(translated, res.translated...)
	}

	return next, translated, nil
}

// count records one sweep over in intervals that left out still pending, moved of them having
// been claimed by the rule. Unclaimed intervals stay pending as they are, so everything else
// pending is a remainder piece.
func (p *Pipeline[T]) count(in, out, moved int) {
	p.stats.translated.Add(int64(moved))
	p.stats.remainders.Add(int64(out - (in - moved)))
}

func split[T constraints.Signed](s interval.Intervals[T], n int) []interval.Intervals[T] {
	size := (len(s) + n - 1) / n
	chunks := make([]interval.Intervals[T], 0, n)
	for len(s) > 0 {
		end := min(size, len(s))
		chunks = append(chunks, s[:end])
		s = s[end:]
	}

	return chunks
}
