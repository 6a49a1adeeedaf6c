package stage

import (
	"errors"
	"fmt"

	"github.com/suremarc/go-almanac-remap/packages/remap/interval"
	"golang.org/x/exp/constraints"
)

var ErrInvalidRule = errors.New("invalid rule")

// Rule shifts every value of [Source, Source+Length) by Destination-Source.
type Rule[T constraints.Signed] struct {
	Destination, Source, Length T
}

// NewRule builds a rule from a (destination start, source start, length) triple.
func NewRule[T constraints.Signed](destination, source, length T) (Rule[T], error) {
	r := Rule[T]{Destination: destination, Source: source, Length: length}
	if err := r.Validate(); err != nil {
		return Rule[T]{}, err
	}

	return r, nil
}

func (r Rule[T]) Validate() error {
	if r.Length <= 0 {
		return fmt.Errorf("%w: non-positive length %d", ErrInvalidRule, r.Length)
	}

	return nil
}

// SourceRange is the closed interval of values the rule claims. Source+Length-1 is not checked
// for overflow; the caller owns domain validity.
func (r Rule[T]) SourceRange() interval.Interval[T] {
	return interval.Interval[T]{Start: r.Source, End: r.Source + r.Length - 1}
}

func (r Rule[T]) Offset() T {
	return r.Destination - r.Source
}

func (r Rule[T]) String() string {
	return fmt.Sprintf("%s%+d", r.SourceRange(), r.Offset())
}

// Split applies r to a single interval. A covered part comes back translated; the uncovered
// pieces come back as rest, still in source coordinates.
func (r Rule[T]) Split(iv interval.Interval[T]) (translated interval.Interval[T], rest interval.Intervals[T], ok bool) {
	source := r.SourceRange()
	overlap, ok := iv.Overlap(source)
	if !ok {
		return interval.Interval[T]{}, interval.Intervals[T]{iv}, false
	}

	return overlap.Translate(r.Offset()), iv.Remainder(source), true
}

// Stage is one mapping pass. Rules are tried in declared order and the first rule covering a
// value wins; overlapping rules are not rejected.
type Stage[T constraints.Signed] struct {
	Name  string
	Rules []Rule[T]
}

func New[T constraints.Signed](name string, rules ...Rule[T]) Stage[T] {
	return Stage[T]{Name: name, Rules: rules}
}

func (s Stage[T]) Validate() error {
	for i, r := range s.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("stage %q rule %d: %w", s.Name, i, err)
		}
	}

	return nil
}

// SweepFunc offers every pending interval to r once, returning what is still pending and
// translated with r's output appended.
type SweepFunc[T constraints.Signed] func(r Rule[T], pending, translated interval.Intervals[T]) (interval.Intervals[T], interval.Intervals[T], error)

// Apply maps a working set through every rule of the stage. Translated intervals come first,
// followed by whatever no rule claimed. Nothing is merged or deduplicated.
func (s Stage[T]) Apply(working interval.Intervals[T]) interval.Intervals[T] {
	out, _ := s.ApplyFunc(working, func(r Rule[T], pending, translated interval.Intervals[T]) (interval.Intervals[T], interval.Intervals[T], error) {
		pending, translated = r.Sweep(pending, translated)
		return pending, translated, nil
	})

	return out
}

// ApplyFunc is Apply with the per-rule sweep supplied by the caller. The first sweep error
// aborts the stage.
func (s Stage[T]) ApplyFunc(working interval.Intervals[T], sweep SweepFunc[T]) (interval.Intervals[T], error) {
	pending := append(interval.Intervals[T]{}, working...)
	var translated interval.Intervals[T]

	for _, r := range s.Rules {
		var err error
		pending, translated, err = sweep(r, pending, translated)
		if err != nil {
			return nil, err
		}
	}

	return append(translated, pending...), nil
}

// Clone returns s with its own copy of Rules.
func (s Stage[T]) Clone() Stage[T] {
	s.Rules = append([]Rule[T](nil), s.Rules...)
	return s
}

// Sweep offers every pending interval to r once. It returns the intervals still pending
// afterwards and translated with r's output appended.
func (r Rule[T]) Sweep(pending, translated interval.Intervals[T]) (interval.Intervals[T], interval.Intervals[T]) {
	next := make(interval.Intervals[T], 0, len(pending))
	for _, iv := range pending {
		moved, rest, ok := r.Split(iv)
		if ok {
			translated = append(translated, moved)
		}
		next = append(next, rest...)
	}

	return next, translated
}

// Lookup maps a single value the way Apply maps the intervals containing it.
func (s Stage[T]) Lookup(v T) T {
	for _, r := range s.Rules {
		if r.SourceRange().Contains(v) {
			return v + r.Offset()
		}
	}

	return v
}

type Stages[T constraints.Signed] []Stage[T]

// Clone deep-copies s so later edits to the original rules are not observed.
func (s Stages[T]) Clone() Stages[T] {
	out := make(Stages[T], len(s))
	for i := range s {
		out[i] = s[i].Clone()
	}

	return out
}

func (s Stages[T]) Validate() error {
	for i := range s {
		if err := s[i].Validate(); err != nil {
			return fmt.Errorf("stage %d: %w", i, err)
		}
	}

	return nil
}

// Lookup maps a single value through every stage in order.
func (s Stages[T]) Lookup(v T) T {
	for i := range s {
		v = s[i].Lookup(v)
	}

	return v
}
