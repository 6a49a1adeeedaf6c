package interval

import (
	"encoding"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

// Interval is a closed integer range whose text representation is start..end, e.g. 50..55.
// A well-formed Interval has Start <= End; both bounds are inclusive.
type Interval[T constraints.Signed] struct {
	Start, End T
}

var _ encoding.TextUnmarshaler = &Interval[int64]{}
var _ encoding.TextMarshaler = &Interval[int64]{}

var ErrInvalidInterval = errors.New("invalid interval")

const separator = ".."

func New[T constraints.Signed](start, end T) (Interval[T], error) {
	if end < start {
		return Interval[T]{}, fmt.Errorf("%w: start %d is after end %d", ErrInvalidInterval, start, end)
	}

	return Interval[T]{Start: start, End: end}, nil
}

// FromLength returns the interval covering length values beginning at start.
func FromLength[T constraints.Signed](start, length T) (Interval[T], error) {
	if length <= 0 {
		return Interval[T]{}, fmt.Errorf("%w: non-positive length %d", ErrInvalidInterval, length)
	}

	return New(start, start+length-1)
}

func Point[T constraints.Signed](v T) Interval[T] {
	return Interval[T]{Start: v, End: v}
}

func (i Interval[T]) Validate() error {
	if i.End < i.Start {
		return fmt.Errorf("%w: %d..%d", ErrInvalidInterval, i.Start, i.End)
	}

	return nil
}

// Overlaps reports whether i and other share at least one value. Touching bounds overlap.
func (i Interval[T]) Overlaps(other Interval[T]) bool {
	return other.End >= i.Start && i.End >= other.Start
}

// Overlap returns the values common to i and other.
func (i Interval[T]) Overlap(other Interval[T]) (Interval[T], bool) {
	if !i.Overlaps(other) {
		return Interval[T]{}, false
	}

	return Interval[T]{
		Start: max(i.Start, other.Start),
		End:   min(i.End, other.End),
	}, true
}

// Remainder returns the pieces of i not covered by other, lowest first.
// The result has at most two elements and never contains a zero-width piece.
func (i Interval[T]) Remainder(other Interval[T]) Intervals[T] {
	if !i.Overlaps(other) {
		return Intervals[T]{i}
	}

	if i.Start >= other.Start && i.End <= other.End {
		return nil
	}

	var rest Intervals[T]
	if i.Contains(other.Start) && other.Start > i.Start {
		rest = append(rest, Interval[T]{Start: i.Start, End: other.Start - 1})
	}

	if i.Contains(other.End) && other.End < i.End {
		rest = append(rest, Interval[T]{Start: other.End + 1, End: i.End})
	}

	return rest
}

// Translate shifts both bounds by offset. Overflow is the caller's concern.
func (i Interval[T]) Translate(offset T) Interval[T] {
	return Interval[T]{Start: i.Start + offset, End: i.End + offset}
}

func (i Interval[T]) Contains(v T) bool {
	return i.Start <= v && v <= i.End
}

// Len returns the number of values in i. It wraps when the count does not fit in T, e.g. an
// interval spanning the whole int64 range; the caller owns domain validity.
func (i Interval[T]) Len() T {
	return i.End - i.Start + 1
}

func (i Interval[T]) String() string {
	return fmt.Sprintf("%d%s%d", i.Start, separator, i.End)
}

func (i *Interval[T]) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		return fmt.Errorf("%w: empty text", ErrInvalidInterval)
	}

	lo, hi, found := strings.Cut(s, separator)
	start, err := parseBound[T](lo)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, s)
	}
	end := start

	if found {
		end, err = parseBound[T](hi)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidInterval, s)
		}
	}

	parsed, err := New(start, end)
	if err != nil {
		return err
	}

	*i = parsed
	return nil
}

func (i Interval[T]) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func parseBound[T constraints.Signed](s string) (T, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}

	if int64(T(n)) != n {
		return 0, strconv.ErrRange
	}

	return T(n), nil
}

// Intervals is a working set of intervals. Order is preserved; members may overlap.
type Intervals[T constraints.Signed] []Interval[T]

var _ encoding.TextUnmarshaler = &Intervals[int64]{}
var _ encoding.TextMarshaler = &Intervals[int64]{}

func (s *Intervals[T]) UnmarshalText(text []byte) error {
	str := strings.TrimSpace(string(text))
	if str == "" {
		*s = nil
		return nil
	}

	list := strings.Split(str, ",")
	*s = make(Intervals[T], len(list))

	for i := range list {
		if err := (*s)[i].UnmarshalText([]byte(list[i])); err != nil {
			return err
		}
	}

	return nil
}

func (s Intervals[T]) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s Intervals[T]) String() string {
	results := make([]string, 0, len(s))
	for _, iv := range s {
		results = append(results, iv.String())
	}

	return strings.Join(results, ",")
}

// Validate returns the first malformed interval in s, if any.
func (s Intervals[T]) Validate() error {
	for idx, iv := range s {
		if err := iv.Validate(); err != nil {
			return fmt.Errorf("interval %d: %w", idx, err)
		}
	}

	return nil
}

// MinStart returns the smallest Start in s, or false if s is empty.
func (s Intervals[T]) MinStart() (T, bool) {
	if len(s) == 0 {
		return 0, false
	}

	lowest := s[0].Start
	for _, iv := range s[1:] {
		lowest = min(lowest, iv.Start)
	}

	return lowest, true
}

// Len returns the total number of values across s, counting overlaps once per member.
// Like Interval.Len it is not checked for overflow.
func (s Intervals[T]) Len() T {
	var total T
	for _, iv := range s {
		total += iv.Len()
	}

	return total
}
