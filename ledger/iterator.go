package ledger

// Iterator is a lazy, forward-only sequence backed by a substrate-side
// cursor. Next reports ok=false once the sequence is exhausted. Close
// releases the cursor and must be called even when the consumer stops
// early; Drain and ForEach take care of that for common consumption
// patterns.
type Iterator[T any] interface {
	Next() (item T, ok bool, err error)
	Close() error
}

// Drain consumes the iterator to exhaustion and returns every item. The
// iterator is closed before Drain returns, on success and on error alike.
func Drain[T any](it Iterator[T]) ([]T, error) {
	defer it.Close()
	var items []T
	for {
		item, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return items, nil
		}
		items = append(items, item)
	}
}

// ForEach applies fn to each item until the sequence ends, fn returns
// stop=true, or an error occurs. The iterator is closed in every case.
func ForEach[T any](it Iterator[T], fn func(T) (stop bool, err error)) error {
	defer it.Close()
	for {
		item, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		stop, err := fn(item)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// sliceIterator adapts an in-memory slice to the Iterator contract. It is
// used by stores that materialize results eagerly but still hand callers
// the lazy sequence interface.
type sliceIterator[T any] struct {
	items   []T
	pos     int
	closed  bool
	onClose func()
}

// NewSliceIterator wraps items in an Iterator. onClose, when non-nil, runs
// exactly once on the first Close call.
func NewSliceIterator[T any](items []T, onClose func()) Iterator[T] {
	return &sliceIterator[T]{items: items, onClose: onClose}
}

func (s *sliceIterator[T]) Next() (T, bool, error) {
	var zero T
	if s.closed || s.pos >= len(s.items) {
		return zero, false, nil
	}
	item := s.items[s.pos]
	s.pos++
	return item, true, nil
}

func (s *sliceIterator[T]) Close() error {
	if !s.closed {
		s.closed = true
		if s.onClose != nil {
			s.onClose()
		}
	}
	return nil
}
