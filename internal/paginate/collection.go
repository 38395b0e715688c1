package paginate

import "context"

// SliceCollection adapts an in-memory slice to Collection.
type SliceCollection[T any] struct {
	items []T
}

// Slice wraps items so they can be paged through.
func Slice[T any](items []T) *SliceCollection[T] {
	return &SliceCollection[T]{items: items}
}

func (s *SliceCollection[T]) Count(context.Context) (int, error) {
	return len(s.items), nil
}

// Slice returns a copy of up to limit items starting at offset. Offsets past
// the end yield an empty slice.
func (s *SliceCollection[T]) Slice(_ context.Context, offset, limit int) ([]T, error) {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(s.items) || limit <= 0 {
		return []T{}, nil
	}
	end := min(offset+limit, len(s.items))
	out := make([]T, end-offset)
	copy(out, s.items[offset:end])
	return out, nil
}
