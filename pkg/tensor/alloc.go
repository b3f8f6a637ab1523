package tensor

import (
	"fmt"
	"sync"
)

// Allocator enforces a byte budget across the tensors created from it.
// Bytes are drawn on New and returned on Release. A nil *Allocator is valid
// and imposes no budget.
//
// Allocator is safe for concurrent use; the tensors it creates are not.
type Allocator struct {
	mu    sync.Mutex
	limit uint64
	inUse uint64
	peak  uint64
}

// NewAllocator returns an allocator with the given budget in bytes.
// A limit of 0 means unlimited.
func NewAllocator(limit uint64) *Allocator {
	return &Allocator{limit: limit}
}

// New creates a zero-initialised tensor charged against the budget.
// Either the whole buffer is obtained or an error wrapping ErrAllocation is
// returned; no partially sized tensor is ever handed out.
func (a *Allocator) New(rows, cols uint16, et ElementType) (*Tensor, error) {
	if !et.Valid() {
		return nil, fmt.Errorf("%w: unknown element type %d", ErrTypeMismatch, uint8(et))
	}
	count, bytes := byteSize(rows, cols, et)
	if bytes > maxBufferBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds addressable memory", ErrAllocation, bytes)
	}
	if err := a.reserve(bytes); err != nil {
		return nil, err
	}
	return &Tensor{
		rows:  rows,
		cols:  cols,
		dtype: et,
		data:  newStorage(et, int(count)),
		alloc: a,
	}, nil
}

// Limit returns the budget in bytes, 0 when unlimited.
func (a *Allocator) Limit() uint64 {
	if a == nil {
		return 0
	}
	return a.limit
}

// InUse returns the bytes held by live tensors.
func (a *Allocator) InUse() uint64 {
	if a == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inUse
}

// Peak returns the highest InUse value observed.
func (a *Allocator) Peak() uint64 {
	if a == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.peak
}

func (a *Allocator) reserve(n uint64) error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.limit != 0 && n > a.limit-a.inUse {
		return fmt.Errorf("%w: need %d bytes, %d of %d available", ErrAllocation, n, a.limit-a.inUse, a.limit)
	}
	a.inUse += n
	if a.inUse > a.peak {
		a.peak = a.inUse
	}
	return nil
}

func (a *Allocator) free(n uint64) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if n > a.inUse {
		n = a.inUse
	}
	a.inUse -= n
}
