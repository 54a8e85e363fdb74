package allocator

import "errors"

// ErrAllocatorFrozen is returned by Alloc/Free once Ptr has materialized the backing
// memory: the planning phase is over and offsets can no longer move.
var ErrAllocatorFrozen = errors.New("allocator: frozen after Ptr(), planning phase is over")
