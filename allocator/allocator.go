/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package allocator implements a two-phase pooled static allocator: Alloc/Free are pure
// offset arithmetic over a free list, and the single real device allocation happens once,
// lazily, in Ptr. Once Ptr has been called, Alloc/Free must not be called again.
//
// The algorithm (first-fit scan, left/right coalescing, tail reclamation) is a direct
// port of the std::map<offset,size>-based free list from the original C++ teaching
// implementation this module grew out of.
package allocator

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"k8s.io/klog/v2"

	"github.com/tensorplan/tensorplan/runtime"
)

const defaultAlignment = 8

// freeBlock is one entry of the free list, kept sorted by Offset so Alloc's first-fit
// scan and Free's neighbor coalescing can both work by adjacency in the slice.
type freeBlock struct {
	Offset int
	Size   int
}

// Allocator plans offsets for tensor data over a single pooled region. It never talks to
// the runtime until Ptr is called.
type Allocator struct {
	runtime   *runtime.Runtime
	alignment int

	used int
	peak int

	freeBlocks []freeBlock // sorted by Offset, no two entries ever touch or overlap.

	base []byte // nil until Ptr materializes it.
}

// New returns an allocator backed by rt, with the default 8-byte alignment.
func New(rt *runtime.Runtime) *Allocator {
	return &Allocator{runtime: rt, alignment: defaultAlignment}
}

// Used returns the number of bytes currently planned as allocated.
func (a *Allocator) Used() int { return a.used }

// Peak returns the current end of the planned region, i.e. the size Ptr would request. It
// grows with tail allocations and shrinks when Free returns a block that reaches the tail.
func (a *Allocator) Peak() int { return a.peak }

func (a *Allocator) alignedSize(size int) int {
	return ((size-1)/a.alignment + 1) * a.alignment
}

// Alloc plans space for size bytes and returns its offset from the (not-yet-materialized)
// base pointer. First-fit over the free list, falling back to tail growth.
func (a *Allocator) Alloc(size int) (int, error) {
	if a.base != nil {
		return 0, ErrAllocatorFrozen
	}
	aligned := a.alignedSize(size)

	for i, block := range a.freeBlocks {
		if block.Size < aligned {
			continue
		}
		remainder := block.Size - aligned
		if remainder > 0 {
			a.freeBlocks[i] = freeBlock{Offset: block.Offset + aligned, Size: remainder}
		} else {
			a.freeBlocks = append(a.freeBlocks[:i], a.freeBlocks[i+1:]...)
		}
		a.used += aligned
		return block.Offset, nil
	}

	offset := a.peak
	a.peak += aligned
	a.used += aligned
	return offset, nil
}

// Free returns a previously allocated block to the pool, coalescing with adjacent free
// blocks and shrinking peak if the freed region reaches all the way to the tail.
func (a *Allocator) Free(offset, size int) error {
	if a.base != nil {
		return ErrAllocatorFrozen
	}
	aligned := a.alignedSize(size)
	a.used -= aligned

	i := sort.Search(len(a.freeBlocks), func(i int) bool { return a.freeBlocks[i].Offset >= offset })
	a.freeBlocks = append(a.freeBlocks, freeBlock{})
	copy(a.freeBlocks[i+1:], a.freeBlocks[i:])
	a.freeBlocks[i] = freeBlock{Offset: offset, Size: aligned}

	// Coalesce with the right neighbor first, since it doesn't move our index.
	if i+1 < len(a.freeBlocks) && a.freeBlocks[i].Offset+a.freeBlocks[i].Size == a.freeBlocks[i+1].Offset {
		a.freeBlocks[i].Size += a.freeBlocks[i+1].Size
		a.freeBlocks = append(a.freeBlocks[:i+1], a.freeBlocks[i+2:]...)
	}

	// Coalesce with the left neighbor, moving the working index to it.
	if i > 0 && a.freeBlocks[i-1].Offset+a.freeBlocks[i-1].Size == a.freeBlocks[i].Offset {
		a.freeBlocks[i-1].Size += a.freeBlocks[i].Size
		a.freeBlocks = append(a.freeBlocks[:i], a.freeBlocks[i+1:]...)
		i--
	}

	// Tail reclamation: if the merged block now ends exactly at peak, drop it entirely.
	if a.freeBlocks[i].Offset+a.freeBlocks[i].Size == a.peak {
		a.peak -= a.freeBlocks[i].Size
		a.freeBlocks = append(a.freeBlocks[:i], a.freeBlocks[i+1:]...)
	}
	return nil
}

// Ptr materializes the pool: the first call requests peak bytes from the runtime and
// caches the result. Subsequent calls return the same slice. After this, Alloc and Free
// must not be called.
func (a *Allocator) Ptr() []byte {
	if a.base == nil {
		a.base = a.runtime.Alloc(a.peak)
		klog.V(2).Infof("allocator: materialized pool of %s", humanize.Bytes(uint64(a.peak)))
	}
	return a.base
}

// Info renders the current usage in human-readable form.
func (a *Allocator) Info() string {
	return fmt.Sprintf("Used memory: %s, peak memory: %s", humanize.Bytes(uint64(a.used)), humanize.Bytes(uint64(a.peak)))
}

// Release returns the materialized pool to the runtime. Safe to call even if Ptr was
// never called (no-op). Mirrors the original allocator's destructor.
func (a *Allocator) Release() {
	if a.base == nil {
		return
	}
	a.runtime.Dealloc(a.base)
	a.base = nil
}
