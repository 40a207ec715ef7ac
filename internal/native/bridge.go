// Package native is the cgo boundary to native potential models: the
// neighbor-query callback, the argument block handed to compute, and the
// model handle that owns native memory.
package native

/*
#include <stdlib.h>
#include "kimnl.h"
*/
import "C"

import (
	"fmt"
	"log/slog"
	"runtime"
	"runtime/cgo"
	"unsafe"

	"github.com/san-kum/kimnl/internal/atoms"
	"github.com/san-kum/kimnl/internal/nlist"
)

const (
	statusOK    C.int = 0
	statusError C.int = 1
)

// kimnlGetNeighbors is the function pointer native models call back into.
// It never panics across the boundary and never reads outside the
// container: bad queries return statusError.
//
//export kimnlGetNeighbors
func kimnlGetNeighbors(ctx unsafe.Pointer, list, particle C.int, num *C.int, neighbors **C.int) (status C.int) {
	defer func() {
		if r := recover(); r != nil {
			status = statusError
		}
	}()
	if ctx == nil || num == nil || neighbors == nil {
		return statusError
	}

	b, ok := cgo.Handle(*(*C.uintptr_t)(ctx)).Value().(*Binding)
	if !ok || b.released {
		return statusError
	}
	b.queries++

	idx, err := b.c.Neighbors(int(list), int(particle))
	if err != nil {
		b.failures++
		b.logger.Debug("rejected neighbor query", "list", int(list), "particle", int(particle), "err", err)
		return statusError
	}
	*num = C.int(len(idx))
	*neighbors = (*C.int)(unsafe.Pointer(unsafe.SliceData(idx)))
	return statusOK
}

// Binding lends a container to native code for exactly one computation.
// Every buffer native code can see is pinned until Release.
type Binding struct {
	c      *nlist.Container
	logger *slog.Logger
	pinner runtime.Pinner

	handle cgo.Handle
	ctx    unsafe.Pointer
	args   *C.kimnl_compute_args

	energy []float64
	forces []float64

	queries  int
	failures int
	released bool
}

// Bind acquires c, pins its buffers and prepares the native argument block.
func Bind(c *nlist.Container, logger *slog.Logger) (*Binding, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := c.Acquire(); err != nil {
		return nil, err
	}

	bufs := c.Buffers()
	b := &Binding{
		c:      c,
		logger: logger,
		energy: make([]float64, 1),
		forces: make([]float64, len(bufs.Coordinates)),
	}

	b.handle = cgo.NewHandle(b)
	b.ctx = C.malloc(C.size_t(unsafe.Sizeof(C.uintptr_t(0))))
	*(*C.uintptr_t)(b.ctx) = C.uintptr_t(b.handle)

	b.args = (*C.kimnl_compute_args)(C.calloc(1, C.size_t(unsafe.Sizeof(C.kimnl_compute_args{}))))
	b.args.number_of_particles = C.int(c.NumParticles())
	b.args.numbering_base = C.int(c.Numbering().Base())
	b.args.species_codes = (*C.int)(pinInt32(&b.pinner, bufs.Species))
	b.args.contributing = (*C.int)(pinInt32(&b.pinner, bufs.Contributing))
	b.args.coordinates = (*C.double)(pinFloat64(&b.pinner, bufs.Coordinates))
	b.args.energy = (*C.double)(pinFloat64(&b.pinner, b.energy))
	b.args.forces = (*C.double)(pinFloat64(&b.pinner, b.forces))
	b.args.get_neighbors = C.kimnl_bridge()
	b.args.context = b.ctx
	for _, idx := range bufs.Neighbors {
		pinInt32(&b.pinner, idx)
	}
	return b, nil
}

// Release unpins the buffers, frees native memory and returns the container
// to its owner. Safe to call more than once.
func (b *Binding) Release() {
	if b.released {
		return
	}
	b.released = true
	b.handle.Delete()
	C.free(b.ctx)
	C.free(unsafe.Pointer(b.args))
	b.ctx, b.args = nil, nil
	b.pinner.Unpin()
	b.c.Done()
}

// Query calls the bridge through its native function pointer, exactly as a
// model would, and copies the result.
func (b *Binding) Query(list, particle int) ([]int32, error) {
	if b.released {
		return nil, fmt.Errorf("query on released binding: %w", atoms.ErrLifetime)
	}
	var num C.int
	var ptr *C.int
	status := C.kimnl_call_get_neighbors(C.kimnl_bridge(), b.ctx, C.int(list), C.int(particle), &num, &ptr)
	if status != statusOK {
		return nil, &atoms.QueryError{List: list, Particle: particle, Reason: fmt.Sprintf("bridge status %d", int(status))}
	}
	if num == 0 {
		return []int32{}, nil
	}
	return append([]int32(nil), unsafe.Slice((*int32)(unsafe.Pointer(ptr)), int(num))...), nil
}

// Queries reports how many callbacks arrived and how many were refused.
func (b *Binding) Queries() (total, refused int) { return b.queries, b.failures }

func pinInt32(p *runtime.Pinner, s []int32) unsafe.Pointer {
	if len(s) == 0 {
		return nil
	}
	p.Pin(&s[0])
	return unsafe.Pointer(&s[0])
}

func pinFloat64(p *runtime.Pinner, s []float64) unsafe.Pointer {
	if len(s) == 0 {
		return nil
	}
	p.Pin(&s[0])
	return unsafe.Pointer(&s[0])
}
