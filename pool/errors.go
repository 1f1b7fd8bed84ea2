package pool

import "errors"

// ErrInvalidFree is returned by DevicePool.Free when address is absent from
// the in-use map — a programmer error, not a runtime condition (spec.md
// §7's InvalidFreeAddress).
var ErrInvalidFree = errors.New("pool: cannot free out-of-pool memory")

// ErrInvalidArgument covers negative sizes and other caller-supplied
// argument errors (spec.md §7's InvalidArgument). Unlike the assertions
// spec.md describes, this module returns it rather than panicking: Go has
// no disable-in-release assert mechanism, and these can originate from
// caller input rather than only programmer error inside this module.
var ErrInvalidArgument = errors.New("pool: invalid argument")

// ErrNoCurrentAllocator is returned by Alloc when no current allocator has
// been installed via SetCurrentAllocator.
var ErrNoCurrentAllocator = errors.New("pool: no current allocator configured")
