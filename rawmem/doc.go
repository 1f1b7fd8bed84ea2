// Package rawmem provides the allocator's public return type and the two
// value types that sit directly on top of the GPU runtime collaborator:
//
//   - Raw: a handle owning exactly one physical device allocation.
//   - Pointer: an (owner, offset) pair with pointer arithmetic and the
//     device/host copy and memset contract consumers of the allocator use.
//
// Neither type is pool-aware; package pool builds its caching behavior on
// top of Raw and hands callers a Pointer.
package rawmem
