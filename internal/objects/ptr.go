package objects

import "unsafe"

// asPtr converts a concrete object pointer to the unsafe.Pointer a
// value.Word stores. The pointee must embed heap.Header as its first field
// so heap.FromWord's reverse cast lines back up with the real struct.
func asPtr[T any](p *T) unsafe.Pointer { return unsafe.Pointer(p) }
