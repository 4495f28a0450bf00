package codegen

import (
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// compileCounter seeds newCompilationID the same way
// storage/fast_uuid.go's newUUID seeds its counter: a monotonic atomic
// counter mixed with the current time, avoiding crypto/rand's entropy
// stall on a path (JIT compilation) that can run many times per process.
var compileCounter = uint64(time.Now().UnixNano())

// newCompilationID tags one Compile attempt for -trace-jit diagnostics,
// so a disassembly dump and its originating compile event can be
// correlated across a run without needing Compile itself to return
// anything beyond the code bytes.
func newCompilationID() uuid.UUID {
	ctr := atomic.AddUint64(&compileCounter, 1)
	now := uint64(time.Now().UnixNano())
	var b [16]byte
	binary.LittleEndian.PutUint64(b[0:8], ctr)
	binary.LittleEndian.PutUint64(b[8:16], ctr^now^(now<<17))
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return uuid.UUID(b)
}
