package cli

import (
	"io"
	"sync"
)

// lockedWriter serialises writes so the revalidation watcher and the REPL
// never interleave within a message.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
