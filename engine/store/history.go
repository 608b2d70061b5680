package store

import "time"

// DefaultHistorySize bounds the dispatch history.
const DefaultHistorySize = 256

// Entry records one dispatch for diagnostics.
type Entry struct {
	Type  string
	Paths []string
	At    time.Time
	Err   string // empty on success
}

// history is a fixed-size ring of entries.
type history struct {
	buf   []Entry
	start int
	n     int
}

func newHistory(size int) *history {
	if size < 0 {
		size = 0
	}
	return &history{buf: make([]Entry, size)}
}

func (h *history) add(e Entry) {
	if len(h.buf) == 0 {
		return
	}
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = e
		h.n++
		return
	}
	h.buf[h.start] = e
	h.start = (h.start + 1) % len(h.buf)
}

func (h *history) entries() []Entry {
	out := make([]Entry, 0, h.n)
	for i := 0; i < h.n; i++ {
		out = append(out, h.buf[(h.start+i)%len(h.buf)])
	}
	return out
}
