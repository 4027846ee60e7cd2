package at

// Handler receives the commands recognized by a LineScanner. A non-nil
// error stops dispatching the remaining matches of the line and is returned
// from Scan.
type Handler interface {
	Dispatch(m Match) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(m Match) error

func (f HandlerFunc) Dispatch(m Match) error { return f(m) }

// LineScanner accumulates a byte stream into bounded lines and hands every
// complete line to its Matcher. There is one LineScanner per byte source.
//
// Carriage returns are dropped. A line feed terminates the line, dispatches
// it synchronously and makes Scan return at once: bytes after the first
// line feed of a chunk are not examined. When a line outgrows LineCapacity
// the buffer is discarded and Scan returns early as well.
type LineScanner struct {
	buf     [LineCapacity]byte
	pos     int
	matcher Matcher
	handler Handler
}

// NewLineScanner returns a scanner dispatching matches to h. A nil matcher
// selects SubstringMatcher.
func NewLineScanner(m Matcher, h Handler) *LineScanner {
	if m == nil {
		m = SubstringMatcher{}
	}
	return &LineScanner{matcher: m, handler: h}
}

// Scan consumes p and returns the number of bytes examined.
func (s *LineScanner) Scan(p []byte) (int, error) {
	for n, b := range p {
		switch b {
		case CR:
		case LF:
			err := s.parse(s.buf[:s.pos])
			s.pos = 0
			return n + 1, err
		default:
			if s.pos >= len(s.buf) {
				// overflow, drop the line
				s.pos = 0
				return n + 1, nil
			}
			s.buf[s.pos] = b
			s.pos++
		}
	}
	return len(p), nil
}

// Buffered returns the length of the pending, unterminated line.
func (s *LineScanner) Buffered() int {
	return s.pos
}

// Reset drops the pending line.
func (s *LineScanner) Reset() {
	s.pos = 0
}

func (s *LineScanner) parse(line []byte) error {
	if s.handler == nil {
		return nil
	}
	for _, m := range s.matcher.Match(line) {
		if err := s.handler.Dispatch(m); err != nil {
			return err
		}
	}
	return nil
}
