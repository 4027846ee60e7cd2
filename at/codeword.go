package at

// Selector receives the selector index that followed a codeword.
type Selector interface {
	Select(index int) error
}

// SelectorFunc adapts a function to the Selector interface.
type SelectorFunc func(index int) error

func (f SelectorFunc) Select(index int) error { return f(index) }

// CodewordScanner recognizes a fixed codeword anywhere in a byte stream,
// without line framing and across arbitrary chunk boundaries. The byte
// following the codeword is read as a decimal selector digit.
//
// On a mismatch the scanner resumes one byte after the start of the failed
// match instead of discarding everything it has seen, so overlapping
// candidates such as "++++AT?" are still found.
type CodewordScanner struct {
	word     []byte
	wildcard byte
	held     []byte
	selector bool
	target   Selector
}

// NewCodewordScanner returns a scanner for the default baud codeword.
func NewCodewordScanner(target Selector) *CodewordScanner {
	return NewCodewordScannerFor(Codeword, Wildcard, target)
}

// NewCodewordScannerFor returns a scanner for word, where every occurrence
// of wildcard in word matches any byte.
func NewCodewordScannerFor(word string, wildcard byte, target Selector) *CodewordScanner {
	return &CodewordScanner{
		word:     []byte(word),
		wildcard: wildcard,
		held:     make([]byte, 0, len(word)),
		target:   target,
	}
}

// Scan feeds p through the scanner. Every byte is examined; the first
// error returned by the Selector stops the scan.
func (s *CodewordScanner) Scan(p []byte) error {
	for _, b := range p {
		if s.selector {
			s.selector = false
			index, ok := selectorIndex(b)
			if !ok {
				continue
			}
			if s.target != nil {
				if err := s.target.Select(index); err != nil {
					return err
				}
			}
			continue
		}
		if s.push(b) {
			s.selector = true
		}
	}
	return nil
}

// Matched returns the current match length.
func (s *CodewordScanner) Matched() int {
	return len(s.held)
}

// Reset forgets any partial match.
func (s *CodewordScanner) Reset() {
	s.held = s.held[:0]
	s.selector = false
}

// push extends the current match with b and reports whether the codeword
// is now complete.
func (s *CodewordScanner) push(b byte) bool {
	if s.accepts(len(s.held), b) {
		s.held = append(s.held, b)
		if len(s.held) == len(s.word) {
			s.held = s.held[:0]
			return true
		}
		return false
	}
	if len(s.held) == 0 {
		return false
	}
	// Replaying the tail is always shorter than the codeword, so it can
	// never complete a match by itself.
	replay := append([]byte(nil), s.held[1:]...)
	s.held = s.held[:0]
	for _, r := range replay {
		s.push(r)
	}
	return s.push(b)
}

func (s *CodewordScanner) accepts(pos int, b byte) bool {
	want := s.word[pos]
	return want == s.wildcard || want == b
}

func selectorIndex(b byte) (int, bool) {
	if b < '0' || b > '9' {
		return 0, false
	}
	return int(b - '0'), true
}
