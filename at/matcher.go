package at

import (
	"bytes"
	"fmt"
)

// Match is a command recognized in a line. Payload is only set for
// CmdSetConfig and aliases the scanner's line buffer, so it is valid only
// for the duration of the Handler call.
type Match struct {
	Command Command
	Payload []byte
}

// Matcher finds control commands in a line.
type Matcher interface {
	Match(line []byte) []Match
}

// commands lists the recognized tokens in the order they are checked.
// Every entry is tested independently, so one line may yield several
// matches.
var commands = []struct {
	cmd   Command
	token string
}{
	{CmdSaveFailsafe, TokenSaveFailsafe},
	{CmdQueryConfig, TokenQueryConfig},
	{CmdSleep, TokenSleep},
	{CmdSetConfig, TokenSetConfig},
}

// PrefixMatcher only accepts a command token at the very start of a line.
type PrefixMatcher struct{}

func (PrefixMatcher) Match(line []byte) []Match {
	var out []Match
	for _, c := range commands {
		if !bytes.HasPrefix(line, []byte(c.token)) {
			continue
		}
		m := Match{Command: c.cmd}
		if c.cmd == CmdSetConfig {
			m.Payload = line[len(c.token):]
		}
		out = append(out, m)
	}
	return out
}

// SubstringMatcher accepts a command token anywhere in a line. Garbage in
// front of the token is not rejected.
type SubstringMatcher struct{}

func (SubstringMatcher) Match(line []byte) []Match {
	var out []Match
	for _, c := range commands {
		i := FindPattern(line, []byte(c.token))
		if i < 0 {
			continue
		}
		m := Match{Command: c.cmd}
		if c.cmd == CmdSetConfig {
			m.Payload = line[i+len(c.token):]
		}
		out = append(out, m)
	}
	return out
}

// FindPattern returns the index of the first occurrence of pattern in
// text, or -1.
func FindPattern(text, pattern []byte) int {
	if len(pattern) == 0 {
		return 0
	}
	for i := 0; i+len(pattern) <= len(text); i++ {
		j := 0
		for j < len(pattern) && text[i+j] == pattern[j] {
			j++
		}
		if j == len(pattern) {
			return i
		}
	}
	return -1
}

// MatcherFor returns the matching strategy for a mode name.
func MatcherFor(mode string) (Matcher, error) {
	switch mode {
	case "prefix":
		return PrefixMatcher{}, nil
	case "substring", "":
		return SubstringMatcher{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMatchMode, mode)
	}
}
