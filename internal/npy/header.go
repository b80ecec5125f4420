package npy

import (
	"fmt"
	"strconv"
)

// header holds the three facts the NPY text header must declare.
type header struct {
	descr        string
	fortranOrder bool
	shape        []int
}

// headerScanner walks the ASCII header with a cursor. The header resembles a
// Python dict literal:
//
//	{'descr': '<f4', 'fortran_order': False, 'shape': (3, 4), }
//
// Rather than pattern-matching with text search, the scanner enforces a fixed
// grammar: a braced list of exactly the three known keys (in any order, each
// exactly once) with string / boolean / int-tuple values. Any structural
// deviation fails closed as ErrFormat.
type headerScanner struct {
	data []byte
	pos  int
}

// parseHeader scans one complete header and validates that all three keys are
// present.
func parseHeader(data []byte) (*header, error) {
	s := &headerScanner{data: data}

	var h header
	var haveDescr, haveOrder, haveShape bool

	s.skipSpace()
	if !s.expect('{') {
		return nil, fmt.Errorf("%w: header does not start with '{'", ErrFormat)
	}

	for {
		s.skipSpace()
		if s.peek() == '}' {
			s.pos++
			break
		}

		key, err := s.scanString()
		if err != nil {
			return nil, err
		}
		s.skipSpace()
		if !s.expect(':') {
			return nil, fmt.Errorf("%w: missing ':' after header key %q", ErrFormat, key)
		}
		s.skipSpace()

		switch key {
		case "descr":
			if haveDescr {
				return nil, fmt.Errorf("%w: duplicate header key %q", ErrFormat, key)
			}
			h.descr, err = s.scanString()
			haveDescr = true
		case "fortran_order":
			if haveOrder {
				return nil, fmt.Errorf("%w: duplicate header key %q", ErrFormat, key)
			}
			h.fortranOrder, err = s.scanBool()
			haveOrder = true
		case "shape":
			if haveShape {
				return nil, fmt.Errorf("%w: duplicate header key %q", ErrFormat, key)
			}
			h.shape, err = s.scanShape()
			haveShape = true
		default:
			return nil, fmt.Errorf("%w: unknown header key %q", ErrFormat, key)
		}
		if err != nil {
			return nil, err
		}

		s.skipSpace()
		switch s.peek() {
		case ',':
			s.pos++
		case '}':
			// closing brace handled at loop top
		default:
			return nil, fmt.Errorf("%w: unexpected byte after value for %q", ErrFormat, key)
		}
	}

	// Trailing padding after '}' is spaces and a final newline; anything else
	// means the declared header length was wrong.
	for s.pos < len(s.data) {
		if c := s.data[s.pos]; c != ' ' && c != '\n' {
			return nil, fmt.Errorf("%w: trailing garbage after header dict", ErrFormat)
		}
		s.pos++
	}

	if !haveDescr || !haveOrder || !haveShape {
		return nil, fmt.Errorf("%w: header missing required keys (descr=%v fortran_order=%v shape=%v)",
			ErrFormat, haveDescr, haveOrder, haveShape)
	}

	return &h, nil
}

func (s *headerScanner) peek() byte {
	if s.pos >= len(s.data) {
		return 0
	}
	return s.data[s.pos]
}

func (s *headerScanner) expect(c byte) bool {
	if s.peek() != c {
		return false
	}
	s.pos++
	return true
}

func (s *headerScanner) skipSpace() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c != ' ' && c != '\t' && c != '\n' {
			return
		}
		s.pos++
	}
}

// scanString reads a single-quoted string. The header never contains escaped
// quotes, so a closing quote terminates unconditionally.
func (s *headerScanner) scanString() (string, error) {
	if !s.expect('\'') {
		return "", fmt.Errorf("%w: expected quoted string at header offset %d", ErrFormat, s.pos)
	}
	start := s.pos
	for s.pos < len(s.data) {
		if s.data[s.pos] == '\'' {
			str := string(s.data[start:s.pos])
			s.pos++
			return str, nil
		}
		s.pos++
	}
	return "", fmt.Errorf("%w: unterminated string in header", ErrFormat)
}

func (s *headerScanner) scanBool() (bool, error) {
	if s.hasPrefix("True") {
		s.pos += 4
		return true, nil
	}
	if s.hasPrefix("False") {
		s.pos += 5
		return false, nil
	}
	return false, fmt.Errorf("%w: expected True or False at header offset %d", ErrFormat, s.pos)
}

// scanShape reads an int tuple: "()" (scalar), "(5,)" (single element with
// trailing comma), or "(2, 3, 4)".
func (s *headerScanner) scanShape() ([]int, error) {
	if !s.expect('(') {
		return nil, fmt.Errorf("%w: expected '(' for shape at header offset %d", ErrFormat, s.pos)
	}

	shape := []int{}
	for {
		s.skipSpace()
		if s.peek() == ')' {
			s.pos++
			return shape, nil
		}

		start := s.pos
		for s.pos < len(s.data) && s.data[s.pos] >= '0' && s.data[s.pos] <= '9' {
			s.pos++
		}
		if s.pos == start {
			return nil, fmt.Errorf("%w: expected dimension at header offset %d", ErrFormat, s.pos)
		}
		dim, err := strconv.Atoi(string(s.data[start:s.pos]))
		if err != nil {
			return nil, fmt.Errorf("%w: bad dimension: %v", ErrFormat, err)
		}
		shape = append(shape, dim)

		s.skipSpace()
		switch s.peek() {
		case ',':
			s.pos++
		case ')':
			// closes on next iteration
		default:
			return nil, fmt.Errorf("%w: unexpected byte in shape tuple at offset %d", ErrFormat, s.pos)
		}
	}
}

func (s *headerScanner) hasPrefix(p string) bool {
	if s.pos+len(p) > len(s.data) {
		return false
	}
	return string(s.data[s.pos:s.pos+len(p)]) == p
}
