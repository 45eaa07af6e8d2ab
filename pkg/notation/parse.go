package notation

import (
	"fmt"
	"strings"
)

// ParseError reports malformed notation
type ParseError struct {
	Text string
	Pos  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d in %q: %s", e.Pos, e.Text, e.Msg)
}

var durations = map[byte]float64{
	'w': 1,
	'h': 0.5,
	'q': 0.25,
	'e': 0.125,
	's': 0.0625,
	't': 0.03125,
}

var romans = map[string]int{
	"i": 0, "ii": 1, "iii": 2, "iv": 3, "v": 4, "vi": 5, "vii": 6,
}

// Parser is the default notation parser
type Parser struct{}

// Parse implements the parser collaborator of the sequence engine
func (Parser) Parse(text string, opts Options) (*AST, error) {
	return Parse(text, opts)
}

// Parse turns pattern text into an AST
func Parse(text string, opts Options) (*AST, error) {
	dur := opts.Duration
	if dur <= 0 {
		dur = DefaultDuration
	}
	p := &parser{src: text, dur: dur}
	nodes, err := p.sequence(false)
	if err != nil {
		return nil, err
	}
	return &AST{Text: text, Nodes: nodes}, nil
}

type parser struct {
	src string
	pos int
	dur float64
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	return &ParseError{Text: p.src, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func (p *parser) skipSpace() {
	for !p.eof() && isSpace(p.peek()) {
		p.pos++
	}
}

// sequence reads items until end of input or, inside a group, until the
// closing bracket
func (p *parser) sequence(inGroup bool) ([]Node, error) {
	var nodes []Node
	open := p.pos - 1
	for {
		p.skipSpace()
		if p.eof() {
			if inGroup {
				return nil, p.errorf(open, "unclosed [")
			}
			return nodes, nil
		}
		if p.peek() == ']' {
			if !inGroup {
				return nil, p.errorf(p.pos, "unexpected ]")
			}
			p.pos++
			return nodes, nil
		}
		n, err := p.item()
		if err != nil {
			return nil, err
		}
		if n != nil {
			nodes = append(nodes, n)
		}
	}
}

// item reads one whitespace delimited item with its prefixes
func (p *parser) item() (Node, error) {
	start := p.pos

	// duration prefix: a single duration letter not followed by more letters
	// (except a rest), optionally dotted
	if d, ok := durations[p.peek()]; ok && p.durationPrefix() {
		p.pos++
		if p.peek() == '.' {
			d *= 1.5
			p.pos++
		}
		p.dur = d
		if p.eof() || isSpace(p.peek()) || p.peek() == ']' {
			return &DurationMark{Dur: d}, nil
		}
	}

	octave := 0
marks:
	for !p.eof() {
		switch p.peek() {
		case '^':
			octave++
		case '_':
			octave--
		default:
			break marks
		}
		p.pos++
	}

	var n Node
	var err error
	c := p.peek()
	switch {
	case p.eof():
		return nil, p.errorf(start, "dangling prefix")
	case c == '[':
		if octave != 0 {
			return nil, p.errorf(start, "octave marks cannot prefix a group")
		}
		p.pos++
		n, err = p.group()
	case isDigit(c) || c == '-':
		n, err = p.degrees(octave)
	case isLetter(c):
		n, err = p.word(octave)
	default:
		return nil, p.errorf(p.pos, "unexpected %q", c)
	}
	if err != nil {
		return nil, err
	}
	if !p.eof() && !isSpace(p.peek()) && p.peek() != ']' && p.peek() != '[' {
		return nil, p.errorf(p.pos, "unexpected %q after item", p.peek())
	}
	return n, nil
}

func (p *parser) durationPrefix() bool {
	next := p.pos + 1
	if next >= len(p.src) || !isLetter(p.src[next]) {
		return true
	}
	// "qr" is a quarter rest; "qrr" or "hh" are words
	return (p.src[next] == 'r' || p.src[next] == 'R') && (next+1 >= len(p.src) || !isLetter(p.src[next+1]))
}

func (p *parser) group() (Node, error) {
	slot := p.dur
	children, err := p.sequence(true)
	if err != nil {
		return nil, err
	}
	p.dur = slot
	return &Subdivision{Children: children, Dur: slot}, nil
}

func (p *parser) degrees(octave int) (Node, error) {
	var degs []int
	for !p.eof() {
		c := p.peek()
		neg := false
		if c == '-' {
			if p.pos+1 >= len(p.src) || !isDigit(p.src[p.pos+1]) {
				return nil, p.errorf(p.pos, "- must precede a digit")
			}
			neg = true
			p.pos++
			c = p.peek()
		}
		if !isDigit(c) {
			break
		}
		d := int(c - '0')
		if neg {
			d = -d
		}
		degs = append(degs, d)
		p.pos++
	}
	if len(degs) == 1 {
		return &Degree{Value: degs[0], Octave: octave, Dur: p.dur}, nil
	}
	return &Chord{Degrees: degs, Octave: octave, Dur: p.dur}, nil
}

func (p *parser) word(octave int) (Node, error) {
	start := p.pos
	for !p.eof() && isLetter(p.peek()) {
		p.pos++
	}
	w := p.src[start:p.pos]
	lw := strings.ToLower(w)

	if deg, ok := romans[lw]; ok {
		n := &Roman{Degree: deg, Octave: octave, Dur: p.dur}
		if p.peek() == '7' {
			n.Seventh = true
			p.pos++
		}
		return n, nil
	}
	if octave != 0 {
		return nil, p.errorf(start, "octave marks cannot prefix %q", w)
	}
	if lw == "r" {
		return &Rest{Dur: p.dur}, nil
	}
	if len(w) == 1 {
		return nil, p.errorf(start, "unknown item %q", w)
	}
	return &Sound{Name: w, Dur: p.dur}, nil
}
