package tonnetz

import (
	"fmt"
	"strings"
)

// Letters lists every recognized operator
const Letters = "prlfnsht"

// Op is one parsed operator token
type Op struct {
	Letter    byte
	First     int // 0-based position of the root tone
	Second    int // 0-based position of the comparison tone
	Qualified bool
}

func (o Op) String() string {
	if !o.Qualified {
		return string(o.Letter)
	}
	return fmt.Sprintf("%c%d%d", o.Letter, o.First+1, o.Second+1)
}

func opsString(ops []Op) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = op.String()
	}
	return strings.Join(parts, " ")
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// ParseOps splits an operator string like "plr" or "p12 l13" into tokens.
// Spaces and commas between tokens are ignored.
func ParseOps(s string) ([]Op, error) {
	var ops []Op
	for i := 0; i < len(s); {
		c := s[i]
		if c == ' ' || c == ',' || c == '\t' {
			i++
			continue
		}
		if strings.IndexByte(Letters, c) < 0 {
			return nil, newError(CodeInvalidOperator, fmt.Sprintf("unrecognized operator %q at offset %d", c, i), s, nil)
		}
		op := Op{Letter: c, First: 0, Second: 1}
		i++
		if i < len(s) && isDigit(s[i]) {
			if i+1 >= len(s) || !isDigit(s[i+1]) {
				return nil, newError(CodeInvalidOperator, fmt.Sprintf("operator %q needs two position qualifiers", c), s, nil)
			}
			a, b := int(s[i]-'0'), int(s[i+1]-'0')
			if a == 0 || b == 0 || a == b {
				return nil, newError(CodeInvalidOperator, fmt.Sprintf("bad qualifier %c%c on %q", s[i], s[i+1], c), s, nil)
			}
			op.First, op.Second, op.Qualified = a-1, b-1, true
			i += 2
		}
		ops = append(ops, op)
	}
	if len(ops) == 0 {
		return nil, newError(CodeInvalidOperator, "empty operator string", s, nil)
	}
	return ops, nil
}

// Arity returns the smallest chord size the operators can address
func Arity(ops []Op) int {
	n := 3
	for _, op := range ops {
		n = max(n, op.First+1, op.Second+1)
	}
	return n
}

// Addresses reports whether the operators apply to a chord of the given
// size. Plain letters address triads only; qualified tokens address any
// chord that holds their positions.
func Addresses(ops []Op, size int) bool {
	for _, op := range ops {
		if op.Qualified {
			return size >= Arity(ops)
		}
	}
	return size == 3
}

// Transform applies an operator string to a chord.
//
// A triad addressed only through its root and third is treated as
// (root, quality): the quality is derived once, every letter moves the root
// and flips the quality (except t), and the result is rebuilt as
// (root, root+third, root+fifth).
//
// Any other chord is transformed token by token on the qualified pair. The
// pair is rebuilt from the new root and quality, and every remaining tone
// keeps its interval to the pair's root.
func Transform(chord []int, ops string, space Space) ([]int, error) {
	parsed, err := ParseOps(ops)
	if err != nil {
		return nil, err
	}
	return Apply(chord, parsed, space)
}

// Apply is Transform over already parsed operators
func Apply(chord []int, ops []Op, space Space) ([]int, error) {
	if err := space.Validate(); err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, newError(CodeInvalidOperator, "empty operator string", "", nil)
	}
	pcs := Normalized(chord)
	if len(pcs) < 2 {
		return nil, newError(CodeInvalidChord,
			fmt.Sprintf("a %d-tone chord has no quality", len(pcs)), opsString(ops), pcs)
	}
	if len(pcs) == 3 && triadic(ops) {
		return applyTriad(pcs, ops, space)
	}
	for _, op := range ops {
		next, err := applyPair(pcs, op, space)
		if err != nil {
			return nil, err
		}
		pcs = next
	}
	return pcs, nil
}

func triadic(ops []Op) bool {
	for _, op := range ops {
		if op.First != 0 || op.Second != 1 {
			return false
		}
	}
	return true
}

// step moves a root through one letter of the operator table
func step(root int, q Quality, letter byte, s Space) (int, Quality) {
	var delta int
	switch letter {
	case 'p':
		delta = 0
	case 'r':
		delta = -s.Minor
	case 'l':
		delta = s.Major
	case 'f':
		delta = s.Fifth()
	case 'n':
		delta = -s.Fifth()
	case 's':
		delta = s.Major - s.Minor
	case 'h':
		delta = -s.Major
	case 't':
		return mod(root+6, 12), q
	}
	// the minor column mirrors the major one
	if q == Minor {
		delta = -delta
	}
	return mod(root+delta, 12), q.flip()
}

func applyTriad(pcs []int, ops []Op, space Space) ([]int, error) {
	q, err := QualityOf(pcs, space)
	if err != nil {
		return nil, err
	}
	root := pcs[0]
	for _, op := range ops {
		root, q = step(root, q, op.Letter, space)
	}
	return []int{
		root,
		mod(root+space.Third(q), 12),
		mod(root+space.Fifth(), 12),
	}, nil
}

func applyPair(pcs []int, op Op, space Space) ([]int, error) {
	if op.First >= len(pcs) || op.Second >= len(pcs) {
		return nil, newError(CodeInvalidOperator,
			fmt.Sprintf("%s addresses a tone beyond a %d-tone chord", op, len(pcs)), op.String(), pcs)
	}
	old := pcs[op.First]
	q, ok := qualityOfInterval(old, pcs[op.Second], space)
	if !ok {
		return nil, newError(CodeInvalidChord,
			fmt.Sprintf("tones %d and %d are not a third apart in %v", op.First+1, op.Second+1, space), op.String(), pcs)
	}
	root, q := step(old, q, op.Letter, space)
	out := make([]int, len(pcs))
	for k, n := range pcs {
		out[k] = mod(root+n-old, 12)
	}
	out[op.First] = root
	out[op.Second] = mod(root+space.Third(q), 12)
	return out, nil
}
