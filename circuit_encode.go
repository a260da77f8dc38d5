package bulletproofs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"os"
	"strconv"
	"strings"

	"github.com/bwesterb/go-ristretto"
	"github.com/dchest/blake2b"
)

// scalarMarker precedes every serialized scalar in the circuit grammar.
const scalarMarker = 0x20

// encodingWidth is the byte count of a row index in the serialized form,
// ceil(bitlength(nMuls)/8) clamped to [1, 8].
func encodingWidth(nMuls uint64) int {
	w := (bits.Len64(nMuls) + 7) / 8
	if w < 1 {
		w = 1
	}
	if w > 8 {
		w = 8
	}
	return w
}

func putUintN(buf []byte, v uint64, width int) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:width]...)
}

type circuitReader struct {
	data []byte
	off  int
}

func (r *circuitReader) uintN(width int) (uint64, error) {
	if r.off+width > len(r.data) {
		return 0, errors.New("truncated circuit")
	}
	var tmp [8]byte
	copy(tmp[:], r.data[r.off:r.off+width])
	r.off += width
	return binary.LittleEndian.Uint64(tmp[:]), nil
}

func (r *circuitReader) scalar() (*ristretto.Scalar, error) {
	if r.off+1+32 > len(r.data) {
		return nil, errors.New("truncated circuit")
	}
	if r.data[r.off] != scalarMarker {
		return nil, fmt.Errorf("bad scalar marker 0x%02x at offset %d", r.data[r.off], r.off)
	}
	var buf [32]byte
	copy(buf[:], r.data[r.off+1:r.off+33])
	r.off += 33
	var s ristretto.Scalar
	return s.SetBytes(&buf), nil
}

// EncodeCircuit serializes a circuit in the versioned binary grammar:
//
//	version u32 | n_commitments u32 | n_multiplications u64 | n_bits u64 | n_constraints u64
//	for each wire family L, R, O, for each gate:
//	    count (row_width bytes), then count * (constraint_index (row_width bytes) | 0x20 | scalar)
//	n_constraints * (0x20 | scalar)
//
// where row_width = encodingWidth(n_multiplications). All integers are
// little-endian.
func EncodeCircuit(c *Circuit) ([]byte, error) {
	if c == nil {
		return nil, errors.New("nil circuit")
	}
	width := encodingWidth(uint64(c.NGates))
	limit := uint64(1) << (8 * width)

	var buf []byte
	var tmp [8]byte
	binary.LittleEndian.PutUint32(tmp[:4], CircuitVersion)
	buf = append(buf, tmp[:4]...)
	binary.LittleEndian.PutUint32(tmp[:4], uint32(c.NCommits))
	buf = append(buf, tmp[:4]...)
	binary.LittleEndian.PutUint64(tmp[:], uint64(c.NGates))
	buf = append(buf, tmp[:]...)
	binary.LittleEndian.PutUint64(tmp[:], uint64(c.NBits))
	buf = append(buf, tmp[:]...)
	binary.LittleEndian.PutUint64(tmp[:], uint64(c.NConstraints))
	buf = append(buf, tmp[:]...)

	for _, rows := range [][][]Term{c.WL, c.WR, c.WO} {
		for _, row := range rows {
			if uint64(len(row)) >= limit {
				return nil, fmt.Errorf("row with %d terms does not fit row width %d", len(row), width)
			}
			buf = putUintN(buf, uint64(len(row)), width)
			for _, t := range row {
				if t.Constraint >= limit {
					return nil, fmt.Errorf("constraint index %d does not fit row width %d", t.Constraint, width)
				}
				buf = putUintN(buf, t.Constraint, width)
				buf = append(buf, scalarMarker)
				buf = append(buf, t.Coeff.Bytes()...)
			}
		}
	}
	for _, k := range c.Constants {
		buf = append(buf, scalarMarker)
		buf = append(buf, k.Bytes()...)
	}

	if len(buf) > MaxCircuit {
		return nil, fmt.Errorf("encoded circuit %d bytes exceeds cap %d", len(buf), MaxCircuit)
	}
	return buf, nil
}

// DecodeCircuit parses the binary grammar, rejecting version mismatches,
// out-of-range constraint indices, oversized declarations and truncation.
// It never returns a partially built circuit.
func DecodeCircuit(data []byte) (*Circuit, error) {
	if len(data) > MaxCircuit {
		return nil, fmt.Errorf("circuit encoding %d bytes exceeds cap %d", len(data), MaxCircuit)
	}
	if len(data) < 32 {
		return nil, errors.New("truncated circuit header")
	}

	version := binary.LittleEndian.Uint32(data[0:4])
	if version != CircuitVersion {
		return nil, fmt.Errorf("circuit version %d, want %d", version, CircuitVersion)
	}
	nCommits := binary.LittleEndian.Uint32(data[4:8])
	nMuls := binary.LittleEndian.Uint64(data[8:16])
	nBits := binary.LittleEndian.Uint64(data[16:24])
	nConstraints := binary.LittleEndian.Uint64(data[24:32])

	if nMuls == 0 || nMuls > 1<<32 {
		return nil, fmt.Errorf("implausible gate count %d", nMuls)
	}
	// Each constraint costs at least 33 bytes of constants, each gate at
	// least one count byte per family; anything claiming more than the
	// buffer holds is malformed.
	if nConstraints > uint64(len(data))/33 {
		return nil, fmt.Errorf("implausible constraint count %d", nConstraints)
	}
	if uint64(nCommits)+nBits > nMuls {
		return nil, fmt.Errorf("%d bit gates + %d commitments exceed %d gates", nBits, nCommits, nMuls)
	}

	c, err := NewCircuit(int(nMuls), int(nBits), int(nCommits), int(nConstraints))
	if err != nil {
		return nil, err
	}

	width := encodingWidth(nMuls)
	r := &circuitReader{data: data, off: 32}
	for _, rows := range [][][]Term{c.WL, c.WR, c.WO} {
		for i := range rows {
			count, err := r.uintN(width)
			if err != nil {
				return nil, err
			}
			for j := uint64(0); j < count; j++ {
				idx, err := r.uintN(width)
				if err != nil {
					return nil, err
				}
				if idx >= nConstraints {
					return nil, fmt.Errorf("constraint index %d out of range [0,%d)", idx, nConstraints)
				}
				coeff, err := r.scalar()
				if err != nil {
					return nil, err
				}
				rows[i] = append(rows[i], Term{Constraint: idx, Coeff: coeff})
			}
		}
	}
	for q := uint64(0); q < nConstraints; q++ {
		k, err := r.scalar()
		if err != nil {
			return nil, err
		}
		c.Constants[q] = k
	}
	if r.off != len(data) {
		return nil, fmt.Errorf("%d trailing bytes after circuit", len(data)-r.off)
	}
	return c, nil
}

// DecodeCircuitFile reads a named file fully into memory and decodes it.
func DecodeCircuitFile(fname string) (*Circuit, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	return DecodeCircuit(data)
}

// circuitHash is the circuit's transcript identity: a BLAKE2b digest over
// its binary encoding.
func circuitHash(c *Circuit) ([]byte, error) {
	data, err := EncodeCircuit(c)
	if err != nil {
		return nil, err
	}
	hash := blake2b.New512()
	hash.Write([]byte(CIRCUIT_HASH_DOMAIN_TAG))
	hash.Write(data)
	return hash.Sum(nil), nil
}

// EncodeAssignment serializes a wire assignment: version, gate count, then
// the raw L, R and O scalars.
func EncodeAssignment(a *CircuitAssignment) ([]byte, error) {
	if a == nil {
		return nil, errors.New("nil assignment")
	}
	n := len(a.AL)
	var buf []byte
	var tmp [8]byte
	binary.LittleEndian.PutUint32(tmp[:4], CircuitVersion)
	buf = append(buf, tmp[:4]...)
	binary.LittleEndian.PutUint64(tmp[:], uint64(n))
	buf = append(buf, tmp[:]...)
	for _, vec := range [][]*ristretto.Scalar{a.AL, a.AR, a.AO} {
		for _, s := range vec {
			buf = append(buf, s.Bytes()...)
		}
	}
	return buf, nil
}

func DecodeAssignment(data []byte) (*CircuitAssignment, error) {
	if len(data) < 12 {
		return nil, errors.New("truncated assignment header")
	}
	version := binary.LittleEndian.Uint32(data[0:4])
	if version != CircuitVersion {
		return nil, fmt.Errorf("assignment version %d, want %d", version, CircuitVersion)
	}
	n := binary.LittleEndian.Uint64(data[4:12])
	if n == 0 || n > uint64(MaxCircuit/(3*32)) {
		return nil, fmt.Errorf("implausible wire count %d", n)
	}
	want := 12 + 3*32*int(n)
	if len(data) != want {
		return nil, fmt.Errorf("assignment length %d, want %d", len(data), want)
	}

	read := func(off int) []*ristretto.Scalar {
		out := make([]*ristretto.Scalar, n)
		for i := 0; i < int(n); i++ {
			var buf [32]byte
			copy(buf[:], data[off+32*i:off+32*i+32])
			var s ristretto.Scalar
			out[i] = s.SetBytes(&buf)
		}
		return out
	}
	stride := 32 * int(n)
	return &CircuitAssignment{
		AL: read(12),
		AR: read(12 + stride),
		AO: read(12 + 2*stride),
	}, nil
}

// DecodeAssignmentFile reads a named file fully into memory and decodes it.
func DecodeAssignmentFile(fname string) (*CircuitAssignment, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	return DecodeAssignment(data)
}

// ParseCircuit builds a circuit from a human-readable description. The
// grammar is
//
//	nGates,nBits,nCommits,nConstraints; <equation>; <equation>; ...
//
// with one equation per constraint, e.g. "L0 + 2*R1 - O2 = 5". This is a
// construction convenience, documented slow; it only promises an
// equivalent in-memory circuit, not any particular encoding.
func ParseCircuit(description string) (*Circuit, error) {
	parts := strings.Split(description, ";")
	if len(parts) == 0 {
		return nil, errors.New("empty circuit description")
	}

	dims := strings.Split(parts[0], ",")
	if len(dims) != 4 {
		return nil, fmt.Errorf("header needs 4 dimensions, got %d", len(dims))
	}
	var nums [4]int
	for i, d := range dims {
		v, err := strconv.Atoi(strings.TrimSpace(d))
		if err != nil {
			return nil, fmt.Errorf("bad dimension %q: %w", d, err)
		}
		nums[i] = v
	}
	c, err := NewCircuit(nums[0], nums[1], nums[2], nums[3])
	if err != nil {
		return nil, err
	}

	eqs := parts[1:]
	// Trailing semicolon leaves one empty tail.
	if len(eqs) > 0 && strings.TrimSpace(eqs[len(eqs)-1]) == "" {
		eqs = eqs[:len(eqs)-1]
	}
	if len(eqs) != c.NConstraints {
		return nil, fmt.Errorf("%d equations for %d constraints", len(eqs), c.NConstraints)
	}

	for q, eq := range eqs {
		sides := strings.Split(eq, "=")
		if len(sides) != 2 {
			return nil, fmt.Errorf("constraint %d: want exactly one '='", q)
		}
		rhs, err := strconv.ParseInt(strings.TrimSpace(sides[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("constraint %d: bad constant: %w", q, err)
		}
		// Stored form is sum(terms) + constant = 0.
		k := int64ToScalar(-rhs)
		if err := c.SetConstant(q, k); err != nil {
			return nil, err
		}

		for _, tok := range strings.Split(strings.ReplaceAll(sides[0], "-", "+-"), "+") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			if err := parseTerm(c, q, tok); err != nil {
				return nil, fmt.Errorf("constraint %d: %w", q, err)
			}
		}
	}
	return c, nil
}

func parseTerm(c *Circuit, q int, tok string) error {
	neg := strings.HasPrefix(tok, "-")
	tok = strings.TrimSpace(strings.TrimPrefix(tok, "-"))

	coeff := uint64(1)
	if star := strings.Index(tok, "*"); star >= 0 {
		v, err := strconv.ParseUint(strings.TrimSpace(tok[:star]), 10, 64)
		if err != nil {
			return fmt.Errorf("bad coefficient %q: %w", tok[:star], err)
		}
		coeff = v
		tok = strings.TrimSpace(tok[star+1:])
	}
	if len(tok) < 2 {
		return fmt.Errorf("bad term %q", tok)
	}

	var family WireFamily
	switch tok[0] {
	case 'L':
		family = WireLeft
	case 'R':
		family = WireRight
	case 'O':
		family = WireOutput
	default:
		return fmt.Errorf("unknown wire family %q", tok[:1])
	}
	gate, err := strconv.Atoi(tok[1:])
	if err != nil {
		return fmt.Errorf("bad gate index %q: %w", tok[1:], err)
	}

	s := uint64ToScalar(coeff)
	if neg {
		s = negScalar(s)
	}
	return c.AddTerm(family, gate, q, s)
}

func int64ToScalar(v int64) *ristretto.Scalar {
	if v >= 0 {
		return uint64ToScalar(uint64(v))
	}
	return negScalar(uint64ToScalar(uint64(-v)))
}
