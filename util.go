package bulletproofs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bwesterb/go-ristretto"
)

type ScalarExp struct {
	X        *ristretto.Scalar
	NextExpX *ristretto.Scalar
}

func NewScalarExp(x *ristretto.Scalar) *ScalarExp {
	var one ristretto.Scalar
	return &ScalarExp{
		X:        x,
		NextExpX: one.SetOne(),
	}
}

func (s *ScalarExp) Next() *ristretto.Scalar {
	var zero ristretto.Scalar
	zero.Add(&zero, s.NextExpX)
	s.NextExpX.Mul(s.NextExpX, s.X)
	return &zero
}

// powersOf returns [1, x, x^2, ..., x^(n-1)].
func powersOf(x *ristretto.Scalar, n int) []*ristretto.Scalar {
	exp := NewScalarExp(x)
	out := make([]*ristretto.Scalar, n)
	for i := 0; i < n; i++ {
		out[i] = exp.Next()
	}
	return out
}

// sumOfPowers returns 1 + x + ... + x^(n-1).
func sumOfPowers(x *ristretto.Scalar, n int) *ristretto.Scalar {
	var sum ristretto.Scalar
	sum.SetZero()
	exp := NewScalarExp(x)
	for i := 0; i < n; i++ {
		sum.Add(&sum, exp.Next())
	}
	return &sum
}

func ScalarExpVartime(x *ristretto.Scalar, n uint64) *ristretto.Scalar {
	var result, aux ristretto.Scalar
	result.SetOne()
	aux.SetZero()
	aux.Add(&aux, x)

	for n > 0 {
		bit := n & 1
		if bit == 1 {
			result.Mul(&result, &aux)
		}
		n = n >> 1
		aux.Mul(&aux, &aux)
	}
	return &result
}

func innerProduct(a []*ristretto.Scalar, b []*ristretto.Scalar) *ristretto.Scalar {
	if len(a) != len(b) {
		panic(fmt.Sprintf("innerProduct lengths of vectors do not match %d, %d", len(a), len(b)))
	}

	var zero ristretto.Scalar
	zero.SetZero()
	for i := range a {
		var r ristretto.Scalar
		zero.Add(&zero, r.Mul(a[i], b[i]))
	}
	return &zero
}

func addVec(a []*ristretto.Scalar, b []*ristretto.Scalar) []*ristretto.Scalar {
	if len(a) != len(b) {
		panic(fmt.Sprintf("addVec lengths of vectors do not match %d, %d", len(a), len(b)))
	}

	out := make([]*ristretto.Scalar, len(a))
	for i := range a {
		var r ristretto.Scalar
		out[i] = r.Add(a[i], b[i])
	}
	return out
}

func zeroVec(n int) []*ristretto.Scalar {
	out := make([]*ristretto.Scalar, n)
	for i := 0; i < n; i++ {
		var zero ristretto.Scalar
		zero.SetZero()
		out[i] = &zero
	}
	return out
}

func cloneScalar(s *ristretto.Scalar) *ristretto.Scalar {
	var zero ristretto.Scalar
	zero.SetZero()
	return zero.Add(&zero, s)
}

func clonePoint(p *ristretto.Point) *ristretto.Point {
	var zero ristretto.Point
	zero.SetZero()
	return zero.Add(&zero, p)
}

func negScalar(s *ristretto.Scalar) *ristretto.Scalar {
	var zero ristretto.Scalar
	zero.SetZero()
	var out ristretto.Scalar
	return out.Sub(&zero, s)
}

// scalarFromCanonicalBytes parses a 32-byte little-endian scalar, rejecting
// any encoding that is not the canonical reduced form. SetBytes masks and
// reduces silently, so a proof scalar is accepted only when re-encoding it
// reproduces the input exactly.
func scalarFromCanonicalBytes(data []byte) (*ristretto.Scalar, error) {
	if len(data) != 32 {
		return nil, fmt.Errorf("scalar length %d, want 32", len(data))
	}
	var buf [32]byte
	copy(buf[:], data)
	var s ristretto.Scalar
	s.SetBytes(&buf)
	if !bytes.Equal(s.Bytes(), data) {
		return nil, errors.New("non-canonical scalar encoding")
	}
	return &s, nil
}

func uint64ToScalar(i uint64) *ristretto.Scalar {
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[:], i)
	var s ristretto.Scalar
	return s.SetBytes(&buf)
}

// scalarToUint64 interprets s as a uint64, failing if the scalar does not
// fit in 64 bits.
func scalarToUint64(s *ristretto.Scalar) (uint64, bool) {
	buf := s.Bytes()
	if len(buf) != 32 {
		return 0, false
	}
	for _, b := range buf[8:] {
		if b != 0 {
			return 0, false
		}
	}
	return binary.LittleEndian.Uint64(buf[:8]), true
}

type VecPoly1 struct {
	As []*ristretto.Scalar
	Bs []*ristretto.Scalar
}

func ZeroVecPoly1(n int64) *VecPoly1 {
	vec := &VecPoly1{As: make([]*ristretto.Scalar, n), Bs: make([]*ristretto.Scalar, n)}
	for i := 0; i < int(n); i++ {
		var r1, r2 ristretto.Scalar
		r1.SetZero()
		r2.SetZero()

		vec.As[i] = &r1
		vec.Bs[i] = &r2
	}
	return vec
}

func (v *VecPoly1) InnerProduct(rhs *VecPoly1) *Poly2 {
	t0 := innerProduct(v.As, rhs.As)
	t2 := innerProduct(v.Bs, rhs.Bs)

	l0_plus_l1 := addVec(v.As, v.Bs)
	r0_plus_r1 := addVec(rhs.As, rhs.Bs)

	var t1 ristretto.Scalar
	t1.Sub(innerProduct(l0_plus_l1, r0_plus_r1), t0)
	t1.Sub(&t1, t2)

	return &Poly2{
		A: t0,
		B: &t1,
		C: t2,
	}
}

func (v *VecPoly1) Eval(x *ristretto.Scalar) []*ristretto.Scalar {
	out := make([]*ristretto.Scalar, len(v.As))
	for i := range v.As {
		var r ristretto.Scalar
		r.Mul(v.Bs[i], x)
		out[i] = r.Add(v.As[i], &r)
	}
	return out
}

type Poly2 struct {
	A *ristretto.Scalar
	B *ristretto.Scalar
	C *ristretto.Scalar
}

// self.0 + x * (self.1 + x * self.2)
func (p *Poly2) Eval(x *ristretto.Scalar) *ristretto.Scalar {
	var r ristretto.Scalar
	r.Mul(x, p.C)
	r.Add(p.B, &r)
	r.Mul(x, &r)
	return r.Add(p.A, &r)
}

// VecPoly3 is a vector polynomial of degree 3, the shape of l(X) and r(X)
// in the circuit argument.
type VecPoly3 struct {
	T0 []*ristretto.Scalar
	T1 []*ristretto.Scalar
	T2 []*ristretto.Scalar
	T3 []*ristretto.Scalar
}

func ZeroVecPoly3(n int) *VecPoly3 {
	return &VecPoly3{
		T0: zeroVec(n),
		T1: zeroVec(n),
		T2: zeroVec(n),
		T3: zeroVec(n),
	}
}

// InnerProduct multiplies two degree-3 vector polynomials into a degree-6
// scalar polynomial, term by term.
func (v *VecPoly3) InnerProduct(rhs *VecPoly3) *Poly6 {
	lhs := [4][]*ristretto.Scalar{v.T0, v.T1, v.T2, v.T3}
	r := [4][]*ristretto.Scalar{rhs.T0, rhs.T1, rhs.T2, rhs.T3}

	var coeffs [7]*ristretto.Scalar
	for i := range coeffs {
		var zero ristretto.Scalar
		zero.SetZero()
		coeffs[i] = &zero
	}
	for i := 0; i <= 3; i++ {
		for j := 0; j <= 3; j++ {
			coeffs[i+j].Add(coeffs[i+j], innerProduct(lhs[i], r[j]))
		}
	}
	return &Poly6{
		T1: coeffs[1],
		T2: coeffs[2],
		T3: coeffs[3],
		T4: coeffs[4],
		T5: coeffs[5],
		T6: coeffs[6],
	}
}

func (v *VecPoly3) Eval(x *ristretto.Scalar) []*ristretto.Scalar {
	n := len(v.T0)
	out := make([]*ristretto.Scalar, n)
	for i := 0; i < n; i++ {
		// t0 + x*(t1 + x*(t2 + x*t3))
		var r ristretto.Scalar
		r.Mul(x, v.T3[i])
		r.Add(v.T2[i], &r)
		r.Mul(x, &r)
		r.Add(v.T1[i], &r)
		r.Mul(x, &r)
		out[i] = r.Add(v.T0[i], &r)
	}
	return out
}

// Poly6 is a degree-6 scalar polynomial with zero constant term, the shape
// of t(X) in the circuit argument.
type Poly6 struct {
	T1 *ristretto.Scalar
	T2 *ristretto.Scalar
	T3 *ristretto.Scalar
	T4 *ristretto.Scalar
	T5 *ristretto.Scalar
	T6 *ristretto.Scalar
}

func (p *Poly6) Eval(x *ristretto.Scalar) *ristretto.Scalar {
	// x*(t1 + x*(t2 + x*(t3 + x*(t4 + x*(t5 + x*t6)))))
	var r ristretto.Scalar
	r.Mul(x, p.T6)
	r.Add(p.T5, &r)
	r.Mul(x, &r)
	r.Add(p.T4, &r)
	r.Mul(x, &r)
	r.Add(p.T3, &r)
	r.Mul(x, &r)
	r.Add(p.T2, &r)
	r.Mul(x, &r)
	r.Add(p.T1, &r)
	var out ristretto.Scalar
	return out.Mul(x, &r)
}

func resizeUint64ToPow2(vec []uint64) []uint64 {
	l := nextPowerOfTwo(len(vec))
	for i := len(vec); i < l; i++ {
		vec = append(vec, vec[i-1])
	}
	return vec
}

func resizeScalarToPow2(vec []*ristretto.Scalar) []*ristretto.Scalar {
	l := nextPowerOfTwo(len(vec))
	for i := len(vec); i < l; i++ {
		vec = append(vec, cloneScalar(vec[i-1]))
	}
	return vec
}

func resizePointToPow2(vec []*ristretto.Point) []*ristretto.Point {
	l := nextPowerOfTwo(len(vec))
	for i := len(vec); i < l; i++ {
		vec = append(vec, clonePoint(vec[i-1]))
	}
	return vec
}

func nextPowerOfTwo(v int) int {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}

func isPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}

// log2 of a power of two.
func log2(v int) int {
	k := 0
	for v > 1 {
		v >>= 1
		k++
	}
	return k
}
