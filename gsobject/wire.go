package gsobject

import (
	"encoding/binary"
	"fmt"
	"math"
)

// frameWriter accumulates the body bytes of a single frame before the
// caller prefixes them with tag+length. Keeping body construction
// separate from the encoder's bounded output buffer lets Encode compute
// a frame's total size before committing it, so a frame that would
// overflow the buffer leaves the buffer untouched.
type frameWriter struct {
	buf []byte
}

func (w *frameWriter) uvarint(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	w.buf = append(w.buf, tmp[:n]...)
}

func (w *frameWriter) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *frameWriter) bool8(v bool) { if v { w.u8(1) } else { w.u8(0) } }

func (w *frameWriter) u16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *frameWriter) f32(v float32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], math.Float32bits(v))
	w.buf = append(w.buf, tmp[:]...)
}

func (w *frameWriter) half(h GSHalf) { w.u16(uint16(h)) }

func (w *frameWriter) vec3(v Vec3) {
	w.f32(v.X)
	w.f32(v.Y)
	w.f32(v.Z)
}

func (w *frameWriter) uv(v TextureUV1) {
	w.f32(v.U)
	w.f32(v.V)
}

func (w *frameWriter) sample6(s Sample6) {
	w.half(s.X)
	w.half(s.Y)
	w.half(s.Z)
	w.half(s.VX)
	w.half(s.VY)
	w.half(s.VZ)
}

func (w *frameWriter) transform1(t Transform1) {
	w.vec3(t.Loc)
	w.vec3(t.Rot)
}

func (w *frameWriter) bytes(b []byte) { w.buf = append(w.buf, b...) }

// frameReader parses a single frame's body, bounded to exactly the bytes
// declared by its length prefix so a malformed body can never read past
// its own frame into the next one.
type frameReader struct {
	buf []byte
	pos int
}

func (r *frameReader) remaining() int { return len(r.buf) - r.pos }

func (r *frameReader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.pos:])
	if n <= 0 {
		return 0, fmt.Errorf("%w: truncated varint", ErrDecode)
	}
	r.pos += n
	return v, nil
}

func (r *frameReader) u8() (uint8, error) {
	if r.remaining() < 1 {
		return 0, fmt.Errorf("%w: truncated byte", ErrDecode)
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *frameReader) bool8() (bool, error) {
	v, err := r.u8()
	return v != 0, err
}

func (r *frameReader) u16() (uint16, error) {
	if r.remaining() < 2 {
		return 0, fmt.Errorf("%w: truncated u16", ErrDecode)
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *frameReader) f32() (float32, error) {
	if r.remaining() < 4 {
		return 0, fmt.Errorf("%w: truncated f32", ErrDecode)
	}
	v := math.Float32frombits(binary.BigEndian.Uint32(r.buf[r.pos:]))
	r.pos += 4
	return v, nil
}

func (r *frameReader) half() (GSHalf, error) {
	v, err := r.u16()
	return GSHalf(v), err
}

func (r *frameReader) vec3() (Vec3, error) {
	var v Vec3
	var err error
	if v.X, err = r.f32(); err != nil {
		return v, err
	}
	if v.Y, err = r.f32(); err != nil {
		return v, err
	}
	v.Z, err = r.f32()
	return v, err
}

func (r *frameReader) uv() (TextureUV1, error) {
	var v TextureUV1
	var err error
	if v.U, err = r.f32(); err != nil {
		return v, err
	}
	v.V, err = r.f32()
	return v, err
}

func (r *frameReader) sample6() (Sample6, error) {
	var s Sample6
	var err error
	if s.X, err = r.half(); err != nil {
		return s, err
	}
	if s.Y, err = r.half(); err != nil {
		return s, err
	}
	if s.Z, err = r.half(); err != nil {
		return s, err
	}
	if s.VX, err = r.half(); err != nil {
		return s, err
	}
	if s.VY, err = r.half(); err != nil {
		return s, err
	}
	s.VZ, err = r.half()
	return s, err
}

func (r *frameReader) transform1() (Transform1, error) {
	var t Transform1
	var err error
	if t.Loc, err = r.vec3(); err != nil {
		return t, err
	}
	t.Rot, err = r.vec3()
	return t, err
}
