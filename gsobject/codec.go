package gsobject

import (
	"encoding/binary"
	"fmt"
	"time"
)

// defaultBufferSize matches a single UDP MTU, keeping one encoded frame
// clear of IP fragmentation on the common path.
const defaultBufferSize = 1500

// Encoder serializes a sequence of GSObject values into a single
// append-only, fixed-capacity byte buffer. It does no I/O.
type Encoder struct {
	max int
	out []byte
}

// NewEncoder returns an Encoder bounded to maxSize bytes. maxSize <= 0
// selects the default single-MTU size.
func NewEncoder(maxSize int) *Encoder {
	if maxSize <= 0 {
		maxSize = defaultBufferSize
	}
	return &Encoder{max: maxSize, out: make([]byte, 0, maxSize)}
}

// Reset clears the buffer for reuse.
func (e *Encoder) Reset() { e.out = e.out[:0] }

// Bytes returns the populated region of the buffer. The returned slice is
// borrowed and only valid until the next Encode or Reset call.
func (e *Encoder) Bytes() []byte { return e.out }

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int { return len(e.out) }

// Encode appends one frame for obj. It returns ErrEncodeFull, leaving the
// buffer unchanged, if the frame would not fit in the remaining space.
func (e *Encoder) Encode(obj GSObject) error {
	body, err := encodeBody(obj)
	if err != nil {
		return err
	}

	var fw frameWriter
	fw.uvarint(uint64(obj.Tag()))
	fw.uvarint(uint64(len(body)))
	fw.bytes(body)

	if len(e.out)+len(fw.buf) > e.max {
		return ErrEncodeFull
	}
	e.out = append(e.out, fw.buf...)
	return nil
}

// Decoder parses a stream of GSObject values out of a borrowed byte
// buffer. It does no I/O; the buffer must remain valid for the lifetime
// of the Decoder.
type Decoder struct {
	buf []byte
	pos int
	now func() time.Time
}

// NewDecoder returns a Decoder over buf. now, if nil, defaults to
// time.Now and is used to expand each decoded time16 field into a full
// DateTimeMs (§4.1, timestamp expansion).
func NewDecoder(buf []byte, now func() time.Time) *Decoder {
	if now == nil {
		now = time.Now
	}
	return &Decoder{buf: buf, now: now}
}

// Remaining reports whether any undecoded bytes remain.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// Decode returns the next object, or ErrExhausted once the buffer has
// been fully consumed. On a malformed frame it returns an error wrapping
// ErrDecode; callers should drop the frame and stop decoding this buffer,
// since the stream position may no longer be frame-aligned.
func (d *Decoder) Decode() (GSObject, error) {
	if d.Remaining() <= 0 {
		return nil, ErrExhausted
	}

	tag, n := binary.Uvarint(d.buf[d.pos:])
	if n <= 0 {
		return nil, fmt.Errorf("%w: truncated tag", ErrDecode)
	}
	d.pos += n

	length, n := binary.Uvarint(d.buf[d.pos:])
	if n <= 0 {
		return nil, fmt.Errorf("%w: truncated length", ErrDecode)
	}
	d.pos += n

	if d.Remaining() < int(length) {
		return nil, fmt.Errorf("%w: body declares %d bytes, only %d remain", ErrDecode, length, d.Remaining())
	}
	body := d.buf[d.pos : d.pos+int(length)]
	d.pos += int(length)

	return decodeBody(Tag(tag), body, d.now())
}

func encodeBody(obj GSObject) ([]byte, error) {
	var fw frameWriter
	switch o := obj.(type) {
	case *Head1:
		fw.uvarint(uint64(o.ObjectId))
		fw.u16(uint16(toTime16(o.Time)))
		fw.sample6(o.Loc)
		fw.sample6(o.Rot)
		fw.bool8(o.IPD != nil)
		if o.IPD != nil {
			fw.half(*o.IPD)
		}
	case *Hand1:
		fw.uvarint(uint64(o.ObjectId))
		fw.u16(uint16(toTime16(o.Time)))
		fw.bool8(o.Left)
		fw.sample6(o.Loc)
		fw.sample6(o.Rot)
	case *Object1:
		fw.uvarint(uint64(o.ObjectId))
		fw.u16(uint16(toTime16(o.Time)))
		fw.vec3(o.Loc)
		fw.vec3(o.Rot)
		fw.vec3(o.Scale)
		fw.bool8(o.ParentId != nil)
		if o.ParentId != nil {
			fw.uvarint(uint64(*o.ParentId))
		}
	case *Mesh1:
		fw.uvarint(uint64(o.ObjectId))
		fw.uvarint(uint64(len(o.Vertices)))
		for _, v := range o.Vertices {
			fw.vec3(v)
		}
		fw.uvarint(uint64(len(o.Normals)))
		for _, v := range o.Normals {
			fw.vec3(v)
		}
		fw.uvarint(uint64(len(o.Textures)))
		for _, v := range o.Textures {
			fw.uv(v)
		}
		fw.uvarint(uint64(len(o.Triangles)))
		for _, v := range o.Triangles {
			fw.uvarint(v)
		}
	case *Hand2:
		fw.uvarint(uint64(o.ObjectId))
		fw.u16(uint16(toTime16(o.Time)))
		fw.bool8(o.Left)
		fw.sample6(o.Loc)
		fw.sample6(o.Rot)
		fw.transform1(o.Wrist)
		for _, t := range o.Thumb {
			fw.transform1(t)
		}
		for _, f := range o.Fingers {
			for _, t := range f.Bones {
				fw.transform1(t)
			}
		}
	case *HeadIPD1:
		fw.half(o.IPD)
	case *UnknownObject:
		fw.bytes(o.Body)
	default:
		return nil, fmt.Errorf("gsobject: unknown GSObject implementation %T", obj)
	}
	return fw.buf, nil
}

func decodeBody(tag Tag, body []byte, now time.Time) (GSObject, error) {
	r := frameReader{buf: body}

	switch tag {
	case TagHead1:
		return decodeHead1(&r, now)
	case TagHand1:
		return decodeHand1(&r, now)
	case TagObject1:
		return decodeObject1(&r, now)
	case TagMesh1:
		return decodeMesh1(&r)
	case TagHand2:
		return decodeHand2(&r, now)
	case TagHeadIPD1:
		h, err := r.half()
		if err != nil {
			return nil, err
		}
		return &HeadIPD1{IPD: h}, nil
	default:
		if tag < TagUnknownMin {
			return nil, fmt.Errorf("%w: reserved tag %d", ErrDecode, tag)
		}
		raw := make([]byte, len(body))
		copy(raw, body)
		return &UnknownObject{RawTag: tag, Body: raw}, nil
	}
}

func decodeHead1(r *frameReader, now time.Time) (GSObject, error) {
	id, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	t, err := r.u16()
	if err != nil {
		return nil, err
	}
	loc, err := r.sample6()
	if err != nil {
		return nil, err
	}
	rot, err := r.sample6()
	if err != nil {
		return nil, err
	}
	present, err := r.bool8()
	if err != nil {
		return nil, err
	}
	var ipd *GSHalf
	if present {
		h, err := r.half()
		if err != nil {
			return nil, err
		}
		ipd = &h
	}
	return &Head1{
		ObjectId: ObjectId(id),
		Time:     expandTime16(time16(t), now),
		Loc:      loc,
		Rot:      rot,
		IPD:      ipd,
	}, nil
}

func decodeHand1(r *frameReader, now time.Time) (GSObject, error) {
	id, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	t, err := r.u16()
	if err != nil {
		return nil, err
	}
	left, err := r.bool8()
	if err != nil {
		return nil, err
	}
	loc, err := r.sample6()
	if err != nil {
		return nil, err
	}
	rot, err := r.sample6()
	if err != nil {
		return nil, err
	}
	return &Hand1{
		ObjectId: ObjectId(id),
		Time:     expandTime16(time16(t), now),
		Left:     left,
		Loc:      loc,
		Rot:      rot,
	}, nil
}

func decodeObject1(r *frameReader, now time.Time) (GSObject, error) {
	id, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	t, err := r.u16()
	if err != nil {
		return nil, err
	}
	loc, err := r.vec3()
	if err != nil {
		return nil, err
	}
	rot, err := r.vec3()
	if err != nil {
		return nil, err
	}
	scale, err := r.vec3()
	if err != nil {
		return nil, err
	}
	hasParent, err := r.bool8()
	if err != nil {
		return nil, err
	}
	var parent *ObjectId
	if hasParent {
		pid, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		p := ObjectId(pid)
		parent = &p
	}
	return &Object1{
		ObjectId: ObjectId(id),
		Time:     expandTime16(time16(t), now),
		Loc:      loc,
		Rot:      rot,
		Scale:    scale,
		ParentId: parent,
	}, nil
}

func decodeMesh1(r *frameReader) (GSObject, error) {
	id, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	vertices, err := decodeVec3Array(r)
	if err != nil {
		return nil, err
	}
	normals, err := decodeVec3Array(r)
	if err != nil {
		return nil, err
	}
	textures, err := decodeUVArray(r)
	if err != nil {
		return nil, err
	}
	triCount, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	triangles := make([]uint64, 0, triCount)
	for i := uint64(0); i < triCount; i++ {
		v, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		triangles = append(triangles, v)
	}
	return &Mesh1{
		ObjectId:  ObjectId(id),
		Vertices:  vertices,
		Normals:   normals,
		Textures:  textures,
		Triangles: triangles,
	}, nil
}

func decodeVec3Array(r *frameReader) ([]Vec3, error) {
	count, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	out := make([]Vec3, 0, count)
	for i := uint64(0); i < count; i++ {
		v, err := r.vec3()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeUVArray(r *frameReader) ([]TextureUV1, error) {
	count, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	out := make([]TextureUV1, 0, count)
	for i := uint64(0); i < count; i++ {
		v, err := r.uv()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeHand2(r *frameReader, now time.Time) (GSObject, error) {
	id, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	t, err := r.u16()
	if err != nil {
		return nil, err
	}
	left, err := r.bool8()
	if err != nil {
		return nil, err
	}
	loc, err := r.sample6()
	if err != nil {
		return nil, err
	}
	rot, err := r.sample6()
	if err != nil {
		return nil, err
	}
	wrist, err := r.transform1()
	if err != nil {
		return nil, err
	}
	var thumb [4]Transform1
	for i := range thumb {
		thumb[i], err = r.transform1()
		if err != nil {
			return nil, err
		}
	}
	var fingers [4]Finger
	for i := range fingers {
		for j := range fingers[i].Bones {
			fingers[i].Bones[j], err = r.transform1()
			if err != nil {
				return nil, err
			}
		}
	}
	return &Hand2{
		ObjectId: ObjectId(id),
		Time:     expandTime16(time16(t), now),
		Left:     left,
		Loc:      loc,
		Rot:      rot,
		Wrist:    wrist,
		Thumb:    thumb,
		Fingers:  fingers,
	}, nil
}
