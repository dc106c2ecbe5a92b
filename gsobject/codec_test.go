package gsobject

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
}

func roundTrip(t *testing.T, obj GSObject) GSObject {
	t.Helper()
	enc := NewEncoder(defaultBufferSize)
	require.NoError(t, enc.Encode(obj))

	dec := NewDecoder(enc.Bytes(), fixedNow)
	got, err := dec.Decode()
	require.NoError(t, err)

	_, err = dec.Decode()
	require.ErrorIs(t, err, ErrExhausted)
	return got
}

func TestRoundTrip_Head1(t *testing.T) {
	ipd := HalfFromFloat32(3.140625)
	want := &Head1{
		ObjectId: 7,
		Time:     DateTimeMsFromTime(fixedNow()),
		Loc:      Sample6{X: HalfFromFloat32(1.1), Y: HalfFromFloat32(0.2), Z: HalfFromFloat32(30)},
		Rot:      Sample6{},
		IPD:      &ipd,
	}
	got := roundTrip(t, want)
	assert.True(t, Equal(want, got))

	gotHead, ok := got.(*Head1)
	require.True(t, ok)
	assert.Equal(t, GSHalf(0x4248), *gotHead.IPD)
	assert.InDelta(t, 3.140625, gotHead.IPD.ToFloat32(), 1e-6)
}

func TestRoundTrip_Head1_NoIPD(t *testing.T) {
	want := &Head1{ObjectId: 1, Time: DateTimeMsFromTime(fixedNow())}
	got := roundTrip(t, want)
	assert.True(t, Equal(want, got))
	assert.Nil(t, got.(*Head1).IPD)
}

func TestRoundTrip_Hand1(t *testing.T) {
	want := &Hand1{ObjectId: 9, Time: DateTimeMsFromTime(fixedNow()), Left: true}
	got := roundTrip(t, want)
	assert.True(t, Equal(want, got))
}

func TestRoundTrip_Object1_NoParent(t *testing.T) {
	want := &Object1{
		ObjectId: 1,
		Time:     DateTimeMsFromTime(fixedNow()),
		Loc:      Vec3{X: 1, Y: 2, Z: 3},
		Rot:      Vec3{X: 4, Y: 5, Z: 6},
		Scale:    Vec3{X: 7, Y: 8, Z: 9},
	}
	got := roundTrip(t, want)
	assert.True(t, Equal(want, got))
	assert.Nil(t, got.(*Object1).ParentId)
}

func TestRoundTrip_Object1_WithParent(t *testing.T) {
	parent := ObjectId(42)
	want := &Object1{
		ObjectId: 2,
		Time:     DateTimeMsFromTime(fixedNow()),
		ParentId: &parent,
	}
	got := roundTrip(t, want)
	assert.True(t, Equal(want, got))
	require.NotNil(t, got.(*Object1).ParentId)
	assert.Equal(t, parent, *got.(*Object1).ParentId)
}

func TestRoundTrip_Mesh1(t *testing.T) {
	want := &Mesh1{
		ObjectId:  3,
		Vertices:  []Loc1{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 1}},
		Normals:   []Norm1{{X: 0, Y: 1, Z: 0}},
		Textures:  []TextureUV1{{U: 0, V: 0}, {U: 1, V: 1}},
		Triangles: []uint64{0, 1, 2},
	}
	got := roundTrip(t, want)
	assert.True(t, Equal(want, got))
}

func TestRoundTrip_Mesh1_Empty(t *testing.T) {
	want := &Mesh1{ObjectId: 4}
	got := roundTrip(t, want)
	assert.True(t, Equal(want, got))
}

func TestRoundTrip_Hand2(t *testing.T) {
	want := &Hand2{
		ObjectId: 5,
		Time:     DateTimeMsFromTime(fixedNow()),
		Left:     false,
		Wrist:    Transform1{Loc: Vec3{X: 1}, Rot: Vec3{Y: 1}},
	}
	want.Thumb[0] = Transform1{Loc: Vec3{Z: 1}}
	want.Fingers[2].Bones[4] = Transform1{Rot: Vec3{X: 9}}
	got := roundTrip(t, want)
	assert.True(t, Equal(want, got))
}

func TestRoundTrip_HeadIPD1(t *testing.T) {
	want := &HeadIPD1{IPD: HalfFromFloat32(63.5)}
	got := roundTrip(t, want)
	assert.True(t, Equal(want, got))
}

func TestRoundTrip_UnknownObject_ByteExact(t *testing.T) {
	want := &UnknownObject{RawTag: 0x20, Body: []byte{0x01, 0x02, 0x03}}

	enc := NewEncoder(defaultBufferSize)
	require.NoError(t, enc.Encode(want))
	wireBefore := append([]byte(nil), enc.Bytes()...)

	dec := NewDecoder(enc.Bytes(), fixedNow)
	got, err := dec.Decode()
	require.NoError(t, err)
	assert.True(t, Equal(want, got))

	enc2 := NewEncoder(defaultBufferSize)
	require.NoError(t, enc2.Encode(got))
	assert.Equal(t, wireBefore, enc2.Bytes())
}

func TestEncoder_Full(t *testing.T) {
	enc := NewEncoder(4) // too small for any real frame
	err := enc.Encode(&Head1{ObjectId: 1})
	require.ErrorIs(t, err, ErrEncodeFull)
	assert.Equal(t, 0, enc.Len(), "buffer must be unchanged on Full")
}

func TestEncoder_MultipleObjectsOneBuffer(t *testing.T) {
	enc := NewEncoder(defaultBufferSize)
	require.NoError(t, enc.Encode(&Head1{ObjectId: 1}))
	require.NoError(t, enc.Encode(&Object1{ObjectId: 2}))

	dec := NewDecoder(enc.Bytes(), fixedNow)
	first, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, TagHead1, first.Tag())

	second, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, TagObject1, second.Tag())

	_, err = dec.Decode()
	require.ErrorIs(t, err, ErrExhausted)
}

func TestDecoder_TruncatedFrame(t *testing.T) {
	dec := NewDecoder([]byte{0x01, 0xff}, fixedNow) // tag=1, length=varint truncated
	_, err := dec.Decode()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestDecoder_BodyExceedsBuffer(t *testing.T) {
	dec := NewDecoder([]byte{0x01, 0x10}, fixedNow) // tag=1, length=16, no body bytes
	_, err := dec.Decode()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestTimestampExpansion(t *testing.T) {
	now := fixedNow()
	original := DateTimeMsFromTime(now.Add(-30 * time.Second))
	wire := toTime16(original)

	got := expandTime16(wire, now)
	assert.InDelta(t, int64(original), int64(got), 1)
}

func TestTimestampExpansion_NearWraparound(t *testing.T) {
	now := fixedNow()
	original := DateTimeMsFromTime(now.Add(-64 * time.Second))
	wire := toTime16(original)

	got := expandTime16(wire, now)
	assert.InDelta(t, int64(original), int64(got), 1)
}

func TestIdentityFromString(t *testing.T) {
	assert.NotEqual(t, ObjectId(0), IdentityFromString("head"))
	// longer than 8 bytes truncates silently
	a := IdentityFromString("12345678")
	b := IdentityFromString("123456789999")
	assert.Equal(t, a, b)
}

func TestHalfFloatRoundTrip(t *testing.T) {
	for _, f := range []float32{0, 1, -1, 3.140625, 0.2, 30} {
		h := HalfFromFloat32(f)
		assert.InDelta(t, f, h.ToFloat32(), 0.01)
	}
}

func TestHalfFloatRoundTrip_LargeMagnitude(t *testing.T) {
	for _, f := range []float32{65504, -65504} {
		h := HalfFromFloat32(f)
		assert.InEpsilon(t, float64(f), float64(h.ToFloat32()), 1e-3)
	}
}
