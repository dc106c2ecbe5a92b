// Package gsobject implements the tagged-union wire format and in-memory
// object model shared by every peer in a synchronization session: a
// length-delimited binary stream of GSObject variants (head/hand/generic
// poses, meshes, and opaque unknown payloads), plus the time16 epoch
// expansion rule used to reconstruct full timestamps from the wire.
package gsobject

import (
	"encoding/binary"
	"time"
)

// ObjectId identifies an object for routing purposes only; it is not a
// sequence number and carries no ordering guarantee across objects.
type ObjectId uint64

// IdentityFromString derives an ObjectId from an ASCII string of at most
// 8 characters: the bytes, left-padded with zeros, are read as a
// little-endian uint64. Strings longer than 8 bytes are silently
// truncated to their first 8 bytes, matching the reference behavior this
// format must stay compatible with.
func IdentityFromString(s string) ObjectId {
	var buf [8]byte
	if len(s) > len(buf) {
		s = s[:len(buf)]
	}
	copy(buf[len(buf)-len(s):], s)
	return ObjectId(binary.LittleEndian.Uint64(buf[:]))
}

// DateTimeMs is a full, expanded Unix-epoch-millisecond timestamp.
type DateTimeMs int64

// Time converts to a time.Time.
func (d DateTimeMs) Time() time.Time {
	return time.UnixMilli(int64(d))
}

// DateTimeMsFromTime truncates t to millisecond resolution.
func DateTimeMsFromTime(t time.Time) DateTimeMs {
	return DateTimeMs(t.UnixMilli())
}

// time16 is the low 16 bits of a DateTimeMs, as carried on the wire.
type time16 uint16

func toTime16(d DateTimeMs) time16 {
	return time16(uint64(d) & 0xffff)
}

// expandTime16 reconstructs a full epoch time from a wire time16 value,
// per the rule in the format's §4.1: take the current wall-clock epoch,
// overwrite its low 16 bits with t, and if that lands strictly in the
// future relative to now, step back one 16-bit wraparound (65.536s) so
// the result lands in the recent past. This assumes no update is older
// than that wraparound when first decoded.
func expandTime16(t time16, now time.Time) DateTimeMs {
	nowMs := now.UnixMilli()
	expanded := (nowMs &^ 0xffff) | int64(t)
	if expanded > nowMs {
		expanded -= 1 << 16
	}
	return DateTimeMs(expanded)
}

// Vec3 is a 3-component float32 vector: used verbatim for Loc1, Rot1 and
// mesh vertex/normal positions. All three cases share the same 12-byte
// big-endian layout, so one struct backs all of them.
type Vec3 struct {
	X, Y, Z float32
}

// Loc1 is a full-precision position or scale.
type Loc1 = Vec3

// Rot1 is a full-precision Euler rotation.
type Rot1 = Vec3

// Norm1 is a mesh vertex normal.
type Norm1 = Vec3

// TextureUV1 is a mesh texture coordinate.
type TextureUV1 struct {
	U, V float32
}

// Sample6 packs a half-precision position/rotation with its instantaneous
// velocity: (x, y, z, vx, vy, vz). Loc2 and Rot2 are both this shape.
type Sample6 struct {
	X, Y, Z    GSHalf
	VX, VY, VZ GSHalf
}

// Loc2 is a half-precision position+velocity sample.
type Loc2 = Sample6

// Rot2 is a half-precision rotation+angular-velocity sample.
type Rot2 = Sample6

// Transform1 is a full-precision position+rotation pair, used for wrist
// and finger bone transforms in Hand2.
type Transform1 struct {
	Loc Loc1
	Rot Rot1
}

// Finger holds the per-bone transforms of one hand digit, root to tip.
type Finger struct {
	Bones [5]Transform1
}

// AuthorId is the transport-assigned peer identifier stamped on every
// encoded frame. The core does not interpret it beyond equality checks
// and echoing it back.
type AuthorId uint32

// AuthoredObject is an update crossing a transceiver boundary: the object
// itself plus the peer that produced it.
type AuthoredObject struct {
	Object GSObject
	Author AuthorId
}
