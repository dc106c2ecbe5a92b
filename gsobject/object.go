package gsobject

// Tag is the wire discriminator for a GSObject variant.
type Tag uint64

// Recognized tags. Anything >= TagUnknownMin that isn't one of these is
// decoded as an UnknownObject carrying its tag and raw body verbatim.
const (
	TagHead1      Tag = 1
	TagHand1      Tag = 2
	TagObject1    Tag = 3
	TagMesh1      Tag = 4
	TagHand2      Tag = 5
	TagHeadIPD1   Tag = 6
	TagUnknownMin Tag = 0x20
)

// GSObject is the closed sum type of every variant this format carries.
// Equality between two instances is field-wise structural.
type GSObject interface {
	// Id returns the object identity used for routing. HeadIPD1 carries
	// no identity field on the wire and reports the zero ObjectId, a
	// deliberate convention documented in DESIGN.md: it behaves like a
	// process-wide singleton slot rather than a per-object one.
	Id() ObjectId
	// Tag returns the wire tag of this variant.
	Tag() Tag
}

// Timestamped is implemented by variants that carry a reconstructed
// wall-clock time (everything except Mesh1, HeadIPD1, UnknownObject).
type Timestamped interface {
	GSObject
	Timestamp() DateTimeMs
}

// Head1 is a head pose update.
type Head1 struct {
	ObjectId  ObjectId
	Time      DateTimeMs
	Loc       Loc2
	Rot       Rot2
	IPD       *GSHalf // nil when absent
}

func (o *Head1) Id() ObjectId          { return o.ObjectId }
func (o *Head1) Tag() Tag              { return TagHead1 }
func (o *Head1) Timestamp() DateTimeMs { return o.Time }

// Hand1 is a single-hand pose update (legacy/minimal variant; Hand2
// supersedes it for finger-level detail).
type Hand1 struct {
	ObjectId ObjectId
	Time     DateTimeMs
	Left     bool
	Loc      Loc2
	Rot      Rot2
}

func (o *Hand1) Id() ObjectId          { return o.ObjectId }
func (o *Hand1) Tag() Tag              { return TagHand1 }
func (o *Hand1) Timestamp() DateTimeMs { return o.Time }

// Object1 is a generic tracked-object pose, optionally parented to
// another object for relative placement.
type Object1 struct {
	ObjectId ObjectId
	Time     DateTimeMs
	Loc      Loc1
	Rot      Rot1
	Scale    Loc1
	ParentId *ObjectId // nil when unparented
}

func (o *Object1) Id() ObjectId          { return o.ObjectId }
func (o *Object1) Tag() Tag              { return TagObject1 }
func (o *Object1) Timestamp() DateTimeMs { return o.Time }

// Mesh1 is a static, untimed mesh payload.
type Mesh1 struct {
	ObjectId  ObjectId
	Vertices  []Loc1
	Normals   []Norm1
	Textures  []TextureUV1
	Triangles []uint64
}

func (o *Mesh1) Id() ObjectId { return o.ObjectId }
func (o *Mesh1) Tag() Tag     { return TagMesh1 }

// Hand2 is the full hand pose update, including per-finger bone
// transforms, superseding Hand1 for rendering.
type Hand2 struct {
	ObjectId ObjectId
	Time     DateTimeMs
	Left     bool
	Loc      Loc2
	Rot      Rot2
	Wrist    Transform1
	Thumb    [4]Transform1
	Fingers  [4]Finger
}

func (o *Hand2) Id() ObjectId          { return o.ObjectId }
func (o *Hand2) Tag() Tag              { return TagHand2 }
func (o *Hand2) Timestamp() DateTimeMs { return o.Time }

// HeadIPD1 carries a standalone interpupillary-distance update. It has no
// identity field of its own on the wire; see Id().
type HeadIPD1 struct {
	IPD GSHalf
}

func (o *HeadIPD1) Id() ObjectId { return 0 }
func (o *HeadIPD1) Tag() Tag     { return TagHeadIPD1 }

// UnknownObject preserves an unrecognized tag's raw body byte-exact
// through a decode/encode round trip. Body is owned by the caller: the
// decoder copies it out of the incoming buffer rather than borrowing, to
// avoid the lifetime hazard noted in the design (§5, buffer ownership).
type UnknownObject struct {
	RawTag Tag
	Body   []byte
}

func (o *UnknownObject) Id() ObjectId { return 0 }
func (o *UnknownObject) Tag() Tag     { return o.RawTag }

// Equal reports field-wise structural equality between two GSObject
// values of the same concrete type. Comparing values of differing
// concrete type always reports false.
func Equal(a, b GSObject) bool {
	switch av := a.(type) {
	case *Head1:
		bv, ok := b.(*Head1)
		return ok && headEqual(av, bv)
	case *Hand1:
		bv, ok := b.(*Hand1)
		return ok && hand1Equal(av, bv)
	case *Object1:
		bv, ok := b.(*Object1)
		return ok && objectEqual(av, bv)
	case *Mesh1:
		bv, ok := b.(*Mesh1)
		return ok && meshEqual(av, bv)
	case *Hand2:
		bv, ok := b.(*Hand2)
		return ok && hand2Equal(av, bv)
	case *HeadIPD1:
		bv, ok := b.(*HeadIPD1)
		return ok && av.IPD == bv.IPD
	case *UnknownObject:
		bv, ok := b.(*UnknownObject)
		return ok && av.RawTag == bv.RawTag && string(av.Body) == string(bv.Body)
	default:
		return false
	}
}

func headEqual(a, b *Head1) bool {
	if a.ObjectId != b.ObjectId || a.Time != b.Time || a.Loc != b.Loc || a.Rot != b.Rot {
		return false
	}
	if (a.IPD == nil) != (b.IPD == nil) {
		return false
	}
	return a.IPD == nil || *a.IPD == *b.IPD
}

func hand1Equal(a, b *Hand1) bool {
	return a.ObjectId == b.ObjectId && a.Time == b.Time && a.Left == b.Left && a.Loc == b.Loc && a.Rot == b.Rot
}

func objectEqual(a, b *Object1) bool {
	if a.ObjectId != b.ObjectId || a.Time != b.Time || a.Loc != b.Loc || a.Rot != b.Rot || a.Scale != b.Scale {
		return false
	}
	if (a.ParentId == nil) != (b.ParentId == nil) {
		return false
	}
	return a.ParentId == nil || *a.ParentId == *b.ParentId
}

func meshEqual(a, b *Mesh1) bool {
	if a.ObjectId != b.ObjectId {
		return false
	}
	if len(a.Vertices) != len(b.Vertices) || len(a.Normals) != len(b.Normals) ||
		len(a.Textures) != len(b.Textures) || len(a.Triangles) != len(b.Triangles) {
		return false
	}
	for i := range a.Vertices {
		if a.Vertices[i] != b.Vertices[i] {
			return false
		}
	}
	for i := range a.Normals {
		if a.Normals[i] != b.Normals[i] {
			return false
		}
	}
	for i := range a.Textures {
		if a.Textures[i] != b.Textures[i] {
			return false
		}
	}
	for i := range a.Triangles {
		if a.Triangles[i] != b.Triangles[i] {
			return false
		}
	}
	return true
}

func hand2Equal(a, b *Hand2) bool {
	if a.ObjectId != b.ObjectId || a.Time != b.Time || a.Left != b.Left || a.Loc != b.Loc || a.Rot != b.Rot {
		return false
	}
	if a.Wrist != b.Wrist || a.Thumb != b.Thumb {
		return false
	}
	return a.Fingers == b.Fingers
}
