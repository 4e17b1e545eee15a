package protocol

import (
	"fmt"

	"github.com/automoto/netsnap/shared/identity"
	"github.com/automoto/netsnap/shared/wire"
	"github.com/go-gl/mathgl/mgl32"
)

// Discriminants follow declaration order and must not be reordered.
const (
	tagReady uint32 = iota
	tagInput
)

const (
	tagPlayerConnected uint32 = iota
	tagPlayerDisconnected
	tagState
	tagSnapshot
	tagSpawnObstacle
)

// Minimum encoded sizes used to bound sequence lengths.
const (
	spawnSize     = 1 + 4 + 12
	transformSize = 1 + 12 + 16
)

func EncodeClient(p ClientPacket) ([]byte, error) {
	w := wire.NewWriter(12)
	switch p := p.(type) {
	case Ready:
		w.Tag(tagReady)
	case Input:
		w.Tag(tagInput)
		w.F32(p.Vector[0])
		w.F32(p.Vector[1])
	default:
		return nil, fmt.Errorf("encode client packet %T: unsupported", p)
	}
	return w.Bytes(), nil
}

func DecodeClient(data []byte) (ClientPacket, error) {
	r := wire.NewReader(data)
	var p ClientPacket
	switch tag := r.Tag(); {
	case r.Err() != nil:
	case tag == tagReady:
		p = Ready{}
	case tag == tagInput:
		p = Input{Vector: mgl32.Vec2{r.F32(), r.F32()}}
	default:
		r.Fail(fmt.Errorf("client packet %d: %w", tag, wire.ErrUnknownTag))
	}
	if err := r.Finish(); err != nil {
		return nil, fmt.Errorf("decode client packet: %w", err)
	}
	return p, nil
}

func EncodeServer(p ServerPacket) ([]byte, error) {
	switch p := p.(type) {
	case PlayerConnected:
		w := wire.NewWriter(5)
		w.Tag(tagPlayerConnected)
		w.U8(uint8(p.ID))
		return w.Bytes(), nil
	case PlayerDisconnected:
		w := wire.NewWriter(5)
		w.Tag(tagPlayerDisconnected)
		w.U8(uint8(p.ID))
		return w.Bytes(), nil
	case State:
		w := wire.NewWriter(12 + len(p.Spawns)*spawnSize)
		w.Tag(tagState)
		w.Len(len(p.Spawns))
		for _, s := range p.Spawns {
			w.U8(uint8(s.ID))
			w.Tag(uint32(s.Kind))
			writeVec3(w, s.Position)
		}
		return w.Bytes(), nil
	case Snapshot:
		w := wire.NewWriter(16 + len(p.Transforms)*transformSize)
		w.Tag(tagSnapshot)
		w.U32(p.Sequence)
		w.Len(len(p.Transforms))
		for _, t := range p.Transforms {
			w.U8(uint8(t.ID))
			writeVec3(w, t.Position)
			writeQuat(w, t.Rotation)
		}
		return w.Bytes(), nil
	case SpawnObstacle:
		w := wire.NewWriter(17)
		w.Tag(tagSpawnObstacle)
		w.U8(uint8(p.ID))
		writeVec3(w, p.Position)
		return w.Bytes(), nil
	default:
		return nil, fmt.Errorf("encode server packet %T: unsupported", p)
	}
}

func DecodeServer(data []byte) (ServerPacket, error) {
	r := wire.NewReader(data)
	var p ServerPacket
	switch tag := r.Tag(); {
	case r.Err() != nil:
	case tag == tagPlayerConnected:
		p = PlayerConnected{ID: identity.NetID(r.U8())}
	case tag == tagPlayerDisconnected:
		p = PlayerDisconnected{ID: identity.NetID(r.U8())}
	case tag == tagState:
		n := r.Len(spawnSize)
		// Empty sequences decode as nil so they compare equal to the zero value.
		var spawns []Spawn
		if n > 0 {
			spawns = make([]Spawn, 0, n)
		}
		for i := 0; i < n && r.Err() == nil; i++ {
			s := Spawn{ID: identity.NetID(r.U8())}
			switch kind := SpawnKind(r.Tag()); kind {
			case KindPlayer, KindObstacle:
				s.Kind = kind
			default:
				r.Fail(fmt.Errorf("spawn kind %d: %w", kind, wire.ErrUnknownTag))
			}
			s.Position = readVec3(r)
			spawns = append(spawns, s)
		}
		p = State{Spawns: spawns}
	case tag == tagSnapshot:
		snap := Snapshot{Sequence: r.U32()}
		n := r.Len(transformSize)
		if n > 0 {
			snap.Transforms = make([]EntityTransform, 0, n)
		}
		for i := 0; i < n && r.Err() == nil; i++ {
			snap.Transforms = append(snap.Transforms, EntityTransform{
				ID:       identity.NetID(r.U8()),
				Position: readVec3(r),
				Rotation: readQuat(r),
			})
		}
		p = snap
	case tag == tagSpawnObstacle:
		p = SpawnObstacle{ID: identity.NetID(r.U8()), Position: readVec3(r)}
	default:
		r.Fail(fmt.Errorf("server packet %d: %w", tag, wire.ErrUnknownTag))
	}
	if err := r.Finish(); err != nil {
		return nil, fmt.Errorf("decode server packet: %w", err)
	}
	return p, nil
}

func writeVec3(w *wire.Writer, v mgl32.Vec3) {
	w.F32(v[0])
	w.F32(v[1])
	w.F32(v[2])
}

func readVec3(r *wire.Reader) mgl32.Vec3 {
	return mgl32.Vec3{r.F32(), r.F32(), r.F32()}
}

// Quaternions travel as x, y, z, w.
func writeQuat(w *wire.Writer, q mgl32.Quat) {
	writeVec3(w, q.V)
	w.F32(q.W)
}

func readQuat(r *wire.Reader) mgl32.Quat {
	v := readVec3(r)
	return mgl32.Quat{V: v, W: r.F32()}
}
