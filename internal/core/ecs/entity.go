package ecs

// EntityID packs a 32-bit slot index (low bits) and a 32-bit generation
// (high bits). Destroying an entity bumps its slot's generation so stale IDs
// stop resolving. Slot 0 is never handed out, so the zero ID means "none".
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

// EntityPool hands out generational IDs and recycles freed slots.
type EntityPool struct {
	generations []uint32 // indexed by slot; slot 0 unused
	live        []bool   // indexed by slot; false while the slot is on freeList
	freeList    []uint32
	alive       int
}

func NewEntityPool() *EntityPool {
	return &EntityPool{
		generations: make([]uint32, 1, 256),
		live:        make([]bool, 1, 256),
		freeList:    make([]uint32, 0, 64),
	}
}

func (p *EntityPool) Create() EntityID {
	p.alive++
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		p.live[idx] = true
		return NewEntityID(idx, p.generations[idx])
	}
	p.generations = append(p.generations, 0)
	p.live = append(p.live, true)
	return NewEntityID(uint32(len(p.generations)-1), 0)
}

func (p *EntityPool) Alive(id EntityID) bool {
	idx := id.Index()
	if idx == 0 || int(idx) >= len(p.generations) {
		return false
	}
	return p.live[idx] && p.generations[idx] == id.Generation()
}

// Each visits every live entity in slot order.
func (p *EntityPool) Each(fn func(EntityID)) {
	for idx := 1; idx < len(p.generations); idx++ {
		if p.live[idx] {
			fn(NewEntityID(uint32(idx), p.generations[idx]))
		}
	}
}

// Destroy frees id's slot. Stale or unknown IDs are ignored.
func (p *EntityPool) Destroy(id EntityID) bool {
	if !p.Alive(id) {
		return false
	}
	idx := id.Index()
	p.generations[idx]++
	p.live[idx] = false
	p.freeList = append(p.freeList, idx)
	p.alive--
	return true
}

// Len returns the number of live entities.
func (p *EntityPool) Len() int { return p.alive }
