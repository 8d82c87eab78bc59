package mdadm

import "github.com/OffBroadway/mdadm/pkg/jbod"

// Location is a flat address resolved against a geometry.
type Location struct {
	Disk   uint32
	Block  uint32
	Offset uint32
}

// Translate resolves a flat byte address to its disk, block and offset
// within the block.
func Translate(g jbod.Geometry, addr uint32) Location {
	return Location{
		Disk:   addr / g.DiskSize,
		Block:  (addr % g.DiskSize) / g.BlockSize,
		Offset: addr % g.BlockSize,
	}
}

// inBounds reports whether [addr, addr+length) lies inside the array.
// The sum is widened so it cannot wrap.
func inBounds(g jbod.Geometry, addr, length uint32) bool {
	return uint64(addr)+uint64(length) <= g.Size()
}
