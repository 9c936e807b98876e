package memory_map

import (
	"errors"
	"fmt"
	"iter"
	"sort"
)

// ErrEndOfAddressSpace is returned by a RegionQuerier when no region ends above the queried address.
var ErrEndOfAddressSpace = errors.New("end of address space")

// MemoryRegion represents a memory region in a process's address space
type MemoryRegion struct {
	Address   uint64 // The starting address of the memory region
	Size      uint   // The size of the memory region in bytes
	Perms     string // Permissions (e.g., "r-xp" for read, execute, private)
	Committed bool   // Backed by memory, as opposed to free or reserved
	Path      string // Backing file or module, empty for anonymous memory
}

// String returns a string representation of the memory region
func (r MemoryRegion) String() string {
	state := "committed"
	if !r.Committed {
		state = "reserved"
	}
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s, State: %s, Path: %s", r.Address, r.Size, r.Perms, state, r.Path)
}

// End returns the first address past the region
func (r MemoryRegion) End() uint64 {
	return r.Address + uint64(r.Size)
}

// Contains reports whether [addr, addr+size) lies inside the region
func (r MemoryRegion) Contains(addr uint64, size uint) bool {
	return addr >= r.Address && addr+uint64(size) <= r.End()
}

func (r MemoryRegion) IsReadable() bool {
	return IsReadablePerms(r.Perms)
}

func (r MemoryRegion) IsWritable() bool {
	return IsWritablePerms(r.Perms)
}

func (r MemoryRegion) IsExecutable() bool {
	return IsExecutablePerms(r.Perms)
}

// IsScannable reports whether the region is committed and readable
func (r MemoryRegion) IsScannable() bool {
	return r.Committed && r.IsReadable()
}

func IsReadablePerms(perms string) bool {
	return len(perms) > 0 && perms[0] == 'r'
}

func IsWritablePerms(perms string) bool {
	return len(perms) > 1 && perms[1] == 'w'
}

func IsExecutablePerms(perms string) bool {
	return len(perms) > 2 && perms[2] == 'x'
}

// RegionQuerier answers one region query at a time, the way VirtualQueryEx does
type RegionQuerier interface {
	// QueryRegion returns the region containing addr or, if addr falls in a gap,
	// the next region above it. It returns ErrEndOfAddressSpace past the last region.
	QueryRegion(addr uint64) (MemoryRegion, error)
}

// Regions walks q in ascending address order starting at 0, advancing to the
// end of each returned region. Every range over the sequence starts a new walk.
// A query error other than ErrEndOfAddressSpace is yielded once and ends the walk.
func Regions(q RegionQuerier) iter.Seq2[MemoryRegion, error] {
	return func(yield func(MemoryRegion, error) bool) {
		var addr uint64
		for {
			region, err := q.QueryRegion(addr)
			if errors.Is(err, ErrEndOfAddressSpace) {
				return
			}
			if err != nil {
				yield(MemoryRegion{}, err)
				return
			}
			if !yield(region, nil) {
				return
			}

			next := region.End()
			if region.Size == 0 || next <= addr {
				// wrapped around the top of the address space
				return
			}
			addr = next
		}
	}
}

// SortRegions orders regions by address, as FindRegion requires
func SortRegions(regions []MemoryRegion) {
	sort.Slice(regions, func(i, j int) bool {
		return regions[i].Address < regions[j].Address
	})
}

// FindRegion returns the first region in the sorted slice that ends above addr,
// which is the region containing addr when one does.
func FindRegion(addr uint64, regions []MemoryRegion) (MemoryRegion, error) {
	i := sort.Search(len(regions), func(i int) bool {
		return regions[i].End() > addr
	})
	if i < len(regions) {
		return regions[i], nil
	}

	return MemoryRegion{}, ErrEndOfAddressSpace
}

// RegionForAddress returns the region containing addr, or nil
func RegionForAddress(addr uint64, regions []MemoryRegion) *MemoryRegion {
	r, err := FindRegion(addr, regions)
	if err != nil || r.Address > addr {
		return nil
	}
	return &r
}
