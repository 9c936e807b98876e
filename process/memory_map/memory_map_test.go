package memory_map

import (
	"errors"
	"strings"
	"testing"
)

const sampleMaps = `55d0c8a00000-55d0c8a2c000 r--p 00000000 08:01 1048600                    /usr/bin/wine64
55d0c8a2c000-55d0c8ab8000 r-xp 0002c000 08:01 1048600                    /usr/bin/wine64
7f2a10000000-7f2a10021000 rw-p 00000000 00:00 0
7f2a14000000-7f2a14001000 ---p 00000000 00:00 0
garbage line
7ffd4c1e0000-7ffd4c201000 rw-p 00000000 00:00 0                          [stack]
7ffd4c3f0000-7ffd4c3f4000 r--p 00000000 00:00 0                          /home/user/My Documents/WeChatWin.dll
`

func TestParseMaps(t *testing.T) {
	regions, err := ParseMaps(strings.NewReader(sampleMaps))
	if err != nil {
		t.Fatalf("ParseMaps: %v", err)
	}
	if len(regions) != 6 {
		t.Fatalf("expected 6 regions, got %d", len(regions))
	}

	first := regions[0]
	if first.Address != 0x55d0c8a00000 || first.Size != 0x2c000 {
		t.Errorf("unexpected first region %s", first)
	}
	if !first.Committed || !first.IsReadable() || first.IsWritable() || first.IsExecutable() {
		t.Errorf("unexpected perms on %s", first)
	}
	if first.Path != "/usr/bin/wine64" {
		t.Errorf("path = %q", first.Path)
	}

	if !regions[1].IsExecutable() {
		t.Errorf("expected r-xp region to be executable")
	}
	if regions[2].Path != "" {
		t.Errorf("anonymous region has path %q", regions[2].Path)
	}
	if regions[3].IsScannable() {
		t.Errorf("---p region must not be scannable")
	}
	if regions[4].Path != "[stack]" {
		t.Errorf("path = %q", regions[4].Path)
	}
	if regions[5].Path != "/home/user/My Documents/WeChatWin.dll" {
		t.Errorf("path with spaces = %q", regions[5].Path)
	}
}

type sliceQuerier struct {
	regions []MemoryRegion
	queries []uint64
	failAt  uint64
}

func (q *sliceQuerier) QueryRegion(addr uint64) (MemoryRegion, error) {
	q.queries = append(q.queries, addr)
	if q.failAt != 0 && addr == q.failAt {
		return MemoryRegion{}, errors.New("boom")
	}
	return FindRegion(addr, q.regions)
}

func TestRegionsWalk(t *testing.T) {
	q := &sliceQuerier{regions: []MemoryRegion{
		{Address: 0x1000, Size: 0x1000, Perms: "rw-p", Committed: true},
		{Address: 0x2000, Size: 0x3000, Perms: "r--p", Committed: false},
		{Address: 0x8000, Size: 0x1000, Perms: "r-xp", Committed: true},
	}}

	var got []uint64
	for region, err := range Regions(q) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, region.Address)
	}

	want := []uint64{0x1000, 0x2000, 0x8000}
	if len(got) != len(want) {
		t.Fatalf("got %x, want %x", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %x, want %x", got, want)
		}
	}

	wantQueries := []uint64{0, 0x2000, 0x5000, 0x9000}
	if len(q.queries) != len(wantQueries) {
		t.Fatalf("queries %x, want %x", q.queries, wantQueries)
	}
	for i := range wantQueries {
		if q.queries[i] != wantQueries[i] {
			t.Fatalf("queries %x, want %x", q.queries, wantQueries)
		}
	}

	// a second range starts over from address 0
	q.queries = nil
	count := 0
	for range Regions(q) {
		count++
	}
	if count != 3 || q.queries[0] != 0 {
		t.Fatalf("walk is not restartable: count=%d queries=%x", count, q.queries)
	}
}

func TestRegionsWalkStopsOnError(t *testing.T) {
	q := &sliceQuerier{
		regions: []MemoryRegion{
			{Address: 0x1000, Size: 0x1000, Committed: true},
			{Address: 0x3000, Size: 0x1000, Committed: true},
		},
		failAt: 0x2000,
	}

	var regions, errs int
	for _, err := range Regions(q) {
		if err != nil {
			errs++
			continue
		}
		regions++
	}
	if regions != 1 || errs != 1 {
		t.Fatalf("regions=%d errs=%d, want 1 and 1", regions, errs)
	}
}

func TestRegionForAddress(t *testing.T) {
	regions := []MemoryRegion{
		{Address: 0x1000, Size: 0x1000},
		{Address: 0x4000, Size: 0x1000},
	}

	tests := []struct {
		addr uint64
		want uint64
		ok   bool
	}{
		{0x1000, 0x1000, true},
		{0x1fff, 0x1000, true},
		{0x2000, 0, false},
		{0x4800, 0x4000, true},
		{0x5000, 0, false},
	}

	for _, tt := range tests {
		r := RegionForAddress(tt.addr, regions)
		if (r != nil) != tt.ok {
			t.Errorf("RegionForAddress(%x) found=%v, want %v", tt.addr, r != nil, tt.ok)
			continue
		}
		if r != nil && r.Address != tt.want {
			t.Errorf("RegionForAddress(%x) = %x, want %x", tt.addr, r.Address, tt.want)
		}
	}

	if _, err := FindRegion(0x6000, regions); !errors.Is(err, ErrEndOfAddressSpace) {
		t.Errorf("expected ErrEndOfAddressSpace, got %v", err)
	}
}
