package memory_map

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// ParseMaps parses the /proc/[pid]/maps text format. Every mapping listed there
// is committed. Malformed lines are skipped.
func ParseMaps(r io.Reader) ([]MemoryRegion, error) {
	var regions []MemoryRegion
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		// Parse address range (e.g., "00400000-0040b000")
		addrRange := strings.Split(fields[0], "-")
		if len(addrRange) != 2 {
			continue
		}

		startAddr, err := strconv.ParseUint(addrRange[0], 16, 64)
		if err != nil {
			continue
		}

		endAddr, err := strconv.ParseUint(addrRange[1], 16, 64)
		if err != nil || endAddr <= startAddr {
			continue
		}

		// address perms offset dev inode [pathname]
		path := ""
		if len(fields) >= 6 {
			path = strings.Join(fields[5:], " ")
		}

		regions = append(regions, MemoryRegion{
			Address:   startAddr,
			Size:      uint(endAddr - startAddr),
			Perms:     fields[1],
			Committed: true,
			Path:      path,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return regions, nil
}
