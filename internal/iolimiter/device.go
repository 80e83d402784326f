// Package iolimiter bounds concurrent disk I/O per physical device, so a
// scan of many recordings on one spinning drive doesn't starve the same
// drive's live recording writes, per spec.md §4.L.
package iolimiter

import (
	"context"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
)

// ResolveDevice returns the backing device for path, found by taking the
// longest matching mount point among the host's partitions — the same
// "ask the OS, don't parse /proc by hand" approach
// `internal/daemon/stats.go` takes for disk usage, pointed at a new
// question (which device backs this path) instead of how full it is.
func ResolveDevice(ctx context.Context, path string) (string, error) {
	partitions, err := disk.PartitionsWithContext(ctx, true)
	if err != nil {
		return "", err
	}

	sort.Slice(partitions, func(i, j int) bool {
		return len(partitions[i].Mountpoint) > len(partitions[j].Mountpoint)
	})

	for _, p := range partitions {
		if path == p.Mountpoint || strings.HasPrefix(path, ensureTrailingSlash(p.Mountpoint)) {
			return p.Device, nil
		}
	}
	return "", nil
}

func ensureTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
