package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/echa/goprocinfo/linux"
)

// printStats reports a snapshot of this process's own memory and I/O
// footprint, the single-shot analog of the periodic sampling
// server/system does for a long-running indexer.
func printStats() {
	p := filepath.Join("/proc", strconv.Itoa(os.Getpid()))
	status, err := linux.ReadProcessStatus(filepath.Join(p, "status"))
	if err != nil {
		log.Warnf("stats: reading process status: %v", err)
		return
	}
	stat, err := linux.ReadProcessStat(filepath.Join(p, "stat"))
	if err != nil {
		log.Warnf("stats: reading process stat: %v", err)
		return
	}
	fmt.Printf("vmrss=%dkB vmpeak=%dkB threads=%d majflt=%d\n",
		status.VmRSS, status.VmPeak, status.Threads, stat.Majflt)
}
