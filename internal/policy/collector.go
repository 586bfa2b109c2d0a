package policy

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"clustersched/internal/config"
	"clustersched/internal/metrics"
)

// collector implements Adapter for config.ModeCollect: it never produces a
// decision, only appends one row per tick to scheduler_<pid>.csv.
type collector struct {
	file   *os.File
	writer *csv.Writer
}

func newCollector(supervisorPID int) (*collector, error) {
	path := config.CSVPath(supervisorPID)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("policy: open collector csv %s: %w", path, err)
	}
	return &collector{file: f, writer: csv.NewWriter(f)}, nil
}

// Tick appends one header-less row: elapsed_ms, total_cycles,
// total_instructions, total_cache_misses, total_branches,
// total_branch_misses (spec §4.D). Collector mode never changes state.
func (c *collector) Tick(m metrics.Tick, current config.ClusterState) (config.ClusterState, error) {
	row := []string{
		strconv.FormatUint(m.ElapsedMS, 10),
		strconv.FormatUint(m.Cycles, 10),
		strconv.FormatUint(m.Instructions, 10),
		strconv.FormatUint(m.CacheMisses, 10),
		strconv.FormatUint(m.Branches, 10),
		strconv.FormatUint(m.BranchMispredicts, 10),
	}
	if err := c.writer.Write(row); err != nil {
		return current, fmt.Errorf("policy: write collector row: %w", err)
	}
	c.writer.Flush()
	return current, c.writer.Error()
}

func (c *collector) Close() error {
	if c.writer != nil {
		c.writer.Flush()
	}
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}
