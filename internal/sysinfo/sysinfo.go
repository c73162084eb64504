// Package sysinfo reads host facts included in the morning briefing.
package sysinfo

import (
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
)

// Info is a point-in-time host snapshot.
type Info struct {
	Uptime time.Duration
	Load1  float64
}

// Snapshot reads host uptime and the 1-minute load average. Load is
// best-effort; unsupported platforms report zero.
func Snapshot() (Info, error) {
	uptime, err := host.Uptime()
	if err != nil {
		return Info{}, err
	}

	info := Info{Uptime: time.Duration(uptime) * time.Second}
	if avg, err := load.Avg(); err == nil {
		info.Load1 = avg.Load1
	}
	return info, nil
}
