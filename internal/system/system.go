package system

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Info is a snapshot of host resources, used to size the decoder pool
// and the photo cache at startup.
type Info struct {
	PhysicalCores  int
	LogicalCores   int
	TotalMemMB     uint64
	AvailableMemMB uint64
}

// Collect probes the host. Failures degrade to conservative defaults
// rather than erroring; a slideshow should start on any machine.
func Collect(ctx context.Context, logger zerolog.Logger) Info {
	log := logger.With().Str("component", "system").Logger()

	info := Info{PhysicalCores: 2, LogicalCores: 2, TotalMemMB: 2048, AvailableMemMB: 1024}

	if n, err := cpu.CountsWithContext(ctx, false); err == nil && n > 0 {
		info.PhysicalCores = n
	} else if err != nil {
		log.Warn().Err(err).Msg("cpu probe failed, assuming 2 cores")
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		info.LogicalCores = n
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.TotalMemMB = vm.Total / (1 << 20)
		info.AvailableMemMB = vm.Available / (1 << 20)
	} else {
		log.Warn().Err(err).Msg("memory probe failed, assuming 2GB")
	}

	log.Debug().
		Int("physical_cores", info.PhysicalCores).
		Int("logical_cores", info.LogicalCores).
		Uint64("mem_total_mb", info.TotalMemMB).
		Msg("host probed")

	return info
}

// DecoderSessions sizes the decode pool. Hardware decoders cap out at
// four concurrent sessions regardless of core count; small machines
// get fewer so two ffmpeg seeks cannot saturate the box.
func (i Info) DecoderSessions() int {
	n := i.PhysicalCores / 2
	if n < 2 {
		n = 2
	}
	if n > 4 {
		n = 4
	}
	return n
}

// EncodeThreads is the -threads hint passed to ffmpeg encode runs.
// Zero lets ffmpeg decide on big machines.
func (i Info) EncodeThreads() int {
	if i.LogicalCores >= 8 {
		return 0
	}
	if i.LogicalCores <= 2 {
		return 1
	}
	return i.LogicalCores - 1
}
