package logics

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"noisedash/internal/api/models"
	"noisedash/internal/utils"
)

var processStart = time.Now()

// CollectServerStatus gathers host health for the status endpoint: memory
// pressure and load from gopsutil, plus store reachability.
func CollectServerStatus(ctx context.Context, svc *ReadingService) models.ServerStatus {
	status := models.ServerStatus{
		Timestamp:     utils.FormatTimestampUTC(utils.NowUTC()),
		UptimeSeconds: int64(time.Since(processStart).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
	}

	if vmem, err := mem.VirtualMemory(); err == nil {
		status.RAMUsedPct = utils.Round2(vmem.UsedPercent)
	} else {
		utils.LogWarnWithContext("status", "failed to read memory stats", err)
	}

	if loadStats, err := load.Avg(); err == nil {
		status.LoadAvg1 = utils.Round2(loadStats.Load1)
		status.LoadAvg5 = utils.Round2(loadStats.Load5)
		status.LoadAvg15 = utils.Round2(loadStats.Load15)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	status.DatabaseUp = svc.Ping(pingCtx) == nil

	return status
}
