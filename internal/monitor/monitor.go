// Package monitor collects the system metrics the renderer and fan loop
// consume. Every probe degrades to an invalid sample on failure; a poll
// never fails outright because of a single missing sensor.
package monitor

import (
	"bufio"
	"context"
	"net"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"codeberg.org/sorrel/hatctl/internal/logger"
)

const (
	procStat    = "/proc/stat"
	procMemInfo = "/proc/meminfo"
	procNetDev  = "/proc/net/dev"
	procMounts  = "/proc/mounts"
	procMdstat  = "/proc/mdstat"
	thermalZone = "/sys/class/thermal/thermal_zone0/temp"
)

type Collector struct {
	iface         string
	disks         [2]string
	diskTempEvery time.Duration

	runSmart func(ctx context.Context, device string) ([]byte, error)

	mu             sync.Mutex
	lastCPU        cpuTimes
	haveCPU        bool
	lastNet        netCounters
	lastNetAt      time.Time
	haveNet        bool
	diskTemps      [2]Sample
	lastDiskTempAt time.Time
}

// New builds a collector for the given interface and disk pair. Disk
// temperatures are refreshed at their own, slower cadence since SMART
// queries can take hundreds of milliseconds.
func New(iface string, disks [2]string, diskTempEvery time.Duration) *Collector {
	return &Collector{
		iface:         iface,
		disks:         disks,
		diskTempEvery: diskTempEvery,
		runSmart:      runSmartctl,
	}
}

// Poll gathers a snapshot. Individual sensor failures are logged at debug
// level and reported as invalid samples.
func (c *Collector) Poll(ctx context.Context) (Metrics, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := Metrics{RAID: RAIDUnknown}

	c.pollCPU(&m)
	c.pollMemory(&m)
	c.pollCPUTemp(&m)
	c.pollNetwork(&m)
	c.pollDiskUsage(&m)
	c.pollDiskTemps(ctx, &m)
	c.pollRAID(&m)
	m.IPAddress = localIPAddress()

	return m, nil
}

func (c *Collector) pollCPU(m *Metrics) {
	data, err := os.ReadFile(procStat)
	if err != nil {
		logger.Debug().Err(err).Msg("cpu stat read failed")
		return
	}

	cur, err := parseCPUStat(data)
	if err != nil {
		logger.Debug().Err(err).Msg("cpu stat parse failed")
		return
	}

	if c.haveCPU {
		if pct, ok := cpuPercent(c.lastCPU, cur); ok {
			m.CPUPercent = sampleOf(pct)
		}
	}
	c.lastCPU = cur
	c.haveCPU = true
}

func (c *Collector) pollMemory(m *Metrics) {
	data, err := os.ReadFile(procMemInfo)
	if err != nil {
		logger.Debug().Err(err).Msg("meminfo read failed")
		return
	}

	pct, err := parseMemInfo(data)
	if err != nil {
		logger.Debug().Err(err).Msg("meminfo parse failed")
		return
	}

	m.RAMPercent = sampleOf(pct)
}

func (c *Collector) pollCPUTemp(m *Metrics) {
	data, err := os.ReadFile(thermalZone)
	if err != nil {
		logger.Debug().Err(err).Msg("thermal zone read failed")
		return
	}

	temp, err := parseThermal(data)
	if err != nil {
		logger.Debug().Err(err).Msg("thermal zone parse failed")
		return
	}

	m.CPUTemp = sampleOf(temp)
}

func (c *Collector) pollNetwork(m *Metrics) {
	data, err := os.ReadFile(procNetDev)
	if err != nil {
		logger.Debug().Err(err).Msg("net dev read failed")
		return
	}

	cur, err := parseNetDev(data, c.iface)
	if err != nil {
		logger.Debug().Err(err).Msg("net dev parse failed")
		return
	}

	now := time.Now()
	if c.haveNet {
		elapsed := now.Sub(c.lastNetAt).Seconds()
		if elapsed > 0 && cur.rx >= c.lastNet.rx && cur.tx >= c.lastNet.tx {
			m.NetRxBps = sampleOf(float64(cur.rx-c.lastNet.rx) / elapsed)
			m.NetTxBps = sampleOf(float64(cur.tx-c.lastNet.tx) / elapsed)
		}
	}
	c.lastNet = cur
	c.lastNetAt = now
	c.haveNet = true
}

func (c *Collector) pollDiskUsage(m *Metrics) {
	mounts := diskMountpoints(c.disks)

	for i, dev := range c.disks {
		m.Disks[i].Device = dev

		mp, ok := mounts[dev]
		if !ok {
			continue
		}

		var fs syscall.Statfs_t
		if err := syscall.Statfs(mp, &fs); err != nil {
			logger.Debug().Err(err).Str("mountpoint", mp).Msg("statfs failed")
			continue
		}
		if fs.Blocks == 0 {
			continue
		}

		used := float64(fs.Blocks-fs.Bavail) / float64(fs.Blocks)
		m.Disks[i].UsedPercent = sampleOf(100 * used)
	}
}

func (c *Collector) pollDiskTemps(ctx context.Context, m *Metrics) {
	if time.Since(c.lastDiskTempAt) >= c.diskTempEvery {
		for i, dev := range c.disks {
			out, err := c.runSmart(ctx, dev)
			if err != nil {
				logger.Debug().Err(err).Str("device", dev).Msg("smartctl failed")
				c.diskTemps[i] = Sample{}
				continue
			}

			temp, err := parseSmartTemp(out)
			if err != nil {
				logger.Debug().Err(err).Str("device", dev).Msg("smartctl parse failed")
				c.diskTemps[i] = Sample{}
				continue
			}
			c.diskTemps[i] = temp
		}
		c.lastDiskTempAt = time.Now()
	}

	for i := range m.Disks {
		m.Disks[i].Temperature = c.diskTemps[i]
	}
}

func (c *Collector) pollRAID(m *Metrics) {
	data, err := os.ReadFile(procMdstat)
	if err != nil {
		logger.Debug().Err(err).Msg("mdstat read failed")
		return
	}

	m.RAID = parseMdstat(data, c.disks[:])
}

// diskMountpoints maps each disk device to the first mountpoint of one of
// its partitions.
func diskMountpoints(disks [2]string) map[string]string {
	mounts := make(map[string]string, len(disks))

	f, err := os.Open(procMounts)
	if err != nil {
		logger.Debug().Err(err).Msg("mounts read failed")
		return mounts
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "/dev/") {
			continue
		}

		source := strings.TrimPrefix(fields[0], "/dev/")
		for _, dev := range disks {
			if strings.HasPrefix(source, dev) {
				if _, seen := mounts[dev]; !seen {
					mounts[dev] = fields[1]
				}
			}
		}
	}

	return mounts
}

// localIPAddress discovers the outbound address without sending traffic.
func localIPAddress() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return ""
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return ""
	}

	return addr.IP.String()
}
