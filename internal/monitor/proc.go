package monitor

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"codeberg.org/sorrel/hatctl/internal/errors"
)

type cpuTimes struct {
	busy  uint64
	total uint64
}

// parseCPUStat extracts the aggregate cpu counters from /proc/stat.
func parseCPUStat(data []byte) (cpuTimes, error) {
	errFactory := errors.New()

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 || fields[0] != "cpu" {
			continue
		}

		var times cpuTimes
		for i, raw := range fields[1:] {
			v, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return cpuTimes{}, errFactory.Wrap(ErrProcParse, err)
			}
			times.total += v
			// fields 4 and 5 after "cpu" are idle and iowait
			if i != 3 && i != 4 {
				times.busy += v
			}
		}

		return times, nil
	}

	return cpuTimes{}, errFactory.WithData(ErrProcParse, "no cpu line in /proc/stat")
}

// cpuPercent computes usage between two counter samples.
func cpuPercent(prev, cur cpuTimes) (float64, bool) {
	totalDelta := cur.total - prev.total
	if cur.total <= prev.total {
		return 0, false
	}

	busyDelta := cur.busy - prev.busy
	return 100 * float64(busyDelta) / float64(totalDelta), true
}

// parseMemInfo computes used memory percentage from /proc/meminfo.
func parseMemInfo(data []byte) (float64, error) {
	errFactory := errors.New()

	var total, available uint64
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		v, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}

		switch fields[0] {
		case "MemTotal:":
			total = v
		case "MemAvailable:":
			available = v
		}
	}

	if total == 0 {
		return 0, errFactory.WithData(ErrProcParse, "MemTotal missing from /proc/meminfo")
	}

	return 100 * float64(total-available) / float64(total), nil
}

type netCounters struct {
	rx uint64
	tx uint64
}

// parseNetDev extracts rx/tx byte counters for one interface from /proc/net/dev.
func parseNetDev(data []byte, iface string) (netCounters, error) {
	errFactory := errors.New()

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		name, rest, found := strings.Cut(line, ":")
		if !found || strings.TrimSpace(name) != iface {
			continue
		}

		fields := strings.Fields(rest)
		if len(fields) < 9 {
			return netCounters{}, errFactory.WithData(ErrProcParse, "short /proc/net/dev line")
		}

		rx, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return netCounters{}, errFactory.Wrap(ErrProcParse, err)
		}
		tx, err := strconv.ParseUint(fields[8], 10, 64)
		if err != nil {
			return netCounters{}, errFactory.Wrap(ErrProcParse, err)
		}

		return netCounters{rx: rx, tx: tx}, nil
	}

	return netCounters{}, errFactory.WithData(ErrProcParse, "interface not found: "+iface)
}

// parseThermal converts a /sys/class/thermal millidegree reading.
func parseThermal(data []byte) (float64, error) {
	errFactory := errors.New()

	raw := strings.TrimSpace(string(data))
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errFactory.Wrap(ErrProcParse, err)
	}

	return v / 1000, nil
}

// parseMdstat inspects /proc/mdstat for arrays built on the given devices.
func parseMdstat(data []byte, devices []string) RAIDState {
	state := RAIDNone

	scanner := bufio.NewScanner(bytes.NewReader(data))
	inArray := false
	for scanner.Scan() {
		line := scanner.Text()

		if strings.Contains(line, " : ") && strings.Contains(line, "raid") {
			members := false
			for _, dev := range devices {
				if strings.Contains(line, dev) {
					members = true
					break
				}
			}
			inArray = members
			if members {
				state = RAIDActive
				if !strings.Contains(line, "active") {
					state = RAIDDegraded
				}
			}
			continue
		}

		// Status line of the current array, e.g. "... [2/2] [UU]"
		if inArray && strings.Contains(line, "blocks") {
			if i := strings.LastIndex(line, "["); i >= 0 && strings.Contains(line[i:], "_") {
				state = RAIDDegraded
			}
			inArray = false
		}
	}

	return state
}
