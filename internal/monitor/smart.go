package monitor

import (
	"context"
	"encoding/json"
	"os/exec"

	"codeberg.org/sorrel/hatctl/internal/errors"
)

// smartctl emits temperature under a stable key with --json.
type smartReport struct {
	Temperature struct {
		Current *float64 `json:"current"`
	} `json:"temperature"`
}

func runSmartctl(ctx context.Context, device string) ([]byte, error) {
	errFactory := errors.New()

	out, err := exec.CommandContext(ctx, "smartctl", "-A", "/dev/"+device, "--json").Output()
	if err != nil {
		return nil, errFactory.Wrap(ErrSmartQuery, err)
	}

	return out, nil
}

// parseSmartTemp extracts the current drive temperature from smartctl JSON.
func parseSmartTemp(data []byte) (Sample, error) {
	errFactory := errors.New()

	var report smartReport
	if err := json.Unmarshal(data, &report); err != nil {
		return Sample{}, errFactory.Wrap(ErrSmartQuery, err)
	}

	if report.Temperature.Current == nil {
		return Sample{}, nil
	}

	return sampleOf(*report.Temperature.Current), nil
}
