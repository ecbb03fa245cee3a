package monitor

import "codeberg.org/sorrel/hatctl/internal/errors"

const (
	ErrProcRead    = errors.ErrorCode("monitor_proc_read_failed")
	ErrProcParse   = errors.ErrorCode("monitor_proc_parse_failed")
	ErrThermalRead = errors.ErrorCode("monitor_thermal_read_failed")
	ErrSmartQuery  = errors.ErrorCode("monitor_smart_query_failed")
	ErrStatfs      = errors.ErrorCode("monitor_statfs_failed")
)
