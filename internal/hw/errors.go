package hw

import "codeberg.org/sorrel/hatctl/internal/errors"

const (
	ErrHostInit     = errors.ErrorCode("hw_host_init_failed")
	ErrSPIOpen      = errors.ErrorCode("hw_spi_open_failed")
	ErrSPIConnect   = errors.ErrorCode("hw_spi_connect_failed")
	ErrPinNotFound  = errors.ErrorCode("hw_pin_not_found")
	ErrPinConfig    = errors.ErrorCode("hw_pin_config_failed")
	ErrDisplayInit  = errors.ErrorCode("hw_display_init_failed")
	ErrDisplayWrite = errors.ErrorCode("hw_display_write_failed")
	ErrPWMWrite     = errors.ErrorCode("hw_pwm_write_failed")
)
