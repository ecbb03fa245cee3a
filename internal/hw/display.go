package hw

import (
	"image"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"

	"codeberg.org/sorrel/hatctl/internal/errors"
)

// ST7789V command set used by the 2" 240x320 panel.
const (
	cmdSlpOut    = 0x11
	cmdInvOn     = 0x21
	cmdDispOn    = 0x29
	cmdCASet     = 0x2A
	cmdRASet     = 0x2B
	cmdRAMWr     = 0x2C
	cmdMADCtl    = 0x36
	cmdColMod    = 0x3A
	cmdPorCtrl   = 0xB2
	cmdGCtrl     = 0xB7
	cmdVCOMS     = 0xBB
	cmdLCMCtrl   = 0xC0
	cmdVDVVRHEn  = 0xC2
	cmdVRHS      = 0xC3
	cmdVDVS      = 0xC4
	cmdFRCtrl2   = 0xC6
	cmdPWCtrl1   = 0xD0
	cmdPVGamCtrl = 0xE0
	cmdNVGamCtrl = 0xE1

	madctlPortrait = 0x00
	colmodRGB565   = 0x05

	displayWidth  = 240
	displayHeight = 320

	// Linux spidev transfers are limited to the kernel buffer size.
	spiChunk = 4096
)

// Display drives the ST7789V panel over SPI. Present performs the bus
// transfer of a fully-composed frame; the pixel conversion to RGB565
// happens into a reused buffer.
type Display struct {
	conn spi.Conn
	dc   gpio.PinOut
	rst  gpio.PinOut
	bl   gpio.PinOut
	pix  []byte
}

func NewDisplay(conn spi.Conn, dc, rst, bl gpio.PinOut) (*Display, error) {
	d := &Display{
		conn: conn,
		dc:   dc,
		rst:  rst,
		bl:   bl,
		pix:  make([]byte, displayWidth*displayHeight*2),
	}

	if err := d.init(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *Display) reset() error {
	errFactory := errors.New()

	for _, level := range []gpio.Level{gpio.High, gpio.Low, gpio.High} {
		if err := d.rst.Out(level); err != nil {
			return errFactory.Wrap(ErrDisplayInit, err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	return nil
}

func (d *Display) init() error {
	errFactory := errors.New()

	if err := d.reset(); err != nil {
		return err
	}

	seq := []struct {
		cmd  byte
		data []byte
	}{
		{cmdMADCtl, []byte{madctlPortrait}},
		{cmdColMod, []byte{colmodRGB565}},
		{cmdInvOn, nil},
		{cmdPorCtrl, []byte{0x0C, 0x0C, 0x00, 0x33, 0x33}},
		{cmdGCtrl, []byte{0x35}},
		{cmdVCOMS, []byte{0x1F}},
		{cmdLCMCtrl, []byte{0x2C}},
		{cmdVDVVRHEn, []byte{0x01}},
		{cmdVRHS, []byte{0x12}},
		{cmdVDVS, []byte{0x20}},
		{cmdFRCtrl2, []byte{0x0F}},
		{cmdPWCtrl1, []byte{0xA4, 0xA1}},
		{cmdPVGamCtrl, []byte{
			0xD0, 0x08, 0x11, 0x08, 0x0C, 0x15, 0x39,
			0x33, 0x50, 0x36, 0x13, 0x14, 0x29, 0x2D,
		}},
		{cmdNVGamCtrl, []byte{
			0xD0, 0x08, 0x10, 0x08, 0x06, 0x06, 0x39,
			0x44, 0x51, 0x0B, 0x16, 0x14, 0x2F, 0x31,
		}},
		{cmdSlpOut, nil},
	}

	for _, step := range seq {
		if err := d.command(step.cmd, step.data...); err != nil {
			return errFactory.Wrap(ErrDisplayInit, err)
		}
	}

	// The panel needs time to wake from sleep before display-on.
	time.Sleep(120 * time.Millisecond)

	if err := d.command(cmdDispOn); err != nil {
		return errFactory.Wrap(ErrDisplayInit, err)
	}

	return nil
}

func (d *Display) command(cmd byte, data ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.conn.Tx([]byte{cmd}, nil); err != nil {
		return err
	}

	if len(data) == 0 {
		return nil
	}

	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	return d.writeChunked(data)
}

func (d *Display) writeChunked(data []byte) error {
	for len(data) > 0 {
		n := len(data)
		if n > spiChunk {
			n = spiChunk
		}
		if err := d.conn.Tx(data[:n], nil); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (d *Display) setWindow() error {
	if err := d.command(cmdCASet,
		0x00, 0x00,
		byte((displayWidth-1)>>8), byte((displayWidth-1)&0xFF)); err != nil {
		return err
	}
	return d.command(cmdRASet,
		0x00, 0x00,
		byte((displayHeight-1)>>8), byte((displayHeight-1)&0xFF))
}

// Present converts the frame to RGB565 and sends it to the panel.
func (d *Display) Present(frame *image.RGBA) error {
	errFactory := errors.New()

	bounds := frame.Bounds()
	if bounds.Dx() != displayWidth || bounds.Dy() != displayHeight {
		return errFactory.WithData(errors.ErrInvalidArgument, "frame size mismatch")
	}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := frame.Pix[(y-bounds.Min.Y)*frame.Stride:]
		for x := 0; x < displayWidth; x++ {
			r := row[x*4]
			g := row[x*4+1]
			b := row[x*4+2]
			v := uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b)>>3
			d.pix[i] = byte(v >> 8)
			d.pix[i+1] = byte(v)
			i += 2
		}
	}

	if err := d.setWindow(); err != nil {
		return errFactory.Wrap(ErrDisplayWrite, err)
	}
	if err := d.command(cmdRAMWr, d.pix...); err != nil {
		return errFactory.Wrap(ErrDisplayWrite, err)
	}

	return nil
}

// SetBrightness drives the backlight PWM.
func (d *Display) SetBrightness(percent int) error {
	errFactory := errors.New()

	if err := d.bl.PWM(dutyFromPercent(percent), pwmFrequency); err != nil {
		return errFactory.Wrap(ErrPWMWrite, err)
	}

	return nil
}
