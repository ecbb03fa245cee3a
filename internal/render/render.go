// Package render composes display frames from a state snapshot. It is a
// pure function of its inputs and performs no I/O of its own.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"codeberg.org/sorrel/hatctl/internal/monitor"
	"codeberg.org/sorrel/hatctl/internal/state"
)

const (
	Width  = 240
	Height = 320
)

var (
	colBackground = color.RGBA{0, 0, 0, 255}
	colTitle      = color.RGBA{247, 186, 71, 255}
	colText       = color.RGBA{193, 192, 190, 255}
	colValue      = color.RGBA{241, 180, 0, 255}
	colBar        = color.RGBA{127, 53, 233, 255}
	colBarFrame   = color.RGBA{255, 255, 255, 255}
	colAlert      = color.RGBA{226, 72, 38, 255}
	colOK         = color.RGBA{70, 235, 145, 255}
)

// placeholder is shown for any sample the telemetry source could not read.
const placeholder = "--"

type Renderer struct {
	face font.Face
	now  func() time.Time
}

func New() *Renderer {
	return &Renderer{
		face: basicfont.Face7x13,
		now:  time.Now,
	}
}

// Render composes one full frame for the snapshot's display mode.
func (r *Renderer) Render(snap state.Snapshot) *image.RGBA {
	frame := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(frame, frame.Bounds(), &image.Uniform{colBackground}, image.Point{}, draw.Src)

	switch snap.DisplayMode {
	case state.StorageFocus:
		r.storagePage(frame, snap)
	default:
		r.devicePage(frame, snap)
	}

	return frame
}

func (r *Renderer) devicePage(frame *image.RGBA, snap state.Snapshot) {
	r.text(frame, 70, 20, "Device Status", colTitle)
	r.text(frame, 8, 40, r.now().Format("2006-01-02 15:04:05"), colText)
	r.text(frame, 8, 56, "IP: "+orPlaceholder(snap.Metrics.IPAddress), colText)

	r.gaugeRow(frame, 80, "CPU", snap.Metrics.CPUPercent)
	r.gaugeRow(frame, 104, "RAM", snap.Metrics.RAMPercent)
	r.gaugeRow(frame, 128, "Disk0", snap.Metrics.Disks[0].UsedPercent)
	r.gaugeRow(frame, 152, "Disk1", snap.Metrics.Disks[1].UsedPercent)

	r.text(frame, 8, 186, "TEMP "+formatTemp(snap.Metrics.CPUTemp), colValue)
	r.text(frame, 8, 206, "RX "+formatRate(snap.Metrics.NetRxBps), colText)
	r.text(frame, 120, 206, "TX "+formatRate(snap.Metrics.NetTxBps), colText)

	r.raidBadge(frame, 8, 230, snap.Metrics.RAID)
	r.fanLine(frame, 8, 254, snap)
}

func (r *Renderer) storagePage(frame *image.RGBA, snap state.Snapshot) {
	r.text(frame, 78, 20, "Storage", colTitle)
	r.text(frame, 8, 40, r.now().Format("2006-01-02 15:04:05"), colText)
	r.text(frame, 8, 56, "IP: "+orPlaceholder(snap.Metrics.IPAddress), colText)

	for i, disk := range snap.Metrics.Disks {
		y := 84 + i*56
		r.text(frame, 8, y, fmt.Sprintf("Disk%d: %s", i, disk.Device), colText)
		r.gaugeRow(frame, y+18, "Used", disk.UsedPercent)
		r.text(frame, 160, y, formatTemp(disk.Temperature), colValue)
	}

	r.raidBadge(frame, 8, 210, snap.Metrics.RAID)

	r.text(frame, 8, 234, "RX "+formatRate(snap.Metrics.NetRxBps), colText)
	r.text(frame, 120, 234, "TX "+formatRate(snap.Metrics.NetTxBps), colText)
	r.text(frame, 8, 258, "TEMP "+formatTemp(snap.Metrics.CPUTemp), colValue)
	r.fanLine(frame, 8, 282, snap)
}

func (r *Renderer) fanLine(frame *image.RGBA, x, y int, snap state.Snapshot) {
	col := colText
	if snap.FanMode == state.FanTurbo {
		col = colAlert
	}
	r.text(frame, x, y, fmt.Sprintf("FAN %d%% (%s)", snap.FanDuty, snap.FanMode), col)
}

func (r *Renderer) gaugeRow(frame *image.RGBA, y int, label string, sample monitor.Sample) {
	r.text(frame, 8, y, label, colText)

	if !sample.Valid {
		r.text(frame, 70, y, placeholder, colText)
		return
	}

	r.text(frame, 70, y, fmt.Sprintf("%3.0f%%", sample.Value), colValue)
	r.bar(frame, 120, y-9, 100, 11, sample.Value)
}

func (r *Renderer) raidBadge(frame *image.RGBA, x, y int, raid monitor.RAIDState) {
	switch raid {
	case monitor.RAIDActive:
		r.text(frame, x, y, "RAID "+raid.String(), colOK)
	case monitor.RAIDDegraded:
		r.text(frame, x, y, "RAID "+raid.String(), colAlert)
	case monitor.RAIDNone:
		r.text(frame, x, y, "RAID none", colText)
	default:
		r.text(frame, x, y, "RAID "+placeholder, colText)
	}
}

// bar draws an outlined horizontal gauge filled to pct.
func (r *Renderer) bar(frame *image.RGBA, x, y, w, h int, pct float64) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	for i := 0; i < w; i++ {
		frame.SetRGBA(x+i, y, colBarFrame)
		frame.SetRGBA(x+i, y+h-1, colBarFrame)
	}
	for j := 0; j < h; j++ {
		frame.SetRGBA(x, y+j, colBarFrame)
		frame.SetRGBA(x+w-1, y+j, colBarFrame)
	}

	fill := int(pct / 100 * float64(w-2))
	for j := 1; j < h-1; j++ {
		for i := 0; i < fill; i++ {
			frame.SetRGBA(x+1+i, y+j, colBar)
		}
	}
}

func (r *Renderer) text(frame *image.RGBA, x, y int, s string, col color.RGBA) {
	d := font.Drawer{
		Dst:  frame,
		Src:  image.NewUniform(col),
		Face: r.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func orPlaceholder(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}

func formatTemp(sample monitor.Sample) string {
	if !sample.Valid {
		return placeholder
	}
	return fmt.Sprintf("%.0fC", sample.Value)
}

// formatRate humanizes a byte rate the way the status pages expect.
func formatRate(sample monitor.Sample) string {
	if !sample.Valid {
		return placeholder
	}

	v := sample.Value
	switch {
	case v < 1024:
		return fmt.Sprintf("%.0fB/s", v)
	case v < 1024*1024:
		return fmt.Sprintf("%.0fKB/s", v/1024)
	default:
		return fmt.Sprintf("%.1fMB/s", v/1024/1024)
	}
}
