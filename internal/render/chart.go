// Package render draws the overlay chart, the single-clip pitch chart and
// the spectrogram images.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/eligwz/spectrogram"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	vgdraw "gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/himanishpuri/FretCoach/internal/align"
	"github.com/himanishpuri/FretCoach/internal/pitch"
)

const chartDPI = 96

// Smallest canvas that still leaves room for the axes and the legend.
const minChartSide = 120

type openString struct {
	name  string
	midi  float64
	color color.Color
}

// Standard tuning, low to high.
var openStrings = []openString{
	{"E2", 40, color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}},
	{"A2", 45, color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}},
	{"D3", 50, color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}},
	{"G3", 55, color.RGBA{R: 0x17, G: 0xbe, B: 0xcf, A: 0xff}},
	{"B3", 59, color.RGBA{R: 0xc4, G: 0x4e, B: 0xc4, A: 0xff}},
	{"E4", 64, color.RGBA{R: 0xbc, G: 0xbd, B: 0x22, A: 0xff}},
}

var (
	colorReference = color.RGBA{R: 0x1f, G: 0x4f, B: 0xd8, A: 0xff}
	colorUser      = color.RGBA{R: 0xe0, G: 0x28, B: 0x2e, A: 0xff}
	colorGuide     = color.Gray{Y: 0xb0}
)

type ChartOptions struct {
	Width  int
	Height int
	Title  string
}

func DefaultChartOptions() ChartOptions {
	return ChartOptions{Width: 1200, Height: 600}
}

// ComparisonTitle is the overlay chart heading for a similarity score.
func ComparisonTitle(score float64) string {
	return fmt.Sprintf("Pitch Comparison (Similarity Score: %.1f / 100)", score)
}

func (o ChartOptions) validate() error {
	if o.Width < minChartSide || o.Height < minChartSide {
		return fmt.Errorf("chart must be at least %dx%d pixels", minChartSide, minChartSide)
	}
	return nil
}

// OverlayPlot lays out the aligned contours: reference in blue, user in red,
// reference time on x and MIDI notes on y labelled by note name.
func OverlayPlot(ov *align.Overlay, opts ChartOptions) (*plot.Plot, error) {
	if ov == nil || len(ov.Reference) == 0 {
		return nil, errors.New("nothing to plot")
	}

	p := plot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = "Pitch Comparison"
	}
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Pitch (MIDI Note Number)"
	p.Y.Tick.Marker = plot.TickerFunc(noteTicks)
	p.Add(dashedGrid())

	if err := addSeries(p, "Reference Pitch", ov.Reference, colorReference); err != nil {
		return nil, err
	}
	if err := addSeries(p, "Your Pitch", ov.User, colorUser); err != nil {
		return nil, err
	}
	p.Y.Min = math.Floor(p.Y.Min) - 1
	p.Y.Max = math.Ceil(p.Y.Max) + 1

	for _, s := range openStrings {
		if s.midi < p.Y.Min || s.midi > p.Y.Max {
			continue
		}
		p.Add(guideLine(s.midi, colorGuide))
	}
	p.Legend.Top = true
	return p, nil
}

// PitchPlot shows a single clip's voiced f0 on a log-frequency axis with
// dashed guide lines at the open strings.
func PitchPlot(tr *pitch.Track, opts ChartOptions) (*plot.Plot, error) {
	if tr == nil || tr.Empty() {
		return nil, errors.New("nothing to plot")
	}

	xys := make(plotter.XYs, tr.Len())
	for i := range xys {
		s := tr.At(i)
		xys[i].X, xys[i].Y = s.Time, s.Frequency
	}
	pts, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, err
	}
	pts.GlyphStyle.Color = colorReference
	pts.GlyphStyle.Radius = vg.Points(1.5)
	pts.GlyphStyle.Shape = vgdraw.CircleGlyph{}

	p := plot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = "Pitch Analysis"
	}
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Frequency (Hz)"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.TickerFunc(hzTicks)
	p.Add(dashedGrid(), pts)
	p.Legend.Add("Pitch (f0)", pts)

	lo, hi := p.Y.Min, p.Y.Max
	for _, s := range openStrings {
		lo = math.Min(lo, pitch.MIDIToHz(s.midi))
		hi = math.Max(hi, pitch.MIDIToHz(s.midi))
	}
	p.Y.Min, p.Y.Max = lo/1.1, hi*1.1

	for _, s := range openStrings {
		g := guideLine(pitch.MIDIToHz(s.midi), s.color)
		p.Add(g)
		p.Legend.Add(s.name, g)
	}
	p.Legend.Top = true
	return p, nil
}

// OverlayChart renders the overlay plot to an RGBA image of opts.Width by
// opts.Height pixels.
func OverlayChart(ov *align.Overlay, opts ChartOptions) (image.Image, error) {
	c, err := overlayCanvas(ov, opts)
	if err != nil {
		return nil, err
	}
	return c.Image(), nil
}

// WriteOverlayPNG encodes the overlay chart as PNG.
func WriteOverlayPNG(w io.Writer, ov *align.Overlay, opts ChartOptions) error {
	c, err := overlayCanvas(ov, opts)
	if err != nil {
		return err
	}
	_, err = vgimg.PngCanvas{Canvas: c}.WriteTo(w)
	return err
}

func SaveOverlayPNG(path string, ov *align.Overlay, opts ChartOptions) error {
	c, err := overlayCanvas(ov, opts)
	if err != nil {
		return err
	}
	return spectrogram.SavePng(toImage128(c.Image()), path)
}

func SavePitchPNG(path string, tr *pitch.Track, opts ChartOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	p, err := PitchPlot(tr, opts)
	if err != nil {
		return err
	}
	return spectrogram.SavePng(toImage128(rasterize(p, opts).Image()), path)
}

func overlayCanvas(ov *align.Overlay, opts ChartOptions) (*vgimg.Canvas, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	p, err := OverlayPlot(ov, opts)
	if err != nil {
		return nil, err
	}
	return rasterize(p, opts), nil
}

func rasterize(p *plot.Plot, opts ChartOptions) *vgimg.Canvas {
	px := func(n int) vg.Length { return vg.Length(n) * vg.Inch / chartDPI }
	c := vgimg.NewWith(vgimg.UseWH(px(opts.Width), px(opts.Height)), vgimg.UseDPI(chartDPI))
	p.Draw(vgdraw.New(c))
	return c
}

// toImage128 widens 16-bit channels to the 32-bit range Image128 stores.
func toImage128(src image.Image) *spectrogram.Image128 {
	b := src.Bounds()
	dst := spectrogram.NewImage128(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := src.At(x, y).RGBA()
			dst.Set(x, y, spectrogram.NewColor128(r*0x10001, g*0x10001, bl*0x10001, a*0x10001))
		}
	}
	return dst
}

func addSeries(p *plot.Plot, name string, pts []align.Point, c color.Color) error {
	xys := make(plotter.XYs, len(pts))
	for i, pt := range pts {
		xys[i].X, xys[i].Y = pt.Time, pt.MIDI
	}
	l, s, err := plotter.NewLinePoints(xys)
	if err != nil {
		return err
	}
	l.Color = c
	l.Width = vg.Points(1.5)
	s.GlyphStyle.Color = c
	s.GlyphStyle.Radius = vg.Points(2)
	s.GlyphStyle.Shape = vgdraw.CircleGlyph{}
	p.Add(l, s)
	p.Legend.Add(name, l, s)
	return nil
}

func guideLine(y float64, c color.Color) *plotter.Function {
	f := plotter.NewFunction(func(float64) float64 { return y })
	f.Samples = 2
	f.Color = c
	f.Width = vg.Points(0.75)
	f.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	return f
}

func dashedGrid() *plotter.Grid {
	g := plotter.NewGrid()
	g.Vertical.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	g.Horizontal.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	return g
}

// noteTicks marks every semitone and labels them by note name, thinning the
// labels so that at most about a dozen are shown.
func noteTicks(min, max float64) []plot.Tick {
	lo, hi := math.Ceil(min), math.Floor(max)
	step := math.Max(1, math.Ceil((hi-lo)/12))
	var ticks []plot.Tick
	for m := lo; m <= hi; m++ {
		t := plot.Tick{Value: m}
		if math.Mod(m, step) == 0 {
			t.Label = pitch.NoteName(m)
		}
		ticks = append(ticks, t)
	}
	return ticks
}

// hzTicks marks semitones on a log-frequency axis, labelling every E and A
// with its frequency in whole hertz.
func hzTicks(min, max float64) []plot.Tick {
	lo, hi := math.Ceil(pitch.HzToMIDI(min)), math.Floor(pitch.HzToMIDI(max))
	var ticks []plot.Tick
	for m := lo; m <= hi; m++ {
		hz := pitch.MIDIToHz(m)
		t := plot.Tick{Value: hz}
		if n := int(m) % 12; n == 4 || n == 9 {
			t.Label = fmt.Sprintf("%d", int(math.Round(hz)))
		}
		ticks = append(ticks, t)
	}
	return ticks
}
