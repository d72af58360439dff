// Package chart отрисовывает графики в PNG-буферы, закодированные в base64,
// пригодные для прямого встраивания в документ. Файлы на диск не пишутся.
package chart

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Chart — готовый к встраиванию график: PNG в base64.
type Chart string

var (
	Blue  = color.RGBA{R: 135, G: 206, B: 235, A: 255}
	Green = color.RGBA{R: 144, G: 238, B: 144, A: 255}
	Red   = color.RGBA{R: 220, G: 20, B: 60, A: 255}
	Gray  = color.RGBA{R: 120, G: 120, B: 120, A: 255}
)

// PNG отрисовывает график в PNG-буфер и кодирует его в base64.
func PNG(p *plot.Plot, width, height vg.Length) (Chart, error) {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return "", fmt.Errorf("рендер графика: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("запись PNG: %w", err)
	}
	return Chart(base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// Row отрисовывает несколько графиков в одну строку одного изображения.
func Row(width, height vg.Length, plots ...*plot.Plot) (Chart, error) {
	img := vgimg.New(width, height)
	dc := draw.New(img)

	tiles := draw.Tiles{
		Rows: 1,
		Cols: len(plots),
		PadX: vg.Points(12),
	}
	for i, p := range plots {
		p.Draw(tiles.At(dc, i, 0))
	}

	var buf bytes.Buffer
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("запись PNG: %w", err)
	}
	return Chart(base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// VLine строит вертикальную линию-отметку (среднее, медиана).
func VLine(x, yMax float64, c color.Color) (*plotter.Line, error) {
	line, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: yMax}})
	if err != nil {
		return nil, err
	}
	line.Color = c
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	return line, nil
}

// Bar — столбчатая диаграмма с подписями категорий.
func Bar(title, yLabel string, labels []string, values []float64, c color.Color) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel

	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(28))
	if err != nil {
		return nil, err
	}
	bars.Color = c
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(labels...)
	return p, nil
}
