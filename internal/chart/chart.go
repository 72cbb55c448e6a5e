package chart

import (
	"bytes"
	"errors"
	"image/color"
	"sync"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/money"
	"github.com/Freeeeeet/bizsuite/internal/report"
	"github.com/fogleman/gg"
	"github.com/shopspring/decimal"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var ErrNoData = errors.New("no reports to draw")

// Sizes and paddings
const (
	imageWidth   = 1200
	imageHeight  = 600
	headerHeight = 80
	footerHeight = 60
	leftAxis     = 130
	rightPadding = 40
	barGap       = 6.0
	barRadius    = 4.0
	gridLines    = 5
)

const (
	titleFontSize = 26.0
	axisFontSize  = 14.0
	labelFontSize = 13.0
)

var (
	bgColor      = color.RGBA{245, 246, 248, 255}
	textColor    = color.RGBA{80, 85, 90, 220}
	axisColor    = color.RGBA{110, 115, 120, 200}
	gridColor    = color.NRGBA{200, 200, 200, 255}
	incomeColor  = color.RGBA{133, 193, 85, 220}
	expenseColor = color.RGBA{235, 110, 100, 220}
	balanceColor = color.RGBA{60, 110, 200, 230}
	shadowColor  = color.RGBA{0, 0, 0, 20}
)

var (
	fontsOnce sync.Once
	regular   *opentype.Font
	bold      *opentype.Font
)

// setFont picks the Go font at size, falling back to basicfont
func setFont(dc *gg.Context, size float64, isBold bool) {
	fontsOnce.Do(func() {
		regular, _ = opentype.Parse(goregular.TTF)
		bold, _ = opentype.Parse(gobold.TTF)
	})

	f := regular
	if isBold {
		f = bold
	}
	if f != nil {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
		if err == nil {
			dc.SetFontFace(face)
			return
		}
	}
	dc.SetFontFace(basicfont.Face7x13)
}

// Render draws income and expense bars per period with the balance as a line, as PNG
func Render(title string, reports []*model.Report) ([]byte, error) {
	if len(reports) == 0 {
		return nil, ErrNoData
	}

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()

	setFont(dc, titleFontSize, true)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, imageWidth/2, headerHeight/2, 0.5, 0.5)

	lo, hi := scale(reports)
	plotTop := float64(headerHeight)
	plotBottom := float64(imageHeight - footerHeight)
	plotLeft := float64(leftAxis)
	plotRight := float64(imageWidth - rightPadding)

	y := func(v decimal.Decimal) float64 {
		f := v.Sub(lo).Div(hi.Sub(lo)).InexactFloat64()
		return plotBottom - f*(plotBottom-plotTop)
	}

	drawGrid(dc, lo, hi, plotLeft, plotRight, y)

	slot := (plotRight - plotLeft) / float64(len(reports))
	barW := (slot - 3*barGap) / 2
	zero := y(decimal.Zero)

	points := make([][2]float64, 0, len(reports))
	for i, r := range reports {
		x := plotLeft + float64(i)*slot + barGap

		drawBar(dc, x, zero, y(r.Income), barW, incomeColor)
		drawBar(dc, x+barW+barGap, zero, y(r.Expense), barW, expenseColor)

		setFont(dc, labelFontSize, false)
		dc.SetColor(axisColor)
		dc.DrawStringAnchored(report.Label(r.PeriodType, r.PeriodStart), x+barW+barGap/2, plotBottom+18, 0.5, 0.5)

		points = append(points, [2]float64{x + barW + barGap/2, y(r.Balance)})
	}

	dc.SetColor(balanceColor)
	dc.SetLineWidth(3)
	for i, p := range points {
		if i == 0 {
			dc.MoveTo(p[0], p[1])
			continue
		}
		dc.LineTo(p[0], p[1])
	}
	dc.Stroke()
	for _, p := range points {
		dc.DrawCircle(p[0], p[1], 4)
		dc.Fill()
	}

	drawLegend(dc)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// scale returns the value range of the plot; it always contains zero
func scale(reports []*model.Report) (decimal.Decimal, decimal.Decimal) {
	lo, hi := decimal.Zero, decimal.Zero
	for _, r := range reports {
		for _, v := range []decimal.Decimal{r.Income, r.Expense, r.Balance} {
			lo = decimal.Min(lo, v)
			hi = decimal.Max(hi, v)
		}
	}
	if lo.Equal(hi) {
		hi = lo.Add(decimal.NewFromInt(100))
	}
	return lo, hi
}

func drawGrid(dc *gg.Context, lo, hi decimal.Decimal, left, right float64, y func(decimal.Decimal) float64) {
	setFont(dc, axisFontSize, false)
	step := hi.Sub(lo).Div(decimal.NewFromInt(gridLines))

	for i := 0; i <= gridLines; i++ {
		v := lo.Add(step.Mul(decimal.NewFromInt(int64(i))))
		yy := y(v)

		dc.SetColor(gridColor)
		dc.SetLineWidth(1)
		dc.DrawLine(left, yy, right, yy)
		dc.Stroke()

		dc.SetColor(axisColor)
		dc.DrawStringAnchored(money.Format(v.Round(0)), left-10, yy, 1, 0.5)
	}
}

func drawBar(dc *gg.Context, x, zero, top, width float64, c color.Color) {
	if top > zero {
		zero, top = top, zero
	}
	height := zero - top
	if height < 1 {
		return
	}

	dc.SetColor(shadowColor)
	dc.DrawRoundedRectangle(x+2, top+2, width, height, barRadius)
	dc.Fill()

	dc.SetColor(c)
	dc.DrawRoundedRectangle(x, top, width, height, barRadius)
	dc.Fill()
}

func drawLegend(dc *gg.Context) {
	items := []struct {
		label string
		clr   color.Color
	}{
		{"Receitas", incomeColor},
		{"Despesas", expenseColor},
		{"Saldo", balanceColor},
	}

	x := float64(leftAxis)
	y := float64(imageHeight) - 26
	setFont(dc, labelFontSize, false)
	for _, item := range items {
		dc.SetColor(item.clr)
		dc.DrawRoundedRectangle(x, y-7, 20, 14, 3)
		dc.Fill()

		dc.SetColor(textColor)
		dc.DrawStringAnchored(item.label, x+28, y, 0, 0.35)
		w, _ := dc.MeasureString(item.label)
		x += 28 + w + 30
	}
}
