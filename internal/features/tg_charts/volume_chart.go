package tg_charts

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"spyton-bot/internal/infra/log"
	"spyton-bot/internal/leaderboard"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
)

const (
	chartWidth  = 1600
	chartHeight = 900

	chartAreaLeft   = 120.0
	chartAreaRight  = 1520.0
	chartAreaTop    = 160.0
	chartAreaBottom = 780.0

	maxBars    = 10
	barSpacing = 30.0

	gridLinesCount = 4

	titleFontSize    = 44.0
	barValueFontSize = 26.0
	labelFontSize    = 24.0

	barValueOffsetY = 16.0
	labelOffsetY    = 36.0
)

var fontPaths = []string{
	"etc/fonts/InterVariable.ttf",
	"etc/fonts/Inter-Regular.ttf",
	"/usr/share/fonts/truetype/inter/Inter-Regular.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
	"/System/Library/Fonts/Helvetica.ttc",
}

// GenerateLeaderboardChart renders the current leaderboard as a bar chart of
// in-window TON volume and returns the PNG path.
func GenerateLeaderboardChart(entries []leaderboard.Entry, outDir string) (string, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("no leaderboard data to chart")
	}
	if len(entries) > maxBars {
		entries = entries[:maxBars]
	}

	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetColor(color.Black)
	dc.Clear()

	fontPath := findFont()
	loadFont := func(size float64) {
		if fontPath != "" {
			dc.LoadFontFace(fontPath, size)
		}
	}
	if fontPath == "" {
		log.LogWarn("no usable chart font found, falling back to default face",
			zap.Int("paths_checked", len(fontPaths)))
	}

	loadFont(titleFontSize)
	dc.SetColor(color.White)
	dc.DrawString("SpyTON Trending / Buy Volume (TON)", chartAreaLeft, 90)

	maxVolume := 0.0
	for _, e := range entries {
		if e.TONVolume > maxVolume {
			maxVolume = e.TONVolume
		}
	}
	if maxVolume == 0 {
		maxVolume = 1.0
	}

	chartAreaHeight := chartAreaBottom - chartAreaTop

	// Horizontal guides.
	dc.SetColor(color.RGBA{60, 60, 60, 255})
	dc.SetLineWidth(1)
	for i := 0; i <= gridLinesCount; i++ {
		y := chartAreaBottom - float64(i)/float64(gridLinesCount)*chartAreaHeight
		dc.DrawLine(chartAreaLeft, y, chartAreaRight, y)
		dc.Stroke()
	}

	barWidth := (chartAreaRight - chartAreaLeft - float64(len(entries)-1)*barSpacing) / float64(len(entries))

	for i, e := range entries {
		barX := chartAreaLeft + float64(i)*(barWidth+barSpacing)
		barHeight := (e.TONVolume / maxVolume) * chartAreaHeight
		barY := chartAreaBottom - barHeight

		// Podium places keep the leaderboard's color coding.
		if i < 3 {
			dc.SetColor(color.RGBA{220, 40, 40, 255})
		} else {
			dc.SetColor(color.RGBA{128, 128, 128, 255})
		}
		dc.DrawRectangle(barX, barY, barWidth, barHeight)
		dc.Fill()

		dc.SetColor(color.White)
		loadFont(barValueFontSize)
		valueText := fmt.Sprintf("%.1f", e.TONVolume)
		textWidth, _ := dc.MeasureString(valueText)
		dc.DrawString(valueText, barX+(barWidth-textWidth)/2, barY-barValueOffsetY)

		loadFont(labelFontSize)
		label := fmt.Sprintf("%d. %s", e.Rank, e.TokenSymbol)
		labelWidth, _ := dc.MeasureString(label)
		dc.DrawString(label, barX+(barWidth-labelWidth)/2, chartAreaBottom+labelOffsetY)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create chart directory: %w", err)
	}

	filename := filepath.Join(outDir, "leaderboard_chart.png")
	if err := dc.SavePNG(filename); err != nil {
		return "", fmt.Errorf("failed to save chart: %w", err)
	}

	fileInfo, err := os.Stat(filename)
	if err != nil {
		return "", fmt.Errorf("failed to stat chart file: %w", err)
	}
	if fileInfo.Size() == 0 {
		os.Remove(filename)
		return "", fmt.Errorf("chart file is empty after rendering")
	}

	log.LogInfo("leaderboard chart generated",
		zap.String("filename", filename),
		zap.Int("bars", len(entries)))
	return filename, nil
}

func findFont() string {
	for _, path := range fontPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
