package calendar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fogleman/gg"
)

// Image layout, in pixels.
const (
	cellW      = 160.0
	cellH      = 110.0
	headerH    = 70.0
	weekdayH   = 30.0
	padding    = 20.0
	cellRadius = 8.0
)

// RenderImage draws month of year as a grid and writes it as a PNG.
func RenderImage(w io.Writer, year int, month time.Month, entries []Entry) error {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	offset := int(first.Weekday())
	rows := (offset + daysInMonth + 6) / 7

	width := 7*cellW + 2*padding
	height := headerH + weekdayH + float64(rows)*cellH + 2*padding

	dc := gg.NewContext(int(width), int(height))
	dc.SetHexColor("#36393f")
	dc.Clear()

	dc.SetHexColor("#ffffff")
	dc.DrawStringAnchored(
		fmt.Sprintf("%s %d", month, year),
		width/2, padding+headerH/2,
		0.5, 0.5,
	)

	for i := 0; i < 7; i++ {
		x := padding + float64(i)*cellW + cellW/2
		dc.DrawStringAnchored(
			time.Weekday(i).String()[:3],
			x, padding+headerH+weekdayH/2,
			0.5, 0.5,
		)
	}

	names := cellNames(entries, daysInMonth)

	for day := 1; day <= daysInMonth; day++ {
		slot := offset + day - 1
		x := padding + float64(slot%7)*cellW
		y := padding + headerH + weekdayH + float64(slot/7)*cellH

		dc.DrawRoundedRectangle(x+2, y+2, cellW-4, cellH-4, cellRadius)
		if len(names[day]) > 0 {
			dc.SetHexColor("#f5a9b8")
		} else {
			dc.SetHexColor("#2f3136")
		}
		dc.Fill()

		if len(names[day]) > 0 {
			dc.SetHexColor("#000000")
		} else {
			dc.SetHexColor("#b9bbbe")
		}
		dc.DrawString(fmt.Sprint(day), x+10, y+20)

		if len(names[day]) > 0 {
			dc.DrawStringWrapped(
				strings.Join(names[day], ", "),
				x+cellW/2, y+cellH/2+10,
				0.5, 0.5,
				cellW-20, 1.2,
				gg.AlignCenter,
			)
		}
	}

	return dc.EncodePNG(w)
}

// cellNames maps each day of the month to the names drawn in its cell.
// Days past the end of the month, Feb 29 in common years, land on the last
// day with their real date attached.
func cellNames(entries []Entry, daysInMonth int) map[int][]string {
	names := make(map[int][]string)
	for _, day := range Group(entries) {
		if day.Day <= daysInMonth {
			names[day.Day] = append(names[day.Day], day.Names...)
			continue
		}
		for _, name := range day.Names {
			names[daysInMonth] = append(
				names[daysInMonth],
				fmt.Sprintf("%s (%s)", name, humanize.Ordinal(day.Day)),
			)
		}
	}
	return names
}
