// Copyright (c) 2025 Cubyte.online under the AGPL License

package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// frameStats accumulates frame times per presentation mode.
type frameStats struct {
	total [2]float64 // ms, indexed by mode
	count [2]int
}

func mode(onscreen bool) int {
	if onscreen {
		return 1
	}
	return 0
}

func (s *frameStats) add(onscreen bool, ms float64) {
	s.total[mode(onscreen)] += ms
	s.count[mode(onscreen)]++
}

// average returns the mean frame time in ms, or 0 without frames.
func (s *frameStats) average(onscreen bool) float64 {
	m := mode(onscreen)
	if s.count[m] == 0 {
		return 0
	}
	return s.total[m] / float64(s.count[m])
}

func (s *frameStats) frames() int { return s.count[0] + s.count[1] }

// render writes one row per mode that rendered at least one frame.
func (s *frameStats) render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Mode", "Frames", "Average"})
	for _, on := range []bool{true, false} {
		m := mode(on)
		if s.count[m] == 0 {
			continue
		}
		name := "offscreen"
		if on {
			name = "onscreen"
		}
		table.Append([]string{name, fmt.Sprintf("%d", s.count[m]), fmt.Sprintf("%.3f ms", s.average(on))})
	}
	table.SetFooter([]string{"TOTAL", fmt.Sprintf("%d", s.frames()), ""})
	table.Render()
}
