// Copyright (c) 2025 Cubyte.online under the AGPL License

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameStatsAverage(t *testing.T) {
	var s frameStats
	assert.Zero(t, s.average(true))

	s.add(true, 2)
	s.add(true, 4)
	s.add(false, 10)
	assert.InDelta(t, 3.0, s.average(true), 1e-9)
	assert.InDelta(t, 10.0, s.average(false), 1e-9)
	assert.Equal(t, 3, s.frames())
}

func TestFrameStatsTableSkipsUnusedMode(t *testing.T) {
	var s frameStats
	s.add(false, 1.5)

	var buf bytes.Buffer
	s.render(&buf)
	out := buf.String()
	assert.Contains(t, out, "offscreen")
	assert.Contains(t, out, "1.500 ms")
	assert.NotContains(t, out, "onscreen")
}
