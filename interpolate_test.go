package swathio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelLinearInterpolation(t *testing.T) {
	c := newChannel(1, false)
	c.Add(0, 10)
	c.Add(10, 20)

	v, ok := c.Interp(5)
	require.True(t, ok)
	require.InDelta(t, 15, v[0], 1e-9)
}

func TestChannelOutOfOrderInsertion(t *testing.T) {
	c := newChannel(1, false)
	c.Add(10, 20)
	c.Add(0, 10)
	c.Add(5, 15)

	v, ok := c.Interp(2.5)
	require.True(t, ok)
	require.InDelta(t, 12.5, v[0], 1e-9)
}

func TestChannelExtrapolationWithinGap(t *testing.T) {
	c := newChannel(1, false)
	c.Add(100, 1)
	c.Add(110, 2)

	_, ok := c.Interp(150)
	require.True(t, ok, "40s past the last sample is within the 60s gap")

	_, ok = c.Interp(300)
	require.False(t, ok, "190s past the last sample exceeds the gap")
}

func TestChannelAngularWrapShortestArc(t *testing.T) {
	c := newChannel(1, true)
	c.Add(0, 350)
	c.Add(10, 10)

	v, ok := c.Interp(5)
	require.True(t, ok)
	require.InDelta(t, 0, v[0], 1e-6)
}

func TestSensorInterpolatorsContextFillsPing(t *testing.T) {
	s := NewSensorInterpolators()
	s.Nav.Add(0, 10.0, 20.0, 5.0)
	s.Attitude.Add(0, 1.0, 2.0, 0.3)
	s.Heading.Add(0, 45)
	s.Depth.Add(0, 1.2)

	p := newPing(1)
	s.Context(p, 0)

	require.InDelta(t, 10.0, p.Longitude, 1e-9)
	require.InDelta(t, 20.0, p.Latitude, 1e-9)
	require.InDelta(t, 1.0, p.Pitch, 1e-9)
	require.InDelta(t, 2.0, p.Roll, 1e-9)
	require.InDelta(t, 0.3, p.Heave, 1e-9)
	require.InDelta(t, 45, p.Heading, 1e-9)
	require.InDelta(t, 1.2, p.Draft, 1e-9)
}
