package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/driftsim/internal/drift"
)

func frames(n, les int, dLong float64) [][]drift.WorldPoint3D {
	out := make([][]drift.WorldPoint3D, n)
	for i := range out {
		out[i] = make([]drift.WorldPoint3D, les)
		for j := range out[i] {
			out[i][j] = drift.WorldPoint3D{Lat: 10 + float64(j)*0.01, Long: -70 + float64(i)*dLong}
		}
	}
	return out
}

func TestTrajectoriesSVG(t *testing.T) {
	var buf bytes.Buffer
	err := TrajectoriesSVG(&buf, frames(4, 3, 0.01), frames(4, 3, 0.02), DefaultSVGOptions())
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.True(t, strings.HasSuffix(out, "</svg>\n"))
	assert.Equal(t, 6, strings.Count(out, "<path "))
	assert.Contains(t, out, "#2e8b57")
	assert.Contains(t, out, "#d2452d")
}

func TestTrajectoriesSVGForecastOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TrajectoriesSVG(&buf, frames(2, 1, 0), nil, SVGOptions{}))
	assert.Equal(t, 1, strings.Count(buf.String(), "<path "))
	assert.Contains(t, buf.String(), `width="800"`)
	assert.NotContains(t, buf.String(), "NaN")
}

func TestTrajectoriesSVGNeedsFrames(t *testing.T) {
	err := TrajectoriesSVG(&bytes.Buffer{}, frames(1, 2, 0), nil, DefaultSVGOptions())
	assert.ErrorIs(t, err, ErrNoFrames)
}
