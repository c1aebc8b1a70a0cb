package coverart

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertFromURL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/cover.png" {
			http.NotFound(w, r)
			return
		}
		img := image.NewGray(image.Rect(0, 0, 40, 40))
		for x := 0; x < 40; x++ {
			for y := 0; y < 40; y++ {
				img.SetGray(x, y, color.Gray{Y: uint8(x * 6)})
			}
		}
		w.Header().Set("Content-Type", "image/png")
		_ = png.Encode(w, img)
	}))
	defer srv.Close()

	c := NewConverter(0)
	c.SetSize(10, 5)

	ascii, err := c.ConvertFromURL(context.Background(), srv.URL+"/cover.png")
	require.NoError(t, err)
	assert.NotEqual(t, Placeholder(), ascii)
	assert.NotEmpty(t, strings.TrimSpace(ascii))

	again, err := c.ConvertFromURL(context.Background(), srv.URL+"/cover.png")
	require.NoError(t, err)
	assert.Equal(t, ascii, again)
	assert.EqualValues(t, 1, hits.Load())

	fallback, err := c.ConvertFromURL(context.Background(), srv.URL+"/missing.png")
	assert.ErrorContains(t, err, "status 404")
	assert.Equal(t, Placeholder(), fallback)

	empty, err := c.ConvertFromURL(context.Background(), "")
	assert.NoError(t, err)
	assert.Equal(t, Placeholder(), empty)
}
