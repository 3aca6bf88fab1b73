package images

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/saptahik/internal/domain"
	"github.com/Adda-Baaj/saptahik/internal/fetcher"
	"github.com/Adda-Baaj/saptahik/internal/logger"
	"github.com/Adda-Baaj/saptahik/pkg/httpclient"
)

// testPNG encodes a solid PNG of the given size.
func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestResolver(t *testing.T, maxWidth int) (*Resolver, *httptest.Server, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/wide.png", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Write(testPNG(t, 800, 600))
	})
	mux.HandleFunc("/narrow.png", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Write(testPNG(t, 120, 90))
	})
	mux.HandleFunc("/broken.png", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "gone", http.StatusNotFound)
	})
	mux.HandleFunc("/not-an-image.png", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("<html>definitely not a png</html>"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	f := fetcher.New(httpclient.NewRestyClient(5*time.Second), nil, logger.NopLogger{})
	return New(f, t.TempDir(), maxWidth, logger.NopLogger{}), server, &hits
}

func TestResolver_ResizesWideImage(t *testing.T) {
	r, server, _ := newTestResolver(t, 400)

	img, err := r.Resolve(context.Background(), server.URL+"/wide.png")
	require.NoError(t, err)

	assert.Equal(t, server.URL+"/wide.png", img.SourceURL)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Contains(t, img.Filename, "wide.png")

	saved, err := imaging.Open(img.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, 400, saved.Bounds().Dx())
	assert.Equal(t, 300, saved.Bounds().Dy(), "aspect ratio preserved")
}

func TestResolver_KeepsNarrowImage(t *testing.T) {
	r, server, _ := newTestResolver(t, 400)

	img, err := r.Resolve(context.Background(), server.URL+"/narrow.png")
	require.NoError(t, err)

	saved, err := imaging.Open(img.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, 120, saved.Bounds().Dx())
}

func TestResolver_ReusesExistingFile(t *testing.T) {
	r, server, hits := newTestResolver(t, 400)

	first, err := r.Resolve(context.Background(), server.URL+"/wide.png")
	require.NoError(t, err)

	// A fresh fetcher proves the short-circuit is the file on disk, not
	// the in-process memo.
	r.fetcher = fetcher.New(httpclient.NewRestyClient(5*time.Second), nil, logger.NopLogger{})

	second, err := r.Resolve(context.Background(), server.URL+"/wide.png")
	require.NoError(t, err)
	assert.Equal(t, first.LocalPath, second.LocalPath)
	assert.Equal(t, int64(1), hits.Load())
}

func TestResolver_FetchFailure(t *testing.T) {
	r, server, _ := newTestResolver(t, 400)

	_, err := r.Resolve(context.Background(), server.URL+"/broken.png")
	assert.Error(t, err)
}

func TestResolver_DecodeFailure(t *testing.T) {
	r, server, _ := newTestResolver(t, 400)

	_, err := r.Resolve(context.Background(), server.URL+"/not-an-image.png")
	assert.ErrorContains(t, err, "decode image")
}

func TestResolver_ResolveAllSkipsFailures(t *testing.T) {
	r, server, _ := newTestResolver(t, 400)

	art := domain.Article{
		URL:         server.URL + "/article",
		TopImageURL: server.URL + "/wide.png",
		ImageURLs: []string{
			server.URL + "/broken.png",
			server.URL + "/narrow.png",
		},
	}

	resolved := r.ResolveAll(context.Background(), art)

	require.Len(t, resolved.Images, 2, "broken image skipped, others kept")
	assert.Equal(t, server.URL+"/wide.png", resolved.Images[0].SourceURL, "top image first")
	assert.Equal(t, server.URL+"/narrow.png", resolved.Images[1].SourceURL)
}

func TestLocalFilename(t *testing.T) {
	a := localFilename("https://cdn.example.com/photos/cover.jpg?width=1200")
	b := localFilename("https://cdn.example.com/photos/cover.jpg")

	assert.NotEqual(t, a, b, "query string participates in the hash")
	assert.Contains(t, a, "cover.jpg")
	assert.NotContains(t, a, "?")

	c := localFilename("https://cdn.example.com/photos/")
	assert.Contains(t, c, "image.jpg", "unusable basename replaced")
}
