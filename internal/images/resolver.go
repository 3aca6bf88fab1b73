// Package images downloads article images and resizes them for the ebook.
// Failures here are never fatal: a broken image is skipped and the article
// keeps its text.
package images

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec // non-cryptographic file naming
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/Adda-Baaj/saptahik/internal/domain"
	"github.com/Adda-Baaj/saptahik/internal/fetcher"
	"github.com/Adda-Baaj/saptahik/internal/logger"
)

// Resolver fetches, resizes and stores images under a local directory.
type Resolver struct {
	fetcher  *fetcher.Fetcher
	log      logger.Logger
	dir      string
	maxWidth int
}

// New builds a Resolver writing into dir. Images wider than maxWidth are
// scaled down to it.
func New(f *fetcher.Fetcher, dir string, maxWidth int, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Resolver{fetcher: f, log: log, dir: dir, maxWidth: maxWidth}
}

// Resolve downloads and resizes one image, returning its local record.
// The file is reused when a previous run already produced it.
func (r *Resolver) Resolve(ctx context.Context, imageURL string) (domain.Image, error) {
	filename := localFilename(imageURL)
	localPath := filepath.Join(r.dir, filename)

	if _, err := os.Stat(localPath); err == nil {
		return domain.Image{
			SourceURL:   imageURL,
			Filename:    filename,
			LocalPath:   localPath,
			ContentType: contentTypeFor(filename),
		}, nil
	}

	entry, err := r.fetcher.Fetch(ctx, imageURL, 0)
	if err != nil {
		return domain.Image{}, err
	}

	img, err := imaging.Decode(bytes.NewReader(entry.Body))
	if err != nil {
		return domain.Image{}, fmt.Errorf("decode image %s: %w", imageURL, err)
	}

	if img.Bounds().Dx() > r.maxWidth {
		img = imaging.Resize(img, r.maxWidth, 0, imaging.Lanczos)
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return domain.Image{}, fmt.Errorf("create images dir %s: %w", r.dir, err)
	}
	if err := imaging.Save(img, localPath); err != nil {
		return domain.Image{}, fmt.Errorf("save image %s: %w", localPath, err)
	}

	return domain.Image{
		SourceURL:   imageURL,
		Filename:    filename,
		LocalPath:   localPath,
		ContentType: contentTypeFor(filename),
	}, nil
}

// ResolveAll resolves every image of the article, skipping failures.
// The article's Images slice keeps the order top image first, then the
// remaining inline images.
func (r *Resolver) ResolveAll(ctx context.Context, art domain.Article) domain.Article {
	urls := make([]string, 0, len(art.ImageURLs)+1)
	if art.TopImageURL != "" {
		urls = append(urls, art.TopImageURL)
	}
	urls = append(urls, art.ImageURLs...)

	for _, u := range urls {
		img, err := r.Resolve(ctx, u)
		if err != nil {
			r.log.WarnObj("image skipped", "image_skip", map[string]any{
				"article_url": art.URL,
				"image_url":   u,
				"error":       err.Error(),
			})
			continue
		}
		art.Images = append(art.Images, img)
	}
	return art
}

// localFilename derives a stable on-disk name from the image URL:
// <sha1(url)>-<basename>, with unusable basenames replaced.
func localFilename(imageURL string) string {
	sum := sha1.Sum([]byte(imageURL))
	hash := hex.EncodeToString(sum[:])

	base := path.Base(strings.SplitN(imageURL, "?", 2)[0])
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)
	if base == "" || base == "." || base == "/" || !strings.Contains(base, ".") {
		base = "image.jpg"
	}

	return hash + "-" + base
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
