// Package ebook assembles a parsed issue and its resolved images into a
// single EPUB file.
package ebook

import (
	"fmt"
	"html"
	"math"
	"path/filepath"
	"strings"

	epub "github.com/bmaupin/go-epub"

	"github.com/Adda-Baaj/saptahik/internal/domain"
	"github.com/Adda-Baaj/saptahik/internal/logger"
)

const (
	bookAuthor   = "The Economist"
	bookLanguage = "en"
)

// BuildError reports a failure writing the output file.
type BuildError struct {
	Path string
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build ebook %s: %v", e.Path, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Builder serializes issues into EPUB files under an output directory.
type Builder struct {
	outDir string
	log    logger.Logger
}

// New builds a Builder writing into outDir.
func New(outDir string, log logger.Logger) *Builder {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Builder{outDir: outDir, log: log}
}

// Build writes the issue as `the_economist_<date>.epub` and returns the
// output path. A cover image may be nil. Articles without parsed content
// are skipped with an error log.
func (b *Builder) Build(issue domain.Issue, cover *domain.Image) (string, error) {
	outPath := filepath.Join(b.outDir, issue.OutputName())

	book := epub.NewEpub(issue.Title)
	book.SetAuthor(bookAuthor)
	book.SetLang(bookLanguage)
	book.SetIdentifier(issue.ID)

	// added maps source URL to the image path inside the book so an image
	// shared by articles is stored once.
	added := make(map[string]string)

	if cover != nil {
		if internal, err := b.addImage(book, *cover, added); err == nil {
			book.SetCover(internal, "")
		}
	}

	for si, section := range issue.Sections {
		sectionFile := fmt.Sprintf("s%02d.xhtml", si+1)
		sectionBody := fmt.Sprintf("<h1>%s</h1>", html.EscapeString(section.Title))

		parent, err := book.AddSection(sectionBody, section.Title, sectionFile, "")
		if err != nil {
			return "", &BuildError{Path: outPath, Err: err}
		}

		for ai, art := range section.Articles {
			if len(art.Paragraphs) == 0 {
				b.log.ErrorObj("article has no content, skipping", "article_skip", map[string]any{
					"url": art.URL,
				})
				continue
			}

			body := b.articleXHTML(book, art, added)
			artFile := fmt.Sprintf("s%02d_a%02d.xhtml", si+1, ai+1)
			if _, err := book.AddSubSection(parent, body, art.Title, artFile, ""); err != nil {
				return "", &BuildError{Path: outPath, Err: err}
			}
		}
	}

	if err := book.Write(outPath); err != nil {
		return "", &BuildError{Path: outPath, Err: err}
	}
	return outPath, nil
}

// articleXHTML renders one article: title, byline, top image, then the
// paragraphs with the remaining images spread through the text at an even
// rate.
func (b *Builder) articleXHTML(book *epub.Epub, art domain.Article, added map[string]string) string {
	var sb strings.Builder

	sb.WriteString("<h1>")
	sb.WriteString(html.EscapeString(art.Title))
	sb.WriteString("</h1>\n")

	if art.Byline != "" {
		sb.WriteString("<p><em>")
		sb.WriteString(html.EscapeString(art.Byline))
		sb.WriteString("</em></p>\n")
	}

	topImage, rest := splitImages(art)

	if topImage != nil {
		if tag := b.imageTag(book, *topImage, added); tag != "" {
			sb.WriteString(tag)
			sb.WriteString("\n")
		}
	}

	blocks := make([]string, 0, len(art.Paragraphs)+len(rest))
	for _, para := range art.Paragraphs {
		blocks = append(blocks, "<p>"+html.EscapeString(para)+"</p>")
	}

	// Space the remaining images through the text at an even rate, the
	// position formula the original reader layout used.
	rate := float64(len(art.Paragraphs)) / float64(len(rest)+1)
	for i, img := range rest {
		tag := b.imageTag(book, img, added)
		if tag == "" {
			continue
		}
		pos := int(math.Round(float64(i+1)*rate)) + i + 1
		if pos > len(blocks) {
			pos = len(blocks)
		}
		blocks = append(blocks[:pos], append([]string{tag}, blocks[pos:]...)...)
	}

	sb.WriteString(strings.Join(blocks, "\n"))
	return sb.String()
}

// splitImages separates the article's top image from the inline ones.
func splitImages(art domain.Article) (*domain.Image, []domain.Image) {
	if len(art.Images) == 0 {
		return nil, nil
	}
	if art.TopImageURL != "" && art.Images[0].SourceURL == art.TopImageURL {
		return &art.Images[0], art.Images[1:]
	}
	return nil, art.Images
}

// imageTag adds the image to the book (once per source URL) and returns a
// centered img element, or "" when the image cannot be embedded.
func (b *Builder) imageTag(book *epub.Epub, img domain.Image, added map[string]string) string {
	internal, err := b.addImage(book, img, added)
	if err != nil {
		b.log.WarnObj("image not embedded", "image_embed_skip", map[string]any{
			"image_url": img.SourceURL,
			"error":     err.Error(),
		})
		return ""
	}
	return fmt.Sprintf(`<p style="text-align:center"><img src=%q alt=""/></p>`, internal)
}

func (b *Builder) addImage(book *epub.Epub, img domain.Image, added map[string]string) (string, error) {
	if internal, ok := added[img.SourceURL]; ok {
		return internal, nil
	}
	internal, err := book.AddImage(img.LocalPath, img.Filename)
	if err != nil {
		return "", err
	}
	added[img.SourceURL] = internal
	return internal, nil
}
