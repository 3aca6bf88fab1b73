// Package pipeline runs the stages of one edition build in sequence:
// fetch the table of contents, parse the issue, fetch and parse each
// article, resolve images, write the EPUB.
package pipeline

import (
	"context"
	"time"

	"github.com/Adda-Baaj/saptahik/internal/domain"
	"github.com/Adda-Baaj/saptahik/internal/ebook"
	"github.com/Adda-Baaj/saptahik/internal/fetcher"
	"github.com/Adda-Baaj/saptahik/internal/images"
	"github.com/Adda-Baaj/saptahik/internal/logger"
	"github.com/Adda-Baaj/saptahik/internal/parser"
)

// Pipeline wires the pipeline stages together.
type Pipeline struct {
	fetcher  *fetcher.Fetcher
	parser   *parser.Parser
	resolver *images.Resolver
	builder  *ebook.Builder
	log      logger.Logger

	editionURL string
	tocTTL     time.Duration
}

// Options configures a Pipeline.
type Options struct {
	Fetcher    *fetcher.Fetcher
	Parser     *parser.Parser
	Resolver   *images.Resolver
	Builder    *ebook.Builder
	Logger     logger.Logger
	EditionURL string
	TocTTL     time.Duration
}

// New builds a Pipeline from its stages.
func New(opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Pipeline{
		fetcher:    opts.Fetcher,
		parser:     opts.Parser,
		resolver:   opts.Resolver,
		builder:    opts.Builder,
		log:        log,
		editionURL: opts.EditionURL,
		tocTTL:     opts.TocTTL,
	}
}

// Run builds the current edition end to end and returns the output path.
// refresh invalidates the cached ToC so a new issue is picked up even
// inside the freshness window.
func (p *Pipeline) Run(ctx context.Context, refresh bool) (string, error) {
	if refresh {
		if err := p.fetcher.Invalidate(p.editionURL); err != nil {
			return "", err
		}
	}

	toc, err := p.fetcher.Fetch(ctx, p.editionURL, p.tocTTL)
	if err != nil {
		return "", err
	}

	issue, err := p.parser.ParseIssue(toc.Body, toc.FinalURL)
	if err != nil {
		return "", err
	}
	p.logIssue(issue)

	for si := range issue.Sections {
		section := &issue.Sections[si]
		for ai := range section.Articles {
			art, err := p.buildArticle(ctx, section.Articles[ai])
			if err != nil {
				return "", err
			}
			section.Articles[ai] = art
		}
	}

	cover := p.resolveCover(ctx, issue)

	outPath, err := p.builder.Build(issue, cover)
	if err != nil {
		return "", err
	}

	p.log.InfoObj("edition built", "build_done", map[string]any{
		"issue":    issue.ID,
		"output":   outPath,
		"sections": len(issue.Sections),
		"articles": issue.ArticleCount(),
	})
	return outPath, nil
}

// buildArticle fetches, parses and resolves the images of one article.
// Article pages never expire in the cache.
func (p *Pipeline) buildArticle(ctx context.Context, art domain.Article) (domain.Article, error) {
	entry, err := p.fetcher.Fetch(ctx, art.URL, 0)
	if err != nil {
		return art, err
	}

	parsed, err := p.parser.ParseArticle(art, entry.Body)
	if err != nil {
		return art, err
	}

	p.log.DebugObj("article parsed", "article_parsed", map[string]any{
		"url":        parsed.URL,
		"title":      parsed.Title,
		"paragraphs": len(parsed.Paragraphs),
		"images":     len(parsed.ImageURLs),
	})

	return p.resolver.ResolveAll(ctx, parsed), nil
}

// resolveCover fetches the issue cover, or nil when absent or failing.
func (p *Pipeline) resolveCover(ctx context.Context, issue domain.Issue) *domain.Image {
	if issue.CoverURL == "" {
		return nil
	}

	cover, err := p.resolver.Resolve(ctx, issue.CoverURL)
	if err != nil {
		p.log.WarnObj("cover skipped", "cover_skip", map[string]any{
			"image_url": issue.CoverURL,
			"error":     err.Error(),
		})
		return nil
	}
	return &cover
}

func (p *Pipeline) logIssue(issue domain.Issue) {
	sections := make([]string, 0, len(issue.Sections))
	for _, s := range issue.Sections {
		sections = append(sections, s.Title)
	}

	p.log.InfoObj("issue parsed", "issue_parsed", map[string]any{
		"issue":    issue.ID,
		"title":    issue.Title,
		"cover":    issue.CoverURL,
		"sections": sections,
		"articles": issue.ArticleCount(),
	})
}
