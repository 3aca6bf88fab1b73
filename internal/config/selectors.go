package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Selectors are the CSS selectors the parser uses. They default to the
// current economist.com print edition layout and can be overridden from a
// yaml file so a site redesign does not require a rebuild.
type Selectors struct {
	TocRoot        string `yaml:"toc_root"`
	TocCover       string `yaml:"toc_cover"`
	TocList        string `yaml:"toc_list"`
	TocItem        string `yaml:"toc_item"`
	TocSectionName string `yaml:"toc_section_name"`
	TocLink        string `yaml:"toc_link"`
	ArticleRoot    string `yaml:"article_root"`
	ArticleByline  string `yaml:"article_byline"`
}

// DefaultSelectors returns the selectors for the current site layout.
func DefaultSelectors() Selectors {
	return Selectors{
		TocRoot:        "div.main-content",
		TocCover:       "img.print-edition__cover-widget__image",
		TocList:        "ul.list",
		TocItem:        "li.list__item",
		TocSectionName: "div.list__title",
		TocLink:        "a.list__link",
		ArticleRoot:    "article.blog-post",
		ArticleByline:  ".blog-post__byline",
	}
}

// LoadSelectors reads selector overrides from a yaml file. Fields left
// empty in the file keep their defaults. A missing file returns the
// defaults.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sel, nil
		}
		return sel, fmt.Errorf("read selectors file: %w", err)
	}

	var override Selectors
	if err := yaml.Unmarshal(data, &override); err != nil {
		return sel, fmt.Errorf("parse selectors file: %w", err)
	}

	sel.merge(override)
	return sel, nil
}

func (s *Selectors) merge(o Selectors) {
	if o.TocRoot != "" {
		s.TocRoot = o.TocRoot
	}
	if o.TocCover != "" {
		s.TocCover = o.TocCover
	}
	if o.TocList != "" {
		s.TocList = o.TocList
	}
	if o.TocItem != "" {
		s.TocItem = o.TocItem
	}
	if o.TocSectionName != "" {
		s.TocSectionName = o.TocSectionName
	}
	if o.TocLink != "" {
		s.TocLink = o.TocLink
	}
	if o.ArticleRoot != "" {
		s.ArticleRoot = o.ArticleRoot
	}
	if o.ArticleByline != "" {
		s.ArticleByline = o.ArticleByline
	}
}
