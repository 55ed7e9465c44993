package scraper

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SiteConfig describes how to extract content from one site or one family of
// sites (a CMS). Selectors are tried in order; the first that matches wins.
type SiteConfig struct {
	Name             string   `yaml:"name"`
	Domain           string   `yaml:"domain"`
	ContentSelectors []string `yaml:"content_selectors"`
	TitleSelectors   []string `yaml:"title_selectors"`
	ExcludeSelectors []string `yaml:"exclude_selectors"`
	Category         string   `yaml:"category"`
}

// Registry maps domains to extraction configs.
type Registry struct {
	sites   map[string]SiteConfig // keyed by domain
	cms     map[string]SiteConfig // keyed by cms name
	generic SiteConfig
}

var commonExcludes = []string{
	"nav", "header", "footer", "aside",
	".navigation", ".menu", ".sidebar", ".cookie-banner", ".advertisement",
	"#comments",
}

// DefaultRegistry returns the built-in registry: the curated legal sites,
// CMS-level configs, and a generic fallback.
func DefaultRegistry() *Registry {
	r := &Registry{
		sites: map[string]SiteConfig{},
		cms:   map[string]SiteConfig{},
		generic: SiteConfig{
			Name:             "generic",
			ContentSelectors: []string{"main", "article", "#content", ".content", "body"},
			TitleSelectors:   []string{"h1", "title"},
			ExcludeSelectors: commonExcludes,
		},
	}
	for _, cfg := range []SiteConfig{
		{
			Name:             "Citizens Information",
			Domain:           "citizensinformation.ie",
			ContentSelectors: []string{".main-content", "#main-content", "main", "article"},
			TitleSelectors:   []string{"h1", ".page-title"},
			ExcludeSelectors: append([]string{".related-documents", ".feedback"}, commonExcludes...),
			Category:         "civil_rights",
		},
		{
			Name:             "Irish Statute Book",
			Domain:           "irishstatutebook.ie",
			ContentSelectors: []string{".akn-akomaNtoso", "#content", ".content", "main"},
			TitleSelectors:   []string{"h1", ".act-title"},
			ExcludeSelectors: commonExcludes,
			Category:         "legislation",
		},
		{
			Name:             "Courts Service of Ireland",
			Domain:           "courts.ie",
			ContentSelectors: []string{".judgment-body", ".main-content", "main", "article"},
			TitleSelectors:   []string{"h1", ".judgment-title"},
			ExcludeSelectors: commonExcludes,
			Category:         "jurisprudence",
		},
		{
			Name:             "Verkhovna Rada Legislation",
			Domain:           "zakon.rada.gov.ua",
			ContentSelectors: []string{"#article", ".article-text", ".field-item", "main"},
			TitleSelectors:   []string{"h1", ".doc-title"},
			ExcludeSelectors: commonExcludes,
			Category:         "legislation",
		},
		{
			Name:             "Judiciary of Ukraine",
			Domain:           "court.gov.ua",
			ContentSelectors: []string{".document-text", ".content", "#content", "main"},
			TitleSelectors:   []string{"h1", ".document-title"},
			ExcludeSelectors: commonExcludes,
			Category:         "jurisprudence",
		},
	} {
		r.sites[cfg.Domain] = cfg
	}
	for _, cfg := range []SiteConfig{
		{
			Name:             "wordpress",
			ContentSelectors: []string{".entry-content", ".post-content", "article", "main"},
			TitleSelectors:   []string{"h1.entry-title", "h1", "title"},
			ExcludeSelectors: append([]string{".widget", ".comments-area"}, commonExcludes...),
		},
		{
			Name:             "drupal",
			ContentSelectors: []string{".node__content", ".field-item", "#content", "main"},
			TitleSelectors:   []string{"h1.page-title", "h1", "title"},
			ExcludeSelectors: append([]string{".block-menu", ".region-sidebar"}, commonExcludes...),
		},
	} {
		r.cms[cfg.Name] = cfg
	}
	return r
}

// registryFile is the YAML shape of a site config file.
type registryFile struct {
	Sites []SiteConfig `yaml:"sites"`
}

// LoadRegistry returns the default registry extended with site configs from a
// YAML file. File entries override built-ins for the same domain.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scraper: read site config %s: %w", path, err)
	}
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("scraper: parse site config %s: %w", path, err)
	}

	r := DefaultRegistry()
	for _, cfg := range file.Sites {
		if cfg.Domain == "" {
			return nil, fmt.Errorf("scraper: site config %q missing domain", cfg.Name)
		}
		r.sites[cfg.Domain] = cfg
	}
	return r, nil
}

// Resolve picks the config for a host: exact domain match first, then
// substring match in either direction, then the generic fallback. The CMS
// heuristic runs separately because it needs the page body.
func (r *Registry) Resolve(host string) SiteConfig {
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	if cfg, ok := r.sites[host]; ok {
		return cfg
	}
	for domain, cfg := range r.sites {
		if strings.Contains(host, domain) || strings.Contains(domain, host) {
			return cfg
		}
	}
	return r.generic
}

// ResolveCMS inspects the page body for CMS fingerprints and returns the
// matching CMS config, or false when none applies.
func (r *Registry) ResolveCMS(body string) (SiteConfig, bool) {
	if strings.Contains(body, "wp-content") || strings.Contains(body, "wp-json") {
		cfg, ok := r.cms["wordpress"]
		return cfg, ok
	}
	if strings.Contains(body, "/sites/default") {
		cfg, ok := r.cms["drupal"]
		return cfg, ok
	}
	return SiteConfig{}, false
}

// Generic returns the fallback config.
func (r *Registry) Generic() SiteConfig { return r.generic }
