package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"lectern/reader"
)

// SiteConfig tunes article extraction for one host. Files live in the
// sites directory as <host>.json and match the host or any parent domain.
type SiteConfig struct {
	// Selector picks the article container, overriding the default.
	Selector string `json:"selector,omitempty"`
	// Remove lists extra selectors stripped from the container.
	Remove  []string          `json:"remove,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// articleSelector is the container selector for this site, or the
// default when none is configured.
func (c *SiteConfig) articleSelector() string {
	if c == nil || strings.TrimSpace(c.Selector) == "" {
		return defaultArticleSelector
	}
	return c.Selector
}

func (c *SiteConfig) removeSelectors() []string {
	if c == nil {
		return nil
	}
	return c.Remove
}

// normalize trims selectors, rejects a bad container selector and drops
// bad remove entries, returning what was dropped.
func (c *SiteConfig) normalize() (dropped []string, err error) {
	c.Selector = strings.TrimSpace(c.Selector)
	if c.Selector != "" {
		if err := reader.CheckSelector(c.Selector); err != nil {
			return nil, fmt.Errorf("selector %q: %w", c.Selector, err)
		}
	}
	keep := c.Remove[:0]
	for _, sel := range c.Remove {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}
		if reader.CheckSelector(sel) != nil {
			dropped = append(dropped, sel)
			continue
		}
		keep = append(keep, sel)
	}
	c.Remove = keep
	return dropped, nil
}

// parentDomains lists host followed by each parent domain, ending at the
// top-level label.
func parentDomains(host string) []string {
	labels := strings.Split(host, ".")
	out := make([]string, 0, len(labels))
	for i := range labels {
		out = append(out, strings.Join(labels[i:], "."))
	}
	return out
}

type siteConfigStore struct {
	dir    string
	logger *log.Logger

	mu    sync.RWMutex
	hosts map[string]*SiteConfig
}

func newSiteConfigStore(dir string, logger *log.Logger) *siteConfigStore {
	if logger == nil {
		logger = log.Default()
	}
	return &siteConfigStore{dir: dir, logger: logger, hosts: make(map[string]*SiteConfig)}
}

// Find returns the config for the target URL's host, or nil. Results,
// misses included, are remembered per host.
func (s *siteConfigStore) Find(target string) *SiteConfig {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" || s.dir == "" {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	s.mu.RLock()
	cfg, ok := s.hosts[host]
	s.mu.RUnlock()
	if ok {
		return cfg
	}
	for _, candidate := range parentDomains(host) {
		if cfg = s.load(candidate); cfg != nil {
			break
		}
	}
	s.mu.Lock()
	s.hosts[host] = cfg
	s.mu.Unlock()
	return cfg
}

func (s *siteConfigStore) load(domain string) *SiteConfig {
	if domain == "" {
		return nil
	}
	path := filepath.Join(s.dir, domain+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Printf("SITE %s: %v", path, err)
		}
		return nil
	}
	var cfg SiteConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		s.logger.Printf("SITE %s: %v", path, err)
		return nil
	}
	dropped, err := cfg.normalize()
	if err != nil {
		s.logger.Printf("SITE %s: %v", path, err)
		return nil
	}
	for _, sel := range dropped {
		s.logger.Printf("SITE %s: dropping remove selector %q", path, sel)
	}
	return &cfg
}
