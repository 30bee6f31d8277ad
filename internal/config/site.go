package config

import (
	"maps"
	"net"
	"strings"
)

// SiteConfig holds settings for one host.
type SiteConfig struct {
	// UserAgent overrides the User-Agent header for this site.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Cookie is an HTTP cookie to use when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Limit overrides the page limit. Zero keeps the global value.
	Limit int `yaml:"limit,omitempty"`

	// Top overrides the number of reported words. Zero keeps the global value.
	Top int `yaml:"top,omitempty"`

	// MinLength overrides the minimum word length. Zero keeps the global value.
	MinLength int `yaml:"minLength,omitempty"`
}

// File represents the structure of the .wordscan configuration file.
type File struct {
	// Sites maps hosts (e.g. "example.com" or "example.com:8080") to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host merged over the defaults.
// Lookup is case-insensitive and falls back to the host without its port.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if result.Headers != nil {
		result.Headers = maps.Clone(result.Headers)
	}

	siteConfig, ok := cf.lookup(host)
	if !ok {
		return result
	}

	if siteConfig.UserAgent != "" {
		result.UserAgent = siteConfig.UserAgent
	}
	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.Limit != 0 {
		result.Limit = siteConfig.Limit
	}
	if siteConfig.Top != 0 {
		result.Top = siteConfig.Top
	}
	if siteConfig.MinLength != 0 {
		result.MinLength = siteConfig.MinLength
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		maps.Copy(result.Headers, siteConfig.Headers)
	}

	return result
}

func (cf *File) lookup(host string) (SiteConfig, bool) {
	host = strings.ToLower(host)
	for key, sc := range cf.Sites {
		if strings.ToLower(key) == host {
			return sc, true
		}
	}

	hostname, _, err := net.SplitHostPort(host)
	if err != nil {
		return SiteConfig{}, false
	}
	for key, sc := range cf.Sites {
		if strings.ToLower(key) == hostname {
			return sc, true
		}
	}
	return SiteConfig{}, false
}
