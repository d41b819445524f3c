package utils

import (
	"net/url"
	"sort"
	"strings"
)

// HostRule attaches fixed headers to every request whose host matches Match.
// Match is a host suffix ("bilivideo.com" matches "upos-sz.bilivideo.com").
type HostRule struct {
	Match   string            `yaml:"match"`
	Headers map[string]string `yaml:"headers"`
}

type HostRules []HostRule

var DefaultHostRules = HostRules{
	{
		Match: "bilivideo.com",
		Headers: map[string]string{
			"Referer":    "https://www.bilibili.com",
			"User-Agent": BrowserUserAgent,
		},
	},
	{
		Match: "bilivideo.cn",
		Headers: map[string]string{
			"Referer":    "https://www.bilibili.com",
			"User-Agent": BrowserUserAgent,
		},
	},
	{
		Match: "akamaized.net",
		Headers: map[string]string{
			"Referer":    "https://www.bilibili.com",
			"User-Agent": BrowserUserAgent,
		},
	},
	{
		Match: "hdslb.com",
		Headers: map[string]string{
			"Referer": "https://www.bilibili.com",
		},
	},
}

// HeadersFor merges the headers of every rule matching rawURL. Later rules
// override earlier ones for the same key.
func (r HostRules) HeadersFor(rawURL string) map[string]string {
	headers := make(map[string]string)
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return headers
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return headers
	}
	for _, rule := range r {
		if rule.matches(host) {
			for k, v := range rule.Headers {
				headers[k] = v
			}
		}
	}
	return headers
}

// HeaderLines renders the matching headers as "Key: Value", sorted by key.
func (r HostRules) HeaderLines(rawURL string) []string {
	headers := r.HeadersFor(rawURL)
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+": "+headers[k])
	}
	return lines
}

func (rule HostRule) matches(host string) bool {
	match := strings.ToLower(strings.TrimPrefix(rule.Match, "."))
	if match == "" {
		return false
	}
	return host == match || strings.HasSuffix(host, "."+match)
}
