// Package seo builds page metadata and schema.org JSON-LD payloads.
package seo

import (
	"net/url"
	"strings"
)

type OpenGraph struct {
	Title       string
	Description string
	Image       string
	Type        string
	URL         string
	SiteName    string
	Locale      string
}

type Twitter struct {
	Card  string
	Site  string
	Image string
}

// Alternate is an hreflang link.
type Alternate struct {
	Href     string
	Hreflang string
}

type Meta struct {
	Title       string
	Description string
	Canonical   string
	Robots      string
	OG          OpenGraph
	Twitter     Twitter
	Alternates  []Alternate
	JSONLD      []string
}

// AbsoluteURL joins base and p, keeping p's query.
func AbsoluteURL(base, p string) string {
	base = strings.TrimRight(base, "/")
	if p == "" {
		p = "/"
	}
	if u, err := url.Parse(p); err == nil && u.IsAbs() {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return base + p
}

// Alternates lists one hreflang link per language plus x-default, using the
// hl query parameter to select the language.
func Alternates(base, p string, langs []string, def string) []Alternate {
	out := make([]Alternate, 0, len(langs)+1)
	for _, l := range langs {
		out = append(out, Alternate{Href: withLang(AbsoluteURL(base, p), l), Hreflang: l})
	}
	if def != "" {
		out = append(out, Alternate{Href: withLang(AbsoluteURL(base, p), def), Hreflang: "x-default"})
	}
	return out
}

func withLang(raw, lang string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("hl", lang)
	u.RawQuery = q.Encode()
	return u.String()
}
