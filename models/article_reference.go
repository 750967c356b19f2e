package models

import (
	"regexp"
	"strings"
)

var (
	joPattern   = regexp.MustCompile(`제(\d+)조`)
	hangPattern = regexp.MustCompile(`제(\d+)항`)
	hoPattern   = regexp.MustCompile(`제(\d+)호`)
)

// ArticleReference is the jo/hang/ho (article/clause/item) citation of a provision.
// It is display-only and never used as a lookup key.
type ArticleReference struct {
	Jo   string `json:"jo"`
	Hang string `json:"hang"`
	Ho   string `json:"ho"`
}

// ParseArticleReference extracts the first article, clause and item numerals from s
func ParseArticleReference(s string) ArticleReference {
	if s == "" {
		return ArticleReference{}
	}
	return ArticleReference{
		Jo:   firstGroup(joPattern, s),
		Hang: firstGroup(hangPattern, s),
		Ho:   firstGroup(hoPattern, s),
	}
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// Format renders the reference after the statute name, e.g. "민법 제3조 제2항"
func (r ArticleReference) Format(lawName string) string {
	var b strings.Builder
	b.WriteString(lawName)
	if r.Jo != "" {
		b.WriteString(" 제" + r.Jo + "조")
	}
	if r.Hang != "" {
		b.WriteString(" 제" + r.Hang + "항")
	}
	if r.Ho != "" {
		b.WriteString(" 제" + r.Ho + "호")
	}
	return b.String()
}

// IsZero reports whether no field was parsed
func (r ArticleReference) IsZero() bool {
	return r.Jo == "" && r.Hang == "" && r.Ho == ""
}
