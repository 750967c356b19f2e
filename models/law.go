package models

// Statute is a normalized law record decoded from a law.go.kr detail response
type Statute struct {
	ID               string    `json:"law_id"`
	Name             string    `json:"law_name"`
	PromulgationDate string    `json:"promulgation_date"`
	EffectiveDate    string    `json:"effective_date"`
	Department       string    `json:"department"`
	Articles         []Article `json:"articles"`
}

// Article is a single provision (조문) of a statute
type Article struct {
	Number  string `json:"article_number"` // raw 조문번호, e.g. "제3조 제2항"
	Title   string `json:"article_title"`
	Content string `json:"article_content"`
	LawID   string `json:"law_id"`
}

// Reference parses the article number into a citation triple
func (a Article) Reference() ArticleReference {
	return ParseArticleReference(a.Number)
}

// LawSummary is one candidate returned by the keyword search endpoint
type LawSummary struct {
	ID            string `json:"law_id"`
	MST           string `json:"mst"` // 법령일련번호
	Name          string `json:"law_name"`
	EffectiveDate string `json:"effective_date"`
	Department    string `json:"department"`
}

// LawDetail pairs a decoded statute with the raw payload it was decoded from
type LawDetail struct {
	Statute *Statute
	Raw     []byte
}
