package service

import (
	"strings"

	"lawcite-backend/models"
)

const notAvailable = "N/A"

// BuildLawDocuments converts a decoded statute into one law_basic document followed by
// law_article documents for the first maxArticles articles. Articles with an empty body are dropped.
func BuildLawDocuments(st *models.Statute, maxArticles int) []models.LawDocument {
	if st == nil {
		return nil
	}

	docs := make([]models.LawDocument, 0, 1+min(len(st.Articles), maxArticles))
	docs = append(docs, models.LawDocument{
		Content: formatBasicInfo(st),
		Metadata: models.ChunkMetadata{
			Type:    models.DocumentTypeLawBasic,
			LawID:   st.ID,
			LawName: st.Name,
		},
	})

	articles := st.Articles
	if len(articles) > maxArticles {
		articles = articles[:maxArticles]
	}

	for _, article := range articles {
		if article.Content == "" {
			continue
		}

		ref := article.Reference()
		content := "조문번호: " + article.Number +
			"\n조문제목: " + article.Title +
			"\n조문내용: " + article.Content

		docs = append(docs, models.LawDocument{
			Content: content,
			Metadata: models.ChunkMetadata{
				Type:          models.DocumentTypeLawArticle,
				LawID:         st.ID,
				LawName:       st.Name,
				ArticleTitle:  article.Title,
				ArticleNumber: article.Number,
				Jo:            ref.Jo,
				Hang:          ref.Hang,
				Ho:            ref.Ho,
			},
		})
	}

	return docs
}

// formatBasicInfo renders the statute header lines shared by the law_basic document and
// the load summary
func formatBasicInfo(st *models.Statute) string {
	lines := []string{
		"법령명: " + orNotAvailable(st.Name),
		"법령ID: " + orNotAvailable(st.ID),
		"공포일자: " + orNotAvailable(st.PromulgationDate),
		"시행일자: " + orNotAvailable(st.EffectiveDate),
		"소관부처: " + orNotAvailable(st.Department),
	}
	return strings.Join(lines, "\n")
}

func orNotAvailable(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
