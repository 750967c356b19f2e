package lawapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"lawcite-backend/models"
)

// ErrMalformedPayload is returned when a response cannot be decoded into a statute
var ErrMalformedPayload = errors.New("malformed law payload")

var nullLiteral = []byte("null")

// flexString accepts a JSON string, number or boolean. Objects and arrays decode to "".
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, nullLiteral) {
		*s = ""
		return nil
	}
	switch b[0] {
	case '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(v))
	case '{', '[':
		*s = ""
	default:
		*s = flexString(b)
	}
	return nil
}

// flexText accepts a string or an arbitrarily nested list of strings, joined by newlines.
// Article bodies come back in both shapes.
type flexText string

func (t *flexText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, nullLiteral) {
		*t = ""
		return nil
	}
	if b[0] != '[' {
		var s flexString
		if err := s.UnmarshalJSON(b); err != nil {
			return err
		}
		*t = flexText(s)
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		var part flexText
		if err := part.UnmarshalJSON(item); err != nil {
			return err
		}
		if part != "" {
			parts = append(parts, string(part))
		}
	}
	*t = flexText(strings.Join(parts, "\n"))
	return nil
}

// department is 소관부처, sent either as a plain string or as {"content": ..., "소관부처코드": ...}
type department string

func (d *department) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			Content *flexString `json:"content"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		if obj.Content == nil || *obj.Content == "" {
			*d = notAvailable
			return nil
		}
		*d = department(*obj.Content)
		return nil
	}

	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	*d = department(s)
	return nil
}

const notAvailable = "N/A"

type rawBasicInfo struct {
	LawID            flexString  `json:"법령ID"`
	Name             flexString  `json:"법령명_한글"`
	PromulgationDate flexString  `json:"공포일자"`
	EffectiveDate    flexString  `json:"시행일자"`
	Department       *department `json:"소관부처"`
	DepartmentName   flexString  `json:"소관부처명"`
}

func (i *rawBasicInfo) department() string {
	if i.Department != nil && *i.Department != "" {
		return string(*i.Department)
	}
	return string(i.DepartmentName)
}

type rawArticle struct {
	Number  flexString `json:"조문번호"`
	Title   flexString `json:"조문제목"`
	Content flexText   `json:"조문내용"`
}

// articleList normalizes 조문 given as {"조문단위": [...]}, {"조문단위": {...}}, [...] or {...}
type articleList []rawArticle

func (l *articleList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(b, &probe); err != nil {
			return err
		}
		if unit, ok := probe["조문단위"]; ok {
			return l.UnmarshalJSON(unit)
		}
	}

	items, err := decodeOneOrMany[rawArticle](b)
	if err != nil {
		return err
	}
	*l = items
	return nil
}

type rawLaw struct {
	rawBasicInfo
	BasicInfo *rawBasicInfo `json:"기본정보"`
	Articles  articleList   `json:"조문"`
}

func (l *rawLaw) statute() *models.Statute {
	info := &l.rawBasicInfo
	if l.BasicInfo != nil {
		info = l.BasicInfo
	}

	st := &models.Statute{
		ID:               string(info.LawID),
		Name:             string(info.Name),
		PromulgationDate: string(info.PromulgationDate),
		EffectiveDate:    string(info.EffectiveDate),
		Department:       info.department(),
		Articles:         make([]models.Article, 0, len(l.Articles)),
	}
	for _, a := range l.Articles {
		st.Articles = append(st.Articles, models.Article{
			Number:  string(a.Number),
			Title:   string(a.Title),
			Content: strings.TrimSpace(string(a.Content)),
			LawID:   st.ID,
		})
	}
	return st
}

// DecodeDetail decodes a lawService.do response into the normalized statute form
func DecodeDetail(raw []byte) (*models.Statute, error) {
	var envelope struct {
		Law *rawLaw `json:"법령"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if envelope.Law == nil {
		return nil, fmt.Errorf("%w: missing 법령", ErrMalformedPayload)
	}
	return envelope.Law.statute(), nil
}

type rawSummary struct {
	LawID         flexString `json:"법령ID"`
	MST           flexString `json:"법령일련번호"`
	Name          flexString `json:"법령명한글"`
	EffectiveDate flexString `json:"시행일자"`
	Department    flexString `json:"소관부처명"`
}

// DecodeSearch decodes a lawSearch.do response. A response without hits yields an empty slice.
func DecodeSearch(raw []byte) ([]models.LawSummary, error) {
	var envelope struct {
		LawSearch json.RawMessage `json:"LawSearch"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	body := bytes.TrimSpace(envelope.LawSearch)
	if len(body) == 0 || body[0] != '{' {
		return nil, nil
	}

	var search struct {
		Law json.RawMessage `json:"law"`
	}
	if err := json.Unmarshal(body, &search); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	items, err := decodeOneOrMany[rawSummary](search.Law)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	laws := make([]models.LawSummary, 0, len(items))
	for _, item := range items {
		laws = append(laws, models.LawSummary{
			ID:            string(item.LawID),
			MST:           string(item.MST),
			Name:          string(item.Name),
			EffectiveDate: string(item.EffectiveDate),
			Department:    string(item.Department),
		})
	}
	return laws, nil
}

// decodeOneOrMany decodes a single object or a list of objects. List entries that are
// not objects are skipped; anything else decodes to nil.
func decodeOneOrMany[T any](b []byte) ([]T, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, nil
	}

	switch b[0] {
	case '{':
		var item T
		if err := json.Unmarshal(b, &item); err != nil {
			return nil, err
		}
		return []T{item}, nil
	case '[':
		var raws []json.RawMessage
		if err := json.Unmarshal(b, &raws); err != nil {
			return nil, err
		}
		items := make([]T, 0, len(raws))
		for _, r := range raws {
			r = bytes.TrimSpace(r)
			if len(r) == 0 || r[0] != '{' {
				continue
			}
			var item T
			if err := json.Unmarshal(r, &item); err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	default:
		return nil, nil
	}
}
