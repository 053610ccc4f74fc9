package wordpress

import (
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// gmtLayout is the layout of WordPress *_gmt timestamps
const gmtLayout = "2006-01-02T15:04:05"

// Rendered is a WordPress field delivered as rendered HTML
type Rendered struct {
	Rendered string `json:"rendered"`
}

// Text returns the rendered HTML as plain text
func (r Rendered) Text() string {
	return PlainText(r.Rendered)
}

// Term is a taxonomy term
type Term struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Parent   int64  `json:"parent"`
	Count    int    `json:"count"`
	Taxonomy string `json:"taxonomy"`
}

// Member is a post of the member post type.
// Taxonomy term ids are delivered as top-level arrays keyed by the taxonomy rest base.
type Member struct {
	ID          int64           `json:"id"`
	Slug        string          `json:"slug"`
	Status      string          `json:"status"`
	Link        string          `json:"link"`
	ModifiedGMT string          `json:"modified_gmt"`
	Title       Rendered        `json:"title"`
	ACF         json.RawMessage `json:"acf"`

	Terms map[string][]int64 `json:"-"`
}

type memberAlias Member

var memberFields = map[string]bool{
	"id": true, "slug": true, "status": true, "link": true,
	"modified_gmt": true, "title": true, "acf": true,
}

// UnmarshalJSON decodes a member and collects every top-level integer array as term ids
func (m *Member) UnmarshalJSON(data []byte) error {
	var alias memberAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	alias.Terms = map[string][]int64{}
	for key, value := range raw {
		if memberFields[key] || len(value) == 0 || value[0] != '[' {
			continue
		}
		var ids []int64
		if err := json.Unmarshal(value, &ids); err == nil {
			alias.Terms[key] = ids
		}
	}

	*m = Member(alias)
	return nil
}

// TermIDs returns the ids of the member's terms in taxonomy
func (m *Member) TermIDs(taxonomy string) []int64 {
	return m.Terms[taxonomy]
}

// Name returns the member title as plain text
func (m *Member) Name() string {
	return m.Title.Text()
}

// ModifiedAt parses modified_gmt; nil when absent or malformed
func (m *Member) ModifiedAt() *time.Time {
	if m.ModifiedGMT == "" {
		return nil
	}
	t, err := time.ParseInLocation(gmtLayout, m.ModifiedGMT, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}

// Field returns an ACF custom field as a string.
// Image and link fields resolve to their url; missing fields and an empty acf array yield "".
func (m *Member) Field(name string) string {
	if len(m.ACF) == 0 || m.ACF[0] != '{' {
		return ""
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(m.ACF, &fields); err != nil {
		return ""
	}
	value, ok := fields[name]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(value, &n); err == nil {
		return n.String()
	}
	var object struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(value, &object); err == nil {
		return object.URL
	}
	return ""
}

// PlainText extracts the text of an HTML fragment, decoding entities and collapsing whitespace
func PlainText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "br" || string(name) == "p" {
				b.WriteByte(' ')
			}
		}
	}
}
