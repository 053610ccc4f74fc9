package wordpress

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const memberJSON = `{
	"id": 42,
	"slug": "jean-dupont",
	"status": "publish",
	"link": "https://example.org/confrere/jean-dupont/",
	"modified_gmt": "2026-01-15T08:30:00",
	"title": {"rendered": "Fr&egrave;re Jean <em>Dupont</em>"},
	"province": [3],
	"formation_state": [7, 8],
	"position": [],
	"class_list": ["post-42", "type-confrere"],
	"featured_media": 0,
	"acf": {"email": " jean@example.org ", "birth_date": "19990412", "photo": {"id": 9, "url": "https://example.org/jean.jpg"}, "year": 2019, "empty": false}
}`

func TestMember_Unmarshal(t *testing.T) {
	var m Member
	require.NoError(t, json.Unmarshal([]byte(memberJSON), &m))

	assert.Equal(t, int64(42), m.ID)
	assert.Equal(t, "Frère Jean Dupont", m.Name())
	assert.Equal(t, []int64{3}, m.TermIDs("province"))
	assert.Equal(t, []int64{7, 8}, m.TermIDs("formation_state"))
	assert.Empty(t, m.TermIDs("position"))
	assert.NotContains(t, m.Terms, "class_list")

	modified := m.ModifiedAt()
	require.NotNil(t, modified)
	assert.True(t, modified.Equal(time.Date(2026, 1, 15, 8, 30, 0, 0, time.UTC)))

	assert.Equal(t, "jean@example.org", m.Field("email"))
	assert.Equal(t, "19990412", m.Field("birth_date"))
	assert.Equal(t, "https://example.org/jean.jpg", m.Field("photo"))
	assert.Equal(t, "2019", m.Field("year"))
	assert.Equal(t, "", m.Field("empty"))
	assert.Equal(t, "", m.Field("missing"))
}

func TestMember_EmptyACF(t *testing.T) {
	var m Member
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"acf":[],"title":{"rendered":"A"}}`), &m))
	assert.Equal(t, "", m.Field("email"))
	assert.Nil(t, m.ModifiedAt())
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Fr&egrave;re Paul", "Frère Paul"},
		{"<p>Saint&nbsp;Jean</p>\n<p>B&#8217;s</p>", "Saint Jean B’s"},
		{"a<br/>b", "a b"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PlainText(tt.in))
	}
}
