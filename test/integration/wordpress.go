package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
)

// directory is the content served by the fake WordPress site
var directory = map[string]interface{}{
	"province": []map[string]interface{}{
		{"id": 1, "name": "France", "slug": "france"},
		{"id": 2, "name": "Italia", "slug": "italia"},
	},
	"position": []map[string]interface{}{
		{"id": 10, "name": "Formateur", "slug": "formateur"},
	},
	"formation_state": []map[string]interface{}{
		{"id": 20, "name": "Novice", "slug": "novice"},
		{"id": 21, "name": "Postulant", "slug": "postulant"},
	},
	"confrere": []map[string]interface{}{
		confrere(100, "Jean", 1, []int64{10}, 20),
		confrere(101, "Pierre", 2, nil, 21),
		confrere(102, "Paul", 2, nil, 20),
	},
}

func confrere(id int64, name string, province int64, positions []int64, state int64) map[string]interface{} {
	slug := strings.ToLower(name)
	return map[string]interface{}{
		"id":              id,
		"slug":            slug,
		"link":            "https://wp.example.org/confrere/" + slug,
		"title":           map[string]string{"rendered": name},
		"modified_gmt":    "2026-09-01T08:00:00",
		"acf":             map[string]string{"email": slug + "@example.org"},
		"province":        []int64{province},
		"position":        positions,
		"formation_state": []int64{state},
	}
}

// newFakeWordPress serves the directory over the WordPress REST routes the sync reads
func newFakeWordPress() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		base := strings.TrimPrefix(r.URL.Path, "/wp-json/wp/v2/")
		body, ok := directory[base]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"code": "rest_no_route", "message": "No route was found matching the URL and request method."})
			return
		}
		w.Header().Set("X-WP-Total", "1")
		w.Header().Set("X-WP-TotalPages", "1")
		_ = json.NewEncoder(w).Encode(body)
	}))
}
