package benchmark

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/spf13/afero"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server"
	"github.com/cmformation/formation-portal/pkg/server/endpoints"
)

// newBenchServer returns a server over an in-memory database holding n documents
func newBenchServer(b *testing.B, n int) *server.Server {
	b.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		b.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		b.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	b.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&model.Profile{}, &model.Document{}); err != nil {
		b.Fatal(err)
	}

	s, err := endpoints.NewTestServer(endpoints.TestConfig(), db, afero.NewMemMapFs())
	if err != nil {
		b.Fatal(err)
	}

	visibilities := []model.Visibility{model.VisibilityPublic, model.VisibilityMembers, model.VisibilityAdmins}
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("bench/document_%d.pdf", i)
		if _, err := s.Documents.Put(context.Background(), key, bytes.NewReader([]byte("%PDF-1.4"))); err != nil {
			b.Fatal(err)
		}
		doc := &model.Document{
			Title:       fmt.Sprintf("Document %d", i),
			Category:    "Formation",
			Visibility:  visibilities[i%len(visibilities)],
			ObjectKey:   key,
			FileName:    fmt.Sprintf("document_%d.pdf", i),
			ContentType: "application/pdf",
			SizeBytes:   8,
		}
		if err := s.DocumentsStore.Create(doc); err != nil {
			b.Fatal(err)
		}
	}
	return s
}

func bearer(b *testing.B, s *server.Server, role model.Role) string {
	b.Helper()
	profile, err := endpoints.CreateTestProfile(s, string(role)+"@example.org", role, "")
	if err != nil {
		b.Fatal(err)
	}
	header, err := endpoints.GenerateTestToken(s, profile)
	if err != nil {
		b.Fatal(err)
	}
	return header
}

func BenchmarkListDocuments(b *testing.B) {
	s := newBenchServer(b, 500)
	handler := s.Handler()

	for _, role := range []model.Role{model.RoleMember, model.RoleAdmin} {
		auth := bearer(b, s, role)

		b.Run(fmt.Sprintf("GET /documents as %s", role), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				r := httptest.NewRequest("GET", "/documents", nil)
				r.Header.Set("Authorization", auth)
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, r)
				if w.Code != http.StatusOK {
					b.Fatalf("unexpected status %d", w.Code)
				}
			}
		})
	}
}

func BenchmarkSignedDownload(b *testing.B) {
	s := newBenchServer(b, 1)
	handler := s.Handler()

	signed, err := s.Signer.SignURL("documents", "bench/document_0.pdf", time.Hour)
	if err != nil {
		b.Fatal(err)
	}

	b.Run("GET /files/documents", func(b *testing.B) {
		b.ReportAllocs()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			r := httptest.NewRequest("GET", signed.URL, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			if w.Code != http.StatusOK {
				b.Fatalf("unexpected status %d", w.Code)
			}
		}
	})
}
