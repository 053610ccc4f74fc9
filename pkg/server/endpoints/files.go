package endpoints

import (
	"mime"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cmformation/formation-portal/pkg/server"
)

// RegisterFilesEndpoints registers signed object downloads.
// These routes carry no bearer auth: the token query parameter is the credential.
func RegisterFilesEndpoints(s *server.Server) {
	// GET /files/{bucket}/{key} - Serve an object named by a signed URL
	s.Router.HandleFunc("/files/{bucket}/{key:.+}", handleServeFile(s)).Methods("GET", "HEAD")
}

func handleServeFile(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)

		bucketName, err := url.PathUnescape(vars["bucket"])
		if err != nil {
			http.Error(w, "Invalid bucket", http.StatusBadRequest)
			return
		}
		key, err := url.PathUnescape(vars["key"])
		if err != nil {
			http.Error(w, "Invalid object key", http.StatusBadRequest)
			return
		}

		bucket, ok := s.Bucket(bucketName)
		if !ok {
			http.Error(w, "Unknown bucket", http.StatusNotFound)
			return
		}

		if err := s.Signer.Verify(bucketName, key, r.URL.Query().Get("token")); err != nil {
			http.Error(w, "Invalid or expired link", http.StatusForbidden)
			return
		}

		f, err := bucket.Open(key)
		if err != nil {
			if statusFor(err) == http.StatusInternalServerError {
				s.Logger.Error("failed to open object", zap.String("bucket", bucketName), zap.String("key", key), zap.Error(err))
			}
			http.Error(w, http.StatusText(statusFor(err)), statusFor(err))
			return
		}
		defer f.Close()

		name := path.Base(key)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
		w.Header().Set("Cache-Control", "private, no-store")
		http.ServeContent(w, r, name, time.Time{}, f)
	}
}
