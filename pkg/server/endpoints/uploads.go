package endpoints

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/cmformation/formation-portal/pkg/storage"
)

// multipartMemory is the part of a multipart form kept in memory; the rest spills to temp files
const multipartMemory = 8 << 20

// multipartOverhead allows room for form fields around the file part
const multipartOverhead = 1 << 20

var errFileRequired = errors.New("a file part named \"file\" is required")

// upload is a stored object received from a multipart form
type upload struct {
	Key         string
	FileName    string
	ContentType string
	Size        int64
	Form        *multipart.Form
}

// Value returns a trimmed form field
func (u *upload) Value(name string) string {
	if values := u.Form.Value[name]; len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

// receiveUpload parses a multipart form and stores its "file" part in bucket under prefix.
// It writes the error response itself and returns nil on failure.
func receiveUpload(w http.ResponseWriter, r *http.Request, bucket *storage.Bucket, prefix string, maxBytes int64) *upload {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds the %d byte upload limit", maxBytes))
			return nil
		}
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, errFileRequired.Error())
		return nil
	}
	defer file.Close()

	key := storage.NewObjectKey(prefix, header.Filename)
	size, err := bucket.Put(r.Context(), key, file)
	if errors.Is(err, storage.ErrTooLarge) {
		respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds the %d byte upload limit", maxBytes))
		return nil
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to store the file")
		return nil
	}

	return &upload{
		Key:         key,
		FileName:    path.Base(strings.ReplaceAll(header.Filename, "\\", "/")),
		ContentType: contentType(header),
		Size:        size,
		Form:        r.MultipartForm,
	}
}

func contentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ct := mime.TypeByExtension(path.Ext(header.Filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
