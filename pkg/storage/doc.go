// Package storage implements the portal's private object storage.
//
// Objects live in named buckets (documents, workshop-files) rooted in a
// directory of an afero filesystem. Objects are never served directly:
// readers obtain a time-limited signed URL whose token is an HS256 JWT
// naming the bucket and key.
package storage
