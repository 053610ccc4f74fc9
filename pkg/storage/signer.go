package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSignature is returned when a signed URL token doesn't verify
var ErrInvalidSignature = errors.New("invalid or expired signature")

// SignedURL is a time-limited link to a private object
type SignedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type objectClaims struct {
	Bucket string `json:"bkt"`
	Key    string `json:"key"`
	jwt.RegisteredClaims
}

// Signer issues and verifies signed object URLs
type Signer struct {
	key     []byte
	baseURL string
	now     func() time.Time
}

// NewSigner creates a Signer producing links under baseURL
func NewSigner(key []byte, baseURL string) *Signer {
	return &Signer{
		key:     key,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// SignURL returns a link to bucket/key valid for ttl
func (s *Signer) SignURL(bucket, key string, ttl time.Duration) (*SignedURL, error) {
	clean, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("signed url ttl must be positive")
	}

	expiresAt := s.now().Add(ttl).Truncate(time.Second)
	claims := objectClaims{
		Bucket: bucket,
		Key:    clean,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign url: %w", err)
	}

	segments := strings.Split(clean, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	link := fmt.Sprintf("%s/files/%s/%s?token=%s",
		s.baseURL, url.PathEscape(bucket), strings.Join(segments, "/"), url.QueryEscape(token))

	return &SignedURL{URL: link, ExpiresAt: expiresAt}, nil
}

// Verify checks that token was issued for bucket/key and has not expired
func (s *Signer) Verify(bucket, key, token string) error {
	clean, err := CleanKey(key)
	if err != nil {
		return err
	}

	claims := &objectClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if claims.Bucket != bucket || claims.Key != clean {
		return fmt.Errorf("%w: token issued for another object", ErrInvalidSignature)
	}
	return nil
}
