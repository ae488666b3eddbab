package storage

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/chatdesk/support-service/internal/config"
)

// Operation scopes a signed URL to reads or writes.
type Operation string

const (
	OperationUpload   Operation = "upload"
	OperationDownload Operation = "download"
)

// ValidOperation reports whether op is a known signed URL operation.
func ValidOperation(op Operation) bool {
	return op == OperationUpload || op == OperationDownload
}

// allowedMimeTypes is the explicit allow-list for attachment uploads:
// common image, video and document formats.
var allowedMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
	"video/mp4":  {},
	"video/webm": {},
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"text/plain":      {},
	"application/zip": {},
}

// AllowedMimeType reports whether mimeType may be attached.
func AllowedMimeType(mimeType string) bool {
	_, ok := allowedMimeTypes[mimeType]
	return ok
}

var unsafePathRunes = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeFileName replaces every rune outside [a-zA-Z0-9._-] with an
// underscore so the name is safe inside a storage object key.
func SanitizeFileName(name string) string {
	return unsafePathRunes.ReplaceAllString(name, "_")
}

// SignedURL is the result of a signing request.
type SignedURL struct {
	URL       string
	Path      string
	Token     string
	ExpiresAt time.Time
}

// Signer issues short-lived token-bearing URLs granting direct access to one
// storage object. URLs carry an HS256 token scoped to the object path and
// operation; verification happens at the storage edge.
type Signer struct {
	cfg config.StorageConfig
	now func() time.Time
}

// NewSigner constructs a signer from storage configuration.
func NewSigner(cfg config.StorageConfig) *Signer {
	return &Signer{cfg: cfg, now: time.Now}
}

// DerivePath builds a collision-resistant object path by prefixing the
// sanitized file name with the current unix-millisecond timestamp.
func (s *Signer) DerivePath(fileName string) string {
	return fmt.Sprintf("attachments/%d_%s", s.now().UnixMilli(), SanitizeFileName(fileName))
}

// SignUpload issues a write-capable URL for path plus the bare upload token.
func (s *Signer) SignUpload(path string) (*SignedURL, error) {
	return s.sign(path, OperationUpload, s.cfg.UploadTTL())
}

// SignDownload issues a read-only URL for path. The object is not checked for
// existence; a URL for a path nothing was uploaded to 404s at fetch time.
func (s *Signer) SignDownload(path string) (*SignedURL, error) {
	return s.sign(path, OperationDownload, s.cfg.DownloadTTL())
}

func (s *Signer) sign(path string, op Operation, ttl time.Duration) (*SignedURL, error) {
	expires := s.now().Add(ttl)
	claims := jwt.MapClaims{
		"url": s.cfg.Bucket + "/" + path,
		"op":  string(op),
		"iat": s.now().Unix(),
		"exp": expires.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.SigningSecret))
	if err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(s.cfg.BaseURL, "/")
	return &SignedURL{
		URL:       fmt.Sprintf("%s/storage/v1/object/sign/%s/%s?token=%s", base, s.cfg.Bucket, path, token),
		Path:      path,
		Token:     token,
		ExpiresAt: expires,
	}, nil
}

// TokenClaims is the verified content of a signed URL token.
type TokenClaims struct {
	ObjectKey string
	Operation Operation
	ExpiresAt time.Time
}

// VerifyToken parses and validates a signed URL token, returning its scope.
func (s *Signer) VerifyToken(token string) (*TokenClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.SigningSecret), nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}
	key, _ := claims["url"].(string)
	op, _ := claims["op"].(string)
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("token missing expiry")
	}
	return &TokenClaims{
		ObjectKey: key,
		Operation: Operation(op),
		ExpiresAt: exp.Time,
	}, nil
}
