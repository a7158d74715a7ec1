package backup

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hyperengineering/cadence/internal/config"
	"github.com/hyperengineering/cadence/internal/exchange"
	"github.com/hyperengineering/cadence/internal/types"
)

// --- NoopUploader Tests ---

func TestNoopUploader_Upload_IsNoOp(t *testing.T) {
	key, err := NoopUploader{}.Upload(context.Background(), []byte("{}"), time.Now())
	if err != nil {
		t.Errorf("NoopUploader.Upload() should not error, got %v", err)
	}
	if key != "" {
		t.Errorf("key = %q, want empty", key)
	}
}

func TestNoopUploader_PresignedURL_ReturnsErrNotConfigured(t *testing.T) {
	_, _, err := NoopUploader{}.PresignedURL(context.Background())
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("NoopUploader.PresignedURL() should return ErrNotConfigured, got %v", err)
	}
}

// --- NewUploader factory tests ---

func TestNewUploader_EmptyBucket_ReturnsNoopUploader(t *testing.T) {
	u, err := NewUploader(config.BackupConfig{})
	if err != nil {
		t.Fatalf("NewUploader() error = %v", err)
	}
	if _, ok := u.(NoopUploader); !ok {
		t.Errorf("expected NoopUploader, got %T", u)
	}
}

func TestNewUploader_WithBucket_ReturnsS3Uploader(t *testing.T) {
	cfg := config.BackupConfig{
		Bucket:    "test-bucket",
		Endpoint:  "http://localhost:9000",
		Region:    "us-east-1",
		Prefix:    "/alice/",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		URLExpiry: config.Duration(15 * time.Minute),
	}

	u, err := NewUploader(cfg)
	if err != nil {
		t.Fatalf("NewUploader() error = %v", err)
	}

	s3u, ok := u.(*S3Uploader)
	if !ok {
		t.Fatalf("expected *S3Uploader, got %T", u)
	}
	if s3u.bucket != "test-bucket" {
		t.Errorf("bucket = %q, want %q", s3u.bucket, "test-bucket")
	}
	if s3u.prefix != "alice" {
		t.Errorf("prefix = %q, want %q", s3u.prefix, "alice")
	}
}

// --- S3Uploader with mock client tests ---

type putCall struct {
	bucket, key, contentType string
	body                     string
	size                     int64
}

type mockS3Client struct {
	puts          []putCall
	uploadErr     error
	presignCalled bool
	presignURL    *url.URL
	presignErr    error
	lastPresign   string
}

func (m *mockS3Client) PutObject(_ context.Context, bucket, objectName string, r io.Reader, size int64, contentType string) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	body, _ := io.ReadAll(r)
	m.puts = append(m.puts, putCall{bucket: bucket, key: objectName, contentType: contentType, body: string(body), size: size})
	return nil
}

func (m *mockS3Client) PresignedGetObject(_ context.Context, bucket, objectName string, _ time.Duration) (*url.URL, error) {
	m.presignCalled = true
	m.lastPresign = objectName
	if m.presignErr != nil {
		return nil, m.presignErr
	}
	if m.presignURL != nil {
		return m.presignURL, nil
	}
	u, _ := url.Parse("https://s3.example.com/" + bucket + "/" + objectName + "?presigned=true")
	return u, nil
}

func newTestUploader(mock *mockS3Client, now time.Time) *S3Uploader {
	return &S3Uploader{
		client:    mock,
		bucket:    "test-bucket",
		prefix:    "alice",
		urlExpiry: 15 * time.Minute,
		now:       func() time.Time { return now },
	}
}

func TestS3Uploader_Upload_WritesHistoryAndLatest(t *testing.T) {
	mock := &mockS3Client{}
	u := newTestUploader(mock, time.Now())
	at := time.Date(2026, 3, 10, 9, 30, 0, 0, time.FixedZone("UTC+2", 2*60*60))

	key, err := u.Upload(context.Background(), []byte(`{"version":1}`), at)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if key != "alice/exports/20260310T073000Z.json" {
		t.Errorf("key = %q", key)
	}
	if len(mock.puts) != 2 {
		t.Fatalf("PutObject calls = %d, want 2", len(mock.puts))
	}
	if mock.puts[1].key != "alice/exports/latest.json" {
		t.Errorf("second key = %q, want latest", mock.puts[1].key)
	}
	for _, p := range mock.puts {
		if p.bucket != "test-bucket" || p.contentType != "application/json" {
			t.Errorf("put = %+v", p)
		}
		if p.body != `{"version":1}` || p.size != int64(len(p.body)) {
			t.Errorf("body = %q size = %d", p.body, p.size)
		}
	}
}

func TestS3Uploader_Upload_Error(t *testing.T) {
	mock := &mockS3Client{uploadErr: errors.New("network timeout")}
	u := newTestUploader(mock, time.Now())

	_, err := u.Upload(context.Background(), []byte("{}"), time.Now())
	if !errors.Is(err, mock.uploadErr) {
		t.Errorf("expected wrapped network timeout error, got %v", err)
	}
}

func TestS3Uploader_PresignedURL_Success(t *testing.T) {
	expected, _ := url.Parse("https://s3.example.com/bucket/alice/exports/latest.json?token=abc")
	mock := &mockS3Client{presignURL: expected}
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	u := newTestUploader(mock, now)

	got, expiry, err := u.PresignedURL(context.Background())
	if err != nil {
		t.Fatalf("PresignedURL() error = %v", err)
	}
	if got != expected.String() {
		t.Errorf("url = %q, want %q", got, expected.String())
	}
	if !expiry.Equal(now.Add(15 * time.Minute)) {
		t.Errorf("expiry = %v, want %v", expiry, now.Add(15*time.Minute))
	}
	if mock.lastPresign != "alice/exports/latest.json" {
		t.Errorf("objectName = %q", mock.lastPresign)
	}
}

func TestS3Uploader_PresignedURL_Error(t *testing.T) {
	mock := &mockS3Client{presignErr: errors.New("access denied")}
	u := newTestUploader(mock, time.Now())

	if _, _, err := u.PresignedURL(context.Background()); err == nil {
		t.Fatal("PresignedURL() expected error, got nil")
	}
}

func TestStripScheme(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		wantHost string
		wantSSL  bool
	}{
		{"bare host", "s3.example.com", "s3.example.com", true},
		{"bare host:port", "minio:9000", "minio:9000", true},
		{"https URL", "https://s3.example.com", "s3.example.com", true},
		{"http URL", "http://minio:9000", "minio:9000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ssl := true
			got := stripScheme(tt.endpoint, &ssl)
			if got != tt.wantHost {
				t.Errorf("stripScheme(%q) host = %q, want %q", tt.endpoint, got, tt.wantHost)
			}
			if ssl != tt.wantSSL {
				t.Errorf("stripScheme(%q) ssl = %v, want %v", tt.endpoint, ssl, tt.wantSSL)
			}
		})
	}
}

func TestObjectKeys_WithoutPrefix(t *testing.T) {
	if got := latestKey(""); got != "exports/latest.json" {
		t.Errorf("latestKey(\"\") = %q", got)
	}
}

func TestUploadDocument(t *testing.T) {
	mock := &mockS3Client{}
	u := newTestUploader(mock, time.Now())
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	doc := exchange.New(nil, nil, types.LedgerState{LifetimePointsEarned: 12}, at)

	key, err := UploadDocument(context.Background(), u, doc)
	if err != nil {
		t.Fatalf("UploadDocument() error = %v", err)
	}
	if key != "alice/exports/20260310T090000Z.json" {
		t.Errorf("key = %q", key)
	}
	decoded, err := exchange.Decode(strings.NewReader(mock.puts[0].body))
	if err != nil {
		t.Fatalf("uploaded body does not decode: %v", err)
	}
	if decoded.LifetimePoints != 12 {
		t.Errorf("LifetimePoints = %d, want 12", decoded.LifetimePoints)
	}
}
