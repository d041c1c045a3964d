package blob

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		Endpoint:  "http://127.0.0.1:9000/",
		Region:    "us-east-1",
		Bucket:    "gallery",
		AccessKey: "admin",
		SecretKey: "secretpassword",
		Expiry:    15 * time.Minute,
	}
}

func TestNewStorageKey(t *testing.T) {
	now := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	k1 := NewStorageKey("u1", now)
	k2 := NewStorageKey("u1", now)

	require.True(t, strings.HasPrefix(k1, "users/u1/2026/3/7/"), k1)
	require.NotEqual(t, k1, k2)
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		in     string
		host   string
		secure bool
		err    bool
	}{
		{in: "http://127.0.0.1:9000/", host: "127.0.0.1:9000"},
		{in: "https://s3.example.com", host: "s3.example.com", secure: true},
		{in: "minio:9000/", host: "minio:9000"},
		{in: "http://", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			host, secure, err := splitEndpoint(tt.in)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.host, host)
			require.Equal(t, tt.secure, secure)
		})
	}
}

// Presigning is computed locally, so no object store is needed here.
func TestS3Store_Presign(t *testing.T) {
	s, err := NewS3Store(context.Background(), testOptions())
	require.NoError(t, err)

	put, err := s.PresignPut(context.Background(), "users/u1/k")
	require.NoError(t, err)
	u, err := url.Parse(put)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", u.Host)
	require.Equal(t, "/gallery/users/u1/k", u.Path)
	require.NotEmpty(t, u.Query().Get("X-Amz-Signature"))

	get, err := s.PresignGet(context.Background(), "users/u1/k")
	require.NoError(t, err)
	require.Contains(t, get, "/gallery/users/u1/k")
}

func TestMinioStore_Presign(t *testing.T) {
	s, err := NewMinioStore(testOptions())
	require.NoError(t, err)

	put, err := s.PresignPut(context.Background(), "users/u1/k")
	require.NoError(t, err)
	u, err := url.Parse(put)
	require.NoError(t, err)
	require.Equal(t, "http", u.Scheme)
	require.Equal(t, "/gallery/users/u1/k", u.Path)
	require.Equal(t, "900", u.Query().Get("X-Amz-Expires"))

	get, err := s.PresignGet(context.Background(), "users/u1/k")
	require.NoError(t, err)
	require.Contains(t, get, "X-Amz-Signature")
}
