package r2client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresAllFields(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Endpoint: "https://example.invalid", AccessKeyID: "a"})
	require.Error(t, err)
	assert.EqualError(t, err, "r2client: missing secret access key, bucket")
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no such key", &types.NoSuchKey{}, true},
		{"not found", fmt.Errorf("wrapped: %w", &types.NotFound{}), true},
		{"api error code", &smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain", io.ErrUnexpectedEOF, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isNotFound(tt.err))
		})
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/catalogs/teachers.json":
			w.Header().Set("ETag", `"abc123"`)
			_, _ = io.WriteString(w, `[{"name":"Ms. Sara"}]`)
		default:
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
		}
	}))
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{
		Endpoint:        srv.URL,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "catalogs",
		HTTPClient:      srv.Client(),
	})
	require.NoError(t, err)

	obj, err := c.Get(context.Background(), "teachers.json")
	require.NoError(t, err)
	defer obj.Close()
	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, "abc123", obj.ETag)
	assert.Equal(t, "teachers.json", obj.Key)
	assert.Equal(t, int64(len(data)), obj.Size)
	assert.Contains(t, string(data), "Ms. Sara")

	_, err = c.Get(context.Background(), "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "missing.json")
}
