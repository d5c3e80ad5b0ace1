package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"

	"textdocs/internal/config"
)

func TestNewMinIO_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MinIOConfig
		want string
	}{
		{name: "missing endpoint", cfg: config.MinIOConfig{}, want: "endpoint is required"},
		{name: "missing credentials", cfg: config.MinIOConfig{Endpoint: "localhost:9000"}, want: "credentials are required"},
		{name: "missing bucket", cfg: config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}, want: "bucket is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewMinIO(context.Background(), tt.cfg)
			assert.ErrorContains(t, err, tt.want)
			assert.Nil(t, s)
		})
	}
}

func TestTranslateErr(t *testing.T) {
	assert.NoError(t, translateErr(nil))

	missing := minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}
	assert.ErrorIs(t, translateErr(missing), ErrObjectNotFound)

	other := errors.New("connection reset")
	assert.Equal(t, other, translateErr(other))
}
