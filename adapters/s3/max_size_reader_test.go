package s3_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"sokoni/adapters/s3"
)

func TestMaxSizeReader(t *testing.T) {
	tests := []struct {
		name       string
		input      []byte
		maxSize    int64
		wantN      int
		wantErr    bool
		wantErrMsg string
	}{
		{
			name:    "讀取小於限制的內容",
			input:   []byte("hello"),
			maxSize: 10,
			wantN:   5,
			wantErr: false,
		},
		{
			name:       "讀取超過限制的內容",
			input:      []byte("hello world"),
			maxSize:    5,
			wantN:      5,
			wantErr:    true,
			wantErrMsg: "reach limit of 5 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := s3.NewMaxSizeReader(bytes.NewReader(tt.input), tt.maxSize)
			buf := make([]byte, len(tt.input))
			n, err := reader.Read(buf)

			assert.Equal(t, tt.wantN, n)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.wantErrMsg, err.Error())
			} else {
				assert.True(t, err == nil || err == io.EOF)
			}
		})
	}
}

func TestMaxSizeReader_ReadAll(t *testing.T) {
	t.Run("io.ReadAll在限制內讀完", func(t *testing.T) {
		reader := s3.NewMaxSizeReader(bytes.NewReader([]byte("hello")), 10)
		data, err := io.ReadAll(reader)
		assert.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("io.ReadAll超限時錯誤可被errors.As捕捉", func(t *testing.T) {
		reader := s3.NewMaxSizeReader(bytes.NewReader(make([]byte, 100)), 16)
		_, err := io.ReadAll(reader)
		assert.Error(t, err)
		assert.True(t, errors.As(err, &s3.ErrReachLimitType))
		assert.Equal(t, int64(16), s3.ErrReachLimitType.MaxBytes)
	})
}
