package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sokoni/models"
)

// performUpload 送出帶一個檔案欄位的 multipart 請求
func performUpload(t *testing.T, router *gin.Engine, token string, content []byte) *httptest.ResponseRecorder {
	buffer := &bytes.Buffer{}
	writer := multipart.NewWriter(buffer)
	part, err := writer.CreateFormFile("file", "upload.bin")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	request := httptest.NewRequest(http.MethodPost, "/api/uploads/upload", buffer)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestPostUpload(t *testing.T) {
	t.Run("missing file field", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		user := createTestUser(t, impl.db, "alice")

		recorder := performRequest(t, router, http.MethodPost, "/api/uploads/upload", nil, authToken(t, impl, user))

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "File must be an image", decodeBody[ErrorResponse](t, recorder).Message)
	})

	t.Run("rejects files that are not images", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		user := createTestUser(t, impl.db, "alice")

		// 檔案內容嗅探出純文字，不管客戶端宣告什麼都擋下
		recorder := performUpload(t, router, authToken(t, impl, user), []byte("just some text"))

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Invalid image type: text/plain; charset=utf-8",
			decodeBody[ErrorResponse](t, recorder).Message)
	})

	t.Run("rejects oversized files before reading them in", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		user := createTestUser(t, impl.db, "alice")

		recorder := performUpload(t, router, authToken(t, impl, user), make([]byte, maxUploadBytes+2))

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "reach limit of 5.00 MB", decodeBody[ErrorResponse](t, recorder).Message)
	})

	t.Run("hourly upload quota", func(t *testing.T) {
		// 準備測試環境: 最近一小時內已經用滿配額
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		user := createTestUser(t, impl.db, "alice")
		for i := 0; i < impl.config.S3.RateLimitPerHour; i++ {
			require.NoError(t, impl.db.Create(&models.Image{
				UploaderID: user.ID,
				URL:        "https://cdn.sokoni.test/previous.png",
				ObjectKey:  "previous.png",
			}).Error)
		}

		// 執行測試
		recorder := performUpload(t, router, authToken(t, impl, user), []byte("ignored"))

		// 驗證結果
		require.Equal(t, http.StatusTooManyRequests, recorder.Code)
		assert.Equal(t, "Upload rate limit reached. Try again later.",
			decodeBody[ErrorResponse](t, recorder).Message)
	})

	t.Run("old uploads fall out of the quota window", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		user := createTestUser(t, impl.db, "alice")
		for i := 0; i < impl.config.S3.RateLimitPerHour; i++ {
			image := models.Image{
				UploaderID: user.ID,
				URL:        "https://cdn.sokoni.test/previous.png",
				ObjectKey:  "previous.png",
			}
			require.NoError(t, impl.db.Create(&image).Error)
			require.NoError(t, impl.db.Model(&models.Image{}).
				Where("id = ?", image.ID).
				UpdateColumn("created_at", time.Now().Add(-time.Duration(i+2)*time.Hour)).Error)
		}

		// 舊紀錄不佔額度，請求會走到內容類型檢查
		recorder := performUpload(t, router, authToken(t, impl, user), []byte("just some text"))

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Invalid image type: text/plain; charset=utf-8",
			decodeBody[ErrorResponse](t, recorder).Message)
	})
}
