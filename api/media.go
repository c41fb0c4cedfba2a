package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	s3Adapter "sokoni/adapters/s3"
	"sokoni/models"
)

// maxUploadBytes 單一圖片的大小上限
const maxUploadBytes = 5 << 20

type UploadResponse struct {
	Success  bool   `json:"success"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Upload a product image
// (POST /api/uploads/upload)
func (impl *ServerImpl) PostUpload(c *gin.Context) {
	const op = "PostUpload"
	ctx := c.Request.Context()
	user := currentUser(c)

	// 檢查上傳頻率，以資料庫紀錄計算最近一小時的上傳數
	var recentUploads int64
	if result := impl.db.WithContext(ctx).Model(&models.Image{}).
		Where("uploader_id = ? AND created_at > ?", user.ID, time.Now().Add(-time.Hour)).
		Count(&recentUploads); result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to count recent uploads, err=%w", op, result.Error))
		return
	}
	if recentUploads >= int64(impl.config.S3.RateLimitPerHour) {
		abortWithMessage(c, http.StatusTooManyRequests, "Upload rate limit reached. Try again later.")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		abortWithMessage(c, http.StatusBadRequest, "File must be an image")
		return
	}
	opened, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to open uploaded file, err=%w", op, err))
		return
	}
	defer opened.Close()

	// 限制讀取長度，超大的檔案在進記憶體前就擋下
	file, err := io.ReadAll(s3Adapter.NewMaxSizeReader(opened, maxUploadBytes))
	if err != nil {
		if errors.As(err, &s3Adapter.ErrReachLimitType) {
			abortWithMessage(c, http.StatusBadRequest, err.Error())
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to read uploaded file, err=%w", op, err))
		return
	}

	// 以實際內容判斷圖片類型，不信任客戶端宣告的Content-Type
	mimeType := http.DetectContentType(file)
	ok, extension := s3Adapter.CheckSecureImageAndGetExtension(mimeType)
	if !ok {
		abortWithMessage(c, http.StatusBadRequest, fmt.Sprintf("Invalid image type: %s", mimeType))
		return
	}

	objectKey := uuid.New().String() + "." + extension
	publicURL, err := impl.s3Operator.UploadFileToS3(ctx, objectKey, mimeType, file)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to upload file to S3, err=%w", op, err))
		return
	}

	image := models.Image{
		UploaderID: user.ID,
		URL:        publicURL,
		ObjectKey:  objectKey,
	}
	if result := impl.db.WithContext(ctx).Create(&image); result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to record uploaded image, err=%w", op, result.Error))
		return
	}

	c.Header("Location", publicURL)
	c.JSON(http.StatusCreated, UploadResponse{
		Success:  true,
		URL:      publicURL,
		Filename: objectKey,
	})
}
