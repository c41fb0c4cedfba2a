package s3

// SecureMIMETypesExtension 定義了允許上傳的商品圖片類型及其對應的副檔名
// 嗅探出來的 MIME 不在這張表裡的一律拒絕，svg 這種可夾帶腳本的排除在外
var SecureMIMETypesExtension = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/bmp":  "bmp",
	"image/webp": "webp",
}

// CheckSecureImageAndGetExtension 檢查給定的 MIME 類型是否為允許的圖片類型，並返回對應的副檔名
func CheckSecureImageAndGetExtension(mimeType string) (bool, string) {
	ext, ok := SecureMIMETypesExtension[mimeType]
	return ok, ext
}
