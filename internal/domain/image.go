package domain

// UploadedImage — загруженное пользователем изображение для архива в S3.
type UploadedImage struct {
	ID        string // uuid
	Bucket    string
	ObjectKey string
	Bytes     []byte
	Size      int64
	MimeType  string // Example: "image/png"
}

func NewUploadedImage(id, bucket, objectKey string, data []byte, mimeType string) *UploadedImage {
	return &UploadedImage{
		ID:        id,
		Bucket:    bucket,
		ObjectKey: objectKey,
		Bytes:     data,
		Size:      int64(len(data)),
		MimeType:  mimeType,
	}
}
