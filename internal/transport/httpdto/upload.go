package httpdto

type PresignUploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
}

type PresignUploadResponse struct {
	UploadID  string            `json:"upload_id"`
	UploadURL string            `json:"upload_url"`
	UploadKey string            `json:"upload_key"`
	Headers   map[string]string `json:"headers,omitempty"`
}

type CompleteUploadResponse struct {
	StoragePath  string `json:"storage_path"`
	PublicURL    string `json:"public_url"`
	OriginalName string `json:"original_name"`
	SizeBytes    int64  `json:"size_bytes"`
	MimeType     string `json:"mime_type"`
}
