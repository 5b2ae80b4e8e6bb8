package model

// StorageStatus reports whether the server's durable file storage is configured.
type StorageStatus struct {
	Message    string `json:"message" yaml:"message"`
	Configured bool   `json:"configured" yaml:"configured"`
}

// StorageUploadResult is the server's outcome for a raw file upload.
type StorageUploadResult struct {
	Message  string `json:"message" yaml:"message"`
	S3Key    string `json:"s3_key,omitempty" yaml:"s3_key,omitempty"`
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`
	Success  bool   `json:"success" yaml:"success"`
}
