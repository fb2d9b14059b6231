package models

import "time"

// UploadContext says what a stored file was uploaded for.
type UploadContext string

const (
	UploadRequirement    UploadContext = "requirement"
	UploadUpdates        UploadContext = "updates"
	UploadFinal          UploadContext = "final"
	UploadPaymentReceipt UploadContext = "payment_receipt"
	UploadProfilePicture UploadContext = "profile_picture"
)

type File struct {
	ID            int64         `json:"id"`
	OriginalName  string        `json:"original_name"`
	StoredName    string        `json:"stored_name"`
	FilePath      string        `json:"-"`
	FileSize      int64         `json:"file_size"`
	MimeType      string        `json:"mime_type"`
	FileExtension string        `json:"file_extension"`
	UploadedBy    int64         `json:"uploaded_by"`
	UploadContext UploadContext `json:"upload_context"`
	CreatedAt     time.Time     `json:"created_at"`
}

// TaskFile links a stored file to a task.
type TaskFile struct {
	TaskID     int64         `json:"task_id"`
	FileID     int64         `json:"file_id"`
	UploadType UploadContext `json:"upload_type"`
	File       *File         `json:"file,omitempty"`
}
