package dto

import (
	"time"

	"github.com/chatdesk/support-service/internal/storage"
)

// SignedURLRequest payload.
type SignedURLRequest struct {
	Action    storage.Operation `json:"action"`
	FileName  string            `json:"file_name"`
	FileType  string            `json:"file_type"`
	MessageID string            `json:"message_id"`
}

// SignedURLResponse carries the signed URL and derived path; Token is only
// set for uploads.
type SignedURLResponse struct {
	Success   bool   `json:"success"`
	SignedURL string `json:"signed_url"`
	FilePath  string `json:"file_path"`
	Token     string `json:"token,omitempty"`
}

// RegisterAttachmentRequest payload for phase two of the attachment flow.
type RegisterAttachmentRequest struct {
	MessageID   string `json:"message_id"`
	FileName    string `json:"file_name"`
	FileType    string `json:"file_type"`
	FileSize    int64  `json:"file_size"`
	StoragePath string `json:"storage_path"`
}

// RegisterAttachmentResponse wraps the created metadata row.
type RegisterAttachmentResponse struct {
	Success    bool               `json:"success"`
	Attachment AttachmentResponse `json:"attachment"`
}

// AttachmentResponse is the wire shape of attachment metadata.
type AttachmentResponse struct {
	ID          string    `json:"id"`
	MessageID   string    `json:"message_id"`
	FileName    string    `json:"file_name"`
	FileType    string    `json:"file_type"`
	FileSize    int64     `json:"file_size"`
	StoragePath string    `json:"storage_path"`
	CreatedAt   time.Time `json:"created_at"`
}
