package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/chatdesk/support-service/internal/domain"
	"github.com/chatdesk/support-service/internal/events"
	"github.com/chatdesk/support-service/internal/repository"
	"github.com/chatdesk/support-service/internal/storage"
	apperrors "github.com/chatdesk/support-service/pkg/util"
)

// AttachmentService handles the two-phase attachment flow: signed URL
// issuance first, metadata registration after the client confirms the bytes
// are uploaded. There is no atomicity across the phases; an upload nobody
// registers is just an orphaned object.
type AttachmentService struct {
	signer      *storage.Signer
	messages    repository.MessageRepository
	attachments repository.AttachmentRepository
	dispatcher  events.Dispatcher
}

// NewAttachmentService constructs the service.
func NewAttachmentService(signer *storage.Signer, messages repository.MessageRepository, attachments repository.AttachmentRepository, dispatcher events.Dispatcher) *AttachmentService {
	return &AttachmentService{
		signer:      signer,
		messages:    messages,
		attachments: attachments,
		dispatcher:  dispatcher,
	}
}

// SignedURLInput describes a signed URL request.
type SignedURLInput struct {
	Action   storage.Operation
	FileName string
	FileType string
}

// SignedURLResult carries the issued URL, the derived object path and, for
// uploads, the bare upload token.
type SignedURLResult struct {
	SignedURL string
	FilePath  string
	Token     string
}

// IssueSignedURL validates the request against the MIME allow-list, derives a
// collision-resistant path and signs it for the requested operation. Download
// URLs are not checked against existing objects; a URL for a path nothing was
// uploaded to 404s at fetch time.
func (s *AttachmentService) IssueSignedURL(ctx context.Context, input SignedURLInput) (*SignedURLResult, error) {
	if !storage.ValidOperation(input.Action) {
		return nil, apperrors.NewValidationError("Invalid action", nil)
	}
	if input.FileName == "" || input.FileType == "" {
		return nil, apperrors.NewValidationError("File name and type are required", nil)
	}
	if !storage.AllowedMimeType(input.FileType) {
		return nil, apperrors.NewValidationError("File type not allowed", nil)
	}

	path := s.signer.DerivePath(input.FileName)
	if input.Action == storage.OperationUpload {
		signed, err := s.signer.SignUpload(path)
		if err != nil {
			return nil, err
		}
		return &SignedURLResult{SignedURL: signed.URL, FilePath: signed.Path, Token: signed.Token}, nil
	}

	signed, err := s.signer.SignDownload(path)
	if err != nil {
		return nil, err
	}
	return &SignedURLResult{SignedURL: signed.URL, FilePath: signed.Path}, nil
}

// RegisterInput describes phase two of the attachment flow.
type RegisterInput struct {
	MessageID   string
	FileName    string
	FileType    string
	FileSize    int64
	StoragePath string
}

// Register writes the attachment metadata row once the client confirms the
// bytes landed at StoragePath. The parent message must exist.
func (s *AttachmentService) Register(ctx context.Context, input RegisterInput) (*domain.Attachment, error) {
	if input.MessageID == "" {
		return nil, apperrors.NewValidationError("Message ID is required", nil)
	}
	if input.FileName == "" || input.FileType == "" || input.StoragePath == "" {
		return nil, apperrors.NewValidationError("File name, type and storage path are required", nil)
	}
	if input.FileSize < 0 {
		return nil, apperrors.NewValidationError("Invalid file size", nil)
	}
	if !storage.AllowedMimeType(input.FileType) {
		return nil, apperrors.NewValidationError("File type not allowed", nil)
	}

	msg, err := s.messages.GetByID(ctx, input.MessageID)
	if err != nil {
		return nil, apperrors.NotFoundForRows(err, "message")
	}

	attachment := &domain.Attachment{
		MessageID:   msg.ID,
		FileName:    input.FileName,
		FileType:    input.FileType,
		FileSize:    input.FileSize,
		StoragePath: input.StoragePath,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:       uuid.NewString(),
			Type:     events.EventAttachmentRegistered,
			TicketID: msg.TicketID,
			Payload: events.AttachmentRegisteredPayload{
				Attachment: *attachment,
				MessageID:  msg.ID,
			},
		})
	}
	return attachment, nil
}
