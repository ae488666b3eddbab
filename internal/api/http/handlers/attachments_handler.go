package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/chatdesk/support-service/internal/api/dto"
	"github.com/chatdesk/support-service/internal/service"
	apperrors "github.com/chatdesk/support-service/pkg/util"
)

// AttachmentsHandler serves signed URL issuance and attachment registration.
type AttachmentsHandler struct {
	service *service.AttachmentService
}

// NewAttachmentsHandler constructs handler.
func NewAttachmentsHandler(attachmentService *service.AttachmentService) *AttachmentsHandler {
	return &AttachmentsHandler{service: attachmentService}
}

// GetSignedURL POST /api/get-signed-url.
func (h *AttachmentsHandler) GetSignedURL(c *fiber.Ctx) error {
	var req dto.SignedURLRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.IssueSignedURL(c.UserContext(), service.SignedURLInput{
		Action:   req.Action,
		FileName: req.FileName,
		FileType: req.FileType,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.SignedURLResponse{
		Success:   true,
		SignedURL: result.SignedURL,
		FilePath:  result.FilePath,
		Token:     result.Token,
	})
}

// RegisterAttachment POST /api/attachments.
func (h *AttachmentsHandler) RegisterAttachment(c *fiber.Ctx) error {
	var req dto.RegisterAttachmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	attachment, err := h.service.Register(c.UserContext(), service.RegisterInput{
		MessageID:   req.MessageID,
		FileName:    req.FileName,
		FileType:    req.FileType,
		FileSize:    req.FileSize,
		StoragePath: req.StoragePath,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.RegisterAttachmentResponse{
		Success:    true,
		Attachment: attachmentResponse(attachment),
	})
}
