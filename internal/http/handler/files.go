package handler

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"textdocs/internal/model"
	"textdocs/internal/service"
)

type uploadRequest struct {
	Files []model.DocumentInput `json:"files"`
}

type uploadResponse struct {
	Message string                   `json:"message"`
	Files   []model.DocumentMetadata `json:"files"`
}

type deleteResponse struct {
	Message       string `json:"message"`
	DeletedFileID string `json:"deletedFileId"`
}

// UploadFiles godoc
// @Summary Upload a batch of text files
// @Tags files
// @Accept json
// @Produce json
// @Param body body uploadRequest true "Files to store"
// @Success 200 {object} uploadResponse
// @Failure 400 {object} errorPayload
// @Failure 413 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /files/upload [post]
func UploadFiles(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req uploadRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be JSON with a files array")
		}

		files, err := docSvc.UploadBatch(c.UserContext(), req.Files)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(uploadResponse{Message: "Files content saved!", Files: files})
	}
}

// ListFiles godoc
// @Summary List stored files without content
// @Tags files
// @Produce json
// @Success 200 {array} model.DocumentMetadata
// @Failure 500 {object} errorPayload
// @Router /files [get]
func ListFiles(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		files, err := docSvc.List(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(nonNil(files))
	}
}

// SearchFiles godoc
// @Summary Case-insensitive substring search over file content
// @Tags files
// @Produce json
// @Param search path string true "Search term"
// @Success 200 {array} model.DocumentMetadata
// @Failure 500 {object} errorPayload
// @Router /files/{search} [get]
func SearchFiles(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		term := c.Params("search")
		if decoded, err := url.PathUnescape(term); err == nil {
			term = decoded
		}

		files, err := docSvc.Search(c.UserContext(), term)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(nonNil(files))
	}
}

// GetFileContent godoc
// @Summary Get a file including its content
// @Tags files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} model.Document
// @Failure 404 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /files/{id}/content [get]
func GetFileContent(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := docSvc.GetContent(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DeleteFile godoc
// @Summary Delete a file permanently
// @Tags files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} deleteResponse
// @Failure 404 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /files/{id} [delete]
func DeleteFile(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := docSvc.Remove(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(deleteResponse{Message: "File deleted successfully!", DeletedFileID: id})
	}
}

func nonNil(items []model.DocumentMetadata) []model.DocumentMetadata {
	if items == nil {
		return []model.DocumentMetadata{}
	}
	return items
}
