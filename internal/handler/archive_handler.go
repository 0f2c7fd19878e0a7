package handler

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/service"
	"github.com/yourorg/stock-forecast/internal/utils"
)

// ArchiveHandler handles experiment store archiving and file downloads
type ArchiveHandler struct {
	archiver Archiver
	logger   *zap.Logger
}

// NewArchiveHandler creates a new archive handler
func NewArchiveHandler(archiver Archiver, logger *zap.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		archiver: archiver,
		logger:   logger,
	}
}

// ZipStore zips the experiment store
// GET /zipar-pasta
func (h *ArchiveHandler) ZipStore(c *gin.Context) {
	name, err := h.archiver.ZipStore()
	if err != nil {
		h.logger.Error("Failed to archive experiment store", zap.Error(err))
		utils.SendErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"zipFileName": name})
}

// Download sends a file from the working directory as an attachment
// GET /download/:file_name
func (h *ArchiveHandler) Download(c *gin.Context) {
	name := c.Param("file_name")

	path, err := h.archiver.ResolveDownload(name)
	switch {
	case errors.Is(err, service.ErrInvalidFileName):
		utils.SendErrorResponse(c, http.StatusBadRequest, "Nome de arquivo inválido")
		return
	case errors.Is(err, fs.ErrNotExist):
		utils.SendErrorResponse(c, http.StatusNotFound, "Arquivo não encontrado")
		return
	case err != nil:
		h.logger.Error("Failed to resolve download", zap.String("file", name), zap.Error(err))
		utils.SendErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.FileAttachment(path, name)
}
