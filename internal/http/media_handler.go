package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"startup-apply/internal/service"
)

// MediaHandler recibe archivos multipart y los sube al bucket.
type MediaHandler struct {
	logger    *zap.Logger
	mediaServ *service.MediaService
}

func NewMediaHandler(logger *zap.Logger, mediaServ *service.MediaService) *MediaHandler {
	return &MediaHandler{logger: logger, mediaServ: mediaServ}
}

// Upload maneja POST /uploads con el campo "file".
func (h *MediaHandler) Upload(c *gin.Context) {
	if !h.mediaServ.Enabled() {
		respondError(c, h.logger, "upload", service.ErrMediaUnavailable)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxUploadSize+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		h.logger.Warn("invalid upload request", zap.Error(err))
		fail(c, http.StatusBadRequest, "file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, h.logger, "upload", err)
		return
	}
	defer f.Close()

	obj, err := h.mediaServ.Upload(c.Request.Context(), actorFrom(c), fh.Filename, fh.Header.Get("Content-Type"), fh.Size, f)
	if err != nil {
		respondError(c, h.logger, "upload", err)
		return
	}
	respond(c, http.StatusCreated, "File uploaded successfully", obj)
}
