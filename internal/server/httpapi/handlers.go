package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophfiles/internal/common"
	"github.com/dmitrijs2005/gophfiles/internal/flagx"
	"github.com/dmitrijs2005/gophfiles/internal/logging"
	"github.com/dmitrijs2005/gophfiles/internal/server/models"
	"github.com/dmitrijs2005/gophfiles/internal/server/services"
	"github.com/gin-gonic/gin"
)

// FileAPI is the service behind the file routes.
type FileAPI interface {
	Upload(ctx context.Context, p *models.Principal, sources []services.UploadSource, opts services.UploadOptions) ([]string, error)
	Retrieve(ctx context.Context, p *models.Principal, rawID string, attachment bool) (*services.Download, error)
	List(ctx context.Context, p *models.Principal) ([]*models.FileObject, error)
	Delete(ctx context.Context, p *models.Principal, shortID string) error
}

type fileHandler struct {
	files  FileAPI
	logger logging.Logger
}

func (h *fileHandler) upload(legacy bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := readUploadForm(c.Request, maxMemory)
		if err != nil {
			replyError(c, err)
			return
		}
		defer form.RemoveAll()

		opts := services.UploadOptions{
			Private: c.GetHeader(common.PrivateHeaderName) != "",
			Tags:    flagx.SplitList(c.GetHeader(common.TagsHeaderName)),
			// A bare W-Domains header keeps the configured aliases.
			HostAliases: flagx.SplitList(c.GetHeader(common.DomainsHeaderName)),
			Legacy:      legacy,
		}

		urls, err := h.files.Upload(c.Request.Context(), principal(c), form.sources, opts)
		if err != nil {
			replyError(c, err)
			return
		}

		if legacy {
			switch v := services.FormatLegacy(urls).(type) {
			case string:
				c.String(http.StatusOK, v)
			default:
				c.JSON(http.StatusOK, v)
			}
			return
		}
		reply(c, http.StatusOK, gin.H{
			"message":       "Upload complete",
			"uploadedFiles": urls,
		})
	}
}

func (h *fileHandler) get(c *gin.Context) {
	d, err := h.files.Retrieve(c.Request.Context(), principal(c), c.Param("fileId"), downloadRequested(c))
	if err != nil {
		replyError(c, err)
		return
	}
	defer d.Body.Close()

	c.Header("Content-Type", d.ContentType)
	c.Header("Content-Disposition", d.Disposition)
	c.Header("Content-Length", strconv.FormatInt(d.Size, 10))
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, d.Body); err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Warn(c.Request.Context(), "stream interrupted", "file_id", c.Param("fileId"), "error", err)
	}
}

func downloadRequested(c *gin.Context) bool {
	v, ok := c.GetQuery("download")
	if !ok {
		return false
	}
	switch strings.ToLower(v) {
	case "0", "false", "no":
		return false
	}
	return true
}

func (h *fileHandler) remove(c *gin.Context) {
	if err := h.files.Delete(c.Request.Context(), principal(c), c.Param("fileId")); err != nil {
		replyError(c, err)
		return
	}
	reply(c, http.StatusOK, gin.H{"message": "File deleted"})
}

func (h *fileHandler) list(c *gin.Context) {
	files, err := h.files.List(c.Request.Context(), principal(c))
	if err != nil {
		h.logger.Error(c.Request.Context(), "list failed", "error", err)
		replyError(c, common.ErrorInternal)
		return
	}
	reply(c, http.StatusOK, gin.H{
		"message": "Files listed",
		"files":   files,
	})
}
