package controllers

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/pmis_end/service"
	"github.com/BerniceZTT/pmis_end/utils"
)

// FileController 证明材料与计量簿文件下载
type FileController struct {
	evidence *service.EvidenceService
}

// NewFileController 创建文件控制器
func NewFileController(evidence *service.EvidenceService) *FileController {
	return &FileController{evidence: evidence}
}

// DownloadFile 按存储文件名输出文件内容
func (fc *FileController) DownloadFile(c *gin.Context) {
	storedName := c.Param("storedName")

	ctx, cancel := requestContext(c)
	defer cancel()

	file, err := fc.evidence.Open(ctx, storedName)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	defer file.Close()

	contentType := file.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	name := file.OriginalName
	if name == "" {
		name = file.StoredName
	}

	utils.Logger.Debug().
		Str("storedName", storedName).
		Int64("size", file.Size).
		Msg("[文件下载] 输出文件")

	c.DataFromReader(http.StatusOK, file.Size, contentType, file, map[string]string{
		"Content-Disposition": mime.FormatMediaType("inline", map[string]string{"filename": name}),
	})
}
