package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/yyw2wyy/workload-system/internal/service"
)

// multipart 表单字段
const (
	formDataField       = "data"
	formAttachmentField = "attachments"
)

// bindWithUpload 解析工作量请求体
// JSON 请求直接绑定；multipart 请求从 data 字段读取 JSON，从 attachments 字段读取附件
// 返回的 closer 须由调用方在请求结束前调用
func bindWithUpload(c *gin.Context, dest interface{}) (*service.Upload, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, noop, c.ShouldBindJSON(dest)
	}

	if raw := c.PostForm(formDataField); raw != "" {
		if err := json.Unmarshal([]byte(raw), dest); err != nil {
			return nil, noop, err
		}
	}
	if err := binding.Validator.ValidateStruct(dest); err != nil {
		return nil, noop, err
	}

	fh, err := c.FormFile(formAttachmentField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, noop, err
	}
	upload := &service.Upload{
		Filename:    fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Reader:      f,
	}
	return upload, func() { closeQuietly(f) }, nil
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}
