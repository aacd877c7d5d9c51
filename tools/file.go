package tools

import (
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/gin-gonic/gin"
)

const (
	ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func FileExist(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		// 不存在或权限问题都视为不可用
		return false
	}
	return !info.IsDir()
}

// SendAttachment 以附件形式返回内存中的文件内容
func SendAttachment(c *gin.Context, data []byte, displayName, contentType string) {
	escaped := url.QueryEscape(displayName)
	c.Header(
		"Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, escaped, escaped),
	)
	c.Data(http.StatusOK, contentType, data)
}
