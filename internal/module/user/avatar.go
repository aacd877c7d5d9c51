package user

import (
	"fmt"
	"instavision/internal/global/response"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxAvatarSize = 5 << 20

type presignReq struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

var errNotImage = response.ErrInvalidRequest.WithMessage("Only image files are allowed")

func avatarDir(id uint) string {
	return fmt.Sprintf("avatars/%d", id)
}

// PresignAvatar 返回头像直传地址，上传完成后由前端通过 PUT /users/:id 写回 profile_image_url
func (u *ModuleUser) PresignAvatar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if u.deps.Storage == nil {
		response.Fail(c, response.ErrStorageDisabled)
		return
	}
	var req presignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	if !strings.HasPrefix(req.ContentType, "image/") {
		response.Fail(c, errNotImage)
		return
	}
	if _, err := u.deps.Users.FindByID(c.Request.Context(), id); err != nil {
		failStore(c, err, "查询用户", id)
		return
	}

	upload, err := u.deps.Storage.PresignUpload(c.Request.Context(), avatarDir(id), req.Filename, req.ContentType)
	if err != nil {
		log.Error("生成预签名地址失败", "error", err, "user_id", id)
		response.Fail(c, response.ErrInternal.WithOrigin(err))
		return
	}
	response.Success(c, "Upload URL generated successfully", upload)
}

// UploadAvatar 服务端中转上传头像并更新 profile_image_url
func (u *ModuleUser) UploadAvatar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if u.deps.Storage == nil {
		response.Fail(c, response.ErrStorageDisabled)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithMessage("Please provide an image file").WithOrigin(err))
		return
	}
	if fileHeader.Size > maxAvatarSize {
		response.Fail(c, response.ErrPayloadTooLarge)
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		response.Fail(c, errNotImage)
		return
	}

	ctx := c.Request.Context()
	if _, err := u.deps.Users.FindByID(ctx, id); err != nil {
		failStore(c, err, "查询用户", id)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Fail(c, response.ErrInternal.WithOrigin(err))
		return
	}
	defer file.Close()

	url, err := u.deps.Storage.Upload(ctx, avatarDir(id), fileHeader.Filename, contentType, file)
	if err != nil {
		log.Error("上传头像失败", "error", err, "user_id", id)
		response.Fail(c, response.ErrInternal.WithOrigin(err))
		return
	}
	user, err := u.deps.Users.Update(ctx, id, map[string]any{"profile_image_url": url})
	if err != nil {
		failStore(c, err, "更新头像", id)
		return
	}
	log.Info("头像已更新", "user_id", id, "url", url)
	response.Success(c, "Profile image updated successfully", user)
}
