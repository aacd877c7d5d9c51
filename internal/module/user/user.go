package user

import (
	"instavision/internal/global/event"
	"instavision/internal/global/jwt"
	"instavision/internal/global/mail"
	"instavision/internal/global/response"
	"instavision/internal/model"
	"instavision/internal/store"
	"instavision/tools"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// parseID 解析路径中的用户 id，必须为正整数
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.Fail(c, response.ErrInvalidID)
		return 0, false
	}
	return uint(id), true
}

func actorID(c *gin.Context) uint {
	if claims, ok := jwt.GetUserPayload(c); ok {
		return claims.UserID
	}
	return 0
}

// failStore 把存储层错误转换为响应
func failStore(c *gin.Context, err error, action string, id uint) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Fail(c, response.ErrUserNotFound)
	case errors.Is(err, store.ErrDuplicateEmail):
		response.Fail(c, response.ErrEmailTaken)
	case errors.Is(err, store.ErrDuplicateRegNo):
		response.Fail(c, response.ErrRegNoTaken)
	default:
		log.Error(action+"失败", "error", err, "user_id", id)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
	}
}

func (u *ModuleUser) publish(c *gin.Context, t event.Type, user *model.User) {
	if err := u.deps.Events.Publish(c.Request.Context(), event.NewUserEvent(t, user, actorID(c))); err != nil {
		log.Warn("事件发布失败", "error", err, "event", t, "user_id", user.ID)
	}
}

// revoke 开启吊销时使该用户已签发的令牌失效
func (u *ModuleUser) revoke(c *gin.Context, id uint) {
	if u.deps.Revoker == nil {
		return
	}
	if err := u.deps.Revoker.Revoke(c.Request.Context(), id); err != nil {
		log.Error("吊销令牌失败", "error", err, "user_id", id)
	}
}

type listQuery struct {
	Role   string `form:"role" binding:"omitempty,user_role"`
	Status string `form:"status" binding:"omitempty,user_status"`
	Format string `form:"format" binding:"omitempty,oneof=json xlsx"`
}

// List 全部用户按创建时间倒序，format=xlsx 时导出 Excel
func (u *ModuleUser) List(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Fail(c, response.ErrInvalidFilter.WithOrigin(err))
		return
	}

	users, err := u.deps.Users.List(c.Request.Context(), store.ListFilter{
		Role:   model.Role(q.Role),
		Status: model.Status(q.Status),
	})
	if err != nil {
		failStore(c, err, "查询用户列表", 0)
		return
	}

	if q.Format == "xlsx" {
		data, err := tools.ExcelBytes("Users", users)
		if err != nil {
			response.Fail(c, response.ErrInternal.WithOrigin(err))
			return
		}
		tools.SendAttachment(c, data, "users.xlsx", tools.ExcelContentType)
		return
	}
	response.Success(c, "Users retrieved successfully", users)
}

func (u *ModuleUser) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	user, err := u.deps.Users.FindByID(c.Request.Context(), id)
	if err != nil {
		failStore(c, err, "查询用户", id)
		return
	}
	response.Success(c, "User retrieved successfully", user)
}

type updateReq struct {
	FullName          *string `json:"full_name"`
	Email             *string `json:"email"`
	CollegeUniversity *string `json:"college_university"`
	Course            *string `json:"course"`
	BatchNo           *string `json:"batch_no"`
	RegNo             *string `json:"reg_no"`
	Bio               *string `json:"bio"`
	ProfileImageURL   *string `json:"profile_image_url"`
}

// fields 必填列传空串视为未提供，可选列允许清空
func (r *updateReq) fields() map[string]any {
	fields := make(map[string]any)
	required := map[string]*string{
		"full_name":          r.FullName,
		"email":              r.Email,
		"college_university": r.CollegeUniversity,
		"course":             r.Course,
		"batch_no":           r.BatchNo,
		"reg_no":             r.RegNo,
	}
	for column, v := range required {
		if v != nil && strings.TrimSpace(*v) != "" {
			fields[column] = strings.TrimSpace(*v)
		}
	}
	if r.Bio != nil {
		fields["bio"] = *r.Bio
	}
	if r.ProfileImageURL != nil {
		fields["profile_image_url"] = strings.TrimSpace(*r.ProfileImageURL)
	}
	return fields
}

// Update 部分更新，唯一字段排除自身后重新校验
func (u *ModuleUser) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}

	ctx := c.Request.Context()
	users := u.deps.Users
	if _, err := users.FindByID(ctx, id); err != nil {
		failStore(c, err, "查询用户", id)
		return
	}

	fields := req.fields()
	if email, ok := fields["email"].(string); ok {
		if !tools.ValidEmail(email) {
			response.Fail(c, response.ErrInvalidEmail)
			return
		}
		if taken, err := users.EmailTaken(ctx, email, id); err != nil {
			failStore(c, err, "检查邮箱", id)
			return
		} else if taken {
			response.Fail(c, response.ErrEmailTaken)
			return
		}
	}
	if regNo, ok := fields["reg_no"].(string); ok {
		if taken, err := users.RegNoTaken(ctx, regNo, id); err != nil {
			failStore(c, err, "检查学号", id)
			return
		} else if taken {
			response.Fail(c, response.ErrRegNoTaken)
			return
		}
	}

	user, err := users.Update(ctx, id, fields)
	if err != nil {
		failStore(c, err, "更新用户", id)
		return
	}
	log.Info("用户资料已更新", "user_id", id, "by", actorID(c))
	response.Success(c, "User updated successfully", user)
}

// Delete 硬删除，管理员账号不可删除
func (u *ModuleUser) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	user, err := u.deps.Users.FindByID(ctx, id)
	if err != nil {
		failStore(c, err, "查询用户", id)
		return
	}
	if user.IsAdmin() {
		response.Fail(c, response.ErrCannotDeleteAdmin)
		return
	}
	if err := u.deps.Users.Delete(ctx, id); err != nil {
		failStore(c, err, "删除用户", id)
		return
	}

	u.revoke(c, id)
	u.publish(c, event.UserDeleted, user)
	log.Info("用户已删除", "user_id", id, "by", actorID(c))
	response.Success(c, "User deleted successfully")
}

type statusReq struct {
	Status string `json:"status"`
}

// ToggleStatus 启用或停用账号，管理员账号不可停用
func (u *ModuleUser) ToggleStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Fail(c, response.ErrInvalidStatus.WithOrigin(err))
		return
	}
	status := model.Status(req.Status)
	if !status.Valid() {
		response.Fail(c, response.ErrInvalidStatus)
		return
	}

	ctx := c.Request.Context()
	user, err := u.deps.Users.FindByID(ctx, id)
	if err != nil {
		failStore(c, err, "查询用户", id)
		return
	}
	if user.IsAdmin() && status == model.StatusInactive {
		response.Fail(c, response.ErrCannotDeactivateAdmin)
		return
	}

	user, err = u.deps.Users.UpdateStatus(ctx, id, status)
	if err != nil {
		failStore(c, err, "更新状态", id)
		return
	}

	if status == model.StatusInactive {
		u.revoke(c, id)
	}
	u.publish(c, event.UserStatusChanged, user)

	message := "User activated successfully"
	if status == model.StatusInactive {
		message = "User deactivated successfully"
	}
	log.Info("用户状态已更新", "user_id", id, "status", status, "by", actorID(c))
	response.Success(c, message, user)
}

// ResetPassword 生成新密码并通过邮件发送
func (u *ModuleUser) ResetPassword(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	user, err := u.deps.Users.FindByID(ctx, id)
	if err != nil {
		failStore(c, err, "查询用户", id)
		return
	}

	password, err := tools.GeneratePassword(u.deps.PasswordLength)
	if err != nil {
		response.Fail(c, response.ErrInternal.WithOrigin(err))
		return
	}
	hash, err := tools.PasswordEncrypt(password, u.deps.BcryptCost)
	if err != nil {
		response.Fail(c, response.ErrInternal.WithOrigin(err))
		return
	}
	if err := u.deps.Users.UpdatePassword(ctx, id, hash); err != nil {
		failStore(c, err, "重置密码", id)
		return
	}

	msg := mail.PasswordResetMessage(user.Email, user.FullName, password, u.deps.FrontendURL)
	if err := u.deps.Mailer.Dispatch(ctx, msg); err != nil {
		log.Warn("重置密码邮件投递失败", "error", err, "user_id", id)
	}
	u.revoke(c, id)
	u.publish(c, event.UserPasswordReset, user)

	log.Info("用户密码已重置", "user_id", id, "by", actorID(c))
	response.Success(c, "Password reset successfully. New password sent to email.")
}
