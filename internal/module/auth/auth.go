package auth

import (
	"instavision/internal/global/event"
	"instavision/internal/global/jwt"
	"instavision/internal/global/mail"
	"instavision/internal/global/response"
	"instavision/internal/model"
	"instavision/internal/store"
	"instavision/tools"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type registerReq struct {
	FullName          string `json:"full_name"`
	Email             string `json:"email"`
	CollegeUniversity string `json:"college_university"`
	Course            string `json:"course"`
	BatchNo           string `json:"batch_no"`
	RegNo             string `json:"reg_no"`
}

func (r *registerReq) trim() {
	for _, f := range []*string{&r.FullName, &r.Email, &r.CollegeUniversity, &r.Course, &r.BatchNo, &r.RegNo} {
		*f = strings.TrimSpace(*f)
	}
}

func (r *registerReq) complete() bool {
	return r.FullName != "" && r.Email != "" && r.CollegeUniversity != "" &&
		r.Course != "" && r.BatchNo != "" && r.RegNo != ""
}

// bindJSON 空请求体按空对象处理
func bindJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Register 管理员创建学生账号，随机密码通过邮件发送
func (m *ModuleAuth) Register(c *gin.Context) {
	var req registerReq
	if err := bindJSON(c, &req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	req.trim()
	if !req.complete() {
		response.Fail(c, response.ErrMissingFields)
		return
	}
	if !tools.ValidEmail(req.Email) {
		response.Fail(c, response.ErrInvalidEmail)
		return
	}

	ctx := c.Request.Context()
	users := m.deps.Users
	if taken, err := users.EmailTaken(ctx, req.Email, 0); err != nil {
		log.Error("检查邮箱失败", "error", err, "email", req.Email)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	} else if taken {
		response.Fail(c, response.ErrEmailExists)
		return
	}
	if taken, err := users.RegNoTaken(ctx, req.RegNo, 0); err != nil {
		log.Error("检查学号失败", "error", err, "reg_no", req.RegNo)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	} else if taken {
		response.Fail(c, response.ErrRegNoExists)
		return
	}

	password, err := tools.GeneratePassword(m.deps.PasswordLength)
	if err != nil {
		response.Fail(c, response.ErrInternal.WithOrigin(err))
		return
	}
	hash, err := tools.PasswordEncrypt(password, m.deps.BcryptCost)
	if err != nil {
		response.Fail(c, response.ErrInternal.WithOrigin(err))
		return
	}

	user := &model.User{
		FullName:          req.FullName,
		Email:             req.Email,
		Password:          hash,
		CollegeUniversity: req.CollegeUniversity,
		Course:            req.Course,
		BatchNo:           req.BatchNo,
		RegNo:             req.RegNo,
		Role:              model.RoleStudent,
		Status:            model.StatusActive,
	}
	// 并发注册时由唯一索引兜底
	switch err := users.Create(ctx, user); {
	case errors.Is(err, store.ErrDuplicateEmail):
		response.Fail(c, response.ErrEmailExists)
		return
	case errors.Is(err, store.ErrDuplicateRegNo):
		response.Fail(c, response.ErrRegNoExists)
		return
	case err != nil:
		log.Error("创建用户失败", "error", err, "email", req.Email)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}

	msg := mail.RegistrationMessage(user.Email, user.FullName, password, user.RegNo, m.deps.FrontendURL)
	if err := m.deps.Mailer.Dispatch(ctx, msg); err != nil {
		log.Warn("注册邮件投递失败", "error", err, "email", user.Email)
	}

	var actorID uint
	if claims, ok := jwt.GetUserPayload(c); ok {
		actorID = claims.UserID
	}
	if err := m.deps.Events.Publish(ctx, event.NewUserEvent(event.UserRegistered, user, actorID)); err != nil {
		log.Warn("事件发布失败", "error", err, "event", event.UserRegistered)
	}

	log.Info("用户注册成功", "user_id", user.ID, "email", user.Email, "reg_no", user.RegNo)
	response.Created(c, "User registered successfully. Password sent to email.", user)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login 邮箱密码登录；账号不存在与密码错误返回相同的提示
func (m *ModuleAuth) Login(c *gin.Context) {
	var req loginReq
	if err := bindJSON(c, &req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		response.Fail(c, response.ErrMissingLogin)
		return
	}

	user, err := m.deps.Users.FindByEmail(c.Request.Context(), req.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Warn("登录失败，用户不存在", "email", req.Email)
		response.Fail(c, response.ErrInvalidCredentials)
		return
	case err != nil:
		log.Error("数据库查询失败", "error", err, "email", req.Email)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}

	if !user.IsActive() {
		log.Warn("已停用账号尝试登录", "user_id", user.ID)
		response.Fail(c, response.ErrAccountDeactivated)
		return
	}
	if !tools.PasswordCompare(req.Password, user.Password) {
		log.Warn("密码错误", "user_id", user.ID)
		response.Fail(c, response.ErrInvalidCredentials)
		return
	}

	token, err := m.deps.Tokens.CreateToken(user)
	if err != nil {
		response.Fail(c, response.ErrInternal.WithOrigin(err))
		return
	}

	log.Info("用户登录成功", "user_id", user.ID, "role", user.Role)
	response.Success(c, "Login successful", gin.H{
		"token": token,
		"user":  user,
	})
}

// Me 按令牌中的 id 读取最新资料
func (m *ModuleAuth) Me(c *gin.Context) {
	claims, ok := jwt.GetUserPayload(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return
	}
	user, err := m.deps.Users.FindByID(c.Request.Context(), claims.UserID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Fail(c, response.ErrUserNotFound)
		return
	case err != nil:
		log.Error("查询用户失败", "error", err, "user_id", claims.UserID)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	response.Success(c, "User retrieved successfully", user)
}
