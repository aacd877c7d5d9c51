// Package fixture 为模块测试组装依赖：SQLite 存储、记录型邮件与事件
package fixture

import (
	"context"
	"instavision/internal/global/app"
	"instavision/internal/global/event"
	"instavision/internal/global/jwt"
	"instavision/internal/global/mail"
	"instavision/internal/global/ratelimit"
	"instavision/internal/global/response"
	"instavision/internal/model"
	"instavision/internal/store"
	"instavision/test"
	"instavision/tools"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Password 通过 CreateUser 创建的用户的明文密码
const Password = "Passw0rd!"

type Mailbox struct {
	mu       sync.Mutex
	messages []mail.Message
	Err      error
}

func (m *Mailbox) Dispatch(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return m.Err
}

func (m *Mailbox) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

type Events struct {
	mu        sync.Mutex
	published []event.Event
}

func (e *Events) Publish(_ context.Context, ev event.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.published = append(e.published, ev)
	return nil
}

func (e *Events) Types() []event.Type {
	e.mu.Lock()
	defer e.mu.Unlock()
	types := make([]event.Type, 0, len(e.published))
	for _, ev := range e.published {
		types = append(types, ev.Type)
	}
	return types
}

type Env struct {
	Deps   *app.Deps
	Users  *store.GormUsers
	Mail   *Mailbox
	Events *Events
}

func New(t *testing.T) *Env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	users := store.NewUsers(test.NewDB(t))
	env := &Env{
		Users:  users,
		Mail:   &Mailbox{},
		Events: &Events{},
	}
	env.Deps = &app.Deps{
		Users:          users,
		Tokens:         jwt.NewIssuer("test-secret", time.Hour),
		Mailer:         env.Mail,
		Events:         env.Events,
		BcryptCost:     bcrypt.MinCost,
		PasswordLength: 12,
		FrontendURL:    "http://localhost:3000",
		StartedAt:      time.Now(),
	}
	limiter, err := ratelimit.New(nil, 10000, time.Minute)
	require.NoError(t, err)
	env.Deps.Limiter = limiter
	return env
}

// CreateUser 直接写入存储，密码为 Password
func (e *Env) CreateUser(t *testing.T, role model.Role, email, regNo string) *model.User {
	t.Helper()
	hash, err := tools.PasswordEncrypt(Password, bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{
		FullName:          "User " + regNo,
		Email:             email,
		Password:          hash,
		CollegeUniversity: "MIT",
		Course:            "CS",
		BatchNo:           "2024",
		RegNo:             regNo,
		Role:              role,
		Status:            model.StatusActive,
	}
	require.NoError(t, e.Users.Create(context.Background(), u))
	return u
}

func (e *Env) Token(t *testing.T, u *model.User) string {
	t.Helper()
	token, err := e.Deps.Tokens.CreateToken(u)
	require.NoError(t, err)
	return token
}

type Module interface {
	Init(d *app.Deps)
	InitRouter(r *gin.RouterGroup)
}

// Router 把模块挂到 /api 下
func (e *Env) Router(modules ...Module) *gin.Engine {
	r := gin.New()
	api := r.Group("/api")
	for _, m := range modules {
		m.Init(e.Deps)
		m.InitRouter(api)
	}
	r.NoRoute(func(c *gin.Context) {
		response.Fail(c, response.ErrRouteNotFound)
	})
	return r
}
