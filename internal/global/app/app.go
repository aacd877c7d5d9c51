package app

import (
	"instavision/internal/global/event"
	"instavision/internal/global/jwt"
	"instavision/internal/global/mail"
	"instavision/internal/global/storage"
	"instavision/internal/store"
	"time"

	"github.com/ulule/limiter/v3"
)

// Deps 进程级共享资源，在 server.Init 中构造后注入各模块
type Deps struct {
	Users   store.Users
	Tokens  *jwt.Issuer
	Revoker jwt.Revoker // 为 nil 时令牌不可吊销
	Limiter *limiter.Limiter
	Mailer  mail.Dispatcher
	Events  event.Publisher
	Storage *storage.Store // 为 nil 时头像上传不可用

	BcryptCost     int
	PasswordLength int
	FrontendURL    string
	StartedAt      time.Time
}
