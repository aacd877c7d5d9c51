// seed 创建初始管理员账号，已存在时不做任何修改
package main

import (
	"context"
	"fmt"
	"instavision/config"
	"instavision/internal/global/database"
	"instavision/internal/global/logger"
	"instavision/internal/model"
	"instavision/internal/store"
	"instavision/tools"
	"os"

	"github.com/pkg/errors"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed admin failed: %+v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config.Init()
	cfg := config.Get()
	log := logger.New("Seed")

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	ctx := context.Background()
	users := store.NewUsers(db)
	email := getenv("ADMIN_EMAIL", "admin@instavision.com")

	if _, err := users.FindByEmail(ctx, email); err == nil {
		log.Info("管理员已存在", "email", email)
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	password := os.Getenv("ADMIN_PASSWORD")
	generated := password == ""
	if generated {
		if password, err = tools.GeneratePassword(cfg.Security.PasswordLength); err != nil {
			return err
		}
	}
	hash, err := tools.PasswordEncrypt(password, cfg.Security.BcryptCost)
	if err != nil {
		return err
	}

	admin := &model.User{
		FullName:          getenv("ADMIN_NAME", "Admin User"),
		Email:             email,
		Password:          hash,
		CollegeUniversity: "InstaVision",
		Course:            "Administration",
		BatchNo:           "N/A",
		RegNo:             getenv("ADMIN_REG_NO", "ADMIN-001"),
		Role:              model.RoleAdmin,
		Status:            model.StatusActive,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}

	log.Info("管理员创建成功", "id", admin.ID, "email", admin.Email)
	if generated {
		// 只在终端输出一次
		fmt.Printf("Admin password: %s\nPlease change it after first login.\n", password)
	}
	return nil
}
