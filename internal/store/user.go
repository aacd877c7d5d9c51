package store

import (
	"context"
	"instavision/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
	ErrDuplicateRegNo = errors.New("registration number already exists")
)

// ListFilter 为空的字段不参与过滤
type ListFilter struct {
	Role   model.Role
	Status model.Status
}

// Users 用户凭据与资料的存取
type Users interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// EmailTaken excludeID 为 0 时检查全部用户
	EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error)
	RegNoTaken(ctx context.Context, regNo string, excludeID uint) (bool, error)
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, id uint, fields map[string]any) (*model.User, error)
	UpdateStatus(ctx context.Context, id uint, status model.Status) (*model.User, error)
	UpdatePassword(ctx context.Context, id uint, hash string) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter ListFilter) ([]model.User, error)
}

type GormUsers struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *GormUsers {
	return &GormUsers{db: db}
}

func (s *GormUsers) FindByID(ctx context.Context, id uint) (*model.User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *GormUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.first(ctx, "email = ?", email)
}

func (s *GormUsers) first(ctx context.Context, query string, arg any) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where(query, arg).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, errors.WithStack(err)
	}
	return &user, nil
}

func (s *GormUsers) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	return s.taken(ctx, "email = ?", email, excludeID)
}

func (s *GormUsers) RegNoTaken(ctx context.Context, regNo string, excludeID uint) (bool, error) {
	return s.taken(ctx, "reg_no = ?", regNo, excludeID)
}

func (s *GormUsers) taken(ctx context.Context, query string, arg any, excludeID uint) (bool, error) {
	var count int64
	tx := s.db.WithContext(ctx).Model(&model.User{}).Where(query, arg)
	if excludeID != 0 {
		tx = tx.Where("id <> ?", excludeID)
	}
	if err := tx.Count(&count).Error; err != nil {
		return false, errors.WithStack(err)
	}
	return count > 0, nil
}

// Create 唯一索引冲突时返回 ErrDuplicateEmail 或 ErrDuplicateRegNo
func (s *GormUsers) Create(ctx context.Context, user *model.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return s.classify(ctx, err, user.Email, user.RegNo, 0)
	}
	return nil
}

// Update 只更新 fields 中给出的列，键为列名
func (s *GormUsers) Update(ctx context.Context, id uint, fields map[string]any) (*model.User, error) {
	if _, err := s.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		err := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
		if err != nil {
			email, _ := fields["email"].(string)
			regNo, _ := fields["reg_no"].(string)
			return nil, s.classify(ctx, err, email, regNo, id)
		}
	}
	return s.FindByID(ctx, id)
}

func (s *GormUsers) UpdateStatus(ctx context.Context, id uint, status model.Status) (*model.User, error) {
	return s.Update(ctx, id, map[string]any{"status": status})
}

func (s *GormUsers) UpdatePassword(ctx context.Context, id uint, hash string) error {
	_, err := s.Update(ctx, id, map[string]any{"password": hash})
	return err
}

// Delete 硬删除
func (s *GormUsers) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&model.User{}, id)
	if result.Error != nil {
		return errors.WithStack(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List 按创建时间倒序
func (s *GormUsers) List(ctx context.Context, filter ListFilter) ([]model.User, error) {
	tx := s.db.WithContext(ctx).Model(&model.User{})
	if filter.Role != "" {
		tx = tx.Where("role = ?", filter.Role)
	}
	if filter.Status != "" {
		tx = tx.Where("status = ?", filter.Status)
	}
	users := make([]model.User, 0)
	if err := tx.Order("created_at DESC").Order("id DESC").Find(&users).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	return users, nil
}

// classify 写入失败后重新检查唯一字段，判断是哪一列冲突
func (s *GormUsers) classify(ctx context.Context, err error, email, regNo string, excludeID uint) error {
	if email != "" {
		if taken, checkErr := s.EmailTaken(ctx, email, excludeID); checkErr == nil && taken {
			return ErrDuplicateEmail
		}
	}
	if regNo != "" {
		if taken, checkErr := s.RegNoTaken(ctx, regNo, excludeID); checkErr == nil && taken {
			return ErrDuplicateRegNo
		}
	}
	return errors.WithStack(err)
}
