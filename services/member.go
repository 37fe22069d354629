package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"parkingreserve/models"
	"parkingreserve/utils"

	"gorm.io/gorm"
)

// MemberService 會員註冊與登入（身分驗證的替身）
type MemberService struct {
	runner *TxRunner
}

func NewMemberService(runner *TxRunner) *MemberService {
	return &MemberService{runner: runner}
}

// Register 註冊一般會員
func (s *MemberService) Register(ctx context.Context, name, email, password string) (*models.Member, error) {
	return s.create(ctx, name, email, password, models.RoleCustomer)
}

func (s *MemberService) create(ctx context.Context, name, email, password, role string) (*models.Member, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	db := s.runner.DB(ctx)

	var n int64
	if err := db.Model(&models.Member{}).Where("email = ?", email).Count(&n).Error; err != nil {
		log.Printf("Failed to check for duplicate email: %v", err)
		return nil, storeError("check duplicate email", err)
	}
	if n > 0 {
		return nil, alreadyExists("email %s is already in use", email)
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	member := models.Member{Name: strings.TrimSpace(name), Email: email, Password: hashed, Role: role}
	if err := db.Create(&member).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, alreadyExists("email %s is already in use", email)
		}
		log.Printf("Failed to register member: %v", err)
		return nil, storeError("register member", err)
	}
	log.Printf("Successfully registered member with ID %d (%s)", member.MemberID, member.Role)
	return &member, nil
}

// Login 驗證電子郵件與密碼
func (s *MemberService) Login(ctx context.Context, email, password string) (*models.Member, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var member models.Member
	err := s.runner.DB(ctx).Where("email = ?", email).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Member with email %s not found", email)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storeError("login member", err)
	}
	if !utils.CheckPasswordHash(password, member.Password) {
		log.Printf("Invalid password for email %s", email)
		return nil, ErrInvalidCredentials
	}
	log.Printf("Member with ID %d logged in successfully", member.MemberID)
	return &member, nil
}

func (s *MemberService) Get(ctx context.Context, id int) (*models.Member, error) {
	var member models.Member
	err := s.runner.DB(ctx).First(&member, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, storeError("get member", err)
	}
	return &member, nil
}

// EnsureAdmin 啟動時建立管理員帳號，已存在則略過
func (s *MemberService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	_, err := s.create(ctx, "admin", email, password, models.RoleAdmin)
	if errors.Is(err, &BookingError{Code: CodeAlreadyExists}) {
		return nil
	}
	return err
}
