package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"kasturi-ledger/internal/model"
	"kasturi-ledger/internal/repository"
	"kasturi-ledger/pkg/jwt"
	"kasturi-ledger/pkg/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

type AuthService interface {
	Login(email, password string) (*LoginResponse, error)
	ResetPassword(email, newPassword string) error
	SeedAccessControl(adminEmail, adminPassword string) error
}

type LoginResponse struct {
	Token      string             `json:"token"`
	User       model.UserResponse `json:"user"`
	Privileges []string           `json:"privileges"`
}

type authService struct {
	userRepo      repository.UserRepository
	roleRepo      repository.RoleRepository
	privilegeRepo repository.PrivilegeRepository
	tokens        *jwt.Manager
}

func NewAuthService(userRepo repository.UserRepository, roleRepo repository.RoleRepository, privilegeRepo repository.PrivilegeRepository, tokens *jwt.Manager) AuthService {
	return &authService{
		userRepo:      userRepo,
		roleRepo:      roleRepo,
		privilegeRepo: privilegeRepo,
		tokens:        tokens,
	}
}

func (s *authService) Login(email, password string) (*LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	roleCode := ""
	if user.Role != nil {
		roleCode = user.Role.Code
	}

	// Single session: a new login invalidates older tokens.
	now := time.Now()
	user.TokenVersion = uuid.New().String()
	user.LastSeenAt = &now
	if err := s.userRepo.Update(user); err != nil {
		return nil, errors.New("failed to update session")
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.FullName, roleCode, user.GetPrivilegeCodes(), user.TokenVersion)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	logger.WithFields(logger.Fields{"user": user.ID, "role": roleCode}).Info("staff login")
	return &LoginResponse{
		Token:      token,
		User:       user.ToResponse(),
		Privileges: user.GetPrivilegeCodes(),
	}, nil
}

// ResetPassword sets a new password and logs out every session of the user.
func (s *authService) ResetPassword(email, newPassword string) error {
	if len(newPassword) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		return ErrUserNotFound
	}
	if err := user.SetPassword(newPassword); err != nil {
		return errors.New("failed to hash new password")
	}
	return s.userRepo.UpdatePassword(user.ID, user.Password)
}

// SeedAccessControl creates default privileges and roles, grants role
// privileges on first run, and creates the master admin if missing.
func (s *authService) SeedAccessControl(adminEmail, adminPassword string) error {
	if err := s.privilegeRepo.SeedDefaults(); err != nil {
		return err
	}
	if err := s.roleRepo.SeedDefaults(); err != nil {
		return err
	}

	allPrivileges, err := s.privilegeRepo.FindAll()
	if err != nil {
		return err
	}
	for _, defaultRole := range model.DefaultRoles {
		role, err := s.roleRepo.FindByCode(defaultRole.Code)
		if err != nil {
			return err
		}
		if len(role.Privileges) > 0 {
			continue
		}

		granted := []model.Privilege{}
		for _, p := range allPrivileges {
			if model.GrantedByDefault(role.Code, p.Code) {
				granted = append(granted, p)
			}
		}
		if err := s.roleRepo.ReplacePrivileges(role, granted); err != nil {
			return err
		}
		logger.Infof("%s role assigned %d privileges", role.Code, len(granted))
	}

	if _, err := s.userRepo.FindByEmail(adminEmail); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	masterRole, err := s.roleRepo.FindByCode(model.RoleMasterAdmin)
	if err != nil {
		return err
	}
	admin := &model.User{
		Email:      adminEmail,
		FullName:   "Master Administrator",
		RoleID:     &masterRole.ID,
		IsActive:   true,
		Privileges: masterRole.Privileges,
	}
	admin.CreatedBy = "system"
	admin.UpdatedBy = "system"
	if err := admin.SetPassword(adminPassword); err != nil {
		return err
	}
	if err := s.userRepo.Create(admin); err != nil {
		return err
	}
	logger.Infof("admin user created: %s (MASTER_ADMIN)", adminEmail)
	return nil
}
