package repository

import (
	"errors"

	"gorm.io/gorm"

	"kasturi-ledger/internal/model"
)

type RoleRepository interface {
	FindAll() ([]model.Role, error)
	FindByCode(code string) (*model.Role, error)
	SeedDefaults() error
	ReplacePrivileges(role *model.Role, privileges []model.Privilege) error
}

type roleRepo struct {
	db *gorm.DB
}

func NewRoleRepo(db *gorm.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) FindAll() ([]model.Role, error) {
	var roles []model.Role
	err := r.db.Preload("Privileges").Find(&roles).Error
	return roles, err
}

func (r *roleRepo) FindByCode(code string) (*model.Role, error) {
	var role model.Role
	err := r.db.Preload("Privileges").Where("code = ?", code).First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepo) SeedDefaults() error {
	for _, defaultRole := range model.DefaultRoles {
		var existingRole model.Role
		err := r.db.Where("code = ?", defaultRole.Code).First(&existingRole).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			role := defaultRole
			if err := r.db.Create(&role).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}

func (r *roleRepo) ReplacePrivileges(role *model.Role, privileges []model.Privilege) error {
	return r.db.Model(role).Association("Privileges").Replace(privileges)
}
