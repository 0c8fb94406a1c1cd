package repository

import (
	"errors"

	"gorm.io/gorm"

	"kasturi-ledger/internal/model"
)

type PrivilegeRepository interface {
	FindAll() ([]model.Privilege, error)
	SeedDefaults() error
}

type privilegeRepo struct {
	db *gorm.DB
}

func NewPrivilegeRepo(db *gorm.DB) PrivilegeRepository {
	return &privilegeRepo{db}
}

func (r *privilegeRepo) FindAll() ([]model.Privilege, error) {
	var privileges []model.Privilege
	if err := r.db.Order("id ASC").Find(&privileges).Error; err != nil {
		return nil, err
	}
	return privileges, nil
}

// SeedDefaults creates default privileges if they don't exist
func (r *privilegeRepo) SeedDefaults() error {
	for _, p := range model.DefaultPrivileges {
		var existing model.Privilege
		err := r.db.Where("code = ?", p.Code).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			priv := p
			if err := r.db.Create(&priv).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}
