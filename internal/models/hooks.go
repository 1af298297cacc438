package models

import (
	"errors"

	"gorm.io/gorm"
)

var ErrImmutableTransaction = errors.New("transactions are immutable")

func (r *Role) BeforeSave(tx *gorm.DB) error {
	r.Name = NormalizeRoleName(r.Name)
	if r.Permissions == nil {
		r.Permissions = Permissions{}
	}
	if r.ModelAccess == nil {
		r.ModelAccess = ModelAccess{}
	}
	return nil
}

func (t *Transaction) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableTransaction
}

func (t *Transaction) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableTransaction
}
