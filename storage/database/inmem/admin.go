package inmemdb

import (
	"context"

	"github.com/darasahq/darasa/core/admin"
)

type adminRepository struct {
	db *DB
}

var _ admin.Repository = (*adminRepository)(nil)

func NewAdminRepository(db *DB) *adminRepository {
	return &adminRepository{db: db}
}

func (repo *adminRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...admin.Admin) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, adm := range repo.db.admins {
		if adm.Email == email && !adminExcluded(*adm, excluded) {
			return admin.ErrEmailExists
		}
	}
	return nil
}

func (repo *adminRepository) CreateAdmin(ctx context.Context, adm admin.Admin) (admin.Admin, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, other := range repo.db.admins {
		if other.Email == adm.Email {
			return admin.Admin{}, admin.ErrEmailExists
		}
	}
	adm.ID = repo.db.nextID("admin")
	repo.db.admins[adm.ID] = &adm
	return adm, nil
}

func (repo *adminRepository) GetAdminByID(ctx context.Context, id int64) (admin.Admin, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if adm, ok := repo.db.admins[id]; ok {
		return *adm, nil
	}
	return admin.Admin{}, admin.ErrNotFound
}

func (repo *adminRepository) GetAdminByEmail(ctx context.Context, email string) (admin.Admin, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, adm := range repo.db.admins {
		if adm.Email == email {
			return *adm, nil
		}
	}
	return admin.Admin{}, admin.ErrNotFound
}

func (repo *adminRepository) UpdateAdmin(ctx context.Context, adm admin.Admin) (admin.Admin, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.admins[adm.ID]; !ok {
		return admin.Admin{}, admin.ErrNotFound
	}
	repo.db.admins[adm.ID] = &adm
	return adm, nil
}

func adminExcluded(adm admin.Admin, excluded []admin.Admin) bool {
	for _, ex := range excluded {
		if ex.ID == adm.ID {
			return true
		}
	}
	return false
}
