package database

import (
	"context"
	"errors"
	"fmt"

	"supplylink/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedResult counts the rows Seed actually inserted.
type SeedResult struct {
	Users      int
	Categories int
}

var seedUsers = []model.User{
	{Name: "Platform Admin", Email: "admin@supplylink.local", Role: model.RoleAdmin, CompanyName: "SupplyLink", CNPJ: "00.000.000/0001-00"},
	{Name: "Factory Buyer", Email: "factory@supplylink.local", Role: model.RoleFactory, CompanyName: "Acme Manufacturing", CNPJ: "11.111.111/0001-11"},
	{Name: "Supplier Sales", Email: "supplier@supplylink.local", Role: model.RoleSupplier, CompanyName: "Prime Materials", CNPJ: "22.222.222/0001-22"},
}

var seedCategories = []model.Category{
	{Name: "Metals", Description: "Steel, aluminium and other metal stock"},
	{Name: "Plastics", Description: "Resins, pellets and sheets"},
	{Name: "Chemicals", Description: "Industrial chemicals and solvents"},
	{Name: "Packaging", Description: "Boxes, pallets and wrapping"},
}

// Seed inserts the demo accounts and categories that are missing. Running it
// again is a no-op. Seeded accounts are ACTIVE.
func Seed(ctx context.Context, db *gorm.DB, password string) (SeedResult, error) {
	var res SeedResult
	if password == "" {
		return res, errors.New("seed password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return res, fmt.Errorf("hash seed password: %w", err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range seedUsers {
			user := u
			user.Password = string(hash)
			user.Status = model.UserStatusActive
			created, err := createIfMissing(tx, &user, "email = ?", user.Email)
			if err != nil {
				return fmt.Errorf("seed user %s: %w", user.Email, err)
			}
			if created {
				res.Users++
			}
		}
		for _, c := range seedCategories {
			category := c
			created, err := createIfMissing(tx, &category, "name = ?", category.Name)
			if err != nil {
				return fmt.Errorf("seed category %s: %w", category.Name, err)
			}
			if created {
				res.Categories++
			}
		}
		return nil
	})
	return res, err
}

func createIfMissing(tx *gorm.DB, row interface{}, query string, args ...interface{}) (bool, error) {
	var count int64
	if err := tx.Unscoped().Model(row).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	return true, tx.Create(row).Error
}
