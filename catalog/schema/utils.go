package schema

import (
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
	ErrOptionNotFound  = errors.New("column option not found")
	ErrDbAccessFailed  = errors.New("db access failed")
)

// IsDuplicateKey reports whether err is a unique constraint violation. TranslateError
// covers the drivers that map their codes, the message check covers the rest.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func GetUser(userId uint, db *gorm.DB) (User, error) {
	var user User

	result := db.First(&user, "id = ?", userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user", "user_id", userId, "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

func GetUserByUsername(username string, db *gorm.DB) (User, error) {
	var user User

	result := db.Limit(1).Find(&user, "username = ?", username)
	if result.Error != nil {
		slog.Error("sql error in get user by username", "username", username, "error", result.Error)
		return user, ErrDbAccessFailed
	}
	if result.RowsAffected == 0 {
		return user, ErrUserNotFound
	}

	return user, nil
}

func GetProduct(productId uint, db *gorm.DB) (DataProduct, error) {
	var product DataProduct

	result := db.First(&product, "id = ?", productId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return product, ErrProductNotFound
		}
		slog.Error("sql error in get product", "product_id", productId, "error", result.Error)
		return product, ErrDbAccessFailed
	}

	return product, nil
}

func GetColumnOption(optionId uint, db *gorm.DB) (ColumnOption, error) {
	var option ColumnOption

	result := db.First(&option, "id = ?", optionId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return option, ErrOptionNotFound
		}
		slog.Error("sql error in get column option", "option_id", optionId, "error", result.Error)
		return option, ErrDbAccessFailed
	}

	return option, nil
}
