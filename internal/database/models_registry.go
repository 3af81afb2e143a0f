package database

import "agora/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.UserFriend{},
		&models.UserFollow{},
		&models.UserBlock{},
		&models.Favorite{},
		&models.Vote{},
		&models.Report{},
	}
}
