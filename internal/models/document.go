package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	ID        string    `gorm:"type:text;primary_key" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserDocument is one uploaded CV, stored under its owner.
type UserDocument struct {
	ID        uuid.UUID                  `gorm:"type:uuid;primary_key" json:"id"`
	UserID    string                     `gorm:"type:text;not null;index:idx_user_documents_user_created,priority:1" json:"user_id"`
	FileName  string                     `gorm:"type:text" json:"file_name"`
	FileType  string                     `gorm:"type:text" json:"file_type"`
	FilePath  string                     `gorm:"type:text" json:"-"`
	CVData    datatypes.JSONType[CVData] `json:"cv_data"`
	CreatedAt time.Time                  `gorm:"index:idx_user_documents_user_created,priority:2" json:"created_at"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

func (UserDocument) TableName() string {
	return "user_documents"
}

func (d *UserDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// DocumentFile is an uploaded CV before it has been stored or parsed.
type DocumentFile struct {
	FileName string
	MIMEType string
	Content  []byte
}
