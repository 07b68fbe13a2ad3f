package domain

import "time"

type Merchant struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	RawName        string    `json:"raw_name" gorm:"type:text;not null"`
	NormalizedName string    `json:"normalized_name" gorm:"type:text;not null;uniqueIndex:ux_merchants_normalized_name"`
	Category       string    `json:"category" gorm:"type:text;not null;default:'Other'"`
	CategorySource string    `json:"category_source" gorm:"type:text;not null;default:'rule'"`
	MCCCode        *string   `json:"mcc_code,omitempty" gorm:"column:mcc_code;type:text"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Merchant) TableName() string { return "merchants" }
