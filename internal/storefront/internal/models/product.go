package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProductStatusActive = "active"
	ProductStatusDraft  = "draft"
)

type Product struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Features       string          `json:"features"`
	Price          decimal.Decimal `json:"price"`
	Stock          int             `json:"stock"`
	TrackInventory bool            `json:"track_inventory"`
	Status         string          `json:"status"`
	Images         []string        `json:"images"`
	CategoryIDs    []int64         `json:"category_ids"`
	TagIDs         []int64         `json:"tag_ids"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// PrimaryImage - первая непустая картинка, либо пустая строка.
func (p *Product) PrimaryImage() string {
	for _, img := range p.Images {
		if strings.TrimSpace(img) != "" {
			return img
		}
	}
	return ""
}

func ValidStatus(status string) bool {
	return status == ProductStatusActive || status == ProductStatusDraft
}
