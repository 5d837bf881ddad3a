package requests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// ProductRef accepts a product id sent either as a JSON number or a string
// and keeps the original text.
type ProductRef string

func (r *ProductRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = ProductRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("productId must be a number or string: %w", err)
	}
	*r = ProductRef(n.String())
	return nil
}

// Int64 parses the reference as a positive catalog id.
func (r ProductRef) Int64() (int64, error) {
	id, err := strconv.ParseInt(string(r), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("product id %q is not an integer", string(r))
	}
	if id <= 0 {
		return 0, fmt.Errorf("product id %d is not positive", id)
	}
	return id, nil
}

type CheckoutRequest struct {
	ProductID    ProductRef      `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductPrice decimal.Decimal `json:"productPrice"`
	ProductImage string          `json:"productImage,omitempty"`
	Quantity     int             `json:"quantity,omitempty"`
}

type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// ProductRequest is the admin create/update payload. Stock is applied on
// create only; later changes go through StockRequest.
type ProductRequest struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Features       string          `json:"features"`
	Price          decimal.Decimal `json:"price"`
	Stock          int             `json:"stock"`
	TrackInventory *bool           `json:"track_inventory"`
	Status         string          `json:"status"`
	Images         []string        `json:"images"`
	CategoryIDs    []int64         `json:"category_ids"`
	TagIDs         []int64         `json:"tag_ids"`
}

type StockRequest struct {
	Stock int `json:"stock"`
}
