package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/jrsteele09/go-product-gateway/backends"
)

type productPayload struct {
	ID    *int    `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

type idPayload struct {
	ID *int `json:"id"`
}

func decodeProduct(data json.RawMessage) (backends.Product, error) {
	var p productPayload
	if len(data) == 0 {
		return backends.Product{}, fmt.Errorf("data must be a product object")
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return backends.Product{}, fmt.Errorf("data must be a product object: %w", err)
	}
	if p.ID == nil {
		return backends.Product{}, fmt.Errorf("data.id is required")
	}
	return backends.Product{ID: *p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock}, nil
}

func decodeID(data json.RawMessage) (int, error) {
	var p idPayload
	if len(data) == 0 {
		return 0, fmt.Errorf("data.id is required")
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return 0, fmt.Errorf("data must be an object with an integer id: %w", err)
	}
	if p.ID == nil {
		return 0, fmt.Errorf("data.id is required")
	}
	return *p.ID, nil
}
