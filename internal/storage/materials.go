package storage

import "time"

// RawMaterial: требование сырья по заказу. Quantity остаётся строкой, как в форме.
type RawMaterial struct {
	ID           string    `json:"id"`
	MaterialName string    `json:"materialName"`
	Quantity     string    `json:"quantity"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CatalogMaterial: запись справочника сырья (getRawMaterials).
type CatalogMaterial struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type RawMaterialItem struct {
	RawMaterial string `json:"rawMaterial"`
	Qty         string `json:"qty"`
}

type RawMaterialsPayload struct {
	OrderID int64             `json:"orderId"`
	Items   []RawMaterialItem `json:"items"`
}
