package storage

import (
	"errors"
	"time"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrNoRawMaterials = errors.New("order has no raw materials")
)

// Order: агрегат заказа вместе с лидом, сметой, сырьём и внутренними сроками.
type Order struct {
	ID                int64              `json:"id"`
	OrderStatus       string             `json:"orderStatus"`
	Deadline          MainDeadline       `json:"deadline"`
	Lead              *Lead              `json:"lead"`
	Estimation        *Estimation        `json:"estimation"`
	RawMaterials      []RawMaterial      `json:"rawMaterials"`
	InternalDeadlines []InternalDeadline `json:"internalDeadlines"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// MainDeadline хранится как строки дат из формы ("2025-01-31"), пустая строка: не задано.
type MainDeadline struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (d MainDeadline) IsSet() bool {
	return d.Start != "" && d.End != ""
}

type Lead struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Source string `json:"source"`
}

type Estimation struct {
	ID           int64     `json:"id"`
	CustomerName string    `json:"customerName"`
	Products     []Product `json:"products"`
}

type Product struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"` // standard / customized
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Addons   []Addon `json:"addons"`
}

type Addon struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

type DeadlineUpdate struct {
	ID    int64  `json:"id"`
	Start string `json:"start"`
	End   string `json:"end"`
}
