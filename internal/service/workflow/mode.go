package workflow

import (
	"crm-orders/internal/constants"
	"crm-orders/internal/storage"
)

// Mode: как показывать название сырья: выбором из справочника или ручным вводом.
type Mode string

const (
	ModeSelect Mode = "select"
	ModeManual Mode = "manual"
)

// DeriveMode считается при каждом чтении, поэтому не может разойтись с name.
func DeriveMode(name string, catalog []storage.CatalogMaterial) Mode {
	if name == "" {
		return ModeManual
	}

	for _, c := range catalog {
		if c.Name == name {
			return ModeSelect
		}
	}

	return ModeManual
}

// CanSendToWarehouse: кнопка передачи на склад активна только при сохранённом сырье
// и если заказ ещё не передан.
func CanSendToWarehouse(persistedRawMaterials int, orderStatus string) bool {
	return persistedRawMaterials > 0 && orderStatus != constants.OrderStatusWaitingForRawMaterial
}
