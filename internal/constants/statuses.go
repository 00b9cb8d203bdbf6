package constants

// Статусы заказа (orderStatus), строковые коды как их отдаёт бэкенд.
const (
	OrderStatusNew                   = "0"
	OrderStatusWaitingForRawMaterial = "1"
	OrderStatusWorkOngoing           = "2"
	OrderStatusCompleted             = "3"
	OrderStatusDelayed               = "4"
)

var OrderStatuses = map[string]string{
	OrderStatusNew:                   "new",
	OrderStatusWaitingForRawMaterial: "waiting_for_raw_material",
	OrderStatusWorkOngoing:           "work_ongoing",
	OrderStatusCompleted:             "completed",
	OrderStatusDelayed:               "delayed",
}

// Статусы внутренних сроков.
const (
	DeadlinePending   = 1
	DeadlineOngoing   = 2
	DeadlineCompleted = 3
	DeadlineDelayed   = 4
)

func IsDeadlineStatus(s int) bool {
	return s >= DeadlinePending && s <= DeadlineDelayed
}

// Роли панели; каждая роль работает под своим базовым путём /api/{role}.
const (
	RoleAdmin     = "admin"
	RoleSales     = "sales"
	RoleWarehouse = "warehouse"
	RoleOperation = "operation"
)

var Roles = []string{RoleAdmin, RoleSales, RoleWarehouse, RoleOperation}
