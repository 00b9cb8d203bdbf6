package constants

// DefaultRawMaterials засевает справочник сырья, если таблица пустая.
var DefaultRawMaterials = []string{
	"Steel",
	"Stainless steel sheet",
	"Aluminium profile",
	"Copper wire",
	"MDF board",
	"Plywood",
	"Tempered glass",
	"Powder coating",
	"Hinge set",
	"Fastener kit",
	"Rubber seal",
	"Packaging carton",
}
