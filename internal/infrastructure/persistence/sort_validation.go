package persistence

import (
	"strings"

	"github.com/transportops/backoffice/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder normalizes the sort order to ASC or DESC, defaulting to DESC
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when it is whitelisted, defaultField otherwise
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// Whitelisted sort columns per listing
var (
	ClientSortFields = map[string]bool{
		"created_at": true, "updated_at": true, "name": true, "city": true, "state": true, "status": true,
	}
	DriverSortFields = map[string]bool{
		"created_at": true, "updated_at": true, "name": true, "license_number": true, "license_expiry": true, "status": true,
	}
	VehicleSortFields = map[string]bool{
		"created_at": true, "updated_at": true, "registration_number": true, "vehicle_type": true, "capacity": true, "status": true,
	}
	TripSortFields = map[string]bool{
		"created_at": true, "updated_at": true, "date": true, "amount": true, "status": true,
	}
	InvoiceSortFields = map[string]bool{
		"created_at": true, "date": true, "due_date": true, "invoice_number": true, "total_amount": true, "pending_amount": true,
	}
	BillSortFields = map[string]bool{
		"created_at": true, "date": true, "bill_number": true, "total_amount": true, "pending_amount": true,
	}
)

// paginate applies ordering, offset and limit. Column names are qualified
// with table so joined queries stay unambiguous.
func paginate(q *gorm.DB, table string, f shared.Filter, allowed map[string]bool, defaultField string) *gorm.DB {
	f = f.Normalize()
	field := ValidateSortField(f.OrderBy, allowed, defaultField)
	return q.Order(table + "." + field + " " + ValidateSortOrder(f.OrderDir)).
		Offset(f.Offset()).
		Limit(f.PageSize)
}

// likePattern builds a case-insensitive LIKE pattern, escaping wildcards
func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return "%" + strings.ToLower(r.Replace(strings.TrimSpace(search))) + "%"
}

// prefixPattern matches document numbers issued under prefix, e.g. "IN-%"
func prefixPattern(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return r.Replace(prefix) + "-%"
}
