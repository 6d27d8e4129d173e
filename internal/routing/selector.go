// Package routing picks the vendor failover order for a template version.
// The selector is pure: no I/O, no retries. Callers iterate the returned
// list front to back, consulting each mapping's timeout and retry fields as
// hints for their own policy.
package routing

import (
	"sort"

	"templatehub/internal/vendormapping/models"
)

// FailoverOrder re-sorts routable mappings by (priorityOrder ascending,
// vendorId ascending). The vendor id tiebreak carries no business meaning;
// it only makes the order deterministic when priorities collide. The input
// slice is not modified.
func FailoverOrder(mappings []models.VendorMapping) []models.VendorMapping {
	ordered := append([]models.VendorMapping{}, mappings...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].PriorityOrder != ordered[j].PriorityOrder {
			return ordered[i].PriorityOrder < ordered[j].PriorityOrder
		}
		return ordered[i].VendorID.String() < ordered[j].VendorID.String()
	})
	return ordered
}
