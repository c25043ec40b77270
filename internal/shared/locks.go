package shared

import "fmt"

// ReportCacheScope builds the cache key prefix for a company's reports.
func ReportCacheScope(companyID int64) string {
	return fmt.Sprintf("reports:company:%d", companyID)
}
