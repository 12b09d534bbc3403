package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/commissionedge/crm_backend/config"
	"github.com/commissionedge/crm_backend/models"
	"github.com/commissionedge/crm_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// VendorSummaryRow aggregates one vendor's allocation position across every
// deposit line item.
type VendorSummaryRow struct {
	VendorName            string          `json:"vendor_name"`
	LineItemCount         int             `json:"line_item_count"`
	UsageAllocated        decimal.Decimal `json:"usage_allocated"`
	UsageUnallocated      decimal.Decimal `json:"usage_unallocated"`
	CommissionAllocated   decimal.Decimal `json:"commission_allocated"`
	CommissionUnallocated decimal.Decimal `json:"commission_unallocated"`
}

type VendorSummaryTotals struct {
	VendorCount           int             `json:"vendor_count"`
	UsageAllocated        decimal.Decimal `json:"usage_allocated"`
	UsageUnallocated      decimal.Decimal `json:"usage_unallocated"`
	CommissionAllocated   decimal.Decimal `json:"commission_allocated"`
	CommissionUnallocated decimal.Decimal `json:"commission_unallocated"`
}

type VendorSummaryReport struct {
	Rows   []VendorSummaryRow  `json:"rows"`
	Totals VendorSummaryTotals `json:"totals"`
}

// BuildVendorSummary aggregates line items into per-vendor rows sorted by
// outstanding commission, then outstanding usage. Pure aggregation over the
// provided slice so the report is testable without a database.
func BuildVendorSummary(lines []models.DepositLineItem) VendorSummaryReport {
	byVendor := map[string]*VendorSummaryRow{}
	for _, line := range lines {
		row, ok := byVendor[line.VendorName]
		if !ok {
			row = &VendorSummaryRow{VendorName: line.VendorName}
			byVendor[line.VendorName] = row
		}
		row.LineItemCount++
		row.UsageAllocated = row.UsageAllocated.Add(line.UsageAllocated)
		row.UsageUnallocated = row.UsageUnallocated.Add(line.UsageUnallocated)
		row.CommissionAllocated = row.CommissionAllocated.Add(line.CommissionAllocated)
		row.CommissionUnallocated = row.CommissionUnallocated.Add(line.CommissionUnallocated)
	}

	report := VendorSummaryReport{Rows: make([]VendorSummaryRow, 0, len(byVendor))}
	for _, row := range byVendor {
		report.Rows = append(report.Rows, *row)
		report.Totals.VendorCount++
		report.Totals.UsageAllocated = report.Totals.UsageAllocated.Add(row.UsageAllocated)
		report.Totals.UsageUnallocated = report.Totals.UsageUnallocated.Add(row.UsageUnallocated)
		report.Totals.CommissionAllocated = report.Totals.CommissionAllocated.Add(row.CommissionAllocated)
		report.Totals.CommissionUnallocated = report.Totals.CommissionUnallocated.Add(row.CommissionUnallocated)
	}

	sort.SliceStable(report.Rows, func(i, j int) bool {
		if !report.Rows[i].CommissionUnallocated.Equal(report.Rows[j].CommissionUnallocated) {
			return report.Rows[i].CommissionUnallocated.GreaterThan(report.Rows[j].CommissionUnallocated)
		}
		return report.Rows[i].UsageUnallocated.GreaterThan(report.Rows[j].UsageUnallocated)
	})
	return report
}

// GetVendorSummary loads the tenant's line items and aggregates them.
func GetVendorSummary(ctx context.Context) (VendorSummaryReport, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return VendorSummaryReport{}, errors.New("tenant id is required")
	}
	db := config.GetDB()
	var lines []models.DepositLineItem
	err := db.WithContext(ctx).Where("tenant_id = ?", tenantId).Find(&lines).Error
	if err != nil {
		return VendorSummaryReport{}, err
	}
	return BuildVendorSummary(lines), nil
}

// ExportVendorSummaryExcel writes the report as an XLSX workbook.
func ExportVendorSummaryExcel(report VendorSummaryReport, w io.Writer) error {
	f := excelize.NewFile()
	_, err := f.NewSheet("Sheet1")
	if err != nil {
		return err
	}

	f.SetCellValue("Sheet1", "A1", "Vendor")
	f.SetCellValue("Sheet1", "B1", "LineItems")
	f.SetCellValue("Sheet1", "C1", "UsageAllocated")
	f.SetCellValue("Sheet1", "D1", "UsageUnallocated")
	f.SetCellValue("Sheet1", "E1", "CommissionAllocated")
	f.SetCellValue("Sheet1", "F1", "CommissionUnallocated")

	for i, row := range report.Rows {
		rowNo := fmt.Sprint(i + 2)
		f.SetCellValue("Sheet1", "A"+rowNo, row.VendorName)
		f.SetCellValue("Sheet1", "B"+rowNo, row.LineItemCount)
		f.SetCellValue("Sheet1", "C"+rowNo, row.UsageAllocated.InexactFloat64())
		f.SetCellValue("Sheet1", "D"+rowNo, row.UsageUnallocated.InexactFloat64())
		f.SetCellValue("Sheet1", "E"+rowNo, row.CommissionAllocated.InexactFloat64())
		f.SetCellValue("Sheet1", "F"+rowNo, row.CommissionUnallocated.InexactFloat64())
	}

	totalsRow := fmt.Sprint(len(report.Rows) + 2)
	f.SetCellValue("Sheet1", "A"+totalsRow, "Totals")
	f.SetCellValue("Sheet1", "B"+totalsRow, report.Totals.VendorCount)
	f.SetCellValue("Sheet1", "C"+totalsRow, report.Totals.UsageAllocated.InexactFloat64())
	f.SetCellValue("Sheet1", "D"+totalsRow, report.Totals.UsageUnallocated.InexactFloat64())
	f.SetCellValue("Sheet1", "E"+totalsRow, report.Totals.CommissionAllocated.InexactFloat64())
	f.SetCellValue("Sheet1", "F"+totalsRow, report.Totals.CommissionUnallocated.InexactFloat64())

	return f.Write(w)
}
