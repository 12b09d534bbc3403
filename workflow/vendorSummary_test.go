package workflow

import (
	"bytes"
	"testing"

	"github.com/commissionedge/crm_backend/models"
	"github.com/shopspring/decimal"
)

func summaryLine(vendor string, usageAlloc, usageUnalloc, commAlloc, commUnalloc string) models.DepositLineItem {
	return models.DepositLineItem{
		VendorName:            vendor,
		UsageAllocated:        d(usageAlloc),
		UsageUnallocated:      d(usageUnalloc),
		CommissionAllocated:   d(commAlloc),
		CommissionUnallocated: d(commUnalloc),
	}
}

func TestBuildVendorSummary_AggregatesAndSorts(t *testing.T) {
	lines := []models.DepositLineItem{
		summaryLine("Acme Telecom", "100", "25", "10", "2"),
		summaryLine("Acme Telecom", "0", "200", "0", "20"),
		summaryLine("Birch Networks", "50", "100", "5", "10"),
	}

	report := BuildVendorSummary(lines)

	if report.Totals.VendorCount != 2 {
		t.Fatalf("expected 2 vendors, got %d", report.Totals.VendorCount)
	}
	if !report.Totals.UsageAllocated.Equal(d("150")) {
		t.Fatalf("expected total usage allocated 150, got %s", report.Totals.UsageAllocated)
	}
	if !report.Totals.UsageUnallocated.Equal(d("325")) {
		t.Fatalf("expected total usage unallocated 325, got %s", report.Totals.UsageUnallocated)
	}
	if !report.Totals.CommissionAllocated.Equal(d("15")) {
		t.Fatalf("expected total commission allocated 15, got %s", report.Totals.CommissionAllocated)
	}
	if !report.Totals.CommissionUnallocated.Equal(d("32")) {
		t.Fatalf("expected total commission unallocated 32, got %s", report.Totals.CommissionUnallocated)
	}

	// Acme carries the larger outstanding commission (22 vs 10) and sorts first.
	if len(report.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(report.Rows))
	}
	if report.Rows[0].VendorName != "Acme Telecom" {
		t.Fatalf("expected Acme Telecom first, got %s", report.Rows[0].VendorName)
	}
	if report.Rows[0].LineItemCount != 2 {
		t.Fatalf("expected 2 line items for Acme Telecom, got %d", report.Rows[0].LineItemCount)
	}
	if !report.Rows[0].CommissionUnallocated.Equal(d("22")) {
		t.Fatalf("expected Acme commission unallocated 22, got %s", report.Rows[0].CommissionUnallocated)
	}
}

func TestBuildVendorSummary_TiesBreakOnUsageUnallocated(t *testing.T) {
	lines := []models.DepositLineItem{
		summaryLine("Vendor A", "0", "50", "0", "10"),
		summaryLine("Vendor B", "0", "90", "0", "10"),
	}
	report := BuildVendorSummary(lines)
	if report.Rows[0].VendorName != "Vendor B" {
		t.Fatalf("expected Vendor B first on the usage tiebreak, got %s", report.Rows[0].VendorName)
	}
}

func TestBuildVendorSummary_EmptyInput(t *testing.T) {
	report := BuildVendorSummary(nil)
	if len(report.Rows) != 0 || report.Totals.VendorCount != 0 {
		t.Fatalf("expected an empty report, got %+v", report)
	}
	if !report.Totals.UsageAllocated.Equal(decimal.Zero) {
		t.Fatalf("expected zero totals, got %s", report.Totals.UsageAllocated)
	}
}

func TestExportVendorSummaryExcel_WritesWorkbook(t *testing.T) {
	report := BuildVendorSummary([]models.DepositLineItem{
		summaryLine("Acme Telecom", "100", "25", "10", "2"),
	})

	var buf bytes.Buffer
	if err := ExportVendorSummaryExcel(report, &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected a non-empty workbook")
	}
	// XLSX files are zip archives.
	if !bytes.HasPrefix(buf.Bytes(), []byte("PK")) {
		t.Fatal("expected zip container magic at the start of the workbook")
	}
}
