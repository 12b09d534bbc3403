package workflow

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/commissionedge/crm_backend/config"
	"github.com/commissionedge/crm_backend/models"
	"github.com/commissionedge/crm_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CandidateOptions controls one candidate query. VarianceTolerance is kept
// for parity with the recompute path even though scoring does not use it.
type CandidateOptions struct {
	Limit                   int
	UseHierarchicalMatching bool
	IncludeFutureSchedules  bool
	VarianceTolerance       decimal.Decimal
}

// MatchCandidate is one scored schedule, highest confidence first.
type MatchCandidate struct {
	RevenueScheduleId int              `json:"revenue_schedule_id"`
	MatchConfidence   decimal.Decimal  `json:"match_confidence"`
	MatchType         models.MatchType `json:"match_type"`
}

// Hierarchical scoring weights. Identifier hits dominate; name and amount
// similarity break ties between identifier-equal candidates.
var (
	weightAccountId   = decimal.NewFromFloat(0.35)
	weightCustomerId  = decimal.NewFromFloat(0.15)
	weightOrderId     = decimal.NewFromFloat(0.15)
	weightProductName = decimal.NewFromFloat(0.10)
	weightPartNumber  = decimal.NewFromFloat(0.05)
	weightAmount      = decimal.NewFromFloat(0.15)
	weightDate        = decimal.NewFromFloat(0.05)
)

// GetMatchCandidates scores every open schedule in the tenant against the
// line item and returns them ranked. Read-only. Thresholding is the caller's
// job; low-confidence candidates are returned, not filtered. No schedules in
// scope yields an empty list, not an error.
func GetMatchCandidates(ctx context.Context, lineId int, options CandidateOptions) ([]MatchCandidate, error) {
	db := config.GetDB().WithContext(ctx)

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	line, err := models.GetDepositLineItem(db, lineId, tenantId)
	if err != nil {
		return nil, err
	}

	query := db.Where("tenant_id = ? AND status != ?", tenantId, models.RevenueScheduleStatusReconciled)
	if !options.IncludeFutureSchedules {
		query = query.Where("schedule_date <= ?", endOfCurrentPeriod())
	}
	var schedules []models.RevenueSchedule
	if err := query.Find(&schedules).Error; err != nil {
		return nil, err
	}
	if len(schedules) == 0 {
		return []MatchCandidate{}, nil
	}

	opportunityIds := make([]int, 0, len(schedules))
	productIds := make([]int, 0, len(schedules))
	for _, s := range schedules {
		opportunityIds = append(opportunityIds, s.OpportunityId)
		productIds = append(productIds, s.ProductId)
	}
	opportunities, err := fetchOpportunitiesByIds(db, tenantId, utils.UniqueSlice(opportunityIds))
	if err != nil {
		return nil, err
	}
	products, err := fetchProductsByIds(db, tenantId, utils.UniqueSlice(productIds))
	if err != nil {
		return nil, err
	}

	candidates := make([]MatchCandidate, 0, len(schedules))
	for _, schedule := range schedules {
		var confidence decimal.Decimal
		matchType := models.MatchTypeLegacy
		if options.UseHierarchicalMatching {
			confidence = scoreHierarchical(line, schedule, opportunities[schedule.OpportunityId], products[schedule.ProductId])
			matchType = models.MatchTypeHierarchical
		} else {
			confidence = scoreLegacy(line, schedule)
		}
		if confidence.IsZero() {
			continue
		}
		candidates = append(candidates, MatchCandidate{
			RevenueScheduleId: schedule.ID,
			MatchConfidence:   confidence,
			MatchType:         matchType,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].MatchConfidence.GreaterThan(candidates[j].MatchConfidence)
	})
	if options.Limit > 0 && len(candidates) > options.Limit {
		candidates = candidates[:options.Limit]
	}
	return candidates, nil
}

// scoreHierarchical walks the identifier hierarchy: vendor account id, then
// customer id, then order id, then product identity, then amount and date
// proximity. Each hit adds its weight; the result is capped at 1.
func scoreHierarchical(line models.DepositLineItem, schedule models.RevenueSchedule,
	opportunity *models.Opportunity, product *models.Product) decimal.Decimal {

	confidence := decimal.Zero
	if opportunity != nil {
		if multiValueOverlap(line.AccountIdVendor, opportunity.AccountIdVendor) {
			confidence = confidence.Add(weightAccountId)
		}
		if multiValueOverlap(line.CustomerIdVendor, opportunity.CustomerIdVendor) {
			confidence = confidence.Add(weightCustomerId)
		}
		if multiValueOverlap(line.OrderIdVendor, opportunity.OrderIdVendor) {
			confidence = confidence.Add(weightOrderId)
		}
		if line.AccountNameVendor != "" && opportunity.AccountName != "" &&
			strings.EqualFold(strings.TrimSpace(line.AccountNameVendor), strings.TrimSpace(opportunity.AccountName)) {
			// Account name is a weaker stand-in for the account id.
			confidence = confidence.Add(weightAccountId.Div(decimal.NewFromInt(2)))
		}
	}
	if product != nil {
		if multiValueOverlap(line.ProductNameVendor, product.ProductNameVendor) ||
			(line.ProductNameVendor != "" && strings.EqualFold(strings.TrimSpace(line.ProductNameVendor), product.Name)) {
			confidence = confidence.Add(weightProductName)
		}
		if multiValueOverlap(line.PartNumberVendor, product.PartNumberVendor) {
			confidence = confidence.Add(weightPartNumber)
		}
	}

	confidence = confidence.Add(amountProximity(line, schedule))
	confidence = confidence.Add(dateProximity(line, schedule))

	one := decimal.NewFromInt(1)
	if confidence.GreaterThan(one) {
		return one
	}
	return confidence
}

// scoreLegacy is the pre-hierarchy scorer kept for tenants that opt out:
// amount and date proximity only, scaled up so its ceiling stays comparable.
func scoreLegacy(line models.DepositLineItem, schedule models.RevenueSchedule) decimal.Decimal {
	score := amountProximity(line, schedule).Add(dateProximity(line, schedule))
	confidence := score.Mul(decimal.NewFromInt(4))
	one := decimal.NewFromInt(1)
	if confidence.GreaterThan(one) {
		return one
	}
	return confidence
}

// amountProximity grants the full amount weight for an exact-within-epsilon
// usage match and scales down linearly with relative difference.
func amountProximity(line models.DepositLineItem, schedule models.RevenueSchedule) decimal.Decimal {
	expected := schedule.ExpectedUsage.Add(schedule.UsageAdjustment)
	if expected.IsZero() && line.Usage.IsZero() {
		return weightAmount
	}
	if expected.IsZero() {
		return decimal.Zero
	}
	difference := expected.Sub(line.Usage).Abs()
	if difference.LessThanOrEqual(models.ReconciliationEpsilon) {
		return weightAmount
	}
	ratio := difference.Div(expected.Abs())
	one := decimal.NewFromInt(1)
	if ratio.GreaterThanOrEqual(one) {
		return decimal.Zero
	}
	return weightAmount.Mul(one.Sub(ratio))
}

// dateProximity grants the date weight when the schedule falls within 45
// days of the deposit line's payment period.
func dateProximity(line models.DepositLineItem, schedule models.RevenueSchedule) decimal.Decimal {
	days := schedule.ScheduleDate.Sub(line.CreatedAt)
	if days < 0 {
		days = -days
	}
	if days <= 45*24*time.Hour {
		return weightDate
	}
	return decimal.Zero
}

// multiValueOverlap reports whether the two multi-value fields share at
// least one canonical value.
func multiValueOverlap(a, b string) bool {
	left := utils.ParseMultiValueInput(a)
	right := utils.ParseMultiValueInput(b)
	if len(left) == 0 || len(right) == 0 {
		return false
	}
	seen := make(map[string]bool, len(left))
	for _, v := range left {
		seen[strings.ToLower(v)] = true
	}
	for _, v := range right {
		if seen[strings.ToLower(v)] {
			return true
		}
	}
	return false
}

func endOfCurrentPeriod() time.Time {
	now := time.Now()
	firstOfNext := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
	return firstOfNext.Add(-time.Second)
}

// fetchOpportunitiesByIds loads tenant rows keyed by id for in-memory joins.
func fetchOpportunitiesByIds(db *gorm.DB, tenantId string, ids []int) (map[int]*models.Opportunity, error) {
	result := make(map[int]*models.Opportunity, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []models.Opportunity
	if err := db.Where("tenant_id = ? AND id IN ?", tenantId, ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		result[rows[i].ID] = &rows[i]
	}
	return result, nil
}

func fetchProductsByIds(db *gorm.DB, tenantId string, ids []int) (map[int]*models.Product, error) {
	result := make(map[int]*models.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []models.Product
	if err := db.Where("tenant_id = ? AND id IN ?", tenantId, ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		result[rows[i].ID] = &rows[i]
	}
	return result, nil
}
