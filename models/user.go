package models

import (
	"context"
	"errors"
	"time"

	"github.com/commissionedge/crm_backend/config"
	"github.com/commissionedge/crm_backend/utils"
	"github.com/shopspring/decimal"
)

type User struct {
	ID       int    `gorm:"primary_key" json:"id"`
	TenantId string `gorm:"index;not null;size:36" json:"tenant_id"`
	Username string `gorm:"size:100;not null;uniqueIndex" json:"username"`
	Name     string `gorm:"size:100" json:"name"`
	Password string `gorm:"size:255;not null" json:"-"`
	Role     string `gorm:"size:20;default:'Operator'" json:"role"`

	// Matching confidence thresholds, fraction 0-1.
	SuggestedMatchesMinConfidence decimal.Decimal `gorm:"type:decimal(5,4);default:0.3" json:"suggested_matches_min_confidence"`
	AutoMatchMinConfidence        decimal.Decimal `gorm:"type:decimal(5,4);default:0.9" json:"auto_match_min_confidence"`

	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetUser(ctx context.Context, tenantId string, id int) (*User, error) {
	return utils.FetchModel[User](ctx, tenantId, id)
}

// Login verifies credentials and issues a JWT.
func Login(ctx context.Context, username string, password string) (string, *User, error) {
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).Where("username = ? AND is_active = 1", username).First(&user).Error; err != nil {
		return "", nil, errors.New("invalid username or password")
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return "", nil, errors.New("invalid username or password")
	}
	token, err := utils.JwtGenerate(user.ID, user.TenantId, user.Name, user.Role)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

// MatchThresholds are the per-user confidence cutoffs used by the candidate
// and auto-match flows. Thresholding belongs to the caller, not the engine.
type MatchThresholds struct {
	SuggestedMatchesMinConfidence decimal.Decimal `json:"suggested_matches_min_confidence"`
	AutoMatchMinConfidence        decimal.Decimal `json:"auto_match_min_confidence"`
}

func GetUserMatchThresholds(ctx context.Context, tenantId string, userId int) (MatchThresholds, error) {
	thresholds := MatchThresholds{
		SuggestedMatchesMinConfidence: decimal.NewFromFloat(0.3),
		AutoMatchMinConfidence:        decimal.NewFromFloat(0.9),
	}
	if userId <= 0 {
		return thresholds, nil
	}
	user, err := GetUser(ctx, tenantId, userId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return thresholds, nil
		}
		return thresholds, err
	}
	thresholds.SuggestedMatchesMinConfidence = utils.ClampFraction(user.SuggestedMatchesMinConfidence)
	thresholds.AutoMatchMinConfidence = utils.ClampFraction(user.AutoMatchMinConfidence)
	return thresholds, nil
}
