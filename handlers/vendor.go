package handlers

import (
	"net/http"

	"github.com/commissionedge/crm_backend/models"
	"github.com/gin-gonic/gin"
)

func ListVendorsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant, ok := tenantId(c)
		if !ok {
			return
		}
		vendors, err := models.ListVendors(tenant, c.Query("name"))
		if err != nil {
			respondError(c, "vendor.go", "ListVendorsHandler", err)
			return
		}
		c.JSON(http.StatusOK, vendors)
	}
}

type saveVendorRequest struct {
	Name         string `json:"name" binding:"required"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	IsActive     *bool  `json:"is_active"`
}

// SaveVendorHandler handles both create (POST /vendors) and update
// (PUT /vendors/:id). The contact phone is rejected with 400 when it does
// not parse as a valid number.
func SaveVendorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant, ok := tenantId(c)
		if !ok {
			return
		}
		var req saveVendorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, "vendor.go", "SaveVendorHandler", err)
			return
		}
		vendor := models.Vendor{
			TenantId:     tenant,
			Name:         req.Name,
			ContactName:  req.ContactName,
			ContactEmail: req.ContactEmail,
			ContactPhone: req.ContactPhone,
			IsActive:     req.IsActive,
		}
		if c.Param("id") != "" {
			id, ok := pathId(c)
			if !ok {
				return
			}
			vendor.ID = id
		}
		if err := models.SaveVendor(c.Request.Context(), &vendor); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, vendor)
	}
}
