package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	facttabledomain "github.com/opendpho/epidash/internal/facttable/domain"
)

type provisionRequest struct {
	TableName   string `json:"tableName"`
	DiseaseCode string `json:"diseaseCode"`
}

func (s *Server) ProvisionFactTable(c *gin.Context) {
	var req provisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if code := strings.TrimSpace(req.DiseaseCode); code != "" {
		c.Set("disease_code", strings.ToUpper(code))
	}

	result, err := s.tableSvc.Provision(c.Request.Context(), facttabledomain.ProvisionRequest{
		TableName:   req.TableName,
		DiseaseCode: req.DiseaseCode,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (s *Server) ResolveDiseaseTable(c *gin.Context) {
	code := c.Param("code")
	c.Set("disease_code", strings.ToUpper(strings.TrimSpace(code)))

	ref := s.tableSvc.Resolve(c.Request.Context(), code)
	c.JSON(http.StatusOK, gin.H{
		"disease_code": strings.ToUpper(strings.TrimSpace(code)),
		"schema":       ref.Schema,
		"table":        ref.Table,
	})
}

func (s *Server) DiseaseSummary(c *gin.Context) {
	code := c.Param("code")
	c.Set("disease_code", strings.ToUpper(strings.TrimSpace(code)))

	years, err := s.tableSvc.Summary(c.Request.Context(), code)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"disease_code": strings.ToUpper(strings.TrimSpace(code)),
		"years":        years,
	})
}
