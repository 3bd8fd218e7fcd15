package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	diseasedomain "github.com/opendpho/epidash/internal/disease/domain"
)

func (s *Server) ListDiseases(c *gin.Context) {
	diseases, err := s.diseaseSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"diseases": diseases})
}

func (s *Server) CreateDisease(c *gin.Context) {
	var req diseasedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	disease, err := s.diseaseSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, disease)
}
