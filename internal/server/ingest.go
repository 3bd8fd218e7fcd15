package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	ingestdomain "github.com/opendpho/epidash/internal/ingest/domain"
)

type importResponse struct {
	DiseaseCode string                  `json:"diseaseCode"`
	TableName   string                  `json:"tableName"`
	Inserted    int                     `json:"inserted"`
	Skipped     int                     `json:"skipped"`
	TotalRows   int                     `json:"totalRows"`
	Warnings    []ingestdomain.RowError `json:"warnings"`
}

func (s *Server) ImportCasesCSV(c *gin.Context) {
	diseaseCode := strings.TrimSpace(c.PostForm("diseaseCode"))
	if diseaseCode == "" {
		diseaseCode = strings.TrimSpace(c.Param("code"))
	}
	if diseaseCode != "" {
		c.Set("disease_code", strings.ToUpper(diseaseCode))
	}
	tableName := strings.TrimSpace(c.PostForm("tableName"))

	skipBadRows := true
	if raw := strings.TrimSpace(c.PostForm("skipBadRows")); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			skipBadRows = parsed
		}
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, ingestdomain.ErrEmptyFile)
		return
	}

	maxBytes := s.holder.Current().MaxUploadBytes
	if fileHeader.Size > maxBytes {
		AbortWithError(c, ingestdomain.ErrPayloadTooLarge)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.ingestSvc.Import(c.Request.Context(), ingestdomain.Request{
		DiseaseCode: diseaseCode,
		TableName:   tableName,
		SkipBadRows: skipBadRows,
		Data:        data,
	})
	if err != nil {
		if result != nil && (errors.Is(err, ingestdomain.ErrValidationRejected) || errors.Is(err, ingestdomain.ErrNoValidRows)) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, errorResponse{Error: errorPayload{
				Type:    "validation_failed",
				Message: err.Error(),
				Errors:  result.Errors,
			}})
			return
		}
		AbortWithError(c, err)
		return
	}

	warnings := result.Errors
	if warnings == nil {
		warnings = []ingestdomain.RowError{}
	}
	c.JSON(http.StatusCreated, importResponse{
		DiseaseCode: result.DiseaseCode,
		TableName:   result.TableName,
		Inserted:    result.Inserted,
		Skipped:     result.Skipped,
		TotalRows:   result.TotalRows,
		Warnings:    warnings,
	})
}
