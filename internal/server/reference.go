package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crownlab/crownlab/internal/reference"
)

func (s *Server) ListTeeth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"teeth": reference.Teeth()})
}
