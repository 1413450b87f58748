package api

import (
	"net/http"

	"outreach-gateway/internal/places"

	"github.com/gin-gonic/gin"
)

type PlacesHandler struct {
	Client *places.Client
}

func NewPlacesHandler(client *places.Client) *PlacesHandler {
	return &PlacesHandler{Client: client}
}

func (h *PlacesHandler) Search(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	results, err := h.Client.TextSearch(query)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *PlacesHandler) Details(c *gin.Context) {
	details, err := h.Client.Details(c.Param("placeId"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, details)
}
