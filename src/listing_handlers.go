package main

import (
	"log"
	"net/http"
	"wanderlust/src/db"
	"wanderlust/src/models"
	"wanderlust/src/types"

	"github.com/gin-gonic/gin"
)

// Listing CRUD is owned elsewhere; the booking client only needs the reads.
func listingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/listings", func(ctx *gin.Context) {
			db := db.GetDb()
			var listings []models.Listing
			if err := db.
				Model(&models.Listing{}).
				Order("created_at desc").
				Limit(100).
				Find(&listings).
				Error; err != nil {
				log.Printf("Error retrieving Listings: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": listings, "count": len(listings)})
		}).
		GET("/listings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var listing models.Listing
			if err := db.
				Model(&models.Listing{}).
				Where(&models.Listing{ID: params.ID}).
				Preload("Owner").
				First(&listing).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": listing})
		})
	return g
}
