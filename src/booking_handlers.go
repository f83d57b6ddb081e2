package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
	"wanderlust/src/common"
	"wanderlust/src/config"
	"wanderlust/src/db"
	"wanderlust/src/lib"
	"wanderlust/src/models"
	"wanderlust/src/types"
	"wanderlust/src/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func bookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/listings/:id/bookings/create-order", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			var body types.CreateOrderRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			userId := ctx.GetUint("id")

			checkIn, err := time.Parse(config.DATE_PARSE_FORMAT, body.CheckIn)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": types.ErrInvalidDateRange.Error()})
				return
			}
			checkOut, err := time.Parse(config.DATE_PARSE_FORMAT, body.CheckOut)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": types.ErrInvalidDateRange.Error()})
				return
			}

			db := db.GetDb()
			var listing models.Listing
			if err := db.
				Model(&models.Listing{}).
				Where(&models.Listing{ID: params.ID}).
				First(&listing).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Listing not found"})
				return
			}

			if err := utils.CheckEligibility(&listing, userId, checkIn, checkOut); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			available, err := utils.DatesAvailable(listing.ID, checkIn, checkOut)
			if err != nil {
				log.Printf("Error checking availability for listing %d: %s\n", listing.ID, err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong"})
				return
			}
			if !available {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": types.ErrDatesUnavailable.Error()})
				return
			}

			order, err := lib.CreateOrder(body.Amount, config.BOOKING_CURRENCY)
			if err != nil {
				// processor internals stay in the server log
				log.Printf("Error creating order: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong"})
				return
			}
			orderId, ok := order["id"].(string)
			if !ok || orderId == "" {
				log.Printf("Processor returned order without id: %v\n", order)
				ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong"})
				return
			}

			booking, err := utils.CreatePendingBooking(&listing, userId, orderId, checkIn, checkOut, body.NumberOfGuests, body.Amount, body.Message)
			if err != nil {
				if errors.Is(err, types.ErrDatesUnavailable) {
					ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
					return
				}
				log.Printf("Error creating pending booking for order %s: %s\n", orderId, err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong"})
				return
			}

			lib.CacheOrderIntent(ctx.Request.Context(), orderId, lib.OrderIntent{
				BookingID: booking.ID.String(),
				Amount:    body.Amount,
			})

			ctx.JSON(http.StatusOK, gin.H{
				"success":   true,
				"order":     order,
				"bookingId": booking.ID,
			})
		}).
		POST("/listings/:id/bookings/verify-payment", func(ctx *gin.Context) {
			var body types.VerifyPaymentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}

			secret := os.Getenv("RAZORPAY_KEY_SECRET")
			if !utils.VerifyPaymentSignature(body.RazorpayOrderID, body.RazorpayPaymentID, body.RazorpaySignature, secret) {
				log.Printf("Rejected callback for order %s: %s\n", body.RazorpayOrderID, types.ErrInvalidSignature.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid Signature"})
				return
			}

			intent, intentErr := lib.GetOrderIntent(ctx.Request.Context(), body.RazorpayOrderID)

			// bookingDetails in the callback body are advisory; the terms come
			// from the pending record bound to the order id.
			booking, err := utils.ConfirmBooking(body.RazorpayOrderID, body.RazorpayPaymentID)
			if err != nil {
				// money has moved with the processor at this point, so this is
				// not an ordinary failure
				log.Printf("Ledger write failed after verified payment %s: %s\n", body.RazorpayPaymentID, err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Payment captured, booking pending reconciliation",
				})
				return
			}

			// cached quote is advisory; disagreement with the settled row is
			// a reconciliation signal, not a failure
			if intentErr == nil && intent != nil {
				if !intent.Matches(booking.ID.String(), booking.TotalPrice) {
					log.Printf("Order intent for %s disagrees with booking %s (cached amount %d, ledger %d). Flagging for reconciliation\n",
						body.RazorpayOrderID, booking.ID, intent.Amount, booking.TotalPrice)
				}
				lib.DropOrderIntent(ctx.Request.Context(), body.RazorpayOrderID)
			}

			go common.DrainNotificationOutbox()

			ctx.JSON(http.StatusOK, gin.H{
				"success":     true,
				"message":     "Payment verified and Booking confirmed",
				"bookingId":   booking.ID,
				"redirectUrl": fmt.Sprintf("/listings/%d/%s/success", booking.ListingID, booking.ID),
			})
		}).
		GET("/listings/:id/bookings/:bookingId/success", func(ctx *gin.Context) {
			var params types.BookingURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			db := db.GetDb()
			var booking models.Booking
			if err := db.
				Model(&models.Booking{}).
				Where("id = ?", params.BookingID).
				Preload("Listing").
				First(&booking).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{
					"success":     false,
					"message":     "Booking not found!",
					"redirectUrl": "/listings",
				})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "data": booking})
		}).
		GET("/bookings", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			db := db.GetDb()
			var bookings []models.Booking
			if err := db.
				Model(&models.Booking{}).
				Where(&models.Booking{TravelerID: userId}).
				Preload("Listing").
				Order("created_at desc").
				Find(&bookings).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		}).
		PUT("/bookings/:id/cancel", func(ctx *gin.Context) {
			var params types.BookingRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var booking models.Booking
				if err := tx.
					Clauses(clause.Locking{Strength: "UPDATE"}).
					Where("id = ?", params.ID).
					First(&booking).
					Error; err != nil {
					return err
				}
				if booking.TravelerID != userId {
					return errors.New("not enough permissions to perform this action")
				}
				if booking.Status != types.BOOKING_PENDING && booking.Status != types.BOOKING_CONFIRMED {
					return fmt.Errorf("booking is already %s", booking.Status)
				}
				if err := tx.
					Model(&models.Booking{}).
					Where("id = ?", params.ID).
					Update("status", types.BOOKING_CANCELED).
					Error; err != nil {
					return err
				}
				return nil
			})
			if err != nil {
				log.Printf("Could not complete request: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Error while processing request"})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
