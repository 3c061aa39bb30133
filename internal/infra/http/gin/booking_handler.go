package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dog52841/Rentify-sub001/internal/app/commands"
	BookingApp "github.com/dog52841/Rentify-sub001/internal/app/handlers/booking"
	"github.com/dog52841/Rentify-sub001/internal/app/dto"
	"github.com/dog52841/Rentify-sub001/internal/app/queries"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/faults"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createBookingRequest struct {
	ListingID string `json:"listing_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (h BookingHandler) Create(c *gin.Context) {
	actor := actorID(c)
	if actor == "" {
		writeError(c, faults.Authorizationf("booking: actor identity is required"))
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, faults.Validationf("booking: %v", err))
		return
	}
	cmd := BookingApp.RequestBookingCommand{
		CommandID:       generateCommandID(),
		ListingID:       req.ListingID,
		RenterID:        actor,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[BookingApp.RequestBookingCommand, *BookingApp.RequestBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type decideBookingRequest struct {
	Decision  string `json:"decision"`
	ListingID string `json:"listing_id"`
}

func (h BookingHandler) Decide(c *gin.Context) {
	actor := actorID(c)
	if actor == "" {
		writeError(c, faults.Authorizationf("booking: actor identity is required"))
		return
	}
	var req decideBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, faults.Validationf("booking: %v", err))
		return
	}
	cmd := BookingApp.DecideBookingCommand{
		BookingID:       c.Param("id"),
		ActorID:         actor,
		Decision:        req.Decision,
		ListingID:       req.ListingID,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[BookingApp.DecideBookingCommand, *BookingApp.DecideBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type cancelBookingRequest struct {
	Reason    string `json:"reason"`
	ListingID string `json:"listing_id"`
}

func (h BookingHandler) Cancel(c *gin.Context) {
	actor := actorID(c)
	if actor == "" {
		writeError(c, faults.Authorizationf("booking: actor identity is required"))
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, faults.Validationf("booking: %v", err))
			return
		}
	}
	cmd := BookingApp.CancelBookingCommand{
		BookingID:       c.Param("id"),
		ActorID:         actor,
		Reason:          req.Reason,
		ListingID:       req.ListingID,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[BookingApp.CancelBookingCommand, *BookingApp.CancelBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	q := BookingApp.GetBookingQuery{BookingID: c.Param("id"), ActorID: actorID(c)}
	view, err := queries.Ask[BookingApp.GetBookingQuery, *dto.BookingView](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h BookingHandler) ListForRenter(c *gin.Context) {
	renter := c.Param("id")
	actor := actorID(c)
	if actor != "" && actor != renter {
		writeError(c, faults.Authorizationf("booking: renters may only list their own bookings"))
		return
	}
	q := BookingApp.ListRenterBookingsQuery{RenterID: renter}
	coll, err := queries.Ask[BookingApp.ListRenterBookingsQuery, *dto.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, coll)
}

func generateCommandID() string {
	return uuid.NewString()
}

var _ BookingHTTP = BookingHandler{}
