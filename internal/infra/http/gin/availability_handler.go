package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	AvailabilityApp "github.com/dog52841/Rentify-sub001/internal/app/handlers/availability"
	"github.com/dog52841/Rentify-sub001/internal/app/commands"
	"github.com/dog52841/Rentify-sub001/internal/app/dto"
	"github.com/dog52841/Rentify-sub001/internal/app/queries"
	"github.com/dog52841/Rentify-sub001/internal/domain/shared/faults"
)

type AvailabilityHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

func (h AvailabilityHandler) Calendar(c *gin.Context) {
	q := AvailabilityApp.GetUnavailableDatesQuery{ListingID: c.Param("id")}
	view, err := queries.Ask[AvailabilityApp.GetUnavailableDatesQuery, *dto.Calendar](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type mutateDatesRequest struct {
	Op    string   `json:"op"`
	Dates []string `json:"dates"`
}

func (h AvailabilityHandler) Mutate(c *gin.Context) {
	actor := actorID(c)
	if actor == "" {
		writeError(c, faults.Authorizationf("availability: actor identity is required"))
		return
	}
	var req mutateDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, faults.Validationf("availability: %v", err))
		return
	}
	cmd := AvailabilityApp.MutateDatesCommand{
		ListingID: c.Param("id"),
		ActorID:   actor,
		Op:        req.Op,
		Dates:     req.Dates,
	}
	view, err := commands.Dispatch[AvailabilityApp.MutateDatesCommand, *dto.Calendar](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
