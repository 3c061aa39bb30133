package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"github.com/dog52841/Rentify-sub001/internal/domain/shared/faults"
)

// writeError maps the failure taxonomy onto HTTP statuses. Conflicts carry
// the contested day range so clients can offer alternative dates.
func writeError(c *gin.Context, err error) {
	var fe *faults.Error
	if !errors.As(err, &fe) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	body := gin.H{"error": fe.Message, "kind": string(fe.Kind)}
	switch fe.Kind {
	case faults.KindValidation:
		c.JSON(http.StatusBadRequest, body)
	case faults.KindConflict:
		if fe.ConflictStart != "" {
			body["conflict"] = gin.H{"start_date": fe.ConflictStart, "end_date": fe.ConflictEnd}
		}
		c.JSON(http.StatusConflict, body)
	case faults.KindAuthorization:
		c.JSON(http.StatusForbidden, body)
	case faults.KindNotFound:
		c.JSON(http.StatusNotFound, body)
	case faults.KindGateway:
		body["retryable"] = true
		c.JSON(http.StatusBadGateway, body)
	case faults.KindGatewayRejection:
		c.JSON(http.StatusPaymentRequired, body)
	default:
		c.JSON(http.StatusInternalServerError, body)
	}
}

// actorID reads the caller identity forwarded by the edge gateway. Identity
// and authentication live outside this service.
func actorID(c *gin.Context) string {
	return c.GetHeader("X-Actor-ID")
}
