// Exposes the overlay display surface of Cardpack: websocket, SSE and the animation ack.

package overlay

import (
	"Cardpack/internal/entity"
	"Cardpack/internal/errors"
	"Cardpack/pkg/log"
	"Cardpack/pkg/middlewares"
	"io"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// overlays run as browser sources on any origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Registers all of the REST API handlers related to internal package overlay onto the gin server.
func APIHandlers(router *gin.Engine, hub *Hub, acker Acknowledger, logger log.Logger) {
	overlayGroup := router.Group("/api/overlay")
	{
		overlayGroup.GET("/ws", websocketHandler(hub, acker, logger))
		overlayGroup.GET("/stream", middlewares.SSEMiddleware(), streamHandler(hub, logger))
		overlayGroup.POST("/animation-complete", animationCompleteHandler(acker, logger))
	}
}

func websocketHandler(hub *Hub, acker Acknowledger, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		conn, upgerr := upgrader.Upgrade(gctx.Writer, gctx.Request, nil)
		if upgerr != nil {
			// Upgrade already replied to the client
			logger.WithCtx(gctx).Warn().Err(upgerr).Msg("Overlay websocket upgrade failed")
			return
		}
		client := NewClient(TransportWebsocket, conn)
		if !hub.Register(client) {
			conn.Close()
			return
		}
		go client.WritePump(logger)
		client.ReadPump(hub, acker, logger)
	}
}

func streamHandler(hub *Hub, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		client := NewClient(TransportSSE, nil)
		if !hub.Register(client) {
			gctx.AbortWithStatusJSON(http.StatusServiceUnavailable, errors.ServiceUnavailable("Overlay hub is not running"))
			return
		}
		defer hub.Unregister(client)
		// headers go out before the first event
		gctx.Writer.Flush()

		gctx.Stream(func(w io.Writer) bool {
			select {
			case event, ok := <-client.Send:
				if !ok {
					return false
				}
				gctx.SSEvent(event.Type, event.Payload)
				return true
			case <-gctx.Request.Context().Done():
				logger.WithCtx(gctx).Info().Msgf("Closing SSE connection : %s", client.ID)
				return false
			}
		})
	}
}

// Acknowledgement of an animation for overlays which can't send websocket frames.
// Always 202, unknown request ids are ignored.
func animationCompleteHandler(acker Acknowledger, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var msg entity.AnimationComplete
		if binderr := gctx.ShouldBindJSON(&msg); binderr != nil {
			logger.WithCtx(gctx).Debug().Err(binderr).Msg("Bad animation-complete body")
			gctx.AbortWithStatusJSON(http.StatusBadRequest, errors.BadRequest(""))
			return
		}
		if _, valerr := govalidator.ValidateStruct(msg); valerr != nil {
			if errs, ok := valerr.(govalidator.Errors); ok {
				gctx.AbortWithStatusJSON(http.StatusBadRequest, errors.GenerateValidationErrorResponse(errs.Errors()))
				return
			}
			gctx.AbortWithStatusJSON(http.StatusBadRequest, errors.BadRequest(valerr.Error()))
			return
		}
		resolved := acker.Acknowledge(msg.RequestID, msg.Result)
		logger.WithCtx(gctx).Info().Str("request_id", msg.RequestID).Bool("resolved", resolved).Msg("Animation complete")
		gctx.JSON(http.StatusAccepted, gin.H{"acknowledged": resolved})
	}
}
