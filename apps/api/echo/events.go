package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/elimuhq/elimu/core"
)

type eventsApi struct {
	broker core.Broker
}

func registerEventsAPI(g *echo.Group, jwt, access echo.MiddlewareFunc, deps ServerDeps) {
	api := eventsApi{broker: deps.Broker}
	g.GET("/events", api.stream, jwt, access)
}

// stream pushes broker events to the client as server-sent events. Delivery
// is advisory and at-most-once: a client that disconnects misses what was
// published in between and refetches instead.
func (api *eventsApi) stream(ctx echo.Context) error {
	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	reqCtx := ctx.Request().Context()
	events, cancel := api.broker.Subscribe(reqCtx)
	defer cancel()

	for {
		select {
		case <-reqCtx.Done():
			return nil
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", evt.Name, evt.Payload); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
