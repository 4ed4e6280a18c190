package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jmylchreest/vidwall/internal/display"
	"github.com/jmylchreest/vidwall/internal/models"
)

// WallHandler exposes wall status and manual transition triggers.
type WallHandler struct {
	wall *display.Wall
}

// NewWallHandler creates a new wall handler.
func NewWallHandler(wall *display.Wall) *WallHandler {
	return &WallHandler{wall: wall}
}

// StatusInput is the input for the wall status endpoint.
type StatusInput struct{}

// StatusOutput is the output for the wall status endpoint.
type StatusOutput struct {
	Body StatusResponse
}

// StatusResponse is the wall status response body.
type StatusResponse struct {
	Displays []display.Status `json:"displays"`
}

// DisplayInput addresses one display by id.
type DisplayInput struct {
	ID string `path:"id" doc:"Display identifier"`
}

// DisplayOutput is the output for the single display endpoint.
type DisplayOutput struct {
	Body display.Status
}

// TriggerOutput acknowledges a manual transition trigger.
type TriggerOutput struct {
	Body TriggerResponse
}

// TriggerResponse is the trigger acknowledgement body.
type TriggerResponse struct {
	Status  string `json:"status"`
	Display string `json:"display"`
	Action  string `json:"action"`
}

// Register registers the wall routes with the API.
func (h *WallHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getWallStatus",
		Method:      "GET",
		Path:        "/api/v1/status",
		Summary:     "Wall status",
		Description: "Returns the state of every display, its placement, and its slots",
		Tags:        []string{"Wall"},
	}, h.GetStatus)

	huma.Register(api, huma.Operation{
		OperationID: "getDisplay",
		Method:      "GET",
		Path:        "/api/v1/displays/{id}",
		Summary:     "Display status",
		Tags:        []string{"Wall"},
	}, h.GetDisplay)

	huma.Register(api, huma.Operation{
		OperationID: "triggerRefresh",
		Method:      "POST",
		Path:        "/api/v1/displays/{id}/refresh",
		Summary:     "Trigger a full refresh",
		Description: "Re-packs the layout and reassigns content. Debounced against repeated calls.",
		Tags:        []string{"Wall"},
	}, h.trigger("refresh", func(d *display.Display) error { return d.TriggerRefresh() }))

	huma.Register(api, huma.Operation{
		OperationID: "triggerSwap",
		Method:      "POST",
		Path:        "/api/v1/displays/{id}/swap",
		Summary:     "Trigger a slot swap",
		Tags:        []string{"Wall"},
	}, h.trigger("swap", func(d *display.Display) error { return d.TriggerSwap() }))

	huma.Register(api, huma.Operation{
		OperationID: "triggerResize",
		Method:      "POST",
		Path:        "/api/v1/displays/{id}/resize",
		Summary:     "Trigger a re-layout",
		Tags:        []string{"Wall"},
	}, h.trigger("resize", func(d *display.Display) error { return d.TriggerResize() }))

	huma.Register(api, huma.Operation{
		OperationID: "triggerFullScreen",
		Method:      "POST",
		Path:        "/api/v1/displays/{id}/fullscreen",
		Summary:     "Trigger a full-screen takeover",
		Description: "Promotes a random visible slot to full screen, or reverts an active takeover.",
		Tags:        []string{"Wall"},
	}, h.trigger("fullscreen", func(d *display.Display) error { return d.TriggerFullScreen() }))
}

// GetStatus returns the state of every display.
func (h *WallHandler) GetStatus(_ context.Context, _ *StatusInput) (*StatusOutput, error) {
	return &StatusOutput{Body: StatusResponse{Displays: h.wall.Status()}}, nil
}

// GetDisplay returns the state of one display.
func (h *WallHandler) GetDisplay(_ context.Context, input *DisplayInput) (*DisplayOutput, error) {
	d, err := h.wall.Display(input.ID)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return &DisplayOutput{Body: d.Status()}, nil
}

// trigger builds a handler that fires one manual transition on a display.
func (h *WallHandler) trigger(action string, fire func(*display.Display) error) func(context.Context, *DisplayInput) (*TriggerOutput, error) {
	return func(_ context.Context, input *DisplayInput) (*TriggerOutput, error) {
		d, err := h.wall.Display(input.ID)
		if err != nil {
			return nil, huma.Error404NotFound(err.Error())
		}
		if err := fire(d); err != nil {
			if errors.Is(err, models.ErrDisplayShutdown) {
				return nil, huma.Error503ServiceUnavailable(err.Error())
			}
			return nil, err
		}
		return &TriggerOutput{Body: TriggerResponse{
			Status:  "accepted",
			Display: input.ID,
			Action:  action,
		}}, nil
	}
}
