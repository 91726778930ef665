package web

import (
	"context"
	"time"

	"github.com/rohanthewiz/rweb"
)

// listModelsHandler returns the model catalog
func listModelsHandler(c rweb.Context) error {
	return c.WriteJSON(map[string]interface{}{"models": deps.Catalog.List()})
}

// healthHandler reports service and backend health
func healthHandler(c rweb.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"backend": "mock",
	}

	if deps.Backend != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		info, err := deps.Backend.Health(ctx)
		if err != nil {
			resp["backend"] = "unreachable"
			resp["backend_error"] = err.Error()
		} else {
			resp["backend"] = info.Status
			resp["backend_models"] = info.Models
		}
	}
	return c.WriteJSON(resp)
}
