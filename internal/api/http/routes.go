package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/sunny-weather/internal/async"
	"github.com/i474232898/sunny-weather/internal/live"
	"github.com/i474232898/sunny-weather/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, tracker *weather.Tracker, search *weather.PlaceSearch) {
	v1 := app.Group("/api/v1")

	v1.Get("/places", func(c *fiber.Ctx) error {
		q := placesQuery{Query: c.Query("query")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		places, err := service.SearchPlaces(c.UserContext(), q.Query).Get()
		if err != nil {
			return failureError(err)
		}
		if places == nil {
			places = []weather.Place{}
		}
		return c.JSON(fiber.Map{
			"query":  q.Query,
			"places": places,
		})
	})

	v1.Post("/places/search", func(c *fiber.Ctx) error {
		var q placesQuery
		if err := c.BodyParser(&q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid search body")
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		gen := search.Search(q.Query)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"query":      q.Query,
			"generation": gen,
		})
	})

	v1.Get("/places/search", func(c *fiber.Ctx) error {
		view := search.Current()
		if view.State == live.StateIdle {
			return fiber.NewError(fiber.StatusNotFound, "no search started")
		}

		resp := searchResponse{
			Query:      view.Query,
			State:      view.State.String(),
			Generation: view.Generation,
		}
		if view.Latest == nil {
			return c.Status(fiber.StatusAccepted).JSON(resp)
		}

		places, err := view.Latest.Outcome.Get()
		if err != nil {
			return failureError(err)
		}
		if places == nil {
			places = []weather.Place{}
		}
		resp.ResultQuery = view.Latest.Key
		resp.Stale = view.Latest.Generation != view.Generation
		resp.Places = places
		return c.JSON(resp)
	})

	v1.Get("/weather", func(c *fiber.Ctx) error {
		loc := weather.Location{Lng: c.Query("lng"), Lat: c.Query("lat")}
		if err := validate.Struct(loc); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		w, err := service.RefreshWeather(c.UserContext(), loc).Get()
		if err != nil {
			return failureError(err)
		}
		return c.JSON(fiber.Map{
			"location": loc,
			"weather":  w,
			"today":    w.LifeIndex.Today(),
		})
	})

	v1.Get("/place", func(c *fiber.Ctx) error {
		place, err := service.SavedPlace(c.UserContext())
		if err != nil {
			return failureError(err)
		}
		return c.JSON(place)
	})

	v1.Put("/place", func(c *fiber.Ctx) error {
		var place weather.Place
		if err := c.BodyParser(&place); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid place body")
		}
		if err := validate.Struct(place); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		gen, err := tracker.Select(c.UserContext(), place)
		if err != nil {
			return failureError(err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"generation": gen,
			"place":      place,
		})
	})

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		view := tracker.Current()
		if view.State == live.StateIdle {
			return fiber.NewError(fiber.StatusNotFound, "no place selected")
		}

		resp := currentResponse{
			Place:      view.Place,
			State:      view.State.String(),
			Generation: view.Generation,
		}
		if view.Latest == nil {
			return c.Status(fiber.StatusAccepted).JSON(resp)
		}

		w, err := view.Latest.Outcome.Get()
		if err != nil {
			return failureError(err)
		}
		today := w.LifeIndex.Today()
		resp.Location = &view.Latest.Key
		resp.Stale = view.Latest.Generation != view.Generation
		resp.UpdatedAt = &view.Latest.At
		resp.Weather = &w
		resp.Today = &today
		return c.JSON(resp)
	})

	v1.Post("/weather/refresh", func(c *fiber.Ctx) error {
		gen, err := tracker.Refresh(c.UserContext())
		if err != nil {
			return failureError(err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"generation": gen,
		})
	})
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

type placesQuery struct {
	Query string `json:"query" validate:"required"`
}

type searchResponse struct {
	Query       string          `json:"query"`
	State       string          `json:"state"`
	Generation  uint64          `json:"generation"`
	ResultQuery string          `json:"resultQuery,omitempty"`
	Stale       bool            `json:"stale"`
	Places      []weather.Place `json:"places,omitempty"`
}

type currentResponse struct {
	Place      *weather.Place       `json:"place,omitempty"`
	State      string               `json:"state"`
	Generation uint64               `json:"generation"`
	// Location is where Weather was fetched. Stale marks weather from an
	// older generation while a newer fetch runs.
	Location   *weather.Location    `json:"location,omitempty"`
	Stale      bool                 `json:"stale"`
	UpdatedAt  *time.Time           `json:"updatedAt,omitempty"`
	Weather    *weather.Weather     `json:"weather,omitempty"`
	Today      *weather.TodayAdvice `json:"today,omitempty"`
}

// failureError maps a failure to an HTTP error by its kind.
func failureError(err error) error {
	var f *async.Failure
	if !errors.As(err, &f) {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return fiber.NewError(statusFor(f.Kind), f.Error())
}

func statusFor(kind async.Kind) int {
	switch kind {
	case async.KindNotFound:
		return fiber.StatusNotFound
	case async.KindTransport, async.KindEmptyBody, async.KindSemanticStatus:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
