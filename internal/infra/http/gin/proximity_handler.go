package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staycal/internal/app/dto"
	proximityapp "staycal/internal/app/handlers/proximity"
	"staycal/internal/app/queries"
)

type ProximityHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h ProximityHandler) Nearby(c *gin.Context) {
	var (
		q   proximityapp.NearbyQuery
		err error
	)
	if q.Lat, err = queryFloat(c, "lat"); err != nil {
		badRequest(c, err.Error())
		return
	}
	if q.Lon, err = queryFloat(c, "lon"); err != nil {
		badRequest(c, err.Error())
		return
	}
	if q.RadiusKm, err = queryFloat(c, "radius_km"); err != nil {
		badRequest(c, err.Error())
		return
	}
	if q.Exact, err = queryBool(c, "exact"); err != nil {
		badRequest(c, err.Error())
		return
	}
	if q.Limit, err = queryInt(c, "limit", 0); err != nil {
		badRequest(c, err.Error())
		return
	}
	result, err := queries.Ask[proximityapp.NearbyQuery, dto.NearbyResult](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ProximityHandler) Bounds(c *gin.Context) {
	var (
		q   proximityapp.BoundsQuery
		err error
	)
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"north", &q.North},
		{"south", &q.South},
		{"east", &q.East},
		{"west", &q.West},
	} {
		if *p.dst, err = queryFloat(c, p.name); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	if q.Limit, err = queryInt(c, "limit", 0); err != nil {
		badRequest(c, err.Error())
		return
	}
	result, err := queries.Ask[proximityapp.BoundsQuery, dto.BoundsResult](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ProximityHTTP = ProximityHandler{}
