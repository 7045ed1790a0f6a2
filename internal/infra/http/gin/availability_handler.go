package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"staycal/internal/app/commands"
	"staycal/internal/app/dto"
	availabilityapp "staycal/internal/app/handlers/availability"
	"staycal/internal/app/queries"
)

type AvailabilityHandler struct {
	Queries  queries.Bus
	Commands commands.Bus
	Logger   *slog.Logger
}

func (h AvailabilityHandler) Calendar(c *gin.Context) {
	start, err := parseDate("start", c.Query("start"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	end, err := parseDate("end", c.Query("end"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	query := availabilityapp.GetCalendarQuery{ListingID: c.Param("id"), Start: start, End: end}
	result, err := queries.Ask[availabilityapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Check(c *gin.Context) {
	checkIn, err := parseDate("check_in", c.Query("check_in"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	checkOut, err := parseDate("check_out", c.Query("check_out"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	query := availabilityapp.CheckAvailabilityQuery{ListingID: c.Param("id"), CheckIn: checkIn, CheckOut: checkOut}
	result, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.AvailabilityCheck](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type calendarEntryRequest struct {
	Date          string           `json:"date"`
	IsAvailable   bool             `json:"is_available"`
	PriceOverride *decimal.Decimal `json:"price_override"`
}

type updateCalendarRequest struct {
	Entries []calendarEntryRequest `json:"entries"`
}

func (h AvailabilityHandler) Update(c *gin.Context) {
	var req updateCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd := availabilityapp.UpdateRangeCommand{
		ListingID: c.Param("id"),
		Entries:   make([]availabilityapp.EntryInput, 0, len(req.Entries)),
		IdemKey:   c.GetHeader("Idempotency-Key"),
	}
	for _, e := range req.Entries {
		date, err := parseDate("date", e.Date)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		cmd.Entries = append(cmd.Entries, availabilityapp.EntryInput{
			Date:          date,
			IsAvailable:   e.IsAvailable,
			PriceOverride: e.PriceOverride,
		})
	}
	result, err := commands.Dispatch[availabilityapp.UpdateRangeCommand, dto.CalendarUpdate](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type rangeRequest struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason"`
}

func bindRange(c *gin.Context) (rangeRequest, bool) {
	var req rangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return rangeRequest{}, false
	}
	return req, true
}

func (h AvailabilityHandler) Block(c *gin.Context) {
	req, ok := bindRange(c)
	if !ok {
		return
	}
	start, err := parseDate("start", req.Start)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	end, err := parseDate("end", req.End)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd := availabilityapp.BlockRangeCommand{
		ListingID: c.Param("id"),
		Start:     start,
		End:       end,
		Reason:    req.Reason,
		IdemKey:   c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[availabilityapp.BlockRangeCommand, dto.BlockedRange](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Export(c *gin.Context) {
	req, ok := bindRange(c)
	if !ok {
		return
	}
	start, err := parseDate("start", req.Start)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	end, err := parseDate("end", req.End)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd := availabilityapp.ExportCalendarCommand{ListingID: c.Param("id"), Start: start, End: end}
	result, err := commands.Dispatch[availabilityapp.ExportCalendarCommand, dto.CalendarExport](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
