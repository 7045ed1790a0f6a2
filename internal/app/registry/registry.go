// Package registry assembles the command and query buses with their
// middleware chains.
package registry

import (
	"log/slog"

	"staycal/internal/app/commands"
	"staycal/internal/app/dto"
	availabilityapp "staycal/internal/app/handlers/availability"
	listingapp "staycal/internal/app/handlers/listings"
	proximityapp "staycal/internal/app/handlers/proximity"
	"staycal/internal/app/middleware"
	"staycal/internal/app/outbox"
	"staycal/internal/app/policies"
	"staycal/internal/app/queries"
	"staycal/internal/app/uow"
)

type Deps struct {
	UoWFactory  uow.UoWFactory
	Outbox      outbox.Outbox
	Idempotency middleware.IdempotencyStore
	Encoder     outbox.EventEncoder
	Clock       availabilityapp.Clock

	// Authorizer defaults to listing ownership checked through UoWFactory.
	Authorizer middleware.Authorizer
	Renderer   policies.CalendarRenderer
	Uploader   policies.ObjectUploader

	Logger   *slog.Logger
	Recorder middleware.Recorder
	Observer proximityapp.ResultObserver
}

type Buses struct {
	Commands commands.Bus
	Queries  queries.Bus
}

func Build(deps Deps) Buses {
	if deps.UoWFactory == nil {
		panic("registry: uow factory required")
	}
	encoder := deps.Encoder
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	authorizer := deps.Authorizer
	if authorizer == nil {
		authorizer = policies.ListingOwnership{UoWFactory: deps.UoWFactory}
	}
	validator := middleware.NewStructValidator()

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler[availabilityapp.UpdateRangeCommand, dto.CalendarUpdate](
		commandBus, availabilityapp.UpdateRangeKey,
		&availabilityapp.UpdateRangeHandler{Encoder: encoder, Clock: deps.Clock},
	)
	commands.RegisterHandler[availabilityapp.BlockRangeCommand, dto.BlockedRange](
		commandBus, availabilityapp.BlockRangeKey,
		&availabilityapp.BlockRangeHandler{Encoder: encoder, Clock: deps.Clock},
	)
	commands.RegisterHandler[availabilityapp.ExportCalendarCommand, dto.CalendarExport](
		commandBus, availabilityapp.ExportCalendarKey,
		&availabilityapp.ExportCalendarHandler{Renderer: deps.Renderer, Uploader: deps.Uploader, Clock: deps.Clock},
	)

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[availabilityapp.GetCalendarQuery, dto.Calendar](
		queryBus, availabilityapp.GetCalendarKey,
		&availabilityapp.GetCalendarHandler{UoWFactory: deps.UoWFactory},
	)
	queries.RegisterHandler[availabilityapp.CheckAvailabilityQuery, dto.AvailabilityCheck](
		queryBus, availabilityapp.CheckAvailabilityKey,
		&availabilityapp.CheckAvailabilityHandler{UoWFactory: deps.UoWFactory},
	)
	queries.RegisterHandler[proximityapp.NearbyQuery, dto.NearbyResult](
		queryBus, proximityapp.NearbyKey,
		&proximityapp.NearbyHandler{UoWFactory: deps.UoWFactory, Observer: deps.Observer},
	)
	queries.RegisterHandler[proximityapp.BoundsQuery, dto.BoundsResult](
		queryBus, proximityapp.BoundsKey,
		&proximityapp.BoundsHandler{UoWFactory: deps.UoWFactory, Observer: deps.Observer},
	)
	queries.RegisterHandler[listingapp.GetListingQuery, dto.Listing](
		queryBus, listingapp.GetListingKey,
		&listingapp.GetListingHandler{UoWFactory: deps.UoWFactory},
	)

	cmdChain := []middleware.CommandMiddleware{
		middleware.Tracing(),
		middleware.Instrument(deps.Logger, deps.Recorder),
	}
	// Flushing sits outside Transaction so only committed records are relayed.
	if deps.Outbox != nil {
		cmdChain = append(cmdChain, middleware.OutboxFlush(deps.Outbox, deps.Logger))
	}
	cmdChain = append(cmdChain,
		middleware.Validation(validator),
		middleware.Authorization(authorizer),
	)
	if deps.Idempotency != nil {
		cmdChain = append(cmdChain, middleware.Idempotency(deps.Idempotency))
	}
	cmdChain = append(cmdChain, middleware.Transaction(deps.UoWFactory, nil))

	return Buses{
		Commands: middleware.ChainCommands(commandBus, cmdChain...),
		Queries: middleware.ChainQueries(queryBus,
			middleware.QueryTracing(),
			middleware.QueryInstrument(deps.Logger, deps.Recorder),
			middleware.QueryValidation(validator),
		),
	}
}
