package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "staycal/internal/domain/availability"
	domainlistings "staycal/internal/domain/listings"
	"staycal/internal/domain/shared/daterange"
)

const calendarCollection = "calendar_entries"

// CalendarStore keeps one document per (listing, day). Batches written with a
// session context from the unit of work commit atomically.
type CalendarStore struct {
	col *mongo.Collection
}

func NewCalendarStore(db *mongo.Database) *CalendarStore {
	return &CalendarStore{col: db.Collection(calendarCollection)}
}

func calendarIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{{
		Keys:    bson.D{{Key: "listing_id", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	}}
}

func (s *CalendarStore) GetRange(ctx context.Context, listingID domainlistings.ListingID, start, end time.Time) ([]domainavailability.CalendarEntry, error) {
	filter := bson.M{
		"listing_id": string(listingID),
		"date":       bson.M{"$gte": daterange.Day(start), "$lte": daterange.Day(end)},
	}
	cur, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find calendar range: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]domainavailability.CalendarEntry, 0)
	for cur.Next(ctx) {
		var doc calendarDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		entry, err := doc.toEntry()
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, cur.Err()
}

func (s *CalendarStore) Upsert(ctx context.Context, entry domainavailability.CalendarEntry) error {
	doc := newCalendarDocument(entry)
	_, err := s.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert calendar entry: %w", err)
	}
	return nil
}

func (s *CalendarStore) UpsertBatch(ctx context.Context, entries []domainavailability.CalendarEntry) error {
	if len(entries) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(entries))
	for _, entry := range entries {
		doc := newCalendarDocument(entry)
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": doc.ID}).
			SetUpdate(bson.M{"$set": doc}).
			SetUpsert(true))
	}
	if _, err := s.col.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
		return fmt.Errorf("bulk upsert calendar entries: %w", err)
	}
	return nil
}

type calendarDocument struct {
	ID            string    `bson:"_id"`
	ListingID     string    `bson:"listing_id"`
	Date          time.Time `bson:"date"`
	IsAvailable   bool      `bson:"is_available"`
	PriceOverride *string   `bson:"price_override"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func calendarDocumentID(listingID domainlistings.ListingID, day time.Time) string {
	return string(listingID) + "|" + daterange.Format(day)
}

func newCalendarDocument(entry domainavailability.CalendarEntry) calendarDocument {
	day := daterange.Day(entry.Date)
	doc := calendarDocument{
		ID:          calendarDocumentID(entry.ListingID, day),
		ListingID:   string(entry.ListingID),
		Date:        day,
		IsAvailable: entry.IsAvailable,
		UpdatedAt:   time.Now().UTC(),
	}
	if entry.PriceOverride != nil {
		p := entry.PriceOverride.String()
		doc.PriceOverride = &p
	}
	return doc
}

func (d calendarDocument) toEntry() (domainavailability.CalendarEntry, error) {
	entry := domainavailability.CalendarEntry{
		ListingID:   domainlistings.ListingID(d.ListingID),
		Date:        daterange.Day(d.Date),
		IsAvailable: d.IsAvailable,
	}
	if d.PriceOverride != nil {
		p, err := decimal.NewFromString(*d.PriceOverride)
		if err != nil {
			return domainavailability.CalendarEntry{}, fmt.Errorf("decode price override %q: %w", *d.PriceOverride, err)
		}
		entry.PriceOverride = &p
	}
	return entry, nil
}

var _ domainavailability.BatchStore = (*CalendarStore)(nil)
