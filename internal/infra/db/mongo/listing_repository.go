package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "staycal/internal/domain/listings"
)

const listingsCollection = "listings"

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection(listingsCollection)}
}

func listingIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "location.lat", Value: 1}, {Key: "location.lon", Value: 1}}},
		{Keys: bson.D{{Key: "host_id", Value: 1}}},
	}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrListingNotFound
		}
		return nil, fmt.Errorf("find listing: %w", err)
	}
	return doc.toListing()
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	doc := newListingDocument(listing)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save listing: %w", err)
	}
	return nil
}

// InBox returns listings whose coordinates fall inside box, ordered by id.
func (r *ListingRepository) InBox(ctx context.Context, box domainlistings.Box) ([]*domainlistings.Listing, error) {
	filter := bson.M{
		"location.lat": bson.M{"$gte": box.South, "$lte": box.North},
		"location.lon": bson.M{"$gte": box.West, "$lte": box.East},
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find listings in box: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]*domainlistings.Listing, 0)
	for cur.Next(ctx) {
		var doc listingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		l, err := doc.toListing()
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, cur.Err()
}

type locationDocument struct {
	Lat float64 `bson:"lat"`
	Lon float64 `bson:"lon"`
}

type listingDocument struct {
	ID            string            `bson:"_id"`
	HostID        string            `bson:"host_id"`
	Title         string            `bson:"title"`
	City          string            `bson:"city,omitempty"`
	PricePerNight string            `bson:"price_per_night"`
	Available     bool              `bson:"available"`
	Location      *locationDocument `bson:"location,omitempty"`
	CreatedAt     time.Time         `bson:"created_at"`
	UpdatedAt     time.Time         `bson:"updated_at"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	doc := listingDocument{
		ID:            string(l.ID),
		HostID:        string(l.Host),
		Title:         l.Title,
		City:          l.City,
		PricePerNight: l.PricePerNight.String(),
		Available:     l.Available,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
	if l.Location != nil {
		doc.Location = &locationDocument{Lat: l.Location.Lat, Lon: l.Location.Lon}
	}
	return doc
}

func (d listingDocument) toListing() (*domainlistings.Listing, error) {
	price, err := decimal.NewFromString(d.PricePerNight)
	if err != nil {
		return nil, fmt.Errorf("decode price for listing %s: %w", d.ID, err)
	}
	l := &domainlistings.Listing{
		ID:            domainlistings.ListingID(d.ID),
		Host:          domainlistings.HostID(d.HostID),
		Title:         d.Title,
		City:          d.City,
		PricePerNight: price,
		Available:     d.Available,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.Location != nil {
		l.Location = &domainlistings.Coordinates{Lat: d.Location.Lat, Lon: d.Location.Lon}
	}
	return l, nil
}

var _ domainlistings.Repository = (*ListingRepository)(nil)
