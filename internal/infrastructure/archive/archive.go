package archive

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
)

const (
	// AssociationsCollection is suffixed with the category: associations_checks.
	AssociationsCollection = "associations"
	// RunsCollection holds one summary document per archived run.
	RunsCollection = "reconciliation_runs"
)

// Archiver stores a copy of a run's results.
type Archiver interface {
	Archive(ctx context.Context, runID, category string, report *reconcile.Report) error
}

// AssociationDoc is the archived form of one association.
type AssociationDoc struct {
	RunID        string    `bson:"runID"`
	Category     string    `bson:"category"`
	TargetID     string    `bson:"targetID"`
	SourceIDs    []string  `bson:"sourceIDs"`
	MatchedMinor int64     `bson:"matchedMinor"`
	Currency     string    `bson:"currency"`
	Kind         string    `bson:"kind"`
	Confidence   string    `bson:"confidence"`
	ArchivedAt   time.Time `bson:"archivedAt"`
}

// RunDoc summarizes an archived run.
type RunDoc struct {
	RunID            string    `bson:"runID"`
	Category         string    `bson:"category"`
	Collection       string    `bson:"collection"`
	Associations     int       `bson:"associations"`
	ExactCount       int       `bson:"exactCount"`
	CombinedCount    int       `bson:"combinedCount"`
	MatchedMinor     int64     `bson:"matchedMinor"`
	Currency         string    `bson:"currency"`
	UnmatchedSources []string  `bson:"unmatchedSources"`
	UnmatchedTargets []string  `bson:"unmatchedTargets"`
	ArchivedAt       time.Time `bson:"archivedAt"`
}

// MongoArchive implements Archiver on MongoDB.
type MongoArchive struct {
	provider CollectionProvider
	now      func() time.Time
}

// Compile-time check that MongoArchive implements Archiver
var _ Archiver = (*MongoArchive)(nil)

// NewMongoArchive creates a MongoArchive.
func NewMongoArchive(provider CollectionProvider) *MongoArchive {
	return &MongoArchive{provider: provider, now: time.Now}
}

// Archive upserts one document per association, keyed by category and
// target, then records a run summary. Archiving the same run twice leaves
// one document per target.
func (a *MongoArchive) Archive(ctx context.Context, runID, category string, report *reconcile.Report) error {
	archivedAt := a.now().UTC()
	collectionName := fmt.Sprintf("%s_%s", AssociationsCollection, category)

	if len(report.Associations) > 0 {
		models := make([]mongo.WriteModel, 0, len(report.Associations))
		for _, assoc := range report.Associations {
			doc := AssociationDoc{
				RunID:        runID,
				Category:     category,
				TargetID:     assoc.TargetID,
				SourceIDs:    assoc.SourceIDs,
				MatchedMinor: assoc.MatchedAmount.Minor,
				Currency:     assoc.MatchedAmount.Currency,
				Kind:         string(assoc.Kind),
				Confidence:   string(assoc.Confidence),
				ArchivedAt:   archivedAt,
			}
			filter := bson.M{"category": category, "targetID": assoc.TargetID}
			models = append(models, mongo.NewUpdateOneModel().
				SetFilter(filter).
				SetUpdate(bson.M{"$set": doc}).
				SetUpsert(true))
		}

		collection := a.provider.Collection(collectionName)
		if _, err := collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
			return fmt.Errorf("failed to archive associations to %s: %w", collectionName, err)
		}
	}

	summary := RunDoc{
		RunID:            runID,
		Category:         category,
		Collection:       collectionName,
		Associations:     len(report.Associations),
		ExactCount:       report.Stats.ExactCount,
		CombinedCount:    report.Stats.CombinedCount,
		MatchedMinor:     report.Stats.TotalMatchedAmount.Minor,
		Currency:         report.Stats.TotalMatchedAmount.Currency,
		UnmatchedSources: report.UnmatchedSources,
		UnmatchedTargets: report.UnmatchedTargets,
		ArchivedAt:       archivedAt,
	}
	if _, err := a.provider.Collection(RunsCollection).InsertOne(ctx, summary); err != nil {
		return fmt.Errorf("failed to archive run %s: %w", runID, err)
	}

	return nil
}
