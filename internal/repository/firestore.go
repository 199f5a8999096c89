package repository

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/atinyakov/FitKeeper/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UsersCollection holds one document per user, keyed by identity handle.
const UsersCollection = "users"

// FirestoreRecordStore keeps user records as Firestore documents.
type FirestoreRecordStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreRecordStore creates a store over the users collection.
func NewFirestoreRecordStore(client *firestore.Client) *FirestoreRecordStore {
	return &FirestoreRecordStore{client: client, collection: UsersCollection}
}

func (s *FirestoreRecordStore) doc(uid string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(uid)
}

// Get reads the full record of uid. A missing document yields models.ErrNotFound.
func (s *FirestoreRecordStore) Get(ctx context.Context, uid string) (*models.UserRecord, error) {
	snap, err := s.doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	var rec models.UserRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	rec.UserID = uid
	return &rec, nil
}

// Create stores a new document. An existing document yields models.ErrUserExists.
func (s *FirestoreRecordStore) Create(ctx context.Context, rec *models.UserRecord) error {
	rec.Version = 0
	_, err := s.doc(rec.UserID).Create(ctx, withLists(*rec))
	if status.Code(err) == codes.AlreadyExists {
		return models.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

// UpdateFields overwrites the given top-level fields and bumps the version.
func (s *FirestoreRecordStore) UpdateFields(ctx context.Context, uid string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	updates := make([]firestore.Update, 0, len(fields)+1)
	for path, v := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: v})
	}
	updates = append(updates, firestore.Update{Path: "version", Value: firestore.Increment(1)})

	_, err := s.doc(uid).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

// UpdateIfVersion overwrites the document inside a transaction if its stored
// version still equals version. Otherwise it returns models.ErrConflict.
func (s *FirestoreRecordStore) UpdateIfVersion(ctx context.Context, rec *models.UserRecord, version int64) error {
	ref := s.doc(rec.UserID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var current models.UserRecord
		if err := snap.DataTo(&current); err != nil {
			return err
		}
		if current.Version != version {
			return models.ErrConflict
		}
		next := withLists(*rec)
		next.Version = version + 1
		return tx.Set(ref, next)
	})
	switch {
	case errors.Is(err, models.ErrConflict):
		return models.ErrConflict
	case status.Code(err) == codes.NotFound:
		return models.ErrNotFound
	case err != nil:
		return fmt.Errorf("update record: %w", err)
	}
	rec.Version = version + 1
	return nil
}

// withLists replaces nil lists with empty ones so documents never hold null.
func withLists(rec models.UserRecord) models.UserRecord {
	rec.WeightHistory = nonNil(rec.WeightHistory)
	rec.Exercises = nonNil(rec.Exercises)
	rec.Meals = nonNil(rec.Meals)
	return rec
}
