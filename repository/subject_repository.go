package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"qr-attendance-backend/config"
	"qr-attendance-backend/models"
)

type SubjectRepository interface {
	Create(ctx context.Context, subject *models.Subject) (primitive.ObjectID, error)
	FindAll(ctx context.Context) ([]models.Subject, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Subject, error)
	FindByName(ctx context.Context, name string) (*models.Subject, error)
	Update(ctx context.Context, id primitive.ObjectID, payload *models.SubjectUpdatePayload) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

type subjectRepository struct {
	collection *mongo.Collection
}

func NewSubjectRepository() SubjectRepository {
	return &subjectRepository{
		collection: config.GetCollection(config.SubjectCollection),
	}
}

func (r *subjectRepository) Create(ctx context.Context, subject *models.Subject) (primitive.ObjectID, error) {
	existing, err := r.FindByName(ctx, subject.Name)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if existing != nil {
		return primitive.NilObjectID, fmt.Errorf("subject '%s' already exists", subject.Name)
	}

	subject.ID = primitive.NewObjectID()
	subject.CreatedAt = time.Now()
	subject.UpdatedAt = time.Now()

	_, err = r.collection.InsertOne(ctx, subject)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to create subject: %w", err)
	}
	return subject.ID, nil
}

func (r *subjectRepository) FindAll(ctx context.Context) ([]models.Subject, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	defer cursor.Close(ctx)

	var subjects []models.Subject
	if err = cursor.All(ctx, &subjects); err != nil {
		return nil, fmt.Errorf("failed to decode subjects: %w", err)
	}

	if len(subjects) == 0 {
		return []models.Subject{}, nil
	}
	return subjects, nil
}

func (r *subjectRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Subject, error) {
	var subject models.Subject

	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&subject)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find subject: %w", err)
	}
	return &subject, nil
}

func (r *subjectRepository) FindByName(ctx context.Context, name string) (*models.Subject, error) {
	var subject models.Subject

	err := r.collection.FindOne(ctx, bson.M{"name": name}).Decode(&subject)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find subject by name: %w", err)
	}
	return &subject, nil
}

func (r *subjectRepository) Update(ctx context.Context, id primitive.ObjectID, payload *models.SubjectUpdatePayload) (int64, error) {
	set := bson.M{"updated_at": time.Now()}
	if payload.Name != "" {
		set["name"] = payload.Name
	}
	if payload.Code != "" {
		set["code"] = payload.Code
	}

	result, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return 0, fmt.Errorf("failed to update subject: %w", err)
	}
	return result.MatchedCount, nil
}

func (r *subjectRepository) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, fmt.Errorf("failed to delete subject: %w", err)
	}
	return result.DeletedCount, nil
}
