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

type ClassScheduleRepository interface {
	Create(ctx context.Context, schedule *models.ClassSchedule) (*models.ClassSchedule, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.ClassSchedule, error)
	FindAll(ctx context.Context, subject string) ([]models.ClassSchedule, error)
	UpdateByID(ctx context.Context, id primitive.ObjectID, payload *models.ClassScheduleUpdatePayload) error
	DeleteByID(ctx context.Context, id primitive.ObjectID) error
}

type classScheduleRepository struct {
	collection *mongo.Collection
}

func NewClassScheduleRepository() ClassScheduleRepository {
	return &classScheduleRepository{
		collection: config.GetCollection(config.ClassScheduleCollection),
	}
}

func (r *classScheduleRepository) Create(ctx context.Context, schedule *models.ClassSchedule) (*models.ClassSchedule, error) {
	schedule.ID = primitive.NewObjectID()
	schedule.CreatedAt = time.Now()
	schedule.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, schedule)
	if err != nil {
		return nil, fmt.Errorf("failed to create class schedule: %w", err)
	}
	return schedule, nil
}

func (r *classScheduleRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ClassSchedule, error) {
	var schedule models.ClassSchedule

	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&schedule)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find class schedule: %w", err)
	}
	return &schedule, nil
}

func (r *classScheduleRepository) FindAll(ctx context.Context, subject string) ([]models.ClassSchedule, error) {
	filter := bson.M{}
	if subject != "" {
		filter["subject"] = subject
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list class schedules: %w", err)
	}
	defer cursor.Close(ctx)

	var schedules []models.ClassSchedule
	if err = cursor.All(ctx, &schedules); err != nil {
		return nil, fmt.Errorf("failed to decode class schedules: %w", err)
	}

	if len(schedules) == 0 {
		return []models.ClassSchedule{}, nil
	}
	return schedules, nil
}

func (r *classScheduleRepository) UpdateByID(ctx context.Context, id primitive.ObjectID, payload *models.ClassScheduleUpdatePayload) error {
	set := bson.M{"updated_at": time.Now()}
	if payload.StartTime != "" {
		set["start_time"] = payload.StartTime
	}
	if payload.EndTime != "" {
		set["end_time"] = payload.EndTime
	}
	if payload.Room != "" {
		set["room"] = payload.Room
	}
	if payload.RecurrenceRule != "" {
		set["recurrence_rule"] = payload.RecurrenceRule
	}

	result, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update class schedule: %w", err)
	}
	if result.MatchedCount == 0 {
		return errors.New("class schedule not found")
	}
	return nil
}

func (r *classScheduleRepository) DeleteByID(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete class schedule: %w", err)
	}
	if result.DeletedCount == 0 {
		return errors.New("class schedule not found")
	}
	return nil
}
