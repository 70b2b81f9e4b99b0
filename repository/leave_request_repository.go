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

type LeaveRequestRepository interface {
	Create(ctx context.Context, request *models.LeaveRequest) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.LeaveRequest, error)
	FindByStudentAndDate(ctx context.Context, studentID primitive.ObjectID, date string) (*models.LeaveRequest, error)
	FindByStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.LeaveRequest, error)
	FindAllWithStudents(ctx context.Context) ([]models.LeaveRequestWithStudent, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error
}

type leaveRequestRepository struct {
	collection *mongo.Collection
}

func NewLeaveRequestRepository() LeaveRequestRepository {
	return &leaveRequestRepository{
		collection: config.GetCollection(config.LeaveRequestCollection),
	}
}

func (r *leaveRequestRepository) Create(ctx context.Context, request *models.LeaveRequest) (primitive.ObjectID, error) {
	request.ID = primitive.NewObjectID()
	request.Status = models.LeavePending
	request.CreatedAt = time.Now()
	request.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, request)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to create leave request: %w", err)
	}
	return request.ID, nil
}

func (r *leaveRequestRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.LeaveRequest, error) {
	var request models.LeaveRequest

	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&request)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find leave request: %w", err)
	}
	return &request, nil
}

func (r *leaveRequestRepository) FindByStudentAndDate(ctx context.Context, studentID primitive.ObjectID, date string) (*models.LeaveRequest, error) {
	var request models.LeaveRequest
	filter := bson.M{"student_id": studentID, "date": date}

	err := r.collection.FindOne(ctx, filter).Decode(&request)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find leave request by student and date: %w", err)
	}
	return &request, nil
}

func (r *leaveRequestRepository) FindByStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.LeaveRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"student_id": studentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch student leave requests: %w", err)
	}
	defer cursor.Close(ctx)

	var requests []models.LeaveRequest
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode leave requests: %w", err)
	}

	if len(requests) == 0 {
		return []models.LeaveRequest{}, nil
	}
	return requests, nil
}

func (r *leaveRequestRepository) FindAllWithStudents(ctx context.Context) ([]models.LeaveRequestWithStudent, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: config.UserCollection},
			{Key: "localField", Value: "student_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "studentDetails"},
		}}},
		{{Key: "$unwind", Value: "$studentDetails"}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 1},
			{Key: "student_id", Value: 1},
			{Key: "date", Value: 1},
			{Key: "reason", Value: 1},
			{Key: "status", Value: 1},
			{Key: "student_name", Value: "$studentDetails.name"},
			{Key: "student_email", Value: "$studentDetails.email"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate leave requests: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.LeaveRequestWithStudent
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode leave request aggregation: %w", err)
	}

	if len(results) == 0 {
		return []models.LeaveRequestWithStudent{}, nil
	}
	return results, nil
}

func (r *leaveRequestRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	update := bson.M{
		"$set": bson.M{
			"status":     status,
			"updated_at": time.Now(),
		},
	}

	result, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("failed to update leave request status: %w", err)
	}
	if result.MatchedCount == 0 {
		return errors.New("leave request not found")
	}
	return nil
}
