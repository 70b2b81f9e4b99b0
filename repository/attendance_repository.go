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

// ErrAlreadyMarked reports that a Present record already exists for the
// (student, subject, date) tuple. It is produced by the unique index, so it is
// reliable even when two marks race past the pre-insert lookup.
var ErrAlreadyMarked = errors.New("attendance already marked for this subject today")

type AttendanceRepository interface {
	InsertPresent(ctx context.Context, attendance *models.Attendance) error
	FindByStudentSubjectDate(ctx context.Context, studentID primitive.ObjectID, subject, date string) (*models.Attendance, error)
	FindByStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.Attendance, error)
	FindBySubject(ctx context.Context, subject string) ([]models.AttendanceWithStudent, error)
	ListWithStudents(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceWithStudent, error)
	LiveSubjectCounts(ctx context.Context, date string) ([]models.SubjectCount, error)
	DailyCounts(ctx context.Context, filter models.AttendanceFilter) ([]models.DailyCount, error)
	SubjectTotals(ctx context.Context, filter models.AttendanceFilter) ([]models.SubjectCount, error)
	HeatmapCells(ctx context.Context, filter models.AttendanceFilter) ([]models.HeatmapCell, error)
	CountForDay(ctx context.Context, date string, presentOnly bool) (int64, error)
	CountAll(ctx context.Context) (int64, error)
	MostAbsentSubject(ctx context.Context) (string, error)
}

type attendanceRepository struct {
	collection *mongo.Collection
}

func NewAttendanceRepository() AttendanceRepository {
	return &attendanceRepository{
		collection: config.GetCollection(config.AttendanceCollection),
	}
}

// buildFilter translates an AttendanceFilter into a bson query. The subject
// match is case-insensitive, so "math" and "Math" report the same rows. Date
// strings are compared lexicographically, which matches chronological order
// for the stored YYYY-MM-DD layout.
func buildFilter(f models.AttendanceFilter) bson.M {
	filter := bson.M{}
	if f.Subject != "" {
		filter["subject"] = primitive.Regex{Pattern: f.Subject, Options: "i"}
	}
	if f.From != "" || f.To != "" {
		dateRange := bson.M{}
		if f.From != "" {
			dateRange["$gte"] = f.From
		}
		if f.To != "" {
			dateRange["$lte"] = f.To
		}
		filter["date"] = dateRange
	}
	return filter
}

func (r *attendanceRepository) InsertPresent(ctx context.Context, attendance *models.Attendance) error {
	if attendance.ID.IsZero() {
		attendance.ID = primitive.NewObjectID()
	}
	attendance.Status = models.StatusPresent
	attendance.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, attendance)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyMarked
		}
		return fmt.Errorf("failed to insert attendance record: %w", err)
	}
	return nil
}

func (r *attendanceRepository) FindByStudentSubjectDate(ctx context.Context, studentID primitive.ObjectID, subject, date string) (*models.Attendance, error) {
	var attendance models.Attendance
	filter := bson.M{"student_id": studentID, "subject": subject, "date": date}

	err := r.collection.FindOne(ctx, filter).Decode(&attendance)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up attendance by student and date: %w", err)
	}
	return &attendance, nil
}

func (r *attendanceRepository) FindByStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.Attendance, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"student_id": studentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch student attendance history: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.Attendance
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode attendance history: %w", err)
	}

	if len(results) == 0 {
		return []models.Attendance{}, nil
	}
	return results, nil
}

// studentLookupStages joins the users collection and projects the flattened
// shape handlers return to dashboards.
func studentLookupStages() []bson.D {
	return []bson.D{
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
			{Key: "subject", Value: 1},
			{Key: "date", Value: 1},
			{Key: "status", Value: 1},
			{Key: "student_name", Value: "$studentDetails.name"},
			{Key: "student_email", Value: "$studentDetails.email"},
		}}},
	}
}

func (r *attendanceRepository) FindBySubject(ctx context.Context, subject string) ([]models.AttendanceWithStudent, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"subject": subject}}},
		{{Key: "$sort", Value: bson.D{{Key: "date", Value: -1}}}},
	}
	pipeline = append(pipeline, studentLookupStages()...)

	return r.aggregateWithStudents(ctx, pipeline)
}

func (r *attendanceRepository) ListWithStudents(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceWithStudent, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildFilter(filter)}},
		{{Key: "$sort", Value: bson.D{{Key: "date", Value: -1}}}},
	}
	pipeline = append(pipeline, studentLookupStages()...)

	return r.aggregateWithStudents(ctx, pipeline)
}

func (r *attendanceRepository) aggregateWithStudents(ctx context.Context, pipeline mongo.Pipeline) ([]models.AttendanceWithStudent, error) {
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate attendance with student details: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.AttendanceWithStudent
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode attendance aggregation: %w", err)
	}

	if len(results) == 0 {
		return []models.AttendanceWithStudent{}, nil
	}
	return results, nil
}

func (r *attendanceRepository) LiveSubjectCounts(ctx context.Context, date string) ([]models.SubjectCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.StatusPresent, "date": date}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$subject"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	return r.aggregateSubjectCounts(ctx, pipeline)
}

func (r *attendanceRepository) DailyCounts(ctx context.Context, filter models.AttendanceFilter) ([]models.DailyCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildFilter(filter)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$date"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily counts: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.DailyCount
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode daily counts: %w", err)
	}

	if len(results) == 0 {
		return []models.DailyCount{}, nil
	}
	return results, nil
}

func (r *attendanceRepository) SubjectTotals(ctx context.Context, filter models.AttendanceFilter) ([]models.SubjectCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildFilter(filter)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$subject"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	return r.aggregateSubjectCounts(ctx, pipeline)
}

func (r *attendanceRepository) aggregateSubjectCounts(ctx context.Context, pipeline mongo.Pipeline) ([]models.SubjectCount, error) {
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate subject counts: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.SubjectCount
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode subject counts: %w", err)
	}

	if len(results) == 0 {
		return []models.SubjectCount{}, nil
	}
	return results, nil
}

func (r *attendanceRepository) HeatmapCells(ctx context.Context, filter models.AttendanceFilter) ([]models.HeatmapCell, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildFilter(filter)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "date", Value: "$date"},
				{Key: "subject", Value: "$subject"},
			}},
			{Key: "present", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$eq", Value: bson.A{"$status", models.StatusPresent}}}, 1, 0,
				}},
			}}}},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "date", Value: "$_id.date"},
			{Key: "subject", Value: "$_id.subject"},
			{Key: "present", Value: 1},
			{Key: "total", Value: 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "date", Value: 1}, {Key: "subject", Value: 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate heatmap cells: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.HeatmapCell
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode heatmap cells: %w", err)
	}

	if len(results) == 0 {
		return []models.HeatmapCell{}, nil
	}
	return results, nil
}

func (r *attendanceRepository) CountForDay(ctx context.Context, date string, presentOnly bool) (int64, error) {
	filter := bson.M{"date": date}
	if presentOnly {
		filter["status"] = models.StatusPresent
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count attendance for day %s: %w", date, err)
	}
	return count, nil
}

func (r *attendanceRepository) CountAll(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count attendance records: %w", err)
	}
	return count, nil
}

func (r *attendanceRepository) MostAbsentSubject(ctx context.Context) (string, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.StatusAbsent}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$subject"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
		{{Key: "$limit", Value: 1}},
	}

	results, err := r.aggregateSubjectCounts(ctx, pipeline)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}
	return results[0].Subject, nil
}
