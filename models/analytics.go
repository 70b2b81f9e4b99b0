package models

type SubjectCount struct {
	Subject string `json:"subject" bson:"_id"`
	Count   int64  `json:"count" bson:"count"`
}

type DailyCount struct {
	Date  string `json:"date" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}

type KPIStats struct {
	TotalStudents   int64 `json:"totalStudents"`
	TotalTeachers   int64 `json:"totalTeachers"`
	TotalAttendance int64 `json:"totalAttendance"`
	TodayPresent    int64 `json:"todayPresent"`
}

type AdminKPIStats struct {
	TotalStudents     int64  `json:"totalStudents"`
	TodayAttendance   int64  `json:"todayAttendance"`
	TotalToday        int64  `json:"totalToday"`
	AttendancePercent int    `json:"attendancePercent"`
	MostAbsentSubject string `json:"mostAbsentSubject"`
}

// HeatmapCell is one (day, subject) aggregation bucket as returned by the
// ledger. Cells only exist for combinations that have records.
type HeatmapCell struct {
	Date    string `json:"date" bson:"date"`
	Subject string `json:"subject" bson:"subject"`
	Present int64  `json:"present" bson:"present"`
	Total   int64  `json:"total" bson:"total"`
}

type HeatmapCellView struct {
	Subject    string `json:"subject"`
	Present    int64  `json:"present"`
	Total      int64  `json:"total"`
	Percentage int    `json:"percentage"`
}

type HeatmapRow struct {
	Date     string            `json:"date"`
	Subjects []HeatmapCellView `json:"subjects"`
}
