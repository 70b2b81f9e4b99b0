package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"qr-attendance-backend/config/middleware"
	"qr-attendance-backend/models"
	"qr-attendance-backend/pkg/paseto"
	"qr-attendance-backend/pkg/qrtoken"
	"qr-attendance-backend/realtime"
	"qr-attendance-backend/repository"
)

// fakeAttendanceRepo is an in-memory ledger with the same uniqueness guarantee
// the Mongo index provides.
type fakeAttendanceRepo struct {
	mu      sync.Mutex
	records []models.Attendance

	// hideExisting makes the pre-insert lookup miss so tests can drive the
	// race path where only the insert detects the duplicate.
	hideExisting bool
	insertErr    error
}

func (f *fakeAttendanceRepo) InsertPresent(_ context.Context, a *models.Attendance) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.insertErr != nil {
		return f.insertErr
	}
	for _, r := range f.records {
		if r.StudentID == a.StudentID && r.Subject == a.Subject && r.Date == a.Date {
			return repository.ErrAlreadyMarked
		}
	}

	a.ID = primitive.NewObjectID()
	a.Status = models.StatusPresent
	a.CreatedAt = time.Now()
	f.records = append(f.records, *a)
	return nil
}

func (f *fakeAttendanceRepo) FindByStudentSubjectDate(_ context.Context, studentID primitive.ObjectID, subject, date string) (*models.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.hideExisting {
		return nil, nil
	}
	for _, r := range f.records {
		if r.StudentID == studentID && r.Subject == subject && r.Date == date {
			found := r
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeAttendanceRepo) FindByStudent(_ context.Context, studentID primitive.ObjectID) ([]models.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []models.Attendance{}
	for _, r := range f.records {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAttendanceRepo) FindBySubject(_ context.Context, subject string) ([]models.AttendanceWithStudent, error) {
	return []models.AttendanceWithStudent{}, nil
}

func (f *fakeAttendanceRepo) ListWithStudents(_ context.Context, _ models.AttendanceFilter) ([]models.AttendanceWithStudent, error) {
	return []models.AttendanceWithStudent{}, nil
}

func (f *fakeAttendanceRepo) LiveSubjectCounts(_ context.Context, date string) ([]models.SubjectCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := map[string]int64{}
	order := []string{}
	for _, r := range f.records {
		if r.Date == date && r.Status == models.StatusPresent {
			if _, seen := counts[r.Subject]; !seen {
				order = append(order, r.Subject)
			}
			counts[r.Subject]++
		}
	}
	out := []models.SubjectCount{}
	for _, subject := range order {
		out = append(out, models.SubjectCount{Subject: subject, Count: counts[subject]})
	}
	return out, nil
}

func (f *fakeAttendanceRepo) DailyCounts(_ context.Context, _ models.AttendanceFilter) ([]models.DailyCount, error) {
	return []models.DailyCount{}, nil
}

func (f *fakeAttendanceRepo) SubjectTotals(_ context.Context, _ models.AttendanceFilter) ([]models.SubjectCount, error) {
	return []models.SubjectCount{}, nil
}

func (f *fakeAttendanceRepo) HeatmapCells(_ context.Context, _ models.AttendanceFilter) ([]models.HeatmapCell, error) {
	return []models.HeatmapCell{}, nil
}

func (f *fakeAttendanceRepo) CountForDay(_ context.Context, date string, presentOnly bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	for _, r := range f.records {
		if r.Date == date && (!presentOnly || r.Status == models.StatusPresent) {
			n++
		}
	}
	return n, nil
}

func (f *fakeAttendanceRepo) CountAll(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.records)), nil
}

func (f *fakeAttendanceRepo) MostAbsentSubject(_ context.Context) (string, error) {
	return "", nil
}

func (f *fakeAttendanceRepo) recordCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// fakeUserRepo holds users in memory, keyed by ID.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	f := &fakeUserRepo{users: map[primitive.ObjectID]*models.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *models.User) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == user.Email {
			return primitive.NilObjectID, repository.ErrEmailTaken
		}
	}
	user.ID = primitive.NewObjectID()
	f.users[user.ID] = user
	return user.ID, nil
}

func (f *fakeUserRepo) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) FindUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id], nil
}

func (f *fakeUserRepo) GetAllUsers(_ context.Context, _ bson.M, _, _ int64) ([]models.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []models.User{}
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) DeleteUser(_ context.Context, id primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[id]; !ok {
		return 0, nil
	}
	delete(f.users, id)
	return 1, nil
}

func (f *fakeUserRepo) UpdateUserPassword(_ context.Context, id primitive.ObjectID, hashed string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if u, ok := f.users[id]; ok {
		u.Password = hashed
	}
	return nil
}

func (f *fakeUserRepo) CountByRole(_ context.Context, role string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	for _, u := range f.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// authAs replaces the token middleware with fixed claims.
func authAs(claims *paseto.Claims) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user", claims)
		return c.Next()
	}
}

func studentClaims(name string) *paseto.Claims {
	return &paseto.Claims{
		UserID: primitive.NewObjectID(),
		Email:  "student@school.test",
		Name:   name,
		Role:   models.RoleStudent,
	}
}

func newMarkApp(h *AttendanceHandler, claims *paseto.Claims) *fiber.App {
	app := fiber.New()
	g := app.Group("/attendance", authAs(claims), middleware.RequireRole(models.RoleStudent))
	g.Post("/mark", h.MarkAttendance)
	g.Get("/my", h.GetMyAttendance)
	g.Get("/my/summary", h.GetMySummary)
	return app
}

func markRequest(payload string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/attendance/mark", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func freshCredentialJSON(subject string) string {
	return fmt.Sprintf(`{"subject":%q,"issuedAt":%q,"expiryMinutes":5}`, subject, time.Now().Format(time.RFC3339))
}

func decodeMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	var out struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("response is not JSON: %s", body)
	}
	if out.Message != "" {
		return out.Message
	}
	return out.Error
}

func TestMarkAttendanceSuccess(t *testing.T) {
	claims := studentClaims("Budi Pratama")
	repo := &fakeAttendanceRepo{}
	users := newFakeUserRepo(&models.User{ID: claims.UserID, Name: "Budi Pratama", Email: claims.Email, Role: models.RoleStudent})
	hub := realtime.NewHub()
	h := NewAttendanceHandler(repo, users, hub, 5)
	app := newMarkApp(h, claims)

	resp, err := app.Test(markRequest(freshCredentialJSON("Math")), 2000)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if msg := decodeMessage(t, resp); msg != "Attendance marked successfully" {
		t.Errorf("message = %q, want %q", msg, "Attendance marked successfully")
	}
	if got := repo.recordCount(); got != 1 {
		t.Errorf("ledger has %d records, want 1", got)
	}
}

func TestMarkAttendancePublishesLiveEvent(t *testing.T) {
	claims := studentClaims("Siti Rahayu")
	repo := &fakeAttendanceRepo{}
	users := newFakeUserRepo(&models.User{ID: claims.UserID, Name: "Siti Rahayu", Role: models.RoleStudent})
	hub := realtime.NewHub()
	h := NewAttendanceHandler(repo, users, hub, 5)
	app := newMarkApp(h, claims)

	subscriber := realtime.NewClient()
	hub.Register(subscriber)

	resp, err := app.Test(markRequest(freshCredentialJSON("Physics")), 2000)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	select {
	case msg := <-subscriber.Send():
		var env realtime.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("broadcast frame is not JSON: %v", err)
		}
		if env.Event != "attendanceUpdate" {
			t.Errorf("event = %q, want attendanceUpdate", env.Event)
		}
		data, _ := json.Marshal(env.Data)
		var event models.LiveEvent
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("event data has the wrong shape: %v", err)
		}
		if event.StudentName != "Siti Rahayu" {
			t.Errorf("studentName = %q, want %q", event.StudentName, "Siti Rahayu")
		}
		if event.Subject != "Physics" {
			t.Errorf("subject = %q, want Physics", event.Subject)
		}
		if event.Status != models.StatusPresent {
			t.Errorf("status = %q, want %q", event.Status, models.StatusPresent)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no live event arrived after a successful mark")
	}
}

func TestMarkAttendanceDeliversOneFrameToRoomSubscriber(t *testing.T) {
	claims := studentClaims("Siti Rahayu")
	repo := &fakeAttendanceRepo{}
	users := newFakeUserRepo(&models.User{ID: claims.UserID, Name: "Siti Rahayu", Role: models.RoleStudent})
	hub := realtime.NewHub()
	h := NewAttendanceHandler(repo, users, hub, 5)
	app := newMarkApp(h, claims)

	// A dashboard that followed the documented protocol: join the subject
	// room, then listen for attendanceUpdate.
	dashboard := realtime.NewClient()
	hub.Register(dashboard)
	hub.Join(dashboard, "Math")

	resp, err := app.Test(markRequest(freshCredentialJSON("Math")), 2000)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	select {
	case msg := <-dashboard.Send():
		var env realtime.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("broadcast frame is not JSON: %v", err)
		}
		if env.Event != "attendanceUpdate" {
			t.Errorf("event = %q, want attendanceUpdate", env.Event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no live event arrived after a successful mark")
	}

	select {
	case msg := <-dashboard.Send():
		t.Fatalf("room subscriber received a second frame for one mark: %s", msg)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestMarkAttendanceRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not JSON", `scan me`},
		{"missing subject", `{"issuedAt":"2026-08-31T09:00:00Z","expiryMinutes":5}`},
		{"zero expiry", fmt.Sprintf(`{"subject":"Math","issuedAt":%q,"expiryMinutes":0}`, time.Now().Format(time.RFC3339))},
		{"bad issuedAt", `{"subject":"Math","issuedAt":"soon","expiryMinutes":5}`},
	}

	claims := studentClaims("Budi Pratama")
	repo := &fakeAttendanceRepo{}
	users := newFakeUserRepo()
	h := NewAttendanceHandler(repo, users, realtime.NewHub(), 5)
	app := newMarkApp(h, claims)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(markRequest(tt.payload), 2000)
			if err != nil {
				t.Fatalf("app.Test() error: %v", err)
			}
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}

	if got := repo.recordCount(); got != 0 {
		t.Errorf("ledger has %d records after rejected payloads, want 0", got)
	}
}

func TestMarkAttendanceExpiredCredential(t *testing.T) {
	claims := studentClaims("Budi Pratama")
	repo := &fakeAttendanceRepo{}
	h := NewAttendanceHandler(repo, newFakeUserRepo(), realtime.NewHub(), 5)
	app := newMarkApp(h, claims)

	stale := fmt.Sprintf(`{"subject":"Math","issuedAt":%q,"expiryMinutes":5}`,
		time.Now().Add(-6*time.Minute).Format(time.RFC3339))

	resp, err := app.Test(markRequest(stale), 2000)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if msg := decodeMessage(t, resp); msg != "QR code expired" {
		t.Errorf("error = %q, want %q", msg, "QR code expired")
	}
	if got := repo.recordCount(); got != 0 {
		t.Errorf("ledger has %d records after an expired scan, want 0", got)
	}
}

func TestMarkAttendanceIsIdempotent(t *testing.T) {
	claims := studentClaims("Budi Pratama")
	repo := &fakeAttendanceRepo{}
	h := NewAttendanceHandler(repo, newFakeUserRepo(), realtime.NewHub(), 5)
	app := newMarkApp(h, claims)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(markRequest(freshCredentialJSON("Math")), 2000)
		if err != nil {
			t.Fatalf("app.Test() error: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("attempt %d: status = %d, want 200", i+1, resp.StatusCode)
		}
		want := "Attendance marked successfully"
		if i > 0 {
			want = "Attendance already marked for today"
		}
		if msg := decodeMessage(t, resp); msg != want {
			t.Errorf("attempt %d: message = %q, want %q", i+1, msg, want)
		}
	}

	if got := repo.recordCount(); got != 1 {
		t.Errorf("ledger has %d records, want 1", got)
	}
}

func TestMarkAttendanceRaceLosesGracefully(t *testing.T) {
	claims := studentClaims("Budi Pratama")
	repo := &fakeAttendanceRepo{hideExisting: true}
	h := NewAttendanceHandler(repo, newFakeUserRepo(), realtime.NewHub(), 5)
	app := newMarkApp(h, claims)

	// First mark lands. The second misses in the lookup (simulated race) and
	// must be caught by the insert's uniqueness check.
	for i := 0; i < 2; i++ {
		resp, err := app.Test(markRequest(freshCredentialJSON("Math")), 2000)
		if err != nil {
			t.Fatalf("app.Test() error: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("attempt %d: status = %d, want 200", i+1, resp.StatusCode)
		}
	}

	if got := repo.recordCount(); got != 1 {
		t.Errorf("ledger has %d records after racing marks, want 1", got)
	}
}

func TestMarkAttendanceConcurrentScans(t *testing.T) {
	claims := studentClaims("Budi Pratama")
	repo := &fakeAttendanceRepo{hideExisting: true}
	h := NewAttendanceHandler(repo, newFakeUserRepo(), realtime.NewHub(), 5)
	app := newMarkApp(h, claims)

	const n = 8
	payload := freshCredentialJSON("Math")

	var wg sync.WaitGroup
	statuses := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := app.Test(markRequest(payload), 5000)
			if err != nil {
				return
			}
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	for i, status := range statuses {
		if status != fiber.StatusOK {
			t.Errorf("request %d: status = %d, want 200", i, status)
		}
	}
	if got := repo.recordCount(); got != 1 {
		t.Errorf("ledger has %d records after %d concurrent scans, want 1", got, n)
	}
}

func TestMarkAttendanceStorageFailure(t *testing.T) {
	claims := studentClaims("Budi Pratama")
	repo := &fakeAttendanceRepo{insertErr: fmt.Errorf("connection reset")}
	h := NewAttendanceHandler(repo, newFakeUserRepo(), realtime.NewHub(), 5)
	app := newMarkApp(h, claims)

	resp, err := app.Test(markRequest(freshCredentialJSON("Math")), 2000)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	if msg := decodeMessage(t, resp); msg != "Server error" {
		t.Errorf("error = %q, want %q", msg, "Server error")
	}
}

func TestMarkAttendanceForbiddenForTeachers(t *testing.T) {
	claims := &paseto.Claims{
		UserID: primitive.NewObjectID(),
		Name:   "Dewi Lestari",
		Role:   models.RoleTeacher,
	}
	repo := &fakeAttendanceRepo{}
	h := NewAttendanceHandler(repo, newFakeUserRepo(), realtime.NewHub(), 5)
	app := newMarkApp(h, claims)

	resp, err := app.Test(markRequest(freshCredentialJSON("Math")), 2000)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
	if got := repo.recordCount(); got != 0 {
		t.Errorf("ledger has %d records, want 0", got)
	}
}

func TestGenerateQR(t *testing.T) {
	claims := &paseto.Claims{
		UserID: primitive.NewObjectID(),
		Name:   "Dewi Lestari",
		Role:   models.RoleTeacher,
	}
	h := NewAttendanceHandler(&fakeAttendanceRepo{}, newFakeUserRepo(), realtime.NewHub(), 5)

	app := fiber.New()
	g := app.Group("/qr", authAs(claims), middleware.RequireRole(models.RoleTeacher))
	g.Get("/generate", h.GenerateQR)

	t.Run("requires a subject", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/qr/generate", nil), 2000)
		if err != nil {
			t.Fatalf("app.Test() error: %v", err)
		}
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("returns a scannable data URL", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/qr/generate?subject=Math", nil), 2000)
		if err != nil {
			t.Fatalf("app.Test() error: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}

		body, _ := io.ReadAll(resp.Body)
		var out struct {
			QRCode  string             `json:"qrCode"`
			Payload qrtoken.Credential `json:"payload"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatalf("response is not JSON: %s", body)
		}
		if out.Payload.Subject != "Math" {
			t.Errorf("payload subject = %q, want Math", out.Payload.Subject)
		}
		if out.Payload.ExpiryMinutes != 5 {
			t.Errorf("payload expiryMinutes = %d, want 5", out.Payload.ExpiryMinutes)
		}
		if !strings.HasPrefix(out.QRCode, "data:image/png;base64,") {
			t.Errorf("qrCode = %.40q..., want a PNG data URL", out.QRCode)
		}
	})
}

func TestGetMySummary(t *testing.T) {
	claims := studentClaims("Budi Pratama")
	repo := &fakeAttendanceRepo{records: []models.Attendance{
		{StudentID: claims.UserID, Subject: "Math", Date: "2026-08-24", Status: models.StatusPresent},
		{StudentID: claims.UserID, Subject: "Math", Date: "2026-08-25", Status: models.StatusPresent},
		{StudentID: claims.UserID, Subject: "Math", Date: "2026-08-26", Status: models.StatusAbsent},
		{StudentID: claims.UserID, Subject: "Physics", Date: "2026-08-24", Status: models.StatusPresent},
	}}
	h := NewAttendanceHandler(repo, newFakeUserRepo(), realtime.NewHub(), 5)
	app := newMarkApp(h, claims)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/attendance/my/summary", nil), 2000)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var summary []models.SubjectSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		t.Fatalf("response is not JSON: %s", body)
	}

	want := []models.SubjectSummary{
		{Subject: "Math", Percentage: 67},
		{Subject: "Physics", Percentage: 100},
	}
	if len(summary) != len(want) {
		t.Fatalf("summary has %d entries, want %d: %+v", len(summary), len(want), summary)
	}
	for i := range want {
		if summary[i] != want[i] {
			t.Errorf("summary[%d] = %+v, want %+v", i, summary[i], want[i])
		}
	}
}
