package seeder

import (
	"context"
	"fmt"
	"log"
	"time"

	"qr-attendance-backend/models"
	"qr-attendance-backend/repository"
)

// SeedSubjects inserts the default subject catalog, skipping any that already
// exist.
func SeedSubjects(subjectRepo repository.SubjectRepository) {
	log.Println("Seeding subjects...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	subjects := []struct {
		name string
		code string
	}{
		{"Mathematics", "MATH-10"},
		{"Physics", "PHY-10"},
		{"Chemistry", "CHEM-10"},
		{"Biology", "BIO-10"},
		{"English", "ENG-10"},
		{"History", "HIST-10"},
		{"Computer Science", "CS-10"},
	}

	for _, s := range subjects {
		existing, err := subjectRepo.FindByName(ctx, s.name)
		if err == nil && existing != nil {
			fmt.Printf("Skipping: subject '%s' already exists.\n", s.name)
			continue
		}

		subject := &models.Subject{Name: s.name, Code: s.code}
		if _, err := subjectRepo.Create(ctx, subject); err != nil {
			log.Printf("failed to seed subject '%s': %v", s.name, err)
			continue
		}
		fmt.Printf("Seeded subject '%s'.\n", s.name)
	}

	log.Println("Subject seeding finished.")
}
