package seeder

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"qr-attendance-backend/models"
	"qr-attendance-backend/repository"
)

// SeedUsers inserts a demo admin, teachers, and a class of students. Existing
// accounts are left untouched so the seeder is safe to rerun.
func SeedUsers(userRepo repository.UserRepository) {
	log.Println("Seeding users...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("Password123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash seed password: %v", err)
	}

	seedOne := func(name, email, role, className string) {
		existing, err := userRepo.FindUserByEmail(ctx, email)
		if err == nil && existing != nil {
			fmt.Printf("Skipping: user %s already exists.\n", email)
			return
		}

		user := &models.User{
			Name:      name,
			Email:     email,
			Password:  string(hashedPassword),
			Role:      role,
			ClassName: className,
		}
		if _, err := userRepo.CreateUser(ctx, user); err != nil {
			log.Printf("failed to seed user %s: %v", email, err)
			return
		}
		fmt.Printf("Seeded user %s (%s).\n", email, role)
	}

	seedOne("Site Admin", "admin@school.test", models.RoleAdmin, "")

	teachers := []struct {
		name  string
		email string
	}{
		{"Dewi Lestari", "dewi.lestari@school.test"},
		{"Agus Santoso", "agus.santoso@school.test"},
	}
	for _, t := range teachers {
		seedOne(t.name, t.email, models.RoleTeacher, "")
	}

	students := []struct {
		name  string
		email string
	}{
		{"Budi Pratama", "budi.pratama@school.test"},
		{"Siti Rahayu", "siti.rahayu@school.test"},
		{"Rina Wijaya", "rina.wijaya@school.test"},
		{"Andi Saputra", "andi.saputra@school.test"},
		{"Maya Handayani", "maya.handayani@school.test"},
		{"Fajar Nugroho", "fajar.nugroho@school.test"},
		{"Putri Utami", "putri.utami@school.test"},
		{"Rizky Gunawan", "rizky.gunawan@school.test"},
	}
	for _, s := range students {
		seedOne(s.name, s.email, models.RoleStudent, "10-A")
	}

	log.Println("User seeding finished.")
}
