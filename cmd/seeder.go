package cmd

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := initGorm(sqlDB)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if clearData {
			clearSeedData(db)
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		adminID := seedUser(db, "admin@docgen.local", "System Admin", string(hash))
		seedUser(db, "dev@docgen.local", "Dev User", string(hash))

		ensureSystemRole(db, adminID, "system_administrator", adminID)

		fmt.Println("Seed complete (password for all users: password)")
	},
}

// seedUser inserts the user if absent and returns its id either way.
func seedUser(db *gorm.DB, email, displayName, passwordHash string) string {
	var id string
	row := db.Raw("SELECT id FROM users WHERE email = ?", email).Row()
	if err := row.Scan(&id); err == nil {
		fmt.Printf("user %s already exists\n", email)
		return id
	}

	id = uuid.NewString()
	if err := db.Exec(
		"INSERT INTO users (id, email, display_name, password_hash, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, true, now(), now())",
		id, email, displayName, passwordHash,
	).Error; err != nil {
		log.Fatalf("failed to insert user %s: %v", email, err)
	}
	fmt.Println("Seeded user:", email)
	return id
}

// ensureSystemRole grants the role unless an active grant already exists.
// Grants are append-only, so a stale grant is deactivated rather than deleted.
func ensureSystemRole(db *gorm.DB, userID, roleType, grantedBy string) {
	var exists int
	row := db.Raw(
		"SELECT 1 FROM system_roles WHERE user_id = ? AND role_type = ? AND is_active",
		userID, roleType,
	).Row()
	if err := row.Scan(&exists); err == nil {
		fmt.Printf("system role %s already active for %s\n", roleType, userID)
		return
	}

	if err := db.Exec(
		"UPDATE system_roles SET is_active = false WHERE user_id = ? AND role_type = ? AND is_active",
		userID, roleType,
	).Error; err != nil {
		log.Fatalf("failed to deactivate stale system role: %v", err)
	}

	if err := db.Exec(
		"INSERT INTO system_roles (id, user_id, role_type, granted_at, granted_by, is_active) VALUES (?, ?, ?, now(), ?, true)",
		uuid.NewString(), userID, roleType, grantedBy,
	).Error; err != nil {
		log.Fatalf("failed to grant system role %s: %v", roleType, err)
	}
	fmt.Println("Granted system role:", roleType)
}

func clearSeedData(db *gorm.DB) {
	// Child tables first to satisfy foreign keys.
	tables := []string{
		"workflow_histories",
		"review_assignments",
		"review_workflows",
		"document_versions",
		"design_documents",
		"template_parameters",
		"templates",
		"environment_user_roles",
		"project_user_roles",
		"system_roles",
		"environments",
		"projects",
		"users",
	}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			log.Fatalf("failed to clear table %s: %v", table, err)
		}
	}
	fmt.Println("Cleared existing data")
}
