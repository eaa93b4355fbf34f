package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormPostgres "gorm.io/driver/postgres"
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
		db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to open gorm connection: %v", err)
		}

		if clearData {
			for _, table := range []string{
				"access_logs", "reservations", "lock_permissions", "credentials",
				"lock_group_members", "user_groups", "lock_groups", "groups", "locks", "users",
			} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		adminID := seedUser(db, "admin@accessly.dev", "Site Admin", string(hash), true)
		memberID := seedUser(db, "renata@accessly.dev", "Renata Vos", string(hash), false)
		_ = adminID

		staffGroupID := seedGroup(db, "staff")
		if err := db.Exec("INSERT INTO user_groups (user_id, group_id) SELECT ?, ? WHERE NOT EXISTS (SELECT 1 FROM user_groups WHERE user_id = ? AND group_id = ?)",
			memberID, staffGroupID, memberID, staffGroupID).Error; err != nil {
			log.Fatalf("failed to add member to staff group: %v", err)
		}

		frontDoorID := seedLock(db, "Front Door", "main entrance", false)
		labID := seedLock(db, "Lab", "research lab, bookable per slot", true)
		_ = labID

		perimeterID := seedLockGroup(db, "perimeter")
		if err := db.Exec("INSERT INTO lock_group_members (lock_id, lock_group_id) SELECT ?, ? WHERE NOT EXISTS (SELECT 1 FROM lock_group_members WHERE lock_id = ? AND lock_group_id = ?)",
			frontDoorID, perimeterID, frontDoorID, perimeterID).Error; err != nil {
			log.Fatalf("failed to add front door to perimeter group: %v", err)
		}

		// open-ended grant: staff group can open the perimeter locks
		if err := db.Exec(`INSERT INTO lock_permissions (group_id, lock_group_id, created_at, updated_at)
			SELECT ?, ?, now(), now()
			WHERE NOT EXISTS (SELECT 1 FROM lock_permissions WHERE group_id = ? AND lock_group_id = ?)`,
			staffGroupID, perimeterID, staffGroupID, perimeterID).Error; err != nil {
			log.Fatalf("failed to seed staff grant: %v", err)
		}

		seedCredential(db, memberID, "keypad", "482913")
		seedCredential(db, memberID, "badge", "1f6a9f3cd1f0d1a24be4a0f2f6f2b6a77c3e9d4f5a6b7c8d9e0f1a2b3c4d5e6f")

		fmt.Println("Seed data applied. Dev keypad code for renata@accessly.dev: 482913")
	},
}

func seedUser(db *gorm.DB, email, name, passwordHash string, isAdmin bool) int64 {
	var id int64
	if err := db.Raw("SELECT id FROM users WHERE email = ?", email).Row().Scan(&id); err == nil {
		fmt.Println("user already exists:", email)
		return id
	}
	if err := db.Exec("INSERT INTO users (email, name, password_hash, is_active, is_admin, created_at, updated_at) VALUES (?, ?, ?, true, ?, now(), now())",
		email, name, passwordHash, isAdmin).Error; err != nil {
		log.Fatalf("failed to insert user %s: %v", email, err)
	}
	if err := db.Raw("SELECT id FROM users WHERE email = ?", email).Row().Scan(&id); err != nil {
		log.Fatalf("failed to lookup user %s: %v", email, err)
	}
	fmt.Println("Seeded user:", email)
	return id
}

func seedGroup(db *gorm.DB, name string) int64 {
	var id int64
	if err := db.Raw("SELECT id FROM groups WHERE name = ?", name).Row().Scan(&id); err == nil {
		return id
	}
	if err := db.Exec("INSERT INTO groups (name, created_at) VALUES (?, now())", name).Error; err != nil {
		log.Fatalf("failed to insert group %s: %v", name, err)
	}
	if err := db.Raw("SELECT id FROM groups WHERE name = ?", name).Row().Scan(&id); err != nil {
		log.Fatalf("failed to lookup group %s: %v", name, err)
	}
	fmt.Println("Seeded group:", name)
	return id
}

func seedLock(db *gorm.DB, name, description string, reservable bool) int64 {
	var id int64
	if err := db.Raw("SELECT id FROM locks WHERE name = ?", name).Row().Scan(&id); err == nil {
		return id
	}
	if err := db.Exec("INSERT INTO locks (name, description, status, is_reservable, keypad_enabled, badge_enabled, created_at, updated_at) VALUES (?, ?, 'disconnected', ?, true, true, now(), now())",
		name, description, reservable).Error; err != nil {
		log.Fatalf("failed to insert lock %s: %v", name, err)
	}
	if err := db.Raw("SELECT id FROM locks WHERE name = ?", name).Row().Scan(&id); err != nil {
		log.Fatalf("failed to lookup lock %s: %v", name, err)
	}
	fmt.Println("Seeded lock:", name)
	return id
}

func seedLockGroup(db *gorm.DB, name string) int64 {
	var id int64
	if err := db.Raw("SELECT id FROM lock_groups WHERE name = ?", name).Row().Scan(&id); err == nil {
		return id
	}
	if err := db.Exec("INSERT INTO lock_groups (name, created_at) VALUES (?, now())", name).Error; err != nil {
		log.Fatalf("failed to insert lock group %s: %v", name, err)
	}
	if err := db.Raw("SELECT id FROM lock_groups WHERE name = ?", name).Row().Scan(&id); err != nil {
		log.Fatalf("failed to lookup lock group %s: %v", name, err)
	}
	fmt.Println("Seeded lock group:", name)
	return id
}

func seedCredential(db *gorm.DB, userID int64, method, rawCode string) {
	var exists int
	if err := db.Raw("SELECT 1 FROM credentials WHERE user_id = ? AND method = ?", userID, method).Row().Scan(&exists); err == nil {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(rawCode), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash %s code: %v", method, err)
	}
	if err := db.Exec("INSERT INTO credentials (user_id, method, code_hash, created_at, updated_at) VALUES (?, ?, ?, now(), now())",
		userID, method, string(hash)).Error; err != nil {
		log.Fatalf("failed to insert %s credential: %v", method, err)
	}
	fmt.Printf("Seeded %s credential for user %d\n", method, userID)
}
