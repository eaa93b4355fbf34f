package postgres

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	credentialDatamodel "github.com/accessly/lock-management/internal/core/datamodel/credential"
	"github.com/accessly/lock-management/internal/credential"
)

type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// ForMethod loads every active user's credential for one method, with the
// owner's display name for audit use.
func (r *CredentialRepository) ForMethod(method credential.Method) ([]credential.OwnerCredential, error) {
	query := `SELECT c.user_id, u.name, c.code_hash
	          FROM credentials c
	          JOIN users u ON u.id = c.user_id
	          WHERE c.method = ? AND u.is_active = true`

	rows, err := r.db.Raw(query, string(method)).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []credential.OwnerCredential
	for rows.Next() {
		var c credential.OwnerCredential
		if err := rows.Scan(&c.UserID, &c.Name, &c.CodeHash); err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

// Upsert replaces the hash for (user, method), inserting on first rotation.
func (r *CredentialRepository) Upsert(userID int64, method credential.Method, codeHash string) error {
	row := &credentialDatamodel.Credential{
		UserID:   userID,
		Method:   string(method),
		CodeHash: codeHash,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "method"}},
		DoUpdates: clause.AssignmentColumns([]string{"code_hash", "updated_at"}),
	}).Create(row).Error
}

func (r *CredentialRepository) UserExists(userID int64) (bool, error) {
	var count int64
	if err := r.db.Table("users").Where("id = ?", userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
