package repository

import (
	"github.com/lshigami/Quolls/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository interface {
	// CreateIfAbsent inserts the attempt unless a row for its (user, test)
	// pair already exists, in which case the insert is a silent no-op. This
	// is the one atomic primitive the lifecycle depends on: two concurrent
	// Initiate calls must never produce two rows.
	CreateIfAbsent(attempt *model.Attempt) error
	FindByUserAndTest(userID, testID uint) (*model.Attempt, error)
	FindByID(id uint) (*model.Attempt, error)
	// FindByIDForUpdate takes a row lock inside tx so that only one finalize
	// transition can ever win.
	FindByIDForUpdate(tx *gorm.DB, id uint) (*model.Attempt, error)
	// MergeProgress folds the incoming keys into the stored answer sheet with
	// a jsonb concatenation, so the merge is last-writer-wins per question key
	// and two concurrent saves with disjoint keys both land. Guarded by
	// completed_at IS NULL; returns the number of rows touched so callers can
	// distinguish "already completed" from success.
	MergeProgress(id uint, userID uint, answers datatypes.JSONMap, timeRemaining *int) (int64, error)
	FindAllByTestWithUser(testID uint) ([]model.Attempt, error)
	FindIDsByUserAndTest(tx *gorm.DB, userID, testID uint) ([]uint, error)
	DeleteByUserAndTest(tx *gorm.DB, userID, testID uint) error
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) CreateIfAbsent(attempt *model.Attempt) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "test_id"}},
		DoNothing: true,
	}).Create(attempt).Error
}

func (r *attemptRepository) FindByUserAndTest(userID, testID uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.db.Where("user_id = ? AND test_id = ?", userID, testID).First(&attempt).Error
	return &attempt, err
}

func (r *attemptRepository) FindByID(id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.db.First(&attempt, id).Error
	return &attempt, err
}

func (r *attemptRepository) FindByIDForUpdate(tx *gorm.DB, id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&attempt, id).Error
	return &attempt, err
}

func (r *attemptRepository) MergeProgress(id uint, userID uint, answers datatypes.JSONMap, timeRemaining *int) (int64, error) {
	updates := map[string]interface{}{
		"answers": gorm.Expr("COALESCE(answers, '{}'::jsonb) || ?::jsonb", answers),
	}
	if timeRemaining != nil {
		updates["time_remaining"] = *timeRemaining
	}
	res := r.db.Model(&model.Attempt{}).
		Where("id = ? AND user_id = ? AND completed_at IS NULL", id, userID).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *attemptRepository) FindAllByTestWithUser(testID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.db.Preload("User").Preload("AnswerRecords").
		Where("test_id = ?", testID).
		Order("completed_at DESC NULLS LAST, started_at DESC").
		Find(&attempts).Error
	return attempts, err
}

func (r *attemptRepository) FindIDsByUserAndTest(tx *gorm.DB, userID, testID uint) ([]uint, error) {
	var ids []uint
	err := tx.Model(&model.Attempt{}).
		Where("user_id = ? AND test_id = ?", userID, testID).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *attemptRepository) DeleteByUserAndTest(tx *gorm.DB, userID, testID uint) error {
	return tx.Where("user_id = ? AND test_id = ?", userID, testID).Delete(&model.Attempt{}).Error
}
