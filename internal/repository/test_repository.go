package repository

import (
	"github.com/lshigami/Quolls/internal/model"
	"gorm.io/gorm"
)

type TestRepository interface {
	Create(test *model.Test) error
	FindByID(id uint) (*model.Test, error)
	FindByIDWithQuestions(id uint) (*model.Test, error)
	// FindEnabledByIDWithQuestions applies the student visibility gate: a
	// DISABLED test is indistinguishable from a missing one.
	FindEnabledByIDWithQuestions(id uint) (*model.Test, error)
	FindAllEnabledWithQuestionCount() ([]TestWithQuestionCount, error)
	UpdateStatus(id uint, status string) error
}

type TestWithQuestionCount struct {
	model.Test
	QuestionCount int
}

type testRepository struct {
	db *gorm.DB
}

func NewTestRepository(db *gorm.DB) TestRepository {
	return &testRepository{db: db}
}

func (r *testRepository) Create(test *model.Test) error {
	// GORM creates the associated questions and options along with the test.
	return r.db.Create(test).Error
}

func (r *testRepository) FindByID(id uint) (*model.Test, error) {
	var test model.Test
	err := r.db.First(&test, id).Error
	return &test, err
}

func (r *testRepository) FindByIDWithQuestions(id uint) (*model.Test, error) {
	var test model.Test
	err := r.db.Preload("Questions.Options").First(&test, id).Error
	return &test, err
}

func (r *testRepository) FindEnabledByIDWithQuestions(id uint) (*model.Test, error) {
	var test model.Test
	err := r.db.Preload("Questions.Options").
		Where("status = ?", model.TestStatusEnabled).
		First(&test, id).Error
	return &test, err
}

func (r *testRepository) FindAllEnabledWithQuestionCount() ([]TestWithQuestionCount, error) {
	var results []TestWithQuestionCount
	err := r.db.Model(&model.Test{}).
		Select("tests.*, (SELECT COUNT(*) FROM questions WHERE questions.test_id = tests.id AND questions.deleted_at IS NULL) as question_count").
		Where("tests.status = ?", model.TestStatusEnabled).
		Where("tests.deleted_at IS NULL").
		Order("tests.created_at DESC").
		Scan(&results).Error
	return results, err
}

func (r *testRepository) UpdateStatus(id uint, status string) error {
	res := r.db.Model(&model.Test{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
