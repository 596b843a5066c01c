package repository

import (
	"github.com/lshigami/Quolls/internal/model"
	"gorm.io/gorm"
)

type QuestionRepository interface {
	FindByTestID(testID uint) ([]model.Question, error)
	CountByTestID(testID uint) (int64, error)
}

type questionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) FindByTestID(testID uint) ([]model.Question, error) {
	var questions []model.Question
	if err := r.db.Preload("Options").Where("test_id = ?", testID).Order("id ASC").Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepository) CountByTestID(testID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Question{}).Where("test_id = ?", testID).Count(&count).Error
	return count, err
}
