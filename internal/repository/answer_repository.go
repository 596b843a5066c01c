package repository

import (
	"github.com/lshigami/Quolls/internal/model"
	"gorm.io/gorm"
)

type AnswerRepository interface {
	CreateBatch(tx *gorm.DB, answers []model.Answer) error
	DeleteByAttemptIDs(tx *gorm.DB, attemptIDs []uint) error
}

type answerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) CreateBatch(tx *gorm.DB, answers []model.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	return tx.Create(&answers).Error
}

func (r *answerRepository) DeleteByAttemptIDs(tx *gorm.DB, attemptIDs []uint) error {
	if len(attemptIDs) == 0 {
		return nil
	}
	return tx.Where("attempt_id IN ?", attemptIDs).Delete(&model.Answer{}).Error
}
