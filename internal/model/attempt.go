package model

import (
	"strconv"
	"time"

	"gorm.io/datatypes"
)

// Attempt is one user's single run at one test. The composite unique index is
// what makes Initiate safe against duplicate tabs: two concurrent inserts for
// the same (user, test) collapse to one row at the database layer.
//
// StartedAt is the authoritative clock anchor. TimeRemaining is an advisory
// cache written by the client for UI continuity; remaining time is always
// recomputed as durationMins*60 - (now - StartedAt).
//
// No soft delete here: an admin reset must genuinely free the (user, test)
// slot, otherwise the unique index would keep blocking a fresh attempt.
type Attempt struct {
	ID            uint              `gorm:"primarykey" json:"id"`
	UserID        uint              `json:"user_id" gorm:"not null;uniqueIndex:idx_attempts_user_test"`
	TestID        uint              `json:"test_id" gorm:"not null;uniqueIndex:idx_attempts_user_test"`
	User          User              `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Test          Test              `json:"test,omitempty" gorm:"foreignKey:TestID"`
	StartedAt     time.Time         `json:"started_at" gorm:"not null"`
	Answers       datatypes.JSONMap `json:"answers"`        // in-progress sheet: questionID -> optionID
	TimeRemaining int               `json:"time_remaining"` // advisory seconds, never authoritative
	CompletedAt   *time.Time        `json:"completed_at,omitempty"` // nil = in progress; set exactly once
	Score         *int              `json:"score,omitempty"`        // raw correct count, frozen at submit
	AnswerRecords []Answer          `json:"answer_records,omitempty" gorm:"foreignKey:AttemptID"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (a Attempt) Completed() bool {
	return a.CompletedAt != nil
}

// AnswerMap converts the JSON sheet into typed question -> option pairs.
// Entries with unparseable keys or values are dropped rather than failing.
func (a Attempt) AnswerMap() map[uint]uint {
	out := make(map[uint]uint, len(a.Answers))
	for k, v := range a.Answers {
		qid, err := strconv.ParseUint(k, 10, 32)
		if err != nil {
			continue
		}
		switch opt := v.(type) {
		case float64: // JSON numbers decode as float64
			out[uint(qid)] = uint(opt)
		case int:
			out[uint(qid)] = uint(opt)
		case string:
			oid, err := strconv.ParseUint(opt, 10, 32)
			if err == nil {
				out[uint(qid)] = uint(oid)
			}
		}
	}
	return out
}

// ToJSONMap is the inverse of AnswerMap, used when persisting a typed sheet.
func ToJSONMap(answers map[uint]uint) datatypes.JSONMap {
	m := make(datatypes.JSONMap, len(answers))
	for qid, oid := range answers {
		m[strconv.FormatUint(uint64(qid), 10)] = float64(oid)
	}
	return m
}
