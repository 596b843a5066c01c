package service

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lshigami/Quolls/internal/dto"
	"github.com/lshigami/Quolls/internal/model"
	"github.com/lshigami/Quolls/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()
	if os.Getenv("QUOLLS_INTEGRATION") != "1" {
		t.Skip("set QUOLLS_INTEGRATION=1 to run integration tests")
	}
	dsn := os.Getenv("QUOLLS_TEST_DSN")
	if strings.TrimSpace(dsn) == "" {
		dsn = "host=localhost port=5432 user=postgres password=postgres dbname=quolls_test sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Test{}, &model.Question{}, &model.Option{}, &model.Attempt{}, &model.Answer{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

type integrationFixture struct {
	db      *gorm.DB
	svc     AttemptService
	user    model.User
	test    model.Test
	correct map[uint]uint // questionID -> correct optionID
}

func newIntegrationFixture(t *testing.T) *integrationFixture {
	t.Helper()
	db := openIntegrationDB(t)

	suffix := time.Now().UnixNano()
	user := model.User{
		Username:  fmt.Sprintf("itest_student_%d", suffix),
		Email:     fmt.Sprintf("itest_%d@example.test", suffix),
		Password:  "not-a-real-hash",
		FirstName: "Integration",
		LastName:  "Student",
		Role:      model.RoleStudent,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	test := model.Test{
		Title:        fmt.Sprintf("ITEST %d", suffix),
		DurationMins: 60,
		Status:       model.TestStatusEnabled,
		Questions: []model.Question{
			{Text: "2+2?", Options: []model.Option{
				{Text: "3"}, {Text: "4", IsCorrect: true}, {Text: "5"},
			}},
			{Text: "Capital of France?", Options: []model.Option{
				{Text: "Paris", IsCorrect: true}, {Text: "Lyon"},
			}},
		},
	}
	if err := db.Create(&test).Error; err != nil {
		t.Fatalf("seed test: %v", err)
	}

	correct := make(map[uint]uint)
	for _, q := range test.Questions {
		for _, o := range q.Options {
			if o.IsCorrect {
				correct[q.ID] = o.ID
			}
		}
	}

	t.Cleanup(func() {
		db.Where("user_id = ?", user.ID).Delete(&model.Answer{})
		db.Where("user_id = ?", user.ID).Delete(&model.Attempt{})
		db.Unscoped().Where("question_id IN (?)", db.Model(&model.Question{}).Select("id").Where("test_id = ?", test.ID)).Delete(&model.Option{})
		db.Unscoped().Where("test_id = ?", test.ID).Delete(&model.Question{})
		db.Unscoped().Delete(&model.Test{}, test.ID)
		db.Unscoped().Delete(&model.User{}, user.ID)
	})

	svc := NewAttemptService(
		repository.NewTestRepository(db),
		repository.NewQuestionRepository(db),
		repository.NewAttemptRepository(db),
		repository.NewAnswerRepository(db),
		NewGradingService(),
		db,
	)
	return &integrationFixture{db: db, svc: svc, user: user, test: test, correct: correct}
}

func TestInitiateResumesWithOriginalStart_DBIntegration(t *testing.T) {
	fx := newIntegrationFixture(t)

	first, err := fx.svc.Initiate(fx.user.ID, fx.test.ID)
	if err != nil {
		t.Fatalf("first initiate: %v", err)
	}
	if first.Resumed {
		t.Fatal("first initiate reported resumed")
	}

	second, err := fx.svc.Initiate(fx.user.ID, fx.test.ID)
	if err != nil {
		t.Fatalf("second initiate: %v", err)
	}
	if !second.Resumed {
		t.Fatal("second initiate did not report resumed")
	}
	if second.AttemptID != first.AttemptID {
		t.Fatalf("attempt id changed across initiates: %d then %d", first.AttemptID, second.AttemptID)
	}
	if !second.StartedAt.Equal(first.StartedAt) {
		t.Fatalf("started_at changed on resume: %v then %v", first.StartedAt, second.StartedAt)
	}
	if second.TimeRemaining > first.TimeRemaining {
		t.Fatalf("remaining time grew on resume: %d then %d", first.TimeRemaining, second.TimeRemaining)
	}
}

func TestInitiateConcurrent_SingleAttemptRow_DBIntegration(t *testing.T) {
	fx := newIntegrationFixture(t)

	const workers = 8
	ids := make([]uint, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := fx.svc.Initiate(fx.user.ID, fx.test.ID)
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = resp.AttemptID
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
	}
	for i := 1; i < workers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("workers observed different attempt ids: %v", ids)
		}
	}

	var count int64
	if err := fx.db.Model(&model.Attempt{}).
		Where("user_id = ? AND test_id = ?", fx.user.ID, fx.test.ID).
		Count(&count).Error; err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 attempt row, got %d", count)
	}
}

func TestSaveProgressConcurrent_DisjointKeysBothLand_DBIntegration(t *testing.T) {
	fx := newIntegrationFixture(t)

	init, err := fx.svc.Initiate(fx.user.ID, fx.test.ID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	// Two writers each saving one distinct question, many times over. A
	// read-merge-write would let one overwrite the other; the jsonb merge
	// must keep both keys every round.
	qids := make([]uint, 0, len(fx.correct))
	for qid := range fx.correct {
		qids = append(qids, qid)
	}
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			sheet := map[string]uint{fmt.Sprint(qids[w]): fx.correct[qids[w]]}
			for i := 0; i < 20; i++ {
				if err := fx.svc.SaveProgress(fx.user.ID, fx.test.ID, init.AttemptID, dto.SaveProgressRequest{Answers: sheet}); err != nil {
					errs[w] = err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	for w, err := range errs {
		if err != nil {
			t.Fatalf("writer %d: %v", w, err)
		}
	}

	resumed, err := fx.svc.Initiate(fx.user.ID, fx.test.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	for _, qid := range qids {
		got, ok := resumed.Answers[fmt.Sprint(qid)]
		if !ok {
			t.Fatalf("question %d missing from the merged sheet: %v", qid, resumed.Answers)
		}
		if got != fx.correct[qid] {
			t.Fatalf("question %d = option %d, want %d", qid, got, fx.correct[qid])
		}
	}
}

func TestSubmitLifecycle_DBIntegration(t *testing.T) {
	fx := newIntegrationFixture(t)

	init, err := fx.svc.Initiate(fx.user.ID, fx.test.ID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	// Answer Q1 correctly, Q2 wrong.
	sheet := make(map[string]uint)
	qids := make([]uint, 0, len(fx.correct))
	for qid := range fx.correct {
		qids = append(qids, qid)
	}
	sheet[fmt.Sprint(qids[0])] = fx.correct[qids[0]]
	var wrongOption model.Option
	if err := fx.db.Where("question_id = ? AND is_correct = ?", qids[1], false).First(&wrongOption).Error; err != nil {
		t.Fatalf("load wrong option: %v", err)
	}
	sheet[fmt.Sprint(qids[1])] = wrongOption.ID

	if err := fx.svc.SaveProgress(fx.user.ID, fx.test.ID, init.AttemptID, dto.SaveProgressRequest{Answers: sheet}); err != nil {
		t.Fatalf("save progress: %v", err)
	}

	resumed, err := fx.svc.Initiate(fx.user.ID, fx.test.ID)
	if err != nil {
		t.Fatalf("resume after save: %v", err)
	}
	if len(resumed.Answers) != 2 {
		t.Fatalf("resume returned %d answers, want 2", len(resumed.Answers))
	}

	resp, err := fx.svc.Submit(fx.user.ID, fx.test.ID, init.AttemptID, dto.SubmitRequest{Answers: sheet})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.Score != 1 || resp.TotalQuestions != 2 {
		t.Fatalf("score = %d/%d, want 1/2", resp.Score, resp.TotalQuestions)
	}
	if resp.Percentage != 50 {
		t.Fatalf("percentage = %v, want 50", resp.Percentage)
	}

	// Completed is terminal for every write path.
	if _, err := fx.svc.Submit(fx.user.ID, fx.test.ID, init.AttemptID, dto.SubmitRequest{Answers: sheet}); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("second submit: error = %v, want ErrAlreadyCompleted", err)
	}
	if err := fx.svc.SaveProgress(fx.user.ID, fx.test.ID, init.AttemptID, dto.SaveProgressRequest{Answers: sheet}); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("save after submit: error = %v, want ErrAlreadyCompleted", err)
	}
	if _, err := fx.svc.Initiate(fx.user.ID, fx.test.ID); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("initiate after submit: error = %v, want ErrAlreadyCompleted", err)
	}

	var answerRows int64
	if err := fx.db.Model(&model.Answer{}).Where("attempt_id = ?", init.AttemptID).Count(&answerRows).Error; err != nil {
		t.Fatalf("count answer rows: %v", err)
	}
	if answerRows != 2 {
		t.Fatalf("expected 2 answer audit rows, got %d", answerRows)
	}
}

func TestReset_AllowsFreshAttempt_DBIntegration(t *testing.T) {
	fx := newIntegrationFixture(t)

	first, err := fx.svc.Initiate(fx.user.ID, fx.test.ID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	sheet := make(map[string]uint)
	for qid, oid := range fx.correct {
		sheet[fmt.Sprint(qid)] = oid
	}
	if _, err := fx.svc.Submit(fx.user.ID, fx.test.ID, first.AttemptID, dto.SubmitRequest{Answers: sheet}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := fx.svc.Reset(fx.test.ID, fx.user.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}

	var leftover int64
	if err := fx.db.Model(&model.Answer{}).Where("attempt_id = ?", first.AttemptID).Count(&leftover).Error; err != nil {
		t.Fatalf("count leftover answers: %v", err)
	}
	if leftover != 0 {
		t.Fatalf("reset left %d answer rows behind", leftover)
	}

	fresh, err := fx.svc.Initiate(fx.user.ID, fx.test.ID)
	if err != nil {
		t.Fatalf("initiate after reset: %v", err)
	}
	if fresh.Resumed {
		t.Fatal("attempt after reset reported resumed")
	}
	if fresh.AttemptID == first.AttemptID {
		t.Fatal("attempt after reset reused the old row")
	}
	if !fresh.StartedAt.After(first.StartedAt) {
		t.Fatalf("fresh attempt started_at %v is not after original %v", fresh.StartedAt, first.StartedAt)
	}
	if len(fresh.Answers) != 0 {
		t.Fatalf("fresh attempt carried %d answers", len(fresh.Answers))
	}
}
