package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Hrishi-524/Quiz-Burst/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryValidates(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(map[string]domain.Quiz{
		"empty": {ID: "empty"},
		"bad-index": {ID: "bad-index", Questions: []domain.Question{
			{Text: "q", Options: []domain.Option{{Text: "a"}}, CorrectOptionIndex: 3},
		}},
	}), time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "empty"); !errors.Is(err, domain.ErrQuizEmpty) {
		t.Fatalf("expected ErrQuizEmpty, got %v", err)
	}
	if _, err := repo.GetQuiz(context.Background(), "bad-index"); err == nil {
		t.Fatalf("expected out-of-range correct index to fail")
	}
	if _, err := repo.GetQuiz(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Sample",
		Questions: []domain.Question{
			{
				Text:               "What is 2 + 2?",
				Options:            []domain.Option{{Text: "3"}, {Text: "4"}, {Text: "5"}, {Text: "6"}},
				CorrectOptionIndex: 1,
				TimeLimitSeconds:   30,
				Points:             1000,
			},
		},
	}
}
