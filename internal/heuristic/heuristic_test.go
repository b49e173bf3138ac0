package heuristic

import (
	"strings"
	"testing"
	"time"

	"github.com/anatolykoptev/go_crawler/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestScoreEmptyKeywordsIsZero(t *testing.T) {
	doc := model.Document{Title: "Something", Body: "golang crawler", WordCount: 2}
	assert.Equal(t, 0.0, Score(doc, nil))
}

func TestScoreRewardsTitleAndBodyMatches(t *testing.T) {
	doc := model.Document{
		Title:     "The Golang Crawler Guide",
		Body:      strings.Repeat("golang crawler ", 50),
		WordCount: 100,
	}
	score := Score(doc, []string{"golang", "crawler"})
	assert.Greater(t, score, 0.5)
	assert.LessOrEqual(t, score, 1.0)
}

func TestScoreFreshnessTiers(t *testing.T) {
	kw := []string{"golang"}
	recent := time.Now().Add(-10 * 24 * time.Hour)
	old := time.Now().Add(-400 * 24 * time.Hour)

	fresh := model.Document{Title: "golang news today", Body: "golang", WordCount: 1, PublishDate: &recent}
	stale := model.Document{Title: "golang news today", Body: "golang", WordCount: 1, PublishDate: &old}

	assert.Greater(t, Score(fresh, kw), Score(stale, kw))
}

func TestScoreShortTitlePenalty(t *testing.T) {
	kw := []string{"golang"}
	short := model.Document{Title: "golang", Body: "golang content here", WordCount: 3}
	long := model.Document{Title: "golang programming guide", Body: "golang content here", WordCount: 3}
	assert.Less(t, Score(short, kw), Score(long, kw))
}

func TestScoreClampedToOne(t *testing.T) {
	kw := []string{"golang"}
	recent := time.Now().Add(-24 * time.Hour)
	doc := model.Document{
		Title:       "golang golang golang golang golang golang",
		Body:        strings.Repeat("golang ", 2000),
		WordCount:   2000,
		PublishDate: &recent,
	}
	assert.Equal(t, 1.0, Score(doc, kw))
}
