package search

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/beanwork/pkg/model"
	"github.com/vanderheijden86/beanwork/pkg/ordering"
	"github.com/vanderheijden86/beanwork/pkg/testutil"
)

func TestRankTitleAboveBody(t *testing.T) {
	beans := []model.Bean{
		{ID: "x2", Title: "Refactor session store", Body: "The client uses auth token caching", Status: model.StatusTodo, Type: model.TypeTask},
		{ID: "x1", Title: "Fix auth bug", Status: model.StatusTodo, Type: model.TypeBug},
	}
	ranked := Rank(beans, "auth", nil)
	testutil.AssertIDs(t, ranked, "x1", "x2")

	if got := Score(&beans[1], "auth"); got != TitleSubstring {
		t.Errorf("x1 score = %d, want %d", got, TitleSubstring)
	}
	if got := Score(&beans[0], "auth"); got != BodyMatch {
		t.Errorf("x2 score = %d, want %d", got, BodyMatch)
	}
	if beans[0].ID != "x2" {
		t.Error("Rank reordered its input")
	}
}

func TestExactIDBeatsBodyMatch(t *testing.T) {
	byID := model.Bean{ID: "beans-abc1", Title: "unrelated"}
	byBody := model.Bean{ID: "beans-zzz9", Title: "other", Body: "see beans-abc1 for context"}

	if a, b := Score(&byID, "beans-abc1"), Score(&byBody, "beans-abc1"); a <= b {
		t.Errorf("exact id scored %d, body-only %d", a, b)
	}
}

func TestScoreTiers(t *testing.T) {
	b := model.Bean{
		ID:       "beans-k3m9",
		Title:    "Login",
		Body:     "login page",
		Status:   model.StatusInProgress,
		Type:     model.TypeFeature,
		Priority: model.PriorityHigh,
		Tags:     []string{"login-flow", "login"},
	}
	tests := []struct {
		query string
		want  int
	}{
		{"beans-k3m9", IdentityExact},
		{"k3m9", IdentityExact}, // short code
		{"BEANS-K3", IdentityPrefix},
		{"3m", IdentitySubstring},
		{"login", TitleExact + BodyMatch + TagMatch},
		{"log", TitlePrefix + BodyMatch + TagMatch},
		{"ogi", TitleSubstring + BodyMatch + TagMatch},
		{"page", BodyMatch},
		{"progress", MetadataMatch},
		{"e", IdentitySubstring + BodyMatch + MetadataMatch}, // metadata counts once
		{"   ", 0},
		{"nomatch", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := Score(&b, tt.query); got != tt.want {
				t.Errorf("Score(%q) = %d, want %d", tt.query, got, tt.want)
			}
		})
	}
}

func TestUnsetPriorityMatchesNormal(t *testing.T) {
	b := model.Bean{ID: "a", Title: "x"}
	if got := Score(&b, "normal"); got != MetadataMatch {
		t.Errorf("score = %d, want %d", got, MetadataMatch)
	}
}

func TestScoresInactiveQuery(t *testing.T) {
	if s := Scores([]model.Bean{{ID: "a"}}, "  "); s != nil {
		t.Errorf("blank query should disable scoring, got %v", s)
	}
	beans := []model.Bean{{ID: "b"}, {ID: "a"}}
	testutil.AssertIDs(t, Rank(beans, "", nil), "b", "a")
}

func TestRankTiesUseComparator(t *testing.T) {
	beans := []model.Bean{
		{ID: "c", Title: "auth"},
		{ID: "a", Title: "auth"},
		{ID: "b", Title: "nothing"},
	}
	less, _ := ordering.Comparator(ordering.ModeID)
	testutil.AssertIDs(t, Rank(beans, "auth", less), "a", "c", "b")
}

func TestCustomWeights(t *testing.T) {
	w := DefaultWeights()
	w.Body = 5000
	s := NewScorer(w)
	beans := []model.Bean{
		{ID: "x1", Title: "auth"},
		{ID: "x2", Title: "other", Body: "auth"},
	}
	testutil.AssertIDs(t, s.Rank(beans, "auth", nil), "x2", "x1")
}

func TestParseWeightsJSON(t *testing.T) {
	w, err := ParseWeightsJSON(`{"body": 40, "tag": 0}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Body != 40 || w.Tag != 0 || w.IdentityExact != IdentityExact {
		t.Errorf("weights = %+v", w)
	}

	for _, raw := range []string{`{"pagerank": 1}`, `{"body": -1}`, `not json`} {
		if _, err := ParseWeightsJSON(raw); err == nil {
			t.Errorf("ParseWeightsJSON(%s) should fail", raw)
		}
	}
}

func TestWeightsFromEnv(t *testing.T) {
	t.Setenv(EnvSearchWeights, "")
	w, err := WeightsFromEnv()
	if err != nil || w != DefaultWeights() {
		t.Errorf("empty env should give defaults: %+v, %v", w, err)
	}

	t.Setenv(EnvSearchWeights, `{"title_exact": 999}`)
	w, err = WeightsFromEnv()
	if err != nil || w.TitleExact != 999 {
		t.Errorf("override not applied: %+v, %v", w, err)
	}
}

func TestScoringDoesNotMutate(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		beans := testutil.RapidBeans(t, 20)
		query := rapid.SampledFrom([]string{"b1", "alpha", "todo", "a", "zz"}).Draw(t, "query")

		before := make([]model.Bean, len(beans))
		for i := range beans {
			before[i] = beans[i].Clone()
		}
		ranked := Rank(beans, query, nil)
		if len(ranked) != len(beans) {
			t.Fatalf("rank changed length: %d vs %d", len(ranked), len(beans))
		}
		for i := range beans {
			if beans[i].ID != before[i].ID || beans[i].Title != before[i].Title {
				t.Fatalf("input modified at %d", i)
			}
		}
		scores := Scores(beans, query)
		for i := 1; i < len(ranked); i++ {
			if scores[ranked[i-1].ID] < scores[ranked[i].ID] {
				t.Fatalf("ranked out of order at %d", i)
			}
		}
	})
}
