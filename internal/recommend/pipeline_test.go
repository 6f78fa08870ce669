package recommend

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"training-load-engine/internal/llmclient"
	"training-load-engine/internal/store"
)

func setupPipelineStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	st, err := store.WrapForTesting(db)
	if err != nil {
		t.Fatalf("wrapping test database: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedAthlete(t *testing.T, st *store.Store) int64 {
	t.Helper()
	id, err := st.CreateAthlete(context.Background(), &store.Athlete{
		Email:                "athlete@example.com",
		PasswordHash:         "hash",
		RestingHR:            50,
		MaxHR:                190,
		Gender:               "female",
		CoachingToneSpectrum: 50,
		RiskTolerance:        store.RiskBalanced,
		Timezone:             "UTC",
	})
	if err != nil {
		t.Fatalf("seeding athlete: %v", err)
	}
	return id
}

// stubLLM serves a fixed response body for every completion request.
func stubLLM(t *testing.T, text string) *llmclient.Client {
	t.Helper()
	resp := struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
	}{
		Content: []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{{Type: "text", Text: text}},
		StopReason: "end_turn",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return llmclient.New(llmclient.Config{APIKey: "test-key", BaseURL: srv.URL})
}

const canonicalRecommendationResponse = "**DAILY RECOMMENDATION:**\nEasy 4 miles, conversational pace.\n\n" +
	"**WEEKLY PLANNING:**\nHold volume steady this week.\n\n" +
	"**PATTERN INSIGHTS:**\nNo concerning trends in the last two weeks.\n"

const canonicalAutopsyResponse = "ALIGNMENT_SCORE: 9/10\n\n" +
	"**ALIGNMENT ASSESSMENT:**\nThe athlete followed the plan closely.\n\n" +
	"**PHYSIOLOGICAL RESPONSE ANALYSIS:**\nHeart rate stayed in the expected zones.\n\n" +
	"**LEARNING INSIGHTS & TOMORROW'S IMPLICATIONS:**\nContinue the current approach.\n"

func TestGenerateRecommendation_CreatesForToday(t *testing.T) {
	st := setupPipelineStore(t)
	athleteID := seedAthlete(t, st)

	p := &Pipeline{Store: st, LLM: stubLLM(t, canonicalRecommendationResponse), Log: zerolog.Nop()}
	now := time.Now().UTC()

	rec, err := p.GenerateRecommendation(context.Background(), athleteID, now, false)
	if err != nil {
		t.Fatalf("GenerateRecommendation: %v", err)
	}
	wantDate := now.Format("2006-01-02")
	if rec.TargetDate != wantDate {
		t.Errorf("TargetDate = %q, want %q", rec.TargetDate, wantDate)
	}
	if !strings.Contains(rec.DailyRecommendation, "Easy 4 miles") {
		t.Errorf("DailyRecommendation = %q", rec.DailyRecommendation)
	}

	stored, err := st.GetRecommendation(context.Background(), athleteID, wantDate)
	if err != nil {
		t.Fatalf("GetRecommendation: %v", err)
	}
	if stored.WeeklyRecommendation != rec.WeeklyRecommendation {
		t.Error("persisted recommendation does not match returned recommendation")
	}
}

func TestGenerateRecommendation_ForceTomorrowTargetsNextDay(t *testing.T) {
	st := setupPipelineStore(t)
	athleteID := seedAthlete(t, st)

	p := &Pipeline{Store: st, LLM: stubLLM(t, canonicalRecommendationResponse), Log: zerolog.Nop()}
	now := time.Now().UTC()

	rec, err := p.GenerateRecommendation(context.Background(), athleteID, now, true)
	if err != nil {
		t.Fatalf("GenerateRecommendation: %v", err)
	}
	want := now.AddDate(0, 0, 1).Format("2006-01-02")
	if rec.TargetDate != want {
		t.Errorf("TargetDate = %q, want %q", rec.TargetDate, want)
	}
}

func TestGenerateRecommendation_NoOpSkipsRegeneration(t *testing.T) {
	st := setupPipelineStore(t)
	athleteID := seedAthlete(t, st)
	now := time.Now().UTC()
	today := now.Format("2006-01-02")

	existing := &store.Recommendation{
		AthleteID:           athleteID,
		GenerationDate:      now,
		TargetDate:          today,
		DailyRecommendation: "already generated",
	}
	if err := st.UpsertRecommendation(context.Background(), existing); err != nil {
		t.Fatalf("seeding recommendation: %v", err)
	}

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"content":[{"type":"text","text":"should not be reached"}]}`))
	}))
	defer srv.Close()

	p := &Pipeline{Store: st, LLM: llmclient.New(llmclient.Config{APIKey: "k", BaseURL: srv.URL}), Log: zerolog.Nop()}

	rec, err := p.GenerateRecommendation(context.Background(), athleteID, now, false)
	if err != nil {
		t.Fatalf("GenerateRecommendation: %v", err)
	}
	if rec.DailyRecommendation != "already generated" {
		t.Errorf("expected the no-op rule to return the existing recommendation, got %q", rec.DailyRecommendation)
	}
	if calls != 0 {
		t.Errorf("expected the LLM not to be called under the no-op rule, got %d calls", calls)
	}
}

func TestGenerateAutopsy_NoRecommendationReturnsNil(t *testing.T) {
	st := setupPipelineStore(t)
	athleteID := seedAthlete(t, st)
	now := time.Now().UTC()

	p := &Pipeline{Store: st, LLM: stubLLM(t, canonicalAutopsyResponse), Log: zerolog.Nop()}
	autopsy, err := p.GenerateAutopsy(context.Background(), athleteID, now.Format("2006-01-02"), now)
	if err != nil {
		t.Fatalf("GenerateAutopsy: %v", err)
	}
	if autopsy != nil {
		t.Errorf("expected nil autopsy when no recommendation exists, got %+v", autopsy)
	}
}

func TestGenerateAutopsy_NoRealActivityReturnsNil(t *testing.T) {
	st := setupPipelineStore(t)
	athleteID := seedAthlete(t, st)
	now := time.Now().UTC()
	today := now.Format("2006-01-02")

	if err := st.UpsertRecommendation(context.Background(), &store.Recommendation{
		AthleteID: athleteID, GenerationDate: now, TargetDate: today, DailyRecommendation: "rest",
	}); err != nil {
		t.Fatalf("seeding recommendation: %v", err)
	}

	p := &Pipeline{Store: st, LLM: stubLLM(t, canonicalAutopsyResponse), Log: zerolog.Nop()}
	autopsy, err := p.GenerateAutopsy(context.Background(), athleteID, today, now)
	if err != nil {
		t.Fatalf("GenerateAutopsy: %v", err)
	}
	if autopsy != nil {
		t.Errorf("expected nil autopsy when no real activity logged, got %+v", autopsy)
	}
}

func TestGenerateAutopsy_FullFlowPersists(t *testing.T) {
	st := setupPipelineStore(t)
	athleteID := seedAthlete(t, st)
	now := time.Now().UTC()
	today := now.Format("2006-01-02")

	if err := st.UpsertRecommendation(context.Background(), &store.Recommendation{
		AthleteID: athleteID, GenerationDate: now.Add(-2 * time.Hour), TargetDate: today, DailyRecommendation: "easy run",
	}); err != nil {
		t.Fatalf("seeding recommendation: %v", err)
	}
	if err := st.InsertActivity(context.Background(), &store.Activity{
		AthleteID: athleteID, ActivityID: 1, Date: today, Name: "Morning Run", Sport: store.SportRunning,
		TRIMPMethod: store.TRIMPMethodAverage,
	}); err != nil {
		t.Fatalf("seeding activity: %v", err)
	}
	if err := st.UpsertJournalEntry(context.Background(), &store.JournalEntry{
		AthleteID: athleteID, Date: today, EnergyLevel: 4, RPEScore: 5, PainPercentage: 0, Notes: "felt good",
	}); err != nil {
		t.Fatalf("seeding journal entry: %v", err)
	}

	p := &Pipeline{Store: st, LLM: stubLLM(t, canonicalAutopsyResponse), Log: zerolog.Nop()}
	autopsy, err := p.GenerateAutopsy(context.Background(), athleteID, today, now)
	if err != nil {
		t.Fatalf("GenerateAutopsy: %v", err)
	}
	if autopsy == nil {
		t.Fatal("expected a persisted autopsy")
	}
	if autopsy.AlignmentScore != 9 {
		t.Errorf("AlignmentScore = %d, want 9", autopsy.AlignmentScore)
	}
	if !strings.Contains(autopsy.AutopsyAnalysis, "followed the plan closely") {
		t.Errorf("AutopsyAnalysis = %q", autopsy.AutopsyAnalysis)
	}

	stored, err := st.GetAutopsy(context.Background(), athleteID, today)
	if err != nil {
		t.Fatalf("GetAutopsy: %v", err)
	}
	if stored.AlignmentScore != 9 {
		t.Errorf("persisted AlignmentScore = %d, want 9", stored.AlignmentScore)
	}
}
