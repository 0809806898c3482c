package kobis

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"log/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDailyBoxOffice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/boxoffice/searchDailyBoxOfficeList.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("key = %q, want test-key", got)
		}
		if got := r.URL.Query().Get("targetDt"); got != "20260829" {
			t.Errorf("targetDt = %q, want 20260829", got)
		}

		_, _ = w.Write([]byte(`{
			"boxOfficeResult": {
				"dailyBoxOfficeList": [
					{"rank": "1", "rankOldAndNew": "OLD", "movieCd": "20260001", "movieNm": "First", "audiCnt": "120000", "audiAcc": "2400000", "scrnCnt": "1800"},
					{"rank": "2", "rankOldAndNew": "NEW", "movieCd": "20260002", "movieNm": "Second", "audiCnt": "90000", "audiAcc": "90000", "scrnCnt": "1500"}
				]
			}
		}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, server.Client(), testLogger())

	entries, err := client.DailyBoxOffice(context.Background(), "20260829")
	if err != nil {
		t.Fatalf("DailyBoxOffice: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	first := entries[0]
	if first.Rank != "1" || first.MovieCode != "20260001" || first.Name != "First" {
		t.Fatalf("entries[0] = %+v", first)
	}
	if first.DailyAudience != "120000" || first.TotalAudience != "2400000" {
		t.Fatalf("audience fields = %+v", first)
	}
	if entries[1].RankOldAndNew != "NEW" {
		t.Fatalf("entries[1].RankOldAndNew = %q, want NEW", entries[1].RankOldAndNew)
	}
}

func TestMovieInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/searchMovieInfo.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("movieCd"); got != "20260001" {
			t.Errorf("movieCd = %q, want 20260001", got)
		}

		_, _ = w.Write([]byte(`{
			"movieInfoResult": {
				"movieInfo": {
					"movieCd": "20260001",
					"movieNm": "첫번째",
					"movieNmEn": "First",
					"showTm": "124",
					"openDt": "20260815",
					"nations": [{"nationNm": "한국"}],
					"genres": [{"genreNm": "드라마"}, {"genreNm": "액션"}],
					"directors": [{"peopleNm": "김감독"}]
				}
			}
		}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, server.Client(), testLogger())

	info, err := client.MovieInfo(context.Background(), "20260001")
	if err != nil {
		t.Fatalf("MovieInfo: %v", err)
	}

	if info.Code != "20260001" || info.NameEn != "First" {
		t.Fatalf("info = %+v", info)
	}
	if info.ShowTime != "124" {
		t.Fatalf("show time = %q, want 124", info.ShowTime)
	}
	if len(info.Genres) != 2 || info.Genres[0].Name != "드라마" {
		t.Fatalf("genres = %+v", info.Genres)
	}
	if len(info.Directors) != 1 || info.Directors[0].Name != "김감독" {
		t.Fatalf("directors = %+v", info.Directors)
	}
}

func TestUpstreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, server.Client(), testLogger())

	if _, err := client.DailyBoxOffice(context.Background(), "20260829"); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestYesterdayDate(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	if got := YesterdayDate(now); got != "20260228" {
		t.Fatalf("YesterdayDate = %q, want 20260228", got)
	}
}
