package kobis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"log/slog"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

// BoxOfficeEntry is one row of the daily box office ranking.
type BoxOfficeEntry struct {
	Rank          string `json:"rank"`
	RankChange    string `json:"rankInten"`
	RankOldAndNew string `json:"rankOldAndNew"`
	MovieCode     string `json:"movieCd"`
	Name          string `json:"movieNm"`
	OpenDate      string `json:"openDt"`
	DailyAudience string `json:"audiCnt"`
	TotalAudience string `json:"audiAcc"`
	ScreenCount   string `json:"scrnCnt"`
}

// MovieInfo is the per-movie detail record from the KOBIS movie service.
type MovieInfo struct {
	Code     string `json:"movieCd"`
	Name     string `json:"movieNm"`
	NameEn   string `json:"movieNmEn"`
	ShowTime string `json:"showTm"`
	OpenDate string `json:"openDt"`
	Nations  []struct {
		Name string `json:"nationNm"`
	} `json:"nations"`
	Genres []struct {
		Name string `json:"genreNm"`
	} `json:"genres"`
	Directors []struct {
		Name string `json:"peopleNm"`
	} `json:"directors"`
}

type boxOfficeResponse struct {
	BoxOfficeResult struct {
		DailyBoxOfficeList []BoxOfficeEntry `json:"dailyBoxOfficeList"`
	} `json:"boxOfficeResult"`
}

type movieInfoResponse struct {
	MovieInfoResult struct {
		MovieInfo MovieInfo `json:"movieInfo"`
	} `json:"movieInfoResult"`
}

// Client talks to the KOBIS open API. All requests go through a circuit
// breaker: KOBIS is the least reliable upstream this service depends on, and
// a broken circuit fails box-office requests fast instead of stacking up
// slow timeouts.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *slog.Logger
}

func NewClient(apiKey, baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "kobis-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		breaker:    breaker,
		logger:     logger,
	}
}

// DailyBoxOffice returns the ranked box office list for the given target date
// (YYYYMMDD).
func (c *Client) DailyBoxOffice(ctx context.Context, targetDate string) ([]BoxOfficeEntry, error) {
	params := url.Values{"targetDt": {targetDate}}
	body, err := c.get(ctx, "/boxoffice/searchDailyBoxOfficeList.json", params)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily box office: %w", err)
	}

	var resp boxOfficeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode box office response: %w", err)
	}
	return resp.BoxOfficeResult.DailyBoxOfficeList, nil
}

// MovieInfo returns the detail record for a KOBIS movie code.
func (c *Client) MovieInfo(ctx context.Context, movieCode string) (*MovieInfo, error) {
	params := url.Values{"movieCd": {movieCode}}
	body, err := c.get(ctx, "/movie/searchMovieInfo.json", params)
	if err != nil {
		return nil, fmt.Errorf("failed to get movie info for %s: %w", movieCode, err)
	}

	var resp movieInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode movie info response: %w", err)
	}
	return &resp.MovieInfoResult.MovieInfo, nil
}

// YesterdayDate returns the default box-office target date, which is the day
// before now in YYYYMMDD form. KOBIS publishes each day's numbers the morning
// after.
func YesterdayDate(now time.Time) string {
	return now.AddDate(0, 0, -1).Format("20060102")
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("key", c.apiKey)

	return c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to make request: %w", err)
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				c.logger.Error("failed to close response body", slog.Any("error", err))
			}
		}()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
		}

		return io.ReadAll(resp.Body)
	})
}
