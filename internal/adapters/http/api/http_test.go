package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/tasteid/internal/adapters/http/api"
	"github.com/okian/tasteid/internal/adapters/http/swagger"
	"github.com/okian/tasteid/internal/adapters/ratelimit"
	service "github.com/okian/tasteid/internal/app"
	"github.com/okian/tasteid/internal/domain/model"
	"github.com/okian/tasteid/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDeps struct {
	taste      model.TasteID
	computeErr error
	getErr     error
	history    []types.HistoryEntry
	match      model.TasteMatch
	compareErr error
	similar    []types.SimilarUser
	summary    types.RecomputeSummary
	stats      types.Stats

	lastLimit   int
	lastUserIDs []string
	recomputed  bool
}

func (m *mockDeps) ComputeTasteID(_ context.Context, userID string) (model.TasteID, error) {
	if m.computeErr != nil {
		return model.TasteID{}, m.computeErr
	}
	t := m.taste
	t.UserID = userID
	return t, nil
}

func (m *mockDeps) GetTasteID(_ context.Context, userID string) (model.TasteID, error) {
	if m.getErr != nil {
		return model.TasteID{}, m.getErr
	}
	t := m.taste
	t.UserID = userID
	return t, nil
}

func (m *mockDeps) History(_ context.Context, _ string, limit int) ([]types.HistoryEntry, error) {
	m.lastLimit = limit
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.history, nil
}

func (m *mockDeps) CompareTasteIDs(_ context.Context, _, _ string) (model.TasteMatch, error) {
	return m.match, m.compareErr
}

func (m *mockDeps) FindSimilar(_ context.Context, _ string, limit int) ([]types.SimilarUser, error) {
	m.lastLimit = limit
	return m.similar, nil
}

func (m *mockDeps) Recompute(_ context.Context, userIDs []string) (types.RecomputeSummary, error) {
	m.recomputed = true
	m.lastUserIDs = userIDs
	return m.summary, nil
}

func (m *mockDeps) GetStats(context.Context) (types.Stats, error) {
	return m.stats, nil
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) bool { return false }

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(rec *httptest.ResponseRecorder) map[string]string {
	var out map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	Convey("Given a server", t, func() {
		h := api.NewServer(&mockDeps{}).Routes()

		Convey("Then /healthz reports ok", func() {
			rec := do(h, http.MethodGet, "/healthz", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then /metrics is served", func() {
			rec := do(h, http.MethodGet, "/metrics", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestTasteRoutes(t *testing.T) {
	Convey("Given a server with a computed TasteID", t, func() {
		deps := &mockDeps{taste: model.TasteID{PrimaryArchetype: model.ArchetypeConnoisseur, ReviewCount: 5}}
		h := api.NewServer(deps).Routes()

		Convey("When computing", func() {
			rec := do(h, http.MethodPost, "/users/alice/taste", "")

			Convey("Then the TasteID is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var got model.TasteID
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got.UserID, ShouldEqual, "alice")
				So(got.PrimaryArchetype, ShouldEqual, model.ArchetypeConnoisseur)
			})
		})

		Convey("When reading history with a limit", func() {
			deps.history = []types.HistoryEntry{{PrimaryArchetype: model.ArchetypeConnoisseur}}
			rec := do(h, http.MethodGet, "/users/alice/taste/history?limit=3", "")

			Convey("Then the limit is forwarded", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.lastLimit, ShouldEqual, 3)
			})
		})

		Convey("When the limit is malformed", func() {
			for _, q := range []string{"abc", "-1", "1.5"} {
				rec := do(h, http.MethodGet, "/users/alice/taste/history?limit="+q, "")
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(rec)["code"], ShouldEqual, "bad_request")
			}
		})
	})
}

func TestErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("wrap: %w", model.ErrInsufficientData), http.StatusUnprocessableEntity, "insufficient_data"},
		{model.ErrNotFound, http.StatusNotFound, "not_found"},
		{service.ErrInvalidUserID, http.StatusBadRequest, "bad_request"},
		{service.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
		{model.ErrComputationFailure, http.StatusInternalServerError, "computation_failure"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}

	Convey("Given compute failures of each kind", t, func() {
		for _, tc := range cases {
			h := api.NewServer(&mockDeps{computeErr: tc.err}).Routes()
			rec := do(h, http.MethodPost, "/users/alice/taste", "")
			So(rec.Code, ShouldEqual, tc.status)
			So(decodeError(rec)["code"], ShouldEqual, tc.code)
		}
	})

	Convey("Given an invalid comparison", t, func() {
		h := api.NewServer(&mockDeps{compareErr: model.ErrInvalidComparison}).Routes()
		rec := do(h, http.MethodGet, "/matches/alice/alice", "")
		So(rec.Code, ShouldEqual, http.StatusBadRequest)
		So(decodeError(rec)["code"], ShouldEqual, "invalid_comparison")
	})
}

func TestRateLimit(t *testing.T) {
	Convey("Given a limiter that refuses everything", t, func() {
		deps := &mockDeps{}
		h := api.NewServer(deps, api.WithRateLimiter(denyAll{})).Routes()

		Convey("Then compute is refused with 429", func() {
			rec := do(h, http.MethodPost, "/users/alice/taste", "")
			So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decodeError(rec)["code"], ShouldEqual, "rate_limited")
		})

		Convey("Then reads are not limited", func() {
			rec := do(h, http.MethodGet, "/users/alice/taste", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
		})
	})

	Convey("Given a per-user limit of one", t, func() {
		limiter := ratelimit.New(ratelimit.WithLimit(1, time.Minute))
		h := api.NewServer(&mockDeps{}, api.WithRateLimiter(limiter)).Routes()

		Convey("Then the second compute for the same user is refused", func() {
			So(do(h, http.MethodPost, "/users/alice/taste", "").Code, ShouldEqual, http.StatusOK)
			So(do(h, http.MethodPost, "/users/alice/taste", "").Code, ShouldEqual, http.StatusTooManyRequests)
			So(do(h, http.MethodPost, "/users/bob/taste", "").Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then padded ids share the bucket of the trimmed id", func() {
			So(do(h, http.MethodPost, "/users/alice/taste", "").Code, ShouldEqual, http.StatusOK)
			So(do(h, http.MethodPost, "/users/%20alice/taste", "").Code, ShouldEqual, http.StatusTooManyRequests)
			So(do(h, http.MethodPost, "/users/alice%20%20/taste", "").Code, ShouldEqual, http.StatusTooManyRequests)
		})
	})
}

func TestMatchRoutes(t *testing.T) {
	Convey("Given a server with similar users", t, func() {
		deps := &mockDeps{
			match: model.TasteMatch{User1ID: "alice", User2ID: "bob", OverallScore: 72.5, MatchType: model.MatchGenreBuddy},
			similar: []types.SimilarUser{
				{Rank: 1, UserID: "bob", Score: 0.9},
				{Rank: 2, UserID: "carol", Score: 0.4},
			},
		}
		h := api.NewServer(deps).Routes()

		Convey("Then compare returns the match", func() {
			rec := do(h, http.MethodGet, "/matches/bob/alice", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			var got model.TasteMatch
			So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
			So(got.OverallScore, ShouldEqual, 72.5)
		})

		Convey("Then similar wraps the ranked list", func() {
			rec := do(h, http.MethodGet, "/users/alice/similar?limit=2", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			var got struct {
				UserID  string              `json:"user_id"`
				Similar []types.SimilarUser `json:"similar"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
			So(got.UserID, ShouldEqual, "alice")
			So(len(got.Similar), ShouldEqual, 2)
			So(deps.lastLimit, ShouldEqual, 2)
		})

		Convey("Then no limit means the default", func() {
			do(h, http.MethodGet, "/users/alice/similar", "")
			So(deps.lastLimit, ShouldEqual, 0)
		})
	})
}

func TestAdminRecompute(t *testing.T) {
	Convey("Given a server", t, func() {
		deps := &mockDeps{summary: types.RecomputeSummary{Requested: 2, Succeeded: 2}}
		h := api.NewServer(deps).Routes()

		Convey("When the body lists users", func() {
			rec := do(h, http.MethodPost, "/admin/recompute", `{"user_ids":["alice","bob"]}`)

			Convey("Then they are recomputed and the summary returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.lastUserIDs, ShouldResemble, []string{"alice", "bob"})
				So(rec.Body.String(), ShouldContainSubstring, `"requested":2`)
			})
		})

		Convey("When the body is empty", func() {
			rec := do(h, http.MethodPost, "/admin/recompute", "")

			Convey("Then every user is recomputed", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.recomputed, ShouldBeTrue)
				So(deps.lastUserIDs, ShouldBeEmpty)
			})
		})

		Convey("When the body is malformed", func() {
			rec := do(h, http.MethodPost, "/admin/recompute", `{"user_ids":`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.recomputed, ShouldBeFalse)
		})

		Convey("When an id is blank", func() {
			rec := do(h, http.MethodPost, "/admin/recompute", `{"user_ids":["alice",""]}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.recomputed, ShouldBeFalse)
		})

		Convey("When an unknown field is sent", func() {
			rec := do(h, http.MethodPost, "/admin/recompute", `{"users":["alice"]}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestStats(t *testing.T) {
	Convey("Given a server with stats", t, func() {
		h := api.NewServer(&mockDeps{stats: types.Stats{Reviews: 12, TasteIDs: 3}}).Routes()
		rec := do(h, http.MethodGet, "/stats", "")
		So(rec.Code, ShouldEqual, http.StatusOK)
		So(rec.Body.String(), ShouldContainSubstring, `"reviews":12`)
	})
}

func TestRoutesDocumented(t *testing.T) {
	Convey("Given the registered routes", t, func() {
		r, ok := api.NewServer(&mockDeps{}).Routes().(chi.Routes)
		So(ok, ShouldBeTrue)
		documented, err := swagger.Operations()
		So(err, ShouldBeNil)

		Convey("Then every API route appears in the OpenAPI document", func() {
			var missing []string
			walkErr := chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
				if route == "/api-docs" || route == "/openapi.yaml" {
					return nil
				}
				op := method + " " + route
				found := false
				for _, d := range documented {
					if d == op {
						found = true
						break
					}
				}
				if !found {
					missing = append(missing, op)
				}
				return nil
			})
			So(walkErr, ShouldBeNil)
			So(missing, ShouldBeEmpty)
		})
	})
}
