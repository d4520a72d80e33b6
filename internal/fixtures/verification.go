package fixtures

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/tasteid/internal/domain/genre"
	"github.com/okian/tasteid/internal/domain/model"
	"github.com/okian/tasteid/pkg/logger"
)

// TasteReader loads computed TasteIDs.
type TasteReader interface {
	GetTasteID(ctx context.Context, userID string) (model.TasteID, error)
}

// Mismatch explains why one user's TasteID disagrees with their persona.
type Mismatch struct {
	UserID  string `json:"user_id"`
	Persona string `json:"persona"`
	Reason  string `json:"reason"`
}

// Report summarizes a verification run.
type Report struct {
	Checked    int        `json:"checked"`
	Missing    int        `json:"missing"`
	Matched    int        `json:"matched"`
	Mismatches []Mismatch `json:"mismatches"`
}

// OK reports whether every checked user agreed with their persona.
func (r Report) OK() bool {
	return r.Missing == 0 && len(r.Mismatches) == 0
}

// Verify compares each assigned user's TasteID with their persona: the top
// genre must be the persona's leading genre, and the primary archetype must
// match when the persona names one.
func Verify(ctx context.Context, ds *Dataset, tastes TasteReader, l logger.Logger) (Report, error) {
	if l == nil {
		l = logger.Nop()
	}
	rep := Report{Mismatches: []Mismatch{}}

	for _, userID := range ds.Users() {
		p, _ := ds.Persona(userID)
		t, err := tastes.GetTasteID(ctx, userID)
		switch {
		case errors.Is(err, model.ErrNotFound):
			rep.Missing++
			continue
		case err != nil:
			return rep, fmt.Errorf("load taste id for %s: %w", userID, err)
		}
		rep.Checked++

		want := genre.Canonical(p.Genres[0])
		switch {
		case len(t.TopGenres) == 0 || t.TopGenres[0] != want:
			rep.Mismatches = append(rep.Mismatches, Mismatch{
				UserID:  userID,
				Persona: p.Name,
				Reason:  fmt.Sprintf("top genre %v, want %s", t.TopGenres, want),
			})
		case p.Expect != "" && t.PrimaryArchetype != p.Expect:
			rep.Mismatches = append(rep.Mismatches, Mismatch{
				UserID:  userID,
				Persona: p.Name,
				Reason:  fmt.Sprintf("archetype %s, want %s", t.PrimaryArchetype, p.Expect),
			})
		default:
			rep.Matched++
		}
	}

	l.Info(ctx, "dataset verified",
		logger.Int("checked", rep.Checked),
		logger.Int("matched", rep.Matched),
		logger.Int("missing", rep.Missing),
		logger.Int("mismatches", len(rep.Mismatches)),
	)
	return rep, nil
}
