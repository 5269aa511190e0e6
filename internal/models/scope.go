// internal/models/scope.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"
)

// TerritoryGlobal is the sentinel territory code that intersects with every
// concrete territory and with itself.
const TerritoryGlobal = "GLOBAL"

type MediaScope struct {
	Digital   bool `json:"digital"`
	Print     bool `json:"print"`
	Broadcast bool `json:"broadcast"`
	OutOfHome bool `json:"out_of_home"`
}

type PlacementScope struct {
	Social    bool `json:"social"`
	Website   bool `json:"website"`
	Email     bool `json:"email"`
	PaidAds   bool `json:"paid_ads"`
	Packaging bool `json:"packaging"`
}

type CutdownScope struct {
	Allowed            bool `json:"allowed"`
	MaxDurationSeconds int  `json:"max_duration_seconds,omitempty"`
}

type AttributionScope struct {
	Required bool   `json:"required"`
	Format   string `json:"format,omitempty"`
}

// Scope carries the usage permissions of a single license. Territory and
// competitor sets live as their own columns on License so they can be indexed;
// everything else rides in this jsonb payload.
type Scope struct {
	Media       MediaScope       `json:"media"`
	Placement   PlacementScope   `json:"placement"`
	Cutdowns    CutdownScope     `json:"cutdowns"`
	Attribution AttributionScope `json:"attribution"`
}

func (s Scope) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *Scope) Scan(value interface{}) error {
	if value == nil {
		*s = Scope{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("scope: unsupported column type")
	}

	return json.Unmarshal(bytes, s)
}

// Overlaps reports whether two date ranges overlap under half-open semantics.
// Both ends are the exclusive day-after boundaries (see EndBoundary).
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// EndBoundary converts an inclusive end-of-day end date into the exclusive
// boundary used for overlap and expiry checks: midnight UTC of the next day.
func EndBoundary(endDate time.Time) time.Time {
	return endDate.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
}

// DayAfter is the UTC midnight immediately following the given end date. A
// successor license starts here.
func DayAfter(endDate time.Time) time.Time {
	return EndBoundary(endDate)
}

// TerritoriesIntersect returns the shared territory codes of two sets, treating
// GLOBAL as intersecting with every concrete territory and with GLOBAL itself.
// The result is sorted so repeated calls are byte-identical.
func TerritoriesIntersect(a, b []string) []string {
	aGlobal := containsTerritory(a, TerritoryGlobal)
	bGlobal := containsTerritory(b, TerritoryGlobal)

	switch {
	case aGlobal && bGlobal:
		return []string{TerritoryGlobal}
	case aGlobal:
		return normalizeTerritories(b)
	case bGlobal:
		return normalizeTerritories(a)
	}

	set := make(map[string]struct{}, len(a))
	for _, code := range a {
		set[strings.ToUpper(code)] = struct{}{}
	}

	var shared []string
	seen := make(map[string]struct{})
	for _, code := range b {
		upper := strings.ToUpper(code)
		if _, ok := set[upper]; !ok {
			continue
		}
		if _, dup := seen[upper]; dup {
			continue
		}
		seen[upper] = struct{}{}
		shared = append(shared, upper)
	}

	sort.Strings(shared)
	return shared
}

// CompetitorBlocked reports whether either license lists the other's grantee as
// an excluded competitor under a shared exclusivity category. Categories are
// matched case-insensitively; an empty category on either side never blocks.
func CompetitorBlocked(candidate, existing *License) bool {
	if candidate.ExclusivityCategory == "" || existing.ExclusivityCategory == "" {
		return false
	}
	if !strings.EqualFold(candidate.ExclusivityCategory, existing.ExclusivityCategory) {
		return false
	}

	for _, blocked := range candidate.CompetitorExclusions {
		if blocked == existing.BrandID.String() {
			return true
		}
	}
	for _, blocked := range existing.CompetitorExclusions {
		if blocked == candidate.BrandID.String() {
			return true
		}
	}
	return false
}

func containsTerritory(codes []string, target string) bool {
	for _, code := range codes {
		if strings.EqualFold(code, target) {
			return true
		}
	}
	return false
}

func normalizeTerritories(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		upper := strings.ToUpper(code)
		if _, dup := seen[upper]; dup {
			continue
		}
		seen[upper] = struct{}{}
		out = append(out, upper)
	}
	sort.Strings(out)
	return out
}
