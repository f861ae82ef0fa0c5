package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// #region fixture
// Fixture is a recorded provider response, loadable from JSON for
// deterministic offline runs.
type Fixture struct {
	Description string `json:"description,omitempty"`
	Set         Set    `json:"set"`
}

// LoadFixture reads a recorded retrieval from a JSON file.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return f, nil
}

// #endregion fixture

// #region fixture-provider
// FixtureProvider serves a recorded set for every query.
type FixtureProvider struct {
	set Set
}

// NewFixtureProvider wraps a recorded set as a Provider.
func NewFixtureProvider(set Set) *FixtureProvider {
	return &FixtureProvider{set: set}
}

// Retrieve returns the recorded set, truncated to the query's TopK.
func (p *FixtureProvider) Retrieve(_ context.Context, q Query) (Set, error) {
	out := p.set
	if q.TopK > 0 && len(out.Items) > q.TopK {
		items := make([]Item, q.TopK)
		copy(items, out.Items[:q.TopK])
		out.Items = items
	}
	return out, nil
}

// #endregion fixture-provider
