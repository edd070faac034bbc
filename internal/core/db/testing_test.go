package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/solatis/groundskeeper/internal/types"
)

// fakeClock hands out strictly increasing times.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()

	conn, err := Open("sqlite://" + filepath.Join(t.TempDir(), "groundskeeper.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, MigrateUp(conn))

	q, err := LoadQueries(conn)
	require.NoError(t, err)

	clock := &fakeClock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	return NewStore(q, append([]StoreOption{WithClock(clock.Now)}, opts...)...)
}

func territoryInput(code string, parent *types.Territory) TerritoryInput {
	in := TerritoryInput{
		Name: code + " territory",
		Code: code,
		Type: types.TerritoryGeographic,
	}
	if parent != nil {
		id := parent.ID
		in.ParentID = &id
	}
	return in
}

func ruleInput(field, op, value string, priority int) RuleInput {
	return RuleInput{
		RuleType:  types.RuleGeographic,
		FieldName: field,
		Operator:  op,
		Value:     []byte(value),
		Priority:  priority,
	}
}
