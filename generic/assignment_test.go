package generic_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/generic/store"
)

func code(cn, ext string) generic.LaborCode {
	return generic.LaborCode{ChargeNumber: cn, Extension: ext}
}

func newResolverStore(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	end := day(2025, time.June, 30)
	require.NoError(t, mem.SaveAssignment(ctx, generic.Assignment{
		ID:            "a-1",
		EmployeeID:    "emp-1",
		CompanyID:     "acme",
		LaborCodes:    []generic.LaborCode{code("C-100", "01"), code("C-200", "01"), code("C-200", "02")},
		EffectiveFrom: day(2025, time.January, 1),
		EffectiveTo:   &end,
	}))
	require.NoError(t, mem.SaveForecastRange(ctx, "acme", day(2025, time.January, 1), day(2025, time.December, 31),
		[]generic.LaborCode{code("c-200", "02"), code("C-200", "01"), code("C-300", "01")}))
	return mem
}

// =============================================================================
// CHARGE-CODE RESOLVER TESTS
// =============================================================================

func TestResolve_ExactMatchPreferred(t *testing.T) {
	// GIVEN: Assignment codes C-100/01, C-200/01, C-200/02; forecast has both C-200 codes
	// WHEN: The row names C-200/02
	// THEN: C-200/02 is returned even though C-200/01 comes first in the assignment

	mem := newResolverStore(t)
	resolver := &generic.ChargeCodeResolver{Assignments: mem, Forecasts: mem}

	got, ok, err := resolver.Resolve(context.Background(), "emp-1", "acme", day(2025, time.March, 3), code("C-200", "02"))

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "02", got.Extension)
}

func TestResolve_SameChargeNumberFallback(t *testing.T) {
	// GIVEN: The row names C-200 with an extension nobody configured
	// WHEN: Resolving
	// THEN: The first C-200 code in assignment order wins

	mem := newResolverStore(t)
	resolver := &generic.ChargeCodeResolver{Assignments: mem, Forecasts: mem}

	got, ok, err := resolver.Resolve(context.Background(), "emp-1", "acme", day(2025, time.March, 3), code("C-200", "99"))

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, code("C-200", "01"), got)
}

func TestResolve_FirstIntersectionWhenNoHintMatches(t *testing.T) {
	mem := newResolverStore(t)
	resolver := &generic.ChargeCodeResolver{Assignments: mem, Forecasts: mem}

	got, ok, err := resolver.Resolve(context.Background(), "emp-1", "acme", day(2025, time.March, 3), code("X-1", ""))

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, code("C-200", "01"), got, "C-100 is assigned but not forecast")
}

func TestResolve_NoIntersection_ReturnsNone(t *testing.T) {
	// GIVEN: A date after the assignment ended
	// WHEN: Resolving
	// THEN: ok is false, no error

	mem := newResolverStore(t)
	resolver := &generic.ChargeCodeResolver{Assignments: mem, Forecasts: mem}

	_, ok, err := resolver.Resolve(context.Background(), "emp-1", "acme", day(2025, time.July, 1), code("C-200", "01"))

	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = resolver.Resolve(context.Background(), "emp-2", "acme", day(2025, time.March, 3), code("C-200", "01"))
	require.NoError(t, err)
	assert.False(t, ok, "unknown employee has no assignments")
}

type failingForecasts struct{}

func (failingForecasts) Forecast(context.Context, generic.CompanyID, generic.TimePoint) ([]generic.LaborCode, error) {
	return nil, errors.New("forecast service down")
}

func TestResolve_DirectoryErrorPropagates(t *testing.T) {
	mem := newResolverStore(t)
	resolver := &generic.ChargeCodeResolver{Assignments: mem, Forecasts: failingForecasts{}}

	_, _, err := resolver.Resolve(context.Background(), "emp-1", "acme", day(2025, time.March, 3), code("C-200", "01"))

	assert.ErrorContains(t, err, "forecast service down")
}

type countingForecasts struct {
	inner generic.ForecastDirectory
	calls int
}

func (c *countingForecasts) Forecast(ctx context.Context, company generic.CompanyID, at generic.TimePoint) ([]generic.LaborCode, error) {
	c.calls++
	return c.inner.Forecast(ctx, company, at)
}

func TestSnapshotResolver_CachesPerDay(t *testing.T) {
	// GIVEN: A counting forecast directory
	// WHEN: Resolving many rows for the same company and day
	// THEN: The forecast is loaded once per day and answers match the plain resolver

	mem := newResolverStore(t)
	counter := &countingForecasts{inner: mem}
	snap := generic.NewSnapshotResolver(mem, counter)
	plain := &generic.ChargeCodeResolver{Assignments: mem, Forecasts: mem}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		for _, hint := range []generic.ChargeCode{code("C-200", "02"), code("C-100", "01")} {
			want, wantOK, _ := plain.Resolve(ctx, "emp-1", "acme", day(2025, time.March, 3), hint)
			got, gotOK, err := snap.Resolve(ctx, "emp-1", "acme", day(2025, time.March, 3), hint)
			require.NoError(t, err)
			assert.Equal(t, wantOK, gotOK)
			assert.Equal(t, want, got)
		}
	}
	_, _, err := snap.Resolve(ctx, "emp-1", "acme", day(2025, time.March, 4), code("C-200", "02"))
	require.NoError(t, err)

	assert.Equal(t, 2, counter.calls)
}

func TestAssignment_Covers(t *testing.T) {
	end := day(2025, time.March, 31)
	a := generic.Assignment{EffectiveFrom: day(2025, time.March, 1), EffectiveTo: &end}

	assert.False(t, a.Covers(day(2025, time.February, 28)))
	assert.True(t, a.Covers(day(2025, time.March, 1)))
	assert.True(t, a.Covers(day(2025, time.March, 31)))
	assert.False(t, a.Covers(day(2025, time.April, 1)))

	open := generic.Assignment{EffectiveFrom: day(2025, time.March, 1)}
	assert.True(t, open.Covers(day(2030, time.January, 1)))
}
