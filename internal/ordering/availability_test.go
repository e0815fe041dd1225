package ordering_test

import (
	"testing"

	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/ordering"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMenu(date string) *models.DailyMenu {
	return &models.DailyMenu{
		ID:       models.DailyMenuID("A1", date),
		AgencyID: "A1",
		Date:     date,
		Meals: map[models.MealType]models.MealMenu{
			models.MealBreakfast: {Items: []models.MenuEntry{{ID: "idli", Name: "Idli", Price: 30}}},
			models.MealLunch:     {Items: []models.MenuEntry{{ID: "thali", Name: "Thali", Price: 120}}},
			models.MealDinner:    {Items: []models.MenuEntry{{ID: "roti", Name: "Roti", Price: 10}}, Locked: true},
			models.MealSnacks:    {Items: nil},
		},
	}
}

func TestAvailability_OnlyNonEmptyMealsInOrder(t *testing.T) {
	cutoffs := map[models.MealType]string{models.MealBreakfast: "08:00", models.MealLunch: "11:00"}
	got := ordering.Availability(sampleMenu("2024-05-01"), cutoffs, at(10, 0, 0))

	require.Len(t, got, 3)
	assert.Equal(t, models.MealBreakfast, got[0].MealType)
	assert.Equal(t, models.MealLunch, got[1].MealType)
	assert.Equal(t, models.MealDinner, got[2].MealType)

	assert.True(t, got[0].PastCutoff)
	assert.False(t, got[0].Orderable)
	assert.ErrorIs(t, got[0].Err(), ordering.ErrPastCutoff)

	assert.False(t, got[1].PastCutoff)
	assert.True(t, got[1].Orderable)
	assert.NoError(t, got[1].Err())

	assert.True(t, got[2].Locked)
	assert.False(t, got[2].PastCutoff)
	assert.False(t, got[2].Orderable)
	assert.ErrorIs(t, got[2].Err(), ordering.ErrMealLocked)
}

func TestEvaluate_DateRules(t *testing.T) {
	cutoffs := map[models.MealType]string{models.MealLunch: "11:00"}
	now := at(15, 0, 0)

	future := ordering.Evaluate(sampleMenu("2024-05-02"), models.MealLunch, cutoffs, now)
	assert.True(t, future.Orderable, "cutoff only applies on the menu date")

	past := ordering.Evaluate(sampleMenu("2024-04-30"), models.MealLunch, cutoffs, now)
	assert.False(t, past.Orderable)

	missing := ordering.Evaluate(nil, models.MealLunch, cutoffs, now)
	assert.False(t, missing.Orderable)
	assert.ErrorIs(t, missing.Err(), ordering.ErrMealUnavailable)
	assert.NotNil(t, missing.Items)
}

func TestCheckDate(t *testing.T) {
	now := at(9, 0, 0)
	assert.NoError(t, ordering.CheckDate("2024-05-01", now))
	assert.NoError(t, ordering.CheckDate("2024-05-02", now))
	assert.ErrorIs(t, ordering.CheckDate("2024-04-30", now), ordering.ErrDateClosed)
}
