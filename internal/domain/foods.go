package domain

import "strings"

// FoodItem is a catalog entry used to derive meal calories.
type FoodItem struct {
	Name            string       `json:"name"`
	CaloriesPer100g int          `json:"calories_per_100g"`
	Category        MealCategory `json:"category"`
}

var foodCatalog = []FoodItem{
	{"Oatmeal", 68, MealBreakfast},
	{"Scrambled Eggs (2)", 140, MealBreakfast},
	{"Toast with Butter", 150, MealBreakfast},
	{"Banana", 89, MealBreakfast},
	{"Greek Yogurt", 59, MealBreakfast},
	{"Cereal with Milk", 200, MealBreakfast},
	{"Pancakes (3)", 350, MealBreakfast},
	{"Bagel with Cream Cheese", 290, MealBreakfast},

	{"Chicken Breast (grilled)", 165, MealLunch},
	{"Rice (1 cup)", 206, MealLunch},
	{"Pasta (1 cup)", 220, MealLunch},
	{"Salad with Dressing", 150, MealLunch},
	{"Sandwich (turkey)", 320, MealLunch},
	{"Burger", 540, MealLunch},
	{"Pizza (2 slices)", 570, MealLunch},
	{"Soup (1 bowl)", 180, MealLunch},

	{"Salmon (6 oz)", 350, MealDinner},
	{"Steak (6 oz)", 460, MealDinner},
	{"Vegetables (mixed)", 85, MealDinner},
	{"Potatoes (mashed)", 237, MealDinner},
	{"Pasta with Sauce", 400, MealDinner},
	{"Stir Fry", 350, MealDinner},
	{"Tacos (3)", 450, MealDinner},

	{"Apple", 95, MealSnack},
	{"Protein Bar", 200, MealSnack},
	{"Nuts (handful)", 170, MealSnack},
	{"Chips (small bag)", 150, MealSnack},
	{"Cookie", 140, MealSnack},
	{"Smoothie", 180, MealSnack},
	{"Dark Chocolate (1 oz)", 170, MealSnack},
	{"Popcorn (3 cups)", 90, MealSnack},
}

// Foods returns the catalog, optionally limited to one category.
func Foods(category MealCategory) []FoodItem {
	out := make([]FoodItem, 0, len(foodCatalog))
	for _, item := range foodCatalog {
		if category == "" || item.Category == category {
			out = append(out, item)
		}
	}
	return out
}

// LookupFood finds a catalog entry by case-insensitive name.
func LookupFood(name string) (FoodItem, bool) {
	needle := strings.TrimSpace(name)
	for _, item := range foodCatalog {
		if strings.EqualFold(item.Name, needle) {
			return item, true
		}
	}
	return FoodItem{}, false
}
