// Package static is the offline advisor backend: deterministic answers
// derived from the inputs alone, no network. It is the default when no
// Gemini API key is configured, and doubles as the test double.
package static

import (
	"context"
	"hash/fnv"
	"strings"

	"tripledger/internal/core"
)

type Advisor struct{}

func New() *Advisor {
	return &Advisor{}
}

var conditions = []struct {
	label  string
	advice string
}{
	{"晴天", "天氣晴朗，記得防曬。"},
	{"多雲", "天氣涼爽，適合散步。"},
	{"陰天", "雲層較厚，留意天色變化。"},
	{"短暫陣雨", "可能有陣雨，建議攜帶雨具。"},
}

// Forecast derives a stable pseudo-forecast from location and date, so
// the same request always caches the same answer.
func (a *Advisor) Forecast(_ context.Context, location, date string) (core.Forecast, error) {
	h := fnv.New32a()
	h.Write([]byte(location))
	h.Write([]byte(date))
	seed := h.Sum32()

	min := 10 + int(seed%15)       // 10..24
	span := 5 + int((seed>>4)%8)   // 5..12
	rain := int((seed >> 8) % 101) // 0..100
	cond := conditions[int(seed>>16)%len(conditions)]

	return core.Forecast{
		TempMin:   float64(min),
		TempMax:   float64(min + span),
		RainProb:  rain,
		Condition: cond.label,
		Advice:    cond.advice,
	}, nil
}

var categoryKeywords = map[core.Category][]string{
	core.CategoryFood: {
		"food", "lunch", "dinner", "breakfast", "meal", "restaurant",
		"sushi", "ramen", "coffee", "beer", "snack", "drink",
		"早餐", "午餐", "晚餐", "飲料", "咖啡", "餐廳", "拉麵", "壽司", "食",
	},
	core.CategoryTransport: {
		"taxi", "train", "bus", "metro", "flight", "fuel", "ticket", "uber",
		"車", "機票", "捷運", "火車", "交通", "油",
	},
	core.CategoryAccommodation: {
		"hotel", "hostel", "airbnb", "room", "night",
		"飯店", "旅館", "住宿", "民宿",
	},
	core.CategoryShopping: {
		"souvenir", "shop", "store", "clothes", "gift", "mall",
		"購物", "伴手禮", "衣", "禮物",
	},
}

// Categorize matches the item text against a keyword table; no match
// means Other.
func (a *Advisor) Categorize(_ context.Context, item string) (core.Category, error) {
	lowered := strings.ToLower(item)
	for _, c := range core.Categories() {
		for _, kw := range categoryKeywords[c] {
			if strings.Contains(lowered, kw) {
				return c, nil
			}
		}
	}
	return core.CategoryOther, nil
}
