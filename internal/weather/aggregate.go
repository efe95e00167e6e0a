package weather

import "time"

// Layouts seen in skycon dates, most specific first.
var dateLayouts = []string{
	"2006-01-02T15:04-07:00",
	time.RFC3339,
	"2006-01-02",
}

// BuildWeather combines a realtime and a daily payload into a Weather.
// The daily arrays are zipped by index; a day is emitted only when both its
// skycon and temperature entries are present.
func BuildWeather(realtime Realtime, daily Daily) Weather {
	days := len(daily.Skycon)
	if len(daily.Temperature) < days {
		days = len(daily.Temperature)
	}

	forecast := make([]DailyForecast, 0, days)
	for i := 0; i < days; i++ {
		sky := daily.Skycon[i]
		temp := daily.Temperature[i]
		forecast = append(forecast, DailyForecast{
			Date:    parseDate(sky.Date),
			SkyCode: sky.Value,
			Sky:     SkyOf(sky.Value),
			MinTemp: temp.Min,
			MaxTemp: temp.Max,
		})
	}

	return Weather{
		Current: Current{
			Temperature:     realtime.Temperature,
			SkyCode:         realtime.Skycon,
			Sky:             SkyOf(realtime.Skycon),
			AirQualityIndex: realtime.AirQuality.AQI.CHN,
		},
		Forecast: forecast,
		LifeIndex: LifeIndex{
			ColdRisk:    descriptions(daily.LifeIndex.ColdRisk),
			CarWashing:  descriptions(daily.LifeIndex.CarWashing),
			Ultraviolet: descriptions(daily.LifeIndex.Ultraviolet),
			Dressing:    descriptions(daily.LifeIndex.Dressing),
		},
	}
}

func descriptions(items []LifeDescription) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Desc)
	}
	return out
}

// parseDate returns the zero time when no layout matches.
func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}
