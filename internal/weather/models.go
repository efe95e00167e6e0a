package weather

import (
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown      Condition = "unknown"
	ConditionClear        Condition = "clear"
	ConditionPartlyCloudy Condition = "partly_cloudy"
	ConditionCloudy       Condition = "cloudy"
	ConditionRain         Condition = "rain"
	ConditionSnow         Condition = "snow"
	ConditionStorm        Condition = "storm"
	ConditionMist         Condition = "mist"
	ConditionHaze         Condition = "haze"
	ConditionDust         Condition = "dust"
	ConditionWind         Condition = "wind"
)

// Location is a coordinate pair as the remote service spells it: decimal strings.
type Location struct {
	Lng string `json:"lng" validate:"required,longitude"`
	Lat string `json:"lat" validate:"required,latitude"`
}

// Key returns a canonical string key, "lng,lat", as used in remote URLs and logs.
func (l Location) Key() string {
	return l.Lng + "," + l.Lat
}

// Place is a geocoded search hit and the payload of the selection store.
type Place struct {
	Name     string   `json:"name" validate:"required"`
	Location Location `json:"location" validate:"required"`
	Address  string   `json:"formatted_address"`
}

// Weather is the combined realtime + daily view of one location.
// It is rebuilt from scratch on every refresh.
type Weather struct {
	Current   Current         `json:"current"`
	Forecast  []DailyForecast `json:"forecast"`
	LifeIndex LifeIndex       `json:"lifeIndex"`
}

// Current is the realtime part of Weather.
type Current struct {
	Temperature     float64 `json:"temperatureC"`
	SkyCode         string  `json:"skyCode"`
	Sky             Sky     `json:"sky"`
	AirQualityIndex float64 `json:"aqi"`
}

// DailyForecast is one day of the forecast.
type DailyForecast struct {
	Date    time.Time `json:"date"`
	SkyCode string    `json:"skyCode"`
	Sky     Sky       `json:"sky"`
	MinTemp float64   `json:"minTempC"`
	MaxTemp float64   `json:"maxTempC"`
}

// LifeIndex holds the daily advisories per category, earliest day first.
type LifeIndex struct {
	ColdRisk    []string `json:"coldRisk"`
	CarWashing  []string `json:"carWashing"`
	Ultraviolet []string `json:"ultraviolet"`
	Dressing    []string `json:"dressing"`
}

// TodayAdvice is the same-day slice of a LifeIndex.
type TodayAdvice struct {
	ColdRisk    string `json:"coldRisk"`
	CarWashing  string `json:"carWashing"`
	Ultraviolet string `json:"ultraviolet"`
	Dressing    string `json:"dressing"`
}

// Today returns the first advisory of each category.
func (l LifeIndex) Today() TodayAdvice {
	return TodayAdvice{
		ColdRisk:    first(l.ColdRisk),
		CarWashing:  first(l.CarWashing),
		Ultraviolet: first(l.Ultraviolet),
		Dressing:    first(l.Dressing),
	}
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
