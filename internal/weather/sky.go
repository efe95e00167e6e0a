package weather

import (
	"strings"

	"github.com/i474232898/sunny-weather/internal/common"
)

// Sky is the display form of a Caiyun skycon code.
type Sky struct {
	Info      string    `json:"info"`
	Condition Condition `json:"condition"`
}

var skies = map[string]Sky{
	"CLEAR_DAY":           {"Clear", ConditionClear},
	"CLEAR_NIGHT":         {"Clear", ConditionClear},
	"PARTLY_CLOUDY_DAY":   {"Partly cloudy", ConditionPartlyCloudy},
	"PARTLY_CLOUDY_NIGHT": {"Partly cloudy", ConditionPartlyCloudy},
	"CLOUDY":              {"Cloudy", ConditionCloudy},
	"WIND":                {"Windy", ConditionWind},
	"LIGHT_RAIN":          {"Light rain", ConditionRain},
	"MODERATE_RAIN":       {"Moderate rain", ConditionRain},
	"HEAVY_RAIN":          {"Heavy rain", ConditionRain},
	"STORM_RAIN":          {"Rainstorm", ConditionStorm},
	"THUNDER_SHOWER":      {"Thunder shower", ConditionStorm},
	"SLEET":               {"Sleet", ConditionSnow},
	"LIGHT_SNOW":          {"Light snow", ConditionSnow},
	"MODERATE_SNOW":       {"Moderate snow", ConditionSnow},
	"HEAVY_SNOW":          {"Heavy snow", ConditionSnow},
	"STORM_SNOW":          {"Snowstorm", ConditionSnow},
	"HAIL":                {"Hail", ConditionStorm},
	"LIGHT_HAZE":          {"Light haze", ConditionHaze},
	"MODERATE_HAZE":       {"Moderate haze", ConditionHaze},
	"HEAVY_HAZE":          {"Heavy haze", ConditionHaze},
	"FOG":                 {"Fog", ConditionMist},
	"DUST":                {"Dust", ConditionDust},
	"SAND":                {"Sandstorm", ConditionDust},
}

// SkyOf maps a skycon code to its display form. Codes missing from the table
// are classified by keyword; anything else falls back to clear, which is
// what the remote service reports for most unlisted daytime codes.
func SkyOf(code string) Sky {
	code = strings.ToUpper(strings.TrimSpace(code))
	if s, ok := skies[code]; ok {
		return s
	}

	switch {
	case code == "":
		return Sky{Info: "Unknown", Condition: ConditionUnknown}
	case common.HasAny(code, "THUNDER", "STORM", "HAIL"):
		return Sky{Info: "Storm", Condition: ConditionStorm}
	case common.HasAny(code, "RAIN", "DRIZZLE"):
		return Sky{Info: "Rain", Condition: ConditionRain}
	case common.HasAny(code, "SNOW", "SLEET"):
		return Sky{Info: "Snow", Condition: ConditionSnow}
	case common.HasAny(code, "HAZE"):
		return Sky{Info: "Haze", Condition: ConditionHaze}
	case common.HasAny(code, "FOG", "MIST"):
		return Sky{Info: "Fog", Condition: ConditionMist}
	case common.HasAny(code, "DUST", "SAND"):
		return Sky{Info: "Dust", Condition: ConditionDust}
	case common.HasAny(code, "CLOUD"):
		return Sky{Info: "Cloudy", Condition: ConditionCloudy}
	default:
		return skies["CLEAR_DAY"]
	}
}
