package weather

// Wire shapes of the Caiyun place, realtime and daily endpoints.
// Field names follow the remote schema exactly.

// PlaceResponse is returned by the place search endpoint.
type PlaceResponse struct {
	Status string  `json:"status"`
	Places []Place `json:"places"`
}

// ResponseStatus implements async.Status.
func (r PlaceResponse) ResponseStatus() string { return r.Status }

// RealtimeResponse is returned by the realtime endpoint.
type RealtimeResponse struct {
	Status string `json:"status"`
	Result struct {
		Realtime Realtime `json:"realtime"`
	} `json:"result"`
}

// ResponseStatus implements async.Status.
func (r RealtimeResponse) ResponseStatus() string { return r.Status }

// Realtime is the current conditions payload.
type Realtime struct {
	Temperature float64 `json:"temperature"`
	Skycon      string  `json:"skycon"`
	AirQuality  struct {
		AQI struct {
			CHN float64 `json:"chn"`
		} `json:"aqi"`
	} `json:"air_quality"`
}

// DailyResponse is returned by the daily forecast endpoint.
type DailyResponse struct {
	Status string `json:"status"`
	Result struct {
		Daily Daily `json:"daily"`
	} `json:"result"`
}

// ResponseStatus implements async.Status.
func (r DailyResponse) ResponseStatus() string { return r.Status }

// Daily holds parallel per-day arrays; index i of each slice is the same day.
type Daily struct {
	Temperature []DailyTemperature `json:"temperature"`
	Skycon      []DailySkycon      `json:"skycon"`
	LifeIndex   DailyLifeIndex     `json:"life_index"`
}

type DailyTemperature struct {
	Max float64 `json:"max"`
	Min float64 `json:"min"`
}

type DailySkycon struct {
	Value string `json:"value"`
	Date  string `json:"date"`
}

type DailyLifeIndex struct {
	ColdRisk    []LifeDescription `json:"coldRisk"`
	CarWashing  []LifeDescription `json:"carWashing"`
	Ultraviolet []LifeDescription `json:"ultraviolet"`
	Dressing    []LifeDescription `json:"dressing"`
}

type LifeDescription struct {
	Desc string `json:"desc"`
}
