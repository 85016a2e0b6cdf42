package backend

// Device is a managed device record from the device-management service.
type Device struct {
	ID         string  `json:"id"`
	Name       *string `json:"name,omitempty"`
	DeviceType *string `json:"device_type,omitempty"`
	Status     string  `json:"status"`
	Location   *string `json:"location,omitempty"`
	CreatedAt  *string `json:"created_at,omitempty"`
}

// DeviceRequest is the payload for creating or updating a device.
type DeviceRequest struct {
	ID         string  `json:"id,omitempty"`
	Name       *string `json:"name,omitempty"`
	DeviceType *string `json:"device_type,omitempty"`
	Status     *string `json:"status,omitempty"`
	Location   *string `json:"location,omitempty"`
}

// CitySuggestion is the normalized geocoding result shape. Both the
// authenticated backend and the public geocoding fallback are mapped into
// it, so callers never see which source answered.
type CitySuggestion struct {
	Name      string  `json:"name"`
	Country   *string `json:"country,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CurrentWeather is the current-conditions response.
type CurrentWeather struct {
	Temperature   *float64 `json:"temperature"`
	Humidity      *float64 `json:"humidity"`
	Description   string   `json:"description"`
	City          string   `json:"city"`
	UpdatedAt     string   `json:"updated_at"`
	Pressure      *float64 `json:"pressure"`
	WindSpeed     *float64 `json:"wind_speed"`
	WindDirection *int     `json:"wind_direction"`
	Precipitation *float64 `json:"precipitation"`
}

// ForecastDay is one daily forecast entry.
type ForecastDay struct {
	Date             string   `json:"date"`
	TempMin          *float64 `json:"temp_min"`
	TempMax          *float64 `json:"temp_max"`
	Description      string   `json:"description"`
	PrecipitationSum *float64 `json:"precipitation_sum"`
	WindSpeedMax     *float64 `json:"wind_speed_max"`
}

// ForecastHour is one hourly forecast entry.
type ForecastHour struct {
	Time          string   `json:"time"`
	Temperature   *float64 `json:"temperature"`
	Description   string   `json:"description"`
	Precipitation *float64 `json:"precipitation,omitempty"`
}

// Forecast is the multi-day forecast response including the next-hour
// prediction used for weather anchoring.
type Forecast struct {
	City     string         `json:"city"`
	Daily    []ForecastDay  `json:"daily"`
	Hourly24 []ForecastHour `json:"hourly_24"`
	Hourly48 []ForecastHour `json:"hourly_48,omitempty"`
	NextHour *ForecastHour  `json:"next_hour"`
}

// DeviceAnalysis is the weather-vs-sensor comparison for one device.
type DeviceAnalysis struct {
	DeviceID     string  `json:"device_id"`
	AvgTemp      float64 `json:"avg_temp"`
	Deviation    float64 `json:"deviation"`
	IsAnomaly    bool    `json:"is_anomaly"`
	MeanAbsError float64 `json:"mean_abs_error"`
	SampleCount  int     `json:"sample_count"`
}

// WeatherAnalysis compares current weather against recent sensor readings.
type WeatherAnalysis struct {
	City                    *string          `json:"city"`
	WeatherTemp             *float64         `json:"weather_temp"`
	WeatherHumidity         *float64         `json:"weather_humidity"`
	Devices                 []DeviceAnalysis `json:"devices"`
	AnomalyThresholdCelsius float64          `json:"anomaly_threshold_celsius,omitempty"`
}

// DevicePrediction is the short-horizon per-device temperature prediction.
type DevicePrediction struct {
	DeviceID             string   `json:"device_id"`
	PredictedTemperature float64  `json:"predicted_temperature"`
	BasedOnNPoints       int      `json:"based_on_n_points"`
	HorizonSeconds       float64  `json:"horizon_seconds"`
	Method               string   `json:"method"`
	WasClipped           bool     `json:"was_clipped"`
	RawPrediction        *float64 `json:"raw_prediction,omitempty"`
}

// WeatherAwarePrediction blends the device model with the next-hour
// forecast. The backend reduces the blend weight when the device model
// diverges far from the forecast; the fields expose that correction.
type WeatherAwarePrediction struct {
	DeviceID                   string   `json:"device_id"`
	City                       string   `json:"city"`
	DevicePrediction           *float64 `json:"device_prediction"`
	WeatherNextHour            *float64 `json:"weather_next_hour"`
	WeatherAwarePrediction     *float64 `json:"weather_aware_prediction"`
	BlendFactor                float64  `json:"blend_factor"`
	HorizonSeconds             float64  `json:"horizon_seconds"`
	AnomalyCorrected           bool     `json:"anomaly_corrected"`
	PredictionBoundedByWeather bool     `json:"prediction_bounded_by_weather"`
	RawPredictionBeforeBound   *float64 `json:"raw_prediction_before_bound,omitempty"`
}

// BlendedHour is one hour of the 24h blended prediction.
type BlendedHour struct {
	Time         string   `json:"time"`
	OurModelTemp float64  `json:"our_model_temp"`
	WeatherTemp  *float64 `json:"weather_temp"`
	BlendedTemp  float64  `json:"blended_temp"`
}

// Prediction24h is the 24-hour blended prediction response.
type Prediction24h struct {
	Hourly         []BlendedHour `json:"hourly"`
	Method         string        `json:"method"`
	BlendFactor    float64       `json:"blend_factor"`
	BasedOnNPoints int           `json:"based_on_n_points"`
	City           string        `json:"city,omitempty"`
	DeviceID       string        `json:"device_id,omitempty"`
}
